package rpcretry

import (
	"time"

	"go.mercari.io/worldstore"
)

// Backoff shapes the wait before each new attempt. The wait starts at Min
// and doubles per attempt, at most MaxDoublings times when positive, and
// never exceeds Max when positive.
type Backoff struct {
	Min          time.Duration
	Max          time.Duration
	MaxDoublings int
}

// Wait returns the wait before attempt+1, attempt counting from 1.
func (b Backoff) Wait(attempt int) time.Duration {
	d := b.Min
	if d <= 0 {
		d = 10 * time.Millisecond
	}

	doublings := attempt - 1
	if 0 < b.MaxDoublings && b.MaxDoublings < doublings {
		doublings = b.MaxDoublings
	}
	for i := 0; i < doublings; i++ {
		if 0 < b.Max && b.Max <= d {
			break
		}
		d *= 2
	}
	if 0 < b.Max && b.Max < d {
		d = b.Max
	}
	return d
}

// RetryOption configures New.
type RetryOption interface {
	Apply(*retryHandler)
}

type optionFunc func(*retryHandler)

func (f optionFunc) Apply(rh *retryHandler) { f(rh) }

// WithRetryLimit caps the number of attempts, the first one included.
func WithRetryLimit(limit int) RetryOption {
	return optionFunc(func(rh *retryHandler) { rh.limit = limit })
}

func WithBackoff(b Backoff) RetryOption {
	return optionFunc(func(rh *retryHandler) { rh.backoff = b })
}

func WithLogger(logf worldstore.Logf) RetryOption {
	return optionFunc(func(rh *retryHandler) { rh.logf = logf })
}

// WithRetryable replaces the predicate deciding whether an error is worth
// another attempt. The default is Retryable.
func WithRetryable(f func(err error) bool) RetryOption {
	return optionFunc(func(rh *retryHandler) { rh.retryable = f })
}
