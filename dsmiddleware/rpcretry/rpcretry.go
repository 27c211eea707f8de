// Package rpcretry retries store calls failing with transient errors.
package rpcretry

import (
	"context"
	"errors"
	"time"

	"go.mercari.io/worldstore"
)

var _ worldstore.Middleware = &retryHandler{}

// New returns a middleware making up to 3 attempts per call, 100ms apart
// and doubling, unless opts say otherwise.
func New(opts ...RetryOption) worldstore.Middleware {
	rh := &retryHandler{
		limit:     3,
		backoff:   Backoff{Min: 100 * time.Millisecond},
		logf:      worldstore.NopLogf,
		retryable: Retryable,
	}
	for _, opt := range opts {
		opt.Apply(rh)
	}
	return rh
}

type retryHandler struct {
	limit     int
	backoff   Backoff
	logf      worldstore.Logf
	retryable func(err error) bool
}

// Retryable reports whether err may go away on a later attempt. Answers
// from the store (no such record, record exists, per-element errors) and
// context cancellation never do.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, worldstore.ErrNoSuchRecord),
		errors.Is(err, worldstore.ErrRecordExists),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var merr worldstore.MultiError
	return !errors.As(err, &merr)
}

// retry calls f until it succeeds, fails for good or the attempts run out,
// and returns its last result.
func retry[T any](rh *retryHandler, ctx context.Context, op string, f func() (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		v, err := f()
		if err == nil || !rh.retryable(err) {
			return v, err
		}
		if rh.limit <= attempt {
			rh.logf(ctx, "rpcretry.%s: attempt=%d err=%s, giving up", op, attempt, err.Error())
			return v, err
		}

		wait := rh.backoff.Wait(attempt)
		rh.logf(ctx, "rpcretry.%s: attempt=%d err=%s, retrying in %s", op, attempt, err.Error(), wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return v, err
		case <-timer.C:
		}
	}
}

func (rh *retryHandler) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	return retry(rh, info.Context, "FindByID", func() (*worldstore.Record, error) {
		return info.Next.FindByID(info, key)
	})
}

func (rh *retryHandler) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	return retry(rh, info.Context, "Find", func() ([]*worldstore.Record, error) {
		return info.Next.Find(info, q)
	})
}

func (rh *retryHandler) Create(info *worldstore.MiddlewareInfo, rec *worldstore.Record) error {
	_, err := retry(rh, info.Context, "Create", func() (struct{}, error) {
		return struct{}{}, info.Next.Create(info, rec)
	})
	return err
}

func (rh *retryHandler) FindByIDAndUpdate(info *worldstore.MiddlewareInfo, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	return retry(rh, info.Context, "FindByIDAndUpdate", func() (*worldstore.Record, error) {
		return info.Next.FindByIDAndUpdate(info, key, rec, upsert)
	})
}

func (rh *retryHandler) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	return retry(rh, info.Context, "Exists", func() (bool, error) {
		return info.Next.Exists(info, key)
	})
}

func (rh *retryHandler) Delete(info *worldstore.MiddlewareInfo, key worldstore.Key) error {
	_, err := retry(rh, info.Context, "Delete", func() (struct{}, error) {
		return struct{}{}, info.Next.Delete(info, key)
	})
	return err
}
