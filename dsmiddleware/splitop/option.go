package splitop

import "go.mercari.io/worldstore"

// Option configures New.
type Option interface {
	Apply(*splitHandler)
}

type optionFunc func(*splitHandler)

func (f optionFunc) Apply(sh *splitHandler) { f(sh) }

// WithSplitThreshold sets the maximum ids per Find call. Zero or less
// disables splitting.
func WithSplitThreshold(threshold int) Option {
	return optionFunc(func(sh *splitHandler) { sh.threshold = threshold })
}

// WithConcurrency sets how many chunks are fetched at once.
func WithConcurrency(n int) Option {
	return optionFunc(func(sh *splitHandler) { sh.concurrency = n })
}

func WithLogger(logf worldstore.Logf) Option {
	return optionFunc(func(sh *splitHandler) { sh.logf = logf })
}
