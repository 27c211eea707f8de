// Package splitop splits id lookups too large for one store call.
package splitop

import (
	"sort"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/noop"
	"golang.org/x/sync/errgroup"
)

var _ worldstore.Middleware = &splitHandler{}

// New returns a middleware splitting Find calls with more ids than the
// threshold, 1000 by default, into one call per chunk. Chunks are fetched
// one at a time unless WithConcurrency says otherwise.
func New(opts ...Option) worldstore.Middleware {
	sh := &splitHandler{
		Middleware:  noop.New(),
		threshold:   1000,
		concurrency: 1,
		logf:        worldstore.NopLogf,
	}
	for _, opt := range opts {
		opt.Apply(sh)
	}
	if sh.concurrency < 1 {
		sh.concurrency = 1
	}
	return sh
}

type splitHandler struct {
	worldstore.Middleware

	threshold   int
	concurrency int
	logf        worldstore.Logf
}

func (sh *splitHandler) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	if sh.threshold <= 0 || len(q.IDs) <= sh.threshold {
		return info.Next.Find(info, q)
	}

	chunks := (len(q.IDs) + sh.threshold - 1) / sh.threshold
	sh.logf(info.Context, "splitop.Find: ids=%d chunks=%d", len(q.IDs), chunks)

	results := make([][]*worldstore.Record, chunks)
	var eg errgroup.Group
	eg.SetLimit(sh.concurrency)
	for idx := 0; idx < chunks; idx++ {
		start := idx * sh.threshold
		end := min(start+sh.threshold, len(q.IDs))
		sub := *q
		sub.IDs = q.IDs[start:end]
		sub.Limit = 0

		eg.Go(func() error {
			sh.logf(info.Context, "splitop.Find: chunk [%d, %d)", start, end)
			recs, err := info.Next.Find(info, &sub)
			if err != nil {
				return err
			}
			results[idx] = recs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var list []*worldstore.Record
	for _, recs := range results {
		list = append(list, recs...)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key.ID < list[j].Key.ID })
	if 0 < q.Limit && q.Limit < len(list) {
		list = list[:q.Limit]
	}
	return list, nil
}
