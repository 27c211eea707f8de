package worldstore

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchConcurrency bounds in-flight puts and deletes of a single Batch.Exec.
var BatchConcurrency = 8

// Batch queues operations and runs them together on Exec.
// Gets of one collection are merged into a single Find.
type Batch struct {
	Client Client

	put    batchPut
	get    batchGet
	delete batchDelete
}

type BatchPutHandler func(rec *Record, err error) error
type BatchGetHandler func(rec *Record, err error) error
type BatchErrHandler func(err error) error

type batchPut struct {
	m    sync.Mutex
	recs []*Record
	hs   []BatchPutHandler
}

type batchGet struct {
	m    sync.Mutex
	keys []Key
	hs   []BatchGetHandler
}

type batchDelete struct {
	m    sync.Mutex
	keys []Key
	hs   []BatchErrHandler
}

// Put upserts rec on Exec.
func (b *Batch) Put(rec *Record, h BatchPutHandler) {
	b.put.Put(rec, h)
}

func (b *Batch) Get(key Key, h BatchGetHandler) {
	b.get.Get(key, h)
}

func (b *Batch) Delete(key Key, h BatchErrHandler) {
	b.delete.Delete(key, h)
}

func (b *Batch) Exec(ctx context.Context) error {
	var wg sync.WaitGroup
	var errors []error
	var m sync.Mutex
	collect := func(errs []error) {
		if len(errs) != 0 {
			m.Lock()
			errors = append(errors, errs...)
			m.Unlock()
		}
	}
	wg.Add(3)

	go func() {
		defer wg.Done()
		collect(b.put.Exec(ctx, b.Client))
	}()
	go func() {
		defer wg.Done()
		collect(b.get.Exec(ctx, b.Client))
	}()
	go func() {
		defer wg.Done()
		collect(b.delete.Exec(ctx, b.Client))
	}()

	wg.Wait()

	if len(errors) != 0 {
		return MultiError(errors)
	}

	// handlers may have queued more work
	if b.pending() {
		return b.Exec(ctx)
	}

	return nil
}

func (b *Batch) pending() bool {
	b.put.m.Lock()
	n := len(b.put.recs)
	b.put.m.Unlock()
	b.get.m.Lock()
	n += len(b.get.keys)
	b.get.m.Unlock()
	b.delete.m.Lock()
	n += len(b.delete.keys)
	b.delete.m.Unlock()
	return n != 0
}

func (b *batchPut) Put(rec *Record, h BatchPutHandler) {
	b.m.Lock()
	defer b.m.Unlock()

	b.recs = append(b.recs, rec)
	b.hs = append(b.hs, h)
}

func (b *batchPut) Exec(ctx context.Context, client Client) []error {
	b.m.Lock()
	recs := b.recs
	hs := b.hs
	b.recs = nil
	b.hs = nil
	b.m.Unlock()

	if len(recs) == 0 {
		return nil
	}

	results := make([]*Record, len(recs))
	merr := make([]error, len(recs))
	var eg errgroup.Group
	eg.SetLimit(BatchConcurrency)
	for idx, rec := range recs {
		eg.Go(func() error {
			results[idx], merr[idx] = client.FindByIDAndUpdate(ctx, rec.Key, rec, true)
			return nil
		})
	}
	_ = eg.Wait()

	errs := make([]error, 0, len(recs))
	for idx, err := range merr {
		if h := hs[idx]; h != nil {
			err = h(results[idx], err)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errs
	}

	return nil
}

func (b *batchGet) Get(key Key, h BatchGetHandler) {
	b.m.Lock()
	defer b.m.Unlock()

	b.keys = append(b.keys, key)
	b.hs = append(b.hs, h)
}

func (b *batchGet) Exec(ctx context.Context, client Client) []error {
	b.m.Lock()
	keys := b.keys
	hs := b.hs
	b.keys = nil
	b.hs = nil
	b.m.Unlock()

	if len(keys) == 0 {
		return nil
	}

	byCollection := make(map[string][]string)
	var order []string
	for _, key := range keys {
		if _, ok := byCollection[key.Collection]; !ok {
			order = append(order, key.Collection)
		}
		byCollection[key.Collection] = append(byCollection[key.Collection], key.ID)
	}

	found := make(map[Key]*Record, len(keys))
	failed := make(map[string]error)
	for _, coll := range order {
		recs, err := client.Find(ctx, &Query{Collection: coll, IDs: byCollection[coll]})
		if err != nil {
			failed[coll] = err
			continue
		}
		for _, rec := range recs {
			found[rec.Key] = rec
		}
	}

	errs := make([]error, 0, len(keys))
	for idx, key := range keys {
		rec := found[key]
		err := failed[key.Collection]
		if rec == nil && err == nil {
			err = ErrNoSuchRecord
		}
		if h := hs[idx]; h != nil {
			err = h(rec, err)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errs
	}

	return nil
}

func (b *batchDelete) Delete(key Key, h BatchErrHandler) {
	b.m.Lock()
	defer b.m.Unlock()

	b.keys = append(b.keys, key)
	b.hs = append(b.hs, h)
}

func (b *batchDelete) Exec(ctx context.Context, client Client) []error {
	b.m.Lock()
	keys := b.keys
	hs := b.hs
	b.keys = nil
	b.hs = nil
	b.m.Unlock()

	if len(keys) == 0 {
		return nil
	}

	merr := make([]error, len(keys))
	var eg errgroup.Group
	eg.SetLimit(BatchConcurrency)
	for idx, key := range keys {
		eg.Go(func() error {
			merr[idx] = client.Delete(ctx, key)
			return nil
		})
	}
	_ = eg.Wait()

	errs := make([]error, 0, len(keys))
	for idx, err := range merr {
		if h := hs[idx]; h != nil {
			err = h(err)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) != 0 {
		return errs
	}

	return nil
}
