package manager

import (
	"context"
	"errors"
	"fmt"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
	"go.mercari.io/worldstore/merge"
	"go.mercari.io/worldstore/schema"
)

var _ Adapter[struct{}] = (*hybridAdapter[struct{}])(nil)

// NewHybrid builds a Manager whose entities are templates from registry
// with a persisted overlay merged on top. An id without template doesn't
// exist. The first load of an id without overlay persists the template as
// its overlay. classMap binds interface typed properties of the overlay
// to concrete types.
func NewHybrid[T any](client worldstore.Client, collection string, class *schema.Class, registry Registry[T], classMap merge.ClassMap, opts ...Option) (*Manager[T], error) {
	if registry == nil {
		return nil, errors.New("manager: registry is required")
	}
	s := newSettings(opts)
	return New[T](client, collection, class, &hybridAdapter[T]{
		client:     client,
		collection: collection,
		class:      class,
		codec:      s.codec,
		registry:   registry,
		classMap:   classMap,
		logf:       s.logf,
	}, opts...)
}

type hybridAdapter[T any] struct {
	client     worldstore.Client
	collection string
	class      *schema.Class
	codec      *codec.Codec
	registry   Registry[T]
	classMap   merge.ClassMap
	logf       worldstore.Logf
}

func (a *hybridAdapter[T]) template(id string, newFn func() *T) *T {
	v := newFn()
	if err := a.class.SetID(v, id); err != nil {
		// New already checked the class has an id field
		panic(err)
	}
	return v
}

func (a *hybridAdapter[T]) Load(ctx context.Context, id string) (*T, error) {
	newFn, ok := a.registry.Lookup(id)
	if !ok {
		return nil, worldstore.ErrNoSuchRecord
	}
	rec, err := a.client.FindByID(ctx, worldstore.NewKey(a.collection, id))
	if errors.Is(err, worldstore.ErrNoSuchRecord) {
		return a.materialize(ctx, id, newFn)
	} else if err != nil {
		return nil, err
	}
	return a.overlay(ctx, id, newFn, rec)
}

// materialize persists the template of id as its first overlay.
func (a *hybridAdapter[T]) materialize(ctx context.Context, id string, newFn func() *T) (*T, error) {
	v := a.template(id, newFn)

	data, err := a.class.Serialize(ctx, v)
	if err != nil {
		a.logf(ctx, "manager.hybrid: %s id=%s not materialized err=%s", a.collection, id, err.Error())
		return v, nil
	}
	rec, err := a.codec.ToRecord(a.collection, data)
	if err != nil {
		return nil, err
	}

	err = a.client.Create(ctx, rec)
	if errors.Is(err, worldstore.ErrRecordExists) {
		// created concurrently, use what won
		rec, err = a.client.FindByID(ctx, rec.Key)
		if err != nil {
			return nil, err
		}
		return a.overlay(ctx, id, newFn, rec)
	} else if err != nil {
		return nil, err
	}

	a.logf(ctx, "manager.hybrid: materialized %s", rec.Key.String())
	return v, nil
}

// overlay merges the persisted overlay rec onto a fresh template.
func (a *hybridAdapter[T]) overlay(ctx context.Context, id string, newFn func() *T, rec *worldstore.Record) (*T, error) {
	data, err := a.codec.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	plain, err := a.class.Plain(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key.String(), err)
	}

	v := a.template(id, newFn)
	if err := merge.Hard(v, plain, a.classMap); err != nil {
		a.logf(ctx, "manager.hybrid: %s overlay partially applied err=%s", rec.Key.String(), err.Error())
	}
	return v, nil
}

// Scan reads the overlays of every registered id, batchSize ids per query.
func (a *hybridAdapter[T]) Scan(ctx context.Context, batchSize int, fn func(id string, build BuildFunc[T]) error) error {
	ids := a.registry.IDs()
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if len(ids) < end {
			end = len(ids)
		}
		chunk := ids[start:end]

		recs, err := a.client.Find(ctx, &worldstore.Query{Collection: a.collection, IDs: chunk})
		if err != nil {
			return err
		}
		overlays := make(map[string]*worldstore.Record, len(recs))
		for _, rec := range recs {
			overlays[rec.Key.ID] = rec
		}

		for _, id := range chunk {
			newFn, ok := a.registry.Lookup(id)
			if !ok {
				continue
			}
			rec := overlays[id]
			err := fn(id, func(ctx context.Context) (*T, error) {
				if rec == nil {
					return a.materialize(ctx, id, newFn)
				}
				return a.overlay(ctx, id, newFn, rec)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Exists is true for every id with a template.
func (a *hybridAdapter[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := a.registry.Lookup(id)
	return ok, nil
}
