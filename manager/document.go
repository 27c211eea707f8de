package manager

import (
	"context"
	"fmt"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
	"go.mercari.io/worldstore/schema"
)

var _ Adapter[struct{}] = (*documentAdapter[struct{}])(nil)

// NewDocument builds a Manager whose entities are stored whole, one record
// each.
func NewDocument[T any](client worldstore.Client, collection string, class *schema.Class, opts ...Option) (*Manager[T], error) {
	s := newSettings(opts)
	return New[T](client, collection, class, &documentAdapter[T]{
		client:     client,
		collection: collection,
		class:      class,
		codec:      s.codec,
	}, opts...)
}

type documentAdapter[T any] struct {
	client     worldstore.Client
	collection string
	class      *schema.Class
	codec      *codec.Codec
}

func (a *documentAdapter[T]) Load(ctx context.Context, id string) (*T, error) {
	rec, err := a.client.FindByID(ctx, worldstore.NewKey(a.collection, id))
	if err != nil {
		return nil, err
	}
	return a.build(ctx, rec)
}

func (a *documentAdapter[T]) build(ctx context.Context, rec *worldstore.Record) (*T, error) {
	data, err := a.codec.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := a.class.DeserializeInto(ctx, data, v); err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key.String(), err)
	}
	return v, nil
}

// Scan pages through the collection by id.
func (a *documentAdapter[T]) Scan(ctx context.Context, batchSize int, fn func(id string, build BuildFunc[T]) error) error {
	q := &worldstore.Query{Collection: a.collection, Limit: batchSize}
	for {
		recs, err := a.client.Find(ctx, q)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			err := fn(rec.Key.ID, func(ctx context.Context) (*T, error) {
				return a.build(ctx, rec)
			})
			if err != nil {
				return err
			}
		}
		if len(recs) < batchSize {
			return nil
		}
		q = &worldstore.Query{
			Collection: a.collection,
			StartAfter: recs[len(recs)-1].Key.ID,
			Limit:      batchSize,
		}
	}
}

func (a *documentAdapter[T]) Exists(ctx context.Context, id string) (bool, error) {
	return a.client.Exists(ctx, worldstore.NewKey(a.collection, id))
}
