// Package clouddatastore is a worldstore.Backend on Cloud Datastore.
//
// A collection maps to a kind and a record id to a key name. Records are
// stored as entities with two properties, an indexed version "v" and the
// unindexed payload "d".
package clouddatastore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/datastore"
	"go.mercari.io/worldstore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ worldstore.Backend = (*Backend)(nil)

type entity struct {
	V int    `datastore:"v"`
	D []byte `datastore:"d,noindex"`
}

// Backend reads and writes records through a datastore.Client.
type Backend struct {
	client    *datastore.Client
	namespace string
}

// NewBackendWithClient wraps an already dialed client.
func NewBackendWithClient(client *datastore.Client, namespace string) *Backend {
	return &Backend{client: client, namespace: namespace}
}

func (b *Backend) key(key worldstore.Key) *datastore.Key {
	k := datastore.NameKey(key.Collection, key.ID, nil)
	k.Namespace = b.namespace
	return k
}

func toRecord(key worldstore.Key, e *entity) *worldstore.Record {
	return &worldstore.Record{Key: key, V: e.V, D: e.D}
}

func grpcCode(err error) codes.Code {
	var merr datastore.MultiError
	if errors.As(err, &merr) {
		for _, e := range merr {
			if e != nil {
				return grpcCode(e)
			}
		}
	}
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Code()
	}
	return status.Code(err)
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) FindByID(ctx context.Context, key worldstore.Key) (*worldstore.Record, error) {
	var e entity
	err := b.client.Get(ctx, b.key(key), &e)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, worldstore.ErrNoSuchRecord
	} else if err != nil {
		return nil, fmt.Errorf("clouddatastore: get %s: %w", key.String(), err)
	}
	return toRecord(key, &e), nil
}

func (b *Backend) Find(ctx context.Context, q *worldstore.Query) ([]*worldstore.Record, error) {
	if len(q.IDs) != 0 {
		return b.findByIDs(ctx, q)
	}

	dq := datastore.NewQuery(q.Collection).Namespace(b.namespace).Order("__key__")
	if q.StartAfter != "" {
		dq = dq.Filter("__key__ >", b.key(worldstore.NewKey(q.Collection, q.StartAfter)))
	}
	// the version filter runs client side, so the limit can't be pushed down.
	if 0 < q.Limit && q.VersionBelow == 0 {
		dq = dq.Limit(q.Limit)
	}

	var list []*worldstore.Record
	iter := b.client.Run(ctx, dq)
	for {
		var e entity
		k, err := iter.Next(&e)
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, fmt.Errorf("clouddatastore: query %s: %w", q.Collection, err)
		}

		rec := toRecord(worldstore.NewKey(q.Collection, k.Name), &e)
		if !q.Match(rec) {
			continue
		}
		list = append(list, rec)
		if 0 < q.Limit && q.Limit <= len(list) {
			break
		}
	}

	return list, nil
}

func (b *Backend) findByIDs(ctx context.Context, q *worldstore.Query) ([]*worldstore.Record, error) {
	ids := append([]string(nil), q.IDs...)
	sort.Strings(ids)

	var keys []*datastore.Key
	var wKeys []worldstore.Key
	for idx, id := range ids {
		if idx != 0 && ids[idx-1] == id {
			continue
		}
		wKey := worldstore.NewKey(q.Collection, id)
		wKeys = append(wKeys, wKey)
		keys = append(keys, b.key(wKey))
	}

	es := make([]*entity, len(keys))
	for idx := range es {
		es[idx] = &entity{}
	}
	err := b.client.GetMulti(ctx, keys, es)
	merr, isMulti := err.(datastore.MultiError)
	if err != nil && !isMulti {
		return nil, fmt.Errorf("clouddatastore: get multi %s: %w", q.Collection, err)
	}

	var list []*worldstore.Record
	for idx, e := range es {
		if isMulti && merr[idx] != nil {
			if errors.Is(merr[idx], datastore.ErrNoSuchEntity) {
				continue
			}
			return nil, fmt.Errorf("clouddatastore: get %s: %w", wKeys[idx].String(), merr[idx])
		}
		rec := toRecord(wKeys[idx], e)
		if !q.Match(rec) {
			continue
		}
		list = append(list, rec)
		if 0 < q.Limit && q.Limit <= len(list) {
			break
		}
	}

	return list, nil
}

func (b *Backend) Create(ctx context.Context, rec *worldstore.Record) error {
	_, err := b.client.Mutate(ctx, datastore.NewInsert(b.key(rec.Key), &entity{V: rec.V, D: rec.D}))
	if grpcCode(err) == codes.AlreadyExists {
		return worldstore.ErrRecordExists
	} else if err != nil {
		return fmt.Errorf("clouddatastore: insert %s: %w", rec.Key.String(), err)
	}
	return nil
}

func (b *Backend) FindByIDAndUpdate(ctx context.Context, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	e := &entity{V: rec.V, D: rec.D}
	var mut *datastore.Mutation
	if upsert {
		mut = datastore.NewUpsert(b.key(key), e)
	} else {
		mut = datastore.NewUpdate(b.key(key), e)
	}

	_, err := b.client.Mutate(ctx, mut)
	if !upsert && grpcCode(err) == codes.NotFound {
		return nil, worldstore.ErrNoSuchRecord
	} else if err != nil {
		return nil, fmt.Errorf("clouddatastore: update %s: %w", key.String(), err)
	}
	return toRecord(key, e), nil
}

func (b *Backend) Exists(ctx context.Context, key worldstore.Key) (bool, error) {
	_, err := b.FindByID(ctx, key)
	if errors.Is(err, worldstore.ErrNoSuchRecord) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) Delete(ctx context.Context, key worldstore.Key) error {
	if err := b.client.Delete(ctx, b.key(key)); err != nil {
		return fmt.Errorf("clouddatastore: delete %s: %w", key.String(), err)
	}
	return nil
}
