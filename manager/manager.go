// Package manager keeps persisted entities cached in memory, one live object
// per id, and moves them between the cache and a worldstore.Client.
//
// A Manager has a strong cache (the authoritative id to object map), a weak
// table that revives evicted objects still referenced elsewhere, a tombstone
// set, and a readiness gate that holds Get calls until the first bulk load
// is done. How entities are fetched is left to an Adapter: NewDocument reads
// self-contained documents, NewHybrid layers a persisted overlay over a
// code-defined template.
package manager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
	"go.mercari.io/worldstore/schema"
	"golang.org/x/sync/singleflight"
)

// BuildFunc builds one entity out of data the adapter already fetched.
type BuildFunc[T any] func(ctx context.Context) (*T, error)

// Adapter is the storage strategy of a Manager.
type Adapter[T any] interface {
	// Load fetches and builds the entity id. It returns
	// worldstore.ErrNoSuchRecord when id doesn't exist.
	Load(ctx context.Context, id string) (*T, error)
	// Scan walks every existing entity, batchSize records per query, and
	// calls fn with its id and a function building it.
	Scan(ctx context.Context, batchSize int, fn func(id string, build BuildFunc[T]) error) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Manager caches the entities of one collection.
type Manager[T any] struct {
	client     worldstore.Client
	collection string
	class      *schema.Class
	adapter    Adapter[T]
	codec      *codec.Codec

	logf      worldstore.Logf
	onAccess  func(ctx context.Context, v interface{})
	afterLoad func(ctx context.Context, v interface{}) error
	batchSize int

	m          sync.Mutex
	strong     map[string]*T
	weak       *weakTable[T]
	tombstones map[string]struct{}

	gate  *gate
	group singleflight.Group
}

// New builds a Manager over a custom adapter. The class must describe T
// and declare an id field.
func New[T any](client worldstore.Client, collection string, class *schema.Class, adapter Adapter[T], opts ...Option) (*Manager[T], error) {
	if class == nil {
		return nil, errors.New("manager: class is required")
	}
	if typ := reflect.TypeOf((*T)(nil)).Elem(); class.Type() != typ {
		return nil, fmt.Errorf("manager: class %s describes %v, not %v", class.Name(), class.Type(), typ)
	}
	if err := class.SetID(new(T), ""); err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}

	s := newSettings(opts)
	return &Manager[T]{
		client:     client,
		collection: collection,
		class:      class,
		adapter:    adapter,
		codec:      s.codec,
		logf:       s.logf,
		onAccess:   s.onAccess,
		afterLoad:  s.afterLoad,
		batchSize:  s.batchSize,
		strong:     make(map[string]*T),
		weak:       newWeakTable[T](),
		tombstones: make(map[string]struct{}),
		gate:       newGate(s.ready),
	}, nil
}

func (m *Manager[T]) Collection() string { return m.collection }

func (m *Manager[T]) Class() *schema.Class { return m.class }

func (m *Manager[T]) key(id string) worldstore.Key {
	return worldstore.NewKey(m.collection, id)
}

// Get returns the entity id, waiting for the readiness gate first. Cached
// objects are returned as is, so two Gets without an intervening Set
// return the same pointer. A tombstoned or absent id yields
// worldstore.ErrNoSuchRecord; store and codec failures are returned.
func (m *Manager[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := m.WaitUntilReady(ctx); err != nil {
		return nil, err
	}
	if m.IsDeleted(id) {
		return nil, worldstore.ErrNoSuchRecord
	}
	if v := m.cached(id); v != nil {
		m.access(ctx, v)
		return v, nil
	}

	v, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	m.access(ctx, v)
	return v, nil
}

// cached looks id up in the strong cache, then in the weak table. A live
// weak hit is promoted back to the strong cache.
func (m *Manager[T]) cached(id string) *T {
	m.m.Lock()
	defer m.m.Unlock()

	if v, ok := m.strong[id]; ok {
		return v
	}
	if v := m.weak.get(id); v != nil {
		m.strong[id] = v
		return v
	}
	return nil
}

// load fetches id from storage. Concurrent loads of one id share a single
// fetch.
func (m *Manager[T]) load(ctx context.Context, id string) (*T, error) {
	v, err, _ := m.group.Do(id, func() (interface{}, error) {
		if v := m.cached(id); v != nil {
			return v, nil
		}
		v, err := m.adapter.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := m.prepare(ctx, v); err != nil {
			return nil, err
		}
		return m.insert(id, v), nil
	})
	if err != nil {
		if !errors.Is(err, worldstore.ErrNoSuchRecord) {
			m.logf(ctx, "manager.Get: %s err=%s", m.key(id).String(), err.Error())
		}
		return nil, err
	}
	return v.(*T), nil
}

func (m *Manager[T]) prepare(ctx context.Context, v *T) error {
	if m.afterLoad == nil {
		return nil
	}
	return m.afterLoad(ctx, v)
}

func (m *Manager[T]) access(ctx context.Context, v *T) {
	if m.onAccess != nil {
		m.onAccess(ctx, v)
	}
}

// insert caches v unless another object already holds id, and returns
// the object that ends up cached.
func (m *Manager[T]) insert(id string, v *T) *T {
	m.m.Lock()
	defer m.m.Unlock()

	if cur, ok := m.strong[id]; ok {
		return cur
	}
	if cur := m.weak.get(id); cur != nil {
		m.strong[id] = cur
		return cur
	}
	m.strong[id] = v
	m.weak.put(id, v)
	return v
}

// replace caches v under id and clears any tombstone on it.
func (m *Manager[T]) replace(id string, v *T) {
	m.m.Lock()
	defer m.m.Unlock()

	m.strong[id] = v
	m.weak.put(id, v)
	delete(m.tombstones, id)
}

// Set caches v under its id, replacing whatever object held it. A
// tombstone on the id is cleared.
func (m *Manager[T]) Set(v *T) error {
	id := m.class.IDOf(v)
	if id == "" {
		return fmt.Errorf("manager.Set: %s entity without id", m.class.Name())
	}
	m.replace(id, v)
	return nil
}

// Has reports whether id is cached, strongly or through a live weak
// reference. It never touches storage.
func (m *Manager[T]) Has(id string) bool {
	m.m.Lock()
	defer m.m.Unlock()

	if _, ok := m.strong[id]; ok {
		return true
	}
	return m.weak.get(id) != nil
}

// Exists reports whether id exists, from the cache when possible.
func (m *Manager[T]) Exists(ctx context.Context, id string) (bool, error) {
	if m.IsDeleted(id) {
		return false, nil
	}
	if m.Has(id) {
		return true, nil
	}
	return m.adapter.Exists(ctx, id)
}

// Preload loads id into the cache without waiting for the readiness gate.
func (m *Manager[T]) Preload(ctx context.Context, id string) error {
	if m.IsDeleted(id) {
		return worldstore.ErrNoSuchRecord
	}
	if m.cached(id) != nil {
		return nil
	}
	_, err := m.load(ctx, id)
	return err
}

// Evict drops id from the strong cache. The object stays reachable through
// the weak table while something else references it.
func (m *Manager[T]) Evict(id string) bool {
	m.m.Lock()
	defer m.m.Unlock()

	_, ok := m.strong[id]
	delete(m.strong, id)
	return ok
}

// Len returns the size of the strong cache.
func (m *Manager[T]) Len() int {
	m.m.Lock()
	defer m.m.Unlock()

	return len(m.strong)
}

// WeakLen returns the number of weak table entries not yet pruned.
func (m *Manager[T]) WeakLen() int {
	return m.weak.len()
}

// LoadAll reads every persisted entity and opens the readiness gate once
// the whole pass succeeded. With noDuplicates cached objects are returned
// instead of being rebuilt; without it every entity is rebuilt from
// storage and replaces the cached one. Tombstoned ids are skipped.
func (m *Manager[T]) LoadAll(ctx context.Context, noDuplicates bool) ([]*T, error) {
	var list []*T
	err := m.adapter.Scan(ctx, m.batchSize, func(id string, build BuildFunc[T]) error {
		if m.IsDeleted(id) {
			return nil
		}
		if noDuplicates {
			if v := m.cached(id); v != nil {
				list = append(list, v)
				return nil
			}
		}

		v, err := build(ctx)
		if errors.Is(err, worldstore.ErrNoSuchRecord) {
			return nil
		} else if err != nil {
			return err
		}
		if err := m.prepare(ctx, v); err != nil {
			return err
		}

		if noDuplicates {
			v = m.insert(id, v)
		} else {
			m.replace(id, v)
		}
		list = append(list, v)
		return nil
	})
	if err != nil {
		m.logf(ctx, "manager.LoadAll: %s err=%s", m.collection, err.Error())
		return nil, err
	}

	m.logf(ctx, "manager.LoadAll: %s loaded=%d", m.collection, len(list))
	m.MarkReady()
	return list, nil
}

// MarkDeleted records id as deleted. Get and Exists treat it as absent.
func (m *Manager[T]) MarkDeleted(id string) {
	m.m.Lock()
	defer m.m.Unlock()

	m.tombstones[id] = struct{}{}
}

// MarkCreated clears the tombstone of id.
func (m *Manager[T]) MarkCreated(id string) {
	m.m.Lock()
	defer m.m.Unlock()

	delete(m.tombstones, id)
}

func (m *Manager[T]) IsDeleted(id string) bool {
	m.m.Lock()
	defer m.m.Unlock()

	_, ok := m.tombstones[id]
	return ok
}

// record serializes v into the record persisted for it.
func (m *Manager[T]) record(ctx context.Context, v *T) (*worldstore.Record, error) {
	data, err := m.class.Serialize(ctx, v)
	if err != nil {
		return nil, err
	}
	return m.codec.ToRecord(m.collection, data)
}

// Commit persists v and caches it. Committing a deleted id creates it
// again. When v can't be serialized nothing is written and the error is
// returned.
func (m *Manager[T]) Commit(ctx context.Context, v *T) error {
	rec, err := m.record(ctx, v)
	if err != nil {
		m.logf(ctx, "manager.Commit: %s skipped err=%s", m.class.Name(), err.Error())
		return err
	}
	if _, err := m.client.FindByIDAndUpdate(ctx, rec.Key, rec, true); err != nil {
		return err
	}
	m.replace(rec.Key.ID, v)
	return nil
}

// Delete removes id from storage and from the cache, and tombstones it.
func (m *Manager[T]) Delete(ctx context.Context, id string) error {
	err := m.client.Delete(ctx, m.key(id))
	if err != nil && !errors.Is(err, worldstore.ErrNoSuchRecord) {
		return err
	}

	m.m.Lock()
	delete(m.strong, id)
	m.weak.forget(id)
	m.tombstones[id] = struct{}{}
	m.m.Unlock()

	return nil
}

// Flush persists every strongly cached entity in one batch. Entities that
// fail to serialize are logged and left out.
func (m *Manager[T]) Flush(ctx context.Context) error {
	m.m.Lock()
	list := make([]*T, 0, len(m.strong))
	for _, v := range m.strong {
		list = append(list, v)
	}
	m.m.Unlock()

	b := m.client.Batch()
	n := 0
	for _, v := range list {
		rec, err := m.record(ctx, v)
		if err != nil {
			m.logf(ctx, "manager.Flush: %s id=%s skipped err=%s", m.class.Name(), m.class.IDOf(v), err.Error())
			continue
		}
		b.Put(rec, nil)
		n++
	}
	if n == 0 {
		return nil
	}

	m.logf(ctx, "manager.Flush: %s put=%d", m.collection, n)
	return b.Exec(ctx)
}
