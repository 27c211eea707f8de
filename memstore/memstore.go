// Package memstore is an in-process worldstore.Backend intended for tests,
// examples and single-node tools.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.mercari.io/worldstore"
)

var _ worldstore.Backend = (*Store)(nil)

type Store struct {
	m       sync.RWMutex
	records map[worldstore.Key]worldstore.Record

	// Calls counts every backend call, handy for asserting cache hits.
	Calls atomic.Int64
}

func New() *Store {
	return &Store{records: make(map[worldstore.Key]worldstore.Record)}
}

// NewClient returns a worldstore.Client backed by a fresh Store.
func NewClient() (worldstore.Client, *Store) {
	s := New()
	return worldstore.NewClient(s), s
}

func clone(rec worldstore.Record) *worldstore.Record {
	out := rec
	if rec.D != nil {
		out.D = append([]byte(nil), rec.D...)
	}
	return &out
}

func (s *Store) FindByID(ctx context.Context, key worldstore.Key) (*worldstore.Record, error) {
	s.Calls.Add(1)
	s.m.RLock()
	defer s.m.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, worldstore.ErrNoSuchRecord
	}
	return clone(rec), nil
}

func (s *Store) Find(ctx context.Context, q *worldstore.Query) ([]*worldstore.Record, error) {
	s.Calls.Add(1)
	s.m.RLock()
	defer s.m.RUnlock()

	var list []*worldstore.Record
	for _, rec := range s.records {
		if q.Match(&rec) {
			list = append(list, clone(rec))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Key.ID < list[j].Key.ID
	})
	if 0 < q.Limit && q.Limit < len(list) {
		list = list[:q.Limit]
	}
	return list, nil
}

func (s *Store) Create(ctx context.Context, rec *worldstore.Record) error {
	s.Calls.Add(1)
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.records[rec.Key]; ok {
		return worldstore.ErrRecordExists
	}
	s.records[rec.Key] = *clone(*rec)
	return nil
}

func (s *Store) FindByIDAndUpdate(ctx context.Context, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	s.Calls.Add(1)
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.records[key]; !ok && !upsert {
		return nil, worldstore.ErrNoSuchRecord
	}
	stored := *clone(*rec)
	stored.Key = key
	s.records[key] = stored
	return clone(stored), nil
}

func (s *Store) Exists(ctx context.Context, key worldstore.Key) (bool, error) {
	s.Calls.Add(1)
	s.m.RLock()
	defer s.m.RUnlock()

	_, ok := s.records[key]
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, key worldstore.Key) error {
	s.Calls.Add(1)
	s.m.Lock()
	defer s.m.Unlock()

	delete(s.records, key)
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.m.RLock()
	defer s.m.RUnlock()
	return len(s.records)
}
