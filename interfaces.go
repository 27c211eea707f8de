package worldstore

import (
	"context"
)

// Logf is the logging hook accepted by every component in this module.
type Logf func(ctx context.Context, format string, args ...interface{})

// NopLogf discards everything.
func NopLogf(ctx context.Context, format string, args ...interface{}) {}

// Backend is a document-oriented store. Implementations live in
// memstore, sqlitestore, gormstore, redisstore and clouddatastore.
type Backend interface {
	// FindByID returns ErrNoSuchRecord when the record is absent.
	FindByID(ctx context.Context, key Key) (*Record, error)
	// Find returns matching records ordered by id.
	Find(ctx context.Context, q *Query) ([]*Record, error)
	// Create returns ErrRecordExists when the key is already taken.
	Create(ctx context.Context, rec *Record) error
	// FindByIDAndUpdate replaces the record stored under key. Without upsert a
	// missing record yields ErrNoSuchRecord.
	FindByIDAndUpdate(ctx context.Context, key Key, rec *Record, upsert bool) (*Record, error)
	Exists(ctx context.Context, key Key) (bool, error)
	Delete(ctx context.Context, key Key) error
	Close() error
}

type Client interface {
	FindByID(ctx context.Context, key Key) (*Record, error)
	Find(ctx context.Context, q *Query) ([]*Record, error)
	Create(ctx context.Context, rec *Record) error
	FindByIDAndUpdate(ctx context.Context, key Key, rec *Record, upsert bool) (*Record, error)
	Exists(ctx context.Context, key Key) (bool, error)
	Delete(ctx context.Context, key Key) error
	Close() error

	Batch() *Batch
	AppendMiddleware(middleware Middleware) // NOTE First-In First-Apply
	RemoveMiddleware(middleware Middleware) bool
}

// Record is the only externally durable shape: {_id, v, d}.
type Record struct {
	Key Key
	V   int
	D   []byte
}

// Query is a find(filter). Zero fields don't constrain the result.
type Query struct {
	Collection string
	// IDs restricts the result to the given ids.
	IDs []string
	// StartAfter skips every id <= StartAfter, for keyset paging.
	StartAfter string
	Limit      int
	// VersionBelow keeps only records with V < VersionBelow.
	VersionBelow int
}

// Match reports whether rec satisfies every constraint of q except Limit.
func (q *Query) Match(rec *Record) bool {
	if rec.Key.Collection != q.Collection {
		return false
	}
	if q.StartAfter != "" && rec.Key.ID <= q.StartAfter {
		return false
	}
	if 0 < q.VersionBelow && q.VersionBelow <= rec.V {
		return false
	}
	if len(q.IDs) != 0 {
		for _, id := range q.IDs {
			if id == rec.Key.ID {
				return true
			}
		}
		return false
	}
	return true
}

type MiddlewareInfo struct {
	Context context.Context
	Client  Client
	Next    Middleware
}

type Middleware interface {
	FindByID(info *MiddlewareInfo, key Key) (*Record, error)
	Find(info *MiddlewareInfo, q *Query) ([]*Record, error)
	Create(info *MiddlewareInfo, rec *Record) error
	FindByIDAndUpdate(info *MiddlewareInfo, key Key, rec *Record, upsert bool) (*Record, error)
	Exists(info *MiddlewareInfo, key Key) (bool, error)
	Delete(info *MiddlewareInfo, key Key) error
}
