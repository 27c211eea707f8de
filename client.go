package worldstore

import (
	"context"
	"sync"
)

var _ Client = (*client)(nil)
var _ Middleware = (*middlewareBridge)(nil)

// NewClient puts backend behind a middleware chain.
func NewClient(backend Backend) Client {
	return &client{backend: backend}
}

type client struct {
	backend Backend

	m   sync.RWMutex
	mws []Middleware
}

func (c *client) AppendMiddleware(mw Middleware) {
	c.m.Lock()
	defer c.m.Unlock()

	mws := make([]Middleware, 0, len(c.mws)+1)
	mws = append(mws, c.mws...)
	c.mws = append(mws, mw)
}

func (c *client) RemoveMiddleware(mw Middleware) bool {
	c.m.Lock()
	defer c.m.Unlock()

	list := make([]Middleware, 0, len(c.mws))
	found := false
	for _, old := range c.mws {
		if old == mw {
			found = true
			continue
		}
		list = append(list, old)
	}
	c.mws = list

	return found
}

func (c *client) chain(ctx context.Context) (*MiddlewareInfo, Middleware) {
	c.m.RLock()
	mws := c.mws
	c.m.RUnlock()

	b := &middlewareBridge{backend: c.backend, mws: mws}
	return &MiddlewareInfo{Context: ctx, Client: c, Next: b}, b
}

func (c *client) FindByID(ctx context.Context, key Key) (*Record, error) {
	info, b := c.chain(ctx)
	return b.FindByID(info, key)
}

func (c *client) Find(ctx context.Context, q *Query) ([]*Record, error) {
	info, b := c.chain(ctx)
	return b.Find(info, q)
}

func (c *client) Create(ctx context.Context, rec *Record) error {
	info, b := c.chain(ctx)
	return b.Create(info, rec)
}

func (c *client) FindByIDAndUpdate(ctx context.Context, key Key, rec *Record, upsert bool) (*Record, error) {
	info, b := c.chain(ctx)
	return b.FindByIDAndUpdate(info, key, rec, upsert)
}

func (c *client) Exists(ctx context.Context, key Key) (bool, error) {
	info, b := c.chain(ctx)
	return b.Exists(info, key)
}

func (c *client) Delete(ctx context.Context, key Key) error {
	info, b := c.chain(ctx)
	return b.Delete(info, key)
}

func (c *client) Close() error {
	return c.backend.Close()
}

func (c *client) Batch() *Batch {
	return &Batch{Client: c}
}

// middlewareBridge walks the middleware list; the backend is the tail.
type middlewareBridge struct {
	backend Backend
	mws     []Middleware
}

func (b *middlewareBridge) next(info *MiddlewareInfo) (Middleware, *MiddlewareInfo) {
	current := b.mws[0]
	left := &middlewareBridge{backend: b.backend, mws: b.mws[1:]}
	return current, &MiddlewareInfo{Context: info.Context, Client: info.Client, Next: left}
}

func (b *middlewareBridge) FindByID(info *MiddlewareInfo, key Key) (*Record, error) {
	if len(b.mws) == 0 {
		return b.backend.FindByID(info.Context, key)
	}
	current, left := b.next(info)
	return current.FindByID(left, key)
}

func (b *middlewareBridge) Find(info *MiddlewareInfo, q *Query) ([]*Record, error) {
	if len(b.mws) == 0 {
		return b.backend.Find(info.Context, q)
	}
	current, left := b.next(info)
	return current.Find(left, q)
}

func (b *middlewareBridge) Create(info *MiddlewareInfo, rec *Record) error {
	if len(b.mws) == 0 {
		return b.backend.Create(info.Context, rec)
	}
	current, left := b.next(info)
	return current.Create(left, rec)
}

func (b *middlewareBridge) FindByIDAndUpdate(info *MiddlewareInfo, key Key, rec *Record, upsert bool) (*Record, error) {
	if len(b.mws) == 0 {
		return b.backend.FindByIDAndUpdate(info.Context, key, rec, upsert)
	}
	current, left := b.next(info)
	return current.FindByIDAndUpdate(left, key, rec, upsert)
}

func (b *middlewareBridge) Exists(info *MiddlewareInfo, key Key) (bool, error) {
	if len(b.mws) == 0 {
		return b.backend.Exists(info.Context, key)
	}
	current, left := b.next(info)
	return current.Exists(left, key)
}

func (b *middlewareBridge) Delete(info *MiddlewareInfo, key Key) error {
	if len(b.mws) == 0 {
		return b.backend.Delete(info.Context, key)
	}
	current, left := b.next(info)
	return current.Delete(left, key)
}
