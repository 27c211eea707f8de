package noop

import "go.mercari.io/worldstore"

var _ worldstore.Middleware = &noop{}

// New no-op middleware creates and returns.
// Embed it to override only some of the operations.
func New() worldstore.Middleware {
	return &noop{}
}

type noop struct {
}

func (*noop) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	return info.Next.FindByID(info, key)
}

func (*noop) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	return info.Next.Find(info, q)
}

func (*noop) Create(info *worldstore.MiddlewareInfo, rec *worldstore.Record) error {
	return info.Next.Create(info, rec)
}

func (*noop) FindByIDAndUpdate(info *worldstore.MiddlewareInfo, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	return info.Next.FindByIDAndUpdate(info, key, rec, upsert)
}

func (*noop) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	return info.Next.Exists(info, key)
}

func (*noop) Delete(info *worldstore.MiddlewareInfo, key worldstore.Key) error {
	return info.Next.Delete(info, key)
}
