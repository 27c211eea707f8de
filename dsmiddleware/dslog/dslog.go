package dslog

import (
	"context"
	"strings"
	"sync"

	"go.mercari.io/worldstore"
)

var _ worldstore.Middleware = &logger{}

// NewLogger returns a middleware logging every store operation, numbered
// so a request and its result can be paired.
func NewLogger(prefix string, logf func(ctx context.Context, format string, args ...interface{})) worldstore.Middleware {
	return &logger{Prefix: prefix, Logf: logf, counter: 1}
}

type logger struct {
	Prefix string
	Logf   func(ctx context.Context, format string, args ...interface{})

	m       sync.Mutex
	counter int
}

func (l *logger) next() int {
	l.m.Lock()
	defer l.m.Unlock()

	cnt := l.counter
	l.counter += 1
	return cnt
}

func (l *logger) RecordsToString(recs []*worldstore.Record) string {
	keyStrings := make([]string, 0, len(recs))
	for _, rec := range recs {
		keyStrings = append(keyStrings, rec.Key.String())
	}

	return strings.Join(keyStrings, ", ")
}

func (l *logger) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	cnt := l.next()

	l.Logf(info.Context, l.Prefix+"FindByID #%d, key=%s", cnt, key.String())

	rec, err := info.Next.FindByID(info, key)

	if err == nil {
		l.Logf(info.Context, l.Prefix+"FindByID #%d, v=%d, len(d)=%d", cnt, rec.V, len(rec.D))
	} else {
		l.Logf(info.Context, l.Prefix+"FindByID #%d, err=%s", cnt, err.Error())
	}

	return rec, err
}

func (l *logger) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	cnt := l.next()

	l.Logf(info.Context, l.Prefix+"Find #%d, collection=%s, len(ids)=%d, startAfter=%q, limit=%d, versionBelow=%d", cnt, q.Collection, len(q.IDs), q.StartAfter, q.Limit, q.VersionBelow)

	recs, err := info.Next.Find(info, q)

	if err == nil {
		l.Logf(info.Context, l.Prefix+"Find #%d, len(recs)=%d, keys=[%s]", cnt, len(recs), l.RecordsToString(recs))
	} else {
		l.Logf(info.Context, l.Prefix+"Find #%d, err=%s", cnt, err.Error())
	}

	return recs, err
}

func (l *logger) Create(info *worldstore.MiddlewareInfo, rec *worldstore.Record) error {
	cnt := l.next()

	l.Logf(info.Context, l.Prefix+"Create #%d, key=%s, v=%d", cnt, rec.Key.String(), rec.V)

	err := info.Next.Create(info, rec)

	if err != nil {
		l.Logf(info.Context, l.Prefix+"Create #%d, err=%s", cnt, err.Error())
	}

	return err
}

func (l *logger) FindByIDAndUpdate(info *worldstore.MiddlewareInfo, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	cnt := l.next()

	l.Logf(info.Context, l.Prefix+"FindByIDAndUpdate #%d, key=%s, v=%d, upsert=%t", cnt, key.String(), rec.V, upsert)

	stored, err := info.Next.FindByIDAndUpdate(info, key, rec, upsert)

	if err != nil {
		l.Logf(info.Context, l.Prefix+"FindByIDAndUpdate #%d, err=%s", cnt, err.Error())
	}

	return stored, err
}

func (l *logger) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	cnt := l.next()

	l.Logf(info.Context, l.Prefix+"Exists #%d, key=%s", cnt, key.String())

	ok, err := info.Next.Exists(info, key)

	if err == nil {
		l.Logf(info.Context, l.Prefix+"Exists #%d, exists=%t", cnt, ok)
	} else {
		l.Logf(info.Context, l.Prefix+"Exists #%d, err=%s", cnt, err.Error())
	}

	return ok, err
}

func (l *logger) Delete(info *worldstore.MiddlewareInfo, key worldstore.Key) error {
	cnt := l.next()

	l.Logf(info.Context, l.Prefix+"Delete #%d, key=%s", cnt, key.String())

	err := info.Next.Delete(info, key)

	if err != nil {
		l.Logf(info.Context, l.Prefix+"Delete #%d, err=%s", cnt, err.Error())
	}

	return err
}
