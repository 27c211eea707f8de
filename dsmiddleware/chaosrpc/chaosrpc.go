package chaosrpc

import (
	"errors"
	"math/rand"
	"sync"

	"go.mercari.io/worldstore"
)

// NOTE Please give me a pull request if You can make more chaos (within the Backend contract).

var _ worldstore.Middleware = &chaosHandler{}

// ErrChaos is the error raised instead of calling the next strategy.
var ErrChaos = errors.New("error from chaosrpc!!")

// New returns a middleware failing about one call in five.
func New(s rand.Source) worldstore.Middleware {
	return &chaosHandler{
		r: rand.New(s),
	}
}

type chaosHandler struct {
	m sync.Mutex
	r *rand.Rand
}

func (ch *chaosHandler) raiseError() error {
	ch.m.Lock()
	defer ch.m.Unlock()

	// Make an error with a 20% rate
	if ch.r.Intn(5) == 0 {
		return ErrChaos
	}

	return nil
}

func (ch *chaosHandler) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	if err := ch.raiseError(); err != nil {
		return nil, err
	}

	return info.Next.FindByID(info, key)
}

func (ch *chaosHandler) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	if err := ch.raiseError(); err != nil {
		return nil, err
	}

	return info.Next.Find(info, q)
}

func (ch *chaosHandler) Create(info *worldstore.MiddlewareInfo, rec *worldstore.Record) error {
	if err := ch.raiseError(); err != nil {
		return err
	}

	return info.Next.Create(info, rec)
}

func (ch *chaosHandler) FindByIDAndUpdate(info *worldstore.MiddlewareInfo, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	if err := ch.raiseError(); err != nil {
		return nil, err
	}

	return info.Next.FindByIDAndUpdate(info, key, rec, upsert)
}

func (ch *chaosHandler) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	if err := ch.raiseError(); err != nil {
		return false, err
	}

	return info.Next.Exists(info, key)
}

func (ch *chaosHandler) Delete(info *worldstore.MiddlewareInfo, key worldstore.Key) error {
	if err := ch.raiseError(); err != nil {
		return err
	}

	return info.Next.Delete(info, key)
}
