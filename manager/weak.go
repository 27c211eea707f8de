package manager

import (
	"runtime"
	"sync"
	"weak"
)

// weakTable remembers entities without keeping them alive. An entry is
// pruned once the collector has reclaimed its target.
type weakTable[T any] struct {
	m    sync.Mutex
	refs map[string]weak.Pointer[T]
}

func newWeakTable[T any]() *weakTable[T] {
	return &weakTable[T]{refs: make(map[string]weak.Pointer[T])}
}

func (w *weakTable[T]) put(id string, v *T) {
	wp := weak.Make(v)

	w.m.Lock()
	prev, ok := w.refs[id]
	w.refs[id] = wp
	w.m.Unlock()

	if ok && prev == wp {
		return
	}
	runtime.AddCleanup(v, w.collected, id)
}

// collected runs after a target became unreachable. The id may have been
// rebound to a newer object meanwhile, so only a dead entry is removed.
func (w *weakTable[T]) collected(id string) {
	w.m.Lock()
	defer w.m.Unlock()

	if wp, ok := w.refs[id]; ok && wp.Value() == nil {
		delete(w.refs, id)
	}
}

func (w *weakTable[T]) get(id string) *T {
	w.m.Lock()
	defer w.m.Unlock()

	wp, ok := w.refs[id]
	if !ok {
		return nil
	}
	v := wp.Value()
	if v == nil {
		delete(w.refs, id)
	}
	return v
}

func (w *weakTable[T]) forget(id string) {
	w.m.Lock()
	defer w.m.Unlock()

	delete(w.refs, id)
}

func (w *weakTable[T]) len() int {
	w.m.Lock()
	defer w.m.Unlock()

	return len(w.refs)
}
