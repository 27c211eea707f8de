package manager

import (
	"sort"
	"sync"
)

// Registry resolves the code-defined template of a hybrid entity.
type Registry[T any] interface {
	// Lookup returns the constructor registered for id.
	Lookup(id string) (func() *T, bool)
	// IDs returns every registered id.
	IDs() []string
}

var _ Registry[struct{}] = (*TemplateRegistry[struct{}])(nil)

// TemplateRegistry is a Registry filled with Register.
type TemplateRegistry[T any] struct {
	m         sync.RWMutex
	templates map[string]func() *T
}

func NewTemplateRegistry[T any]() *TemplateRegistry[T] {
	return &TemplateRegistry[T]{templates: make(map[string]func() *T)}
}

// Register binds id to newFn, replacing an earlier registration.
func (r *TemplateRegistry[T]) Register(id string, newFn func() *T) {
	r.m.Lock()
	defer r.m.Unlock()

	r.templates[id] = newFn
}

func (r *TemplateRegistry[T]) Lookup(id string) (func() *T, bool) {
	r.m.RLock()
	defer r.m.RUnlock()

	newFn, ok := r.templates[id]
	return newFn, ok
}

// IDs returns the registered ids in order.
func (r *TemplateRegistry[T]) IDs() []string {
	r.m.RLock()
	defer r.m.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
