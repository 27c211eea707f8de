package merge

import (
	"sort"
	"strings"
)

// Binding declares the concrete type built for one property and the
// bindings of the properties nested under it.
type Binding struct {
	// New returns a pointer to a fresh instance.
	New func() interface{}
	// Pick chooses the constructor from the data itself, for properties
	// holding several concrete types. It takes precedence over New.
	Pick   func(src map[string]interface{}) func() interface{}
	Fields ClassMap
}

func (b Binding) bound() bool {
	return b.New != nil || b.Pick != nil
}

// ClassMap binds property names of one level to the types reconstructed
// for them. Arrays use the binding for every element.
//
// Fields with a concrete Go type (a *Stats, a []Item) are rebuilt from
// their static type and need no binding. Bindings matter where the
// destination is an interface.
type ClassMap map[string]Binding

// Bind returns a ClassMap with one binding.
func Bind(name string, newFn func() interface{}, fields ClassMap) ClassMap {
	return ClassMap{name: {New: newFn, Fields: fields}}
}

// Flat builds a ClassMap tree from dotted paths: {"a": A, "a.b": B}
// reconstructs B under property b of every A.
func Flat(paths map[string]func() interface{}) ClassMap {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	// parents first
	sort.Slice(keys, func(i, j int) bool {
		return strings.Count(keys[i], ".") < strings.Count(keys[j], ".")
	})

	root := ClassMap{}
	for _, k := range keys {
		parts := strings.Split(k, ".")
		level := root
		for _, p := range parts[:len(parts)-1] {
			b := level[p]
			if b.Fields == nil {
				b.Fields = ClassMap{}
				level[p] = b
			}
			level = b.Fields
		}
		last := parts[len(parts)-1]
		b := level[last]
		b.New = paths[k]
		level[last] = b
	}
	return root
}

func (cm ClassMap) lookup(name string) (Binding, bool) {
	if cm == nil {
		return Binding{}, false
	}
	b, ok := cm[name]
	return b, ok
}

// scope returns the bindings nested under name.
func (cm ClassMap) scope(name string) ClassMap {
	b, _ := cm.lookup(name)
	return b.Fields
}
