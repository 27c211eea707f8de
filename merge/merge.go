// Package merge lays plain decoded data (maps, slices, scalars) over typed
// Go values.
//
// The destination type drives the reconstruction: a nested map merged into
// a *Stats field fills that Stats, a list merged into a []Item builds new
// Items. A ClassMap supplies the concrete type wherever the destination is
// an interface.
package merge

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
)

// Hard merges src onto dst. Every property present in src overwrites the
// one in dst, nested objects are merged recursively and arrays are
// rebuilt. dst is a pointer to a struct or a map with string keys.
func Hard(dst interface{}, src map[string]interface{}, cm ClassMap) error {
	return merger{}.into(dst, src, cm)
}

// Soft is like Hard but skips source values that are absent, nil or zero,
// so partial data can be layered over defaults.
func Soft(dst interface{}, src map[string]interface{}, cm ClassMap) error {
	return merger{soft: true}.into(dst, src, cm)
}

type merger struct {
	soft bool
}

func (m merger) into(dst interface{}, src map[string]interface{}, cm ClassMap) error {
	rv := reflect.ValueOf(dst)
	switch {
	case rv.Kind() == reflect.Map && !rv.IsNil():
		return m.object(rv, src, cm)
	case rv.Kind() == reflect.Ptr && !rv.IsNil():
		return m.nested(rv, src, cm)
	}
	return fmt.Errorf("merge: destination must be a non-nil pointer or map, got %T", dst)
}

// object merges src into v, a struct or a map keyed by string.
func (m merger) object(v reflect.Value, src map[string]interface{}, cm ClassMap) error {
	switch v.Kind() {
	case reflect.Struct:
		for _, name := range sortedKeys(src) {
			f := v.FieldByName(name)
			if !f.IsValid() || !f.CanSet() {
				continue
			}
			if err := m.property(f, src[name], name, cm); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("merge: map key must be a string, got %v", v.Type().Key())
		}
		for _, name := range sortedKeys(src) {
			key := reflect.ValueOf(name).Convert(v.Type().Key())
			slot := reflect.New(v.Type().Elem()).Elem()
			if cur := v.MapIndex(key); cur.IsValid() {
				slot.Set(cur)
			}
			if m.soft && isFalsy(src[name]) {
				continue
			}
			if err := m.property(slot, src[name], name, cm); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			v.SetMapIndex(key, slot)
		}
		return nil
	}
	return fmt.Errorf("merge: cannot merge an object into %v", v.Type())
}

func (m merger) property(dst reflect.Value, raw interface{}, name string, cm ClassMap) error {
	if m.soft && isFalsy(raw) {
		return nil
	}
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	binding, bound := cm.lookup(name)
	sub := cm.scope(name)

	switch src := raw.(type) {
	case []interface{}:
		return m.array(dst, src, binding, bound, sub)
	case map[string]interface{}:
		if bound && binding.bound() {
			return m.fresh(dst, src, binding, sub)
		}
		return m.nested(dst, src, sub)
	}
	return assign(dst, reflect.ValueOf(raw))
}

// fresh builds a new instance from binding, merges src into it and stores
// it into dst.
func (m merger) fresh(dst reflect.Value, src map[string]interface{}, binding Binding, sub ClassMap) error {
	newFn := binding.New
	if binding.Pick != nil {
		newFn = binding.Pick(src)
	}
	if newFn == nil {
		return fmt.Errorf("merge: no type bound for %v", sortedKeys(src))
	}
	inst := reflect.ValueOf(newFn())
	if err := m.nested(inst, src, sub); err != nil {
		return err
	}
	return assign(dst, inst)
}

// nested merges src into the object held by dst, allocating it when
// needed.
func (m merger) nested(dst reflect.Value, src map[string]interface{}, cm ClassMap) error {
	switch dst.Kind() {
	case reflect.Struct:
		return m.object(dst, src, cm)

	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return m.nested(dst.Elem(), src, cm)

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		return m.object(dst, src, cm)

	case reflect.Interface:
		if !dst.IsNil() {
			cur := dst.Elem()
			switch cur.Kind() {
			case reflect.Ptr, reflect.Map:
				if !cur.IsNil() {
					return m.nested(cur, src, cm)
				}
			case reflect.Struct:
				cp := reflect.New(cur.Type()).Elem()
				cp.Set(cur)
				if err := m.object(cp, src, cm); err != nil {
					return err
				}
				dst.Set(cp)
				return nil
			}
		}
		out := make(map[string]interface{}, len(src))
		if err := m.object(reflect.ValueOf(out), src, cm); err != nil {
			return err
		}
		return assign(dst, reflect.ValueOf(out))
	}
	return fmt.Errorf("merge: cannot merge an object into %v", dst.Type())
}

// array rebuilds dst from src, element by element.
func (m merger) array(dst reflect.Value, src []interface{}, binding Binding, bound bool, sub ClassMap) error {
	if dst.Kind() == reflect.Interface {
		list := reflect.New(reflect.TypeOf([]interface{}(nil))).Elem()
		if err := m.array(list, src, binding, bound, sub); err != nil {
			return err
		}
		dst.Set(list)
		return nil
	}
	if dst.Kind() != reflect.Slice {
		return fmt.Errorf("merge: cannot merge an array into %v", dst.Type())
	}

	out := reflect.MakeSlice(dst.Type(), 0, len(src))
	for i, elem := range src {
		slot := reflect.New(dst.Type().Elem()).Elem()
		var err error
		switch e := elem.(type) {
		case nil:
		case map[string]interface{}:
			if bound && binding.bound() {
				err = m.fresh(slot, e, binding, sub)
			} else {
				err = m.nested(slot, e, sub)
			}
		case []interface{}:
			err = m.array(slot, e, Binding{}, false, sub)
		default:
			err = assign(slot, reflect.ValueOf(e))
		}
		if err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
		out = reflect.Append(out, slot)
	}
	dst.Set(out)
	return nil
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func assign(dst, v reflect.Value) error {
	if !v.IsValid() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if v.Type().AssignableTo(dst.Type()) {
		dst.Set(v)
		return nil
	}
	if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type().AssignableTo(dst.Type()) {
		dst.Set(v.Elem())
		return nil
	}
	if dst.Kind() == reflect.Ptr && v.Type().AssignableTo(dst.Type().Elem()) {
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(v)
		dst.Set(p)
		return nil
	}
	if isNumber(v.Kind()) && isNumber(dst.Kind()) {
		dst.Set(v.Convert(dst.Type()))
		return nil
	}
	if v.Kind() == reflect.String {
		if dst.CanAddr() && dst.Addr().Type().Implements(textUnmarshalerType) {
			return dst.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(v.String()))
		}
		if dst.Kind() == reflect.String {
			dst.SetString(v.String())
			return nil
		}
	}
	if v.Kind() == dst.Kind() && v.Type().ConvertibleTo(dst.Type()) {
		dst.Set(v.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("merge: cannot assign %v to %v", v.Type(), dst.Type())
}

func isFalsy(raw interface{}) bool {
	if raw == nil {
		return true
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return rv.IsZero()
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
