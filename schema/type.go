package schema

import (
	"context"
	"fmt"
	"reflect"
)

// Type tells the serializer how to encode and decode one field value.
type Type interface {
	encode(ctx context.Context, v reflect.Value) (interface{}, error)
	decode(ctx context.Context, raw interface{}, dst reflect.Value, parent interface{}) error
	plain(ctx context.Context, raw interface{}) (interface{}, error)
	String() string
}

// Primitive stores the value as is. Anything CBOR can represent works:
// numbers, strings, bools, []byte, time.Time, and maps or slices of those.
var Primitive Type = primitiveType{}

type primitiveType struct{}

func (primitiveType) String() string { return "primitive" }

func (primitiveType) encode(ctx context.Context, v reflect.Value) (interface{}, error) {
	return v.Interface(), nil
}

func (primitiveType) decode(ctx context.Context, raw interface{}, dst reflect.Value, parent interface{}) error {
	return convertValue(raw, dst)
}

func (primitiveType) plain(ctx context.Context, raw interface{}) (interface{}, error) {
	return plainValue(raw)
}

// Nested encodes a struct (or pointer to struct) field with its own class.
func Nested(c *Class) Type {
	return nestedType{c}
}

type nestedType struct {
	c *Class
}

func (t nestedType) String() string { return "nested(" + t.c.name + ")" }

func (t nestedType) encode(ctx context.Context, v reflect.Value) (interface{}, error) {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return t.c.serializeValue(ctx, v)
}

func (t nestedType) decode(ctx context.Context, raw interface{}, dst reflect.Value, parent interface{}) error {
	data, err := asData(raw)
	if err != nil {
		return err
	}
	return decodeInstance(ctx, t.c, data, dst, parent)
}

func (t nestedType) plain(ctx context.Context, raw interface{}) (interface{}, error) {
	data, err := asData(raw)
	if err != nil {
		return nil, err
	}
	return t.c.Plain(ctx, data)
}

// decodeInstance fills dst, which may be a struct, a pointer to struct or an
// interface, with an instance of c.
func decodeInstance(ctx context.Context, c *Class, data *Data, dst reflect.Value, parent interface{}) error {
	switch dst.Kind() {
	case reflect.Struct:
		if dst.Type() != c.typ {
			return fmt.Errorf("schema: cannot decode %s into %v", c.name, dst.Type())
		}
		c.deserializeValue(ctx, data, dst, parent)
		return nil
	case reflect.Ptr, reflect.Interface:
		ptr := reflect.New(c.typ)
		if !ptr.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("schema: cannot decode %s into %v", c.name, dst.Type())
		}
		c.deserializeValue(ctx, data, ptr.Elem(), parent)
		dst.Set(ptr)
		return nil
	}
	return fmt.Errorf("schema: cannot decode %s into %v", c.name, dst.Type())
}

// ArrayOf encodes a slice whose elements are encoded by elem.
func ArrayOf(elem Type) Type {
	return arrayType{elem}
}

type arrayType struct {
	elem Type
}

func (t arrayType) String() string { return "array(" + t.elem.String() + ")" }

func (t arrayType) encode(ctx context.Context, v reflect.Value) (interface{}, error) {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("schema: %v is not a slice", v.Type())
	}
	list := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		ev := v.Index(i)
		if isNil(ev) {
			continue
		}
		enc, err := t.elem.encode(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		list[i] = enc
	}
	return list, nil
}

// decode keeps the elements it can decode; the first failure is returned
// after the rest of the slice has been filled.
func (t arrayType) decode(ctx context.Context, raw interface{}, dst reflect.Value, parent interface{}) error {
	if dst.Kind() != reflect.Slice {
		return fmt.Errorf("schema: cannot decode array into %v", dst.Type())
	}
	list, err := asList(raw)
	if err != nil {
		return err
	}

	out := reflect.MakeSlice(dst.Type(), 0, len(list))
	var firstErr error
	for i, elem := range list {
		ev := reflect.New(dst.Type().Elem()).Elem()
		if elem != nil {
			if err := t.elem.decode(ctx, elem, ev, parent); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("index %d: %w", i, err)
				}
				continue
			}
		}
		out = reflect.Append(out, ev)
	}
	dst.Set(out)
	return firstErr
}

func (t arrayType) plain(ctx context.Context, raw interface{}) (interface{}, error) {
	list, err := asList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(list))
	for i, elem := range list {
		if elem == nil {
			continue
		}
		out[i], err = t.elem.plain(ctx, elem)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
	}
	return out, nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return !v.IsValid()
}
