package schema

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"go.mercari.io/worldstore"
)

// DefaultLogf is used by classes defined without WithLogger.
var DefaultLogf worldstore.Logf = worldstore.NopLogf

// Class describes how one struct type is serialized across versions.
type Class struct {
	name          string
	typ           reflect.Type
	version       int
	shapes        map[int]Shape
	versions      []int
	migrations    []Migration
	idField       string
	onDeserialize func(ctx context.Context, instance, parent interface{}) error
	logf          worldstore.Logf
	integrityHook func(ctx context.Context, e *IntegrityError)
}

// Define builds the Class of struct type T. The current version is the
// highest declared one.
func Define[T any](name string, opts ...Option) (*Class, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s: %v is not a struct", name, typ)
	}

	s := &settings{}
	for _, opt := range opts {
		opt.Apply(s)
	}
	if len(s.versions) == 0 {
		return nil, fmt.Errorf("schema: %s: no version declared", name)
	}

	c := &Class{
		name:          name,
		typ:           typ,
		shapes:        make(map[int]Shape, len(s.versions)),
		migrations:    s.migrations,
		idField:       s.idField,
		onDeserialize: s.onDeserialize,
		logf:          s.logf,
		integrityHook: s.integrityHook,
	}
	if c.logf == nil {
		c.logf = func(ctx context.Context, format string, args ...interface{}) {
			DefaultLogf(ctx, format, args...)
		}
	}

	defs := append([]versionDef(nil), s.versions...)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].version < defs[j].version })
	for _, def := range defs {
		if def.version < 1 {
			return nil, fmt.Errorf("schema: %s: versions start at 1, got %d", name, def.version)
		}
		if _, ok := c.shapes[def.version]; ok {
			return nil, fmt.Errorf("schema: %s: version %d declared twice", name, def.version)
		}
		var shape Shape
		if def.base != 0 {
			base, ok := c.shapes[def.base]
			if !ok || def.version <= def.base {
				return nil, fmt.Errorf("schema: %s: version %d extends undeclared or later version %d", name, def.version, def.base)
			}
			shape = base.clone()
			for _, drop := range def.drop {
				delete(shape, drop)
			}
			for fieldName, f := range def.shape {
				shape[fieldName] = f
			}
		} else {
			shape = def.shape.clone()
		}
		for fieldName, f := range shape {
			if f.Type == nil {
				f.Type = Primitive
				shape[fieldName] = f
			}
		}
		if err := shape.validate(); err != nil {
			return nil, fmt.Errorf("schema: %s v%d: %w", name, def.version, err)
		}
		c.shapes[def.version] = shape
		c.versions = append(c.versions, def.version)
	}
	c.version = c.versions[len(c.versions)-1]

	for fieldName := range c.shapes[c.version] {
		sf, ok := typ.FieldByName(fieldName)
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("schema: %s: no exported field %s in %v", name, fieldName, typ)
		}
	}
	if c.idField != "" {
		sf, ok := typ.FieldByName(c.idField)
		if !ok || sf.Type.Kind() != reflect.String {
			return nil, fmt.Errorf("schema: %s: id field %s must be a string field of %v", name, c.idField, typ)
		}
	}

	return c, nil
}

// MustDefine is like Define but panics on error. It simplifies safe
// initialization of package level class variables.
func MustDefine[T any](name string, opts ...Option) *Class {
	c, err := Define[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Class) Name() string { return c.name }

// Version returns the current version.
func (c *Class) Version() int { return c.version }

// Type returns the struct type described by c.
func (c *Class) Type() reflect.Type { return c.typ }

// Shape returns the shape declared for version v.
func (c *Class) Shape(v int) (Shape, bool) {
	s, ok := c.shapes[v]
	return s, ok
}

// New returns a pointer to a new zero instance.
func (c *Class) New() interface{} {
	return reflect.New(c.typ).Interface()
}

// IDOf returns the value of the id field of v, or "" when c has none.
func (c *Class) IDOf(v interface{}) string {
	if c.idField == "" {
		return ""
	}
	rv, err := c.structValue(v)
	if err != nil {
		return ""
	}
	return rv.FieldByName(c.idField).String()
}

// SetID stores id into the id field of v.
func (c *Class) SetID(v interface{}, id string) error {
	if c.idField == "" {
		return fmt.Errorf("schema: %s has no id field", c.name)
	}
	rv, err := c.structValue(v)
	if err != nil {
		return err
	}
	rv.FieldByName(c.idField).SetString(id)
	return nil
}

// Owns reports whether v is an instance of c.
func (c *Class) Owns(v interface{}) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Type() == c.typ
}

// structValue returns the addressable struct behind v.
func (c *Class) structValue(v interface{}) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("schema: %s: expected non-nil *%v, got %T", c.name, c.typ, v)
	}
	rv = rv.Elem()
	if rv.Type() != c.typ {
		return reflect.Value{}, fmt.Errorf("schema: %s: expected *%v, got %T", c.name, c.typ, v)
	}
	return rv, nil
}

// shapeFor resolves the shape of a stored version. Unknown versions fall
// back to the closest lower declared version, or the current one.
func (c *Class) shapeFor(v int) (Shape, int, bool) {
	if s, ok := c.shapes[v]; ok {
		return s, v, true
	}
	resolved := c.version
	for _, declared := range c.versions {
		if declared <= v {
			resolved = declared
		}
	}
	return c.shapes[resolved], resolved, false
}

func (c *Class) report(ctx context.Context, e *IntegrityError) {
	c.logf(ctx, "schema.%s: data integrity: %s", c.name, e.Error())
	if c.integrityHook != nil {
		c.integrityHook(ctx, e)
	}
}
