package schema

import (
	"context"
	"fmt"
	"reflect"
)

// VariantKey holds the variant tag of a tagged union element in the output
// of Plain. No exported struct field can be named like it.
const VariantKey = "_variant"

// Resolver picks the concrete class of a dynamically typed value.
type Resolver interface {
	// ClassOf returns the class used to encode v.
	ClassOf(v reflect.Value) (*Class, error)
	// Resolve returns the class used to decode raw.
	Resolve(ctx context.Context, raw *Data) (*Class, error)
}

// Dynamic resolves the class per value. It is typically used as the element
// type of an array holding several concrete types.
func Dynamic(r Resolver) Type {
	return dynamicType{r}
}

type dynamicType struct {
	r Resolver
}

func (t dynamicType) String() string { return "dynamic" }

func (t dynamicType) encode(ctx context.Context, v reflect.Value) (interface{}, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	c, err := t.r.ClassOf(v)
	if err != nil {
		return nil, err
	}
	data, err := c.serializeValue(ctx, v)
	if err != nil {
		return nil, err
	}
	if tagger, ok := t.r.(interface{ tag(*Class, *Data) }); ok {
		tagger.tag(c, data)
	}
	return data, nil
}

func (t dynamicType) decode(ctx context.Context, raw interface{}, dst reflect.Value, parent interface{}) error {
	data, err := asData(raw)
	if err != nil {
		return err
	}
	c, err := t.r.Resolve(ctx, data)
	if err != nil {
		return err
	}
	if untagger, ok := t.r.(interface{ untag(*Class, *Data) *Data }); ok {
		data = untagger.untag(c, data)
	}
	return decodeInstance(ctx, c, data, dst, parent)
}

func (t dynamicType) plain(ctx context.Context, raw interface{}) (interface{}, error) {
	data, err := asData(raw)
	if err != nil {
		return nil, err
	}
	c, err := t.r.Resolve(ctx, data)
	if err != nil {
		return nil, err
	}
	if untagger, ok := t.r.(interface{ untag(*Class, *Data) *Data }); ok {
		data = untagger.untag(c, data)
	}
	out, err := c.Plain(ctx, data)
	if err != nil {
		return nil, err
	}
	if tagger, ok := t.r.(interface{ variant(*Class) string }); ok {
		out[VariantKey] = tagger.variant(c)
	}
	return out, nil
}

// ResolverFunc adapts a decode-side function into a Resolver. Encoding picks
// the class among variants by Go type.
func ResolverFunc(fn func(ctx context.Context, raw *Data) (*Class, error), variants ...*Class) Resolver {
	return &funcResolver{fn: fn, variants: variants}
}

type funcResolver struct {
	fn       func(ctx context.Context, raw *Data) (*Class, error)
	variants []*Class
}

func (r *funcResolver) ClassOf(v reflect.Value) (*Class, error) {
	return classOf(v, r.variants)
}

func (r *funcResolver) Resolve(ctx context.Context, raw *Data) (*Class, error) {
	return r.fn(ctx, raw)
}

func classOf(v reflect.Value, variants []*Class) (*Class, error) {
	for _, c := range variants {
		if c.typ == v.Type() {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrNotRegistered, v.Type())
}

// TaggedUnion is a Resolver writing the variant tag at field id tagID of
// each encoded element and reading it back to pick the class.
func TaggedUnion(tagID int, variants map[string]*Class) Resolver {
	u := &taggedUnion{
		tagID:    tagID,
		variants: variants,
		tags:     make(map[*Class]string, len(variants)),
	}
	for tag, c := range variants {
		u.tags[c] = tag
		u.list = append(u.list, c)
	}
	return u
}

type taggedUnion struct {
	tagID    int
	variants map[string]*Class
	tags     map[*Class]string
	list     []*Class
}

func (u *taggedUnion) ClassOf(v reflect.Value) (*Class, error) {
	return classOf(v, u.list)
}

func (u *taggedUnion) Resolve(ctx context.Context, raw *Data) (*Class, error) {
	var tag string
	if err := convertValue(raw.D[u.tagID], reflect.ValueOf(&tag).Elem()); err != nil {
		return nil, fmt.Errorf("%w: unreadable tag: %s", ErrUnknownVariant, err)
	}
	c, ok := u.variants[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
	return c, nil
}

func (u *taggedUnion) tag(c *Class, data *Data) {
	data.D[u.tagID] = u.tags[c]
}

func (u *taggedUnion) variant(c *Class) string {
	return u.tags[c]
}

// untag hides the tag from classes that don't declare it, so it doesn't
// land in their unknown fields.
func (u *taggedUnion) untag(c *Class, data *Data) *Data {
	if _, declared := c.shapes[data.V].byID()[u.tagID]; declared {
		return data
	}
	out := &Data{ID: data.ID, V: data.V, D: make(map[int]interface{}, len(data.D))}
	for id, v := range data.D {
		if id != u.tagID {
			out.D[id] = v
		}
	}
	return out
}
