package schema

import (
	"context"
	"fmt"
	"reflect"
)

// Serialize encodes v, a pointer to an instance of c, at the current
// version. An instance holding unknown fields read from a newer version
// is tagged with that version instead. An error means v can't be
// persisted at all; callers skip it.
func (c *Class) Serialize(ctx context.Context, v interface{}) (*Data, error) {
	rv, err := c.structValue(v)
	if err != nil {
		return nil, err
	}
	data, err := c.serializeValue(ctx, rv)
	if err != nil {
		return nil, err
	}
	if c.idField != "" {
		data.ID = rv.FieldByName(c.idField).String()
	}
	return data, nil
}

func (c *Class) serializeValue(ctx context.Context, rv reflect.Value) (*Data, error) {
	if rv.Type() != c.typ {
		return nil, fmt.Errorf("schema: %s: cannot serialize %v", c.name, rv.Type())
	}

	shape := c.shapes[c.version]
	d := make(map[int]interface{}, len(shape))
	for _, name := range shape.names() {
		f := shape[name]
		if f.Exclude {
			continue
		}
		fv := rv.FieldByName(name)
		if isNil(fv) {
			continue
		}
		enc, err := f.Type.encode(ctx, fv)
		if err != nil {
			return nil, fmt.Errorf("schema: %s.%s: %w", c.name, name, err)
		}
		if enc == nil {
			continue
		}
		d[f.ID] = enc
	}

	version := c.version
	if rv.CanAddr() {
		if holder, ok := rv.Addr().Interface().(unknownHolder); ok && len(holder.UnknownFields()) != 0 {
			// data read from a newer version keeps its tag, so the newer
			// shape reads the ids back without migrating them away
			if c.version < holder.UnknownVersion() {
				version = holder.UnknownVersion()
			}
			declared := shape.byID()
			for id, raw := range holder.UnknownFields() {
				if _, ok := declared[id]; ok {
					if _, taken := d[id]; taken {
						c.logf(ctx, "schema.%s: unknown field %d collides with a declared field, dropped", c.name, id)
					}
					continue
				}
				d[id] = raw
			}
		}
	}

	return &Data{V: version, D: d}, nil
}
