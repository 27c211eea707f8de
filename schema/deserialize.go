package schema

import (
	"context"
	"fmt"
	"reflect"
)

// Deserialize decodes in into a new instance of c and returns a pointer to
// it. Shape drift is absorbed and reported, never returned as an error.
func (c *Class) Deserialize(ctx context.Context, in *Data) (interface{}, error) {
	if in == nil {
		return nil, fmt.Errorf("schema: %s: nil data", c.name)
	}
	ptr := reflect.New(c.typ)
	c.deserializeValue(ctx, in, ptr.Elem(), nil)
	return ptr.Interface(), nil
}

// DeserializeInto decodes in into dst, a pointer to an instance of c.
// Fields absent from in keep their current value.
func (c *Class) DeserializeInto(ctx context.Context, in *Data, dst interface{}) error {
	if in == nil {
		return fmt.Errorf("schema: %s: nil data", c.name)
	}
	rv, err := c.structValue(dst)
	if err != nil {
		return err
	}
	c.deserializeValue(ctx, in, rv, nil)
	return nil
}

// readFields maps stored ids to names with the shape of the stored version
// and runs the migration chain up to the current version.
func (c *Class) readFields(ctx context.Context, in *Data) (Fields, map[int]interface{}) {
	shape, resolved, ok := c.shapeFor(in.V)
	if !ok {
		c.report(ctx, &IntegrityError{Class: c.name, Version: in.V, Err: fmt.Errorf("%w, reading with v%d", ErrShapeNotFound, resolved)})
	}

	byID := shape.byID()
	fields := make(Fields, len(in.D))
	var unknown map[int]interface{}
	for id, raw := range in.D {
		name, declared := byID[id]
		if !declared {
			if unknown == nil {
				unknown = make(map[int]interface{})
			}
			unknown[id] = raw
			continue
		}
		if shape[name].Exclude {
			continue
		}
		fields[name] = raw
	}

	start := resolved
	if _, ok := c.migrationFrom(in.V); ok {
		start = in.V
	}
	if start != c.version {
		var reached int
		fields, reached = c.migrate(ctx, start, fields)
		if reached != c.version {
			c.report(ctx, &IntegrityError{Class: c.name, Version: in.V, Err: fmt.Errorf("%w: reached v%d, want v%d", ErrMigrationIncomplete, reached, c.version)})
		}
	}

	return fields, unknown
}

func (c *Class) deserializeValue(ctx context.Context, in *Data, rv reflect.Value, parent interface{}) {
	fields, unknown := c.readFields(ctx, in)
	self := rv.Addr().Interface()

	shape := c.shapes[c.version]
	for _, name := range shape.names() {
		f := shape[name]
		if f.Exclude {
			continue
		}
		raw, ok := fields[name]
		if !ok || raw == nil {
			continue
		}
		if err := f.Type.decode(ctx, raw, rv.FieldByName(name), self); err != nil {
			c.report(ctx, &IntegrityError{Class: c.name, Version: in.V, Field: name, Err: err})
		}
	}
	for name := range fields {
		if _, ok := shape[name]; !ok {
			c.logf(ctx, "schema.%s: field %s is not part of v%d, dropped", c.name, name, c.version)
		}
	}

	if c.idField != "" && in.ID != "" {
		rv.FieldByName(c.idField).SetString(in.ID)
	}

	if holder, ok := self.(unknownHolder); ok {
		holder.setUnknownFields(unknown, in.V)
	} else if len(unknown) != 0 {
		c.logf(ctx, "schema.%s: %d unknown fields dropped, embed schema.Base to keep them", c.name, len(unknown))
	}

	if c.onDeserialize != nil {
		if err := c.onDeserialize(ctx, self, parent); err != nil {
			c.logf(ctx, "schema.%s: OnDeserialize err=%s", c.name, err.Error())
		}
	}
}

// Plain decodes in into plain Go data keyed by field name: nested classes
// become map[string]interface{} and arrays []interface{}. Migrations run
// as in Deserialize.
func (c *Class) Plain(ctx context.Context, in *Data) (map[string]interface{}, error) {
	if in == nil {
		return nil, fmt.Errorf("schema: %s: nil data", c.name)
	}
	fields, _ := c.readFields(ctx, in)

	shape := c.shapes[c.version]
	out := make(map[string]interface{}, len(shape))
	for _, name := range shape.names() {
		f := shape[name]
		if f.Exclude {
			continue
		}
		raw, ok := fields[name]
		if !ok || raw == nil {
			continue
		}
		v, err := f.Type.plain(ctx, raw)
		if err != nil {
			c.report(ctx, &IntegrityError{Class: c.name, Version: in.V, Field: name, Err: err})
			continue
		}
		out[name] = v
	}
	if c.idField != "" && in.ID != "" {
		out[c.idField] = in.ID
	}
	return out, nil
}
