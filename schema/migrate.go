package schema

import (
	"context"
	"fmt"
	"reflect"
)

// MaxMigrationSteps guards the migration runner against cyclic or
// misconfigured migrator graphs.
var MaxMigrationSteps = 64

// Fields is the name-keyed view of serialized data handed to migrators.
// Values are raw until decoded with Decode.
type Fields map[string]interface{}

// Decode stores the value of name into dst, which must be a pointer.
func (f Fields) Decode(name string, dst interface{}) error {
	raw, ok := f[name]
	if !ok || raw == nil {
		return nil
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("schema: Fields.Decode needs a non-nil pointer, got %T", dst)
	}
	return convertValue(raw, rv.Elem())
}

// Rename moves the value of from to to.
func (f Fields) Rename(from, to string) {
	if v, ok := f[from]; ok {
		f[to] = v
		delete(f, from)
	}
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// MigrateFunc turns data of one version into data of the next one.
type MigrateFunc func(ctx context.Context, d Fields) (Fields, error)

type Migration struct {
	From    int
	To      int
	Migrate MigrateFunc
}

func (c *Class) migrationFrom(v int) (Migration, bool) {
	for _, m := range c.migrations {
		if m.From == v {
			return m, true
		}
	}
	return Migration{}, false
}

// migrate walks the chain starting at version from and returns the data
// together with the version it reached.
func (c *Class) migrate(ctx context.Context, from int, fields Fields) (Fields, int) {
	current := fields
	v := from
	for step := 0; v != c.version; step++ {
		if MaxMigrationSteps <= step {
			c.logf(ctx, "schema.%s: migration stopped after %d steps at v%d", c.name, step, v)
			break
		}
		m, ok := c.migrationFrom(v)
		if !ok {
			break
		}
		next, err := m.Migrate(ctx, current.clone())
		if err != nil {
			c.logf(ctx, "schema.%s: migrate v%d -> v%d err=%s", c.name, m.From, m.To, err.Error())
			break
		}
		if next == nil {
			next = Fields{}
		}
		current = next
		v = m.To
	}
	return current, v
}
