package schema

import (
	"context"
	"fmt"
	"sort"

	"go.mercari.io/worldstore"
)

// Field declares where a struct field lives in serialized data.
type Field struct {
	ID   int
	Type Type
	// Exclude keeps the field declared but never persisted.
	Exclude bool
}

// Shape maps struct field names to their Field for one version.
type Shape map[string]Field

func (s Shape) clone() Shape {
	out := make(Shape, len(s))
	for name, f := range s {
		out[name] = f
	}
	return out
}

// names returns field names ordered by id.
func (s Shape) names() []string {
	list := make([]string, 0, len(s))
	for name := range s {
		list = append(list, name)
	}
	sort.Slice(list, func(i, j int) bool {
		return s[list[i]].ID < s[list[j]].ID
	})
	return list
}

func (s Shape) byID() map[int]string {
	m := make(map[int]string, len(s))
	for name, f := range s {
		m[f.ID] = name
	}
	return m
}

func (s Shape) validate() error {
	seen := make(map[int]string, len(s))
	for _, name := range s.names() {
		f := s[name]
		if f.ID < 0 {
			return fmt.Errorf("negative id %d on %s", f.ID, name)
		}
		if other, ok := seen[f.ID]; ok {
			return fmt.Errorf("id %d used by both %s and %s", f.ID, other, name)
		}
		seen[f.ID] = name
	}
	return nil
}

type versionDef struct {
	version int
	base    int
	shape   Shape
	drop    []string
}

type settings struct {
	idField       string
	versions      []versionDef
	migrations    []Migration
	onDeserialize func(ctx context.Context, instance, parent interface{}) error
	logf          worldstore.Logf
	integrityHook func(ctx context.Context, e *IntegrityError)
}

// An Option configures a Class.
type Option interface {
	Apply(*settings)
}

type optionFunc func(*settings)

func (f optionFunc) Apply(s *settings) { f(s) }

// Version declares the full shape of version v.
func Version(v int, shape Shape) Option {
	return optionFunc(func(s *settings) {
		s.versions = append(s.versions, versionDef{version: v, shape: shape})
	})
}

// Extend declares version v as base plus add, minus the dropped names.
func Extend(v, base int, add Shape, drop ...string) Option {
	return optionFunc(func(s *settings) {
		s.versions = append(s.versions, versionDef{version: v, base: base, shape: add, drop: drop})
	})
}

// Migrate registers a migrator from one version to another.
func Migrate(from, to int, fn MigrateFunc) Option {
	return optionFunc(func(s *settings) {
		s.migrations = append(s.migrations, Migration{From: from, To: to, Migrate: fn})
	})
}

// IDField names the string field copied to and from Data.ID.
func IDField(name string) Option {
	return optionFunc(func(s *settings) {
		s.idField = name
	})
}

// OnDeserialize registers a hook run after every Deserialize, for fixing up
// runtime-only fields. parent is the enclosing instance for nested values
// and nil at the top level.
func OnDeserialize(fn func(ctx context.Context, instance, parent interface{}) error) Option {
	return optionFunc(func(s *settings) {
		s.onDeserialize = fn
	})
}

// WithLogger sets the logger used for data-integrity reports.
func WithLogger(logf worldstore.Logf) Option {
	return optionFunc(func(s *settings) {
		s.logf = logf
	})
}

// WithIntegrityHook is called for every absorbed data-integrity problem.
func WithIntegrityHook(fn func(ctx context.Context, e *IntegrityError)) Option {
	return optionFunc(func(s *settings) {
		s.integrityHook = fn
	})
}
