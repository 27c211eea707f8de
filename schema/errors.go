package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeNotFound means no shape is declared for a stored version.
	ErrShapeNotFound = errors.New("schema: shape not found")
	// ErrMigrationIncomplete means the migration chain stopped short of the
	// current version.
	ErrMigrationIncomplete = errors.New("schema: migration chain incomplete")
	// ErrNotRegistered means a dynamic value has no class that can encode it.
	ErrNotRegistered = errors.New("schema: no class registered for value")
	// ErrUnknownVariant means a tagged union met a tag it doesn't know.
	ErrUnknownVariant = errors.New("schema: unknown variant")
)

// IntegrityError describes degraded data that was absorbed during
// deserialization.
type IntegrityError struct {
	Class   string
	Version int
	Field   string
	Err     error
}

func (e *IntegrityError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: %s v%d field %s: %s", e.Class, e.Version, e.Field, e.Err)
	}
	return fmt.Sprintf("schema: %s v%d: %s", e.Class, e.Version, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
