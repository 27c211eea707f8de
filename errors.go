package worldstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchRecord is returned when a record is absent, explicitly
	// deleted, or has no registered template.
	ErrNoSuchRecord = errors.New("worldstore: no such record")
	// ErrRecordExists is returned by Create when the key is already taken.
	ErrRecordExists = errors.New("worldstore: record already exists")
)

// MultiError is returned by batch operations when there are errors with
// particular elements.
type MultiError []error

func (m MultiError) Error() string {
	s, n := "", 0
	for _, e := range m {
		if e != nil {
			if n == 0 {
				s = e.Error()
			}
			n++
		}
	}
	switch n {
	case 0:
		return "(0 errors)"
	case 1:
		return s
	case 2:
		return s + " (and 1 other error)"
	}
	return fmt.Sprintf("%s (and %d other errors)", s, n-1)
}

// Unwrap lets errors.Is and errors.As look at every element.
func (m MultiError) Unwrap() []error {
	out := make([]error, 0, len(m))
	for _, e := range m {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
