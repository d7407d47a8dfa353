package loader

import (
	"errors"
	"fmt"
	"io/fs"
)

// Failure kinds carried by LoadError. Match them with errors.Is.
var (
	ErrNotFound      = errors.New("data file not found")
	ErrUnreadable    = errors.New("data file unreadable")
	ErrEmpty         = errors.New("data file is empty")
	ErrMalformed     = errors.New("data file is malformed")
	ErrMissingColumn = errors.New("required column missing")
)

// LoadError is the only failure the loader returns. It is fatal: no table is
// produced and nothing downstream should run.
type LoadError struct {
	Path string
	Kind error
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("load %s: %v: %v", e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause, so errors.Is works for
// ErrNotFound as well as fs.ErrNotExist.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func kindOf(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return ErrUnreadable
}
