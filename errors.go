package strata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKey is returned when the environment key is not canonical.
	ErrInvalidKey = errors.New("strata: invalid canonical key")

	// ErrInvalidEnvironment is returned when the selected environment name
	// cannot be used as part of a resource name.
	ErrInvalidEnvironment = errors.New("strata: invalid environment name")

	// ErrNilStore is returned by helpers that receive a nil *Store.
	ErrNilStore = errors.New("strata: store is nil")
)

// ParseError reports a resource whose body could not be decoded. A parse
// error aborts the load; the previous snapshot stays installed.
type ParseError struct {
	Resource string // Logical name (e.g., "conf/base")
	Path     string // Where it was found
	Format   string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s resource %s: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CycleError reports an indirection chain that revisits a key or exceeds
// the maximum depth.
type CycleError struct {
	Chain []string // Keys in visit order; the last one closes the cycle
}

func (e *CycleError) Error() string {
	return "indirection cycle: " + strings.Join(e.Chain, " -> ")
}
