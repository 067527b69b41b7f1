// Package conf is the process-wide accessor: the strata.Store API over a
// default store that is created on first use.
//
// The default store reads resources relative to the working directory
// (./conf/base.edn, ./conf/default.yaml, ...), the process environment and
// sourceprops.System.
//
//	sourceprops.System.Set("conf.env", "prod")
//	url := conf.Get("database-url", nil)
package conf

import (
	"context"
	"sync/atomic"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/sourceenv"
	"github.com/Azhovan/strata/sourcefile"
	"github.com/Azhovan/strata/sourceprops"
	"github.com/Azhovan/strata/value"
)

var defaultStore atomic.Pointer[strata.Store]

// Default returns the process-wide store, creating it if needed.
func Default() *strata.Store {
	if s := defaultStore.Load(); s != nil {
		return s
	}
	s := strata.NewStore(
		strata.WithResources(sourcefile.Dir(".")),
		strata.WithEnvSource(sourceenv.New(sourceenv.Options{})),
		strata.WithPropertySource(sourceprops.System),
	)
	if defaultStore.CompareAndSwap(nil, s) {
		return s
	}
	return defaultStore.Load()
}

// SetDefault replaces the process-wide store. Passing nil makes the next
// call create a fresh default store.
func SetDefault(s *strata.Store) {
	defaultStore.Store(s)
}

// Load recomputes the configuration, replacing any cached snapshot.
func Load(opts ...strata.LoadOption) error {
	return Default().Load(context.Background(), opts...)
}

// Unload discards the cached snapshot.
func Unload() {
	Default().Unload()
}

// IsLoaded reports whether a snapshot is cached.
func IsLoaded() bool {
	return Default().IsLoaded()
}

// GetAll returns the whole configuration, loading it if needed.
func GetAll() value.Map {
	return Default().GetAll()
}

// Get returns key's value with indirections resolved, or notFound.
func Get(key string, notFound value.Value) value.Value {
	return Default().Get(key, notFound)
}

// Set overwrites key in the cached snapshot.
func Set(key string, v value.Value) {
	Default().Set(key, v)
}
