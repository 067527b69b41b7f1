package strata

import (
	"context"
	"errors"
	"time"

	"github.com/Azhovan/strata/value"
)

// Source provides one table of configuration (env vars, properties).
// Keys must already be canonical (lowercase, dash-separated).
type Source interface {
	// Name identifies the source in provenance (e.g., "env", "prop").
	Name() string

	// Load returns the source's table. An empty source returns an empty map.
	Load(ctx context.Context) (value.Map, error)

	// Watch emits ChangeEvent when the table changes. Returns ErrWatchNotSupported if not supported.
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// SourceWithKeys is implemented by sources that can report the raw name
// behind each canonical key (e.g., "DATABASE_URL" for "database-url").
type SourceWithKeys interface {
	Source
	LoadWithKeys(ctx context.Context) (value.Map, map[string]string, error)
}

// Resource is the raw body of a named configuration resource.
type Resource struct {
	Name   string // Logical name (e.g., "conf/base")
	Path   string // Where it was found (e.g., "conf/base.edn")
	Format string // Decoder name (see package format)
	Data   []byte
}

// ResourceReader looks up named resources such as "conf/base" or
// "conf/defaults/prod". A missing resource is reported with ok=false and
// no error.
type ResourceReader interface {
	ReadResource(ctx context.Context, name string) (res Resource, ok bool, err error)
}

// ResourceWatcher is implemented by readers that can report changes.
type ResourceWatcher interface {
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// ChangeEvent notifies of configuration changes.
type ChangeEvent struct {
	At    time.Time
	Cause string // Description (e.g., "file-changed:conf/base.edn")
}

// ErrWatchNotSupported is returned when watching is not supported.
var ErrWatchNotSupported = errors.New("strata: watch not supported by this source")

// Snapshot is a configuration version emitted by Store.Watch.
type Snapshot struct {
	Config      value.Map
	Sources     map[string]string // Provenance of each key in Config
	Environment string
	Version     int64 // Increments on reload (starts at 1)
	LoadedAt    time.Time
	Source      string // What triggered the load
}
