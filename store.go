package strata

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Azhovan/strata/internal/normalize"
	"github.com/Azhovan/strata/value"
)

const (
	// DefaultEnvironmentKey is the canonical key that selects the environment.
	DefaultEnvironmentKey = "conf-env"

	// DefaultResourcePrefix is the directory-like prefix of resource names.
	DefaultResourcePrefix = "conf"

	// DefaultMaxRefDepth bounds indirection chains.
	DefaultMaxRefDepth = 32
)

// sourceSet is the provenance name recorded for keys written by Set.
const sourceSet = "set"

// state is one loaded snapshot. It is never modified after it is
// installed; Set installs a modified copy.
type state struct {
	data        value.Map
	sources     map[string]string
	environment string
	loadedAt    time.Time
}

// Store resolves layered configuration and caches the merged snapshot.
//
// A Store starts unloaded. Get, GetAll and Set load it on first use;
// Load always recomputes. Reads are lock-free and observe either the old
// or the new snapshot in full. Concurrent writers (Load, Set, Unload)
// are not ordered with respect to each other.
type Store struct {
	resources   ResourceReader
	env         Source
	props       Source
	prefix      string
	maxRefDepth int
	logger      *zap.Logger

	current atomic.Pointer[state]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithResources sets the reader for conf/base, conf/default and the
// environment resources.
func WithResources(r ResourceReader) StoreOption {
	return func(s *Store) {
		s.resources = r
	}
}

// WithEnvSource sets the environment variable table (precedence 5).
func WithEnvSource(src Source) StoreOption {
	return func(s *Store) {
		s.env = src
	}
}

// WithPropertySource sets the property table (precedence 6, highest).
func WithPropertySource(src Source) StoreOption {
	return func(s *Store) {
		s.props = src
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxRefDepth bounds how many indirections a single read may follow.
func WithMaxRefDepth(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxRefDepth = n
		}
	}
}

// WithResourcePrefix replaces the "conf" prefix of resource names.
func WithResourcePrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewStore creates an unloaded Store. Sources that are not configured
// contribute nothing to the merge.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		prefix:      DefaultResourcePrefix,
		maxRefDepth: DefaultMaxRefDepth,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadOption configures a single Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	environmentKey string
}

// WithEnvironmentKey overrides the canonical key that selects the
// environment. Default: "conf-env" (CONF_ENV or conf.env).
func WithEnvironmentKey(key string) LoadOption {
	return func(c *loadConfig) {
		c.environmentKey = key
	}
}

// Load reads every source, merges them in precedence order and installs
// the result, replacing any previous snapshot. On error the previous
// snapshot is kept.
func (s *Store) Load(ctx context.Context, opts ...LoadOption) error {
	cfg := loadConfig{environmentKey: DefaultEnvironmentKey}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !normalize.ValidKey(cfg.environmentKey) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, cfg.environmentKey)
	}

	st, err := s.resolve(ctx, cfg.environmentKey)
	if err != nil {
		return err
	}

	s.current.Store(st)
	return nil
}

// Unload discards the snapshot. The next read loads again.
func (s *Store) Unload() {
	s.current.Store(nil)
}

// IsLoaded reports whether a snapshot is installed.
func (s *Store) IsLoaded() bool {
	return s.current.Load() != nil
}

// loaded returns the current snapshot, loading with defaults if needed.
func (s *Store) loaded() (*state, error) {
	for {
		if st := s.current.Load(); st != nil {
			return st, nil
		}
		if err := s.Load(context.Background()); err != nil {
			return nil, err
		}
	}
}

// mustLoaded is loaded for the accessors without an error return. A bad
// resource is a deployment error, so it panics with the *ParseError.
func (s *Store) mustLoaded() *state {
	st, err := s.loaded()
	if err != nil {
		panic(err)
	}
	return st
}

// GetAll returns the current snapshot, loading it first if needed.
// The map is shared with the store and must not be modified; use Set.
// Indirections are returned unresolved.
func (s *Store) GetAll() value.Map {
	return s.mustLoaded().data
}

// Get returns the value of key, or notFound when the key is absent.
// Indirections are resolved against the current snapshot.
func (s *Store) Get(key string, notFound value.Value) value.Value {
	st := s.mustLoaded()
	v, ok := st.data[key]
	if !ok {
		return notFound
	}

	resolved, err := s.resolveRef(st.data, key, v)
	if err != nil {
		s.logger.Warn("indirection cycle, using fallback",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return resolved
}

// Lookup is Get with explicit errors: it reports load failures and
// indirection cycles instead of panicking. On a cycle the fallback Get
// would use is returned along with the *CycleError.
func (s *Store) Lookup(key string) (value.Value, bool, error) {
	st, err := s.loaded()
	if err != nil {
		return nil, false, err
	}
	v, ok := st.data[key]
	if !ok {
		return nil, false, nil
	}

	resolved, err := s.resolveRef(st.data, key, v)
	return resolved, true, err
}

// Set overwrites key in the current snapshot, loading it first if needed.
// The value is stored as given.
func (s *Store) Set(key string, v value.Value) {
	for {
		old := s.mustLoaded()

		next := &state{
			data:        old.data.Clone(),
			sources:     make(map[string]string, len(old.sources)+1),
			environment: old.environment,
			loadedAt:    old.loadedAt,
		}
		for k, src := range old.sources {
			next.sources[k] = src
		}
		next.data[key] = v
		next.sources[key] = sourceSet

		if s.current.CompareAndSwap(old, next) {
			return
		}
	}
}

// Environment returns the environment selected by the current snapshot,
// or "" when none was selected or the store is unloaded.
func (s *Store) Environment() string {
	if st := s.current.Load(); st != nil {
		return st.environment
	}
	return ""
}

// LoadedAt returns when the current snapshot was loaded.
func (s *Store) LoadedAt() (time.Time, bool) {
	if st := s.current.Load(); st != nil {
		return st.loadedAt, true
	}
	return time.Time{}, false
}

// GetString returns key as a string. It reports false when the key is
// absent or holds a different type.
func (s *Store) GetString(key string) (string, bool) {
	v, ok := s.Get(key, nil).(value.String)
	return string(v), ok
}

// GetInt returns key as an int64.
func (s *Store) GetInt(key string) (int64, bool) {
	v, ok := s.Get(key, nil).(value.Int)
	return int64(v), ok
}

// GetBool returns key as a bool.
func (s *Store) GetBool(key string) (bool, bool) {
	v, ok := s.Get(key, nil).(value.Bool)
	return bool(v), ok
}
