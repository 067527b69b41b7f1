package sourceenv

import (
	"context"
	"os"
	"strings"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/internal/normalize"
	"github.com/Azhovan/strata/value"
)

// Options configures environment variable source behavior.
type Options struct {
	// Prefix filters vars starting with prefix (stripped before normalization).
	// Empty = load all vars.
	// Prefix matching behavior is controlled by CaseSensitive.
	Prefix string

	// CaseSensitive controls prefix matching (default: false).
	// When false, prefix matching is case-insensitive (APP_ matches app_, App_, etc.).
	// When true, prefix must match exactly.
	CaseSensitive bool

	// RawValues keeps every value as a string instead of parsing literals
	// ("123" stays "123" rather than becoming an integer).
	RawValues bool

	// Environ returns the "NAME=value" table to read. Default: os.Environ.
	Environ func() []string
}

type envSource struct {
	opts Options
}

// New creates an environment variable source.
func New(opts Options) strata.Source {
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	return &envSource{opts: opts}
}

// Name returns "env"; provenance entries read "env:RAW_NAME".
func (e *envSource) Name() string {
	return "env"
}

// Load scans environment variables, filters by prefix, and normalizes keys and values.
func (e *envSource) Load(ctx context.Context) (value.Map, error) {
	result, _, err := e.LoadWithKeys(ctx)
	return result, err
}

// LoadWithKeys is Load that also returns the raw variable name behind each key.
func (e *envSource) LoadWithKeys(ctx context.Context) (value.Map, map[string]string, error) {
	raw := make(map[string]string)
	fullNames := make(map[string]string)

	for _, env := range e.opts.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		val := parts[1]
		fullName := key

		if e.opts.Prefix != "" {
			var hasPrefix bool
			if e.opts.CaseSensitive {
				hasPrefix = strings.HasPrefix(key, e.opts.Prefix)
			} else {
				hasPrefix = strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(e.opts.Prefix))
			}

			if !hasPrefix {
				continue
			}
			key = key[len(e.opts.Prefix):]
		}

		if key == "" {
			continue
		}
		raw[key] = val
		fullNames[key] = fullName
	}

	// Normalize: DATABASE_URL → database-url, "123" → 123
	result, names := normalize.Table(raw, normalize.TableOptions{ParseValues: !e.opts.RawValues})
	for k, name := range names {
		names[k] = fullNames[name]
	}

	return result, names, nil
}

// Watch returns ErrWatchNotSupported (env vars don't change at runtime).
func (e *envSource) Watch(ctx context.Context) (<-chan strata.ChangeEvent, error) {
	return nil, strata.ErrWatchNotSupported
}
