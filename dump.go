package strata

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Azhovan/strata/value"
)

const redacted = "***redacted***"

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

// dumpConfig holds options for DumpEffective.
type dumpConfig struct {
	withSources bool            // Include source attribution for each key
	asJSON      bool            // Output as JSON instead of text format
	indent      string          // Indentation for JSON output (default: "  ")
	redact      map[string]bool // Keys whose values are hidden
}

// WithSources includes source attribution for each key in the output.
func WithSources() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withSources = true
	}
}

// AsJSON outputs configuration as JSON instead of text format.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.asJSON = true
	}
}

// WithIndent sets the indentation for JSON output.
// Default is two spaces ("  ").
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// WithRedactKeys hides the values of the given keys.
func WithRedactKeys(keys ...string) DumpOption {
	return func(cfg *dumpConfig) {
		for _, k := range keys {
			cfg.redact[k] = true
		}
	}
}

// DumpEffective writes the store's configuration, loading it first if
// needed. Keys are sorted. Indirections are shown with their resolved
// value.
func DumpEffective(w io.Writer, s *Store, opts ...DumpOption) error {
	if s == nil {
		return ErrNilStore
	}

	st, err := s.loaded()
	if err != nil {
		return err
	}
	return s.dump(w, st, opts)
}

// DumpSnapshot writes a configuration version received from Store.Watch,
// formatted like DumpEffective. Indirections resolve within snap.Config,
// so the output matches the snapshot even after the store moved on.
func DumpSnapshot(w io.Writer, s *Store, snap Snapshot, opts ...DumpOption) error {
	if s == nil {
		return ErrNilStore
	}
	return s.dump(w, &state{data: snap.Config, sources: snap.Sources}, opts)
}

func (s *Store) dump(w io.Writer, st *state, opts []DumpOption) error {
	config := dumpConfig{
		indent: "  ",
		redact: map[string]bool{},
	}
	for _, opt := range opts {
		opt(&config)
	}

	entries := s.collectEntries(st, config.redact)
	if config.asJSON {
		return dumpAsJSON(w, entries, config)
	}
	return dumpAsText(w, entries, config)
}

// entry holds information about a single key for dumping.
type entry struct {
	key        string
	raw        value.Value // As stored
	resolved   value.Value // After indirection
	sourceName string
	redacted   bool
}

func (s *Store) collectEntries(st *state, redact map[string]bool) []entry {
	keys := st.data.Keys()
	entries := make([]entry, 0, len(keys))
	for _, key := range keys {
		raw := st.data[key]
		resolved, _ := s.resolveRef(st.data, key, raw)
		entries = append(entries, entry{
			key:        key,
			raw:        raw,
			resolved:   resolved,
			sourceName: st.sources[key],
			redacted:   redact[key],
		})
	}
	return entries
}

// dumpAsText outputs configuration in text format (key: value).
func dumpAsText(w io.Writer, entries []entry, config dumpConfig) error {
	for _, e := range entries {
		line := fmt.Sprintf("%s: %s", e.key, displayValue(e))
		if config.withSources && e.sourceName != "" {
			line += fmt.Sprintf(" (source: %s)", e.sourceName)
		}
		line += "\n"

		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}

	return nil
}

func displayValue(e entry) string {
	if e.redacted {
		return redacted
	}
	if ref, ok := e.raw.(value.Ref); ok {
		return fmt.Sprintf("%s => %s", ref.String(), renderValue(e.resolved))
	}
	return renderValue(e.resolved)
}

func renderValue(v value.Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// dumpAsJSON outputs configuration as a JSON object keyed by canonical key.
// With sources, every key maps to {"value": ..., "source": ...}.
func dumpAsJSON(w io.Writer, entries []entry, config dumpConfig) error {
	result := make(map[string]any, len(entries))
	for _, e := range entries {
		var v any = value.Interface(e.resolved)
		if e.redacted {
			v = redacted
		}
		if config.withSources {
			result[e.key] = map[string]any{"value": v, "source": e.sourceName}
		} else {
			result[e.key] = v
		}
	}

	var data []byte
	var err error
	if config.indent != "" {
		data, err = json.MarshalIndent(result, "", config.indent)
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

// plainConfig converts a snapshot to plain Go data with indirections
// resolved, skipping excluded keys and hiding redacted ones.
func (s *Store) plainConfig(st *state, exclude, redact map[string]bool) map[string]any {
	result := make(map[string]any, len(st.data))
	for key, raw := range st.data {
		if exclude[strings.ToLower(key)] {
			continue
		}
		if redact[key] {
			result[key] = redacted
			continue
		}
		resolved, _ := s.resolveRef(st.data, key, raw)
		result[key] = value.Interface(resolved)
	}
	return result
}
