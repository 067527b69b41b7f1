package normalize

import (
	"sort"
	"strings"

	"github.com/Azhovan/strata/literal"
	"github.com/Azhovan/strata/value"
)

// KeyName normalizes an external variable name to a canonical key.
// The name is lowercased and every underscore and period becomes a dash.
// Examples:
//   - "DATABASE_URL" → "database-url"
//   - "database.url" → "database-url"
//   - "CONF_ENV" → "conf-env"
func KeyName(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '.' {
			return '-'
		}
		return r
	}, strings.ToLower(raw))
}

// ValidKey reports whether key is already in canonical form: non-empty,
// with no uppercase letters, underscores or periods.
func ValidKey(key string) bool {
	return key != "" && KeyName(key) == key
}

// Value parses raw as a literal. Syntax errors and bare symbols keep the
// raw string, so plain text passes through unchanged.
// Examples:
//   - "123" → value.Int(123)
//   - ":blah" → value.Keyword("blah")
//   - "abcdef" → value.String("abcdef")
func Value(raw string) value.Value {
	v, err := literal.ParseString(raw)
	if err != nil {
		return value.String(raw)
	}
	if _, ok := v.(value.Symbol); ok {
		return value.String(raw)
	}
	return v
}

// TableOptions controls Table.
type TableOptions struct {
	// ParseValues runs Value on every entry. When false values stay strings.
	ParseValues bool
}

// Table normalizes a raw name/value table.
//
// It returns the canonical map and, for every canonical key, the raw name
// that supplied it. Raw names are visited in ascending byte order, so when
// two names collide (APP_PORT and app.port) the greater one wins.
func Table(raw map[string]string, opts TableOptions) (value.Map, map[string]string) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(value.Map, len(raw))
	originalKeys := make(map[string]string, len(raw))
	for _, name := range names {
		key := KeyName(name)
		if key == "" {
			continue
		}

		var v value.Value = value.String(raw[name])
		if opts.ParseValues {
			v = Value(raw[name])
		}
		result[key] = v
		originalKeys[key] = name
	}

	return result, originalKeys
}
