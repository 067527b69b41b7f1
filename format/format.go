// Package format decodes configuration resources into value.Map.
//
// Supported formats: edn (the literal syntax), yaml, toml, json and jsonc.
// Every resource must hold a single top-level map.
//
// Indirections are written as:
//
//	edn:   #conf/ref :key   or   #conf/ref [:key fallback]
//	yaml:  !conf/ref key    or   !conf/ref [key, fallback]
//	any:   {"$ref": "key"}  or   {"$ref": {"name": "key", "default": fallback}}
package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"

	"github.com/Azhovan/strata/literal"
	"github.com/Azhovan/strata/value"
)

// Format names.
const (
	EDN   = "edn"
	YAML  = "yaml"
	TOML  = "toml"
	JSON  = "json"
	JSONC = "jsonc"
)

// Extensions lists resource file extensions in probing order.
var Extensions = []string{".edn", ".yaml", ".yml", ".toml", ".json", ".jsonc"}

// ErrUnsupported is returned for unknown format names.
var ErrUnsupported = errors.New("unsupported format")

// FromPath infers the format from a file extension. Returns "" when the
// extension is not recognized.
func FromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".edn":
		return EDN
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	case ".json":
		return JSON
	case ".jsonc":
		return JSONC
	default:
		return ""
	}
}

// Decode parses data in the named format.
func Decode(format string, data []byte) (value.Map, error) {
	switch format {
	case EDN, "":
		return literal.ParseMap(data)
	case YAML, "yml":
		return decodeYAML(data)
	case TOML:
		return decodeTOML(data)
	case JSON, JSONC:
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("%w: %s (supported: edn, yaml, toml, json, jsonc)", ErrUnsupported, format)
	}
}

func decodeTOML(data []byte) (value.Map, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return fromRaw(raw)
}

func decodeJSON(data []byte) (value.Map, error) {
	// hujson accepts comments and trailing commas
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(std)) == 0 {
		return value.Map{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(std))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	switch t := raw.(type) {
	case nil:
		return value.Map{}, nil
	case map[string]any:
		return fromRaw(t)
	default:
		return nil, fmt.Errorf("top-level value must be an object, got %T", raw)
	}
}

func fromRaw(raw map[string]any) (value.Map, error) {
	v, err := value.FromAny(raw)
	if err != nil {
		return nil, err
	}
	m, _ := v.(value.Map)
	if m == nil {
		m = value.Map{}
	}
	return expandRefDirectives(m)
}
