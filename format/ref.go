package format

import (
	"fmt"

	"github.com/Azhovan/strata/value"
)

const refDirective = "$ref"

// expandRefDirectives replaces {"$ref": ...} maps with value.Ref.
func expandRefDirectives(m value.Map) (value.Map, error) {
	out := make(value.Map, len(m))
	for k, v := range m {
		expanded, err := expandValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = expanded
	}
	return out, nil
}

func expandValue(v value.Value) (value.Value, error) {
	switch t := v.(type) {
	case value.Map:
		if spec, ok := t[refDirective]; ok {
			if len(t) != 1 {
				return nil, fmt.Errorf("%s must be the only key in its map", refDirective)
			}
			return refFromDirective(spec)
		}
		return expandRefDirectives(t)
	case value.List:
		out := make(value.List, len(t))
		for i, e := range t {
			expanded, err := expandValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

func refFromDirective(spec value.Value) (value.Value, error) {
	switch t := spec.(type) {
	case value.String:
		if t == "" {
			return nil, fmt.Errorf("%s: empty key", refDirective)
		}
		return value.Ref{Key: string(t)}, nil
	case value.Map:
		name, ok := t["name"].(value.String)
		if !ok || name == "" {
			return nil, fmt.Errorf("%s: \"name\" must be a non-empty string", refDirective)
		}
		for k := range t {
			if k != "name" && k != "default" {
				return nil, fmt.Errorf("%s: unknown field %q", refDirective, k)
			}
		}
		ref := value.Ref{Key: string(name)}
		if def, ok := t["default"]; ok {
			fallback, err := expandValue(def)
			if err != nil {
				return nil, err
			}
			ref.Fallback = fallback
		}
		return ref, nil
	default:
		return nil, fmt.Errorf("%s: expected a key or {name, default}, got %s", refDirective, spec.String())
	}
}
