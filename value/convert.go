package value

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Interface converts v to plain Go data: string, int64, float64, bool,
// nil, []any and map[string]any. Keywords and symbols become their name.
// Refs are not resolved here; they render as their literal text.
func Interface(v Value) any {
	switch t := v.(type) {
	case nil, Nil:
		return nil
	case String:
		return string(t)
	case Int:
		return int64(t)
	case Float:
		return float64(t)
	case Bool:
		return bool(t)
	case Keyword:
		return string(t)
	case Symbol:
		return string(t)
	case List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Interface(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Interface(e)
		}
		return out
	case Ref:
		return t.String()
	default:
		return v.String()
	}
}

// FromAny converts decoded Go data (as produced by yaml, toml and json
// decoders) into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Nil{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(t), nil
	case int8:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t)), nil
	case uint8:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint64:
		return fromUint(t), nil
	case float32:
		return Float(t), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(t))
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case map[any]any:
		out := make(Map, len(t))
		for k, e := range t {
			key := fmt.Sprint(k)
			v, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = v
		}
		return out, nil
	case fmt.Stringer:
		// TOML local dates and times
		return String(t.String()), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", x)
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(u)
	}
	return Int(u)
}
