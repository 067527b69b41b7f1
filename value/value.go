// Package value defines the values a configuration map can hold.
//
// Value is a closed sum type. The concrete variants are:
//
//   - String  text
//   - Int     signed 64-bit integer
//   - Float   64-bit float
//   - Bool    true/false
//   - Nil     explicit nil literal
//   - Keyword atom such as :debug (stored without the colon)
//   - Symbol  bare identifier such as debug
//   - List    ordered sequence of values
//   - Map     string-keyed nested map
//   - Ref     reference to another key, resolved on read
package value

import (
	"sort"
	"strconv"
	"strings"
)

// Value is a configuration value. Only types in this package implement it.
type Value interface {
	isValue()
	String() string
}

// String is a text value.
type String string

// Int is an integer value.
type Int int64

// Float is a floating point value.
type Float float64

// Bool is a boolean value.
type Bool bool

// Nil is the explicit nil literal. It is distinct from an absent key.
type Nil struct{}

// Keyword is a symbol-like atom written with a leading colon (":debug").
// The name is stored without the colon.
type Keyword string

// Symbol is a bare identifier. Symbols only appear inside structured
// values; the normalizer never produces a top-level Symbol.
type Symbol string

// List is an ordered sequence of values.
type List []Value

// Map is a string-keyed map of values. A snapshot is a Map keyed by
// canonical key.
type Map map[string]Value

// Ref is an indirection: it stands for the current value of Key, or
// Fallback when Key is absent.
type Ref struct {
	Key      string
	Fallback Value
}

func (String) isValue()  {}
func (Int) isValue()     {}
func (Float) isValue()   {}
func (Bool) isValue()    {}
func (Nil) isValue()     {}
func (Keyword) isValue() {}
func (Symbol) isValue()  {}
func (List) isValue()    {}
func (Map) isValue()     {}
func (Ref) isValue()     {}

// String renders s as a quoted literal.
func (s String) String() string { return strconv.Quote(string(s)) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (Nil) String() string { return "nil" }

func (k Keyword) String() string { return ":" + string(k) }

func (s Symbol) String() string { return string(s) }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = render(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// String renders m with keys in sorted order so output is stable.
func (m Map) String() string {
	keys := m.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, ":"+k+" "+render(m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r Ref) String() string {
	if r.Fallback == nil {
		return "#conf/ref :" + r.Key
	}
	return "#conf/ref [:" + r.Key + " " + render(r.Fallback) + "]"
}

// Keys returns the map keys in ascending order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of m. Nested values are shared.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func render(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}

// Text returns the plain text of v: the content of a String, the name of
// a Keyword or Symbol, and the literal rendering of anything else.
func Text(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case String:
		return string(t)
	case Keyword:
		return string(t)
	case Symbol:
		return string(t)
	default:
		return t.String()
	}
}

// IsNil reports whether v is absent or the nil literal.
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Nil)
	return ok
}
