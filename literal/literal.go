// Package literal parses the structured literal syntax used by configuration
// resources and by environment/property values.
//
// The grammar is a small EDN subset:
//
//	{:port 5000 :hosts ["a" "b"]}   maps, vectors
//	(1 2) #{:a :b}                  lists and sets (both parse to value.List)
//	"text" \c 42 -7 1.5 6.02e23     strings, characters, numbers
//	true false nil                  booleans and nil
//	:keyword symbol                 atoms
//	; comment   #_ discarded-form   commas are whitespace
//	#conf/ref :other-key            indirection to another key
//	#conf/ref [:other-key 8080]     indirection with a fallback
//
// Map keys are stored by name (see MapKey), so :a, "a" and a name the same
// entry. A map holding two of them is rejected as a key collision.
package literal

import (
	"fmt"

	"github.com/Azhovan/strata/value"
)

// RefTag is the tag that marks an indirection literal.
const RefTag = "conf/ref"

// SyntaxError reports malformed input. Line and Col are 1-based.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parse reads exactly one form from src. Leading and trailing whitespace
// and comments are allowed; any other trailing content is an error.
func Parse(src []byte) (value.Value, error) {
	p := newParser(src)
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	v, err := p.form()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q after form", p.peek())
	}
	return v, nil
}

// ParseString is Parse for string input.
func ParseString(s string) (value.Value, error) {
	return Parse([]byte(s))
}

// ParseMap reads a resource body. The body must hold a single top-level
// map; empty input and a bare nil both yield an empty map.
func ParseMap(src []byte) (value.Map, error) {
	p := newParser(src)
	p.skipSpace()
	if p.eof() {
		return value.Map{}, nil
	}

	v, err := Parse(src)
	if err != nil {
		return nil, err
	}

	switch t := v.(type) {
	case value.Map:
		return t, nil
	case value.Nil:
		return value.Map{}, nil
	default:
		return nil, &SyntaxError{Line: p.line, Col: p.col, Msg: fmt.Sprintf("top-level form must be a map, got %s", kindOf(v))}
	}
}

func kindOf(v value.Value) string {
	switch v.(type) {
	case value.String:
		return "string"
	case value.Int, value.Float:
		return "number"
	case value.Bool:
		return "boolean"
	case value.Keyword:
		return "keyword"
	case value.Symbol:
		return "symbol"
	case value.List:
		return "list"
	case value.Ref:
		return "reference"
	default:
		return "value"
	}
}
