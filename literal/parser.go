package literal

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Azhovan/strata/value"
)

type parser struct {
	src  []rune
	pos  int
	line int
	col  int
}

func newParser(src []byte) *parser {
	runes := make([]rune, 0, utf8.RuneCount(src))
	for len(src) > 0 {
		r, size := utf8.DecodeRune(src)
		runes = append(runes, r)
		src = src[size:]
	}
	return &parser{src: runes, line: 1, col: 1}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) rune {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

func (p *parser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Col: p.col, Msg: fmt.Sprintf(format, args...)}
}

func isSpace(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

func isDelimiter(r rune) bool {
	switch r {
	case 0, '(', ')', '[', ']', '{', '}', '"', ';':
		return true
	}
	return isSpace(r)
}

// skipSpace consumes whitespace, commas and line comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		r := p.peek()
		switch {
		case isSpace(r):
			p.next()
		case r == ';':
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		default:
			return
		}
	}
}

// form reads one form. Callers have already skipped leading space.
func (p *parser) form() (value.Value, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	r := p.peek()
	switch {
	case r == '{':
		p.next()
		return p.mapForm()
	case r == '[':
		p.next()
		return p.sequence(']', false)
	case r == '(':
		p.next()
		return p.sequence(')', false)
	case r == '"':
		p.next()
		return p.stringForm()
	case r == '\\':
		p.next()
		return p.charForm()
	case r == ':':
		p.next()
		return p.keywordForm()
	case r == '#':
		p.next()
		return p.dispatch()
	case r == ')' || r == ']' || r == '}':
		return nil, p.errorf("unmatched delimiter %q", r)
	case unicode.IsDigit(r):
		return p.numberForm()
	case (r == '+' || r == '-') && unicode.IsDigit(p.peekAt(1)):
		return p.numberForm()
	default:
		return p.symbolForm()
	}
}

// nextForm skips space and discarded forms, then reads a form. It reports
// ok=false when close is found first.
func (p *parser) nextForm(close rune) (value.Value, bool, error) {
	for {
		p.skipSpace()
		if p.eof() {
			return nil, false, p.errorf("unexpected end of input, expected %q", close)
		}
		if p.peek() == close {
			p.next()
			return nil, false, nil
		}
		if p.peek() == '#' && p.peekAt(1) == '_' {
			p.next()
			p.next()
			p.skipSpace()
			if _, err := p.form(); err != nil {
				return nil, false, err
			}
			continue
		}
		v, err := p.form()
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

func (p *parser) sequence(close rune, unique bool) (value.Value, error) {
	out := value.List{}
	seen := map[string]bool{}
	for {
		v, ok, err := p.nextForm(close)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if unique {
			k := v.String()
			if seen[k] {
				return nil, p.errorf("duplicate set element %s", k)
			}
			seen[k] = true
		}
		out = append(out, v)
	}
}

func (p *parser) mapForm() (value.Value, error) {
	out := value.Map{}
	forms := map[string]string{}
	for {
		k, ok, err := p.nextForm('}')
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v, ok, err := p.nextForm('}')
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, p.errorf("map literal must contain an even number of forms")
		}
		key, form := MapKey(k), k.String()
		if prev, dup := forms[key]; dup {
			if prev == form {
				return nil, p.errorf("duplicate map key %s", form)
			}
			return nil, p.errorf("map keys %s and %s collide on %q", prev, form, key)
		}
		forms[key] = form
		out[key] = v
	}
}

// MapKey returns the string form of a map key: the name of a keyword or
// symbol, the content of a string, the literal text of anything else.
func MapKey(k value.Value) string {
	return value.Text(k)
}

func (p *parser) stringForm() (value.Value, error) {
	var b strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated string")
		}
		r := p.next()
		switch r {
		case '"':
			return value.String(b.String()), nil
		case '\\':
			if p.eof() {
				return nil, p.errorf("unterminated string")
			}
			esc := p.next()
			switch esc {
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case 'n':
				b.WriteRune('\n')
			case 'b':
				b.WriteRune('\b')
			case 'f':
				b.WriteRune('\f')
			case '\\', '"':
				b.WriteRune(esc)
			case 'u':
				r, err := p.hex4()
				if err != nil {
					return nil, err
				}
				b.WriteRune(r)
			default:
				return nil, p.errorf("unsupported escape \\%c", esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (p *parser) hex4() (rune, error) {
	if p.pos+4 > len(p.src) {
		return 0, p.errorf("truncated unicode escape")
	}
	digits := string(p.src[p.pos : p.pos+4])
	n, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, p.errorf("invalid unicode escape %q", digits)
	}
	for i := 0; i < 4; i++ {
		p.next()
	}
	return rune(n), nil
}

var namedChars = map[string]rune{
	"newline": '\n',
	"return":  '\r',
	"space":   ' ',
	"tab":     '\t',
}

func (p *parser) charForm() (value.Value, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of input after \\")
	}
	first := p.next()
	var b strings.Builder
	b.WriteRune(first)
	for !isDelimiter(p.peek()) {
		b.WriteRune(p.next())
	}
	tok := b.String()
	if utf8.RuneCountInString(tok) == 1 {
		return value.String(tok), nil
	}
	if r, ok := namedChars[tok]; ok {
		return value.String(string(r)), nil
	}
	if len(tok) == 5 && tok[0] == 'u' {
		if n, err := strconv.ParseUint(tok[1:], 16, 32); err == nil {
			return value.String(string(rune(n))), nil
		}
	}
	return nil, p.errorf("invalid character literal \\%s", tok)
}

func (p *parser) token() string {
	var b strings.Builder
	for !isDelimiter(p.peek()) {
		b.WriteRune(p.next())
	}
	return b.String()
}

func (p *parser) keywordForm() (value.Value, error) {
	name := p.token()
	if name == "" {
		return nil, p.errorf("empty keyword")
	}
	if strings.HasPrefix(name, ":") {
		return nil, p.errorf("auto-resolved keyword ::%s is not supported", name[1:])
	}
	if !validSymbol(name) {
		return nil, p.errorf("invalid keyword :%s", name)
	}
	return value.Keyword(name), nil
}

func (p *parser) symbolForm() (value.Value, error) {
	tok := p.token()
	if tok == "" {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	switch tok {
	case "nil":
		return value.Nil{}, nil
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}
	if !validSymbol(tok) {
		return nil, p.errorf("invalid symbol %q", tok)
	}
	return value.Symbol(tok), nil
}

const symbolPunct = ".*+!-_?$%&=<>/'"

// validSymbol checks a symbol or keyword name. Names may contain letters,
// digits, the punctuation in symbolPunct plus ':' and '#' after the first
// character. A name starting with '+', '-' or '.' cannot continue with a
// digit. At most one '/' may separate a namespace from the name.
func validSymbol(s string) bool {
	if s == "/" {
		return true
	}
	runes := []rune(s)
	first := runes[0]
	if !unicode.IsLetter(first) && !strings.ContainsRune(symbolPunct, first) {
		return false
	}
	if first == '/' || first == '\'' {
		return false
	}
	if (first == '+' || first == '-' || first == '.') && len(runes) > 1 && unicode.IsDigit(runes[1]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' || r == '#' {
			continue
		}
		if !strings.ContainsRune(symbolPunct, r) {
			return false
		}
	}
	if strings.Count(s, "/") > 1 || strings.HasSuffix(s, "/") {
		return false
	}
	return true
}

func (p *parser) numberForm() (value.Value, error) {
	tok := p.token()
	body := tok
	sign := ""
	if body[0] == '+' || body[0] == '-' {
		sign = body[:1]
		body = body[1:]
	}

	switch {
	case strings.HasSuffix(body, "N"):
		digits := body[:len(body)-1]
		if !allDigits(digits) || leadingZero(digits) {
			return nil, p.errorf("invalid number %q", tok)
		}
		n, ok := new(big.Int).SetString(sign+digits, 10)
		if !ok || !n.IsInt64() {
			return nil, p.errorf("integer %q out of range", tok)
		}
		return value.Int(n.Int64()), nil
	case strings.HasSuffix(body, "M"):
		body = body[:len(body)-1]
		wholeNumber := allDigits(body) && !leadingZero(body)
		if !wholeNumber && !floatSyntax(body) {
			return nil, p.errorf("invalid number %q", tok)
		}
		f, err := strconv.ParseFloat(sign+body, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok)
		}
		return value.Float(f), nil
	case allDigits(body):
		if leadingZero(body) {
			return nil, p.errorf("invalid number %q: leading zero", tok)
		}
		n, err := strconv.ParseInt(sign+body, 10, 64)
		if err != nil {
			return nil, p.errorf("integer %q out of range", tok)
		}
		return value.Int(n), nil
	case floatSyntax(body):
		f, err := strconv.ParseFloat(sign+body, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok)
		}
		return value.Float(f), nil
	default:
		return nil, p.errorf("invalid number %q", tok)
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func leadingZero(digits string) bool {
	return len(digits) > 1 && digits[0] == '0'
}

// floatSyntax accepts digits [. digits] [e|E [+|-] digits], with at
// least a fraction or an exponent.
func floatSyntax(s string) bool {
	intPart, rest := splitDigits(s)
	if intPart == "" || leadingZero(intPart) {
		return false
	}
	hasFrac, hasExp := false, false
	if strings.HasPrefix(rest, ".") {
		_, rest = splitDigits(rest[1:])
		hasFrac = true
	}
	if strings.HasPrefix(rest, "e") || strings.HasPrefix(rest, "E") {
		rest = rest[1:]
		if strings.HasPrefix(rest, "+") || strings.HasPrefix(rest, "-") {
			rest = rest[1:]
		}
		var exp string
		exp, rest = splitDigits(rest)
		if exp == "" {
			return false
		}
		hasExp = true
	}
	return rest == "" && (hasFrac || hasExp)
}

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// dispatch handles forms starting with '#'.
func (p *parser) dispatch() (value.Value, error) {
	switch p.peek() {
	case '{':
		p.next()
		return p.sequence('}', true)
	case '_':
		p.next()
		p.skipSpace()
		if _, err := p.form(); err != nil {
			return nil, err
		}
		p.skipSpace()
		return p.form()
	}

	tag := p.token()
	if tag == "" {
		return nil, p.errorf("invalid dispatch character %q", p.peek())
	}
	if tag != RefTag {
		return nil, p.errorf("unknown tag #%s", tag)
	}

	p.skipSpace()
	arg, err := p.form()
	if err != nil {
		return nil, err
	}
	return refFrom(arg, p)
}

func refFrom(arg value.Value, p *parser) (value.Value, error) {
	switch t := arg.(type) {
	case value.Keyword, value.Symbol, value.String:
		return value.Ref{Key: value.Text(t)}, nil
	case value.List:
		if len(t) != 1 && len(t) != 2 {
			return nil, p.errorf("#%s expects [key] or [key fallback]", RefTag)
		}
		switch t[0].(type) {
		case value.Keyword, value.Symbol, value.String:
		default:
			return nil, p.errorf("#%s key must be a keyword, symbol or string", RefTag)
		}
		ref := value.Ref{Key: value.Text(t[0])}
		if len(t) == 2 {
			ref.Fallback = t[1]
		}
		return ref, nil
	default:
		return nil, p.errorf("#%s expects a key, got %s", RefTag, kindOf(arg))
	}
}
