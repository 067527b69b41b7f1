package literal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azhovan/strata/value"
)

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		input string
		want  value.Value
	}{
		{"123", value.Int(123)},
		{"-7", value.Int(-7)},
		{"+7", value.Int(7)},
		{"0", value.Int(0)},
		{"42N", value.Int(42)},
		{"1.5", value.Float(1.5)},
		{"-0.25", value.Float(-0.25)},
		{"6.02e23", value.Float(6.02e23)},
		{"1E3", value.Float(1000)},
		{"12M", value.Float(12)},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
		{"nil", value.Nil{}},
		{`"hello"`, value.String("hello")},
		{`"tab\there \"q\" é"`, value.String("tab\there \"q\" é")},
		{`\a`, value.String("a")},
		{`\newline`, value.String("\n")},
		{":blah", value.Keyword("blah")},
		{":log-level", value.Keyword("log-level")},
		{":ns/name", value.Keyword("ns/name")},
		{"abcdef", value.Symbol("abcdef")},
		{"-", value.Symbol("-")},
		{"localhost:8080", value.Symbol("localhost:8080")},
		{"  ; leading comment\n 5 ; trailing\n", value.Int(5)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Collections(t *testing.T) {
	got, err := ParseString(`{:port 5000
		:hosts ["a", "b"]
		:pair (1 2)
		:tags #{:x :y}
		"quoted key" true
		:nested {:level :debug}
		#_ :skipped #_ 1
		:last nil}`)
	require.NoError(t, err)

	assert.Equal(t, value.Map{
		"port":       value.Int(5000),
		"hosts":      value.List{value.String("a"), value.String("b")},
		"pair":       value.List{value.Int(1), value.Int(2)},
		"tags":       value.List{value.Keyword("x"), value.Keyword("y")},
		"quoted key": value.Bool(true),
		"nested":     value.Map{"level": value.Keyword("debug")},
		"last":       value.Nil{},
	}, got)
}

func TestParse_Ref(t *testing.T) {
	tests := []struct {
		input string
		want  value.Value
	}{
		{"#conf/ref :port", value.Ref{Key: "port"}},
		{"#conf/ref port", value.Ref{Key: "port"}},
		{`#conf/ref "port"`, value.Ref{Key: "port"}},
		{"#conf/ref [:port]", value.Ref{Key: "port"}},
		{"#conf/ref [:port 8080]", value.Ref{Key: "port", Fallback: value.Int(8080)}},
		{`#conf/ref [:url #conf/ref :other]`, value.Ref{Key: "url", Fallback: value.Ref{Key: "other"}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"abc def",
		"123 456",
		"007",
		"1.5.2",
		"10s",
		"[1 2",
		"{:a}",
		"{:a 1 :a 2}",
		"#{1 1}",
		")",
		`"unterminated`,
		`"bad \q escape"`,
		"::auto",
		":",
		"#foo bar",
		"#conf/ref 12",
		"#conf/ref [1 2]",
		"#conf/ref [:a 1 2]",
		"sql://dev.fake/foobar",
		"99999999999999999999",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseString(input)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr), "want *SyntaxError, got %T", err)
		})
	}
}

func TestParse_MapKeyCollision(t *testing.T) {
	_, err := ParseString(`{:a 1 "a" 2}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `map keys :a and "a" collide on "a"`)

	_, err = ParseString("{:a 1 :a 2}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate map key :a")
}

func TestSyntaxError_Position(t *testing.T) {
	_, err := ParseString("{:a 1\n :b }")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, 2, syntaxErr.Line)
	assert.Contains(t, syntaxErr.Error(), "even number of forms")
}

func TestParseMap(t *testing.T) {
	t.Run("map body", func(t *testing.T) {
		m, err := ParseMap([]byte("{:port 5000}"))
		require.NoError(t, err)
		assert.Equal(t, value.Map{"port": value.Int(5000)}, m)
	})

	t.Run("empty body", func(t *testing.T) {
		m, err := ParseMap([]byte("  ; only a comment\n"))
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("nil body", func(t *testing.T) {
		m, err := ParseMap([]byte("nil"))
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("non-map body", func(t *testing.T) {
		_, err := ParseMap([]byte("[1 2]"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a map, got list")
	})

	t.Run("two forms", func(t *testing.T) {
		_, err := ParseMap([]byte("{:a 1} {:b 2}"))
		require.Error(t, err)
	})
}

func TestParse_RoundTripsRendering(t *testing.T) {
	inputs := []string{
		`{:a 1, :b [1.5 "x" :k nil], :c #conf/ref [:a 2]}`,
		`[true false sym/name]`,
	}
	for _, input := range inputs {
		v, err := ParseString(input)
		require.NoError(t, err)

		again, err := ParseString(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, again)
	}
}
