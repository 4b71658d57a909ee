package quoting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"no quotes", "hello", "hello"},
		{"single quote", "it's", "it''s"},
		{"multiple quotes", "a'b'c", "a''b''c"},
		{"backslash", `hello\world`, `hello\\world`},
		{"injection attempt", "'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeString(tt.input))
		})
	}
}

func TestEscapeStandardString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "it''s", EscapeStandardString("it's"))
	assert.Equal(t, `a\b`, EscapeStandardString(`a\b`))
}

func TestIdentifierQuoting(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		quote func(string) string
		input string
		want  string
	}{
		{"double simple", DoubleQuote, "users", `"users"`},
		{"double embedded", DoubleQuote, `us"ers`, `"us""ers"`},
		{"double injection", DoubleQuote, `users"."passwords`, `"users"".""passwords"`},
		{"backtick simple", Backtick, "users", "`users`"},
		{"backtick embedded", Backtick, "us`ers", "`us``ers`"},
		{"brackets simple", Brackets, "users", "[users]"},
		{"brackets embedded", Brackets, "us]ers", "[us]]ers]"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.quote(tt.input))
		})
	}
}

func TestEscapeLikePattern(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"abc", "abc"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`a\b`, `a\\b`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeLikePattern(tt.input))
		})
	}
}

func TestSplitName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"table"}, SplitName("table"))
	assert.Equal(t, []string{"public", "table"}, SplitName("public.table"))
	assert.Equal(t, []string{`"my.schema"`, "t"}, SplitName(`"my.schema".t`, `""`))
	assert.Equal(t, []string{"`a.b`", "c"}, SplitName("`a.b`.c", "``"))
}
