package layout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "Hello", []string{"Hello"}},
		{"blank line separates", "Hello\n\nWorld", []string{"Hello", "World"}},
		{"inner newline joins", "one\ntwo\n\n\n\nthree", []string{"one two", "three"}},
		{"whitespace collapses", "  a \t  b  \n   \n c", []string{"a b", "c"}},
		{"crlf", "a\r\n\r\nb", []string{"a", "b"}},
		{"empty", "  \n\n ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paragraphs(tt.input))
		})
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  []string
	}{
		{"fits", "hello world", 20, []string{"hello world"}},
		{"breaks at spaces", "the quick brown fox", 10, []string{"the quick", "brown fox"}},
		{"hard split long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"long word after text", "hi abcdefgh yo", 4, []string{"hi", "abcd", "efgh", "yo"}},
		{"exact width", "abcd efgh", 4, []string{"abcd", "efgh"}},
		{"multibyte", "żółw żółw", 4, []string{"żółw", "żółw"}},
		{"empty", "", 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.input, tt.width)
			assert.Equal(t, tt.want, got)
			for _, line := range got {
				assert.LessOrEqual(t, utf8.RuneCountInString(line), tt.width)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("short", 100)
	assert.False(t, cut)
	assert.Equal(t, "short", s)

	long := strings.Repeat("word ", 100)
	s, cut = Truncate(long, 52)
	assert.True(t, cut)
	assert.LessOrEqual(t, utf8.RuneCountInString(s), 52)
	assert.False(t, strings.HasSuffix(s, " "))
	assert.True(t, strings.HasSuffix(s, "word"))
}
