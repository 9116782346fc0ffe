package docconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"emoji dropped", "Hello 👋 world 🇩🇪!", "Hello world !"},
		{"zwj sequence dropped", "family 👨‍👩‍👧 photo", "family photo"},
		{"control characters", "a\x00b\x07c", "abc"},
		{"tabs and space runs", "a\t\tb    c", "a b c"},
		{"trailing whitespace", "line   \nnext\t\n", "line\nnext"},
		{"paragraphs kept", "one\n\n\n\n\ntwo", "one\n\ntwo"},
		{"nfc", "é", "é"},
		{"invalid utf8", "ok\xffok", "okok"},
		{"only pictographs", "🙂🙂 ✅", ""},
		{"cjk kept", "日本語のテキスト", "日本語のテキスト"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}

func TestSanitizeTextIdempotent(t *testing.T) {
	in := "  Title 🎉\r\n\r\n\r\nBody\ttext  \n"
	once := SanitizeText(in)
	assert.Equal(t, once, SanitizeText(once))
}
