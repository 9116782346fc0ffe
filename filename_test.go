package docconv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		filename, title, ext string
		want                 string
	}{
		{"report.docx", "", ".pdf", "report.pdf"},
		{"/tmp/uploads/report.final.docx", "", ".pdf", "report.final.pdf"},
		{`C:\Users\me\notes.txt`, "", ".html", "notes.html"},
		{"", "Quarterly: results?", ".pdf", "Quarterly_ results.pdf"},
		{"", "", ".png", "document.png"},
		{"..", "", ".txt", "document.txt"},
		{"\x00\x01.doc", "Fallback", ".pdf", "Fallback.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outputName(tt.filename, tt.title, tt.ext), tt.filename+"|"+tt.title)
	}
}

func TestCleanNameLength(t *testing.T) {
	got := cleanName(strings.Repeat("ä", 300))
	assert.Equal(t, maxNameLength, len([]rune(got)))
}
