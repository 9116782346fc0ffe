package textpdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSinglePage(t *testing.T) {
	data, stats, err := Bytes([]string{"Hello", "World"}, Options{Title: "greeting"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data[len(data)-16:]), "%%EOF")
	assert.Equal(t, Stats{Pages: 1}, stats)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumPage())

	var text strings.Builder
	for _, row := range mustRows(t, r.Page(1)) {
		for _, w := range row.Content {
			text.WriteString(w.S)
		}
		text.WriteString("\n")
	}
	assert.Contains(t, text.String(), "Hello")
	assert.Contains(t, text.String(), "World")
}

func mustRows(t *testing.T, p pdf.Page) pdf.Rows {
	t.Helper()
	rows, err := p.GetTextByRow()
	require.NoError(t, err)
	return rows
}

func TestPagination(t *testing.T) {
	paragraphs := make([]string, 120)
	for i := range paragraphs {
		paragraphs[i] = "Paragraph text that is long enough to matter but fits on a line."
	}
	data, stats, err := Bytes(paragraphs, Options{})
	require.NoError(t, err)
	require.Greater(t, stats.Pages, 1)

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, stats.Pages, r.NumPage())
}

func TestLongParagraphWraps(t *testing.T) {
	long := strings.Repeat("wrapping words ", 400)
	_, stats, err := Bytes([]string{long}, Options{})
	require.NoError(t, err)
	assert.Greater(t, stats.Pages, 1)
}

func TestEmptyDocumentHasOnePage(t *testing.T) {
	data, stats, err := Bytes(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumPage())
}

func TestCoverage(t *testing.T) {
	for _, r := range "Aé€Жжλß" {
		assert.True(t, Covered(r), "%q", r)
	}
	for _, r := range "你好世界" {
		assert.False(t, Covered(r), "%q", r)
	}

	_, stats, err := Bytes([]string{"Привет мир", "Γειά σου"}, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.Missing)

	_, stats, err = Bytes([]string{"mixed 你好 text"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Missing)
}

func TestAstralRunesReplaced(t *testing.T) {
	s, missing := coverable("ok \U0001F600")
	assert.Equal(t, "ok �", s)
	assert.Equal(t, 1, missing)
}
