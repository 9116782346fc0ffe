package ooxml

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadDocument(t *testing.T) {
	data, err := DocumentBytes(&Document{
		Title:      "Quarterly <Report>",
		Paragraphs: []string{"Hello & welcome", "line one\nline two", "Zażółć gęślą jaźń"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04", string(data[:4]))

	doc, err := ReadDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly <Report>", doc.Title)
	assert.Equal(t, []string{
		"Quarterly <Report>",
		"Hello & welcome",
		"line one\nline two",
		"Zażółć gęślą jaźń",
	}, doc.Paragraphs)
}

func TestReadDocumentTablesAndTabs(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Name</w:t><w:tab/><w:t>Value</w:t></w:r></w:p>
<w:tbl><w:tr>
<w:tc><w:p><w:r><w:t>cell </w:t></w:r><w:r><w:t>one</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>cell two</w:t></w:r></w:p></w:tc>
</w:tr></w:tbl>
<w:p></w:p>
</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(DefaultDocumentPart)
	require.NoError(t, err)
	_, err = f.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	doc, err := ReadDocument(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name Value", "cell one", "cell two"}, doc.Paragraphs)
	assert.Empty(t, doc.Title)
	assert.Equal(t, "Name Value\n\ncell one\n\ncell two", doc.Text())
}

func TestReadDocumentRejectsGarbage(t *testing.T) {
	_, err := ReadDocument([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = ReadDocument(buf.Bytes())
	assert.Error(t, err)
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "word/document.xml", ResolveTarget("", "word/document.xml"))
	assert.Equal(t, "word/media/a.png", ResolveTarget("word/document.xml", "media/a.png"))
	assert.Equal(t, "word/document.xml", ResolveTarget("x/y.xml", "/word/document.xml"))
	assert.Equal(t, "word/_rels/document.xml.rels", RelsPathFor("word/document.xml"))
}
