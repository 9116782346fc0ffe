// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const contentTypesXML = xmlHeader +
	`<Types xmlns="` + NSContentTypes + `">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="` + ContentTypeDocument + `"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const stylesXML = xmlHeader +
	`<w:styles xmlns:w="` + NSWordprocessingML + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:sz w:val="22"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="160" w:line="259" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/>` +
	`<w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>` +
	`</w:styles>`

// WriteDocument writes doc as a minimal .docx package. The title, when set,
// becomes the first paragraph in the Title style and the core title
// property. Newlines inside a paragraph become line breaks.
func WriteDocument(w io.Writer, doc *Document) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body func() ([]byte, error)
	}{
		{"[Content_Types].xml", static(contentTypesXML)},
		{"_rels/.rels", func() ([]byte, error) {
			return relsXML([]Relationship{
				{ID: "rId1", Type: RelOfficeDocument, Target: DefaultDocumentPart},
				{ID: "rId2", Type: RelCoreProperties, Target: "docProps/core.xml"},
			})
		}},
		{"word/_rels/document.xml.rels", func() ([]byte, error) {
			return relsXML([]Relationship{{ID: "rId1", Type: RelStyles, Target: "styles.xml"}})
		}},
		{"word/styles.xml", static(stylesXML)},
		{DefaultDocumentPart, func() ([]byte, error) { return documentXML(doc), nil }},
		{"docProps/core.xml", func() ([]byte, error) { return coreXML(doc.Title), nil }},
	}

	for _, p := range parts {
		body, err := p.body()
		if err != nil {
			return fmt.Errorf("build %s: %w", p.name, err)
		}
		f, err := zw.Create(p.name)
		if err != nil {
			return err
		}
		if _, err := f.Write(body); err != nil {
			return err
		}
	}
	return zw.Close()
}

// DocumentBytes is WriteDocument into a fresh buffer.
func DocumentBytes(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func static(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}

func relsXML(rels []Relationship) ([]byte, error) {
	out, err := xml.Marshal(Relationships{Xmlns: NSRelationships, Relationships: rels})
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), out...), nil
}

func documentXML(doc *Document) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="` + NSWordprocessingML + `" xmlns:r="` + NSRelDoc + `"><w:body>`)
	if doc.Title != "" {
		b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr>`)
		writeRun(&b, doc.Title)
		b.WriteString(`</w:p>`)
	}
	for _, p := range doc.Paragraphs {
		b.WriteString(`<w:p>`)
		writeRun(&b, p)
		b.WriteString(`</w:p>`)
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

func writeRun(b *bytes.Buffer, text string) {
	b.WriteString(`<w:r>`)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(b, []byte(line))
		b.WriteString(`</w:t>`)
	}
	b.WriteString(`</w:r>`)
}

func coreXML(title string) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<cp:coreProperties xmlns:cp="` + NSCoreProperties + `" xmlns:dc="http://purl.org/dc/elements/1.1/" ` +
		`xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if title != "" {
		b.WriteString(`<dc:title>`)
		xml.EscapeText(&b, []byte(title))
		b.WriteString(`</dc:title>`)
	}
	b.WriteString(`<dc:creator>docconv</dc:creator>`)
	fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, time.Now().UTC().Format(time.RFC3339))
	b.WriteString(`</cp:coreProperties>`)
	return b.Bytes()
}
