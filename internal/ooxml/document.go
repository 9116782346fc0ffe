package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Document is the text content of a WordprocessingML package.
type Document struct {
	Title      string
	Paragraphs []string
}

// Text joins the paragraphs with blank lines.
func (d *Document) Text() string {
	return strings.Join(d.Paragraphs, "\n\n")
}

// ReadDocument extracts paragraph text from a .docx package. Table cells
// become paragraphs of their own; tabs become spaces and breaks become
// newlines. Empty paragraphs are dropped.
func ReadDocument(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	part := PartByType(zr, RelOfficeDocument)
	if part == "" {
		part = DefaultDocumentPart
	}
	body, err := ReadFile(zr, part)
	if err != nil {
		return nil, err
	}

	paragraphs, err := paragraphText(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", part, err)
	}

	doc := &Document{Paragraphs: paragraphs}
	if core := PartByType(zr, RelCoreProperties); core != "" {
		if b, err := ReadFile(zr, core); err == nil {
			doc.Title = coreTitle(b)
		}
	}
	return doc, nil
}

func paragraphText(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		inText bool
		depth  int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != NSWordprocessingML {
				continue
			}
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				inText = true
			case "tab":
				cur.WriteByte(' ')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != NSWordprocessingML {
				continue
			}
			switch t.Name.Local {
			case "p":
				depth--
				if depth <= 0 {
					depth = 0
					flush()
				}
			case "t":
				inText = false
			case "tc":
				flush()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	flush()
	return out, nil
}

// coreTitle returns dc:title from docProps/core.xml.
func coreTitle(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	inTitle := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inTitle = t.Name.Local == "title"
		case xml.EndElement:
			if inTitle {
				return ""
			}
		case xml.CharData:
			if inTitle {
				return strings.TrimSpace(string(t))
			}
		}
	}
}
