package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/nicholasgasior/docconv-go/internal/layout"
	"github.com/nicholasgasior/docconv-go/internal/ooxml"
	"github.com/nicholasgasior/docconv-go/internal/render"
	"github.com/nicholasgasior/docconv-go/internal/textpdf"
)

// content extracts and sanitizes the text of the input. An empty text with a
// nil error means the source had nothing readable. budget bounds how much
// text paged sources are read for; zero reads everything.
func content(in *Input, budget int) (*extraction, string, error) {
	ex, err := extract(in.Data, in.Source, budget)
	if err != nil {
		return nil, "", err
	}
	if ex.Title == "" {
		ex.Title = in.Title
	}
	return ex, SanitizeText(ex.Text), nil
}

// TextPDF writes the extracted text of any textual source as a plain
// paginated PDF. It is the minimal local fallback for X→pdf.
type TextPDF struct{}

func (TextPDF) Name() string      { return BackendTextPDF }
func (TextPDF) Kind() BackendKind { return KindFallback }

func (TextPDF) Convert(_ context.Context, in *Input) ([]byte, error) {
	ex, text, err := content(in, 0)
	if err != nil {
		return nil, err
	}
	paragraphs := layout.Paragraphs(text)
	if len(paragraphs) == 0 {
		paragraphs = []string{render.Placeholder}
		in.MarkDegraded()
	}
	data, stats, err := textpdf.Bytes(paragraphs, textpdf.Options{Title: ex.Title})
	if err != nil {
		return nil, err
	}
	if stats.Missing > 0 {
		// The characters survive in the text layer but print as blanks.
		in.MarkDegraded()
	}
	return data, nil
}

// DocxWriter writes the extracted paragraphs as a minimal .docx package.
type DocxWriter struct{}

func (DocxWriter) Name() string      { return BackendDocxWriter }
func (DocxWriter) Kind() BackendKind { return KindFallback }

func (DocxWriter) Convert(_ context.Context, in *Input) ([]byte, error) {
	ex, text, err := content(in, 0)
	if err != nil {
		return nil, err
	}
	paragraphs := layout.Paragraphs(text)
	if len(paragraphs) == 0 {
		return nil, errors.New("no text to write")
	}
	return ooxml.DocumentBytes(&ooxml.Document{Title: ex.Title, Paragraphs: paragraphs})
}

// Markup renders plain text as a standalone HTML document. Blank lines
// separate paragraphs and the text is escaped, so markdown-looking input is
// not interpreted beyond paragraphs and line breaks.
type Markup struct {
	md goldmark.Markdown
}

// NewMarkup returns a Markup backend.
func NewMarkup() *Markup {
	return &Markup{md: goldmark.New(
		goldmark.WithExtensions(extension.Linkify),
		goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
	)}
}

func (*Markup) Name() string      { return BackendMarkup }
func (*Markup) Kind() BackendKind { return KindLocal }

func (m *Markup) Convert(_ context.Context, in *Input) ([]byte, error) {
	ex, text, err := content(in, 0)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("no text to render")
	}
	body, err := m.body(text)
	if err != nil {
		return nil, err
	}
	return htmlDocument(ex.Title, body), nil
}

// body converts text to an HTML fragment. Markdown syntax is neutralized by
// escaping each paragraph before goldmark sees it.
func (m *Markup) body(text string) ([]byte, error) {
	var src strings.Builder
	for _, p := range strings.Split(text, "\n\n") {
		lines := strings.Split(p, "\n")
		for i, l := range lines {
			lines[i] = escapeMarkdown(l)
		}
		src.WriteString(strings.Join(lines, "\n"))
		src.WriteString("\n\n")
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src.String()), &buf); err != nil {
		return nil, fmt.Errorf("render markup: %w", err)
	}
	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"#", `\#`, "<", "&lt;", ">", "&gt;", "|", `\|`, "~", `\~`,
)

func escapeMarkdown(line string) string {
	line = markdownEscaper.Replace(line)
	// Leading list and quote markers.
	trimmed := strings.TrimLeft(line, " ")
	if len(trimmed) > 0 && strings.ContainsRune("-+=", rune(trimmed[0])) {
		line = strings.Repeat(" ", len(line)-len(trimmed)) + `\` + trimmed
	}
	if i := strings.IndexFunc(trimmed, func(r rune) bool { return r < '0' || r > '9' }); i > 0 && (trimmed[i] == '.' || trimmed[i] == ')') {
		line = strings.Replace(line, trimmed[i:i+1], `\`+trimmed[i:i+1], 1)
	}
	return line
}

func htmlDocument(title string, body []byte) []byte {
	if title == "" {
		title = "Document"
	}
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>body{font-family:sans-serif;max-width:46em;margin:2em auto;line-height:1.5;padding:0 1em}</style>\n</head>\n<body>\n")
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}

// TextExtract is the X→text backend over the built-in extractors.
type TextExtract struct{}

func (TextExtract) Name() string      { return BackendTextExtract }
func (TextExtract) Kind() BackendKind { return KindLocal }

func (TextExtract) Convert(_ context.Context, in *Input) ([]byte, error) {
	_, text, err := content(in, 0)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("no extractable text")
	}
	return []byte(text + "\n"), nil
}
