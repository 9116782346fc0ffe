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

package docconv

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/nicholasgasior/docconv-go/internal/ooxml"
)

// extraction is the text recovered from a source document.
type extraction struct {
	Title string
	Text  string
	// Pages is the source page count when the format has pages and it could
	// be determined.
	Pages int
}

// extract recovers plain text from data. The text is not yet sanitized.
// Images have no text; extract returns an empty extraction for them. A
// positive budget lets paged sources stop once that many characters are in.
func extract(data []byte, src Format, budget int) (*extraction, error) {
	switch src {
	case FormatText:
		return &extraction{Text: decodeText(data, "")}, nil
	case FormatHTML:
		return extractHTML(data)
	case FormatPDF:
		return extractPDF(data, budget)
	case FormatDocx:
		doc, err := ooxml.ReadDocument(data)
		if err != nil {
			return nil, fmt.Errorf("read docx: %w", err)
		}
		return &extraction{Title: doc.Title, Text: doc.Text()}, nil
	case FormatDoc:
		if bytes.HasPrefix(data, sigRTF) {
			return &extraction{Text: rtfText(data)}, nil
		}
		text, err := extractDocText(data)
		if err != nil {
			return nil, fmt.Errorf("read doc: %w", err)
		}
		return &extraction{Text: text}, nil
	case FormatImage:
		return &extraction{}, nil
	}
	return nil, fmt.Errorf("no text extractor for %s", src)
}

// sanitizePolicy strips scripts, styles and event handlers before HTML is
// read or rendered.
var sanitizePolicy = bluemonday.UGCPolicy()

var reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)

func extractHTML(data []byte) (*extraction, error) {
	src := decodeText(data, htmlCharset(data))
	title := htmlTitle(src)

	md, err := htmlToMarkdown(sanitizePolicy.Sanitize(src))
	if err != nil {
		return nil, fmt.Errorf("convert HTML: %w", err)
	}
	return &extraction{Title: title, Text: reDataURI.ReplaceAllString(md, "${1}...")}, nil
}

func htmlToMarkdown(s string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(s)
}

var reMetaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-z0-9_-]+)`)

func htmlCharset(data []byte) string {
	if m := reMetaCharset.FindSubmatch(data[:min(len(data), 2048)]); m != nil {
		return string(m[1])
	}
	return ""
}

// htmlTitle returns the text of the first <title> element.
func htmlTitle(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}
	var title string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	return strings.TrimSpace(title)
}

// extractPDF reads the text layer with ledongthuc/pdf. When that reader
// rejects the file, finds no text or decodes it to control characters, the
// page content streams are scanned through pdfcpu, which copes with more
// damaged cross-reference tables. pdfcpu also wins for composite fonts that
// address glyphs by Unicode code point, which ledongthuc misreads outside
// Latin-1. Pages are read until budget characters are collected; zero reads
// them all.
func extractPDF(data []byte, budget int) (*extraction, error) {
	out := &extraction{}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		out.Pages = r.NumPage()
		out.Title = pdfTitle(r)

		var b strings.Builder
		n := 0
		for i := 1; i <= r.NumPage(); i++ {
			if budget > 0 && n >= budget {
				break
			}
			page := r.Page(i)
			if page.V.IsNull() {
				continue
			}
			if text := strings.TrimSpace(pdfPageText(page)); text != "" {
				b.WriteString(text)
				b.WriteString("\n\n")
				n += utf8.RuneCountInString(text)
			}
		}
		out.Text = b.String()
	}
	if strings.TrimSpace(out.Text) != "" && !garbled(out.Text) && !bytes.Contains(data, identityH) {
		return out, nil
	}

	ctx, cerr := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if cerr != nil {
		if err != nil {
			return nil, fmt.Errorf("open PDF: %w", errors.Join(err, cerr))
		}
		return out, nil
	}
	out.Pages = ctx.PageCount
	text, wide := pdfStreamText(ctx, budget)
	switch {
	case strings.TrimSpace(out.Text) == "":
		out.Text = text
	case strings.TrimSpace(text) == "":
	case wide || garbled(out.Text) && !garbled(text):
		out.Text = text
	}
	return out, nil
}

var identityH = []byte("/Identity-H")

// garbled reports whether more than one in fifty runes of s is a control
// character or a replacement mark, which is what a misread font encoding
// looks like.
func garbled(s string) bool {
	bad, total := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if r == utf8.RuneError || unicode.IsControl(r) {
			bad++
		}
	}
	return total > 0 && bad*50 > total
}

func pdfTitle(r *pdf.Reader) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

// pdfPageText reads a page row by row, falling back to position-based
// grouping of the raw text runs when rows come back empty.
func pdfPageText(page pdf.Page) (text string) {
	defer func() {
		// The reader panics on some malformed content streams.
		if r := recover(); r != nil {
			text = ""
		}
	}()

	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		var b strings.Builder
		for _, row := range rows {
			var line strings.Builder
			gap := false
			for _, w := range row.Content {
				if w.S == "" {
					gap = true
					continue
				}
				if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
					line.WriteByte(' ')
				}
				line.WriteString(w.S)
				gap = false
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				b.WriteString(s)
				b.WriteByte('\n')
			}
		}
		if strings.TrimSpace(b.String()) != "" {
			return b.String()
		}
	}
	return pdfRunsText(page.Content().Text)
}

type pdfLine struct {
	y    float64
	runs []pdf.Text
}

func pdfRunsText(runs []pdf.Text) string {
	var lines []pdfLine
	for _, t := range runs {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		tol := 3.0
		if t.FontSize > 0 {
			tol = t.FontSize * 0.3
		}
		placed := false
		for i := range lines {
			if d := lines[i].y - t.Y; d < tol && d > -tol {
				lines[i].runs = append(lines[i].runs, t)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, pdfLine{y: t.Y, runs: []pdf.Text{t}})
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var b strings.Builder
	for _, l := range lines {
		sort.Slice(l.runs, func(i, j int) bool { return l.runs[i].X < l.runs[j].X })
		var end float64
		for i, t := range l.runs {
			if i > 0 && t.X-end > max(t.FontSize*0.2, 1) {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			end = t.X + float64(len([]rune(t.S)))*t.FontSize*0.55
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// rtfDestinations are groups whose content is not document text.
var rtfDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true, "pict": true,
	"header": true, "footer": true, "object": true, "listtable": true, "rsidtbl": true,
}

// rtfText is a rough RTF reader for .doc files that are really RTF, which
// several editors produce. Formatting is discarded.
func rtfText(data []byte) string {
	var (
		b     strings.Builder
		depth int
		skip  int // depth of the destination group being skipped, 0 if none
	)
	emit := func(r rune) {
		if skip == 0 {
			b.WriteRune(r)
		}
	}
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch c {
		case '{':
			depth++
			if skip == 0 && i+2 < len(data) && data[i+1] == '\\' && data[i+2] == '*' {
				skip = depth
			}
		case '}':
			if skip == depth {
				skip = 0
			}
			depth--
		case '\r', '\n':
		case '\\':
			if i+1 >= len(data) {
				break
			}
			next := data[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				emit(rune(next))
				i++
			case next == '\'':
				if i+3 < len(data) {
					if v, err := strconv.ParseUint(string(data[i+2:i+4]), 16, 8); err == nil {
						emit(charmap.Windows1252.DecodeByte(byte(v)))
					}
				}
				i += 3
			case isASCIILetter(next):
				j := i + 1
				for j < len(data) && isASCIILetter(data[j]) {
					j++
				}
				word := string(data[i+1 : j])
				k := j
				if k < len(data) && data[k] == '-' {
					k++
				}
				for k < len(data) && data[k] >= '0' && data[k] <= '9' {
					k++
				}
				param := string(data[j:k])
				if k < len(data) && data[k] == ' ' {
					k++
				}
				i = k - 1

				switch {
				case word == "par" || word == "line" || word == "sect" || word == "page":
					emit('\n')
				case word == "tab" || word == "cell":
					emit(' ')
				case word == "row":
					emit('\n')
				case word == "u":
					if n, err := strconv.Atoi(param); err == nil {
						if n < 0 {
							n += 65536
						}
						emit(rune(n))
						if i+1 < len(data) && data[i+1] == '?' {
							i++
						}
					}
				case rtfDestinations[word] && skip == 0:
					skip = depth
				}
			default:
				if next == '~' {
					emit(' ')
				}
				i++
			}
		default:
			emit(rune(c))
		}
	}
	return b.String()
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
