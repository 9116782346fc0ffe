// Package textpdf writes plain paragraphs as a paginated PDF. The text is set
// in an embedded Go Regular subset, so it stays selectable and extractable in
// any script the font covers.
package textpdf

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

const family = "goregular"

// Options controls page geometry. Zero fields take US Letter defaults.
type Options struct {
	PageWidth  float64 // points (default 612)
	PageHeight float64 // points (default 792)
	Margin     float64 // points (default 72)
	FontSize   float64 // points (default 11)
	Leading    float64 // line advance (default 1.4 * FontSize)
	Title      string
	Producer   string
	// Created stamps the document info; zero means now.
	Created time.Time
}

func (o *Options) defaults() {
	if o.PageWidth <= 0 {
		o.PageWidth = 612
	}
	if o.PageHeight <= 0 {
		o.PageHeight = 792
	}
	if o.Margin <= 0 {
		o.Margin = 72
	}
	if o.FontSize <= 0 {
		o.FontSize = 11
	}
	if o.Leading <= 0 {
		o.Leading = o.FontSize * 1.4
	}
	if o.Producer == "" {
		o.Producer = "docconv"
	}
	if o.Created.IsZero() {
		o.Created = time.Now()
	}
}

// Stats describes a written document.
type Stats struct {
	Pages int
	// Missing counts the characters the embedded font has no glyph for. They
	// are kept in the text layer but print as blanks.
	Missing int
}

// Write renders paragraphs to w as a PDF document. An empty paragraph list
// still produces one blank page.
func Write(w io.Writer, paragraphs []string, opts Options) (Stats, error) {
	opts.defaults()

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: opts.PageWidth, Ht: opts.PageHeight},
	})
	doc.SetTitle(opts.Title, true)
	doc.SetProducer(opts.Producer, true)
	doc.SetCreator(opts.Producer, true)
	doc.SetCreationDate(opts.Created)
	doc.SetMargins(opts.Margin, opts.Margin, opts.Margin)
	doc.SetAutoPageBreak(true, opts.Margin)
	doc.SetCellMargin(0)
	doc.AddUTF8FontFromBytes(family, "", goregular.TTF)
	doc.SetFont(family, "", opts.FontSize)
	doc.AddPage()

	var stats Stats
	for i, p := range paragraphs {
		p, missing := coverable(p)
		stats.Missing += missing
		if i > 0 {
			doc.Ln(opts.Leading * 0.6)
		}
		doc.MultiCell(0, opts.Leading, p, "", "L", false)
	}
	stats.Pages = doc.PageCount()

	if err := doc.Output(w); err != nil {
		return Stats{}, fmt.Errorf("write pdf: %w", err)
	}
	return stats, nil
}

// Bytes is Write into a fresh buffer.
func Bytes(paragraphs []string, opts Options) ([]byte, Stats, error) {
	var buf bytes.Buffer
	stats, err := Write(&buf, paragraphs, opts)
	if err != nil {
		return nil, Stats{}, err
	}
	return buf.Bytes(), stats, nil
}

var (
	faceOnce sync.Once
	face     *sfnt.Font
)

// Covered reports whether the embedded font has a glyph for r.
func Covered(r rune) bool {
	faceOnce.Do(func() {
		face, _ = sfnt.Parse(goregular.TTF)
	})
	if face == nil {
		return false
	}
	var buf sfnt.Buffer
	idx, err := face.GlyphIndex(&buf, r)
	return err == nil && idx != 0
}

// coverable counts the characters of s without a glyph. Characters beyond
// the Basic Multilingual Plane cannot be addressed by the font encoding at
// all and become U+FFFD.
func coverable(s string) (string, int) {
	missing := 0
	astral := false
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if r > 0xFFFF {
			astral = true
		}
		if !Covered(r) {
			missing++
		}
	}
	if !astral {
		return s, missing
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFFFF {
			r = utf8.RuneError
		}
		out = utf8.AppendRune(out, r)
	}
	return string(out), missing
}
