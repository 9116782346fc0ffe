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

// Package render lays plain text onto a single fixed-size page and rasterizes
// it. It backs the last-resort "show me something" conversion to an image.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/nicholasgasior/docconv-go/internal/layout"
)

// Placeholder is rendered when no text could be extracted from the source.
const Placeholder = "The content of this file could not be extracted as text. " +
	"This preview was generated automatically from the file's metadata."

// Config describes the page geometry. Zero fields take defaults.
type Config struct {
	Width        int // page width in pixels (default 1240)
	Height       int // page height in pixels (default 1754)
	Margin       int // left/right margin (default 72)
	HeaderHeight int // header band (default 150)
	FooterHeight int // footer band (default 90)
	LineHeight   int // content line advance (default 30)
	ParagraphGap int // extra space between paragraphs (default 14)
	CharsPerLine int // wrap budget in characters (default 86)
	TextBudget   int // characters of source text considered (default 4000)
	FontSize     float64
}

// DefaultTextBudget is the number of source characters a page considers.
const DefaultTextBudget = 4000

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1240
	}
	if c.Height <= 0 {
		c.Height = 1754
	}
	if c.Margin <= 0 {
		c.Margin = 72
	}
	if c.HeaderHeight <= 0 {
		c.HeaderHeight = 150
	}
	if c.FooterHeight <= 0 {
		c.FooterHeight = 90
	}
	if c.LineHeight <= 0 {
		c.LineHeight = 30
	}
	if c.ParagraphGap < 0 {
		c.ParagraphGap = 0
	} else if c.ParagraphGap == 0 {
		c.ParagraphGap = 14
	}
	if c.CharsPerLine <= 0 {
		c.CharsPerLine = 86
	}
	if c.TextBudget <= 0 {
		c.TextBudget = DefaultTextBudget
	}
	if c.FontSize <= 0 {
		c.FontSize = 20
	}
}

// Meta is shown in the header and footer bands.
type Meta struct {
	Status      string // e.g. "Preview: original layout could not be converted"
	Source      string // source format or file name
	Title       string
	Pages       int // source page count, 0 if unknown
	Generated   time.Time
	Attribution string
}

// Line is one laid-out content line. Offset is the distance from the top of
// the content band.
type Line struct {
	Text   string
	Offset int
}

// Page is a laid-out page ready for rasterization.
type Page struct {
	Header      []string
	Lines       []Line
	Footer      string
	Truncated   bool
	Placeholder bool
}

// Layout normalizes text, wraps each paragraph and places lines top to
// bottom until the content band is full. Overflow is dropped: the page
// carries a trailing ellipsis and Truncated is set.
func Layout(text string, meta Meta, cfg Config) *Page {
	cfg.defaults()

	p := &Page{
		Header: headerLines(meta),
		Footer: footerLine(meta),
	}

	text, cut := layout.Truncate(text, cfg.TextBudget)
	paragraphs := layout.Paragraphs(text)
	if len(paragraphs) == 0 {
		paragraphs = []string{Placeholder}
		p.Placeholder = true
	}

	band := cfg.Height - cfg.HeaderHeight - cfg.FooterHeight - 2*cfg.LineHeight
	offset := cfg.LineHeight

fill:
	for i, lines := range layout.WrapAll(paragraphs, cfg.CharsPerLine) {
		if i > 0 {
			offset += cfg.ParagraphGap
		}
		for _, l := range lines {
			if offset > band {
				p.Truncated = true
				break fill
			}
			p.Lines = append(p.Lines, Line{Text: l, Offset: offset})
			offset += cfg.LineHeight
		}
	}

	if cut {
		p.Truncated = true
	}
	if p.Truncated && len(p.Lines) > 0 {
		last := &p.Lines[len(p.Lines)-1]
		last.Text = strings.TrimRight(last.Text, " .") + " …"
	}
	return p
}

func headerLines(meta Meta) []string {
	status := meta.Status
	if status == "" {
		status = "Preview"
	}
	lines := []string{status}

	var info []string
	if meta.Title != "" {
		info = append(info, meta.Title)
	}
	if meta.Source != "" {
		info = append(info, "source: "+meta.Source)
	}
	if meta.Pages > 0 {
		info = append(info, fmt.Sprintf("%d page(s)", meta.Pages))
	}
	if len(info) > 0 {
		lines = append(lines, strings.Join(info, "  ·  "))
	}
	return lines
}

func footerLine(meta Meta) string {
	ts := meta.Generated
	if ts.IsZero() {
		ts = time.Now()
	}
	footer := "Generated " + ts.UTC().Format("2006-01-02 15:04 MST")
	if meta.Attribution != "" {
		footer += "  ·  " + meta.Attribution
	}
	return footer
}
