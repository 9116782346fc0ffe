// Package layout splits plain text into paragraphs and word-wrapped lines
// against a fixed character budget.
package layout

import (
	"strings"
	"unicode/utf8"
)

// Paragraphs splits text at blank lines. Whitespace inside a paragraph,
// including single line breaks, collapses to one space. Empty paragraphs are
// dropped.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		out     []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			flush()
			continue
		}
		current = append(current, strings.Join(fields, " "))
	}
	flush()
	return out
}

// Truncate caps text at limit runes. When it cuts, it backs up to the last
// whitespace in the final tenth of the budget so words stay whole, and
// reports true.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	runes := []rune(text)[:limit]
	cut := len(runes)
	for i := len(runes) - 1; i >= limit-limit/10 && i > 0; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " \n"), true
}

// Wrap breaks a paragraph into lines of at most width runes. Words longer than
// width are split hard across lines.
func Wrap(paragraph string, width int) []string {
	if width < 1 {
		width = 1
	}
	var (
		lines []string
		line  []rune
	)
	for _, word := range strings.Fields(paragraph) {
		w := []rune(word)
		for len(w) > width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = line[:0]
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(w) == 0:
		case len(line) == 0:
			line = append(line, w...)
		case len(line)+1+len(w) <= width:
			line = append(line, ' ')
			line = append(line, w...)
		default:
			lines = append(lines, string(line))
			line = append(line[:0], w...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}

// WrapAll wraps each paragraph independently.
func WrapAll(paragraphs []string, width int) [][]string {
	out := make([][]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, Wrap(p, width))
	}
	return out
}
