package docconv

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxNameLength = 120

// outputName suggests a file name for a conversion result: the base name of
// the original file when there is one, else the title, else "document".
func outputName(filename, title, ext string) string {
	base := ""
	if filename != "" {
		// Both separators, whatever the platform the name came from.
		name := filename[strings.LastIndexAny(filename, `/\`)+1:]
		base = strings.TrimSuffix(name, filepath.Ext(name))
		base = cleanName(base)
	}
	if base == "" {
		base = cleanName(title)
	}
	if base == "" {
		base = "document"
	}
	return base + ext
}

// cleanName strips path separators, control characters and characters
// reserved on common filesystems, and collapses whitespace.
func cleanName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), isPictographic(r):
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " ._")
	if r := []rune(s); len(r) > maxNameLength {
		s = strings.TrimRight(string(r[:maxNameLength]), " ._")
	}
	return s
}
