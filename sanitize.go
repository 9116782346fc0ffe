package docconv

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
	reCRLF               = regexp.MustCompile(`\r\n?`)
	reSpaceRuns          = regexp.MustCompile(`[ \t\f\v\p{Zs}]{2,}`)
)

// SanitizeText prepares text for any textual conversion:
//   - ensure valid UTF-8 and NFC composition
//   - normalize line endings (CRLF -> LF)
//   - drop pictographic symbols (emoji, dingbats, flags and their joiners)
//   - drop non-printable/control characters (keep \n, tabs become spaces)
//   - collapse runs of spaces, strip trailing whitespace per line
//   - collapse 3+ consecutive newlines to 2, keeping paragraph breaks
//   - trim leading/trailing whitespace
func SanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = norm.NFC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case isPictographic(r):
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)

	s = reSpaceRuns.ReplaceAllString(s, " ")
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = reTrailingWhitespace.ReplaceAllString(s, "\n")
	s = reMultipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// isPictographic reports decorative symbols: emoji blocks, dingbats, regional
// indicators, and the selectors and joiners that build emoji sequences.
func isPictographic(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0x23E9 && r <= 0x23FA, r == 0x231A, r == 0x231B:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	case r == 0x200D, r == 0x20E3:
		return true
	case r == 0x3030, r == 0x303D, r == 0x3297, r == 0x3299:
		return true
	}
	return false
}
