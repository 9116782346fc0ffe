package docconv

import (
	"bytes"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfStreamText pulls the shown strings out of the page content streams,
// stopping once budget characters are collected (zero means no limit).
// Fonts are consulted only to spot Unicode-addressed composite fonts, so
// other encodings come out readable only when they are simple; wide reports
// whether any such font was used.
func pdfStreamText(ctx *model.Context, budget int) (text string, wide bool) {
	defer func() {
		if r := recover(); r != nil {
			text, wide = "", false
		}
	}()

	var b strings.Builder
	n := 0
	for i := 1; i <= ctx.PageCount; i++ {
		if budget > 0 && n >= budget {
			break
		}
		r, err := pdfcpu.ExtractPageContent(ctx, i)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		fonts := unicodeFonts(ctx, i)
		wide = wide || len(fonts) > 0
		if page := strings.TrimSpace(contentStreamText(data, fonts)); page != "" {
			b.WriteString(page)
			b.WriteString("\n\n")
			n += utf8.RuneCountInString(page)
		}
	}
	return b.String(), wide
}

var reIdentityRange = regexp.MustCompile(`(?i)<0000>\s*<FFFF>\s*<0000>`)

// unicodeFonts returns the resource names of the page's composite fonts
// whose two-byte codes are Unicode code points: Identity-H encoded with a
// ToUnicode map that is the identity over the whole range.
func unicodeFonts(ctx *model.Context, page int) map[string]bool {
	_, _, attrs, err := ctx.PageDict(page, false)
	if err != nil || attrs == nil || attrs.Resources == nil {
		return nil
	}
	fonts, err := ctx.DereferenceDict(attrs.Resources["Font"])
	if err != nil || fonts == nil {
		return nil
	}
	out := make(map[string]bool)
	for name, o := range fonts {
		d, err := ctx.DereferenceDict(o)
		if err != nil || d == nil {
			continue
		}
		if enc := d.NameEntry("Encoding"); enc == nil || *enc != "Identity-H" {
			continue
		}
		if identityToUnicode(ctx, d["ToUnicode"]) {
			out[name] = true
		}
	}
	return out
}

func identityToUnicode(ctx *model.Context, o types.Object) bool {
	if o == nil {
		return false
	}
	sd, _, err := ctx.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return false
	}
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return false
		}
	}
	return reIdentityRange.Match(sd.Content)
}

// contentStreamText interprets the text operators of a content stream:
// Tj, TJ, ' and " show strings; T*, Td, TD and ET break lines. Strings shown
// in one of wideFonts are read as big-endian code points.
func contentStreamText(data []byte, wideFonts map[string]bool) string {
	var (
		b       strings.Builder
		line    strings.Builder
		pending []string
		name    string
		wide    bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
		line.Reset()
	}
	show := func() {
		for _, s := range pending {
			line.WriteString(s)
		}
		pending = pending[:0]
	}
	decode := func(raw []byte) string {
		if wide {
			return decodeUTF16(raw)
		}
		return decodePDFBytes(raw)
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '/':
			start := i + 1
			i++
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
			name = string(data[start:i])
		case c == '(':
			raw, n := pdfLiteral(data[i:])
			pending = append(pending, decode(raw))
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '<':
			raw, n := pdfHexString(data[i:])
			pending = append(pending, decode(raw))
			i += n
		case c == '[' || c == ']':
			i++
		case isPDFDelim(c) || isPDFSpace(c):
			i++
		default:
			start := i
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelim(data[i]) {
				i++
			}
			switch op := string(data[start:i]); op {
			case "Tf":
				wide = wideFonts[name]
				pending = pending[:0]
			case "Tj", "TJ":
				show()
			case "'", "\"":
				flush()
				show()
			case "T*", "ET":
				flush()
			case "Td", "TD", "Tm":
				if line.Len() > 0 {
					flush()
				}
			case "BI":
				// Inline image data is binary; skip to its end marker.
				if j := bytes.Index(data[i:], []byte("EI")); j >= 0 {
					i += j + 2
				} else {
					i = len(data)
				}
				pending = pending[:0]
			default:
				// Operands such as numbers are ignored. A string consumed by
				// another operator must not leak into the next show operator.
				if len(op) > 0 && (op[0] < '0' || op[0] > '9') && op[0] != '-' && op[0] != '.' && op[0] != '+' {
					pending = pending[:0]
				}
			}
		}
	}
	flush()
	return b.String()
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

// pdfLiteral unescapes a parenthesized string starting at data[0] and
// returns its bytes and the number of bytes consumed.
func pdfLiteral(data []byte) ([]byte, int) {
	var out []byte
	depth := 0
	i := 0
	for ; i < len(data); i++ {
		c := data[i]
		switch c {
		case '(':
			if depth > 0 {
				out = append(out, c)
			}
			depth++
			continue
		case ')':
			depth--
			if depth == 0 {
				return out, i + 1
			}
			out = append(out, c)
			continue
		case '\\':
			if i+1 >= len(data) {
				continue
			}
			i++
			switch e := data[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out, i
}

// pdfHexString decodes a <...> string starting at data[0].
func pdfHexString(data []byte) ([]byte, int) {
	end := bytes.IndexByte(data, '>')
	if end < 0 {
		return nil, len(data)
	}
	var digits []byte
	for _, c := range data[1:end] {
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil, end + 1
	}
	return raw, end + 1
}

// decodePDFBytes handles UTF-16BE strings with a byte order mark; anything
// else is taken as Latin-1, close enough to PDFDocEncoding for text.
func decodePDFBytes(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return decodeUTF16(raw[2:])
	}
	r := make([]rune, len(raw))
	for i, c := range raw {
		r[i] = rune(c)
	}
	return string(r)
}

// decodeUTF16 reads big-endian 16-bit units; an odd trailing byte is dropped.
func decodeUTF16(raw []byte) string {
	u := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u = append(u, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(u))
}
