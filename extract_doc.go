package docconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

// Offsets into the Word 97-2003 File Information Block.
const (
	fibIdent      = 0x0000
	fibFlags      = 0x000A
	fibCcpText    = 0x004C
	fibFcClx      = 0x01A2
	fibLcbClx     = 0x01A6
	wordIdent     = 0xA5EC
	flagWhichTbl  = 0x0200
	flagEncrypted = 0x0100
	pieceCompress = 0x40000000
)

// extractDocText reads the main document text of a legacy .doc file. It walks
// the piece table in the table stream, decoding each piece as cp1252 or
// UTF-16LE, and strips field codes and control marks.
func extractDocText(data []byte) (string, error) {
	cfb, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open compound file: %w", err)
	}

	streams := map[string][]byte{}
	for entry, err := cfb.Next(); err == nil; entry, err = cfb.Next() {
		switch entry.Name {
		case "WordDocument", "0Table", "1Table":
			b, err := io.ReadAll(entry)
			if err != nil {
				return "", fmt.Errorf("read %s stream: %w", entry.Name, err)
			}
			streams[entry.Name] = b
		}
	}

	word := streams["WordDocument"]
	if len(word) < fibLcbClx+4 {
		return "", errors.New("no WordDocument stream")
	}
	if binary.LittleEndian.Uint16(word[fibIdent:]) != wordIdent {
		return "", errors.New("not a Word 97-2003 document")
	}
	flags := binary.LittleEndian.Uint16(word[fibFlags:])
	if flags&flagEncrypted != 0 {
		return "", errors.New("document is encrypted")
	}
	table := streams["0Table"]
	if flags&flagWhichTbl != 0 {
		table = streams["1Table"]
	}

	ccpText := int(binary.LittleEndian.Uint32(word[fibCcpText:]))
	fcClx := int(binary.LittleEndian.Uint32(word[fibFcClx:]))
	lcbClx := int(binary.LittleEndian.Uint32(word[fibLcbClx:]))
	if fcClx < 0 || lcbClx <= 0 || fcClx+lcbClx > len(table) {
		return "", errors.New("piece table out of range")
	}

	raw, err := readPieces(word, table[fcClx:fcClx+lcbClx], ccpText)
	if err != nil {
		return "", err
	}
	return cleanDocText(raw), nil
}

// readPieces decodes the text referenced by a Clx structure, up to limit
// characters.
func readPieces(word, clx []byte, limit int) (string, error) {
	// Skip Prc entries (0x01 + cbGrpprl + grpprl) to reach the Pcdt (0x02).
	i := 0
	for i < len(clx) && clx[i] == 0x01 {
		if i+3 > len(clx) {
			return "", errors.New("truncated Prc")
		}
		i += 3 + int(binary.LittleEndian.Uint16(clx[i+1:]))
	}
	if i+5 > len(clx) || clx[i] != 0x02 {
		return "", errors.New("missing piece table")
	}
	lcb := int(binary.LittleEndian.Uint32(clx[i+1:]))
	plc := clx[i+5:]
	if lcb > len(plc) || lcb < 4 {
		return "", errors.New("truncated piece table")
	}
	plc = plc[:lcb]

	n := (lcb - 4) / 12
	cps := func(k int) int { return int(binary.LittleEndian.Uint32(plc[4*k:])) }
	pcds := plc[4*(n+1):]

	var b strings.Builder
	total := 0
	dec := charmap.Windows1252.NewDecoder()
	for k := 0; k < n && total < limit; k++ {
		count := cps(k+1) - cps(k)
		if count <= 0 {
			continue
		}
		count = min(count, limit-total)
		fc := binary.LittleEndian.Uint32(pcds[8*k+2:])

		if fc&pieceCompress != 0 {
			off := int(fc&^pieceCompress) / 2
			if off+count > len(word) {
				return "", errors.New("piece out of range")
			}
			s, err := dec.Bytes(word[off : off+count])
			if err != nil {
				return "", err
			}
			b.Write(s)
		} else {
			off := int(fc)
			if off+2*count > len(word) {
				return "", errors.New("piece out of range")
			}
			u := make([]uint16, count)
			for j := range u {
				u[j] = binary.LittleEndian.Uint16(word[off+2*j:])
			}
			b.WriteString(string(utf16.Decode(u)))
		}
		total += count
	}
	return b.String(), nil
}

// cleanDocText maps Word control characters to plain text: paragraph and
// cell marks become line breaks, field instructions are dropped while their
// results are kept.
func cleanDocText(s string) string {
	var (
		b     strings.Builder
		depth int    // field nesting
		code  []bool // per nesting level: still in the instruction part
	)
	for _, r := range s {
		switch r {
		case 0x13: // field begin
			depth++
			code = append(code, true)
			continue
		case 0x14: // field separator
			if depth > 0 {
				code[depth-1] = false
			}
			continue
		case 0x15: // field end
			if depth > 0 {
				depth--
				code = code[:depth]
			}
			continue
		}
		if depth > 0 && code[depth-1] {
			continue
		}
		switch r {
		case '\r', 0x07, 0x0B, 0x0C:
			b.WriteByte('\n')
		case 0x1E:
			b.WriteByte('-')
		case 0x1F, 0x01, 0x08:
		case 0xA0:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
