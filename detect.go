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
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit bounds how much of the input content sniffing looks at.
const sniffLimit = 3072

// Detect classifies an input into a canonical format tag.
//
// Signals are consulted in a fixed priority order: the declared MIME type (when
// it maps unambiguously onto a tag), then the filename extension, then a peek
// at the first few kilobytes of content. FormatUnknown is returned when none
// of them decide.
func Detect(data []byte, declaredMIME, filename string) Format {
	if f := formatFromMIME(declaredMIME); f != FormatUnknown {
		return f
	}
	if f := formatFromExtension(filepath.Ext(filename)); f != FormatUnknown {
		return f
	}
	return sniffFormat(data)
}

// sniffFormat looks at a bounded prefix of data.
func sniffFormat(data []byte) Format {
	if len(data) == 0 {
		return FormatUnknown
	}
	prefix := data
	if len(prefix) > sniffLimit {
		prefix = prefix[:sniffLimit]
	}

	for m := mimetype.Detect(prefix); m != nil; m = m.Parent() {
		if f := formatFromMIME(m.String()); f != FormatUnknown {
			return f
		}
	}
	return FormatUnknown
}

// mimeFormats lists the MIME types that map onto exactly one tag. Container
// types such as application/zip or application/octet-stream are deliberately
// absent.
var mimeFormats = map[string]Format{
	"text/plain":            FormatText,
	"text/markdown":         FormatText,
	"text/x-markdown":       FormatText,
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"application/pdf":       FormatPDF,
	"application/x-pdf":     FormatPDF,
	"application/msword":    FormatDoc,
	"application/vnd.ms-word.document.macroenabled.12":                        FormatDocx,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDocx,
}

// formatFromMIME maps a MIME type (parameters allowed) onto a tag.
func formatFromMIME(mime string) Format {
	base, _, _ := strings.Cut(mime, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		return FormatUnknown
	}
	if f, ok := mimeFormats[base]; ok {
		return f
	}
	if strings.HasPrefix(base, "image/") && base != "image/svg+xml" {
		return FormatImage
	}
	return FormatUnknown
}

// formatFromExtension maps a file extension onto a tag.
func formatFromExtension(ext string) Format {
	switch strings.ToLower(ext) {
	case ".txt", ".text", ".md", ".markdown", ".log":
		return FormatText
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	case ".pdf":
		return FormatPDF
	case ".doc", ".dot":
		return FormatDoc
	case ".docx", ".docm", ".dotx":
		return FormatDocx
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return FormatImage
	}
	return FormatUnknown
}

// imageEncodingOf sniffs the raster encoding of image data.
func imageEncodingOf(data []byte) ImageEncoding {
	prefix := data
	if len(prefix) > sniffLimit {
		prefix = prefix[:sniffLimit]
	}
	return encodingFromMIME(mimetype.Detect(prefix).String())
}
