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
	"fmt"
	"strings"
)

// Format is a canonical format tag. Every input and output of the pipeline is
// described by exactly one of the tags below, whatever its file name or MIME
// type spelling.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatText    Format = "text"
	FormatPDF     Format = "pdf"
	FormatDoc     Format = "doc"
	FormatDocx    Format = "docx"
	FormatImage   Format = "image"
	FormatHTML    Format = "html"
)

// Formats is the closed set of supported tags, in intermediate preference order.
var Formats = []Format{FormatPDF, FormatHTML, FormatText, FormatDocx, FormatDoc, FormatImage}

// Valid reports whether f is one of the closed set of tags.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Extension returns the default file extension (with dot) for the format.
// Images use the extension of the requested encoding, see ImageEncoding.
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatPDF:
		return ".pdf"
	case FormatDoc:
		return ".doc"
	case FormatDocx:
		return ".docx"
	case FormatImage:
		return ".png"
	case FormatHTML:
		return ".html"
	}
	return ".bin"
}

// MIMEType returns the MIME type produced for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatDoc:
		return "application/msword"
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatImage:
		return "image/png"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// formatAliases maps user spellings onto canonical tags.
var formatAliases = map[string]Format{
	"text":     FormatText,
	"txt":      FormatText,
	"plain":    FormatText,
	"md":       FormatText,
	"markdown": FormatText,
	"pdf":      FormatPDF,
	"doc":      FormatDoc,
	"word":     FormatDoc,
	"docx":     FormatDocx,
	"image":    FormatImage,
	"img":      FormatImage,
	"picture":  FormatImage,
	"png":      FormatImage,
	"jpg":      FormatImage,
	"jpeg":     FormatImage,
	"gif":      FormatImage,
	"bmp":      FormatImage,
	"tif":      FormatImage,
	"tiff":     FormatImage,
	"webp":     FormatImage,
	"html":     FormatHTML,
	"htm":      FormatHTML,
}

// ParseFormat resolves a user supplied format name (e.g. "PDF", ".jpg", "word")
// to its canonical tag. Names outside the closed set are rejected.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if f, ok := formatAliases[key]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("unknown format %q", s)
}

// ImageEncoding selects the raster encoding used for image outputs.
type ImageEncoding string

const (
	EncodingPNG  ImageEncoding = "png"
	EncodingJPEG ImageEncoding = "jpeg"
	EncodingGIF  ImageEncoding = "gif"
	EncodingBMP  ImageEncoding = "bmp"
	EncodingTIFF ImageEncoding = "tiff"
)

// ParseImageEncoding maps a name such as "jpg" or "PNG" to an ImageEncoding.
func ParseImageEncoding(s string) (ImageEncoding, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return EncodingPNG, nil
	case "jpg", "jpeg":
		return EncodingJPEG, nil
	case "gif":
		return EncodingGIF, nil
	case "bmp":
		return EncodingBMP, nil
	case "tif", "tiff":
		return EncodingTIFF, nil
	}
	return "", fmt.Errorf("unknown image encoding %q", s)
}

// Extension returns the file extension for the encoding.
func (e ImageEncoding) Extension() string {
	switch e {
	case EncodingJPEG:
		return ".jpg"
	case EncodingGIF:
		return ".gif"
	case EncodingBMP:
		return ".bmp"
	case EncodingTIFF:
		return ".tiff"
	}
	return ".png"
}

// MIMEType returns the MIME type for the encoding.
func (e ImageEncoding) MIMEType() string {
	switch e {
	case EncodingJPEG:
		return "image/jpeg"
	case EncodingGIF:
		return "image/gif"
	case EncodingBMP:
		return "image/bmp"
	case EncodingTIFF:
		return "image/tiff"
	}
	return "image/png"
}

// encodingFromMIME maps an image MIME type onto an ImageEncoding. Types that
// cannot be produced (e.g. image/webp) return "".
func encodingFromMIME(mime string) ImageEncoding {
	switch strings.ToLower(mime) {
	case "image/png":
		return EncodingPNG
	case "image/jpeg", "image/jpg":
		return EncodingJPEG
	case "image/gif":
		return EncodingGIF
	case "image/bmp", "image/x-ms-bmp":
		return EncodingBMP
	case "image/tiff":
		return EncodingTIFF
	}
	return ""
}

// Pair is an ordered (source, target) format pair.
type Pair struct {
	From Format
	To   Format
}

func (p Pair) String() string {
	return string(p.From) + "→" + string(p.To)
}
