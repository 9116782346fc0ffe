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
	"sort"
	"strings"
)

// Backend names used by the default capability table.
const (
	BackendGotenbergOffice     = "gotenberg-office"
	BackendGotenbergHTML       = "gotenberg-html"
	BackendGotenbergScreenshot = "gotenberg-screenshot"
	BackendSoffice             = "soffice"
	BackendChromiumPDF         = "chromium-pdf"
	BackendChromiumScreenshot  = "chromium-screenshot"
	BackendPdfium              = "pdfium"
	BackendFitz                = "fitz"
	BackendImagePDF            = "imagepdf"
	BackendImageFormat         = "imageformat"
	BackendTextPDF             = "textpdf"
	BackendDocxWriter          = "docxwriter"
	BackendMarkup              = "markup"
	BackendTextExtract         = "textextract"
	BackendRender              = "render"
)

// Table maps every direct conversion pair to its cascade: backend names in
// priority order. It is the only source of truth for what can become what.
type Table map[Pair][]string

// DefaultTable is the built-in capability table.
var DefaultTable = Table{
	{FormatText, FormatPDF}:   {BackendGotenbergHTML, BackendChromiumPDF, BackendTextPDF},
	{FormatText, FormatHTML}:  {BackendMarkup},
	{FormatText, FormatDocx}:  {BackendDocxWriter},
	{FormatText, FormatImage}: {BackendChromiumScreenshot, BackendRender},

	{FormatHTML, FormatPDF}:   {BackendGotenbergHTML, BackendChromiumPDF, BackendTextPDF},
	{FormatHTML, FormatText}:  {BackendTextExtract},
	{FormatHTML, FormatImage}: {BackendGotenbergScreenshot, BackendChromiumScreenshot, BackendRender},

	{FormatImage, FormatPDF}:   {BackendGotenbergOffice, BackendImagePDF},
	{FormatImage, FormatImage}: {BackendImageFormat},

	{FormatPDF, FormatImage}: {BackendPdfium, BackendFitz, BackendRender},
	{FormatPDF, FormatText}:  {BackendTextExtract},
	{FormatPDF, FormatDoc}:   {BackendSoffice},
	{FormatPDF, FormatDocx}:  {BackendSoffice, BackendDocxWriter},

	{FormatDoc, FormatPDF}:   {BackendGotenbergOffice, BackendSoffice, BackendTextPDF},
	{FormatDoc, FormatText}:  {BackendTextExtract},
	{FormatDoc, FormatDocx}:  {BackendSoffice, BackendDocxWriter},
	{FormatDocx, FormatPDF}:  {BackendGotenbergOffice, BackendSoffice, BackendTextPDF},
	{FormatDocx, FormatText}: {BackendTextExtract},
	{FormatDocx, FormatDoc}:  {BackendSoffice},
}

// PathKind distinguishes the shapes a conversion path can take.
type PathKind int

const (
	PathPassthrough PathKind = iota
	PathDirect
	PathTwoHop
)

func (k PathKind) String() string {
	switch k {
	case PathPassthrough:
		return "passthrough"
	case PathDirect:
		return "direct"
	case PathTwoHop:
		return "two-hop"
	}
	return "unknown"
}

// Path is a routed conversion: no hops for a pass-through, one hop for a
// direct conversion, two hops through an intermediate format otherwise.
type Path struct {
	Kind PathKind
	Hops []Pair
}

// Intermediate returns the middle format of a two-hop path.
func (p Path) Intermediate() Format {
	if p.Kind != PathTwoHop || len(p.Hops) != 2 {
		return FormatUnknown
	}
	return p.Hops[0].To
}

func (p Path) String() string {
	if len(p.Hops) == 0 {
		return p.Kind.String()
	}
	parts := []string{string(p.Hops[0].From)}
	for _, h := range p.Hops {
		parts = append(parts, string(h.To))
	}
	return strings.Join(parts, "→")
}

// Router decides how a source format becomes a target format.
type Router struct {
	table Table
}

// NewRouter creates a Router over the given table.
func NewRouter(t Table) *Router {
	return &Router{table: t}
}

// Cascade returns the backend names for a direct pair.
func (r *Router) Cascade(p Pair) []string {
	return r.table[p]
}

// Route returns the path from src to dst. Identical formats route to a
// pass-through. Pairs without a direct entry are composed from any two direct
// entries sharing an intermediate, tried in Formats order. Anything else is an
// UnsupportedFormatPairError.
func (r *Router) Route(src, dst Format) (Path, error) {
	if !src.Valid() || !dst.Valid() {
		return Path{}, &UnsupportedFormatPairError{Source: string(src), Target: string(dst)}
	}
	if src == dst {
		return Path{Kind: PathPassthrough}, nil
	}
	direct := Pair{src, dst}
	if _, ok := r.table[direct]; ok {
		return Path{Kind: PathDirect, Hops: []Pair{direct}}, nil
	}
	for _, mid := range Formats {
		if mid == src || mid == dst || !composable(src, mid, dst) {
			continue
		}
		first, second := Pair{src, mid}, Pair{mid, dst}
		_, ok1 := r.table[first]
		_, ok2 := r.table[second]
		if ok1 && ok2 {
			return Path{Kind: PathTwoHop, Hops: []Pair{first, second}}, nil
		}
	}
	return Path{}, &UnsupportedFormatPairError{Source: string(src), Target: string(dst)}
}

// composable rejects compositions that would only produce empty output:
// raster images carry no text to extract, and there is no OCR backend.
func composable(src, mid, dst Format) bool {
	if src == FormatImage {
		switch dst {
		case FormatText, FormatHTML, FormatDoc, FormatDocx:
			return false
		}
	}
	return true
}

// Paths lists every routable pair except pass-throughs, sorted by source and
// target.
func (r *Router) Paths() []Path {
	var out []Path
	for _, src := range Formats {
		for _, dst := range Formats {
			if src == dst {
				continue
			}
			if p, err := r.Route(src, dst); err == nil {
				out = append(out, p)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Hops, out[j].Hops
		if a[0].From != b[0].From {
			return a[0].From < b[0].From
		}
		return a[len(a)-1].To < b[len(b)-1].To
	})
	return out
}
