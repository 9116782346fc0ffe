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
	"context"

	"github.com/gabriel-vasile/mimetype"
)

// BackendKind classifies a backend for timeout budgeting.
type BackendKind int

const (
	// KindRemote is a network round trip to a conversion service.
	KindRemote BackendKind = iota
	// KindLocal is an in-process library or local external process.
	KindLocal
	// KindFallback is a minimal best-effort converter tried last.
	KindFallback
)

func (k BackendKind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindLocal:
		return "local"
	case KindFallback:
		return "fallback"
	}
	return "unknown"
}

// Options tunes the output of a conversion.
type Options struct {
	// ImageEncoding is the raster encoding for image outputs (default png).
	// Setting it also re-encodes images that would otherwise pass through.
	ImageEncoding ImageEncoding
	// DPI is the rasterization resolution for page renders (default 110).
	DPI float64
	// JPEGQuality is used when ImageEncoding is jpeg (default 90).
	JPEGQuality int
}

func (o *Options) defaults() {
	if o.ImageEncoding == "" {
		o.ImageEncoding = EncodingPNG
	}
	if o.DPI <= 0 {
		o.DPI = 110
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = 90
	}
}

// merge fills unset fields from base.
func (o *Options) merge(base Options) {
	if o.ImageEncoding == "" {
		o.ImageEncoding = base.ImageEncoding
	}
	if o.DPI <= 0 {
		o.DPI = base.DPI
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = base.JPEGQuality
	}
}

// Scratch hands out request scoped temporary files. Release functions are
// idempotent; anything not released is removed when the request finishes.
type Scratch interface {
	Acquire(ext string) (path string, release func(), err error)
}

// Input is what a backend receives for a single attempt.
type Input struct {
	Data    []byte
	Source  Format
	Target  Format
	Title   string
	Options Options
	Scratch Scratch

	// Filename is the original attachment name, if any.
	Filename string

	degraded bool
}

// MarkDegraded records that the backend produced output from placeholder
// content rather than the source's own text, or could not show all of it.
func (in *Input) MarkDegraded() {
	in.degraded = true
}

// Backend converts bytes of one format into another. Implementations must
// respect ctx where they can and report failure through the error; a panic is
// tolerated by the cascade but treated as a failed attempt.
type Backend interface {
	// Name identifies the backend in the capability table and in logs.
	Name() string

	// Kind selects the timeout budget applied to each attempt.
	Kind() BackendKind

	// Convert performs one conversion attempt.
	Convert(ctx context.Context, in *Input) ([]byte, error)
}

// inputExtension is the file extension external tools should see for the
// input: the detected one for images, the format default otherwise.
func inputExtension(in *Input) string {
	if in.Source == FormatImage {
		prefix := in.Data[:min(len(in.Data), sniffLimit)]
		if ext := mimetype.Detect(prefix).Extension(); ext != "" {
			return ext
		}
	}
	return in.Source.Extension()
}
