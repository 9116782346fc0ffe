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

// StreamInfo holds what is known about an input besides its bytes.
type StreamInfo struct {
	MIMEType string
	Filename string
}

// Request is a single conversion request. It is not modified by the pipeline.
type Request struct {
	// Data is the source document.
	Data []byte
	// SourceFormat may be left empty (or FormatUnknown) to detect it from
	// MIMEType, Filename and Data.
	SourceFormat Format
	TargetFormat Format

	// MIMEType is the declared media type of Data, if any.
	MIMEType string
	// Filename is the original attachment name. Its base name is kept for
	// the output file.
	Filename string
	// Title names the output when there is no Filename and heads rendered
	// previews.
	Title string

	// Text is free text to convert when there is no attachment, such as a
	// message caption. It is used only when Data is empty.
	Text string

	// Options override the pipeline defaults for this request.
	Options Options
}

// Result is a successful conversion.
type Result struct {
	Data     []byte
	FileName string
	MIMEType string
	Format   Format

	// Path is the route the conversion took.
	Path Path
	// Degraded is set when the output was rendered from placeholder text
	// because nothing could be extracted from the source, or when some of
	// the text has no glyph in the embedded font.
	Degraded bool
	// Attempts lists every backend attempt, failed ones included.
	Attempts []BackendAttempt
}
