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
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	// UnsupportedFormatPair: no direct or two-hop path exists.
	UnsupportedFormatPair ErrorKind = "unsupported_format_pair"
	// BackendExhausted: every backend of a cascade failed or timed out.
	BackendExhausted ErrorKind = "backend_exhausted"
	// ResourceFault: scratch allocation or cleanup failed.
	ResourceFault ErrorKind = "resource_fault"
	// ExtractionDegraded is never returned as an error. It annotates results
	// rendered from placeholder text, see Result.Degraded.
	ExtractionDegraded ErrorKind = "extraction_degraded"
)

var (
	// ErrEmptyInput is returned for requests with neither data nor text.
	ErrEmptyInput = errors.New("docconv: empty input")
	// ErrInputTooLarge is returned when the input exceeds the size limit.
	ErrInputTooLarge = errors.New("docconv: input too large")
)

// UnsupportedFormatPairError is returned when the capability table has no path
// between the two formats. It is decided before any backend runs.
type UnsupportedFormatPairError struct {
	Source string
	Target string
}

func (e *UnsupportedFormatPairError) Error() string {
	return fmt.Sprintf("unsupported conversion from %s to %s", e.Source, e.Target)
}

// BackendExhaustedError is returned when all backends of a cascade failed.
// The attempts are for logs and diagnostics; they are never shown to users.
type BackendExhaustedError struct {
	Pair     Pair
	Attempts []BackendAttempt
}

func (e *BackendExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("conversion %s failed: no backend available", e.Pair)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "conversion %s failed after %d attempt(s):", e.Pair, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %s", a.Backend, a.Outcome)
		if a.Err != nil {
			fmt.Fprintf(&b, ": %v", a.Err)
		}
	}
	return b.String()
}

func (e *BackendExhaustedError) Unwrap() error {
	if len(e.Attempts) > 0 {
		return e.Attempts[len(e.Attempts)-1].Err
	}
	return nil
}

// ResourceFaultError wraps a scratch file failure.
type ResourceFaultError struct {
	Op  string
	Err error
}

func (e *ResourceFaultError) Error() string {
	return fmt.Sprintf("scratch %s: %v", e.Op, e.Err)
}

func (e *ResourceFaultError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var unsupported *UnsupportedFormatPairError
	var exhausted *BackendExhaustedError
	var fault *ResourceFaultError
	switch {
	case errors.As(err, &unsupported):
		return UnsupportedFormatPair
	case errors.As(err, &exhausted):
		return BackendExhausted
	case errors.As(err, &fault):
		return ResourceFault
	}
	return ""
}

// IsUnsupportedFormatPair reports whether the error is an UnsupportedFormatPairError.
func IsUnsupportedFormatPair(err error) bool {
	var target *UnsupportedFormatPairError
	return errors.As(err, &target)
}

// IsBackendExhausted reports whether the error is a BackendExhaustedError.
func IsBackendExhausted(err error) bool {
	var target *BackendExhaustedError
	return errors.As(err, &target)
}

// UserMessage turns a pipeline error into the single line shown to an end
// user. Backend names, remote error bodies and stack details never appear.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var unsupported *UnsupportedFormatPairError
	if errors.As(err, &unsupported) {
		return fmt.Sprintf("Sorry, converting %s to %s is not supported.", unsupported.Source, unsupported.Target)
	}
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "There is nothing to convert."
	case errors.Is(err, ErrInputTooLarge):
		return "Sorry, this file is too large to convert."
	}
	return "Conversion failed, please try again later."
}
