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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Outcome is the result of one backend attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// BackendAttempt records one step of a cascade for diagnostics.
type BackendAttempt struct {
	Backend string
	Pair    Pair
	Elapsed time.Duration
	Outcome Outcome
	Err     error
}

// minOutputSize is the smallest output accepted per target format.
var minOutputSize = map[Format]int{
	FormatText:  1,
	FormatHTML:  8,
	FormatPDF:   64,
	FormatImage: 64,
	FormatDoc:   64,
	FormatDocx:  128,
}

var (
	sigCFB = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	sigRTF = []byte(`{\rtf`)
	sigZip = []byte("PK\x03\x04")
)

// validateOutput rejects empty, implausibly small or mislabelled output.
func validateOutput(target Format, data []byte) error {
	if len(data) < minOutputSize[target] {
		return fmt.Errorf("output too small: %d bytes", len(data))
	}
	switch target {
	case FormatPDF:
		if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\r\n\t "), []byte("%PDF-")) {
			return errors.New("output is not a PDF")
		}
	case FormatImage:
		prefix := data[:min(len(data), sniffLimit)]
		if m := mimetype.Detect(prefix); !strings.HasPrefix(m.String(), "image/") {
			return fmt.Errorf("output is %s, not an image", m.String())
		}
	case FormatDocx:
		if !bytes.HasPrefix(data, sigZip) {
			return errors.New("output is not an OOXML package")
		}
	case FormatDoc:
		if !bytes.HasPrefix(data, sigCFB) && !bytes.HasPrefix(data, sigRTF) {
			return errors.New("output is not a Word document")
		}
	case FormatText:
		if !utf8.Valid(data) || len(bytes.TrimSpace(data)) == 0 {
			return errors.New("output is not readable text")
		}
	case FormatHTML:
		if !utf8.Valid(data) || !bytes.ContainsRune(data, '<') {
			return errors.New("output is not HTML")
		}
	}
	return nil
}

// segmentResult is the output of a cascade over one direct pair.
type segmentResult struct {
	data     []byte
	degraded bool
	attempts []BackendAttempt
}

// executor runs cascades.
type executor struct {
	backends map[string]Backend
	timeouts map[BackendKind]time.Duration
	logger   zerolog.Logger
}

func (e *executor) timeout(k BackendKind) time.Duration {
	if d, ok := e.timeouts[k]; ok && d > 0 {
		return d
	}
	return 30 * time.Second
}

// run tries each named backend in order and stops at the first valid output.
// Backend errors, timeouts and panics never escape: they advance the cascade
// and end up in the attempts of a BackendExhaustedError.
func (e *executor) run(ctx context.Context, pair Pair, names []string, in Input) (*segmentResult, error) {
	res := &segmentResult{}
	for _, name := range names {
		b, ok := e.backends[name]
		if !ok {
			e.logger.Debug().Str("backend", name).Stringer("pair", pair).Msg("backend not configured, skipping")
			continue
		}
		if ctx.Err() != nil {
			break
		}

		a, data, degraded := e.attempt(ctx, pair, b, in)
		res.attempts = append(res.attempts, a)
		if a.Outcome == OutcomeSuccess {
			e.logger.Debug().Str("backend", name).Stringer("pair", pair).Dur("elapsed", a.Elapsed).Int("bytes", len(data)).Msg("conversion attempt succeeded")
			res.data = data
			res.degraded = degraded
			return res, nil
		}
		e.logger.Warn().Str("backend", name).Stringer("pair", pair).Dur("elapsed", a.Elapsed).
			Str("outcome", string(a.Outcome)).Err(a.Err).Msg("conversion attempt failed")
	}
	return nil, &BackendExhaustedError{Pair: pair, Attempts: res.attempts}
}

type attemptOutput struct {
	data []byte
	err  error
}

// attempt runs a single backend under its timeout in its own goroutine. A
// backend that ignores cancellation is abandoned once the deadline passes.
func (e *executor) attempt(ctx context.Context, pair Pair, b Backend, in Input) (BackendAttempt, []byte, bool) {
	a := BackendAttempt{Backend: b.Name(), Pair: pair}
	start := time.Now()

	actx, cancel := context.WithTimeout(ctx, e.timeout(b.Kind()))
	defer cancel()

	done := make(chan attemptOutput, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptOutput{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		data, err := b.Convert(actx, &in)
		done <- attemptOutput{data: data, err: err}
	}()

	var out attemptOutput
	select {
	case out = <-done:
	case <-actx.Done():
		out = attemptOutput{err: actx.Err()}
	}
	a.Elapsed = time.Since(start)

	switch {
	case out.err != nil && errors.Is(out.err, context.DeadlineExceeded):
		a.Outcome = OutcomeTimeout
		a.Err = out.err
	case out.err != nil:
		a.Outcome = OutcomeError
		a.Err = out.err
	default:
		if err := validateOutput(pair.To, out.data); err != nil {
			a.Outcome = OutcomeRejected
			a.Err = err
			return a, nil, false
		}
		a.Outcome = OutcomeSuccess
		return a, out.data, in.degraded
	}
	return a, nil, false
}
