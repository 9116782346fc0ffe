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

// Package docconv converts documents between a closed set of formats (text,
// pdf, doc, docx, image and html). A capability table maps every direct
// format pair to a cascade of backends tried in order; pairs without a direct
// entry are composed through one intermediate format. When no backend can
// produce an image, a built-in renderer draws the document's text onto a
// single preview page instead of failing.
package docconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/nicholasgasior/docconv-go/internal/scratch"
)

// Pipeline routes and executes conversions. It is safe for concurrent use;
// requests share no mutable state besides the scratch root, in which each
// request owns a uniquely named directory.
type Pipeline struct {
	router   *Router
	exec     *executor
	scratch  *scratch.Manager
	logger   zerolog.Logger
	options  Options
	maxInput int64
	closers  []func() error
}

// New creates a Pipeline. Without options it uses the default capability
// table with the built-in local backends; remote services and external
// programs are opt-in.
func New(opts ...Option) (*Pipeline, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}

	sm, err := scratch.New(s.scratchDir)
	if err != nil {
		return nil, &ResourceFaultError{Op: "init", Err: err}
	}

	p := &Pipeline{
		router:   NewRouter(s.table),
		scratch:  sm,
		logger:   s.logger,
		options:  s.options,
		maxInput: s.maxInput,
	}
	p.exec = &executor{
		backends: p.registerBackends(s),
		timeouts: s.timeouts,
		logger:   s.logger,
	}
	return p, nil
}

func (p *Pipeline) registerBackends(s *settings) map[string]Backend {
	backends := make(map[string]Backend)
	add := func(bs ...Backend) {
		for _, b := range bs {
			if b != nil {
				backends[b.Name()] = b
			}
		}
	}

	if !s.noDefaults {
		add(TextPDF{}, DocxWriter{}, NewMarkup(), TextExtract{}, ImageFormat{}, ImagePDF{},
			NewPdfium(), NewFitz(), &Render{Attribution: s.attribution})
	}
	if s.gotenbergURL != "" {
		client := s.httpClient
		if client == nil {
			client = &http.Client{}
		}
		add(NewGotenberg(s.gotenbergURL, client, s.logger).Backends()...)
	}
	if s.soffice {
		if so := NewSoffice(s.sofficeBin, s.logger); so != nil {
			add(so)
		} else {
			p.logger.Warn().Msg("LibreOffice not found, soffice backend disabled")
		}
	}
	if s.chromium {
		c := NewChromium(s.chromiumURL, s.logger)
		add(c.Backends()...)
		p.closers = append(p.closers, c.Close)
	}
	add(s.backends...)
	return backends
}

// Close releases long-lived resources such as a launched browser.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// ScratchStats returns cumulative scratch file counters.
func (p *Pipeline) ScratchStats() scratch.Stats {
	return p.scratch.Stats()
}

// Route returns the path a conversion from src to dst would take.
func (p *Pipeline) Route(src, dst Format) (Path, error) {
	return p.router.Route(src, dst)
}

// Formats lists every routable conversion.
func (p *Pipeline) Formats() []Path {
	return p.router.Paths()
}

// ConvertFile converts the file at path.
func (p *Pipeline) ConvertFile(ctx context.Context, path string, target Format) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return p.ConvertReader(ctx, f, StreamInfo{Filename: filepath.Base(path)}, target)
}

// ConvertReader reads r up to the input size limit and converts it.
func (p *Pipeline) ConvertReader(ctx context.Context, r io.Reader, info StreamInfo, target Format) (*Result, error) {
	if p.maxInput > 0 {
		r = io.LimitReader(r, p.maxInput+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return p.Convert(ctx, Request{
		Data:         data,
		TargetFormat: target,
		MIMEType:     info.MIMEType,
		Filename:     info.Filename,
	})
}

// Convert runs one conversion. Format and routing problems are reported
// before any backend runs or any scratch file exists. Every scratch file the
// request creates is removed before Convert returns.
func (p *Pipeline) Convert(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	data, src := req.Data, req.SourceFormat
	if len(data) == 0 && req.Text != "" {
		data, src = []byte(req.Text), FormatText
	}
	if !req.TargetFormat.Valid() {
		return nil, &UnsupportedFormatPairError{Source: sourceName(src, req), Target: string(req.TargetFormat)}
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if p.maxInput > 0 && int64(len(data)) > p.maxInput {
		return nil, ErrInputTooLarge
	}
	if src == "" || src == FormatUnknown {
		src = Detect(data, req.MIMEType, req.Filename)
	}

	path, err := p.router.Route(src, req.TargetFormat)
	if err != nil {
		p.logger.Info().Str("source", string(src)).Str("target", string(req.TargetFormat)).Msg("unsupported conversion")
		return nil, err
	}

	// An image encoding only applies to already-raster output when someone
	// asked for it; the png default is for images the backends draw.
	requested := req.Options.ImageEncoding
	if requested == "" {
		requested = p.options.ImageEncoding
	}
	opts := req.Options
	opts.merge(p.options)
	opts.defaults()

	log := p.logger.With().Stringer("path", path).Str("file", req.Filename).Logger()

	session, err := p.scratch.Session()
	if err != nil {
		log.Error().Err(err).Msg("scratch session")
		return nil, &ResourceFaultError{Op: "session", Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Error().Err(err).Msg("scratch cleanup")
		}
	}()

	in := Input{
		Data:     data,
		Source:   src,
		Target:   req.TargetFormat,
		Title:    req.Title,
		Options:  opts,
		Scratch:  session,
		Filename: req.Filename,
	}

	seg, err := p.run(ctx, path, in, session, requested)
	if err != nil && req.TargetFormat == FormatImage && IsBackendExhausted(err) {
		seg, err = p.fallback(ctx, in, err)
	}
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("conversion failed")
		return nil, err
	}

	out := seg.data
	mime := req.TargetFormat.MIMEType()
	ext := req.TargetFormat.Extension()
	if req.TargetFormat == FormatImage {
		if requested != "" {
			out = p.normalizeImage(out, opts, log)
		}
		mime, ext = imageType(out, req, mime, ext)
	}

	res := &Result{
		Data:     out,
		FileName: outputName(req.Filename, req.Title, ext),
		MIMEType: mime,
		Format:   req.TargetFormat,
		Path:     path,
		Degraded: seg.degraded,
		Attempts: seg.attempts,
	}
	log.Info().Int("bytes", len(out)).Bool("degraded", res.Degraded).Int("attempts", len(res.Attempts)).
		Dur("elapsed", time.Since(start)).Msg("conversion done")
	return res, nil
}

// run executes every hop of path. A pass-through returns the input bytes
// untouched unless an image must be re-encoded to encoding. The output of the first hop of a two-hop
// path is persisted as a scratch file, read back for the second hop and
// released once the second hop returns.
func (p *Pipeline) run(ctx context.Context, path Path, in Input, session *scratch.Session, encoding ImageEncoding) (*segmentResult, error) {
	switch path.Kind {
	case PathPassthrough:
		if in.Source == FormatImage && encoding != "" && imageEncodingOf(in.Data) != encoding {
			pair := Pair{FormatImage, FormatImage}
			return p.exec.run(ctx, pair, p.router.Cascade(pair), in)
		}
		return &segmentResult{data: in.Data}, nil

	case PathDirect:
		hop := path.Hops[0]
		return p.exec.run(ctx, hop, p.router.Cascade(hop), in)
	}

	first, second := path.Hops[0], path.Hops[1]
	hop1 := in
	hop1.Target = first.To
	res1, err := p.exec.run(ctx, first, p.router.Cascade(first), hop1)
	if err != nil {
		return nil, err
	}

	mid, release, err := session.Acquire(first.To.Extension())
	if err != nil {
		return nil, &ResourceFaultError{Op: "acquire", Err: err}
	}
	defer release()
	if err := os.WriteFile(mid, res1.data, 0o600); err != nil {
		return nil, &ResourceFaultError{Op: "write", Err: err}
	}
	data, err := os.ReadFile(mid)
	if err != nil {
		return nil, &ResourceFaultError{Op: "read", Err: err}
	}

	hop2 := in
	hop2.Data = data
	hop2.Source = first.To
	res2, err := p.exec.run(ctx, second, p.router.Cascade(second), hop2)
	if err != nil {
		var exhausted *BackendExhaustedError
		if errors.As(err, &exhausted) {
			exhausted.Attempts = append(res1.attempts, exhausted.Attempts...)
		}
		return nil, err
	}
	res2.attempts = append(res1.attempts, res2.attempts...)
	res2.degraded = res2.degraded || res1.degraded
	return res2, nil
}

// fallback renders the original source as a preview image after the routed
// cascades for an image target are exhausted.
func (p *Pipeline) fallback(ctx context.Context, in Input, cause error) (*segmentResult, error) {
	if _, ok := p.exec.backends[BackendRender]; !ok {
		return nil, cause
	}
	var exhausted *BackendExhaustedError
	errors.As(cause, &exhausted)

	pair := Pair{in.Source, FormatImage}
	for _, a := range exhausted.Attempts {
		if a.Backend == BackendRender && a.Pair == pair {
			return nil, cause
		}
	}

	p.logger.Info().Stringer("pair", pair).Msg("rendering fallback preview")
	res, err := p.exec.run(ctx, pair, []string{BackendRender}, in)
	if err != nil {
		var last *BackendExhaustedError
		if errors.As(err, &last) {
			exhausted.Attempts = append(exhausted.Attempts, last.Attempts...)
		}
		return nil, cause
	}
	res.attempts = append(exhausted.Attempts, res.attempts...)
	return res, nil
}

// normalizeImage re-encodes image output that a backend produced in a
// different encoding than requested. Output that cannot be decoded is kept.
func (p *Pipeline) normalizeImage(data []byte, opts Options, log zerolog.Logger) []byte {
	if imageEncodingOf(data) == opts.ImageEncoding {
		return data
	}
	img, _, err := decodeImage(data)
	if err != nil {
		log.Debug().Err(err).Msg("keeping image output in its original encoding")
		return data
	}
	out, err := encodeImage(img, opts)
	if err != nil {
		log.Debug().Err(err).Msg("keeping image output in its original encoding")
		return data
	}
	return out
}

// imageType names the MIME type and extension of image output. Encodings
// the pipeline cannot write, such as HEIC or WebP passed through as is, keep
// their sniffed type or else the extension and MIME type of the request.
func imageType(data []byte, req Request, mime, ext string) (string, string) {
	if enc := imageEncodingOf(data); enc != "" {
		return enc.MIMEType(), enc.Extension()
	}
	prefix := data[:min(len(data), sniffLimit)]
	if m := mimetype.Detect(prefix); strings.HasPrefix(m.String(), "image/") && m.Extension() != "" {
		return m.String(), m.Extension()
	}
	if e := filepath.Ext(req.Filename); e != "" {
		ext = strings.ToLower(e)
	}
	if strings.HasPrefix(req.MIMEType, "image/") {
		mime = req.MIMEType
	}
	return mime, ext
}

func sourceName(src Format, req Request) string {
	if src != "" && src != FormatUnknown {
		return string(src)
	}
	if len(req.Data) > 0 || req.Filename != "" || req.MIMEType != "" {
		if f := Detect(req.Data, req.MIMEType, req.Filename); f != FormatUnknown {
			return string(f)
		}
	}
	return string(FormatUnknown)
}
