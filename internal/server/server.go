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

// Package server exposes the conversion pipeline over HTTP. It is the adapter
// a chat transport talks to: the bot uploads an attachment (or a caption) and
// gets back the converted file, or a single line it can show the user.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nicholasgasior/docconv-go"
)

// Header set on responses rendered from placeholder text.
const HeaderDegraded = "X-Docconv-Degraded"

// Converter is the part of the pipeline the server needs.
type Converter interface {
	Convert(ctx context.Context, req docconv.Request) (*docconv.Result, error)
	Formats() []docconv.Path
}

// Config holds server settings.
type Config struct {
	MaxUploadBytes int64
}

// Server handles conversion requests.
type Server struct {
	conv   Converter
	logger zerolog.Logger
	cfg    Config
}

// New creates a Server.
func New(conv Converter, logger zerolog.Logger, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &Server{conv: conv, logger: logger, cfg: cfg}
}

// Router returns the HTTP handler with all routes configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/convert", s.handleConvert)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

type conversionDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
	Via  string `json:"via,omitempty"`
}

type formatsDTO struct {
	Formats     []string        `json:"formats"`
	Conversions []conversionDTO `json:"conversions"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	out := formatsDTO{Conversions: []conversionDTO{}}
	for _, f := range docconv.Formats {
		out.Formats = append(out.Formats, string(f))
	}
	for _, p := range s.conv.Formats() {
		c := conversionDTO{From: string(p.Hops[0].From), To: string(p.Hops[len(p.Hops)-1].To)}
		if p.Kind == docconv.PathTwoHop {
			c.Via = string(p.Intermediate())
		}
		out.Conversions = append(out.Conversions, c)
	}
	writeJSON(w, http.StatusOK, out)
}

type errorDTO struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// handleConvert handles POST /v1/convert?to=<format>. The source is either a
// multipart form (file and/or text fields) or the raw request body.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := strings.TrimSpace(q.Get("to"))
	if to == "" {
		writeJSON(w, http.StatusBadRequest, errorDTO{Error: "Missing target format (?to=)."})
		return
	}
	target, err := docconv.ParseFormat(to)
	if err != nil {
		// Convert rejects it as an unsupported pair, naming the detected source.
		target = docconv.Format(strings.ToLower(to))
	}

	req := docconv.Request{TargetFormat: target, Title: q.Get("title"), Filename: q.Get("filename")}
	if from := q.Get("from"); from != "" {
		if req.SourceFormat, err = docconv.ParseFormat(from); err != nil {
			writeJSON(w, http.StatusBadRequest, errorDTO{Error: fmt.Sprintf("Unknown source format %q.", from)})
			return
		}
	}
	if enc := q.Get("encoding"); enc != "" {
		if req.Options.ImageEncoding, err = docconv.ParseImageEncoding(enc); err != nil {
			writeJSON(w, http.StatusBadRequest, errorDTO{Error: fmt.Sprintf("Unknown image encoding %q.", enc)})
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := s.readSource(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, docconv.ErrInputTooLarge)
			return
		}
		s.logger.Debug().Err(err).Msg("bad upload")
		writeJSON(w, http.StatusBadRequest, errorDTO{Error: "The upload could not be read."})
		return
	}

	res, err := s.conv.Convert(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("X-Docconv-Path", res.Path.String())
	if res.Degraded {
		w.Header().Set(HeaderDegraded, "true")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func (s *Server) readSource(r *http.Request, req *docconv.Request) error {
	ct, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" && params["boundary"] != "" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return err
		}
		defer r.MultipartForm.RemoveAll()

		req.Text = r.FormValue("text")
		if t := r.FormValue("title"); t != "" {
			req.Title = t
		}
		f, fh, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return nil
		case err != nil:
			return err
		}
		defer f.Close()
		if req.Data, err = io.ReadAll(f); err != nil {
			return err
		}
		if req.Filename == "" {
			req.Filename = fh.Filename
		}
		req.MIMEType = fh.Header.Get("Content-Type")
		return nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	req.Data = data
	if ct != "" && ct != "application/octet-stream" {
		req.MIMEType = ct
	}
	if req.Filename == "" {
		if _, p, err := mime.ParseMediaType(r.Header.Get("Content-Disposition")); err == nil {
			req.Filename = p["filename"]
		}
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := docconv.KindOf(err)
	switch {
	case kind == docconv.UnsupportedFormatPair:
		status = http.StatusUnprocessableEntity
	case kind == docconv.BackendExhausted:
		status = http.StatusBadGateway
	case errors.Is(err, docconv.ErrEmptyInput):
		status = http.StatusBadRequest
	case errors.Is(err, docconv.ErrInputTooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	ev := s.logger.Warn()
	if status == http.StatusInternalServerError {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Str("kind", string(kind)).Msg("conversion failed")

	writeJSON(w, status, errorDTO{Error: docconv.UserMessage(err), Kind: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
