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
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Gotenberg routes of a Gotenberg 8 service.
const (
	gotenbergOfficePath     = "/forms/libreoffice/convert"
	gotenbergHTMLPath       = "/forms/chromium/convert/html"
	gotenbergScreenshotPath = "/forms/chromium/screenshot/html"
)

// maxRemoteResponse caps what is read back from a conversion service.
const maxRemoteResponse = 64 << 20

// Gotenberg is a client for a Gotenberg conversion service. It provides three
// backends: office documents and images to PDF through LibreOffice, and HTML
// (or text rendered as HTML) to PDF or to a screenshot through Chromium.
type Gotenberg struct {
	URL    string
	Client *http.Client
	Logger zerolog.Logger
}

// NewGotenberg returns a client for the service at url.
func NewGotenberg(url string, client *http.Client, logger zerolog.Logger) *Gotenberg {
	if client == nil {
		client = &http.Client{}
	}
	return &Gotenberg{URL: strings.TrimRight(url, "/"), Client: client, Logger: logger}
}

// Backends returns the office, HTML and screenshot backends.
func (g *Gotenberg) Backends() []Backend {
	return []Backend{
		&gotenbergBackend{g: g, name: BackendGotenbergOffice, path: gotenbergOfficePath, form: officeForm},
		&gotenbergBackend{g: g, name: BackendGotenbergHTML, path: gotenbergHTMLPath, form: htmlForm},
		&gotenbergBackend{g: g, name: BackendGotenbergScreenshot, path: gotenbergScreenshotPath, form: screenshotForm},
	}
}

type gotenbergBackend struct {
	g    *Gotenberg
	name string
	path string
	form func(w *multipart.Writer, in *Input) error
}

func (b *gotenbergBackend) Name() string      { return b.name }
func (b *gotenbergBackend) Kind() BackendKind { return KindRemote }

func (b *gotenbergBackend) Convert(ctx context.Context, in *Input) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := b.form(mw, in); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.g.URL+b.path, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse+1))
	if err != nil {
		return nil, fmt.Errorf("read gotenberg response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b.g.Logger.Debug().Str("backend", b.name).Int("status", resp.StatusCode).
			Str("body", string(data[:min(len(data), 512)])).Msg("gotenberg error response")
		return nil, fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	if len(data) > maxRemoteResponse {
		return nil, errors.New("gotenberg response too large")
	}
	return data, nil
}

func addFile(w *multipart.Writer, name string, data []byte) error {
	fw, err := w.CreateFormFile("files", name)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

func officeForm(w *multipart.Writer, in *Input) error {
	return addFile(w, "document"+inputExtension(in), in.Data)
}

// pageHTML returns the input as a complete, sanitized HTML page.
func pageHTML(in *Input) ([]byte, error) {
	switch in.Source {
	case FormatHTML:
		src := decodeText(in.Data, htmlCharset(in.Data))
		title := htmlTitle(src)
		if title == "" {
			title = in.Title
		}
		return htmlDocument(title, []byte(sanitizePolicy.Sanitize(src))), nil
	case FormatText:
		return NewMarkup().Convert(context.Background(), in)
	}
	return nil, fmt.Errorf("cannot render %s as HTML", in.Source)
}

func htmlForm(w *multipart.Writer, in *Input) error {
	page, err := pageHTML(in)
	if err != nil {
		return err
	}
	return addFile(w, "index.html", page)
}

func screenshotForm(w *multipart.Writer, in *Input) error {
	if err := htmlForm(w, in); err != nil {
		return err
	}
	format := "png"
	if in.Options.ImageEncoding == EncodingJPEG {
		format = "jpeg"
	}
	for k, v := range map[string]string{"format": format, "width": "1240", "height": "1754", "optimizeForSpeed": "true"} {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	return nil
}
