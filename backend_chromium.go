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
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Chromium drives a headless Chrome through the DevTools protocol. The
// browser is started (or connected to) on first use and shared by all
// requests; every conversion uses its own tab.
type Chromium struct {
	// ControlURL is the DevTools WebSocket of a running browser. Empty
	// launches a local headless instance.
	ControlURL string
	Logger     zerolog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewChromium returns a Chromium driver.
func NewChromium(controlURL string, logger zerolog.Logger) *Chromium {
	return &Chromium{ControlURL: controlURL, Logger: logger}
}

// Backends returns the PDF and screenshot backends.
func (c *Chromium) Backends() []Backend {
	return []Backend{
		&chromiumBackend{c: c, name: BackendChromiumPDF},
		&chromiumBackend{c: c, name: BackendChromiumScreenshot, screenshot: true},
	}
}

func (c *Chromium) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	u := c.ControlURL
	if u == "" {
		l := launcher.New().Headless(true).Set("disable-gpu").Set("no-sandbox")
		var err error
		if u, err = l.Launch(); err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		c.lnch = l
		c.Logger.Info().Str("url", u).Msg("launched local chromium")
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect chromium: %w", err)
	}
	c.browser = b
	return b, nil
}

// Close shuts the browser down if this driver launched it.
func (c *Chromium) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	if c.lnch != nil {
		c.lnch.Cleanup()
		c.lnch = nil
	}
	return err
}

type chromiumBackend struct {
	c          *Chromium
	name       string
	screenshot bool
}

func (b *chromiumBackend) Name() string      { return b.name }
func (b *chromiumBackend) Kind() BackendKind { return KindLocal }

func (b *chromiumBackend) Convert(ctx context.Context, in *Input) ([]byte, error) {
	page, err := pageHTML(in)
	if err != nil {
		return nil, err
	}
	browser, err := b.c.connect()
	if err != nil {
		return nil, err
	}

	tab, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	if err := tab.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1240, Height: 1754, DeviceScaleFactor: 1}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := tab.SetDocumentContent(string(page)); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := tab.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if b.screenshot {
		req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
		if in.Options.ImageEncoding == EncodingJPEG {
			quality := in.Options.JPEGQuality
			req = &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatJpeg, Quality: &quality}
		}
		return tab.Screenshot(false, req)
	}

	stream, err := tab.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print to PDF: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read PDF stream: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty PDF stream")
	}
	return data, nil
}
