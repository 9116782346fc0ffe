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
	"time"

	"github.com/nicholasgasior/docconv-go/internal/render"
)

// Render is the Fallback Renderer: it lays the source's plain text onto a
// single page image with a status header. Extraction failures are not fatal;
// the page then carries a placeholder and the result is marked degraded.
type Render struct {
	// Config overrides the page geometry.
	Config render.Config
	// Attribution is printed in the footer.
	Attribution string
	// Now stamps the footer; nil means time.Now.
	Now func() time.Time
}

func (*Render) Name() string      { return BackendRender }
func (*Render) Kind() BackendKind { return KindFallback }

func (r *Render) Convert(ctx context.Context, in *Input) ([]byte, error) {
	meta := render.Meta{
		Status:      "Preview: the original layout could not be converted",
		Source:      sourceLabel(in),
		Title:       in.Title,
		Attribution: r.Attribution,
		Generated:   time.Now(),
	}
	if r.Now != nil {
		meta.Generated = r.Now()
	}

	var text string
	budget := r.Config.TextBudget
	if budget <= 0 {
		budget = render.DefaultTextBudget
	}
	// Sanitizing collapses whitespace, so read somewhat past the budget.
	if ex, sanitized, err := content(in, budget*2); err == nil {
		text = sanitized
		meta.Pages = ex.Pages
		if meta.Title == "" {
			meta.Title = ex.Title
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, page := render.Render(text, meta, r.Config)
	if page.Placeholder {
		in.MarkDegraded()
	}
	return encodeImage(img, in.Options)
}

func sourceLabel(in *Input) string {
	if in.Filename != "" {
		return in.Filename
	}
	return string(in.Source)
}
