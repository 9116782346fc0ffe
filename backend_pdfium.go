//go:build !nopdfium

package docconv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

var (
	pdfiumPool     pdfium.Pool
	pdfiumPoolOnce sync.Once
	pdfiumPoolErr  error
)

func initPdfiumPool() {
	pdfiumPool, pdfiumPoolErr = webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 2,
	})
}

// Pdfium renders the first page of a PDF with PDFium running in WebAssembly.
type Pdfium struct{}

// NewPdfium returns the PDFium page renderer.
func NewPdfium() Backend {
	return Pdfium{}
}

func (Pdfium) Name() string      { return BackendPdfium }
func (Pdfium) Kind() BackendKind { return KindLocal }

func (Pdfium) Convert(ctx context.Context, in *Input) ([]byte, error) {
	pdfiumPoolOnce.Do(initPdfiumPool)
	if pdfiumPoolErr != nil {
		return nil, fmt.Errorf("init pdfium: %w", pdfiumPoolErr)
	}

	wait := 30 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		wait = time.Until(dl)
	}
	instance, err := pdfiumPool.GetInstance(wait)
	if err != nil {
		return nil, fmt.Errorf("get pdfium instance: %w", err)
	}
	defer instance.Close()

	data := in.Data
	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	resp, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(in.Options.DPI),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    0,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	defer resp.Cleanup()

	return encodeImage(resp.Result.Image, in.Options)
}

