//go:build !nofitz

package docconv

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Fitz renders the first page of a PDF with MuPDF.
type Fitz struct{}

// NewFitz returns the MuPDF page renderer.
func NewFitz() Backend {
	return Fitz{}
}

func (Fitz) Name() string      { return BackendFitz }
func (Fitz) Kind() BackendKind { return KindLocal }

func (Fitz) Convert(_ context.Context, in *Input) ([]byte, error) {
	doc, err := fitz.NewFromMemory(in.Data)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return nil, errors.New("PDF has no pages")
	}
	img, err := doc.ImageDPI(0, in.Options.DPI)
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return encodeImage(img, in.Options)
}
