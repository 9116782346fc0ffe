//go:build nopdfium

package docconv

// NewPdfium returns nil in builds without PDFium; the cascade skips it.
func NewPdfium() Backend {
	return nil
}
