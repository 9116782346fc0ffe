//go:build nofitz

package docconv

// NewFitz returns nil in builds without MuPDF; the cascade skips it.
func NewFitz() Backend {
	return nil
}
