package docconv

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBackend is a scriptable Backend.
type fakeBackend struct {
	name  string
	kind  BackendKind
	out   []byte
	err   error
	delay time.Duration
	panic bool
	check func(in *Input)

	calls atomic.Int32
}

func (f *fakeBackend) Name() string      { return f.name }
func (f *fakeBackend) Kind() BackendKind { return f.kind }

func (f *fakeBackend) Convert(ctx context.Context, in *Input) ([]byte, error) {
	f.calls.Add(1)
	if f.check != nil {
		f.check(in)
	}
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		// Ignores ctx on purpose to exercise abandonment.
		time.Sleep(f.delay)
	}
	return f.out, f.err
}

// samplePNG returns a small gradient PNG.
func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sampleJPEG returns samplePNG's gradient as a JPEG.
func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(samplePNG(t)))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

// fakePDF returns bytes that pass PDF output validation.
func fakePDF() []byte {
	return []byte("%PDF-1.4\n" + strings.Repeat("%fake content\n", 8) + "%%EOF\n")
}
