package docconv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholasgasior/docconv-go/internal/ooxml"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	p, err := New(append([]Option{WithScratchDir(root)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, root
}

func assertScratchEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvertTextToPDF(t *testing.T) {
	p, root := newTestPipeline(t)

	res, err := p.Convert(context.Background(), Request{
		Data:         []byte("Hello\n\nWorld"),
		TargetFormat: FormatPDF,
		Filename:     "greeting.txt",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF-")))
	assert.Equal(t, "greeting.pdf", res.FileName)
	assert.Equal(t, "application/pdf", res.MIMEType)
	assert.Equal(t, PathDirect, res.Path.Kind)
	assert.False(t, res.Degraded)

	last := res.Attempts[len(res.Attempts)-1]
	assert.Equal(t, BackendTextPDF, last.Backend)
	assert.Equal(t, OutcomeSuccess, last.Outcome)
	assertScratchEmpty(t, root)
}

func TestConvertCaptionText(t *testing.T) {
	p, _ := newTestPipeline(t)

	res, err := p.Convert(context.Background(), Request{
		Text:         "A caption without attachment",
		TargetFormat: FormatHTML,
		Title:        "Caption",
	})
	require.NoError(t, err)
	assert.Contains(t, string(res.Data), "A caption without attachment")
	assert.Equal(t, "Caption.html", res.FileName)
}

func TestConvertImageToPDF(t *testing.T) {
	p, _ := newTestPipeline(t)

	res, err := p.Convert(context.Background(), Request{
		Data:         samplePNG(t),
		MIMEType:     "image/png",
		TargetFormat: FormatPDF,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF-")))
	assert.Equal(t, "document.pdf", res.FileName)
}

func TestConvertTwoHop(t *testing.T) {
	toPDF := &fakeBackend{name: "fake-pdf", out: fakePDF(), check: func(in *Input) {
		assert.Equal(t, FormatDocx, in.Source)
		assert.Equal(t, FormatPDF, in.Target)
	}}
	pngData := samplePNG(t)
	toImage := &fakeBackend{name: "fake-image", out: pngData, check: func(in *Input) {
		assert.Equal(t, FormatPDF, in.Source)
		assert.Equal(t, fakePDF(), in.Data)
	}}

	p, root := newTestPipeline(t,
		WithoutDefaultBackends(),
		WithTable(Table{
			{FormatDocx, FormatPDF}:  {"fake-pdf"},
			{FormatPDF, FormatImage}: {"fake-image"},
		}),
		WithBackend(toPDF),
		WithBackend(toImage),
	)

	res, err := p.Convert(context.Background(), Request{
		Data:         []byte("PK\x03\x04 docx"),
		SourceFormat: FormatDocx,
		TargetFormat: FormatImage,
		Filename:     "report.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, pngData, res.Data)
	assert.Equal(t, "report.png", res.FileName)
	assert.Equal(t, "image/png", res.MIMEType)
	assert.Equal(t, PathTwoHop, res.Path.Kind)
	assert.Equal(t, FormatPDF, res.Path.Intermediate())
	require.Len(t, res.Attempts, 2)

	st := p.ScratchStats()
	assert.EqualValues(t, 1, st.Sessions)
	assert.EqualValues(t, 1, st.Acquired)
	assert.EqualValues(t, 1, st.Released)
	assertScratchEmpty(t, root)
}

func TestConvertTwoHopSecondHopFails(t *testing.T) {
	p, root := newTestPipeline(t,
		WithoutDefaultBackends(),
		WithTable(Table{
			{FormatDocx, FormatPDF}:  {"fake-pdf"},
			{FormatPDF, FormatImage}: {"broken"},
		}),
		WithBackend(&fakeBackend{name: "fake-pdf", out: fakePDF()}),
		WithBackend(&fakeBackend{name: "broken", err: errors.New("renderer crashed")}),
	)

	_, err := p.Convert(context.Background(), Request{
		Data:         []byte("docx"),
		SourceFormat: FormatDocx,
		TargetFormat: FormatImage,
	})
	require.Error(t, err)

	var exhausted *BackendExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, Pair{FormatPDF, FormatImage}, exhausted.Pair)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, "fake-pdf", exhausted.Attempts[0].Backend)
	assert.Equal(t, "Conversion failed, please try again later.", UserMessage(err))

	st := p.ScratchStats()
	assert.Equal(t, st.Acquired, st.Released)
	assertScratchEmpty(t, root)
}

func TestConvertUnsupported(t *testing.T) {
	backend := &fakeBackend{name: "never", out: fakePDF()}
	p, root := newTestPipeline(t, WithBackend(backend))

	_, err := p.Convert(context.Background(), Request{
		Data:         []byte("Hello"),
		TargetFormat: Format("xyz"),
	})
	require.Error(t, err)
	assert.True(t, IsUnsupportedFormatPair(err))
	assert.Equal(t, "Sorry, converting text to xyz is not supported.", UserMessage(err))

	_, err = p.Convert(context.Background(), Request{
		Data:         samplePNG(t),
		TargetFormat: FormatDocx,
	})
	assert.True(t, IsUnsupportedFormatPair(err))

	assert.EqualValues(t, 0, p.ScratchStats().Sessions)
	assert.EqualValues(t, 0, backend.calls.Load())
	assertScratchEmpty(t, root)
}

func TestConvertEmptyAndOversized(t *testing.T) {
	p, _ := newTestPipeline(t, WithMaxInputSize(8))

	_, err := p.Convert(context.Background(), Request{TargetFormat: FormatPDF})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.Convert(context.Background(), Request{Data: []byte("more than eight bytes"), TargetFormat: FormatPDF})
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = p.ConvertReader(context.Background(), strings.NewReader("more than eight bytes"), StreamInfo{}, FormatPDF)
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestConvertPassthrough(t *testing.T) {
	p, root := newTestPipeline(t)

	pdf := fakePDF()
	res, err := p.Convert(context.Background(), Request{Data: pdf, TargetFormat: FormatPDF, Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, pdf, res.Data)
	assert.Equal(t, PathPassthrough, res.Path.Kind)
	assert.Empty(t, res.Attempts)

	// Same format, different encoding: re-encoded.
	res, err = p.Convert(context.Background(), Request{
		Data:         samplePNG(t),
		TargetFormat: FormatImage,
		Options:      Options{ImageEncoding: EncodingJPEG},
		Filename:     "photo.png",
	})
	require.NoError(t, err)
	assert.Equal(t, EncodingJPEG, imageEncodingOf(res.Data))
	assert.Equal(t, "image/jpeg", res.MIMEType)
	assert.Equal(t, "photo.jpg", res.FileName)
	assertScratchEmpty(t, root)
}

func TestConvertPassthroughKeepsBytes(t *testing.T) {
	docx, err := ooxml.DocumentBytes(&ooxml.Document{Paragraphs: []string{"kept"}})
	require.NoError(t, err)
	samples := map[Format]struct {
		data []byte
		name string
		mime string
	}{
		FormatText:  {[]byte("hello"), "notes.txt", "text/plain; charset=utf-8"},
		FormatPDF:   {fakePDF(), "report.pdf", "application/pdf"},
		FormatHTML:  {[]byte("<html><body><p>hi</p></body></html>"), "page.html", "text/html; charset=utf-8"},
		FormatDocx:  {docx, "letter.docx", FormatDocx.MIMEType()},
		FormatDoc:   {[]byte(`{\rtf1\ansi legacy}`), "legacy.doc", FormatDoc.MIMEType()},
		FormatImage: {sampleJPEG(t), "photo.jpg", "image/jpeg"},
	}
	p, root := newTestPipeline(t)

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			in := samples[f]
			require.NotEmpty(t, in.data)
			res, err := p.Convert(context.Background(), Request{
				Data:         in.data,
				SourceFormat: f,
				TargetFormat: f,
				Filename:     in.name,
			})
			require.NoError(t, err)
			assert.True(t, bytes.Equal(res.Data, in.data), "bytes changed")
			assert.Equal(t, PathPassthrough, res.Path.Kind)
			assert.Empty(t, res.Attempts)
			assert.False(t, res.Degraded)
			assert.Equal(t, in.name, res.FileName)
			assert.Equal(t, in.mime, res.MIMEType)
		})
	}
	assertScratchEmpty(t, root)
}

func TestConvertImagePassthroughEncodings(t *testing.T) {
	jpg := sampleJPEG(t)

	t.Run("undecodable image", func(t *testing.T) {
		p, _ := newTestPipeline(t)
		heic := append([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic"), bytes.Repeat([]byte{0x42}, 256)...)
		res, err := p.Convert(context.Background(), Request{Data: heic, SourceFormat: FormatImage, TargetFormat: FormatImage, Filename: "IMG_0001.HEIC"})
		require.NoError(t, err)
		assert.Equal(t, heic, res.Data)
		assert.Empty(t, res.Attempts)
		assert.False(t, res.Degraded)
		assert.Equal(t, "image/heic", res.MIMEType)
		assert.Equal(t, "IMG_0001.heic", res.FileName)
	})

	t.Run("pipeline encoding re-encodes", func(t *testing.T) {
		p, _ := newTestPipeline(t, WithImageEncoding(EncodingPNG))
		res, err := p.Convert(context.Background(), Request{Data: jpg, TargetFormat: FormatImage, Filename: "photo.jpg"})
		require.NoError(t, err)
		assert.Equal(t, EncodingPNG, imageEncodingOf(res.Data))
		assert.Equal(t, "photo.png", res.FileName)
		assert.Len(t, res.Attempts, 1)
	})

	t.Run("matching encoding is untouched", func(t *testing.T) {
		p, _ := newTestPipeline(t, WithImageEncoding(EncodingJPEG))
		res, err := p.Convert(context.Background(), Request{Data: jpg, TargetFormat: FormatImage, Filename: "photo.jpg"})
		require.NoError(t, err)
		assert.Equal(t, jpg, res.Data)
		assert.Empty(t, res.Attempts)
	})
}

func TestConvertTextToPDFNonLatin(t *testing.T) {
	p, _ := newTestPipeline(t)

	res, err := p.Convert(context.Background(), Request{
		Text:         "Привет мир\n\nΓειά σου κόσμε",
		TargetFormat: FormatPDF,
	})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	ex, err := extract(res.Data, FormatPDF, 0)
	require.NoError(t, err)
	assert.Contains(t, ex.Text, "Привет мир")
	assert.Contains(t, ex.Text, "Γειά σου κόσμε")

	// The embedded font has no CJK glyphs: the text layer keeps the
	// characters but the page cannot show them.
	res, err = p.Convert(context.Background(), Request{
		Text:         "Привет мир\n\n你好世界",
		TargetFormat: FormatPDF,
	})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	ex, err = extract(res.Data, FormatPDF, 0)
	require.NoError(t, err)
	assert.Contains(t, ex.Text, "Привет мир")
	assert.NotContains(t, ex.Text, "?????")
}

func TestConvertRenderFallback(t *testing.T) {
	broken := &fakeBackend{name: "broken", err: errors.New("no renderer")}
	p, root := newTestPipeline(t,
		WithoutDefaultBackends(),
		WithTable(Table{{FormatPDF, FormatImage}: {"broken"}}),
		WithBackend(broken),
		WithBackend(&Render{}),
	)

	res, err := p.Convert(context.Background(), Request{
		Data:         []byte("%PDF-1.4 not really a pdf"),
		TargetFormat: FormatImage,
		Filename:     "scan.pdf",
	})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, EncodingPNG, imageEncodingOf(res.Data))
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, OutcomeError, res.Attempts[0].Outcome)
	assert.Equal(t, BackendRender, res.Attempts[1].Backend)
	assertScratchEmpty(t, root)
}

func TestConvertPlaceholderDegraded(t *testing.T) {
	p, _ := newTestPipeline(t)

	res, err := p.Convert(context.Background(), Request{
		Data:         []byte("🙂🙂🙂"),
		SourceFormat: FormatText,
		TargetFormat: FormatImage,
		Options:      Options{ImageEncoding: EncodingJPEG},
	})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, EncodingJPEG, imageEncodingOf(res.Data))
	assert.Equal(t, "document.jpg", res.FileName)
}

func TestConvertFile(t *testing.T) {
	p, _ := newTestPipeline(t)

	path := filepath.Join(t.TempDir(), "notes.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body><p>Hello file</p></body></html>"), 0o600))

	res, err := p.ConvertFile(context.Background(), path, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Hello file\n", string(res.Data))
	assert.Equal(t, "notes.txt", res.FileName)

	_, err = p.ConvertFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), FormatPDF)
	assert.Error(t, err)
}

func TestConcurrentConversionsIsolated(t *testing.T) {
	p, root := newTestPipeline(t)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := p.Convert(context.Background(), Request{Data: []byte("parallel text"), TargetFormat: FormatPDF})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		assert.NoError(t, <-errs)
	}
	assert.EqualValues(t, n, p.ScratchStats().Sessions)
	assertScratchEmpty(t, root)
}

func TestFormatsListing(t *testing.T) {
	p, _ := newTestPipeline(t)
	paths := p.Formats()
	require.NotEmpty(t, paths)

	route, err := p.Route(FormatDoc, FormatImage)
	require.NoError(t, err)
	assert.Equal(t, "doc→pdf→image", route.String())
}
