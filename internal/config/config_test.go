package config

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholasgasior/docconv-go"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.EqualValues(t, 50<<20, cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Output.ImageEncoding)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Remote)
	assert.Empty(t, cfg.Gotenberg.URL)
	assert.False(t, cfg.Soffice.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
output:
  image_encoding: jpeg
  dpi: 150
timeouts:
  remote: 5s
gotenberg:
  url: http://gotenberg:3000
soffice:
  enabled: true
`), 0o600))

	t.Setenv("DOCCONV_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("DOCCONV_OUTPUT_DPI", "200")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "jpeg", cfg.Output.ImageEncoding)
	assert.Equal(t, 200.0, cfg.Output.DPI)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Remote)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Local)
	assert.Equal(t, "http://gotenberg:3000", cfg.Gotenberg.URL)
	assert.True(t, cfg.Soffice.Enabled)

	opts := cfg.PipelineOptions(zerolog.Nop())
	assert.NotEmpty(t, opts)
}

func TestDefaultsKeepImageEncoding(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Scratch.Dir = t.TempDir()

	p, err := docconv.New(cfg.PipelineOptions(zerolog.Nop())...)
	require.NoError(t, err)
	defer p.Close()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	res, err := p.Convert(context.Background(), docconv.Request{
		Data:         buf.Bytes(),
		TargetFormat: docconv.FormatImage,
		Filename:     "photo.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), res.Data)
	assert.Equal(t, "photo.jpg", res.FileName)
	assert.Empty(t, res.Attempts)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Output.ImageEncoding = "webp"
	cfg.Output.DPI = 5000
	cfg.Timeouts.Local = -time.Second
	cfg.Gotenberg.URL = "gotenberg:3000"

	err = cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"output.image_encoding", "output.dpi", "timeouts.local", "gotenberg.url"} {
		assert.Contains(t, err.Error(), field)
	}
}
