package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertUnknownTarget(t *testing.T) {
	t.Setenv("DOCCONV_SCRATCH_DIR", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{
		"convert", "--to", "xyz", "--text", "hello", "--output", "-",
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.EqualError(t, err, "Sorry, converting text to xyz is not supported.")
	assert.Empty(t, out.String())
}
