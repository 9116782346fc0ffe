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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Soffice converts office documents with a local LibreOffice in headless
// mode. Every call gets its own profile directory next to its scratch input,
// so concurrent conversions never share LibreOffice state.
type Soffice struct {
	Binary string
	Logger zerolog.Logger
}

// NewSoffice returns a LibreOffice backend. An empty binary looks up
// "soffice" and then "libreoffice" on PATH; nil is returned when neither is
// installed.
func NewSoffice(binary string, logger zerolog.Logger) *Soffice {
	if binary == "" {
		for _, name := range []string{"soffice", "libreoffice"} {
			if p, err := exec.LookPath(name); err == nil {
				binary = p
				break
			}
		}
	}
	if binary == "" {
		return nil
	}
	return &Soffice{Binary: binary, Logger: logger}
}

func (*Soffice) Name() string      { return BackendSoffice }
func (*Soffice) Kind() BackendKind { return KindLocal }

const sofficeWaitDelay = 2 * time.Second

// sofficeFilters are the LibreOffice output filters per target.
var sofficeFilters = map[Format]string{
	FormatPDF:  "pdf",
	FormatDoc:  `doc:"MS Word 97"`,
	FormatDocx: `docx:"MS Word 2007 XML"`,
}

func (s *Soffice) Convert(ctx context.Context, in *Input) ([]byte, error) {
	filter, ok := sofficeFilters[in.Target]
	if !ok {
		return nil, fmt.Errorf("soffice cannot produce %s", in.Target)
	}
	if in.Scratch == nil {
		return nil, errors.New("soffice needs scratch space")
	}

	inPath, release, err := in.Scratch.Acquire(inputExtension(in))
	if err != nil {
		return nil, &ResourceFaultError{Op: "acquire", Err: err}
	}
	defer release()
	if err := os.WriteFile(inPath, in.Data, 0o600); err != nil {
		return nil, &ResourceFaultError{Op: "write", Err: err}
	}

	dir := filepath.Dir(inPath)
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	profile := filepath.Join(dir, base+"-profile")
	outPath := filepath.Join(dir, base+in.Target.Extension())
	defer os.RemoveAll(profile)
	defer os.Remove(outPath)

	args := []string{"--headless", "--norestore", "--nolockcheck"}
	if in.Source == FormatPDF {
		args = append(args, "--infilter=writer_pdf_import")
	}
	args = append(args,
		"-env:UserInstallation=file://"+filepath.ToSlash(profile),
		"--convert-to", filter,
		"--outdir", dir,
		inPath,
	)

	cmd := exec.CommandContext(ctx, s.Binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+profile)
	// soffice is usually a wrapper script around soffice.bin: cancellation
	// kills the whole process group, and Wait stops waiting on pipes a
	// surviving child still holds.
	killProcessGroup(cmd)
	cmd.WaitDelay = sofficeWaitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.Logger.Debug().Str("output", out.String()).Msg("soffice failed")
		return nil, fmt.Errorf("soffice: %w", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		s.Logger.Debug().Str("output", out.String()).Msg("soffice produced no output")
		return nil, errors.New("soffice produced no output")
	}
	return data, nil
}
