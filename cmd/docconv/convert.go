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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nicholasgasior/docconv-go"
)

var (
	convertTo       string
	convertFrom     string
	convertOutput   string
	convertMIME     string
	convertTitle    string
	convertText     string
	convertEncoding string
	convertTimeout  time.Duration
	convertVerbose  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [source]",
	Short: "Convert a file, URL or stdin",
	Long: `Convert a document. The source is a file path, an http(s) URL, or stdin
when omitted. Without --output the result is written next to the working
directory under its suggested name, or to stdout with --output -.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertTo, "to", "t", "", "target format (text, pdf, doc, docx, image, html)")
	convertCmd.Flags().StringVarP(&convertFrom, "from", "f", "", "source format (detected when omitted)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file, - for stdout")
	convertCmd.Flags().StringVarP(&convertMIME, "mime-type", "m", "", "MIME type hint")
	convertCmd.Flags().StringVar(&convertTitle, "title", "", "document title")
	convertCmd.Flags().StringVar(&convertText, "text", "", "convert this text instead of a source")
	convertCmd.Flags().StringVar(&convertEncoding, "encoding", "", "image encoding (png, jpeg, gif, bmp, tiff)")
	convertCmd.Flags().DurationVar(&convertTimeout, "timeout", 5*time.Minute, "overall timeout")
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "print the route and backend attempts")
	convertCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, convertTimeout)
	defer cancel()

	req := docconv.Request{MIMEType: convertMIME, Title: convertTitle, Text: convertText}
	var err error
	if req.TargetFormat, err = docconv.ParseFormat(convertTo); err != nil {
		// Convert reports it as an unsupported pair once the source is known.
		req.TargetFormat = docconv.Format(strings.ToLower(strings.TrimSpace(convertTo)))
	}
	if convertFrom != "" {
		if req.SourceFormat, err = docconv.ParseFormat(convertFrom); err != nil {
			return err
		}
	}
	if convertEncoding != "" {
		if req.Options.ImageEncoding, err = docconv.ParseImageEncoding(convertEncoding); err != nil {
			return err
		}
	}

	if convertText == "" {
		if err := readSource(ctx, args, &req); err != nil {
			return err
		}
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Convert(ctx, req)
	if err != nil {
		logger.Debug().Err(err).Msg("conversion failed")
		return errors.New(docconv.UserMessage(err))
	}

	if convertVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: %s\n", res.Path)
		for _, a := range res.Attempts {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %-22s %-8s %s\n", a.Backend, a.Outcome, a.Elapsed.Round(time.Millisecond))
		}
		if res.Degraded {
			fmt.Fprintln(cmd.ErrOrStderr(), "note: degraded output, a placeholder or characters the built-in font cannot show")
		}
	}
	return writeResult(cmd, res)
}

const maxDownload = 100 << 20

func readSource(ctx context.Context, args []string, req *docconv.Request) error {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		req.Data = data
		return nil
	}

	src := args[0]
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetch(ctx, src, req)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	req.Data = data
	req.Filename = filepath.Base(src)
	return nil
}

// fetch downloads a URL source, keeping its content type and base name.
func fetch(ctx context.Context, url string, req *docconv.Request) error {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	hreq.Header.Set("User-Agent", "docconv/"+version)
	resp, err := http.DefaultClient.Do(hreq)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Data = data
	if req.MIMEType == "" {
		req.MIMEType = resp.Header.Get("Content-Type")
	}
	if base := path.Base(resp.Request.URL.Path); base != "/" && base != "." {
		req.Filename = base
	}
	return nil
}

func writeResult(cmd *cobra.Command, res *docconv.Result) error {
	switch convertOutput {
	case "-":
		_, err := cmd.OutOrStdout().Write(res.Data)
		return err
	case "":
		convertOutput = res.FileName
	}
	if dir := filepath.Dir(convertOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(convertOutput, res.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), convertOutput)
	return nil
}
