// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts plain text from PDF attachments with pdftotext,
// run either from PATH or inside a container image.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/harvest/internal/container"
	"github.com/pdiddy/harvest/pkg/types"
)

const binPdftotext = "pdftotext"

// pdftotextArgs reads a PDF on stdin and writes UTF-8 text to stdout.
var pdftotextArgs = []string{"-layout", "-enc", "UTF-8", "-", "-"}

// Converter extracts text from a PDF. Different backends implement this
// interface.
type Converter interface {
	// Convert reads the PDF at pdfPath and returns its text.
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// PdftotextConverter runs pdftotext from PATH.
type PdftotextConverter struct {
	exec container.Executor
}

// NewPdftotextConverter verifies pdftotext is on PATH.
func NewPdftotextConverter() (*PdftotextConverter, error) {
	return newPdftotextConverter(container.OSExecutor{})
}

func newPdftotextConverter(exec container.Executor) (*PdftotextConverter, error) {
	if _, err := exec.LookPath(binPdftotext); err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", binPdftotext, err)
	}
	return &PdftotextConverter{exec: exec}, nil
}

func (p *PdftotextConverter) Convert(ctx context.Context, pdfPath string) (string, error) {
	return pipe(pdfPath, func(in io.Reader, out io.Writer) error {
		return p.exec.Run(ctx, binPdftotext, pdftotextArgs, in, out)
	})
}

// ContainerConverter runs pdftotext inside a container image. It depends on
// a container.Runtime (docker or podman) injected at construction time.
type ContainerConverter struct {
	runtime container.Runtime
	image   string
}

// NewContainerConverter makes sure image is available before returning.
func NewContainerConverter(ctx context.Context, rt container.Runtime, image string) (*ContainerConverter, error) {
	if err := rt.EnsureImage(ctx, image); err != nil {
		return nil, fmt.Errorf("pdftotext image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerConverter{runtime: rt, image: image}, nil
}

func (c *ContainerConverter) Convert(ctx context.Context, pdfPath string) (string, error) {
	cmd := append([]string{binPdftotext}, pdftotextArgs...)
	return pipe(pdfPath, func(in io.Reader, out io.Writer) error {
		return c.runtime.Run(ctx, c.image, cmd, in, out)
	})
}

// pipe feeds the file at pdfPath through run and cleans the output.
func pipe(pdfPath string, run func(io.Reader, io.Writer) error) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := run(f, &out); err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", pdfPath, err)
	}
	text := CleanText(out.String())
	if text == "" {
		return "", fmt.Errorf("pdftotext produced empty output for %s", pdfPath)
	}
	return text, nil
}

// New builds the converter selected by cfg.
func New(ctx context.Context, cfg types.ConversionConfig) (Converter, error) {
	switch cfg.Backend {
	case types.BackendPdftotext, "":
		return NewPdftotextConverter()
	case types.BackendContainer:
		rt, err := container.Detect(ctx, cfg.Runtime, container.OSExecutor{})
		if err != nil {
			return nil, err
		}
		rt.Pull = cfg.PullImage
		if cfg.Memory != "" {
			rt.Limits.Memory = cfg.Memory
		}
		return NewContainerConverter(ctx, rt, cfg.Image)
	}
	return nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
}

// CleanText drops form feeds and control characters, trims trailing spaces
// and collapses runs of blank lines into one.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\f':
			return '\n'
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)

	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}

// BatchResult holds the outcome of a batch extraction run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed extraction.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// TextPath returns where the text of pdfPath is cached: same directory,
// .txt extension.
func TextPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".txt"
}

// ConvertFile extracts the text of one PDF, caching it next to the PDF. A
// cached .txt is returned without running the converter.
func ConvertFile(ctx context.Context, c Converter, pdfPath string) (string, bool, error) {
	txtPath := TextPath(pdfPath)
	if data, err := os.ReadFile(txtPath); err == nil {
		return string(data), true, nil
	}
	text, err := c.Convert(ctx, pdfPath)
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", txtPath, err)
	}
	return text, false, nil
}

// ConvertBatch extracts every PDF, printing per-file status to w and
// returning a summary along with the texts that were produced, keyed by
// PDF path.
func ConvertBatch(ctx context.Context, c Converter, pdfPaths []string, w io.Writer) (BatchResult, map[string]string) {
	var result BatchResult
	texts := make(map[string]string, len(pdfPaths))
	for _, p := range pdfPaths {
		base := filepath.Base(p)
		text, cached, err := ConvertFile(ctx, c, p)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
			result.Failed++
			continue
		case cached:
			fmt.Fprintf(w, "skipped: %s (already extracted)\n", base)
			result.Skipped++
		default:
			fmt.Fprintf(w, "converted: %s\n", base)
			result.Converted++
		}
		texts[p] = text
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result, texts
}
