// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/harvest/internal/container"
	"github.com/pdiddy/harvest/pkg/types"
)

// fakeConverter implements Converter for testing. It returns canned text
// or an error, depending on configuration.
type fakeConverter struct {
	output string
	err    error
	calls  int
}

func (f *fakeConverter) Convert(_ context.Context, pdfPath string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

type fakeExecutor struct {
	onPath bool
	out    string
	args   []string
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.onPath {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found")
}

func (f *fakeExecutor) Run(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.args = append([]string{name}, args...)
	if stdin != nil {
		io.Copy(io.Discard, stdin)
	}
	_, err := io.WriteString(stdout, f.out)
	return err
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCleanText(t *testing.T) {
	in := "Özel Durum Açıklaması   \n\n\n\fSayfa 2\x00\r\n  satır\t \n"
	want := "Özel Durum Açıklaması\n\nSayfa 2\n  satır"
	if got := CleanText(in); got != want {
		t.Errorf("CleanText = %q, want %q", got, want)
	}
	if got := CleanText(" \n\f\n "); got != "" {
		t.Errorf("CleanText of blank = %q", got)
	}
}

func TestPdftotextConverter(t *testing.T) {
	if _, err := newPdftotextConverter(&fakeExecutor{}); err == nil {
		t.Fatal("expected error when pdftotext is missing")
	}

	exec := &fakeExecutor{onPath: true, out: "Kâr payı dağıtımı\n\n\n"}
	c, err := newPdftotextConverter(exec)
	if err != nil {
		t.Fatal(err)
	}
	pdf := writePDF(t, t.TempDir(), "ek.pdf")
	got, err := c.Convert(context.Background(), pdf)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Kâr payı dağıtımı" {
		t.Errorf("got %q", got)
	}
	if strings.Join(exec.args, " ") != "pdftotext -layout -enc UTF-8 - -" {
		t.Errorf("args = %v", exec.args)
	}
}

func TestPdftotextEmptyOutput(t *testing.T) {
	c, _ := newPdftotextConverter(&fakeExecutor{onPath: true, out: "\f\n"})
	pdf := writePDF(t, t.TempDir(), "scan.pdf")
	if _, err := c.Convert(context.Background(), pdf); err == nil {
		t.Error("expected error for empty output")
	}
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf")
	b := writePDF(t, dir, "b.pdf")
	if err := os.WriteFile(TextPath(b), []byte("cached text"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.pdf")

	fc := &fakeConverter{output: "fresh text"}
	var buf bytes.Buffer
	res, texts := ConvertBatch(context.Background(), fc, []string{a, b, missing}, &buf)

	// The fake converter does not open files, so the missing PDF converts too.
	if res.Converted != 2 || res.Skipped != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if texts[a] != "fresh text" || texts[b] != "cached text" {
		t.Errorf("texts = %v", texts)
	}
	if fc.calls != 2 {
		t.Errorf("converter calls = %d, want 2", fc.calls)
	}
	if data, err := os.ReadFile(TextPath(a)); err != nil || string(data) != "fresh text" {
		t.Errorf("cache file = %q, %v", data, err)
	}
	out := buf.String()
	for _, want := range []string{"converted: a.pdf", "skipped: b.pdf", "Batch summary: 2 converted, 1 skipped, 0 failed (total: 3)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConvertBatchFailure(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf")
	var buf bytes.Buffer
	res, texts := ConvertBatch(context.Background(), &fakeConverter{err: errors.New("container crashed")}, []string{a}, &buf)
	if !res.HasFailures() || res.Total() != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(texts) != 0 {
		t.Errorf("texts = %v", texts)
	}
	if !strings.Contains(buf.String(), "failed:  a.pdf (container crashed)") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestTextPath(t *testing.T) {
	if got := TextPath("/x/y/ek-1.pdf"); got != "/x/y/ek-1.txt" {
		t.Errorf("TextPath = %q", got)
	}
}

func TestContainerConverter(t *testing.T) {
	exec := &fakeExecutor{onPath: true, out: "Genel Kurul Daveti\n"}
	rt := container.NewEngine(container.Podman, exec)
	c, err := NewContainerConverter(context.Background(), rt, "minidocks/poppler:latest")
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Convert(context.Background(), writePDF(t, t.TempDir(), "ek.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "Genel Kurul Daveti" {
		t.Errorf("got %q", got)
	}
	args := strings.Join(exec.args, " ")
	if !strings.HasPrefix(args, "podman run --rm -i --network=none") || !strings.HasSuffix(args, "minidocks/poppler:latest pdftotext -layout -enc UTF-8 - -") {
		t.Errorf("args = %s", args)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New(context.Background(), types.ConversionConfig{Backend: "ocr"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
