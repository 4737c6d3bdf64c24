// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
)

// scriptedExecutor answers commands from a table keyed by the joined
// command line and records every call.
type scriptedExecutor struct {
	onPath  map[string]bool
	succeed map[string]bool
	run     func(name string, args []string, stdin io.Reader, stdout io.Writer) error
	calls   []string
}

func (s *scriptedExecutor) LookPath(file string) (string, error) {
	if s.onPath[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (s *scriptedExecutor) Run(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	line := name + " " + strings.Join(args, " ")
	s.calls = append(s.calls, line)
	if s.run != nil && len(args) > 0 && args[0] == "run" {
		return s.run(name, args, stdin, stdout)
	}
	if s.succeed[line] {
		return nil
	}
	return errors.New("exit status 1")
}

const image = "minidocks/poppler:latest"

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		preference string
		exec       *scriptedExecutor
		want       string
		wantErr    error
	}{
		{
			name: "docker first under auto",
			exec: &scriptedExecutor{
				onPath:  map[string]bool{Docker: true, Podman: true},
				succeed: map[string]bool{"docker info": true, "podman info": true},
			},
			want: Docker,
		},
		{
			name:       "podman when docker daemon is down",
			preference: Auto,
			exec: &scriptedExecutor{
				onPath:  map[string]bool{Docker: true, Podman: true},
				succeed: map[string]bool{"podman info": true},
			},
			want: Podman,
		},
		{
			name:       "explicit podman skips docker",
			preference: "Podman",
			exec: &scriptedExecutor{
				onPath:  map[string]bool{Docker: true, Podman: true},
				succeed: map[string]bool{"docker info": true, "podman info": true},
			},
			want: Podman,
		},
		{
			name:       "explicit docker unavailable",
			preference: Docker,
			exec: &scriptedExecutor{
				onPath:  map[string]bool{Podman: true},
				succeed: map[string]bool{"podman info": true},
			},
			wantErr: ErrNoRuntime,
		},
		{
			name:    "nothing installed",
			exec:    &scriptedExecutor{},
			wantErr: ErrNoRuntime,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Detect(context.Background(), tt.preference, tt.exec)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Name() != tt.want {
				t.Errorf("runtime = %q, want %q", e.Name(), tt.want)
			}
		})
	}
}

func TestDetectUnknownPreference(t *testing.T) {
	if _, err := Detect(context.Background(), "lxc", &scriptedExecutor{}); err == nil || errors.Is(err, ErrNoRuntime) {
		t.Fatalf("err = %v, want unknown runtime error", err)
	}
}

func TestEnsureImage(t *testing.T) {
	tests := []struct {
		name      string
		bin       string
		pull      bool
		succeed   map[string]bool
		wantErr   bool
		wantPull  bool
		wantProbe string
	}{
		{
			name:      "docker image present",
			bin:       Docker,
			succeed:   map[string]bool{"docker image inspect " + image: true},
			wantProbe: "docker image inspect " + image,
		},
		{
			name:      "podman image present",
			bin:       Podman,
			succeed:   map[string]bool{"podman image exists " + image: true},
			wantProbe: "podman image exists " + image,
		},
		{
			name:      "missing without pull",
			bin:       Docker,
			wantErr:   true,
			wantProbe: "docker image inspect " + image,
		},
		{
			name:      "missing and pulled",
			bin:       Docker,
			pull:      true,
			succeed:   map[string]bool{"docker pull --quiet " + image: true},
			wantPull:  true,
			wantProbe: "docker image inspect " + image,
		},
		{
			name:      "pull fails",
			bin:       Podman,
			pull:      true,
			wantErr:   true,
			wantPull:  true,
			wantProbe: "podman image exists " + image,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &scriptedExecutor{succeed: tt.succeed}
			e := NewEngine(tt.bin, ex)
			e.Pull = tt.pull
			err := e.EnsureImage(context.Background(), image)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), image) {
				t.Errorf("error should name the image: %v", err)
			}
			if ex.calls[0] != tt.wantProbe {
				t.Errorf("probe = %q, want %q", ex.calls[0], tt.wantProbe)
			}
			pulled := len(ex.calls) > 1 && strings.Contains(ex.calls[1], " pull ")
			if pulled != tt.wantPull {
				t.Errorf("pulled = %v, want %v (calls %v)", pulled, tt.wantPull, ex.calls)
			}
		})
	}
}

func TestEngineRun(t *testing.T) {
	var gotArgs string
	ex := &scriptedExecutor{run: func(name string, args []string, stdin io.Reader, stdout io.Writer) error {
		gotArgs = name + " " + strings.Join(args, " ")
		data, _ := io.ReadAll(stdin)
		_, err := stdout.Write([]byte("text: " + string(data)))
		return err
	}}
	e := NewEngine(Docker, ex)

	var out bytes.Buffer
	if err := e.Run(context.Background(), image, []string{"pdftotext", "-", "-"}, strings.NewReader("%PDF-1.4"), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "text: %PDF-1.4" {
		t.Errorf("output = %q", out.String())
	}
	want := "docker run --rm -i --network=none --read-only --security-opt=no-new-privileges --cap-drop=ALL " +
		"--memory=256m --cpus=1 --pids-limit=64 " + image + " pdftotext - -"
	if gotArgs != want {
		t.Errorf("args:\n got  %s\n want %s", gotArgs, want)
	}
}

func TestEngineRunWithoutLimits(t *testing.T) {
	var gotArgs []string
	ex := &scriptedExecutor{run: func(_ string, args []string, _ io.Reader, _ io.Writer) error {
		gotArgs = args
		return nil
	}}
	e := NewEngine(Podman, ex)
	e.Limits = Limits{}
	if err := e.Run(context.Background(), image, nil, nil, io.Discard); err != nil {
		t.Fatal(err)
	}
	if got := gotArgs[len(gotArgs)-1]; got != image {
		t.Errorf("last arg = %q, want the image", got)
	}
	for _, a := range gotArgs {
		if strings.HasPrefix(a, "--memory") || strings.HasPrefix(a, "--pids-limit") {
			t.Errorf("unexpected limit flag %q", a)
		}
	}
}

func TestEngineRunFailure(t *testing.T) {
	ex := &scriptedExecutor{run: func(string, []string, io.Reader, io.Writer) error {
		return &CommandError{Command: Docker, Stderr: "Syntax Error: Couldn't find trailer dictionary", Err: errors.New("exit status 1")}
	}}
	err := NewEngine(Docker, ex).Run(context.Background(), image, nil, strings.NewReader(""), io.Discard)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CommandError", err)
	}
	if !strings.Contains(err.Error(), "trailer dictionary") {
		t.Errorf("error should carry stderr: %v", err)
	}
}

func TestOSExecutorCapturesStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := OSExecutor{}.Run(context.Background(), "sh", []string{"-c", "echo broken pdf >&2; exit 3"}, nil, io.Discard)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CommandError", err)
	}
	if ce.Stderr != "broken pdf" {
		t.Errorf("stderr = %q", ce.Stderr)
	}

	var out bytes.Buffer
	if err := (OSExecutor{}).Run(context.Background(), "sh", []string{"-c", "cat"}, strings.NewReader("ok"), &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "ok" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short \n", 10); got != "short" {
		t.Errorf("tail = %q", got)
	}
	if got := tail("0123456789abcdef", 4); got != "...cdef" {
		t.Errorf("tail = %q", got)
	}
}
