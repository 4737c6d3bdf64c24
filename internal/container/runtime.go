// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs extraction tools on untrusted files, either from
// PATH or inside a locked-down docker or podman container so hosts without
// the tools can still read KAP attachments.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

const (
	Docker = "docker"
	Podman = "podman"
	// Auto tries docker, then podman.
	Auto = "auto"
)

// maxStderr caps the stderr tail kept in a CommandError.
const maxStderr = 512

// Runtime runs throwaway containers.
type Runtime interface {
	// Name returns the runtime binary, docker or podman.
	Name() string

	// Available reports whether the binary is on PATH and its daemon answers.
	Available(ctx context.Context) bool

	// EnsureImage returns nil when image is present locally, pulling it
	// first if the runtime was built with pulling enabled.
	EnsureImage(ctx context.Context, image string) error

	// Run executes cmd inside a fresh container of image with stdin and
	// stdout attached. Networking is disabled and Limits apply.
	Run(ctx context.Context, image string, cmd []string, stdin io.Reader, stdout io.Writer) error
}

// Executor runs host commands. Tests substitute a fake.
type Executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// CommandError is a failed command with the tail of its stderr.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

func (OSExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (OSExecutor) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: name, Stderr: tail(stderr.String(), maxStderr), Err: err}
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Limits bounds one container. Empty fields are not passed.
type Limits struct {
	Memory string // e.g. "256m"
	CPUs   string // e.g. "1"
	PIDs   int
}

// DefaultLimits suit pdftotext on a single attachment.
var DefaultLimits = Limits{Memory: "256m", CPUs: "1", PIDs: 64}

func (l Limits) args() []string {
	var out []string
	if l.Memory != "" {
		out = append(out, "--memory="+l.Memory)
	}
	if l.CPUs != "" {
		out = append(out, "--cpus="+l.CPUs)
	}
	if l.PIDs > 0 {
		out = append(out, "--pids-limit="+strconv.Itoa(l.PIDs))
	}
	return out
}

// Engine is a Runtime backed by the docker or podman CLI. The two differ
// only in binary name and image probe.
type Engine struct {
	Bin    string
	Exec   Executor
	Limits Limits
	// Pull fetches missing images in EnsureImage.
	Pull bool
}

// NewEngine returns an Engine for bin with DefaultLimits.
func NewEngine(bin string, exec Executor) *Engine {
	if exec == nil {
		exec = OSExecutor{}
	}
	return &Engine{Bin: bin, Exec: exec, Limits: DefaultLimits}
}

func (e *Engine) Name() string { return e.Bin }

func (e *Engine) Available(ctx context.Context) bool {
	if _, err := e.Exec.LookPath(e.Bin); err != nil {
		return false
	}
	return e.Exec.Run(ctx, e.Bin, []string{"info"}, nil, io.Discard) == nil
}

func (e *Engine) imageProbe(image string) []string {
	if e.Bin == Podman {
		return []string{"image", "exists", image}
	}
	return []string{"image", "inspect", image}
}

func (e *Engine) EnsureImage(ctx context.Context, image string) error {
	probeErr := e.Exec.Run(ctx, e.Bin, e.imageProbe(image), nil, io.Discard)
	if probeErr == nil {
		return nil
	}
	if !e.Pull {
		return fmt.Errorf("image %s not found in %s: %w", image, e.Bin, probeErr)
	}
	if err := e.Exec.Run(ctx, e.Bin, []string{"pull", "--quiet", image}, nil, io.Discard); err != nil {
		return fmt.Errorf("pulling %s with %s: %w", image, e.Bin, err)
	}
	return nil
}

func (e *Engine) Run(ctx context.Context, image string, cmd []string, stdin io.Reader, stdout io.Writer) error {
	args := []string{
		"run", "--rm", "-i",
		"--network=none",
		"--read-only",
		"--security-opt=no-new-privileges",
		"--cap-drop=ALL",
	}
	args = append(args, e.Limits.args()...)
	args = append(args, image)
	args = append(args, cmd...)
	if err := e.Exec.Run(ctx, e.Bin, args, stdin, stdout); err != nil {
		return fmt.Errorf("running %s container %s: %w", e.Bin, image, err)
	}
	return nil
}

// ErrNoRuntime reports that no usable container runtime was found.
var ErrNoRuntime = errors.New("no container runtime available")

// Detect returns the preferred runtime, or under Auto the first of docker
// and podman that answers.
func Detect(ctx context.Context, preference string, exec Executor) (*Engine, error) {
	var candidates []string
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case Auto, "":
		candidates = []string{Docker, Podman}
	case Docker:
		candidates = []string{Docker}
	case Podman:
		candidates = []string{Podman}
	default:
		return nil, fmt.Errorf("unknown container runtime %q", preference)
	}
	for _, bin := range candidates {
		if e := NewEngine(bin, exec); e.Available(ctx) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoRuntime, strings.Join(candidates, ", "))
}
