// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// ErrNoExecutable is returned when the build succeeds but leaves no
// executable in the release output directory.
var ErrNoExecutable = errors.New("no executable produced by build")

type (
	// BuildError is returned when the toolchain exits non-zero. Output holds
	// the toolchain's merged stdout and stderr verbatim.
	BuildError struct {
		Command []string
		Output  []byte
		Err     error
	}

	// Prober builds snapshots and captures the help text of the result.
	Prober struct {
		runner       Runner
		buildCommand []string
		releaseDir   string
		helpTimeout  time.Duration
	}

	// Option configures a Prober.
	Option func(*Prober)
)

// DefaultBuildCommand is the release build run in the snapshot root.
//
//nolint:gochecknoglobals // Read-only default.
var DefaultBuildCommand = []string{"cargo", "build", "--release"}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build command %q failed: %v", strings.Join(e.Command, " "), e.Err)
}

// Unwrap returns the underlying process error.
func (e *BuildError) Unwrap() error { return e.Err }

// WithRunner replaces the process runner, typically with a fake in tests.
func WithRunner(r Runner) Option {
	return func(p *Prober) {
		if r != nil {
			p.runner = r
		}
	}
}

// WithBuildCommand replaces the build command. An empty slice keeps the default.
func WithBuildCommand(argv []string) Option {
	return func(p *Prober) {
		if len(argv) > 0 {
			p.buildCommand = slices.Clone(argv)
		}
	}
}

// WithHelpTimeout bounds each help invocation. Zero means no limit.
func WithHelpTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.helpTimeout = d
	}
}

// NewProber returns a Prober that runs DefaultBuildCommand through ExecRunner.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		runner:       ExecRunner{},
		buildCommand: slices.Clone(DefaultBuildCommand),
		releaseDir:   filepath.Join("target", "release"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseBuildCommand splits a shell-quoted command line into argv. Variable
// references are expanded from the environment.
func ParseBuildCommand(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	argv, err := shell.Fields(line, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing build command %q: %w", line, err)
	}
	return argv, nil
}

// BuildCommand returns the argv the Prober builds with.
func (p *Prober) BuildCommand() []string { return slices.Clone(p.buildCommand) }

// Build runs the release build in root and returns the path of the first
// executable file, by name, in the release output directory.
func (p *Prober) Build(ctx context.Context, root string) (string, error) {
	out, err := p.runner.Run(ctx, root, p.buildCommand[0], p.buildCommand[1:]...)
	if err != nil {
		var exitErr *ExitStatusError
		if errors.As(err, &exitErr) {
			return "", &BuildError{Command: p.BuildCommand(), Output: out, Err: err}
		}
		return "", fmt.Errorf("starting build toolchain %q: %w", p.buildCommand[0], err)
	}

	return FindExecutable(filepath.Join(root, p.releaseDir))
}

// FindExecutable returns the first regular file in dir, in name order, with
// any execute permission bit set.
func FindExecutable(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoExecutable, err)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}
		if info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoExecutable, dir)
}
