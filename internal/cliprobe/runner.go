// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long output pipes held open by orphaned children
// may delay Run after the process itself has exited or been killed.
const waitDelay = 5 * time.Second

type (
	// Runner spawns an external program and returns its merged stdout and
	// stderr. A program that starts but exits non-zero yields its output
	// together with an *ExitStatusError; any other error means the program
	// could not be run at all.
	Runner interface {
		Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	}

	// ExitStatusError reports a non-zero exit status.
	ExitStatusError struct {
		Code int
		Err  error
	}

	// ExecRunner runs programs with os/exec.
	ExecRunner struct {
		// Env, when non-nil, replaces the inherited environment.
		Env []string
	}
)

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying process error.
func (e *ExitStatusError) Unwrap() error { return e.Err }

// Run executes name with args in dir. An empty dir uses the current directory.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	if r.Env != nil {
		cmd.Env = r.Env
	}

	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, nil
	}

	// A process killed because ctx ended is reported as the context error.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("running %s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitStatusError{Code: exitErr.ExitCode(), Err: err}
	}
	return out, fmt.Errorf("running %s: %w", name, err)
}
