// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"context"
	"errors"
	"strings"
)

type (
	fakeResponse struct {
		out  string
		code int
		err  error
	}

	// fakeRunner answers invocations keyed by their joined arguments.
	fakeRunner struct {
		responses map[string]fakeResponse
		calls     []fakeCall
		// before runs ahead of each invocation, e.g. to emulate build outputs.
		before func(dir string)
	}

	fakeCall struct {
		dir  string
		name string
		args []string
	}
)

var errNotStarted = errors.New("executable file not found")

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, fakeCall{dir: dir, name: name, args: args})
	if f.before != nil {
		f.before(dir)
	}

	resp, ok := f.responses[strings.Join(args, " ")]
	if !ok {
		return []byte("unknown command\n"), &ExitStatusError{Code: 2, Err: errors.New("exit status 2")}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	if resp.code != 0 {
		return []byte(resp.out), &ExitStatusError{Code: resp.code, Err: errors.New("exit status")}
	}
	return []byte(resp.out), nil
}

func (f *fakeRunner) argsOf() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c.args, " ")
	}
	return out
}
