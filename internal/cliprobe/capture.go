// SPDX-License-Identifier: MPL-2.0

package cliprobe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ragstrap/ragstrap/internal/refstore"
)

const (
	// RootCommand keys the help document of the binary itself.
	RootCommand = "root"

	// HelpFileSuffix is appended to the command name to form a document file name.
	HelpFileSuffix = ".help.txt"

	helpFlag = "--help"
)

type (
	// HelpDocument is the merged output of one help invocation.
	HelpDocument struct {
		Command string
		Text    []byte
	}

	// CaptureResult lists the captured documents, root first, then
	// subcommands in discovery order.
	CaptureResult struct {
		Binary    string
		Documents []HelpDocument
	}
)

// Commands returns the captured command names in capture order.
func (r *CaptureResult) Commands() []string {
	names := make([]string, len(r.Documents))
	for i, d := range r.Documents {
		names[i] = d.Command
	}
	return names
}

// HelpFileName returns the document file name for a command.
func HelpFileName(command string) string {
	return command + HelpFileSuffix
}

// CaptureHelp runs binary --help, discovers subcommands from its output, runs
// binary <subcommand> --help for each, and replaces outDir with the resulting
// documents. Non-zero exit statuses are expected and ignored; a binary that
// cannot be started is an error and leaves outDir untouched.
func (p *Prober) CaptureHelp(ctx context.Context, binary, outDir string) (*CaptureResult, error) {
	rootText, err := p.runHelp(ctx, binary, helpFlag)
	if err != nil {
		return nil, err
	}

	result := &CaptureResult{
		Binary:    binary,
		Documents: []HelpDocument{{Command: RootCommand, Text: rootText}},
	}

	for _, token := range DiscoverSubcommands(string(rootText)) {
		if !isCapturableToken(token) {
			continue
		}
		text, helpErr := p.runHelp(ctx, binary, token, helpFlag)
		if helpErr != nil {
			return nil, helpErr
		}
		result.Documents = append(result.Documents, HelpDocument{Command: token, Text: text})
	}

	files := make([]refstore.File, len(result.Documents))
	for i, d := range result.Documents {
		files[i] = refstore.File{Name: HelpFileName(d.Command), Data: d.Text}
	}
	if err := refstore.ReplaceDir(outDir, files); err != nil {
		return nil, fmt.Errorf("writing help documents: %w", err)
	}

	return result, nil
}

// runHelp invokes the binary and returns its merged output regardless of
// exit status.
func (p *Prober) runHelp(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if p.helpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.helpTimeout)
		defer cancel()
	}

	out, err := p.runner.Run(ctx, "", binary, args...)
	if err == nil {
		return out, nil
	}

	var exitErr *ExitStatusError
	if errors.As(err, &exitErr) {
		return out, nil
	}
	return nil, fmt.Errorf("running %s %s: %w", filepath.Base(binary), strings.Join(args, " "), err)
}

// DiscoverSubcommands scans help text for candidate subcommand names: lines
// indented by at least two spaces whose trimmed content is a single word.
// Flags and other lone words are accepted too; an extra help invocation is
// harmless. Tokens are returned once each, in order of appearance.
func DiscoverSubcommands(helpText string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(helpText, "\n") {
		line = strings.TrimRight(line, "\r")
		if !isSubcommandLine(line) {
			continue
		}
		token := strings.TrimSpace(line)
		if seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens
}

func isSubcommandLine(line string) bool {
	if !strings.HasPrefix(line, "  ") {
		return false
	}
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.ContainsFunc(trimmed, unicode.IsSpace)
}

// isCapturableToken excludes tokens that cannot name a visible document file
// next to the root document: separators and a leading dot are rejected.
func isCapturableToken(token string) bool {
	return token != RootCommand && !strings.ContainsAny(token, `/\`) && !strings.HasPrefix(token, ".")
}
