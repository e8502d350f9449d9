// SPDX-License-Identifier: MPL-2.0

package harvest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const fenceMarker = "```"

// ExtractShellBlocks returns the trimmed content of every fenced block in a
// markdown document whose info string is empty or names a shell, keeping only
// blocks that look like shell usage. Fences of other languages are skipped as
// a whole so their closing fence is never mistaken for an opening one. An
// unterminated fence yields nothing.
func ExtractShellBlocks(markdown string) []string {
	var (
		blocks      []string
		body        []string
		insideFence bool
		shellFence  bool
	)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, fenceMarker) {
			if insideFence && shellFence {
				body = append(body, strings.TrimRight(line, "\r"))
			}
			continue
		}

		if !insideFence {
			insideFence = true
			shellFence = isShellFence(strings.TrimPrefix(trimmed, fenceMarker))
			body = body[:0]
			continue
		}

		insideFence = false
		if !shellFence {
			continue
		}
		block := strings.TrimSpace(strings.Join(body, "\n"))
		if IsShellLike(block) {
			blocks = append(blocks, block)
		}
	}

	return blocks
}

// isShellFence reports whether a fence info string selects a shell block:
// untagged, or tagged bash, sh or shell in any letter case. Attributes after
// the language tag are ignored.
func isShellFence(info string) bool {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return true
	}
	switch strings.ToLower(fields[0]) {
	case "bash", "sh", "shell":
		return true
	}
	return false
}

// IsShellLike reports whether any line of block looks like a shell command
// or prompt. The test is deliberately loose: prose lines starting with a
// word character pass too.
func IsShellLike(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		if isShellLine(line) {
			return true
		}
	}
	return false
}

// isShellLine reports whether line, after leading whitespace, starts with a
// prompt ("$" or ">"), a relative invocation ("./") or a word character.
func isShellLine(line string) bool {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "$") || strings.HasPrefix(line, ">") || strings.HasPrefix(line, "./") {
		return true
	}
	r, _ := utf8.DecodeRuneInString(line)
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
