// SPDX-License-Identifier: MPL-2.0

// Package langdetect infers a project's implementation languages from
// well-known marker files at the root of its source tree.
package langdetect

import (
	"os"
	"path/filepath"
)

// Unknown is the primary language reported when no marker matches.
const Unknown = "unknown"

// Signal associates a language with the files whose presence indicates it.
type Signal struct {
	Language string
	Markers  []string
}

// Signals is the detection table. Its order is the priority order: the first
// language detected is the primary one.
//
//nolint:gochecknoglobals // Read-only lookup table.
var Signals = []Signal{
	{Language: "python", Markers: []string{"pyproject.toml", "setup.py", "setup.cfg", "requirements.txt"}},
	{Language: "rust", Markers: []string{"Cargo.toml"}},
	{Language: "javascript", Markers: []string{"package.json"}},
	{Language: "typescript", Markers: []string{"tsconfig.json"}},
	{Language: "go", Markers: []string{"go.mod"}},
}

// DetectLanguages checks root for each language's markers in table order and
// returns the first detected language as primary and the rest, in order, as
// secondary. When nothing matches it returns Unknown and an empty slice.
// Only the root directory is inspected; nested manifests are ignored.
func DetectLanguages(root string) (primary string, secondary []string) {
	detected := make([]string, 0, len(Signals))
	for _, sig := range Signals {
		if hasAnyMarker(root, sig.Markers) {
			detected = append(detected, sig.Language)
		}
	}

	if len(detected) == 0 {
		return Unknown, []string{}
	}
	return detected[0], detected[1:]
}

func hasAnyMarker(root string, markers []string) bool {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(root, m)); err == nil {
			return true
		}
	}
	return false
}
