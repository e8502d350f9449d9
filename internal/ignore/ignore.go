// SPDX-License-Identifier: MPL-2.0

// Package ignore decides which snapshot paths are excluded from processing.
package ignore

import (
	"path/filepath"
	"strings"
)

// defaultIgnores holds path segments that mark version-control metadata,
// build output, dependency caches and CI configuration.
var defaultIgnores = map[string]struct{}{
	".git":         {},
	"target":       {},
	"node_modules": {},
	".github":      {},
}

// ShouldIgnore reports whether any segment of the relative path exactly matches
// an ignored name. Both "/" and the OS separator are accepted.
func ShouldIgnore(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if _, ok := defaultIgnores[part]; ok {
			return true
		}
	}
	return false
}

