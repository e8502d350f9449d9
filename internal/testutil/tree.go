// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteTree materializes files (slash-separated relative path to content)
// below root.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		MustWriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// ListTree returns the slash-separated relative paths of every regular file
// below root, sorted.
func ListTree(t testing.TB, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

// ReadTree returns every regular file below root keyed by its
// slash-separated relative path.
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, rel := range ListTree(t, root) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("failed to read %s: %v", rel, err)
		}
		out[rel] = string(data)
	}
	return out
}
