// SPDX-License-Identifier: MPL-2.0

package refstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File is one output file of a staged directory replacement.
type File struct {
	// Name is a slash-separated path relative to the replaced directory.
	Name string
	Data []byte
}

// RemovePath deletes a file or directory tree. A missing path is not an error.
func RemovePath(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// ReplaceDir writes files into a staging directory next to target and then
// swaps it in place of target. On failure target is left as it was.
func ReplaceDir(target string, files []File) (err error) {
	staging, err := StageDir(target)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging) // best-effort cleanup of a failed stage
		}
	}()

	for _, f := range files {
		rel := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("staging %q: path escapes %s", f.Name, target)
		}
		dst := filepath.Join(staging, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("staging %s: %w", f.Name, err)
		}
		if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
			return fmt.Errorf("staging %s: %w", f.Name, err)
		}
	}

	return SwapDir(staging, target)
}

// StageDir creates an empty staging directory next to target, for content
// that SwapDir will later move into place. The caller removes it on failure.
func StageDir(target string) (string, error) {
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", parent, err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".staging-")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	// MkdirTemp creates 0700 directories.
	if err := os.Chmod(staging, 0o755); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("staging permissions: %w", err)
	}
	return staging, nil
}

// SwapDir moves staging to target, replacing any existing target. The old
// target is renamed aside first and restored if the final rename fails.
func SwapDir(staging, target string) error {
	old := ""
	if _, err := os.Lstat(target); err == nil {
		old = filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old-"+strings.TrimPrefix(filepath.Base(staging), "."))
		if err := os.Rename(target, old); err != nil {
			return fmt.Errorf("moving aside %s: %w", target, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", target, err)
	}

	if err := os.Rename(staging, target); err != nil {
		if old != "" {
			_ = os.Rename(old, target) // best-effort restore
		}
		return fmt.Errorf("replacing %s: %w", target, err)
	}

	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("removing previous %s: %w", target, err)
		}
	}
	return nil
}
