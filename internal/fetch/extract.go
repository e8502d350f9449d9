// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyArchive is returned when the tar stream holds no members.
	ErrEmptyArchive = errors.New("archive has no members")

	// ErrUnsafePath is returned when a member would be written outside the
	// destination directory.
	ErrUnsafePath = errors.New("archive member escapes destination")
)

// ExtractResult summarizes an extraction.
type ExtractResult struct {
	// Root is the synthetic top-level folder stripped from every member, empty
	// when the first member is a top-level file.
	Root string
	// Files is the number of regular files written.
	Files int
	// Commit is the commit identifier GitHub records in the pax global
	// header, empty when absent.
	Commit string
}

// Extract reads a tar stream (optionally gzip-compressed) and writes every
// regular file member below dest with the first member's top-level folder
// removed. Directories, links and special files are skipped. A member
// whose stripped path is absolute or climbs out of dest aborts the extraction.
func Extract(r io.Reader, dest string) (*ExtractResult, error) {
	stream, err := decompress(r)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	result := &ExtractResult{}
	rootSet := false
	members := 0

	tr := tar.NewReader(stream)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if errors.Is(nextErr, tar.ErrInsecurePath) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if nextErr != nil {
			return nil, fmt.Errorf("reading tar entry: %w", nextErr)
		}

		// GitHub prepends a pax global header carrying the commit id. It
		// describes the archive, not a path, so it never defines the root.
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			if commit := hdr.PAXRecords["comment"]; commit != "" {
				result.Commit = commit
			}
			continue
		}

		members++
		name := strings.TrimPrefix(hdr.Name, "./")
		// A top-level regular file names no folder, so nothing is stripped.
		if !rootSet {
			if hdr.Typeflag == tar.TypeDir || strings.Contains(name, "/") {
				result.Root = topSegment(name)
			}
			rootSet = true
		}

		if !isRegular(hdr) {
			continue
		}

		rel := stripRoot(name, result.Root)
		if rel == "" {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}

		if err := writeMember(tr, filepath.Join(dest, filepath.FromSlash(rel)), hdr.FileInfo().Mode()); err != nil {
			return nil, fmt.Errorf("writing %s: %w", rel, err)
		}
		result.Files++
	}

	if members == 0 {
		return nil, ErrEmptyArchive
	}

	return result, nil
}

// decompress peeks at the stream and transparently unwraps gzip.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading archive header: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", gzErr)
		}
		return gz, nil
	}
	return br, nil
}

func topSegment(name string) string {
	root, _, _ := strings.Cut(name, "/")
	return root
}

func stripRoot(name, root string) string {
	if root == "" {
		return name
	}
	if name == root {
		return ""
	}
	if rest, ok := strings.CutPrefix(name, root+"/"); ok {
		return rest
	}
	return name
}

func isRegular(hdr *tar.Header) bool {
	//nolint:staticcheck // TypeRegA is still emitted by old archivers.
	return hdr.Typeflag == tar.TypeReg || hdr.Typeflag == tar.TypeRegA
}

// writeMember copies the current tar entry to target, keeping only the
// execute bits of the archived mode.
func writeMember(r io.Reader, target string, mode fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	perm := fs.FileMode(0o644) | (mode.Perm() & 0o111)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return err
	}

	// OpenFile leaves the mode of a pre-existing file untouched.
	return f.Chmod(perm)
}
