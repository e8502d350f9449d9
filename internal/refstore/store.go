// SPDX-License-Identifier: MPL-2.0

package refstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// MetaFile is the metadata file name inside a reference directory.
	MetaFile = "meta.json"
	// IndexFile is the generated index document name.
	IndexFile = "INDEX.md"
	// RawDirName holds the repository snapshot.
	RawDirName = "raw"
	// CLIDirName holds captured help documents.
	CLIDirName = "cli"
	// ExamplesDirName holds harvested example documents.
	ExamplesDirName = "examples"
)

var (
	// ErrNotFound is returned when a reference directory does not exist.
	ErrNotFound = errors.New("reference not found")
	// ErrNotDirectory is returned when a reference path exists but is not a directory.
	ErrNotDirectory = errors.New("reference is not a directory")
	// ErrMissingMeta is returned when a reference has no meta.json.
	ErrMissingMeta = errors.New("reference is missing " + MetaFile)
	// ErrInvalidMeta is returned when meta.json cannot be decoded.
	ErrInvalidMeta = errors.New("invalid " + MetaFile)
	// ErrInvalidName is returned for names that are not a single path segment.
	ErrInvalidName = errors.New("invalid reference name")
	// ErrRootNotDirectory is returned when the references root is a file.
	ErrRootNotDirectory = errors.New("references path exists but is not a directory")
)

type (
	// Store addresses references below a root directory.
	Store struct {
		root string
	}

	// Entry is one reference found by List. Meta is nil when the reference has
	// no readable metadata.
	Entry struct {
		Name      string `json:"name"`
		Directory string `json:"directory"`
		Path      string `json:"path"`
		Meta      *Meta  `json:"meta"`
	}
)

// New returns a Store rooted at root. The directory is created lazily by the
// operations that write into it.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the references root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory of the named reference.
func (s *Store) Dir(name string) string { return filepath.Join(s.root, name) }

// RawDir returns the snapshot directory of the named reference.
func (s *Store) RawDir(name string) string { return filepath.Join(s.Dir(name), RawDirName) }

// CLIDir returns the help capture directory of the named reference.
func (s *Store) CLIDir(name string) string { return filepath.Join(s.Dir(name), CLIDirName) }

// ExamplesDir returns the harvested examples directory of the named reference.
func (s *Store) ExamplesDir(name string) string {
	return filepath.Join(s.Dir(name), ExamplesDirName)
}

// MetaPath returns the meta.json path of the named reference.
func (s *Store) MetaPath(name string) string { return filepath.Join(s.Dir(name), MetaFile) }

// IndexPath returns the INDEX.md path of the named reference.
func (s *Store) IndexPath(name string) string { return filepath.Join(s.Dir(name), IndexFile) }

// Exists reports whether anything exists at the reference path.
func (s *Store) Exists(name string) bool {
	_, err := os.Lstat(s.Dir(name))
	return err == nil
}

// Check returns ErrNotFound or ErrNotDirectory when the named reference is
// not an existing directory.
func (s *Store) Check(name string) error {
	info, err := os.Stat(s.Dir(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("checking reference %s: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, name)
	}
	return nil
}

// ValidateName rejects names that would address anything other than a
// direct child of the references root.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q must not start with a dot", ErrInvalidName, name)
	}
	return nil
}

// List returns every reference directory whose name does not start with a
// dot, sorted case-insensitively. A missing root yields an empty list.
func (s *Store) List() ([]Entry, error) {
	info, err := os.Stat(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading references root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, s.root)
	}

	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading references root: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		// Follow symlinked reference directories.
		fi, statErr := os.Stat(filepath.Join(s.root, de.Name()))
		if statErr != nil || !fi.IsDir() {
			continue
		}

		entry := Entry{
			Name:      de.Name(),
			Directory: de.Name(),
			Path:      s.Dir(de.Name()),
			Meta:      s.ReadMetaOptional(de.Name()),
		}
		if entry.Meta != nil && entry.Meta.Name != "" {
			entry.Name = entry.Meta.Name
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Directory) < strings.ToLower(entries[j].Directory)
	})
	return entries, nil
}
