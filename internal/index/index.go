// SPDX-License-Identifier: MPL-2.0

// Package index writes INDEX.md, the entry point of a reference directory.
package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ragstrap/ragstrap/internal/ignore"
	"github.com/ragstrap/ragstrap/internal/refstore"
)

// Generate writes INDEX.md into the reference directory dir, describing meta
// and linking the captured help documents, harvested examples and snapshot
// files that exist on disk.
func Generate(dir string, meta *refstore.Meta) error {
	if meta == nil {
		return errors.New("reference metadata is nil")
	}

	helpDocs, err := listFlat(filepath.Join(dir, refstore.CLIDirName))
	if err != nil {
		return fmt.Errorf("list help documents: %w", err)
	}
	examples, err := listFlat(filepath.Join(dir, refstore.ExamplesDirName))
	if err != nil {
		return fmt.Errorf("list examples: %w", err)
	}
	files, err := listSnapshot(filepath.Join(dir, refstore.RawDirName))
	if err != nil {
		return fmt.Errorf("list snapshot: %w", err)
	}

	var sb strings.Builder
	writeHeader(&sb, meta)
	writeLinkSection(&sb, "CLI help", refstore.CLIDirName, helpDocs)
	writeLinkSection(&sb, "Examples", refstore.ExamplesDirName, examples)
	writeLinkSection(&sb, "Files", refstore.RawDirName, files)

	if err := os.WriteFile(filepath.Join(dir, refstore.IndexFile), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", refstore.IndexFile, err)
	}
	return nil
}

func writeHeader(sb *strings.Builder, meta *refstore.Meta) {
	fmt.Fprintf(sb, "# %s\n\n", meta.Name)

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(sb, "- **%s:** %s\n", label, value)
		}
	}
	field("Source", meta.Source)
	if meta.Owner != "" && meta.Repo != "" {
		field("Repository", meta.Owner+"/"+meta.Repo)
	}
	field("Commit", meta.Commit)
	field("Language", meta.Language)
	field("Secondary languages", strings.Join(meta.SecondaryLanguages, ", "))
	field("Fetched at", meta.FetchedAt)
	field("ragstrap version", meta.RagstrapVersion)
	if meta.CLI != nil {
		field("CLI binary", meta.CLI.Binary)
		if meta.CLI.Package != "" {
			pkg := meta.CLI.Package
			if meta.CLI.PackageVersion != "" {
				pkg += " " + meta.CLI.PackageVersion
			}
			field("Package", pkg)
		}
	}
	sb.WriteString("\n")
}

func writeLinkSection(sb *strings.Builder, title, prefix string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	for _, name := range names {
		fmt.Fprintf(sb, "- [%s](%s/%s)\n", name, prefix, name)
	}
	sb.WriteString("\n")
}

// listFlat returns the sorted names of regular files directly inside dir.
// A missing directory yields no names.
func listFlat(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// listSnapshot returns the sorted slash-separated paths of the snapshot's
// regular files, leaving out ignored paths.
func listSnapshot(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return walkErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ignore.ShouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
