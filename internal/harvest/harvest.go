// SPDX-License-Identifier: MPL-2.0

// Package harvest collects shell usage examples from the markdown files of a
// snapshot into one Example Document per source file.
package harvest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ragstrap/ragstrap/internal/ignore"
	"github.com/ragstrap/ragstrap/internal/refstore"
)

const markdownExt = ".md"

type (
	// Document is one generated Example Document.
	Document struct {
		// Name is the file name inside the output directory.
		Name string
		// Source is the slash-separated path of the markdown file, relative
		// to the snapshot root.
		Source string
		// Blocks holds the retained shell blocks in document order.
		Blocks []string
	}

	// Result lists the documents written by Harvest, in source order.
	Result struct {
		Documents []Document
		// Scanned counts the markdown files read.
		Scanned int
	}
)

// Harvest scans every markdown file below root, skipping ignored paths, and
// replaces outDir with one Example Document per file that holds at least one
// shell block. The whole output set is built in memory before outDir is
// touched, so a failed run leaves the previous documents in place and a
// successful one leaves no document for a removed source.
func Harvest(ctx context.Context, root, outDir string) (*Result, error) {
	result, err := Collect(ctx, root)
	if err != nil {
		return nil, err
	}

	files := make([]refstore.File, len(result.Documents))
	for i, doc := range result.Documents {
		files[i] = refstore.File{Name: doc.Name, Data: []byte(doc.Render())}
	}
	if err := refstore.ReplaceDir(outDir, files); err != nil {
		return nil, fmt.Errorf("writing example documents: %w", err)
	}

	return result, nil
}

// Collect computes the Example Documents for root without writing anything.
func Collect(ctx context.Context, root string) (*Result, error) {
	result := &Result{}
	used := make(map[string]bool)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
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
		if !d.Type().IsRegular() || path.Ext(rel) != markdownExt {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		result.Scanned++

		blocks := ExtractShellBlocks(string(data))
		if len(blocks) == 0 {
			return nil
		}

		name := uniqueName(FlattenName(rel), used)
		result.Documents = append(result.Documents, Document{Name: name, Source: rel, Blocks: blocks})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	return result, nil
}

// FlattenName maps a slash-separated relative markdown path to its Example
// Document file name: the extension is dropped, separators become
// underscores, and ".md" is appended.
func FlattenName(rel string) string {
	base := strings.TrimSuffix(rel, path.Ext(rel))
	return strings.ReplaceAll(base, "/", "_") + markdownExt
}

// uniqueName returns name, or name with a numeric suffix when an earlier
// source already flattened to the same file name.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	stem := strings.TrimSuffix(name, markdownExt)
	for n := 2; used[candidate]; n++ {
		candidate = stem + "_" + strconv.Itoa(n) + markdownExt
	}
	used[candidate] = true
	return candidate
}

// Render returns the document body: a title naming the source, then one
// numbered section per block re-fenced as sh.
func (d Document) Render() string {
	lines := make([]string, 0, 1+4*len(d.Blocks))
	lines = append(lines, fmt.Sprintf("# Examples from `%s`\n", d.Source))
	for i, block := range d.Blocks {
		lines = append(lines,
			fmt.Sprintf("## Example %d\n", i+1),
			"```sh",
			block,
			"```\n",
		)
	}
	return strings.Join(lines, "\n")
}
