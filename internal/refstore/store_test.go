// SPDX-License-Identifier: MPL-2.0

package refstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ragstrap/ragstrap/internal/issue"
	"github.com/ragstrap/ragstrap/internal/testutil"
)

func TestValidateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "ripgrep"},
		{name: "fd-find"},
		{name: "my_tool.v2"},
		{name: "", wantErr: true},
		{name: "   ", wantErr: true},
		{name: ".", wantErr: true},
		{name: "..", wantErr: true},
		{name: ".hidden", wantErr: true},
		{name: "a/b", wantErr: true},
		{name: `a\b`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateName(tt.name)
			if tt.wantErr && !errors.Is(err, ErrInvalidName) {
				t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", tt.name, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateName(%q) unexpected error: %v", tt.name, err)
			}
		})
	}
}

func TestStore_Layout(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join("refs"))
	if got, want := s.RawDir("rg"), filepath.Join("refs", "rg", "raw"); got != want {
		t.Errorf("RawDir = %q, want %q", got, want)
	}
	if got, want := s.CLIDir("rg"), filepath.Join("refs", "rg", "cli"); got != want {
		t.Errorf("CLIDir = %q, want %q", got, want)
	}
	if got, want := s.ExamplesDir("rg"), filepath.Join("refs", "rg", "examples"); got != want {
		t.Errorf("ExamplesDir = %q, want %q", got, want)
	}
	if got, want := s.MetaPath("rg"), filepath.Join("refs", "rg", "meta.json"); got != want {
		t.Errorf("MetaPath = %q, want %q", got, want)
	}
	if got, want := s.IndexPath("rg"), filepath.Join("refs", "rg", "INDEX.md"); got != want {
		t.Errorf("IndexPath = %q, want %q", got, want)
	}
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := New(root)

	if err := s.SaveMeta("beta", &Meta{Name: "Beta Tool", Source: "https://github.com/o/beta", Language: "rust"}); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	testutil.MustMkdirAll(t, filepath.Join(root, "Alpha"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(root, ".staging"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(root, "stray.txt"), "not a reference")
	testutil.MustWriteFile(t, filepath.Join(root, "gamma", MetaFile), "{not json")

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3: %+v", len(entries), entries)
	}

	wantDirs := []string{"Alpha", "beta", "gamma"}
	for i, want := range wantDirs {
		if entries[i].Directory != want {
			t.Errorf("entries[%d].Directory = %q, want %q", i, entries[i].Directory, want)
		}
	}

	if entries[0].Meta != nil {
		t.Errorf("Alpha should have no metadata")
	}
	if entries[1].Name != "Beta Tool" || entries[1].Meta == nil || entries[1].Meta.Language != "rust" {
		t.Errorf("beta entry = %+v", entries[1])
	}
	if entries[2].Meta != nil || entries[2].Name != "gamma" {
		t.Errorf("gamma with invalid metadata should fall back to its directory name: %+v", entries[2])
	}
}

func TestStore_ListMissingRoot(t *testing.T) {
	t.Parallel()

	entries, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List on a missing root = %v, want empty", entries)
	}
}

func TestStore_ListRootIsFile(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "references")
	testutil.MustWriteFile(t, root, "")

	if _, err := New(root).List(); !errors.Is(err, ErrRootNotDirectory) {
		t.Fatalf("List error = %v, want ErrRootNotDirectory", err)
	}
}

func TestStore_LoadMetaErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := New(root)
	testutil.MustWriteFile(t, filepath.Join(root, "file-ref"), "")
	testutil.MustMkdirAll(t, filepath.Join(root, "no-meta"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(root, "bad-meta", MetaFile), "[1,2")

	tests := []struct {
		name     string
		want     error
		wantPath bool
	}{
		{name: "missing", want: ErrNotFound},
		{name: "file-ref", want: ErrNotDirectory},
		{name: "no-meta", want: ErrMissingMeta, wantPath: true},
		{name: "bad-meta", want: ErrInvalidMeta, wantPath: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.LoadMeta(tt.name)
			if !errors.Is(err, tt.want) {
				t.Fatalf("LoadMeta(%q) error = %v, want %v", tt.name, err, tt.want)
			}

			var ae *issue.ActionableError
			if ok := errors.As(err, &ae); ok != tt.wantPath {
				t.Fatalf("LoadMeta(%q) actionable = %v, want %v", tt.name, ok, tt.wantPath)
			}
			if ae != nil && ae.Resource != s.MetaPath(tt.name) {
				t.Errorf("Resource = %q, want %q", ae.Resource, s.MetaPath(tt.name))
			}
		})
	}
}

func TestStore_MetaRoundTrip(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	in := &Meta{
		Name:               "rg",
		Source:             "https://github.com/BurntSushi/ripgrep",
		Owner:              "BurntSushi",
		Repo:               "ripgrep",
		FetchedAt:          "2026-01-02T03:04:05Z",
		RagstrapVersion:    "v0.3.0",
		Language:           "rust",
		SecondaryLanguages: []string{"python"},
		CLI: &CLIInfo{
			Binary:   "rg",
			Commands: []string{"root"},
			Package:  "ripgrep",
		},
	}
	if err := s.SaveMeta("rg", in); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}

	raw := testutil.MustReadFile(t, s.MetaPath("rg"))
	if raw[len(raw)-1] != '\n' {
		t.Error("meta.json should end with a newline")
	}

	out, err := s.LoadMeta("rg")
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if out.Owner != "BurntSushi" || out.CLI == nil || out.CLI.Binary != "rg" || out.SecondaryLanguages[0] != "python" {
		t.Errorf("LoadMeta = %+v", out)
	}

	if !s.Exists("rg") || s.Exists("other") {
		t.Error("Exists reported the wrong state")
	}
}

func TestStore_ReadsLegacyMeta(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := New(root)
	testutil.MustWriteFile(t, filepath.Join(root, "legacy", MetaFile), `{
  "name": "legacy",
  "source": "https://github.com/o/legacy",
  "fetched_at": "2024-05-01T10:11:12.123456Z",
  "ragstrap_version": "0.1.0",
  "extra_field": true
}`)

	meta, err := s.LoadMeta("legacy")
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if meta.Owner != "" || meta.Source != "https://github.com/o/legacy" {
		t.Errorf("LoadMeta = %+v", meta)
	}
	if _, statErr := os.Stat(s.RawDir("legacy")); !os.IsNotExist(statErr) {
		t.Error("LoadMeta must not create directories")
	}
}
