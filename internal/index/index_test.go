// SPDX-License-Identifier: MPL-2.0

package index

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ragstrap/ragstrap/internal/refstore"
	"github.com/ragstrap/ragstrap/internal/testutil"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"raw/README.md":            "readme",
		"raw/src/main.rs":          "fn main() {}",
		"raw/target/release/tool":  "bin",
		"raw/.github/workflows/ci": "ci",
		"cli/root.help.txt":        "help",
		"cli/sync.help.txt":        "help",
		"examples/docs_usage.md":   "examples",
	})

	meta := &refstore.Meta{
		Name:               "tool",
		Source:             "https://github.com/octo/tool",
		Owner:              "octo",
		Repo:               "tool",
		FetchedAt:          "2026-03-01T12:00:00Z",
		RagstrapVersion:    "v0.3.0",
		Language:           "rust",
		SecondaryLanguages: []string{"python", "go"},
		CLI:                &refstore.CLIInfo{Binary: "tool", Commands: []string{"root", "sync"}, Package: "tool", PackageVersion: "1.2.3"},
	}

	if err := Generate(dir, meta); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got := testutil.MustReadFile(t, filepath.Join(dir, refstore.IndexFile))

	for _, want := range []string{
		"# tool\n",
		"- **Source:** https://github.com/octo/tool\n",
		"- **Repository:** octo/tool\n",
		"- **Language:** rust\n",
		"- **Secondary languages:** python, go\n",
		"- **Package:** tool 1.2.3\n",
		"## CLI help\n\n- [root.help.txt](cli/root.help.txt)\n- [sync.help.txt](cli/sync.help.txt)\n",
		"## Examples\n\n- [docs_usage.md](examples/docs_usage.md)\n",
		"## Files\n\n- [README.md](raw/README.md)\n- [src/main.rs](raw/src/main.rs)\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("INDEX.md missing %q\n--- got ---\n%s", want, got)
		}
	}
	for _, unwanted := range []string{"target/release", ".github"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("INDEX.md should not list ignored path %q", unwanted)
		}
	}
}

func TestGenerate_MinimalReference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := Generate(dir, &refstore.Meta{Name: "bare"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got := testutil.MustReadFile(t, filepath.Join(dir, refstore.IndexFile))
	if got != "# bare\n\n" {
		t.Errorf("INDEX.md = %q", got)
	}
}

func TestGenerate_NilMeta(t *testing.T) {
	t.Parallel()

	if err := Generate(t.TempDir(), nil); err == nil {
		t.Fatal("expected an error for nil metadata")
	}
}
