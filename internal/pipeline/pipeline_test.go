// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ragstrap/ragstrap/internal/cliprobe"
	"github.com/ragstrap/ragstrap/internal/config"
	"github.com/ragstrap/ragstrap/internal/fetch"
	"github.com/ragstrap/ragstrap/internal/issue"
	"github.com/ragstrap/ragstrap/internal/refstore"
	"github.com/ragstrap/ragstrap/internal/testutil"

	"github.com/charmbracelet/log"
)

const rustCLIManifest = "[package]\nname = \"tool\"\nversion = \"1.2.3\"\n"

type (
	fakeDownloader struct {
		files map[string]string
		err   error
		calls []string
	}

	fakeProber struct {
		buildErr   error
		captureErr error
		commands   []string
		built      []string
		captured   []string
	}
)

func (f *fakeDownloader) DownloadArchive(_ context.Context, owner, repo, dest string) (*fetch.ExtractResult, error) {
	f.calls = append(f.calls, owner+"/"+repo)
	if f.err != nil {
		return nil, f.err
	}
	for rel, content := range f.files {
		path := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return &fetch.ExtractResult{Root: repo + "-abc123", Files: len(f.files), Commit: "abc123"}, nil
}

func (f *fakeProber) Build(_ context.Context, root string) (string, error) {
	f.built = append(f.built, root)
	if f.buildErr != nil {
		return "", f.buildErr
	}
	return filepath.Join(root, "target", "release", "tool"), nil
}

func (f *fakeProber) CaptureHelp(_ context.Context, binary, outDir string) (*cliprobe.CaptureResult, error) {
	f.captured = append(f.captured, binary)
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	result := &cliprobe.CaptureResult{Binary: binary}
	files := make([]refstore.File, 0, len(f.commands))
	for _, cmd := range f.commands {
		text := []byte("help for " + cmd + "\n")
		result.Documents = append(result.Documents, cliprobe.HelpDocument{Command: cmd, Text: text})
		files = append(files, refstore.File{Name: cliprobe.HelpFileName(cmd), Data: text})
	}
	if err := refstore.ReplaceDir(outDir, files); err != nil {
		return nil, err
	}
	return result, nil
}

func rustCLISnapshot() map[string]string {
	return map[string]string{
		"Cargo.toml":  rustCLIManifest,
		"src/main.rs": "fn main() {}\n",
		"README.md":   "# tool\n\n```sh\n$ tool run\n```\n",
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CEST", 2*60*60))
}

func newTestPipeline(t *testing.T, dl *fakeDownloader, pr *fakeProber, opts ...Option) (*Pipeline, *refstore.Store) {
	t.Helper()
	store := refstore.New(filepath.Join(t.TempDir(), "references"))
	opts = append([]Option{WithClock(fixedClock), WithVersion("0.4.0")}, opts...)
	return New(store, dl, pr, opts...), store
}

func TestFetch_BuildsCompleteReference(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{files: rustCLISnapshot()}
	pr := &fakeProber{commands: []string{"root", "run"}}
	p, store := newTestPipeline(t, dl, pr)

	report, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if report.Name != "tool" {
		t.Errorf("Name = %q, want repo name", report.Name)
	}
	if report.Files != 3 || report.HelpDocuments != 2 || report.Examples != 1 {
		t.Errorf("report = %+v", report)
	}
	if !slices.Equal(dl.calls, []string{"acme/tool"}) {
		t.Errorf("download calls = %v", dl.calls)
	}

	meta, err := store.LoadMeta("tool")
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if meta.Source != "https://github.com/acme/tool" || meta.Owner != "acme" || meta.Repo != "tool" {
		t.Errorf("source fields = %+v", meta)
	}
	if meta.FetchedAt != "2024-05-06T05:08:09Z" {
		t.Errorf("FetchedAt = %q, want UTC RFC 3339", meta.FetchedAt)
	}
	if meta.RagstrapVersion != "0.4.0" || meta.Commit != "abc123" {
		t.Errorf("version/commit = %q/%q", meta.RagstrapVersion, meta.Commit)
	}
	if meta.Language != "rust" || len(meta.SecondaryLanguages) != 0 {
		t.Errorf("languages = %q %v", meta.Language, meta.SecondaryLanguages)
	}
	if meta.CLI == nil {
		t.Fatal("expected CLI info")
	}
	if meta.CLI.Binary != "tool" || !slices.Equal(meta.CLI.Commands, []string{"root", "run"}) {
		t.Errorf("CLI = %+v", meta.CLI)
	}
	if meta.CLI.Package != "tool" || meta.CLI.PackageVersion != "1.2.3" {
		t.Errorf("manifest fields = %q %q", meta.CLI.Package, meta.CLI.PackageVersion)
	}

	layout := testutil.ListTree(t, store.Dir("tool"))
	for _, want := range []string{
		"INDEX.md",
		"cli/root.help.txt",
		"cli/run.help.txt",
		"examples/README.md",
		"meta.json",
		"raw/Cargo.toml",
		"raw/README.md",
		"raw/src/main.rs",
	} {
		if !slices.Contains(layout, want) {
			t.Errorf("missing %s in %v", want, layout)
		}
	}

	indexText := testutil.MustReadFile(t, store.IndexPath("tool"))
	for _, want := range []string{"cli/root.help.txt", "examples/README.md", "raw/src/main.rs"} {
		if !strings.Contains(indexText, want) {
			t.Errorf("INDEX.md should link %s:\n%s", want, indexText)
		}
	}
}

func TestFetch_CustomName(t *testing.T) {
	t.Parallel()

	p, store := newTestPipeline(t, &fakeDownloader{files: map[string]string{"go.mod": "module x\n"}}, &fakeProber{})

	report, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool.git", Name: "my-tool"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if report.Name != "my-tool" || !store.Exists("my-tool") || store.Exists("tool") {
		t.Errorf("expected reference my-tool, report %+v", report)
	}
	if report.Meta.Language != "go" {
		t.Errorf("Language = %q, want go", report.Meta.Language)
	}
}

func TestFetch_RejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  FetchRequest
		want error
	}{
		{"non-github host", FetchRequest{Source: "https://gitlab.com/a/b"}, fetch.ErrInvalidRepoURL},
		{"missing repo", FetchRequest{Source: "https://github.com/acme"}, fetch.ErrInvalidRepoURL},
		{"name with separator", FetchRequest{Source: "https://github.com/a/b", Name: "x/y"}, refstore.ErrInvalidName},
		{"dot name", FetchRequest{Source: "https://github.com/a/b", Name: ".."}, refstore.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dl := &fakeDownloader{}
			p, _ := newTestPipeline(t, dl, &fakeProber{})

			_, err := p.Fetch(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if len(dl.calls) != 0 {
				t.Error("nothing should be downloaded for invalid input")
			}
		})
	}
}

func TestFetch_ExistingReference(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{files: map[string]string{"new.txt": "new"}}
	p, store := newTestPipeline(t, dl, &fakeProber{})
	testutil.WriteTree(t, store.Dir("tool"), map[string]string{
		"raw/stale.txt":     "old",
		"cli/root.help.txt": "old help",
		"examples/OLD.md":   "old",
		refstore.MetaFile:   `{"name":"tool"}`,
	})

	_, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool"})
	if !errors.Is(err, ErrReferenceExists) {
		t.Fatalf("error = %v, want ErrReferenceExists", err)
	}
	if len(dl.calls) != 0 {
		t.Fatal("existing reference must not be downloaded without force")
	}

	if _, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool", Force: true}); err != nil {
		t.Fatalf("forced Fetch: %v", err)
	}

	if got := testutil.ListTree(t, store.RawDir("tool")); !slices.Equal(got, []string{"new.txt"}) {
		t.Errorf("raw = %v, want only new.txt", got)
	}
	if _, err := os.Stat(store.CLIDir("tool")); !os.IsNotExist(err) {
		t.Error("stale cli/ should be removed when capture is skipped")
	}
	if entries, _ := os.ReadDir(store.ExamplesDir("tool")); len(entries) != 0 {
		t.Errorf("stale examples should be replaced, found %d", len(entries))
	}
}

func TestFetch_DownloadFailureLeavesNoReference(t *testing.T) {
	t.Parallel()

	rateLimited := &fetch.RateLimitError{StatusCode: 403}
	p, store := newTestPipeline(t, &fakeDownloader{err: rateLimited}, &fakeProber{})

	_, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool"})
	var rle *fetch.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("error = %v, want RateLimitError in chain", err)
	}
	if store.Exists("tool") {
		t.Error("failed fetch of a new reference should not leave a directory")
	}
}

func TestFetch_DownloadFailureKeepsExistingSnapshot(t *testing.T) {
	t.Parallel()

	p, store := newTestPipeline(t, &fakeDownloader{err: errors.New("connection reset")}, &fakeProber{})
	testutil.WriteTree(t, store.Dir("tool"), map[string]string{"raw/keep.txt": "keep"})

	if _, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool", Force: true}); err == nil {
		t.Fatal("expected download error")
	}
	if got := testutil.ListTree(t, store.Dir("tool")); !slices.Equal(got, []string{"raw/keep.txt"}) {
		t.Errorf("reference contents = %v, want the untouched snapshot", got)
	}
}

func TestFetch_CaptureDecision(t *testing.T) {
	t.Parallel()

	bareBin := map[string]string{"Cargo.toml": "[package]\nname = \"x\"\n\n[[bin]]\nname = \"x\"\npath = \"cli.rs\"\n"}
	library := map[string]string{"Cargo.toml": "[package]\nname = \"lib\"\n"}

	tests := []struct {
		name      string
		files     map[string]string
		mode      config.CaptureMode
		choice    CaptureChoice
		wantBuild bool
		wantErr   error
	}{
		{"auto captures main.rs crate", rustCLISnapshot(), config.CaptureAuto, CaptureDefault, true, nil},
		{"auto skips bin-only crate", bareBin, config.CaptureAuto, CaptureDefault, false, nil},
		{"auto skips library", library, config.CaptureAuto, CaptureDefault, false, nil},
		{"always captures bin-only crate", bareBin, config.CaptureAlways, CaptureDefault, true, nil},
		{"always skips library", library, config.CaptureAlways, CaptureDefault, false, nil},
		{"never skips", rustCLISnapshot(), config.CaptureNever, CaptureDefault, false, nil},
		{"skip flag wins over mode", rustCLISnapshot(), config.CaptureAlways, CaptureSkip, false, nil},
		{"force flag wins over mode", bareBin, config.CaptureNever, CaptureForce, true, nil},
		{"force on library fails", library, config.CaptureAuto, CaptureForce, false, ErrNotBuildableCLI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pr := &fakeProber{commands: []string{"root"}}
			p, store := newTestPipeline(t, &fakeDownloader{files: tt.files}, pr, WithCaptureMode(tt.mode))

			report, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool", Capture: tt.choice})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if built := len(pr.built) > 0; built != tt.wantBuild {
				t.Errorf("built = %v, want %v", built, tt.wantBuild)
			}
			if err != nil {
				return
			}
			if gotCLI := report.Meta.CLI != nil; gotCLI != tt.wantBuild {
				t.Errorf("meta.cli present = %v, want %v", gotCLI, tt.wantBuild)
			}
			if _, statErr := os.Stat(store.CLIDir("tool")); (statErr == nil) != tt.wantBuild {
				t.Errorf("cli/ exists = %v, want %v", statErr == nil, tt.wantBuild)
			}
		})
	}
}

func TestFetch_ForcedCaptureOnLibraryIsActionable(t *testing.T) {
	t.Parallel()

	library := map[string]string{"Cargo.toml": "[package]\nname = \"lib\"\n"}
	p, store := newTestPipeline(t, &fakeDownloader{files: library}, &fakeProber{})

	_, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool", Capture: CaptureForce})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *issue.ActionableError", err)
	}
	if ae.IssueID != issue.NotBuildableCLIId {
		t.Errorf("IssueID = %d, want %d", ae.IssueID, issue.NotBuildableCLIId)
	}
	if ae.Resource != store.RawDir("tool") {
		t.Errorf("Resource = %q, want %q", ae.Resource, store.RawDir("tool"))
	}
	if !ae.HasSuggestions() || !strings.Contains(ae.Format(false), "--no-capture-cli") {
		t.Errorf("Format() missing capture suggestions:\n%s", ae.Format(false))
	}
}

func TestFetch_BuildFailureKeepsUpdatableReference(t *testing.T) {
	t.Parallel()

	buildErr := &cliprobe.BuildError{Command: []string{"cargo", "build"}, Output: []byte("error[E0425]"), Err: errors.New("exit status 101")}
	pr := &fakeProber{buildErr: buildErr}
	p, store := newTestPipeline(t, &fakeDownloader{files: rustCLISnapshot()}, pr)

	_, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool"})
	var be *cliprobe.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want BuildError", err)
	}
	if string(be.Output) != "error[E0425]" {
		t.Errorf("build output should be preserved verbatim, got %q", be.Output)
	}

	meta, err := store.LoadMeta("tool")
	if err != nil {
		t.Fatalf("metadata should be written before capture: %v", err)
	}
	if meta.CLI != nil {
		t.Error("failed capture must not record CLI info")
	}
	if _, err := os.Stat(store.IndexPath("tool")); err != nil {
		t.Errorf("INDEX.md should exist: %v", err)
	}
}

func TestFetch_NoExecutable(t *testing.T) {
	t.Parallel()

	pr := &fakeProber{buildErr: cliprobe.ErrNoExecutable}
	p, _ := newTestPipeline(t, &fakeDownloader{files: rustCLISnapshot()}, pr)

	_, err := p.Fetch(context.Background(), FetchRequest{Source: "https://github.com/acme/tool"})
	if !errors.Is(err, cliprobe.ErrNoExecutable) {
		t.Fatalf("error = %v, want ErrNoExecutable", err)
	}
	if len(pr.captured) != 0 {
		t.Error("help must not be captured without an executable")
	}
}

func TestUpdate_RefreshesReference(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{files: map[string]string{"pyproject.toml": "", "package.json": "{}"}}
	p, store := newTestPipeline(t, dl, &fakeProber{})
	if err := store.SaveMeta("tool", &refstore.Meta{
		Name:            "tool",
		Source:          "https://github.com/acme/tool",
		Owner:           "acme",
		Repo:            "tool",
		FetchedAt:       "2020-01-01T00:00:00Z",
		RagstrapVersion: "0.1.0",
		CLI:             &refstore.CLIInfo{Binary: "tool", Commands: []string{"root"}},
	}); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	testutil.WriteTree(t, store.Dir("tool"), map[string]string{
		"raw/gone.txt":      "old",
		"cli/root.help.txt": "old",
	})

	report, err := p.Update(context.Background(), UpdateRequest{Name: "tool"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	meta := report.Meta
	if meta.FetchedAt != "2024-05-06T05:08:09Z" || meta.RagstrapVersion != "0.4.0" {
		t.Errorf("fetched_at/version not refreshed: %+v", meta)
	}
	if meta.Language != "python" || !slices.Equal(meta.SecondaryLanguages, []string{"javascript"}) {
		t.Errorf("languages = %q %v", meta.Language, meta.SecondaryLanguages)
	}
	if meta.CLI != nil {
		t.Error("CLI info should be cleared when capture is skipped")
	}
	if _, err := os.Stat(store.CLIDir("tool")); !os.IsNotExist(err) {
		t.Error("stale cli/ should be removed")
	}
	if got := testutil.ListTree(t, store.RawDir("tool")); slices.Contains(got, "gone.txt") {
		t.Errorf("raw should be replaced, got %v", got)
	}
	if meta.Source != "https://github.com/acme/tool" {
		t.Errorf("Source = %q, should be kept", meta.Source)
	}
}

func TestUpdate_DerivesRepositoryFromSource(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{files: map[string]string{"a.txt": "a"}}
	p, store := newTestPipeline(t, dl, &fakeProber{})
	if err := store.SaveMeta("legacy", &refstore.Meta{Name: "legacy", Source: "https://github.com/acme/widget"}); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}

	report, err := p.Update(context.Background(), UpdateRequest{Name: "legacy"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !slices.Equal(dl.calls, []string{"acme/widget"}) {
		t.Errorf("download calls = %v", dl.calls)
	}
	if report.Meta.Owner != "acme" || report.Meta.Repo != "widget" {
		t.Errorf("owner/repo = %q/%q", report.Meta.Owner, report.Meta.Repo)
	}
}

func TestUpdate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, store *refstore.Store)
		want  error
	}{
		{"not found", func(*testing.T, *refstore.Store) {}, refstore.ErrNotFound},
		{"not a directory", func(t *testing.T, s *refstore.Store) {
			testutil.MustWriteFile(t, s.Dir("tool"), "file")
		}, refstore.ErrNotDirectory},
		{"missing meta", func(t *testing.T, s *refstore.Store) {
			testutil.MustMkdirAll(t, s.RawDir("tool"), 0o755)
		}, refstore.ErrMissingMeta},
		{"invalid meta", func(t *testing.T, s *refstore.Store) {
			testutil.MustWriteFile(t, s.MetaPath("tool"), "{")
		}, refstore.ErrInvalidMeta},
		{"no repository", func(t *testing.T, s *refstore.Store) {
			testutil.MustWriteFile(t, s.MetaPath("tool"), `{"name":"tool"}`)
		}, ErrMissingRepository},
		{"unparseable source", func(t *testing.T, s *refstore.Store) {
			testutil.MustWriteFile(t, s.MetaPath("tool"), `{"name":"tool","source":"https://example.com/x"}`)
		}, fetch.ErrInvalidRepoURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dl := &fakeDownloader{}
			p, store := newTestPipeline(t, dl, &fakeProber{})
			tt.setup(t, store)

			_, err := p.Update(context.Background(), UpdateRequest{Name: "tool"})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if len(dl.calls) != 0 {
				t.Error("nothing should be downloaded")
			}
		})
	}
}

func TestUpdate_WarnsAboutNewerReference(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})
	p, store := newTestPipeline(t, &fakeDownloader{files: map[string]string{"a": "a"}}, &fakeProber{}, WithLogger(logger))
	if err := store.SaveMeta("tool", &refstore.Meta{Name: "tool", Owner: "acme", Repo: "tool", RagstrapVersion: "1.0.0"}); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}

	if _, err := p.Update(context.Background(), UpdateRequest{Name: "tool"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.Contains(logs.String(), "newer ragstrap") {
		t.Errorf("expected a newer-version warning, logs:\n%s", logs.String())
	}
}

func TestIsNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0.0", "0.4.0", true},
		{"v0.5.0", "0.4.0", true},
		{"0.4.0", "0.4.0", false},
		{"0.3.9", "0.4.0", false},
		{"0.4.0-rc.1", "0.4.0", false},
		{"1.0.0", "dev", false},
		{"", "0.4.0", false},
		{"garbage", "0.1.0", false},
	}

	for _, tt := range tests {
		if got := isNewer(tt.a, tt.b); got != tt.want {
			t.Errorf("isNewer(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
