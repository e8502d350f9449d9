// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ragstrap/ragstrap/internal/cliprobe"
	"github.com/ragstrap/ragstrap/internal/config"
	"github.com/ragstrap/ragstrap/internal/fetch"
	"github.com/ragstrap/ragstrap/internal/harvest"
	"github.com/ragstrap/ragstrap/internal/index"
	"github.com/ragstrap/ragstrap/internal/issue"
	"github.com/ragstrap/ragstrap/internal/langdetect"
	"github.com/ragstrap/ragstrap/internal/refstore"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"
)

const (
	// CaptureDefault defers to the configured capture mode.
	CaptureDefault CaptureChoice = iota
	// CaptureForce captures help even when auto detection would not.
	CaptureForce
	// CaptureSkip never captures and removes any previous capture.
	CaptureSkip
)

var (
	// ErrReferenceExists is returned by Fetch when the reference already exists
	// and Force is not set.
	ErrReferenceExists = errors.New("reference already exists")
	// ErrNotBuildableCLI is returned when capture is forced on a snapshot that
	// is not a buildable command-line tool.
	ErrNotBuildableCLI = errors.New("snapshot is not a buildable CLI")
	// ErrMissingRepository is returned by Update when the metadata names no
	// owner and repository and carries no source to derive them from.
	ErrMissingRepository = errors.New("reference is missing owner/repo metadata")
)

type (
	// CaptureChoice is the caller's explicit capture decision.
	CaptureChoice int

	// Downloader materializes a repository snapshot into dest.
	Downloader interface {
		DownloadArchive(ctx context.Context, owner, repo, dest string) (*fetch.ExtractResult, error)
	}

	// Prober builds a snapshot and captures the help text of the result.
	Prober interface {
		Build(ctx context.Context, root string) (string, error)
		CaptureHelp(ctx context.Context, binary, outDir string) (*cliprobe.CaptureResult, error)
	}

	// HarvestFunc replaces outDir with the example documents found under root.
	HarvestFunc func(ctx context.Context, root, outDir string) (*harvest.Result, error)

	// FetchRequest describes a new reference.
	FetchRequest struct {
		// Source is the GitHub repository URL.
		Source string
		// Name overrides the reference name, which defaults to the repository name.
		Name string
		// Force replaces an existing reference of the same name.
		Force   bool
		Capture CaptureChoice
	}

	// UpdateRequest describes a refresh of an existing reference.
	UpdateRequest struct {
		Name    string
		Capture CaptureChoice
	}

	// Report summarizes a completed run.
	Report struct {
		Name string
		Dir  string
		Meta *refstore.Meta
		// Files counts the snapshot files extracted.
		Files int
		// HelpDocuments counts captured help documents; zero when capture was skipped.
		HelpDocuments int
		// Examples counts the example documents written.
		Examples int
	}

	// Pipeline runs fetch and update against a reference store.
	Pipeline struct {
		store      *refstore.Store
		downloader Downloader
		prober     Prober
		harvest    HarvestFunc
		mode       config.CaptureMode
		version    string
		now        func() time.Time
		logger     *log.Logger
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// WithCaptureMode sets the capture decision used when a request has no
// explicit choice.
func WithCaptureMode(mode config.CaptureMode) Option {
	return func(p *Pipeline) { p.mode = mode }
}

// WithVersion sets the version recorded in reference metadata.
func WithVersion(version string) Option {
	return func(p *Pipeline) { p.version = version }
}

// WithClock replaces the time source for fetched_at.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the progress logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithHarvester replaces the example harvester.
func WithHarvester(fn HarvestFunc) Option {
	return func(p *Pipeline) { p.harvest = fn }
}

// New creates a Pipeline writing into store.
func New(store *refstore.Store, downloader Downloader, prober Prober, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		downloader: downloader,
		prober:     prober,
		harvest:    harvest.Harvest,
		mode:       config.CaptureAuto,
		version:    "dev",
		now:        time.Now,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch creates a reference from a GitHub repository URL.
func (p *Pipeline) Fetch(ctx context.Context, req FetchRequest) (*Report, error) {
	owner, repo, err := fetch.ParseGitHubRepo(req.Source)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = repo
	}
	if err := refstore.ValidateName(name); err != nil {
		return nil, err
	}

	existed := p.store.Exists(name)
	if existed {
		if !req.Force {
			return nil, fmt.Errorf("%w: %s", ErrReferenceExists, name)
		}
		if err := p.store.Check(name); err != nil {
			return nil, err
		}
	}

	p.logger.Info("Fetching", "repository", owner+"/"+repo, "reference", name)

	extracted, err := p.download(ctx, owner, repo, p.store.RawDir(name))
	if err != nil {
		if !existed {
			_ = refstore.RemovePath(p.store.Dir(name)) // no partial reference left behind
		}
		return nil, err
	}

	meta := &refstore.Meta{
		Name:   name,
		Source: req.Source,
		Owner:  owner,
		Repo:   repo,
	}
	return p.process(ctx, name, meta, extracted, req.Capture)
}

// Update refreshes the snapshot and every derived document of an existing
// reference, keeping its name and source.
func (p *Pipeline) Update(ctx context.Context, req UpdateRequest) (*Report, error) {
	if err := refstore.ValidateName(req.Name); err != nil {
		return nil, err
	}

	meta, err := p.store.LoadMeta(req.Name)
	if err != nil {
		return nil, err
	}

	owner, repo := meta.Owner, meta.Repo
	if meta.Source != "" && (owner == "" || repo == "") {
		owner, repo, err = fetch.ParseGitHubRepo(meta.Source)
		if err != nil {
			return nil, err
		}
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRepository, req.Name)
	}

	if isNewer(meta.RagstrapVersion, p.version) {
		p.logger.Warn("Reference was created by a newer ragstrap",
			"reference", req.Name, "created_by", meta.RagstrapVersion, "running", p.version)
	}

	p.logger.Info("Updating", "repository", owner+"/"+repo, "reference", req.Name)

	extracted, err := p.download(ctx, owner, repo, p.store.RawDir(req.Name))
	if err != nil {
		return nil, err
	}

	meta.Owner, meta.Repo = owner, repo
	if meta.Name == "" {
		meta.Name = req.Name
	}
	return p.process(ctx, req.Name, meta, extracted, req.Capture)
}

// download extracts the repository archive into a staging directory and
// swaps it in place of rawDir, so a failed download keeps the old snapshot.
func (p *Pipeline) download(ctx context.Context, owner, repo, rawDir string) (*fetch.ExtractResult, error) {
	staging, err := refstore.StageDir(rawDir)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Downloading repository archive")
	extracted, err := p.downloader.DownloadArchive(ctx, owner, repo, staging)
	if err != nil {
		_ = refstore.RemovePath(staging)
		return nil, fmt.Errorf("downloading %s/%s: %w", owner, repo, err)
	}
	if err := refstore.SwapDir(staging, rawDir); err != nil {
		_ = refstore.RemovePath(staging)
		return nil, err
	}

	p.logger.Debug("Snapshot extracted", "files", extracted.Files, "commit", extracted.Commit)
	return extracted, nil
}

// process runs the stages that read the snapshot: language detection, CLI
// capture and example harvesting. Metadata and the index are written once
// before capture, so a failed build still leaves an updatable reference, and
// again at the end.
func (p *Pipeline) process(ctx context.Context, name string, meta *refstore.Meta, extracted *fetch.ExtractResult, choice CaptureChoice) (*Report, error) {
	raw := p.store.RawDir(name)
	report := &Report{Name: name, Dir: p.store.Dir(name), Meta: meta, Files: extracted.Files}

	meta.Commit = extracted.Commit
	meta.FetchedAt = p.now().UTC().Format(time.RFC3339)
	meta.RagstrapVersion = p.version
	meta.Language, meta.SecondaryLanguages = langdetect.DetectLanguages(raw)
	meta.CLI = nil
	p.logger.Info("Detected languages", "primary", meta.Language, "secondary", strings.Join(meta.SecondaryLanguages, ","))

	if err := p.writeIndex(name, meta); err != nil {
		return nil, err
	}

	capture, err := p.shouldCapture(raw, choice)
	if err != nil {
		return nil, err
	}

	if capture {
		info, count, err := p.captureCLI(ctx, raw, p.store.CLIDir(name))
		if err != nil {
			return nil, err
		}
		meta.CLI = info
		report.HelpDocuments = count
	} else {
		if err := refstore.RemovePath(p.store.CLIDir(name)); err != nil {
			return nil, err
		}
		p.logger.Info("Skipping CLI help capture")
	}

	harvested, err := p.harvest(ctx, raw, p.store.ExamplesDir(name))
	if err != nil {
		return nil, fmt.Errorf("harvesting examples: %w", err)
	}
	report.Examples = len(harvested.Documents)
	p.logger.Info("Examples harvested", "documents", report.Examples, "scanned", harvested.Scanned)

	if err := p.writeIndex(name, meta); err != nil {
		return nil, err
	}
	p.logger.Info("Done", "reference", name)
	return report, nil
}

func (p *Pipeline) shouldCapture(raw string, choice CaptureChoice) (bool, error) {
	switch choice {
	case CaptureForce:
		if !cliprobe.IsBuildableCLI(raw) {
			return false, issue.NewErrorContext().
				WithOperation("capture CLI help").
				WithResource(raw).
				WithSuggestions(
					"Drop --capture-cli to let detection decide",
					"Pass --no-capture-cli to skip capture",
				).
				WithIssue(issue.NotBuildableCLIId).
				Wrap(ErrNotBuildableCLI).
				BuildError()
		}
		return true, nil
	case CaptureSkip:
		return false, nil
	}

	switch p.mode {
	case config.CaptureAlways:
		return cliprobe.IsBuildableCLI(raw), nil
	case config.CaptureNever:
		return false, nil
	default:
		return cliprobe.ShouldAutoCapture(raw), nil
	}
}

func (p *Pipeline) captureCLI(ctx context.Context, raw, cliDir string) (*refstore.CLIInfo, int, error) {
	p.logger.Info("Building CLI")
	binary, err := p.prober.Build(ctx, raw)
	if err != nil {
		return nil, 0, err
	}

	p.logger.Info("Capturing CLI help output", "binary", filepath.Base(binary))
	result, err := p.prober.CaptureHelp(ctx, binary, cliDir)
	if err != nil {
		return nil, 0, fmt.Errorf("capturing help: %w", err)
	}

	info := &refstore.CLIInfo{
		Binary:   filepath.Base(binary),
		Commands: result.Commands(),
	}
	if manifest, err := cliprobe.ReadManifest(raw); err == nil {
		info.Package = manifest.Name
		info.PackageVersion = manifest.Version
	} else {
		p.logger.Debug("Manifest not recorded", "error", err)
	}
	p.logger.Info("CLI help captured", "commands", len(info.Commands))
	return info, len(result.Documents), nil
}

func (p *Pipeline) writeIndex(name string, meta *refstore.Meta) error {
	if err := p.store.SaveMeta(name, meta); err != nil {
		return err
	}
	if err := index.Generate(p.store.Dir(name), meta); err != nil {
		return fmt.Errorf("generating index: %w", err)
	}
	return nil
}

// isNewer reports whether version a is a later semantic version than b.
// Versions that are not semantic versions never compare as newer.
func isNewer(a, b string) bool {
	ca, cb := canonicalVersion(a), canonicalVersion(b)
	if !semver.IsValid(ca) || !semver.IsValid(cb) {
		return false
	}
	return semver.Compare(ca, cb) > 0
}

func canonicalVersion(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
