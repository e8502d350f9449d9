// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/ragstrap/ragstrap/internal/cliprobe"
	"github.com/ragstrap/ragstrap/internal/config"
	"github.com/ragstrap/ragstrap/internal/fetch"
	"github.com/ragstrap/ragstrap/internal/issue"
	"github.com/ragstrap/ragstrap/internal/pipeline"
	"github.com/ragstrap/ragstrap/internal/refstore"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command constructor receives the App and
	// reaches configuration, the reference store and the pipeline through it.
	App struct {
		Config     ConfigProvider
		Downloader DownloaderFactory
		Prober     ProberFactory
		stdout     io.Writer
		stderr     io.Writer

		flags  globalFlags
		cfg    *config.Config
		logger *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     ConfigProvider
		Downloader DownloaderFactory
		Prober     ProberFactory
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// DownloaderFactory builds the archive downloader for a loaded configuration.
	DownloaderFactory func(cfg *config.Config) pipeline.Downloader

	// ProberFactory builds the CLI prober for a loaded configuration.
	ProberFactory func(cfg *config.Config) (pipeline.Prober, error)

	// globalFlags holds the persistent flags of the root command.
	globalFlags struct {
		verbose       bool
		configFile    string
		referencesDir string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Downloader == nil {
		deps.Downloader = newGitHubClient
	}
	if deps.Prober == nil {
		deps.Prober = newProber
	}

	return &App{
		Config:     deps.Config,
		Downloader: deps.Downloader,
		Prober:     deps.Prober,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
	}
}

// loadConfig loads the configuration once per invocation and applies the
// global flag overrides. The logger is rebuilt from the effective verbosity.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configFile,
		EnvFile:        config.DefaultEnvFile,
	})
	if err != nil {
		return nil, err
	}

	if a.flags.referencesDir != "" {
		cfg.ReferencesDir = a.flags.referencesDir
	}
	if a.flags.verbose {
		cfg.UI.Verbose = true
	}

	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.UI.Verbose)
	return cfg, nil
}

// store returns the reference store rooted at the configured directory.
func (a *App) store(ctx context.Context) (*refstore.Store, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return refstore.New(cfg.ReferencesDir), nil
}

// pipeline assembles a Pipeline from the loaded configuration.
func (a *App) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	prober, err := a.Prober(cfg)
	if err != nil {
		return nil, err
	}

	return pipeline.New(
		refstore.New(cfg.ReferencesDir),
		a.Downloader(cfg),
		prober,
		pipeline.WithCaptureMode(cfg.Capture.Mode),
		pipeline.WithVersion(Version),
		pipeline.WithLogger(a.logger),
	), nil
}

// verbose reports the effective verbosity, before or after config loading.
func (a *App) verbose() bool {
	if a.cfg != nil {
		return a.cfg.UI.Verbose
	}
	return a.flags.verbose
}

// colorScheme returns the glamour style for markdown rendering.
func (a *App) colorScheme() string {
	if a.cfg == nil {
		return string(config.ColorSchemeAuto)
	}
	return a.cfg.UI.ColorScheme.String()
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: config.AppName})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func newGitHubClient(cfg *config.Config) pipeline.Downloader {
	userAgent := cfg.GitHub.UserAgent
	if userAgent == "" {
		userAgent = config.AppName + "/" + Version
	}

	opts := []fetch.ClientOption{
		fetch.WithBaseURL(cfg.GitHub.APIURL),
		fetch.WithUserAgent(userAgent),
	}
	if cfg.GitHub.Token != "" {
		opts = append(opts, fetch.WithToken(cfg.GitHub.Token))
	}
	return fetch.NewClient(opts...)
}

func newProber(cfg *config.Config) (pipeline.Prober, error) {
	argv, err := cliprobe.ParseBuildCommand(cfg.Capture.BuildCommand)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse build command").
			WithResource("capture.build_command").
			WithSuggestion("Quote arguments the way a POSIX shell would").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return cliprobe.NewProber(
		cliprobe.WithBuildCommand(argv),
		cliprobe.WithHelpTimeout(cfg.Capture.HelpTimeout),
	), nil
}
