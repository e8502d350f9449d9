// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ragstrap/ragstrap/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "ragstrap"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. RAGSTRAP_CAPTURE_MODE.
	EnvPrefix = "RAGSTRAP"
	// TokenEnvVar is the conventional GitHub token variable.
	TokenEnvVar = "GITHUB_TOKEN"
	// DefaultEnvFile is the dotenv file loaded from the working directory.
	DefaultEnvFile = ".env"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the ragstrap configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ResolvePath returns the config file that Load would read for opts, or ""
// when none exists and defaults apply.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", configNotFound(opts.ConfigFilePath)
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cuePath) {
		return cuePath, nil
	}

	localCuePath := ConfigFileName + "." + ConfigFileExt
	if fileExists(localCuePath) {
		return localCuePath, nil
	}

	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state other than the process environment read from the
// dotenv file.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if opts.EnvFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load environment file").
				WithResource(opts.EnvFile).
				WithSuggestion("Check that the file uses KEY=value lines").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	v := newViper()

	resolvedPath, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'ragstrap config dump' to see a complete example").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("parse configuration").
			WithSuggestion("Check the RAGSTRAP_* environment variables for malformed values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check the RAGSTRAP_* environment variables for invalid values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a Viper instance seeded with defaults and environment bindings.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("references_dir", defaults.ReferencesDir)
	v.SetDefault("github.api_url", defaults.GitHub.APIURL)
	v.SetDefault("github.token", defaults.GitHub.Token)
	v.SetDefault("github.user_agent", defaults.GitHub.UserAgent)
	v.SetDefault("capture.mode", string(defaults.Capture.Mode))
	v.SetDefault("capture.build_command", defaults.Capture.BuildCommand)
	v.SetDefault("capture.help_timeout", defaults.Capture.HelpTimeout)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The prefixed name wins over the conventional one.
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", TokenEnvVar)

	return v
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

func configNotFound(path string) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Verify the file path is correct").
		WithSuggestion("Check that the file exists and is readable").
		WithSuggestion("Use 'ragstrap config show' to see the default configuration").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(fmt.Errorf("config file not found: %s", path)).
		BuildError()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config decodes to map[string]any rather than a struct so Viper keeps its
// precedence rules: file values override defaults, environment overrides both.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkFileSize(data, maxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Fields are optional, so only non-concrete leaves are tolerated.
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist and
// returns its path.
func EnsureConfigDir() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return cfgDir, nil
}

// CreateDefaultConfig writes the default configuration unless a config file
// already exists, and returns its path. created is false when the file was
// already present.
func CreateDefaultConfig() (path string, created bool, err error) {
	cfgDir, err := EnsureConfigDir()
	if err != nil {
		return "", false, err
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if cfgPath, err = Save(DefaultConfig()); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes cfg to the config file, readable only by the owner since it
// may hold a token, and returns the file path.
func Save(cfg *Config) (string, error) {
	cfgDir, err := EnsureConfigDir()
	if err != nil {
		return "", err
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
// The token is only written when set.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// ragstrap configuration file\n")
	sb.WriteString("// Environment variables (RAGSTRAP_*, GITHUB_TOKEN) override these values.\n\n")

	sb.WriteString(fmt.Sprintf("references_dir: %q\n", cfg.ReferencesDir))

	sb.WriteString("\ngithub: {\n")
	sb.WriteString(fmt.Sprintf("\tapi_url: %q\n", cfg.GitHub.APIURL))
	if cfg.GitHub.Token != "" {
		sb.WriteString(fmt.Sprintf("\ttoken: %q\n", cfg.GitHub.Token))
	}
	if cfg.GitHub.UserAgent != "" {
		sb.WriteString(fmt.Sprintf("\tuser_agent: %q\n", cfg.GitHub.UserAgent))
	}
	sb.WriteString("}\n")

	sb.WriteString("\ncapture: {\n")
	sb.WriteString(fmt.Sprintf("\tmode: %q\n", cfg.Capture.Mode))
	sb.WriteString(fmt.Sprintf("\tbuild_command: %q\n", cfg.Capture.BuildCommand))
	if cfg.Capture.HelpTimeout > 0 {
		sb.WriteString(fmt.Sprintf("\thelp_timeout: %q\n", cfg.Capture.HelpTimeout.String()))
	}
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tcolor_scheme: %q\n", cfg.UI.ColorScheme))
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}
