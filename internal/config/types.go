// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// CaptureAuto captures CLI help only when the snapshot looks like a Rust binary crate.
	CaptureAuto CaptureMode = "auto"
	// CaptureAlways captures CLI help for every buildable CLI snapshot.
	CaptureAlways CaptureMode = "always"
	// CaptureNever never builds or captures.
	CaptureNever CaptureMode = "never"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultReferencesDir is where references are stored, relative to the working directory.
	DefaultReferencesDir = "references"
	// DefaultGitHubAPIURL is the public GitHub REST endpoint.
	DefaultGitHubAPIURL = "https://api.github.com"
	// DefaultBuildCommand is the release build run for capture.
	DefaultBuildCommand = "cargo build --release"
)

var (
	// ErrInvalidCaptureMode is returned when a CaptureMode value is not recognized.
	ErrInvalidCaptureMode = errors.New("invalid capture mode")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// CaptureMode selects when CLI help is captured.
	CaptureMode string

	// InvalidCaptureModeError is returned when a CaptureMode value is not recognized.
	// It wraps ErrInvalidCaptureMode for errors.Is() compatibility.
	InvalidCaptureModeError struct {
		Value CaptureMode
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ReferencesDir is the directory holding one subdirectory per reference.
		ReferencesDir string `json:"references_dir" mapstructure:"references_dir"`
		// GitHub configures archive downloads.
		GitHub GitHubConfig `json:"github" mapstructure:"github"`
		// Capture configures the CLI build-and-capture probe.
		Capture CaptureConfig `json:"capture" mapstructure:"capture"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// GitHubConfig configures the GitHub client.
	GitHubConfig struct {
		APIURL    string `json:"api_url" mapstructure:"api_url"`
		Token     string `json:"token" mapstructure:"token"`
		UserAgent string `json:"user_agent" mapstructure:"user_agent"`
	}

	// CaptureConfig configures CLI help capture.
	CaptureConfig struct {
		// Mode is the default capture decision when no flag is given.
		Mode CaptureMode `json:"mode" mapstructure:"mode"`
		// BuildCommand is a shell-quoted command line run in the snapshot root.
		BuildCommand string `json:"build_command" mapstructure:"build_command"`
		// HelpTimeout bounds each help invocation. Zero means no bound.
		HelpTimeout time.Duration `json:"help_timeout" mapstructure:"help_timeout"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidCaptureModeError.
func (e *InvalidCaptureModeError) Error() string {
	return fmt.Sprintf("invalid capture mode %q (valid: auto, always, never)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidCaptureModeError) Unwrap() error {
	return ErrInvalidCaptureMode
}

// String returns the string representation of the CaptureMode.
func (m CaptureMode) String() string { return string(m) }

// IsValid returns whether the CaptureMode is one of the defined modes,
// and a list of validation errors if it is not.
func (m CaptureMode) IsValid() (bool, []error) {
	switch m {
	case CaptureAuto, CaptureAlways, CaptureNever:
		return true, nil
	default:
		return false, []error{&InvalidCaptureModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// IsValid returns whether the Config has valid fields. Values coming from
// the config file are already checked by the CUE schema; this catches
// environment overrides and programmatic construction.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.ReferencesDir) == "" {
		errs = append(errs, errors.New("references_dir must not be empty"))
	}
	if valid, fieldErrs := c.Capture.Mode.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Capture.BuildCommand) == "" {
		errs = append(errs, errors.New("capture.build_command must not be empty"))
	}
	if c.Capture.HelpTimeout < 0 {
		errs = append(errs, fmt.Errorf("capture.help_timeout must not be negative, got %s", c.Capture.HelpTimeout))
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field errors: %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the sentinel and each field-level sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ReferencesDir: DefaultReferencesDir,
		GitHub: GitHubConfig{
			APIURL: DefaultGitHubAPIURL,
		},
		Capture: CaptureConfig{
			Mode:         CaptureAuto,
			BuildCommand: DefaultBuildCommand,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
