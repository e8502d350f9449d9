// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand creates the `ragstrap` command tree bound to app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragstrap",
		Short: "Snapshot GitHub repositories into local reference material",
		Long: TitleStyle.Render("ragstrap") + SubtitleStyle.Render(" - Snapshot GitHub repositories into local reference material") + `

ragstrap downloads a repository snapshot, detects its languages, captures
the --help output of Rust command-line tools and harvests shell examples
from the documentation, then writes an INDEX.md tying it all together.

` + SubtitleStyle.Render("Examples:") + `
  ragstrap fetch https://github.com/BurntSushi/ripgrep   Create a reference
  ragstrap update ripgrep                                Refresh it
  ragstrap list                                          List references
  ragstrap show ripgrep                                  Render its index`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/ragstrap/config.cue)")
	flags.StringVar(&app.flags.referencesDir, "references-dir", "", "directory holding references (default \"references\")")

	rootCmd.AddCommand(newFetchCommand(app))
	rootCmd.AddCommand(newUpdateCommand(app))
	rootCmd.AddCommand(newListCommand(app))
	rootCmd.AddCommand(newInfoCommand(app))
	rootCmd.AddCommand(newShowCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI with the process arguments and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(run(context.Background(), NewApp(Dependencies{}), os.Args[1:]))
}

// run executes the command tree and returns the process exit code.
func run(ctx context.Context, app *App, args []string) int {
	rootCmd := newRootCommand(app)
	rootCmd.SetArgs(args)

	// fang overrides rootCmd.Version, so the version is passed through it.
	if err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	); err != nil {
		return 1
	}
	return 0
}
