// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/ragstrap/ragstrap/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// captureFlags holds the --capture-cli/--no-capture-cli pair shared by fetch
// and update.
type captureFlags struct {
	capture   bool
	noCapture bool
}

// newFetchCommand creates the `ragstrap fetch` command.
func newFetchCommand(app *App) *cobra.Command {
	var (
		name    string
		force   bool
		capture captureFlags
	)

	cmd := &cobra.Command{
		Use:   "fetch <github-url>",
		Short: "Fetch and build a local reference for a repository",
		Long: `Fetch and build a local reference for a repository.

The default branch is downloaded as a tarball into <references>/<name>/raw.
CLI help is captured automatically when the snapshot is a Rust binary crate
with src/main.rs; --capture-cli forces it for any buildable crate.`,
		Example: `  ragstrap fetch https://github.com/BurntSushi/ripgrep
  ragstrap fetch -n rg --no-capture-cli https://github.com/BurntSushi/ripgrep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.pipeline(cmd.Context())
			if err != nil {
				return app.fail(err)
			}

			report, err := p.Fetch(cmd.Context(), pipeline.FetchRequest{
				Source:  args[0],
				Name:    name,
				Force:   force,
				Capture: capture.choice(),
			})
			if err != nil {
				return app.fail(err)
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "reference name (default is the repository name)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing reference")
	capture.register(cmd)

	return cmd
}

// newUpdateCommand creates the `ragstrap update` command.
func newUpdateCommand(app *App) *cobra.Command {
	var capture captureFlags

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Refresh an existing reference",
		Long: `Refresh an existing reference.

The snapshot is downloaded again from the repository recorded in meta.json,
and captured help, harvested examples and INDEX.md are regenerated. The old
snapshot is kept when the download fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.pipeline(cmd.Context())
			if err != nil {
				return app.fail(err)
			}

			report, err := p.Update(cmd.Context(), pipeline.UpdateRequest{
				Name:    args[0],
				Capture: capture.choice(),
			})
			if err != nil {
				return app.fail(err)
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	capture.register(cmd)

	return cmd
}

func (f *captureFlags) register(cmd *cobra.Command) {
	fs := pflag.NewFlagSet("capture", pflag.ContinueOnError)
	fs.BoolVar(&f.capture, "capture-cli", false, "always capture CLI --help output")
	fs.BoolVar(&f.noCapture, "no-capture-cli", false, "never capture CLI --help output")
	cmd.Flags().AddFlagSet(fs)
	cmd.MarkFlagsMutuallyExclusive("capture-cli", "no-capture-cli")
}

func (f *captureFlags) choice() pipeline.CaptureChoice {
	switch {
	case f.capture:
		return pipeline.CaptureForce
	case f.noCapture:
		return pipeline.CaptureSkip
	default:
		return pipeline.CaptureDefault
	}
}

// printReport writes the closing summary of a fetch or update.
func printReport(w io.Writer, report *pipeline.Report) {
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("✓"), TitleStyle.Render(report.Name))
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Path:"), report.Dir)
	fmt.Fprintf(w, "  %s %d\n", SubtitleStyle.Render("Files:"), report.Files)
	if report.Meta != nil && report.Meta.Language != "" {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Language:"), report.Meta.Language)
	}
	if report.HelpDocuments > 0 {
		fmt.Fprintf(w, "  %s %d\n", SubtitleStyle.Render("Help documents:"), report.HelpDocuments)
	}
	fmt.Fprintf(w, "  %s %d\n", SubtitleStyle.Render("Example documents:"), report.Examples)
}
