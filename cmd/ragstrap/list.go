// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ragstrap/ragstrap/internal/refstore"

	"github.com/spf13/cobra"
)

// newListCommand creates the `ragstrap list` command.
func newListCommand(app *App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.store(cmd.Context())
			if err != nil {
				return app.fail(err)
			}

			entries, err := store.List()
			if err != nil {
				return app.fail(err)
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")

	return cmd
}

// newInfoCommand creates the `ragstrap info` command.
func newInfoCommand(app *App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show metadata about a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.store(cmd.Context())
			if err != nil {
				return app.fail(err)
			}

			name := args[0]
			if err := refstore.ValidateName(name); err != nil {
				return app.fail(err)
			}
			meta, err := store.LoadMeta(name)
			if err != nil {
				return app.fail(err)
			}

			payload := refstore.Entry{
				Name:      name,
				Directory: name,
				Path:      store.Dir(name),
				Meta:      meta,
			}
			if meta.Name != "" {
				payload.Name = meta.Name
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), payload)
			}
			printInfo(cmd.OutOrStdout(), payload)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")

	return cmd
}

func printEntries(w io.Writer, entries []refstore.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No references found"))
		return
	}

	for _, e := range entries {
		var details []string
		if e.Meta != nil {
			if e.Meta.Source != "" {
				details = append(details, e.Meta.Source)
			}
			if e.Meta.Language != "" {
				details = append(details, e.Meta.Language)
			}
		}
		if len(details) > 0 {
			fmt.Fprintf(w, "- %s — %s\n", CmdStyle.Render(e.Name), strings.Join(details, ", "))
		} else {
			fmt.Fprintf(w, "- %s\n", CmdStyle.Render(e.Name))
		}
	}
}

func printInfo(w io.Writer, p refstore.Entry) {
	meta := p.Meta
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render(label+":"), value)
		}
	}

	fmt.Fprintln(w, TitleStyle.Render(p.Name))
	field("Path", p.Path)
	field("Source", meta.Source)
	if meta.Owner != "" && meta.Repo != "" {
		field("Repo", meta.Owner+"/"+meta.Repo)
	}
	field("Commit", meta.Commit)
	field("Fetched at", meta.FetchedAt)
	field("Ragstrap version", meta.RagstrapVersion)
	field("Language", meta.Language)
	field("Secondary languages", strings.Join(meta.SecondaryLanguages, ", "))
	if meta.CLI != nil {
		field("CLI binary", meta.CLI.Binary)
		field("CLI commands", strings.Join(meta.CLI.Commands, ", "))
		if meta.CLI.Package != "" {
			field("Package", strings.TrimSpace(meta.CLI.Package+" "+meta.CLI.PackageVersion))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
