// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ragstrap/ragstrap/internal/issue"
	"github.com/ragstrap/ragstrap/internal/refstore"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const showWordWrap = 100

// newShowCommand creates the `ragstrap show` command.
func newShowCommand(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <name> [document]",
		Short: "Render a reference's index or one of its documents",
		Long: `Render a reference's INDEX.md, or a document inside the reference given by
its path relative to the reference directory (for example
examples/README.md or cli/root.help.txt). Markdown is rendered for the
terminal; other documents are printed as they are.`,
		Example: `  ragstrap show ripgrep
  ragstrap show ripgrep cli/root.help.txt`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.store(cmd.Context())
			if err != nil {
				return app.fail(err)
			}

			name := args[0]
			if err := refstore.ValidateName(name); err != nil {
				return app.fail(err)
			}
			if err := store.Check(name); err != nil {
				return app.fail(err)
			}

			document, path := refstore.IndexFile, store.IndexPath(name)
			if len(args) == 2 {
				document = args[1]
				if path, err = documentPath(store.Dir(name), document); err != nil {
					return app.fail(err)
				}
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return app.fail(documentReadError(name, document, err))
			}

			if err := renderDocument(cmd.OutOrStdout(), path, data, app.colorScheme(), raw); err != nil {
				return app.fail(err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")

	return cmd
}

// documentPath resolves document below dir, rejecting paths that leave it.
func documentPath(dir, document string) (string, error) {
	rel := filepath.FromSlash(document)
	if !filepath.IsLocal(rel) {
		return "", issue.NewErrorContext().
			WithOperation("show document").
			WithResource(document).
			WithSuggestion("Give a path relative to the reference directory, e.g. examples/README.md").
			Wrap(fmt.Errorf("document path %q leaves the reference directory", document)).
			BuildError()
	}
	return filepath.Join(dir, rel), nil
}

func documentReadError(name, document string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("show document").
		WithResource(name + "/" + document)
	if errors.Is(err, fs.ErrNotExist) && document == refstore.IndexFile {
		ctx = ctx.WithSuggestion("Run 'ragstrap update " + name + "' to regenerate it")
	} else if errors.Is(err, fs.ErrNotExist) {
		ctx = ctx.WithSuggestion("Run 'ragstrap show " + name + "' to see the documents it holds")
	}
	return ctx.Wrap(err).BuildError()
}

func renderDocument(w io.Writer, path string, data []byte, style string, raw bool) error {
	if raw || !strings.EqualFold(filepath.Ext(path), ".md") {
		_, err := w.Write(data)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(showWordWrap),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := renderer.RenderBytes(data)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", filepath.Base(path), err)
	}
	_, err = w.Write(out)
	return err
}
