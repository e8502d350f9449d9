// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ragstrap/ragstrap/internal/cliprobe"
	"github.com/ragstrap/ragstrap/internal/fetch"
	"github.com/ragstrap/ragstrap/internal/issue"
	"github.com/ragstrap/ragstrap/internal/pipeline"
	"github.com/ragstrap/ragstrap/internal/refstore"

	"github.com/charmbracelet/fang"
)

// classifyError maps a command failure to an issue catalog ID and returns a
// styled message for CLI rendering. Build failures carry the toolchain output
// verbatim ahead of the error line.
func classifyError(err error, verbose bool) (issueID issue.Id, styledMsg string) {
	var (
		rateErr   *fetch.RateLimitError
		statusErr *fetch.StatusError
		buildErr  *cliprobe.BuildError
		prefix    string
		hint      string
	)

	switch {
	case issue.IssueOf(err) != 0:
		issueID = issue.IssueOf(err)
	case errors.As(err, &rateErr):
		issueID = issue.RateLimitedId
		if !rateErr.Authenticated {
			hint = "set GITHUB_TOKEN to raise the limit"
		}
	case errors.As(err, &buildErr):
		issueID = issue.ToolchainBuildFailedId
		if len(buildErr.Output) > 0 {
			prefix = string(buildErr.Output)
			if !strings.HasSuffix(prefix, "\n") {
				prefix += "\n"
			}
		}
	case errors.Is(err, exec.ErrNotFound):
		issueID = issue.ToolchainNotFoundId
	case errors.As(err, &statusErr):
		issueID = issue.RepositoryUnavailableId
	case errors.Is(err, fetch.ErrInvalidRepoURL), errors.Is(err, refstore.ErrInvalidName):
		issueID = issue.InvalidSourceURLId
	case errors.Is(err, fetch.ErrUnsafePath), errors.Is(err, fetch.ErrEmptyArchive):
		issueID = issue.UnsafeArchiveId
	case errors.Is(err, cliprobe.ErrNoExecutable):
		issueID = issue.NoExecutableId
	case errors.Is(err, pipeline.ErrNotBuildableCLI):
		issueID = issue.NotBuildableCLIId
	case errors.Is(err, refstore.ErrNotFound), errors.Is(err, refstore.ErrNotDirectory):
		issueID = issue.ReferenceNotFoundId
	case errors.Is(err, pipeline.ErrReferenceExists):
		issueID = issue.ReferenceExistsId
	case errors.Is(err, refstore.ErrMissingMeta), errors.Is(err, refstore.ErrInvalidMeta),
		errors.Is(err, pipeline.ErrMissingRepository):
		issueID = issue.InvalidMetadataId
	}

	styledMsg = fmt.Sprintf("%s\n%s %s\n", prefix, ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	if hint != "" {
		styledMsg += WarningStyle.Render("Hint: "+hint) + "\n"
	}
	return issueID, styledMsg
}

// fail converts a command failure into a ServiceError for the error handler.
func (a *App) fail(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	issueID, styledMsg := classifyError(err, a.verbose())
	return newServiceError(err, issueID, styledMsg)
}

// handleError is the fang error handler. Command failures are rendered with
// their catalog entry; usage errors raised by cobra keep fang's styling.
func (a *App) handleError(w io.Writer, styles fang.Styles, err error) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, a.colorScheme(), a.logger)
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
