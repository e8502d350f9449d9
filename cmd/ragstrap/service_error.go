// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/ragstrap/ragstrap/internal/issue"

	"github.com/charmbracelet/log"
)

// ServiceError is an error that carries rendering information for the CLI
// layer. The error handler prints the styled message, then the issue catalog
// entry when one is set. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints any styled message first, then the issue help
// section rendered with the given glamour style.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string, logger *log.Logger) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	catalogEntry := issue.Get(svcErr.IssueID)
	if catalogEntry == nil {
		return
	}
	rendered, err := catalogEntry.Render(style)
	if err != nil {
		if logger == nil {
			logger = log.Default()
		}
		logger.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", err)
		return
	}
	fmt.Fprint(stderr, rendered)
}
