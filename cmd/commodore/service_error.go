// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"commodore-cli/internal/container"
	"commodore-cli/internal/executor"
	"commodore-cli/internal/issue"
	"commodore-cli/internal/manifest"
	"commodore-cli/internal/readiness"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard. A zero
// issueID is replaced by the classification of err.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	if issueID == 0 {
		issueID = classifyError(err)
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

// classifyError maps a provisioning error to its issue catalog entry, or 0
// when no entry applies.
func classifyError(err error) issue.Id {
	var (
		parseErr  *manifest.ParseError
		engineErr *container.ErrEngineNotAvailable
	)
	switch {
	case errors.Is(err, readiness.ErrNotReady):
		return issue.ContainerNotReadyId
	case errors.Is(err, executor.ErrInjection):
		return issue.FragmentInjectionFailedId
	case errors.Is(err, executor.ErrFragmentFailed):
		return issue.FragmentFailedId
	case errors.As(err, &parseErr):
		return issue.ManifestInvalidId
	case errors.As(err, &engineErr):
		return issue.ContainerEngineNotFoundId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// renderServiceError prints any styled message first, then the optional
// issue help section rendered with style.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(style)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their own format, which includes the cause chain in verbose mode.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
