// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/chunklink/chunklink/internal/bundle"
	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/config"
	"github.com/chunklink/chunklink/internal/issue"
	"github.com/chunklink/chunklink/internal/remap"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

// ServiceError is an error that carries an issue catalog entry for the CLI
// layer to render after the error itself. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID selects the help text. Zero renders no help.
	IssueID issue.Id
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps a failure to the issue catalog entry that explains it.
// Manifest errors are classified by the caller since they share sentinels
// with nothing else.
func classifyError(err error) issue.Id {
	switch {
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, chunkgraph.ErrInvalidGraph):
		return issue.InvalidChunkGraphId
	case errors.Is(err, bundle.ErrUnsatisfiableGraph):
		return issue.UnsatisfiableGraphId
	case errors.Is(err, bundle.ErrDuplicateSource):
		return issue.DuplicateSourcesId
	case errors.Is(err, compiler.ErrNoBackend):
		return issue.BackendUnavailableId
	case errors.Is(err, compiler.ErrLaunch):
		return issue.CompilerLaunchFailedId
	case errors.Is(err, compiler.ErrCompilationFailed):
		return issue.CompilationFailedId
	case errors.Is(err, remap.ErrSourceMap):
		return issue.OutputRemapFailedId
	default:
		return 0
	}
}

// classifyManifestError picks the catalog entry for a manifest that could
// not be loaded.
func classifyManifestError(err error) issue.Id {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return issue.ManifestNotFoundId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, chunkgraph.ErrInvalidGraph):
		return issue.InvalidChunkGraphId
	default:
		return issue.ManifestParseErrorId
	}
}

// formatErrorForDisplay uses the ActionableError format when available. In
// verbose mode the full cause chain is shown.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err and, for a ServiceError, its catalog entry.
func renderError(stderr io.Writer, err error, verbose bool, style string) {
	fmt.Fprintf(stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID == 0 {
		return
	}
	entry := issue.Get(svcErr.IssueID)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(style)
	if renderErr != nil {
		log.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "err", renderErr)
		return
	}
	fmt.Fprint(stderr, rendered)
}
