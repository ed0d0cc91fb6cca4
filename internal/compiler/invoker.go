// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/chunklink/chunklink/internal/report"
)

// ErrCompilationFailed is returned by Invoke when the compiler reported at
// least one error diagnostic or could not be run.
var ErrCompilationFailed = errors.New("compilation failed")

// Invoker runs requests on one backend and reports diagnostics.
type Invoker struct {
	Backend Backend
	Logger  *log.Logger
}

// NewInvoker creates an Invoker for b.
func NewInvoker(b Backend, logger *log.Logger) *Invoker {
	if logger == nil {
		logger = log.Default()
	}
	return &Invoker{Backend: b, Logger: logger}
}

// Invoke runs req exactly once. Error diagnostics are reported to sink as
// errors and warnings as warnings; info diagnostics are dropped. The output
// files are returned only when no error was reported. A compiler that could
// not be started is reported as one synthetic error diagnostic.
func (inv *Invoker) Invoke(ctx context.Context, req *Request, sink report.Sink) ([]OutputFile, error) {
	logger := inv.logger()
	logger.Debug("invoking compiler", "backend", inv.Backend.Name(), "sources", len(req.Sources), "units", len(req.Units))

	res, err := inv.Backend.Compile(ctx, req)
	if err != nil {
		sink.AddError(syntheticError("%v", err))
		var launchErr *LaunchError
		if errors.As(err, &launchErr) {
			return nil, fmt.Errorf("%w: %w", ErrCompilationFailed, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCompilationFailed, inv.Backend.Name(), err)
	}

	var errCount, warnCount int
	for _, d := range res.Diagnostics {
		switch d.Level {
		case LevelError:
			errCount++
			sink.AddError(d)
		case LevelWarning:
			warnCount++
			sink.AddWarning(d)
		default:
			logger.Debug("compiler info", "message", d.Render(""))
		}
	}
	logger.Debug("compiler finished", "files", len(res.Files), "errors", errCount, "warnings", warnCount)

	if errCount > 0 {
		return nil, fmt.Errorf("%w: %d error(s)", ErrCompilationFailed, errCount)
	}
	return res.Files, nil
}

func (inv *Invoker) logger() *log.Logger {
	if inv.Logger == nil {
		return log.Default()
	}
	return inv.Logger
}
