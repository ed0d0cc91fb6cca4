// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/chunklink/chunklink/pkg/platform"
)

// DefaultNativeCommand is the compiler binary the native backend runs when
// none is configured.
const DefaultNativeCommand = "closure-compiler"

// DefaultJava is the JVM the managed backend runs when none is configured.
const DefaultJava = "java"

// ProcessBackend runs an external compiler process. The request is written
// to its stdin as one JSON line; output files are read from stdout as a JSON
// array and diagnostics from stderr.
type ProcessBackend struct {
	kind Kind
	argv []string
	// jar is checked for existence by Available on managed backends.
	jar string

	// Dir is the working directory of the process.
	Dir string
	// Env replaces the process environment when non-nil.
	Env []string
	// Logger receives debug output about the process.
	Logger *log.Logger

	lookPath func(string) (string, error)
}

// NewNativeBackend creates the native backend. command is split into words
// with shell quoting rules and environment expansion; empty selects
// DefaultNativeCommand.
func NewNativeBackend(command string) (*ProcessBackend, error) {
	if strings.TrimSpace(command) == "" {
		command = platform.ExecutableName(runtime.GOOS, DefaultNativeCommand)
	}
	argv, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	return newProcessBackend(KindNative, argv, ""), nil
}

// NewManagedBackend creates the managed backend, running jar with java.
func NewManagedBackend(java, jar string) (*ProcessBackend, error) {
	if strings.TrimSpace(java) == "" {
		java = DefaultJava
	}
	argv, err := splitCommand(java)
	if err != nil {
		return nil, err
	}
	if jar != "" {
		expanded, err := shell.Fields(jar, os.Getenv)
		if err != nil || len(expanded) != 1 {
			return nil, fmt.Errorf("invalid compiler jar path %q", jar)
		}
		jar = expanded[0]
		argv = append(argv, "-jar", jar)
	}
	return newProcessBackend(KindManaged, argv, jar), nil
}

func newProcessBackend(kind Kind, argv []string, jar string) *ProcessBackend {
	return &ProcessBackend{
		kind:     kind,
		argv:     argv,
		jar:      jar,
		Logger:   log.Default(),
		lookPath: exec.LookPath,
	}
}

func splitCommand(command string) ([]string, error) {
	argv, err := shell.Fields(command, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("invalid compiler command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("invalid compiler command %q: empty", command)
	}
	return argv, nil
}

// Name returns the backend kind.
func (p *ProcessBackend) Name() string { return string(p.kind) }

// Argv returns the command line the backend runs, before any sandbox prefix.
func (p *ProcessBackend) Argv() []string {
	out := make([]string, len(p.argv))
	copy(out, p.argv)
	return out
}

// Available reports whether the executable can be found. The native backend
// also requires a platform the native compiler ships for, and the managed
// backend requires its jar to exist.
func (p *ProcessBackend) Available() bool {
	if p.kind == KindNative && !platform.SupportsNativeCompilerHere() {
		return false
	}
	if p.kind == KindManaged {
		if p.jar == "" {
			return false
		}
		if _, err := os.Stat(p.jar); err != nil {
			return false
		}
	}
	_, err := p.lookPath(p.argv[0])
	return err == nil
}

// Compile runs the compiler process once.
func (p *ProcessBackend) Compile(ctx context.Context, req *Request) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode compiler request: %w", err)
	}
	payload = append(payload, '\n')

	argv := platform.HostCommand(p.argv)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = p.Dir
	if p.Env != nil {
		cmd.Env = p.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger().Debug("starting compiler", "argv", argv, "request_bytes", len(payload))

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &LaunchError{Command: strings.Join(argv, " "), Err: err}
		}
		exitCode = exitErr.ExitCode()
	}

	return p.result(exitCode, stdout.Bytes(), stderr.String()), nil
}

func (p *ProcessBackend) result(exitCode int, stdout []byte, stderr string) *Result {
	res := &Result{}

	diags, unparsed := ParseDiagnostics(stderr)
	res.Diagnostics = diags
	if unparsed != "" {
		if exitCode != 0 {
			res.Diagnostics = append(res.Diagnostics, syntheticError("%s", unparsed))
		} else {
			p.logger().Debug("ignoring compiler stderr", "text", unparsed)
		}
	}

	if len(bytes.TrimSpace(stdout)) > 0 {
		if err := json.Unmarshal(stdout, &res.Files); err != nil {
			res.Files = nil
			res.Diagnostics = append(res.Diagnostics, syntheticError("invalid compiler output: %v", err))
		}
	}

	if exitCode != 0 && !res.HasErrors() {
		res.Diagnostics = append(res.Diagnostics, syntheticError("compiler exited with status %d", exitCode))
	}
	return res
}

func (p *ProcessBackend) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
