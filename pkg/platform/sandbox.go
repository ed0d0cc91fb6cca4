// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

const (
	// SandboxNone indicates no sandbox environment detected.
	SandboxNone SandboxType = ""
	// SandboxFlatpak indicates a Flatpak sandbox environment.
	SandboxFlatpak SandboxType = "flatpak"
	// SandboxSnap indicates a Snap sandbox environment.
	SandboxSnap SandboxType = "snap"
)

// detectOnce caches sandbox detection for the process lifetime.
// detectSandboxFrom must not panic: sync.OnceValue re-panics on every call.
var detectOnce = sync.OnceValue(func() SandboxType {
	return detectSandboxFrom(os.Getenv, statFile)
})

// SandboxType identifies the type of application sandbox, if any.
type SandboxType string

// DetectSandbox returns the sandbox the current process runs in.
func DetectSandbox() SandboxType {
	return detectOnce()
}

// HostCommand returns argv rewritten so it runs on the host when the process
// is sandboxed. Compiler binaries live on the host, not inside the sandbox.
// Outside a sandbox argv is returned unchanged.
func HostCommand(argv []string) []string {
	return HostCommandFor(DetectSandbox(), argv)
}

// HostCommandFor is HostCommand for an explicit sandbox type.
func HostCommandFor(st SandboxType, argv []string) []string {
	var prefix []string
	switch st {
	case SandboxFlatpak:
		prefix = []string{"flatpak-spawn", "--host"}
	case SandboxSnap:
		prefix = []string{"snap", "run", "--shell"}
	default:
		return argv
	}
	out := make([]string, 0, len(prefix)+len(argv))
	out = append(out, prefix...)
	return append(out, argv...)
}

// detectSandboxFrom performs detection with injected lookups so tests do not
// touch process-wide state.
func detectSandboxFrom(lookupEnv func(string) string, statFile func(string) error) SandboxType {
	// /.flatpak-info is always present inside Flatpak sandboxes.
	if err := statFile("/.flatpak-info"); err == nil {
		return SandboxFlatpak
	}
	if lookupEnv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
