// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// nativeCompilerTargets lists the GOOS/GOARCH pairs that prebuilt native
// compiler binaries are published for.
var nativeCompilerTargets = map[string][]string{
	Linux:   {"amd64", "arm64"},
	Darwin:  {"amd64", "arm64"},
	Windows: {"amd64"},
}

// SupportsNativeCompiler reports whether a native compiler binary can exist
// for the given target.
func SupportsNativeCompiler(goos, goarch string) bool {
	for _, arch := range nativeCompilerTargets[goos] {
		if arch == goarch {
			return true
		}
	}
	return false
}

// SupportsNativeCompilerHere is SupportsNativeCompiler for the running process.
func SupportsNativeCompilerHere() bool {
	return SupportsNativeCompiler(runtime.GOOS, runtime.GOARCH)
}

// ExecutableName appends ".exe" on Windows.
func ExecutableName(goos, name string) string {
	if goos == Windows && len(name) > 0 && !hasExeSuffix(name) {
		return name + ".exe"
	}
	return name
}

func hasExeSuffix(name string) bool {
	return len(name) >= 4 && (name[len(name)-4:] == ".exe" || name[len(name)-4:] == ".EXE")
}
