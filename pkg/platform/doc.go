// SPDX-License-Identifier: MPL-2.0

// Package platform answers host questions for compiler backend selection:
// whether a prebuilt native compiler exists for this OS/architecture, and
// how to reach the host when running inside a Flatpak or Snap sandbox.
package platform
