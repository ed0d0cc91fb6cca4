// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		assert.Equal(t, "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)", getVersionString())
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		assert.Equal(t, "dev (built from source)", getVersionString())
	})
}

func TestLoadEnvFiles(t *testing.T) {
	// Not parallel: mutates the process environment.
	const (
		fromFile  = "CHUNKLINK_TEST_FROM_FILE"
		fromShell = "CHUNKLINK_TEST_FROM_SHELL"
	)
	t.Cleanup(func() { _ = os.Unsetenv(fromFile) })
	t.Setenv(fromShell, "shell")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(fromFile+"=file\n"+fromShell+"=file\n"), 0o644))

	require.NoError(t, loadEnvFiles([]string{envFile}))
	assert.Equal(t, "file", os.Getenv(fromFile))
	assert.Equal(t, "shell", os.Getenv(fromShell), "the environment wins over the file")

	assert.NoError(t, loadEnvFiles(nil))
	assert.Error(t, loadEnvFiles([]string{filepath.Join(t.TempDir(), "missing.env")}))
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	root := NewRootCommand(h.app)

	for _, name := range []string{"build", "units", "backends", "config"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
}
