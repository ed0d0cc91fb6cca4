// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It stands in for the external
// compiler when re-executed by helperBackend.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	data, _ := io.ReadAll(os.Stdin)
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		fmt.Fprintf(os.Stderr, "bad request: %v", err)
		os.Exit(9)
	}

	switch os.Getenv("HELPER_MODE") {
	case "ok":
		var files []OutputFile
		for _, u := range req.Units {
			name, _, _ := strings.Cut(u, ":")
			files = append(files, OutputFile{Path: "./" + name + ".js", Src: req.Flags.Get(FlagCompilationLevel), SourceMap: "{}"})
		}
		out, _ := json.Marshal(files)
		os.Stdout.Write(out)
		fmt.Fprint(os.Stderr, `{"level":"warning","description":"w","source":"a.js","line":1}`)
	case "crash":
		fmt.Fprint(os.Stderr, `[{"level":"error","description":"bad","source":"a.js","line":3},{"level":"war`+
			"java.lang.NullPointerException\n\tat Foo.bar(Foo.java:1)\n")
		os.Exit(2)
	case "exit":
		os.Exit(3)
	case "garbage":
		fmt.Fprint(os.Stderr, "segfault")
		os.Exit(1)
	case "noise":
		fmt.Fprint(os.Stderr, "picked up JAVA_TOOL_OPTIONS")
		os.Stdout.Write([]byte("[]"))
	case "bad-stdout":
		os.Stdout.Write([]byte("not json"))
	}
}

func helperBackend(t *testing.T, mode string) *ProcessBackend {
	t.Helper()
	p := newProcessBackend(KindNative, []string{os.Args[0], "-test.run=TestHelperProcess", "--"}, "")
	p.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_MODE="+mode)
	return p
}

func helperRequest() *Request {
	return &Request{
		Flags:   Flags{FlagCompilationLevel: {"SIMPLE"}},
		Sources: []Source{{Path: "a.js", Src: "a()"}, {Path: "b.js", Src: "b()"}},
		Units:   []string{"required-base:1", "main:1:required-base"},
	}
}

func TestProcessBackend_Compile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mode      string
		files     int
		levels    []Level
		lastMatch string
	}{
		{name: "success", mode: "ok", files: 2, levels: []Level{LevelWarning}},
		{name: "stack trace", mode: "crash", levels: []Level{LevelError, LevelError}, lastMatch: "NullPointerException"},
		{name: "silent failure", mode: "exit", levels: []Level{LevelError}, lastMatch: "compiler exited with status 3"},
		{name: "unparseable stderr", mode: "garbage", levels: []Level{LevelError}, lastMatch: "segfault"},
		{name: "stderr noise on success", mode: "noise", levels: nil},
		{name: "invalid stdout", mode: "bad-stdout", levels: []Level{LevelError}, lastMatch: "invalid compiler output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := helperBackend(t, tt.mode).Compile(context.Background(), helperRequest())
			require.NoError(t, err)
			assert.Len(t, res.Files, tt.files)
			require.Len(t, res.Diagnostics, len(tt.levels), "%+v", res.Diagnostics)
			for i, lvl := range tt.levels {
				assert.Equal(t, lvl, res.Diagnostics[i].Level, "diagnostic %d", i)
			}
			if tt.lastMatch != "" {
				assert.Contains(t, res.Diagnostics[len(res.Diagnostics)-1].Description, tt.lastMatch)
			}
		})
	}
}

func TestProcessBackend_RequestReachesProcess(t *testing.T) {
	t.Parallel()
	res, err := helperBackend(t, "ok").Compile(context.Background(), helperRequest())
	require.NoError(t, err)
	require.NotEmpty(t, res.Files)
	assert.Equal(t, "./required-base.js", res.Files[0].Path)
	assert.Equal(t, "SIMPLE", res.Files[0].Src, "flags reach the process")
}

func TestProcessBackend_LaunchError(t *testing.T) {
	t.Parallel()
	p := newProcessBackend(KindNative, []string{filepath.Join(t.TempDir(), "missing-compiler")}, "")
	_, err := p.Compile(context.Background(), helperRequest())

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.ErrorIs(t, err, ErrLaunch)
}

func TestNewBackends_CommandSplitting(t *testing.T) {
	t.Setenv("CHUNKLINK_TEST_JAR_DIR", "/opt/closure")

	native, err := NewNativeBackend(`npx "google-closure-compiler" --platform=native`)
	require.NoError(t, err)
	assert.Equal(t, []string{"npx", "google-closure-compiler", "--platform=native"}, native.Argv())

	managed, err := NewManagedBackend("java -Xmx2g", "$CHUNKLINK_TEST_JAR_DIR/compiler.jar")
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "-Xmx2g", "-jar", "/opt/closure/compiler.jar"}, managed.Argv())
	assert.False(t, managed.Available(), "the jar does not exist")

	_, err = NewNativeBackend(`closure "unterminated`)
	assert.Error(t, err)
}

func TestProcessBackend_Available(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	jar := filepath.Join(dir, "compiler.jar")
	require.NoError(t, os.WriteFile(jar, []byte("PK"), 0o644))

	p := newProcessBackend(KindManaged, []string{"java", "-jar", jar}, jar)
	p.lookPath = func(string) (string, error) { return "/usr/bin/java", nil }
	assert.True(t, p.Available())

	p.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	assert.False(t, p.Available(), "java is missing")
}
