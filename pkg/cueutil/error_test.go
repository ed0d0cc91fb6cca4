// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, FormatError(nil, "chunks.json"))
}

func TestFormatError_PlainErrorKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("unexpected end of input")
	err := FormatError(cause, "chunks.json")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "chunks.json: unexpected end of input", err.Error())
}

func TestFormatError_CUEConflict(t *testing.T) {
	t.Parallel()

	v := cuecontext.New().CompileString(`output: dir: string
output: dir: 42`)
	err := FormatError(v.Validate(), "chunklink.cue")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunklink.cue: ")
	assert.Contains(t, err.Error(), "output.dir")
	assert.Contains(t, err.Error(), "conflicting values")
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   []string
		want string
	}{
		"root":                  {nil, ""},
		"top-level field":       {[]string{"groups"}, "groups"},
		"nested field":          {[]string{"compiler", "native", "command"}, "compiler.native.command"},
		"chunk file":            {[]string{"chunks", "3", "files"}, "chunks[3].files"},
		"module in chunk":       {[]string{"chunks", "0", "modules", "12", "kind"}, "chunks[0].modules[12].kind"},
		"numeric first element": {[]string{"7", "id"}, "7.id"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatPath(tt.in))
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckFileSize(nil, 64, "chunks.json"))
	assert.NoError(t, CheckFileSize(make([]byte, 64), 64, "chunks.json"))

	err := CheckFileSize(make([]byte, 65), 64, "chunks.json")
	require.Error(t, err)
	assert.Equal(t, "chunks.json: file size 65 bytes exceeds maximum 64 bytes", err.Error())
}
