// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
#Doc: {
	name:   string & !=""
	count?: int & >=0
	tags?: [...string]
}
`

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		data      string
		opts      []Option
		wantName  string
		wantErr   string
		wantCount int
	}{
		{
			name:      "cue input",
			data:      "name: \"main\"\ncount: 2\n",
			wantName:  "main",
			wantCount: 2,
		},
		{
			name:     "json input",
			data:     `{"name": "lazy", "tags": ["a"]}`,
			wantName: "lazy",
		},
		{
			name:    "schema violation names the field",
			data:    `name: "x", count: -1`,
			opts:    []Option{WithFilename("doc.cue")},
			wantErr: "doc.cue: count",
		},
		{
			name:    "syntax error",
			data:    `name: `,
			opts:    []Option{WithFilename("broken.cue")},
			wantErr: "broken.cue",
		},
		{
			name:    "size limit",
			data:    `name: "too long"`,
			opts:    []Option{WithMaxFileSize(4)},
			wantErr: "exceeds maximum 4 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(tt.data), "#Doc", tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, res.Value.Name)
			assert.Equal(t, tt.wantCount, res.Value.Count)
		})
	}
}

func TestUnify_NonConcrete(t *testing.T) {
	t.Parallel()

	schema := `#Cfg: { level?: "a" | "b" }`
	_, err := Unify([]byte(schema), []byte(`{}`), "#Cfg", WithConcrete(false))
	require.NoError(t, err)

	_, err = Unify([]byte(schema), []byte(`level: "c"`), "#Cfg", WithConcrete(false))
	assert.Error(t, err, "value outside the disjunction")
}

func TestUnify_MissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := Unify([]byte(testSchema), []byte(`name: "x"`), "#Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
}
