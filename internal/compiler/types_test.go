// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_JSON(t *testing.T) {
	t.Parallel()
	f := Flags{}
	f.Set(FlagCompilationLevel, "ADVANCED")
	f.Add(FlagChunkWrapper, "a:%s")
	f.Add(FlagChunkWrapper, "b:%s")

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunk_wrapper":["a:%s","b:%s"],"compilation_level":"ADVANCED"}`, string(data))

	var back Flags
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "ADVANCED", back.Get(FlagCompilationLevel))
	assert.Len(t, back[FlagChunkWrapper], 2)

	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &back), "numeric flag values are rejected")
}

func TestFlags_Clone(t *testing.T) {
	t.Parallel()
	f := Flags{"a": {"1"}}
	c := f.Clone()
	c.Add("a", "2")
	assert.Equal(t, []string{"1"}, f["a"], "clone shares no slices")
}

func TestUnit_StringAndParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		unit Unit
		want string
	}{
		{unit: Unit{Name: "required-base", Count: 2}, want: "required-base:2"},
		{unit: Unit{Name: "main", Count: 1, Parents: []string{"required-base"}}, want: "main:1:required-base"},
		{unit: Unit{Name: "lazy", Count: 0, Parents: []string{"a", "b"}}, want: "lazy:0:a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.unit.String())

			parsed, err := ParseUnit(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.unit.Name, parsed.Name)
			assert.Equal(t, tt.unit.Count, parsed.Count)
			assert.ElementsMatch(t, tt.unit.Parents, parsed.Parents)
		})
	}
}

func TestParseUnit_Invalid(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "main", ":1", "main:x", "main:-1"} {
		_, err := ParseUnit(s)
		assert.ErrorIs(t, err, ErrInvalidUnit, "%q", s)
	}
}

func TestWrappersAndWrap(t *testing.T) {
	t.Parallel()
	f := Flags{FlagChunkWrapper: {"main:(function(){%s})();", "broken"}}
	w := f.Wrappers()
	require.Len(t, w, 1)

	assert.Equal(t, "(function(){x()})();", Wrap(w["main"], "x()"))
	assert.Equal(t, "x()", Wrap("no slot", "x()"))
	assert.Equal(t, "[100%s]", Wrap("[%s]", "100%s"), "the body is not expanded")
}
