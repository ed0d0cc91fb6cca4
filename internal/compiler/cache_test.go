// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingBackend(t *testing.T) {
	t.Parallel()
	inner := &fakeBackend{name: "embedded", available: true, result: &Result{Files: []OutputFile{{Path: "main.js"}}}}
	c, err := NewCachingBackend(inner, 2)
	require.NoError(t, err)
	assert.Equal(t, "embedded", c.Name())
	assert.True(t, c.Available())

	req := func(src string) *Request {
		return &Request{Flags: Flags{"b": {"1"}, "a": {"2"}}, Sources: []Source{{Path: "a.js", Src: src}}}
	}

	ctx := context.Background()
	_, err = c.Compile(ctx, req("x"))
	require.NoError(t, err)
	res, err := c.Compile(ctx, req("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "identical request is served from cache")
	assert.Equal(t, "main.js", res.Files[0].Path)

	_, err = c.Compile(ctx, req("y"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, c.Len())
}

func TestCachingBackend_SkipsFailures(t *testing.T) {
	t.Parallel()
	inner := &fakeBackend{name: "native", available: true, result: &Result{
		Diagnostics: []Diagnostic{{Level: LevelError, Description: "bad"}},
	}}
	c, err := NewCachingBackend(inner, 0)
	require.NoError(t, err)

	req := &Request{Sources: []Source{{Path: "a.js"}}}
	for range 2 {
		_, err := c.Compile(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.Len())
}
