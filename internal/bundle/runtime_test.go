// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

func TestRootFragments(t *testing.T) {
	t.Parallel()
	out := chunkgraph.Output{PublicPath: "/cdn/", Hash: "h4sh"}

	for _, needs := range []bool{false, true} {
		fragments := RootFragments(out, needs)
		require.Len(t, fragments, RootFragmentCount(needs), "needs=%v", needs)
		assert.Equal(t, ExternsPath, fragments[0].Path)
		assert.Equal(t, RuntimePath, fragments[1].Path)
		assert.Contains(t, fragments[1].Text, `__chunklink.p || "/cdn/"`)
		assert.Contains(t, fragments[1].Text, `__chunklink.h = "h4sh"`)
	}

	loader := RootFragments(out, true)[2]
	assert.Equal(t, LoaderPath, loader.Path)
	assert.Contains(t, loader.Text, "__chunklink.l = function")

	assert.Equal(t, 2, RootFragmentCount(false))
	assert.Equal(t, 3, RootFragmentCount(true))
}

func TestNeedsLoaderRuntime(t *testing.T) {
	t.Parallel()
	entryOnly := parseGraph(t, `{"chunks": [{"id": 0, "entry": true, "files": ["main.js"]}]}`)
	assert.False(t, NeedsLoaderRuntime(entryOnly), "entry-only graph")
	assert.True(t, NeedsLoaderRuntime(parseGraph(t, lazyGraph)), "graph with a lazy chunk")
}

func TestWrapperFor(t *testing.T) {
	t.Parallel()
	root := WrapperFor(compiler.Unit{Name: RootUnitName, Count: 2}, 0, false)
	assert.True(t, strings.HasPrefix(root, RootUnitName+":(function(__chunklink){%s})"), root)

	entry := WrapperFor(compiler.Unit{Name: "main"}, 0, true)
	assert.True(t, strings.HasPrefix(entry, "main:(function(__chunklink){%s})"), entry)

	lazy := WrapperFor(compiler.Unit{Name: "lazy", Parents: []string{"main"}}, 7, false)
	assert.Equal(t, "lazy:__chunklink.d(7, function(__chunklink){%s});", lazy)

	assert.Equal(t, 1, strings.Count(lazy, "%s"))
	assert.Equal(t, 1, strings.Count(entry, "%s"))
}
