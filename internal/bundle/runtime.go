// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

// RootUnitName names the synthetic root unit every entry unit depends on.
const RootUnitName = "required-base"

// Fragment paths of the root unit.
const (
	ExternsPath = "__chunklink_externs.js"
	RuntimePath = "__chunklink_runtime.js"
	LoaderPath  = "__chunklink_loader.js"
)

// baseFragmentCount is the number of root fragments present in every build.
const baseFragmentCount = 2

var (
	//go:embed js/externs.js
	externsJS string
	//go:embed js/basic.js
	basicJS string
	//go:embed js/loader.js
	loaderJS string
)

// Wrapper templates, one %s slot each.
const (
	entryWrapper = "(function(__chunklink){%s}).call(this, (self.__chunklink = self.__chunklink || {}));"
	lazyWrapper  = "__chunklink.d(%d, function(__chunklink){%%s});"
)

// NeedsLoaderRuntime reports whether the loader runtime must be shipped:
// exactly when some chunk is loaded lazily.
func NeedsLoaderRuntime(g *chunkgraph.Graph) bool {
	return g.HasNonEntryChunks()
}

// RootFragmentCount is the number of fragments of the root unit.
func RootFragmentCount(needsLoader bool) int {
	if needsLoader {
		return baseFragmentCount + 1
	}
	return baseFragmentCount
}

// RootFragments returns the root unit's fragments: externs, the basic
// runtime configured with the output's public path and compilation hash, and
// the loader runtime when needsLoader is set.
func RootFragments(out chunkgraph.Output, needsLoader bool) []Fragment {
	basic := strings.NewReplacer(
		`"__CHUNKLINK_PUBLIC_PATH__"`, jsString(out.PublicPath),
		`"__CHUNKLINK_HASH__"`, jsString(out.Hash),
	).Replace(basicJS)

	fragments := make([]Fragment, 0, RootFragmentCount(needsLoader))
	fragments = append(fragments,
		Fragment{Path: ExternsPath, Text: externsJS},
		Fragment{Path: RuntimePath, Text: basic},
	)
	if needsLoader {
		fragments = append(fragments, Fragment{Path: LoaderPath, Text: loaderJS})
	}
	return fragments
}

// WrapperFor returns the chunk_wrapper flag value for a unit: entry units and
// the root run immediately, lazy units register with the loader under their
// chunk id.
func WrapperFor(u compiler.Unit, id chunkgraph.ChunkID, entry bool) string {
	if u.Name == RootUnitName || entry {
		return u.Name + ":" + entryWrapper
	}
	return u.Name + ":" + fmt.Sprintf(lazyWrapper, id)
}
