// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/remap"
	"github.com/chunklink/chunklink/internal/report"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

type (
	// Pipeline links chunk graphs. A Pipeline may run many builds; each Run
	// starts from a fresh Allocator.
	Pipeline struct {
		// Invoker runs the compiler. Plan does not need it.
		Invoker *compiler.Invoker
		// Flags are the base compiler flags. Unit wrappers are added per build.
		Flags compiler.Flags
		// Renderers defaults to DefaultRenderers.
		Renderers Renderers
		// Templates defaults to DefaultTemplates.
		Templates *RewriteTemplates
		Logger    *log.Logger
	}

	// Plan is everything decided before the compiler runs.
	Plan struct {
		Linearization *Linearization
		Request       *compiler.Request
		// NeedsLoader reports whether the loader runtime was added.
		NeedsLoader bool
	}

	// BuildResult is the outcome of a build step that ran to completion.
	// Assets is empty when Report holds errors.
	BuildResult struct {
		Assets []remap.Asset
		Units  []compiler.Unit
		Report *report.Collector
	}
)

// Plan collects, linearizes and validates g and assembles the compiler
// request. Unsatisfiable graphs and invariant violations are returned as
// errors; duplicate sources are left in Plan.Linearization.Duplicates.
func (p *Pipeline) Plan(g *chunkgraph.Graph) (*Plan, error) {
	ids := NewAllocator()
	renderers := p.Renderers
	if renderers == nil {
		renderers = DefaultRenderers()
	}
	tmpl := DefaultTemplates()
	if p.Templates != nil {
		tmpl = *p.Templates
	}

	needsLoader := NeedsLoaderRuntime(g)
	rootFragments := RootFragments(g.Output, needsLoader)

	inputs := make([]UnitInput, 0, len(g.Chunks))
	for _, c := range g.Chunks {
		in := UnitInput{
			Name:      c.UnitName(),
			Chunk:     c.ID,
			Entry:     c.Entry,
			Fragments: Collect(g, c, ids, renderers, tmpl),
		}
		if c.Entry {
			in.Parents = []string{RootUnitName}
		} else {
			for _, pc := range g.ParentUnitChunks(c) {
				in.Parents = append(in.Parents, pc.UnitName())
			}
			if len(in.Parents) == 0 {
				p.logger().Warn("lazy chunk has no parent chunk group; attaching to root", "chunk", c.ID)
				in.Parents = []string{RootUnitName}
			}
		}
		inputs = append(inputs, in)
	}

	lin, err := Linearize(rootFragments, inputs)
	if err != nil {
		return nil, err
	}
	if err := lin.Validate(RootFragmentCount(needsLoader)); err != nil {
		return nil, err
	}

	flags := p.Flags.Clone()
	flags.Set(compiler.FlagChunkWrapper, lin.Wrappers()...)

	return &Plan{
		Linearization: lin,
		NeedsLoader:   needsLoader,
		Request: &compiler.Request{
			Flags:   flags,
			Sources: lin.CompilerSources(),
			Units:   lin.UnitDefinitions(),
		},
	}, nil
}

// Run executes one build step: plan, a single compiler invocation and the
// output remap. Duplicate sources and compiler failures are reported in the
// result and produce no assets; only fatal problems are returned as errors.
func (p *Pipeline) Run(ctx context.Context, g *chunkgraph.Graph) (*BuildResult, error) {
	if p.Invoker == nil {
		return nil, errors.New("pipeline has no compiler invoker")
	}
	logger := p.logger()
	result := &BuildResult{Report: &report.Collector{}}

	plan, err := p.Plan(g)
	if err != nil {
		return nil, err
	}
	lin := plan.Linearization
	result.Units = lin.Units
	logger.Debug("linearized chunk graph", "units", len(lin.Units), "sources", len(lin.Sources), "loader", plan.NeedsLoader)

	if len(lin.Duplicates) > 0 {
		for _, d := range lin.Duplicates {
			result.Report.AddError(d)
		}
		logger.Debug("duplicate sources, skipping compilation", "count", len(lin.Duplicates))
		return result, nil
	}

	files, err := p.Invoker.Invoke(ctx, plan.Request, result.Report)
	if err != nil {
		if errors.Is(err, compiler.ErrCompilationFailed) {
			return result, nil
		}
		return nil, err
	}

	assets, err := remap.Remap(files, g, remap.Table{
		Root:   RootUnitName,
		Units:  lin.Chunks,
		Prefix: plan.Request.Flags.Get(compiler.FlagChunkOutputPathPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("remap compiler output: %w", err)
	}
	result.Assets = assets
	logger.Debug("build finished", "assets", len(assets))
	return result, nil
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}
