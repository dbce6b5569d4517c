// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package incremental

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/enrich"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/orchestrator"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// ReanalyzeOutcome summarizes one Reanalyze call.
type ReanalyzeOutcome struct {
	NodesCleared  int
	Rebuilt       []string // files re-extracted and rebuilt (deleted modules are cleared, not rebuilt)
	EdgesAdded    map[graph.EdgeKind]int
}

// Reanalyzer rebuilds just the stale modules a FreshnessChecker found,
// instead of the whole project: Clear every stale module's nodes and
// edges, re-extract and rebuild the ones that still exist on disk, then
// re-run a restricted enrichment set over the whole graph. Full
// enrichment is unnecessary because cross-file edges owned by unchanged
// modules stay valid — their targets kept the same semantic ids.
type Reanalyzer struct {
	ProjectPath string
	Source      *orchestrator.SourceAnalysisPlugin // reused for the Analysis step; nil uses a zero-value plugin
	Manifest    plugin.ManifestWriter
}

// Reanalyze runs Clear -> Analysis -> restricted Enrichment over stale.
// Deleted modules are cleared only; their File no longer exists to
// re-extract from.
func (r *Reanalyzer) Reanalyze(ctx context.Context, g graph.Graph, stale []StaleModule) (*ReanalyzeOutcome, error) {
	out := &ReanalyzeOutcome{EdgesAdded: make(map[graph.EdgeKind]int)}

	var toRebuild []string
	for _, sm := range stale {
		cleared, err := g.RemoveNodesByFile(ctx, r.ProjectPath, sm.File)
		if err != nil {
			return nil, fmt.Errorf("incremental: clear %s: %w", sm.File, err)
		}
		out.NodesCleared += cleared
		if sm.Reason != ReasonDeleted {
			toRebuild = append(toRebuild, sm.File)
		}
	}

	if len(toRebuild) > 0 {
		sourcePlugin := r.Source
		if sourcePlugin == nil {
			sourcePlugin = &orchestrator.SourceAnalysisPlugin{}
		}
		pc := &plugin.Context{
			Graph: g, Manifest: r.Manifest, ProjectPath: r.ProjectPath,
			Config: map[string]any{}, ChangedFiles: toRebuild, ForceAnalysis: true,
		}
		result, err := sourcePlugin.Execute(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("incremental: rebuild: %w", err)
		}
		if len(result.Warnings) > 0 {
			return nil, fmt.Errorf("incremental: rebuild reported warnings: %v", result.Warnings)
		}
		out.Rebuilt = toRebuild
	}

	for _, step := range []func(context.Context, graph.Graph) (*enrich.Outcome, error){
		enrich.ImportExportLinker{}.Resolve,
		enrich.InstanceOfResolver{}.Resolve,
	} {
		o, err := step(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("incremental: restricted enrichment: %w", err)
		}
		for kind, n := range o.EdgesAdded {
			out.EdgesAdded[kind] += n
		}
	}

	return out, nil
}
