// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"

	"github.com/kraklabs/grafema/pkg/enrich"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/guarantee"
	"github.com/kraklabs/grafema/pkg/orchestrator"
	"github.com/kraklabs/grafema/pkg/plugin"
	"github.com/kraklabs/grafema/pkg/validate"
)

// buildPlugins assembles the full phase-ordered plugin set: one
// SourceAnalysisPlugin for ANALYSIS, every enricher for ENRICHMENT, and
// both validators for VALIDATION. GUARANTEE is handled separately by
// Orchestrator.Guarantees rather than as a plugin.
func buildPlugins(excludeGlobs []string, maxFileSize int64) []plugin.Plugin {
	return []plugin.Plugin{
		&orchestrator.SourceAnalysisPlugin{ExcludeGlobs: excludeGlobs, MaxFileSize: maxFileSize},
		enrich.MethodCallResolver{},
		enrich.ArgumentParameterLinker{},
		enrich.AliasTracker{},
		enrich.ValueDomainAnalyzer{},
		enrich.ImportExportLinker{},
		enrich.InstanceOfResolver{},
		validate.AwaitInLoopValidator{},
		validate.TaintedArgumentValidator{SinkNames: validate.DefaultSinkNames},
	}
}

// newOrchestrator wires a fresh in-memory graph, the standard plugin set,
// and the guarantee checker into a ready-to-run Orchestrator.
func newOrchestrator(manifest plugin.ManifestWriter, excludeGlobs []string, maxFileSize int64, logger *slog.Logger) (graph.Graph, *orchestrator.Orchestrator) {
	g := newGraphBackend()
	o := orchestrator.New(g, manifest, buildPlugins(excludeGlobs, maxFileSize), logger)
	o.Guarantees = guarantee.New()
	return g, o
}
