// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/diag"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memgraph"
	"github.com/kraklabs/grafema/pkg/guarantee"
	"github.com/kraklabs/grafema/pkg/plugin"
)

type stubPlugin struct {
	meta    plugin.Metadata
	result  plugin.Result
	err     error
	calls   *[]string
}

func (s *stubPlugin) Metadata() plugin.Metadata { return s.meta }

func (s *stubPlugin) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.meta.Name)
	}
	return s.result, s.err
}

func TestOrchestratorRunsPluginsInPriorityOrder(t *testing.T) {
	var order []string
	low := &stubPlugin{meta: plugin.Metadata{Name: "low", Phase: plugin.PhaseAnalysis, Priority: 1}, result: plugin.Result{Success: true}, calls: &order}
	high := &stubPlugin{meta: plugin.Metadata{Name: "high", Phase: plugin.PhaseAnalysis, Priority: 100}, result: plugin.Result{Success: true}, calls: &order}

	o := New(memgraph.New(), nil, []plugin.Plugin{low, high}, nil)
	report, err := o.Run(context.Background(), RunOptions{ProjectPath: "."})
	require.NoError(t, err)
	assert.False(t, report.Aborted)
	assert.Equal(t, []string{"high", "low"}, order)
}

func TestOrchestratorAbortsOnFatalPluginError(t *testing.T) {
	failing := &stubPlugin{meta: plugin.Metadata{Name: "boom", Phase: plugin.PhaseDiscovery, Priority: 0}, err: errors.New("disk on fire")}
	never := &stubPlugin{meta: plugin.Metadata{Name: "never", Phase: plugin.PhaseIndexing, Priority: 0}, result: plugin.Result{Success: true}}
	var calls []string
	never.calls = &calls

	o := New(memgraph.New(), nil, []plugin.Plugin{failing, never}, nil)
	report, err := o.Run(context.Background(), RunOptions{ProjectPath: "."})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, plugin.PhaseDiscovery, report.AbortedAt)
	assert.Empty(t, calls, "a later phase must never run after a fatal abort")
}

func TestOrchestratorStrictModePromotesEnrichmentWarningToFatal(t *testing.T) {
	warn := &stubPlugin{meta: plugin.Metadata{Name: "warn", Phase: plugin.PhaseEnrichment, Priority: 0},
		result: plugin.Result{Success: true, Warnings: []string{"unresolved ref"}}}

	o := New(memgraph.New(), nil, []plugin.Plugin{warn}, nil)
	report, err := o.Run(context.Background(), RunOptions{ProjectPath: ".", StrictMode: true})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, plugin.PhaseEnrichment, report.AbortedAt)

	diags := o.Diagnostics.All()
	require.NotEmpty(t, diags)
	msg := diags[len(diags)-1].Message
	assert.Contains(t, msg, "Strict mode")
	assert.Contains(t, msg, "unresolved reference")
}

func TestOrchestratorNonStrictEnrichmentWarningDoesNotAbort(t *testing.T) {
	warn := &stubPlugin{meta: plugin.Metadata{Name: "warn", Phase: plugin.PhaseEnrichment, Priority: 0},
		result: plugin.Result{Success: true, Warnings: []string{"unresolved ref"}}}

	o := New(memgraph.New(), nil, []plugin.Plugin{warn}, nil)
	report, err := o.Run(context.Background(), RunOptions{ProjectPath: "."})
	require.NoError(t, err)
	assert.False(t, report.Aborted)
}

func TestOrchestratorRunsGuaranteeCheckerAfterEnrichment(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "var:x", Kind: graph.KindVariable, File: "a.ts", Attrs: map[string]any{"name": "x"}}))

	o := New(g, nil, nil, nil)
	o.Guarantees = guarantee.New()

	report, err := o.Run(ctx, RunOptions{ProjectPath: "."})
	require.NoError(t, err)
	assert.False(t, report.Aborted, "a warning-severity guarantee violation must not abort the run")
	assert.NotZero(t, o.Diagnostics.CountBySeverity()[diag.SeverityWarning])
}
