// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memgraph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

func TestTaintedArgumentValidatorFlagsUnknownValueIntoSink(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "query"}}
	arg := graph.Node{ID: "var:sql", Kind: graph.KindVariable, File: "a.ts", Attrs: map[string]any{"name": "sql", "hasUnknown": true}}
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddNode(ctx, arg))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: call.ID, Dst: arg.ID, Kind: graph.EdgePassesArgument}))

	var issues []plugin.Issue
	pc := &plugin.Context{Graph: g, ReportIssue: func(iss plugin.Issue) { issues = append(issues, iss) }}

	result, err := TaintedArgumentValidator{}.Execute(ctx, pc)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, issues, 1)
	assert.Equal(t, "security", issues[0].Category)
	assert.Equal(t, call.ID, issues[0].Affects)
}

func TestTaintedArgumentValidatorIgnoresKnownValue(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "query"}}
	arg := graph.Node{ID: "var:sql", Kind: graph.KindVariable, File: "a.ts", Attrs: map[string]any{"name": "sql", "hasUnknown": false}}
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddNode(ctx, arg))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: call.ID, Dst: arg.ID, Kind: graph.EdgePassesArgument}))

	var issues []plugin.Issue
	pc := &plugin.Context{Graph: g, ReportIssue: func(iss plugin.Issue) { issues = append(issues, iss) }}

	_, err := TaintedArgumentValidator{}.Execute(ctx, pc)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestTaintedArgumentValidatorIgnoresNonSinkCall(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "log"}}
	arg := graph.Node{ID: "var:sql", Kind: graph.KindVariable, File: "a.ts", Attrs: map[string]any{"name": "sql", "hasUnknown": true}}
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddNode(ctx, arg))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: call.ID, Dst: arg.ID, Kind: graph.EdgePassesArgument}))

	var issues []plugin.Issue
	pc := &plugin.Context{Graph: g, ReportIssue: func(iss plugin.Issue) { issues = append(issues, iss) }}

	_, err := TaintedArgumentValidator{}.Execute(ctx, pc)
	require.NoError(t, err)
	assert.Empty(t, issues)
}
