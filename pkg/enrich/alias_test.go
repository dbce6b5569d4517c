// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memgraph"
)

func TestAliasTrackerResolvesMemberExpressionAlias(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	class := graph.Node{ID: "class:Service", Kind: graph.KindClass, File: "a.ts", Attrs: map[string]any{"name": "Service"}}
	method := graph.Node{ID: "method:handle", Kind: graph.KindMethod, File: "a.ts", Attrs: map[string]any{"name": "handle", "receiverClass": "Service"}}
	target := graph.Node{ID: "method:run", Kind: graph.KindMethod, File: "a.ts", Attrs: map[string]any{"name": "run"}}
	svcParam := graph.Node{ID: "param:svc", Kind: graph.KindParameter, File: "a.ts", Attrs: map[string]any{"name": "svc", "type": "Service"}}
	alias := graph.Node{ID: "var:alias", Kind: graph.KindVariable, File: "a.ts", Attrs: map[string]any{
		"name": "alias", "assignmentKind": "MEMBER_EXPRESSION", "assignmentSourceName": "svc.run",
	}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "alias", "isMethod": false}}

	for _, n := range []graph.Node{class, method, target, svcParam, alias, call} {
		require.NoError(t, g.AddNode(ctx, n))
	}
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: class.ID, Dst: method.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: class.ID, Dst: target.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: svcParam.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: alias.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := AliasTracker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeCalls])

	edges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, target.ID, edges[0].Dst)
	assert.Equal(t, "alias", edges[0].Metadata["viaAlias"])
}

func TestAliasTrackerSkipsNonAliasAssignment(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	method := graph.Node{ID: "method:handle", Kind: graph.KindMethod, File: "a.ts", Attrs: map[string]any{"name": "handle"}}
	plain := graph.Node{ID: "var:plain", Kind: graph.KindVariable, File: "a.ts", Attrs: map[string]any{
		"name": "plain", "assignmentKind": "LITERAL",
	}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "plain", "isMethod": false}}

	require.NoError(t, g.AddNode(ctx, method))
	require.NoError(t, g.AddNode(ctx, plain))
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: plain.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := AliasTracker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeCalls])
	assert.Empty(t, o.Unresolved)
}

func TestAliasTrackerSkipsMethodCalls(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	method := graph.Node{ID: "method:handle", Kind: graph.KindMethod, File: "a.ts", Attrs: map[string]any{"name": "handle"}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "run", "isMethod": true, "receiverRef": "obj"}}
	require.NoError(t, g.AddNode(ctx, method))
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := AliasTracker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeCalls])
}
