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

func TestMethodCallResolverPlainFunctionCall(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	module := graph.Node{ID: "m", Kind: graph.KindModule, File: "a.ts"}
	caller := graph.Node{ID: "fn:caller", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"name": "caller"}}
	callee := graph.Node{ID: "fn:helper", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"name": "helper"}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "helper", "isMethod": false}}

	for _, n := range []graph.Node{module, caller, callee, call} {
		require.NoError(t, g.AddNode(ctx, n))
	}
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: module.ID, Dst: caller.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: module.ID, Dst: callee.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: caller.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := MethodCallResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeCalls])

	edges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, callee.ID, edges[0].Dst)
}

func TestMethodCallResolverThisReceiver(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	class := graph.Node{ID: "class:Widget", Kind: graph.KindClass, File: "a.ts", Attrs: map[string]any{"name": "Widget"}}
	method := graph.Node{ID: "method:render", Kind: graph.KindMethod, File: "a.ts", Attrs: map[string]any{"name": "render", "receiverClass": "Widget"}}
	target := graph.Node{ID: "method:paint", Kind: graph.KindMethod, File: "a.ts", Attrs: map[string]any{"name": "paint"}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{
		"calleeName": "paint", "isMethod": true, "receiverRef": "this",
	}}

	for _, n := range []graph.Node{class, method, target, call} {
		require.NoError(t, g.AddNode(ctx, n))
	}
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: class.ID, Dst: method.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: class.ID, Dst: target.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: method.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := MethodCallResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeCalls])

	edges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, target.ID, edges[0].Dst)
	assert.Equal(t, "Widget", edges[0].Metadata["receiverClass"])
}

func TestMethodCallResolverUnresolvedReportsWarning(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	caller := graph.Node{ID: "fn:caller", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"name": "caller"}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "ghost", "isMethod": false}}
	require.NoError(t, g.AddNode(ctx, caller))
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: caller.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := MethodCallResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeCalls])
	assert.Len(t, o.Unresolved, 1)
}

func TestMethodCallResolverSkipsImportedName(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	caller := graph.Node{ID: "fn:caller", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"name": "caller"}}
	imp := graph.Node{ID: "import:1", Kind: graph.KindImport, File: "a.ts", Attrs: map[string]any{"localName": "helper", "fromModule": "./b"}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "helper", "isMethod": false}}
	require.NoError(t, g.AddNode(ctx, caller))
	require.NoError(t, g.AddNode(ctx, imp))
	require.NoError(t, g.AddNode(ctx, call))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: caller.ID, Dst: call.ID, Kind: graph.EdgeContains}))

	o, err := MethodCallResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeCalls])
	assert.Empty(t, o.Unresolved)
}
