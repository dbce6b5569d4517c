// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package memgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/graph"
)

func TestAddNodeAndGetNode(t *testing.T) {
	ctx := context.Background()
	g := New()

	n := graph.Node{ID: "func:abc", Kind: graph.KindFunction, File: "a.go", Attrs: map[string]any{"name": "Foo"}}
	require.NoError(t, g.AddNode(ctx, n))

	got, ok, err := g.GetNode(ctx, "func:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Foo", got.AttrString("name"))
}

func TestGetNodeMissing(t *testing.T) {
	ctx := context.Background()
	g := New()
	got, ok, err := g.GetNode(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestAddEdgeDeduplicates(t *testing.T) {
	ctx := context.Background()
	g := New()

	e := graph.Edge{Src: "a", Dst: "b", Kind: graph.EdgeCalls}
	require.NoError(t, g.AddEdge(ctx, e))
	require.NoError(t, g.AddEdge(ctx, e))

	out, err := g.GetOutgoingEdges(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestGetOutgoingIncomingEdgesFilteredByKind(t *testing.T) {
	ctx := context.Background()
	g := New()

	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: "a", Dst: "b", Kind: graph.EdgeCalls}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: "a", Dst: "c", Kind: graph.EdgeContains}))

	out, err := g.GetOutgoingEdges(ctx, "a", graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, graph.NodeID("b"), out[0].Dst)

	in, err := g.GetIncomingEdges(ctx, "c")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, graph.NodeID("a"), in[0].Src)
}

func TestQueryNodesFiltersByKindAndFileAndAttrs(t *testing.T) {
	ctx := context.Background()
	g := New()

	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "1", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"async": true}}))
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "2", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"async": false}}))
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "3", Kind: graph.KindClass, File: "a.ts"}))

	it, err := g.QueryNodes(ctx, graph.NodeFilter{Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"async": true}})
	require.NoError(t, err)
	defer it.Close()

	var ids []graph.NodeID
	for {
		n, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []graph.NodeID{"1"}, ids)
}

func TestCountNodesAndEdgesByType(t *testing.T) {
	ctx := context.Background()
	g := New()

	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "1", Kind: graph.KindFunction}))
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "2", Kind: graph.KindFunction}))
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "3", Kind: graph.KindClass}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: "1", Dst: "2", Kind: graph.EdgeCalls}))

	nodeCounts, err := g.CountNodesByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nodeCounts[graph.KindFunction])
	assert.Equal(t, 1, nodeCounts[graph.KindClass])

	edgeCounts, err := g.CountEdgesByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edgeCounts[graph.EdgeCalls])
}

func TestClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	g := New()
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "1", Kind: graph.KindFunction}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: "1", Dst: "1", Kind: graph.EdgeCalls}))

	require.NoError(t, g.Clear(ctx))

	nodeCounts, err := g.CountNodesByType(ctx)
	require.NoError(t, err)
	assert.Empty(t, nodeCounts)
	_, ok, err := g.GetNode(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveNodesByFileRelativeAndAbsolute(t *testing.T) {
	ctx := context.Background()
	g := New()

	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "1", Kind: graph.KindFunction, File: "src/a.ts"}))
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "2", Kind: graph.KindFunction, File: "src/b.ts"}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: "1", Dst: "2", Kind: graph.EdgeCalls}))

	cleared, err := g.RemoveNodesByFile(ctx, "/repo", "/repo/src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, ok, err := g.GetNode(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := g.GetOutgoingEdges(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, out)

	in, err := g.GetIncomingEdges(ctx, "2")
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestRemoveNodesByFileNoMatchReturnsZero(t *testing.T) {
	ctx := context.Background()
	g := New()
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "1", Kind: graph.KindFunction, File: "src/a.ts"}))

	cleared, err := g.RemoveNodesByFile(ctx, "/repo", "src/other.ts")
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func TestNodesSortedByID(t *testing.T) {
	ctx := context.Background()
	g := New()
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "b", Kind: graph.KindFunction}))
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: "a", Kind: graph.KindFunction}))

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, graph.NodeID("a"), nodes[0].ID)
	assert.Equal(t, graph.NodeID("b"), nodes[1].ID)
}
