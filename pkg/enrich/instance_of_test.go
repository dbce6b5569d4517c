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

func TestInstanceOfResolverResolvesExtends(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	base := graph.Node{ID: "class:Base", Kind: graph.KindClass, File: "a.ts", Attrs: map[string]any{"name": "Base"}}
	derived := graph.Node{ID: "class:Derived", Kind: graph.KindClass, File: "a.ts", Attrs: map[string]any{"name": "Derived", "extends": "Base"}}
	require.NoError(t, g.AddNode(ctx, base))
	require.NoError(t, g.AddNode(ctx, derived))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{
		Src: derived.ID, Dst: "Base", Kind: graph.EdgeExtends, Metadata: map[string]any{"unresolved": true},
	}))

	o, err := InstanceOfResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeExtends])

	edges, err := g.GetOutgoingEdges(ctx, derived.ID, graph.EdgeExtends)
	require.NoError(t, err)
	require.Len(t, edges, 2) // placeholder + resolved
	var sawResolved bool
	for _, e := range edges {
		if e.Dst == base.ID && e.Metadata["resolved"] == true {
			sawResolved = true
		}
	}
	assert.True(t, sawResolved)
}

func TestInstanceOfResolverUnresolvedClassReportsWarning(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	derived := graph.Node{ID: "class:Derived", Kind: graph.KindClass, File: "a.ts", Attrs: map[string]any{"name": "Derived"}}
	require.NoError(t, g.AddNode(ctx, derived))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{
		Src: derived.ID, Dst: "Ghost", Kind: graph.EdgeExtends, Metadata: map[string]any{"unresolved": true},
	}))

	o, err := InstanceOfResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeExtends])
	assert.Len(t, o.Unresolved, 1)
}

func TestInstanceOfResolverResolvesIteratesOverParameter(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	fn := graph.Node{ID: "fn:run", Kind: graph.KindFunction, File: "a.ts", Attrs: map[string]any{"name": "run"}}
	param := graph.Node{ID: "param:items", Kind: graph.KindParameter, File: "a.ts", Attrs: map[string]any{"name": "items"}}
	loop := graph.Node{ID: "loop:1", Kind: graph.KindLoop, File: "a.ts"}

	require.NoError(t, g.AddNode(ctx, fn))
	require.NoError(t, g.AddNode(ctx, param))
	require.NoError(t, g.AddNode(ctx, loop))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: fn.ID, Dst: param.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Src: fn.ID, Dst: loop.ID, Kind: graph.EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{
		Src: loop.ID, Dst: "items", Kind: graph.EdgeIteratesOver, Metadata: map[string]any{"unresolved": true},
	}))

	o, err := InstanceOfResolver{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeIteratesOver])

	edges, err := g.GetOutgoingEdges(ctx, loop.ID, graph.EdgeIteratesOver)
	require.NoError(t, err)
	var sawResolved bool
	for _, e := range edges {
		if e.Dst == param.ID && e.Metadata["resolved"] == true {
			sawResolved = true
		}
	}
	assert.True(t, sawResolved)
}
