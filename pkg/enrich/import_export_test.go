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

func TestImportExportLinkerLinksNamedImportAndCall(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	moduleB := graph.Node{ID: "m:b.ts", Kind: graph.KindModule, File: "b.ts"}
	moduleA := graph.Node{ID: "m:a.ts", Kind: graph.KindModule, File: "a.ts"}
	helper := graph.Node{ID: "fn:helper", Kind: graph.KindFunction, File: "b.ts", Attrs: map[string]any{"name": "helper"}}
	export := graph.Node{ID: "export:helper", Kind: graph.KindExport, File: "b.ts", Attrs: map[string]any{"name": "helper", "isDefault": false}}
	imp := graph.Node{ID: "import:1", Kind: graph.KindImport, File: "a.ts", Attrs: map[string]any{
		"localName": "helper", "importedAs": "helper", "fromModule": "./b",
	}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{"calleeName": "helper", "isMethod": false}}

	for _, n := range []graph.Node{moduleB, moduleA, helper, export, imp, call} {
		require.NoError(t, g.AddNode(ctx, n))
	}

	o, err := ImportExportLinker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeDependsOn])
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeCalls])

	depEdges, err := g.GetOutgoingEdges(ctx, imp.ID, graph.EdgeDependsOn)
	require.NoError(t, err)
	require.Len(t, depEdges, 1)
	assert.Equal(t, export.ID, depEdges[0].Dst)

	callEdges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, callEdges, 1)
	assert.Equal(t, helper.ID, callEdges[0].Dst)
}

func TestImportExportLinkerNamespaceImportAndMemberCall(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	moduleB := graph.Node{ID: "m:b.ts", Kind: graph.KindModule, File: "b.ts"}
	helper := graph.Node{ID: "fn:helper", Kind: graph.KindFunction, File: "b.ts", Attrs: map[string]any{"name": "helper"}}
	imp := graph.Node{ID: "import:1", Kind: graph.KindImport, File: "a.ts", Attrs: map[string]any{
		"localName": "ns", "importedAs": "*", "fromModule": "./b",
	}}
	call := graph.Node{ID: "call:1", Kind: graph.KindCall, File: "a.ts", Attrs: map[string]any{
		"calleeName": "helper", "isMethod": true, "receiverRef": "ns",
	}}

	for _, n := range []graph.Node{moduleB, helper, imp, call} {
		require.NoError(t, g.AddNode(ctx, n))
	}

	o, err := ImportExportLinker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeDependsOn])
	assert.Equal(t, 1, o.EdgesAdded[graph.EdgeCalls])

	depEdges, err := g.GetOutgoingEdges(ctx, imp.ID, graph.EdgeDependsOn)
	require.NoError(t, err)
	require.Len(t, depEdges, 1)
	assert.Equal(t, moduleB.ID, depEdges[0].Dst)

	callEdges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, callEdges, 1)
	assert.Equal(t, helper.ID, callEdges[0].Dst)
}

func TestImportExportLinkerUnresolvableModuleReportsWarning(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	imp := graph.Node{ID: "import:1", Kind: graph.KindImport, File: "a.ts", Attrs: map[string]any{
		"localName": "helper", "importedAs": "helper", "fromModule": "./missing",
	}}
	require.NoError(t, g.AddNode(ctx, imp))

	o, err := ImportExportLinker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeDependsOn])
	assert.Len(t, o.Unresolved, 1)
}

func TestImportExportLinkerExternalPackageNotReported(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New()

	imp := graph.Node{ID: "import:1", Kind: graph.KindImport, File: "a.ts", Attrs: map[string]any{
		"localName": "lodash", "importedAs": "*", "fromModule": "lodash",
	}}
	require.NoError(t, g.AddNode(ctx, imp))

	o, err := ImportExportLinker{}.Resolve(ctx, g)
	require.NoError(t, err)
	assert.Zero(t, o.EdgesAdded[graph.EdgeDependsOn])
	assert.Empty(t, o.Unresolved)
}
