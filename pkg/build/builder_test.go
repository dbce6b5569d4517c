// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/extract"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memgraph"
)

func mustExtractAndBuild(t *testing.T, source string) (*memgraph.Graph, *extract.Collections) {
	t.Helper()
	c, err := extract.ExtractModuleCollections(context.Background(), extract.LangTypeScript, "a.ts", "MODULE:a.ts", []byte(source))
	require.NoError(t, err)
	g := memgraph.New()
	require.NoError(t, New(g).Build(context.Background(), c))
	return g, c
}

func TestBuildFunctionCreatesNodeAndContainsEdge(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
function greet(name) {
  return name;
}
`)
	require.Len(t, c.Functions, 1)
	fn := c.Functions[0]

	node, ok, err := g.GetNode(context.Background(), graph.NodeID(fn.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, graph.KindFunction, node.Kind)
	assert.Equal(t, "greet", node.AttrString("name"))

	edges, err := g.GetIncomingEdges(context.Background(), graph.NodeID(fn.ID), graph.EdgeContains)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, graph.NodeID(c.ModuleID), edges[0].Src)
}

func TestBuildParameterContainedByFunction(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
function greet(name) {
  return name;
}
`)
	fn := c.Functions[0]
	param := fn.Params[0]

	edges, err := g.GetOutgoingEdges(context.Background(), graph.NodeID(fn.ID), graph.EdgeContains)
	require.NoError(t, err)
	var sawParam bool
	for _, e := range edges {
		if e.Dst == graph.NodeID(param.ID) {
			sawParam = true
		}
	}
	assert.True(t, sawParam, "expected function to CONTAINS its parameter")
}

func TestBuildCallArgumentLiteralPointsAtRealLiteralNode(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
function run() {
  process(1);
}
`)
	var call *extract.CallFact
	for i := range c.Calls {
		if c.Calls[i].CalleeName == "process" {
			call = &c.Calls[i]
		}
	}
	require.NotNil(t, call)
	require.Len(t, call.Args, 1)
	argTarget := call.Args[0].TargetID
	require.NotEmpty(t, argTarget)

	litNode, ok, err := g.GetNode(context.Background(), graph.NodeID(argTarget))
	require.NoError(t, err)
	require.True(t, ok, "call argument must resolve to an actual LITERAL node, not an orphaned id")
	assert.Equal(t, graph.KindLiteral, litNode.Kind)

	edges, err := g.GetOutgoingEdges(context.Background(), graph.NodeID(call.ID), graph.EdgePassesArgument)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, graph.NodeID(argTarget), edges[0].Dst)

	require.Len(t, c.Literals, 1)
	assert.Equal(t, graph.NodeID(c.Literals[0].ID), edges[0].Dst)
}

func TestBuildSwitchCaseAttachesToResolvedBranch(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
function handle(event) {
  switch (event) {
    case "a":
      return 1;
    default:
      return 0;
  }
}
`)
	require.Len(t, c.Branches, 1)
	branch := c.Branches[0]

	edges, err := g.GetOutgoingEdges(context.Background(), graph.NodeID(branch.ID), graph.EdgeHasCase, graph.EdgeHasDefault)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestBuildPromiseExecutorAttrsOnConstructorNode(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
function wait() {
  return new Promise((resolve, reject) => {
    resolve(1);
  });
}
`)
	require.Len(t, c.NewExpressions, 1)
	ne := c.NewExpressions[0]

	node, ok, err := g.GetNode(context.Background(), graph.NodeID(ne.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "resolve", node.AttrString("resolveParam"))
	assert.Equal(t, "reject", node.AttrString("rejectParam"))
}

func TestBuildClassInstantiationRecordsInstanceOfEdge(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
class Widget {
  build() {
    return new Gadget();
  }
}
`)
	var method *extract.FunctionFact
	for i := range c.Functions {
		if c.Functions[i].IsMethod {
			method = &c.Functions[i]
		}
	}
	require.NotNil(t, method)

	edges, err := g.GetOutgoingEdges(context.Background(), graph.NodeID(method.ID), graph.EdgeInstanceOf)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, graph.NodeID("Gadget"), edges[0].Dst)
	assert.Equal(t, true, edges[0].Metadata["unresolved"])
}

func TestBuildIsIdempotentAfterClear(t *testing.T) {
	g, c := mustExtractAndBuild(t, `
function greet(name) {
  return name;
}
`)
	counts, err := g.CountNodesByType(context.Background())
	require.NoError(t, err)
	firstTotal := 0
	for _, n := range counts {
		firstTotal += n
	}

	_, err = g.RemoveNodesByFile(context.Background(), "", c.File)
	require.NoError(t, err)
	require.NoError(t, New(g).Build(context.Background(), c))

	counts, err = g.CountNodesByType(context.Background())
	require.NoError(t, err)
	secondTotal := 0
	for _, n := range counts {
		secondTotal += n
	}
	assert.Equal(t, firstTotal, secondTotal)
}

func TestBuildModuleNodeCarriesContentHash(t *testing.T) {
	g, c := mustExtractAndBuild(t, `function greet(name) { return name; }`)
	require.NotEmpty(t, c.ContentHash)

	node, ok, err := g.GetNode(context.Background(), graph.NodeID(c.ModuleID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.ContentHash, node.AttrString("contentHash"))
}
