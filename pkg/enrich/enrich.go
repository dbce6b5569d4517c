// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package enrich holds the cross-file enrichment passes that run after the
// per-file builder: MethodCallResolver, ArgumentParameterLinker,
// AliasTracker, ValueDomainAnalyzer, ImportExportLinker, and
// InstanceOfResolver. Every enricher reads the graph through the same
// capability the builder writes with, and none of them delete nodes or
// edges. All but ValueDomainAnalyzer only add edges; ValueDomainAnalyzer
// writes computed attributes back onto existing VARIABLE/CONSTANT nodes.
// Each is a two-phase pass in the shape
// of pkg/ingestion's CallResolver: build an in-memory index over the
// current graph contents, then resolve candidates against that index.
// Enrichers are idempotent (re-running one against an already-resolved
// graph adds no new edges, since the backend dedups by Edge.Key) and
// tolerant of missing nodes: an unresolved reference becomes an entry in
// Outcome.Unresolved instead of an error.
package enrich

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// Outcome is what one enrichment pass produces: how many edges of which
// kind it added, how many existing nodes it re-annotated (ValueDomainAnalyzer
// writes computed attributes back onto VARIABLE/CONSTANT nodes rather than
// adding edges), and the unresolved references it gave up on.
type Outcome struct {
	EdgesAdded   map[graph.EdgeKind]int
	NodesUpdated map[graph.NodeKind]int
	Unresolved   []string
}

func newOutcome() *Outcome {
	return &Outcome{EdgesAdded: make(map[graph.EdgeKind]int), NodesUpdated: make(map[graph.NodeKind]int)}
}

func (o *Outcome) addEdge(kind graph.EdgeKind) {
	o.EdgesAdded[kind]++
}

func (o *Outcome) updatedNode(kind graph.NodeKind) {
	o.NodesUpdated[kind]++
}

func (o *Outcome) unresolved(format string, args ...any) {
	o.Unresolved = append(o.Unresolved, fmt.Sprintf(format, args...))
}

// asResult adapts an Outcome into the plugin.Result shape the orchestrator
// expects from every phase participant.
func asResult(o *Outcome) plugin.Result {
	return plugin.Result{
		Success:  true,
		Created:  plugin.CreatedCounts{Nodes: o.NodesUpdated, Edges: o.EdgesAdded},
		Warnings: o.Unresolved,
	}
}

// collectNodes drains it into a slice, closing it when done.
func collectNodes(ctx context.Context, it graph.NodeIterator) ([]graph.Node, error) {
	defer it.Close()
	var out []graph.Node
	for {
		n, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, *n)
	}
}

// queryNodes runs a QueryNodes call and collects every result.
func queryNodes(ctx context.Context, g graph.Graph, filter graph.NodeFilter) ([]graph.Node, error) {
	it, err := g.QueryNodes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("enrich: query %s nodes: %w", filter.Kind, err)
	}
	return collectNodes(ctx, it)
}

// enclosingContainer returns the node that directly CONTAINS id: the
// nearest function, method, class, or module that owns it. The builder
// never registers a loop/branch/try body as its own owner scope, so a
// call, variable, or mutation nested inside control flow is still a single
// CONTAINS hop away from the function or method that declares it.
func enclosingContainer(ctx context.Context, g graph.Graph, id graph.NodeID) (*graph.Node, bool, error) {
	edges, err := g.GetIncomingEdges(ctx, id, graph.EdgeContains)
	if err != nil {
		return nil, false, fmt.Errorf("enrich: incoming contains for %s: %w", id, err)
	}
	if len(edges) == 0 {
		return nil, false, nil
	}
	n, ok, err := g.GetNode(ctx, edges[0].Src)
	if err != nil || !ok {
		return nil, false, err
	}
	return n, true, nil
}

// addEdgeOnce adds e and reports whether it was a new edge by kind, used
// so an enricher's reported counts mean "edges this run contributed"
// rather than "edges that now exist", even though the backend itself
// dedups by Edge.Key regardless of caller bookkeeping.
func addEdgeOnce(ctx context.Context, g graph.Graph, e graph.Edge, o *Outcome) error {
	existing, err := g.GetOutgoingEdges(ctx, e.Src, e.Kind)
	if err != nil {
		return fmt.Errorf("enrich: outgoing %s edges of %s: %w", e.Kind, e.Src, err)
	}
	for _, x := range existing {
		if x.Dst == e.Dst {
			return nil
		}
	}
	if err := g.AddEdge(ctx, e); err != nil {
		return fmt.Errorf("enrich: add %s edge %s -> %s: %w", e.Kind, e.Src, e.Dst, err)
	}
	o.addEdge(e.Kind)
	return nil
}

// parallelThreshold is the candidate-count cutoff above which a resolver
// fans its resolve step out across a worker pool, matching the teacher
// CallResolver's sequential/parallel split.
const parallelThreshold = 1000
