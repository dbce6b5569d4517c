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

// Package memgraph is an in-memory reference implementation of the
// graph.Graph capability. It exists so the analysis core can be exercised
// and tested without a real storage backend, which is treated purely as a
// collaborator. It is not meant for production use: no persistence, no
// indexing beyond simple maps.
package memgraph

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/grafema/pkg/graph"
)

// Graph is a concurrency-safe, in-memory graph.Graph.
type Graph struct {
	mu    sync.RWMutex
	nodes map[graph.NodeID]graph.Node
	// order preserves insertion order for deterministic QueryNodes scans.
	order []graph.NodeID

	// edgesBySrc / edgesByDst let GetOutgoingEdges / GetIncomingEdges avoid
	// a full scan; edge identity is deduplicated via edgeSet keyed on Key().
	edgesBySrc map[graph.NodeID][]graph.Edge
	edgesByDst map[graph.NodeID][]graph.Edge
	edgeSet    map[string]struct{}
}

// New creates an empty in-memory graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[graph.NodeID]graph.Node),
		edgesBySrc: make(map[graph.NodeID][]graph.Edge),
		edgesByDst: make(map[graph.NodeID][]graph.Edge),
		edgeSet:    make(map[string]struct{}),
	}
}

var _ graph.Graph = (*Graph)(nil)

// AddNode inserts or replaces a node. Replacing an existing id is allowed
// (re-analysis of unchanged content yields the same id and attributes).
func (g *Graph) AddNode(_ context.Context, n graph.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
	return nil
}

// AddEdge inserts an edge, silently deduplicating by (src,dst,kind).
func (g *Graph) AddEdge(_ context.Context, e graph.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := e.Key()
	if _, exists := g.edgeSet[key]; exists {
		return nil
	}
	g.edgeSet[key] = struct{}{}
	g.edgesBySrc[e.Src] = append(g.edgesBySrc[e.Src], e)
	g.edgesByDst[e.Dst] = append(g.edgesByDst[e.Dst], e)
	return nil
}

// GetNode looks up a node by id.
func (g *Graph) GetNode(_ context.Context, id graph.NodeID) (*graph.Node, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return &n, true, nil
}

func filterByKinds(edges []graph.Edge, kinds []graph.EdgeKind) []graph.Edge {
	if len(kinds) == 0 {
		out := make([]graph.Edge, len(edges))
		copy(out, edges)
		return out
	}
	allowed := make(map[graph.EdgeKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	var out []graph.Edge
	for _, e := range edges {
		if _, ok := allowed[e.Kind]; ok {
			out = append(out, e)
		}
	}
	return out
}

// GetOutgoingEdges returns edges whose Src is id, optionally filtered to kinds.
func (g *Graph) GetOutgoingEdges(_ context.Context, id graph.NodeID, kinds ...graph.EdgeKind) ([]graph.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterByKinds(g.edgesBySrc[id], kinds), nil
}

// GetIncomingEdges returns edges whose Dst is id, optionally filtered to kinds.
func (g *Graph) GetIncomingEdges(_ context.Context, id graph.NodeID, kinds ...graph.EdgeKind) ([]graph.Edge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterByKinds(g.edgesByDst[id], kinds), nil
}

// sliceIterator is the trivial NodeIterator over a pre-materialized slice;
// the real backend would stream, but an in-memory reference has nothing
// to stream from.
type sliceIterator struct {
	nodes []graph.Node
	pos   int
}

func (it *sliceIterator) Next(_ context.Context) (*graph.Node, bool, error) {
	if it.pos >= len(it.nodes) {
		return nil, false, nil
	}
	n := it.nodes[it.pos]
	it.pos++
	return &n, true, nil
}

func (it *sliceIterator) Close() error { return nil }

// QueryNodes scans nodes matching filter in insertion order.
func (g *Graph) QueryNodes(_ context.Context, filter graph.NodeFilter) (graph.NodeIterator, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matched []graph.Node
	for _, id := range g.order {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		if filter.Kind != "" && n.Kind != filter.Kind {
			continue
		}
		if filter.File != "" && n.File != filter.File {
			continue
		}
		if !matchesAttrs(n, filter.Attrs) {
			continue
		}
		matched = append(matched, n)
	}
	return &sliceIterator{nodes: matched}, nil
}

func matchesAttrs(n graph.Node, want map[string]any) bool {
	for k, v := range want {
		got, ok := n.Attr(k)
		if !ok || got != v {
			return false
		}
	}
	return true
}

// CountNodesByType tallies node kinds.
func (g *Graph) CountNodesByType(_ context.Context) (map[graph.NodeKind]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := make(map[graph.NodeKind]int)
	for _, n := range g.nodes {
		counts[n.Kind]++
	}
	return counts, nil
}

// CountEdgesByType tallies edge kinds.
func (g *Graph) CountEdgesByType(_ context.Context) (map[graph.EdgeKind]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := make(map[graph.EdgeKind]int)
	for key := range g.edgeSet {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		counts[graph.EdgeKind(parts[1])]++
	}
	return counts, nil
}

// Clear removes every node and edge.
func (g *Graph) Clear(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[graph.NodeID]graph.Node)
	g.order = nil
	g.edgesBySrc = make(map[graph.NodeID][]graph.Edge)
	g.edgesByDst = make(map[graph.NodeID][]graph.Edge)
	g.edgeSet = make(map[string]struct{})
	return nil
}

// Flush is a no-op: writes are already durable in the process's memory.
func (g *Graph) Flush(_ context.Context) error { return nil }

// RemoveNodesByFile deletes every node whose File attribute matches file,
// in either its root-relative or absolute form, plus every edge touching
// those nodes. This is the primitive behind owned-node clearance.
func (g *Graph) RemoveNodesByFile(_ context.Context, root, file string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	relative := file
	absolute := file
	if root != "" && !filepath.IsAbs(file) {
		absolute = filepath.Join(root, file)
	} else if root != "" && filepath.IsAbs(file) {
		if rel, err := filepath.Rel(root, file); err == nil {
			relative = rel
		}
	}

	toRemove := make(map[graph.NodeID]struct{})
	for id, n := range g.nodes {
		if n.File == relative || n.File == absolute || n.File == file {
			toRemove[id] = struct{}{}
		}
	}
	cleared := len(toRemove)
	if cleared == 0 {
		return 0, nil
	}

	for id := range toRemove {
		delete(g.nodes, id)
	}
	newOrder := g.order[:0]
	for _, id := range g.order {
		if _, gone := toRemove[id]; !gone {
			newOrder = append(newOrder, id)
		}
	}
	g.order = newOrder

	removeTouching := func(edges map[graph.NodeID][]graph.Edge) {
		for id := range edges {
			filtered := edges[id][:0]
			for _, e := range edges[id] {
				_, srcGone := toRemove[e.Src]
				_, dstGone := toRemove[e.Dst]
				if srcGone || dstGone {
					delete(g.edgeSet, e.Key())
					continue
				}
				filtered = append(filtered, e)
			}
			edges[id] = filtered
		}
	}
	removeTouching(g.edgesBySrc)
	removeTouching(g.edgesByDst)
	for id := range toRemove {
		delete(g.edgesBySrc, id)
		delete(g.edgesByDst, id)
	}

	return cleared, nil
}

// Nodes returns a deterministic, sorted-by-id snapshot of all nodes.
// Test and debugging helper, not part of the graph.Graph contract.
func (g *Graph) Nodes() []graph.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]graph.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
