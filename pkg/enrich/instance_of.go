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

package enrich

import (
	"context"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// InstanceOfResolver resolves the placeholder EXTENDS, IMPLEMENTS, and
// INSTANCE_OF edges the builder leaves pointing at a raw class/interface
// name (marked `unresolved: true`) to the real node,
// once that declaration is visible anywhere in the graph — typically in a
// different file than the one that referenced it, which is why this runs
// as a separate cross-module pass rather than inside the builder. The
// graph has no edge-update primitive, so a resolved reference is added as
// a second edge of the same kind with `resolved: true`; the placeholder
// is left in place.
type InstanceOfResolver struct{}

var _ plugin.Plugin = InstanceOfResolver{}

func (InstanceOfResolver) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "InstanceOfResolver",
		Phase:    plugin.PhaseEnrichment,
		Priority: 60,
		Creates: plugin.CreatesDeclaration{Edges: []graph.EdgeKind{
			graph.EdgeExtends, graph.EdgeImplements, graph.EdgeInstanceOf, graph.EdgeIteratesOver,
		}},
	}
}

func (r InstanceOfResolver) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	o, err := r.Resolve(ctx, pc.Graph)
	if err != nil {
		return plugin.Result{}, err
	}
	return asResult(o), nil
}

func (r InstanceOfResolver) Resolve(ctx context.Context, g graph.Graph) (*Outcome, error) {
	o := newOutcome()

	classes, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindClass})
	if err != nil {
		return nil, err
	}
	classByName := make(map[string]graph.NodeID, len(classes))
	for _, c := range classes {
		classByName[c.AttrString("name")] = c.ID
	}

	ifaces, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindInterface})
	if err != nil {
		return nil, err
	}
	ifaceByName := make(map[string]graph.NodeID, len(ifaces))
	for _, i := range ifaces {
		ifaceByName[i.AttrString("name")] = i.ID
	}

	if err := r.resolveByName(ctx, g, graph.EdgeExtends, classByName, o); err != nil {
		return nil, err
	}
	if err := r.resolveByName(ctx, g, graph.EdgeImplements, ifaceByName, o); err != nil {
		return nil, err
	}
	if err := r.resolveByName(ctx, g, graph.EdgeInstanceOf, classByName, o); err != nil {
		return nil, err
	}
	if err := r.resolveIteratesOver(ctx, g, o); err != nil {
		return nil, err
	}
	return o, nil
}

// resolveByName walks every edge of kind and, for each one still flagged
// unresolved, looks its raw-text Dst up in byName; a hit is added as a
// fresh resolved edge from the same Src to the real node.
func (r InstanceOfResolver) resolveByName(ctx context.Context, g graph.Graph, kind graph.EdgeKind, byName map[string]graph.NodeID, o *Outcome) error {
	srcs, err := nodesWithOutgoingKind(ctx, g, kind)
	if err != nil {
		return err
	}
	for _, src := range srcs {
		edges, err := g.GetOutgoingEdges(ctx, src, kind)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.Metadata["unresolved"] != true {
				continue
			}
			target, ok := byName[string(e.Dst)]
			if !ok {
				o.unresolved("instance_of_resolver: %s: %s: no declaration named %q", kind, e.Src, e.Dst)
				continue
			}
			if err := addEdgeOnce(ctx, g, graph.Edge{Src: e.Src, Dst: target, Kind: kind, Metadata: map[string]any{"resolved": true}}, o); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveIteratesOver matches a loop's unresolved iteration source, by
// name, against a parameter declared on the loop's enclosing function
// first, falling back to any variable of that name the function contains.
func (r InstanceOfResolver) resolveIteratesOver(ctx context.Context, g graph.Graph, o *Outcome) error {
	srcs, err := nodesWithOutgoingKind(ctx, g, graph.EdgeIteratesOver)
	if err != nil {
		return err
	}
	for _, loopID := range srcs {
		edges, err := g.GetOutgoingEdges(ctx, loopID, graph.EdgeIteratesOver)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.Metadata["unresolved"] != true {
				continue
			}
			container, ok, err := enclosingContainer(ctx, g, loopID)
			if err != nil {
				return err
			}
			if !ok {
				o.unresolved("instance_of_resolver: loop %s: no enclosing function to search for %q", loopID, e.Dst)
				continue
			}
			name := string(e.Dst)
			target, ok, err := lookupChildByName(ctx, g, container.ID, name, graph.KindParameter)
			if err != nil {
				return err
			}
			if !ok {
				target, ok, err = lookupChildByName(ctx, g, container.ID, name, graph.KindVariable, graph.KindConstant)
				if err != nil {
					return err
				}
			}
			if !ok {
				o.unresolved("instance_of_resolver: loop %s: no parameter or variable named %q in scope", loopID, name)
				continue
			}
			if err := addEdgeOnce(ctx, g, graph.Edge{Src: loopID, Dst: target.ID, Kind: graph.EdgeIteratesOver, Metadata: map[string]any{"resolved": true}}, o); err != nil {
				return err
			}
		}
	}
	return nil
}

// nodesWithOutgoingKind returns every node id with at least one outgoing
// edge of kind, found by scanning every node kind that can originate one:
// classes and methods (EXTENDS/IMPLEMENTS/INSTANCE_OF) or loops
// (ITERATES_OVER). QueryNodes has no edge-shaped filter, so this walks
// the plausible source kinds rather than every node in the graph.
func nodesWithOutgoingKind(ctx context.Context, g graph.Graph, kind graph.EdgeKind) ([]graph.NodeID, error) {
	var candidateKinds []graph.NodeKind
	switch kind {
	case graph.EdgeExtends, graph.EdgeImplements:
		candidateKinds = []graph.NodeKind{graph.KindClass}
	case graph.EdgeInstanceOf:
		candidateKinds = []graph.NodeKind{graph.KindFunction, graph.KindMethod}
	case graph.EdgeIteratesOver:
		candidateKinds = []graph.NodeKind{graph.KindLoop}
	}
	var out []graph.NodeID
	for _, k := range candidateKinds {
		nodes, err := queryNodes(ctx, g, graph.NodeFilter{Kind: k})
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			out = append(out, n.ID)
		}
	}
	return out, nil
}
