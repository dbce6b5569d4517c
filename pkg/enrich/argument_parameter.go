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

// ArgumentParameterLinker runs after a call's CALLS edge is resolved (by
// MethodCallResolver, AliasTracker, or ImportExportLinker) and links each
// PASSES_ARGUMENT target to the Parameter it binds to, by position.
type ArgumentParameterLinker struct{}

var _ plugin.Plugin = ArgumentParameterLinker{}

func (ArgumentParameterLinker) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "ArgumentParameterLinker",
		Phase:    plugin.PhaseEnrichment,
		Priority: 80,
		Creates:  plugin.CreatesDeclaration{Edges: []graph.EdgeKind{graph.EdgeFlowsInto}},
	}
}

func (l ArgumentParameterLinker) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	o, err := l.Resolve(ctx, pc.Graph)
	if err != nil {
		return plugin.Result{}, err
	}
	return asResult(o), nil
}

func (l ArgumentParameterLinker) Resolve(ctx context.Context, g graph.Graph) (*Outcome, error) {
	o := newOutcome()

	for _, kind := range []graph.NodeKind{graph.KindCall, graph.KindExpression} {
		calls, err := queryNodes(ctx, g, graph.NodeFilter{Kind: kind})
		if err != nil {
			return nil, err
		}
		for _, call := range calls {
			if err := l.linkOne(ctx, g, call, o); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func (l ArgumentParameterLinker) linkOne(ctx context.Context, g graph.Graph, call graph.Node, o *Outcome) error {
	callsEdges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
	if err != nil {
		return err
	}
	if len(callsEdges) == 0 {
		return nil
	}

	argEdges, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgePassesArgument)
	if err != nil {
		return err
	}
	if len(argEdges) == 0 {
		return nil
	}

	for _, callsEdge := range callsEdges {
		paramEdges, err := g.GetOutgoingEdges(ctx, callsEdge.Dst, graph.EdgeContains)
		if err != nil {
			return err
		}
		var params []graph.NodeID
		for _, pe := range paramEdges {
			n, ok, err := g.GetNode(ctx, pe.Dst)
			if err != nil {
				return err
			}
			if ok && n.Kind == graph.KindParameter {
				params = append(params, n.ID)
			}
		}

		for _, argEdge := range argEdges {
			argIndex, _ := argEdge.Metadata["argIndex"].(int)
			if argIndex < 0 || argIndex >= len(params) {
				o.unresolved("argument_parameter_linker: %s: call %s has no parameter at index %d", call.File, call.ID, argIndex)
				continue
			}
			if err := addEdgeOnce(ctx, g, graph.Edge{Src: argEdge.Dst, Dst: params[argIndex], Kind: graph.EdgeFlowsInto,
				Metadata: map[string]any{"argIndex": argIndex, "viaCall": string(call.ID)}}, o); err != nil {
				return err
			}
		}
	}
	return nil
}
