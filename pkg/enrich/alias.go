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
	"strings"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// AliasTracker follows `const alias = obj.method; alias()` chains: a
// variable bound to a bare member-expression reference (no call), then
// invoked later as a plain identifier call. It resolves straight to the
// METHOD node obj.method would have resolved to, skipping the alias.
type AliasTracker struct{}

var _ plugin.Plugin = AliasTracker{}

func (AliasTracker) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "AliasTracker",
		Phase:    plugin.PhaseEnrichment,
		Priority: 90,
		Creates:  plugin.CreatesDeclaration{Edges: []graph.EdgeKind{graph.EdgeCalls}},
	}
}

func (t AliasTracker) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	o, err := t.Resolve(ctx, pc.Graph)
	if err != nil {
		return plugin.Result{}, err
	}
	return asResult(o), nil
}

func (t AliasTracker) Resolve(ctx context.Context, g graph.Graph) (*Outcome, error) {
	o := newOutcome()

	classes, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindClass})
	if err != nil {
		return nil, err
	}
	classByName := make(map[string]graph.Node, len(classes))
	for _, c := range classes {
		classByName[c.AttrString("name")] = c
	}

	calls, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindCall})
	if err != nil {
		return nil, err
	}
	for _, call := range calls {
		if call.AttrBool("isMethod") {
			continue // obj.alias() is MethodCallResolver's shape
		}
		existing, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue // already resolved directly, nothing to alias through
		}
		if err := t.resolveOne(ctx, g, classByName, call, o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (t AliasTracker) resolveOne(ctx context.Context, g graph.Graph, classByName map[string]graph.Node, call graph.Node, o *Outcome) error {
	aliasName := call.AttrString("calleeName")
	if aliasName == "" {
		return nil
	}
	container, ok, err := enclosingContainer(ctx, g, call.ID)
	if err != nil || !ok {
		return err
	}

	alias, ok, err := lookupChildByName(ctx, g, container.ID, aliasName, graph.KindVariable, graph.KindConstant)
	if err != nil {
		return err
	}
	if !ok || alias.AttrString("assignmentKind") != "MEMBER_EXPRESSION" {
		return nil // not an alias binding; someone else's call to resolve, or truly unresolved
	}

	ref := alias.AttrString("assignmentSourceName")
	dot := strings.LastIndex(ref, ".")
	if dot <= 0 {
		o.unresolved("alias_tracker: %s: alias %q has no resolvable receiver in %q", call.File, aliasName, ref)
		return nil
	}
	receiver, methodName := ref[:dot], ref[dot+1:]

	className, ok, err := resolveReceiverClass(ctx, g, receiver, container)
	if err != nil {
		return err
	}
	if !ok {
		o.unresolved("alias_tracker: %s: can't determine receiver type for alias %q (%s)", call.File, aliasName, ref)
		return nil
	}

	method, ok, err := findMethod(ctx, g, classByName, className, methodName)
	if err != nil {
		return err
	}
	if !ok {
		o.unresolved("alias_tracker: %s: %s has no method %q aliased as %q", call.File, className, methodName, aliasName)
		return nil
	}
	return addEdgeOnce(ctx, g, graph.Edge{Src: call.ID, Dst: method.ID, Kind: graph.EdgeCalls,
		Metadata: map[string]any{"viaAlias": aliasName}}, o)
}
