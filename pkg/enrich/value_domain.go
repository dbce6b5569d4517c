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

// ValueDomainAnalyzer computes, for every VARIABLE/CONSTANT, an abstract
// value domain: a set of literal values plus a hasUnknown flag. Literal
// values are not collected, so the set written to valueDomain is always
// empty; only hasUnknown carries information. hasUnknown is set when the
// variable is assigned from a
// function parameter, from a call (this analyzer does no interprocedural
// return-value tracking, so every call result counts as unknown), or from
// an expression whose tracked operand is itself unknown. Security
// validators read hasUnknown to flag user input flowing somewhere
// sensitive without going through a literal allowlist. Results are written
// back onto the VARIABLE/CONSTANT node's attributes (valueDomain,
// hasUnknown), since the graph capability has no separate per-variable
// fact store.
type ValueDomainAnalyzer struct{}

var _ plugin.Plugin = ValueDomainAnalyzer{}

func (ValueDomainAnalyzer) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "ValueDomainAnalyzer",
		Phase:    plugin.PhaseEnrichment,
		Priority: 50,
		Fields:   []graph.FieldDeclaration{{Kind: graph.KindVariable, Name: "hasUnknown"}, {Kind: graph.KindConstant, Name: "hasUnknown"}},
	}
}

func (a ValueDomainAnalyzer) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	o, err := a.Resolve(ctx, pc.Graph)
	if err != nil {
		return plugin.Result{}, err
	}
	return asResult(o), nil
}

type valueDomain struct {
	Values     []string
	HasUnknown bool
}

func (a ValueDomainAnalyzer) Resolve(ctx context.Context, g graph.Graph) (*Outcome, error) {
	o := newOutcome()
	memo := make(map[graph.NodeID]valueDomain)

	var vars []graph.Node
	for _, kind := range []graph.NodeKind{graph.KindVariable, graph.KindConstant} {
		nodes, err := queryNodes(ctx, g, graph.NodeFilter{Kind: kind})
		if err != nil {
			return nil, err
		}
		vars = append(vars, nodes...)
	}

	byFileName := make(map[string]map[string]graph.Node, len(vars))
	for _, v := range vars {
		if byFileName[v.File] == nil {
			byFileName[v.File] = make(map[string]graph.Node)
		}
		byFileName[v.File][v.AttrString("name")] = v
	}

	for _, v := range vars {
		d, err := a.domainOf(ctx, g, v, byFileName, memo, make(map[graph.NodeID]bool))
		if err != nil {
			return nil, err
		}
		attrs := make(map[string]any, len(v.Attrs)+2)
		for k, val := range v.Attrs {
			attrs[k] = val
		}
		attrs["valueDomain"] = d.Values
		attrs["hasUnknown"] = d.HasUnknown
		if err := g.AddNode(ctx, graph.Node{ID: v.ID, Kind: v.Kind, File: v.File, Attrs: attrs}); err != nil {
			return nil, err
		}
		o.updatedNode(v.Kind)
	}
	return o, nil
}

// domainOf computes v's domain, memoizing across the whole pass and
// guarding against an identifier-alias cycle (`let a = b; let b = a;`,
// which type-checks in neither TS nor Go but costs nothing to guard
// against here) by tracking the node ids currently being resolved.
func (a ValueDomainAnalyzer) domainOf(ctx context.Context, g graph.Graph, v graph.Node, byFileName map[string]map[string]graph.Node, memo map[graph.NodeID]valueDomain, visiting map[graph.NodeID]bool) (valueDomain, error) {
	if d, ok := memo[v.ID]; ok {
		return d, nil
	}
	if visiting[v.ID] {
		return valueDomain{HasUnknown: true}, nil
	}
	visiting[v.ID] = true
	defer delete(visiting, v.ID)

	d, err := a.classify(ctx, g, v, byFileName, memo, visiting)
	if err != nil {
		return valueDomain{}, err
	}
	memo[v.ID] = d
	return d, nil
}

func (a ValueDomainAnalyzer) classify(ctx context.Context, g graph.Graph, v graph.Node, byFileName map[string]map[string]graph.Node, memo map[graph.NodeID]valueDomain, visiting map[graph.NodeID]bool) (valueDomain, error) {
	kind := v.AttrString("assignmentKind")
	switch kind {
	case "LITERAL":
		val := v.AttrString("assignmentSourceName") // unused for literals; value lives in the call-arg/variable classification, kept for symmetry
		_ = val
		return valueDomain{}, nil
	case "CALL_SITE", "METHOD_CALL":
		return valueDomain{HasUnknown: true}, nil
	case "IDENTIFIER":
		source := v.AttrString("assignmentSourceName")
		container, ok, err := enclosingContainer(ctx, g, v.ID)
		if err != nil {
			return valueDomain{}, err
		}
		if ok {
			if param, found, err := lookupChildByName(ctx, g, container.ID, source, graph.KindParameter); err != nil {
				return valueDomain{}, err
			} else if found {
				_ = param
				return valueDomain{HasUnknown: true}, nil // assigned from a parameter: always unknown
			}
		}
		if src, found := byFileName[v.File][source]; found {
			return a.domainOf(ctx, g, src, byFileName, memo, visiting)
		}
		return valueDomain{HasUnknown: true}, nil // unresolved identifier: conservative
	case "BINARY_EXPRESSION", "LOGICAL_EXPRESSION", "CONDITIONAL_EXPRESSION", "UNARY_EXPRESSION":
		operand := v.AttrString("assignmentSourceName")
		if src, found := byFileName[v.File][operand]; found {
			return a.domainOf(ctx, g, src, byFileName, memo, visiting)
		}
		return valueDomain{HasUnknown: true}, nil
	default:
		// OBJECT_LITERAL, ARRAY_LITERAL, NEW_EXPRESSION, FUNCTION_LITERAL,
		// TEMPLATE_LITERAL, MEMBER_EXPRESSION, UNKNOWN: a known shape, but
		// not one this analyzer tracks literal values or unknown-ness
		// through; it contributes neither a literal value nor a positive
		// hasUnknown signal.
		return valueDomain{}, nil
	}
}
