// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package guarantee

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/graph"
)

// Default is the guarantee set every Checker starts from: invariants the
// resolvers and enrichers in this repo are expected to uphold once
// ENRICHMENT has finished.
var Default = []Guarantee{
	{
		Name:     "value-domain-complete",
		Rule:     "?[id] := *VARIABLE{id}, not *VARIABLE{id, hasUnknown: _}",
		Severity: "warning",
		Types:    []graph.NodeKind{graph.KindVariable, graph.KindConstant},
		Fallback: valueDomainComplete,
	},
	{
		Name:     "no-dangling-resolved-edges",
		Rule:     "?[src,dst,kind] := *edge{src,dst,kind}, not resolved(dst), not unresolved(src,dst,kind)",
		Severity: "error",
		Fallback: noDanglingResolvedEdges,
	},
}

// valueDomainComplete checks that ValueDomainAnalyzer has touched every
// VARIABLE and CONSTANT node: each must carry a hasUnknown attribute,
// since downstream Datalog rules over value domains assume its presence
// rather than treating an absent key as "unknown".
func valueDomainComplete(ctx context.Context, g graph.Graph, explain bool) (*graph.GuaranteeResult, error) {
	var violations []map[string]any
	for _, kind := range []graph.NodeKind{graph.KindVariable, graph.KindConstant} {
		it, err := g.QueryNodes(ctx, graph.NodeFilter{Kind: kind})
		if err != nil {
			return nil, err
		}
		for {
			n, ok, err := it.Next(ctx)
			if err != nil {
				it.Close()
				return nil, err
			}
			if !ok {
				break
			}
			if _, present := n.Attrs["hasUnknown"]; !present {
				violations = append(violations, map[string]any{"id": string(n.ID), "file": n.File})
			}
		}
		it.Close()
	}

	result := &graph.GuaranteeResult{Satisfied: len(violations) == 0, Violations: violations}
	if !result.Satisfied && explain {
		result.Explanation = fmt.Sprintf("%d variable/constant node(s) missing a computed value domain", len(violations))
	}
	return result, nil
}

// noDanglingResolvedEdges checks that every edge NOT tagged
// Metadata["unresolved"]=true points at a node that actually exists.
// The builder records an unresolved candidate as a placeholder edge whose
// Dst is a bare name rather than a node id; once resolved, an enricher
// adds a second edge pointing at the real node. A "resolved" edge pointing nowhere
// means a resolver wrote a node id that was later removed without the
// edge being cleaned up (e.g. RemoveNodesByFile during incremental
// reanalysis missed a cross-file edge).
func noDanglingResolvedEdges(ctx context.Context, g graph.Graph, explain bool) (*graph.GuaranteeResult, error) {
	edgeKinds := []graph.EdgeKind{
		graph.EdgeContains, graph.EdgeCalls, graph.EdgePassesArgument, graph.EdgeExtends,
		graph.EdgeImplements, graph.EdgeDependsOn, graph.EdgeInstanceOf, graph.EdgeIteratesOver,
	}

	seen := make(map[string]bool)
	var violations []map[string]any

	it, err := g.QueryNodes(ctx, graph.NodeFilter{})
	if err != nil {
		return nil, err
	}
	var sources []graph.NodeID
	for {
		n, ok, err := it.Next(ctx)
		if err != nil {
			it.Close()
			return nil, err
		}
		if !ok {
			break
		}
		sources = append(sources, n.ID)
	}
	it.Close()

	for _, src := range sources {
		edges, err := g.GetOutgoingEdges(ctx, src, edgeKinds...)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if e.Metadata["unresolved"] == true {
				continue
			}
			key := e.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, ok, err := g.GetNode(ctx, e.Dst); err != nil {
				return nil, err
			} else if !ok {
				violations = append(violations, map[string]any{"src": string(e.Src), "dst": string(e.Dst), "kind": string(e.Kind)})
			}
		}
	}

	result := &graph.GuaranteeResult{Satisfied: len(violations) == 0, Violations: violations}
	if !result.Satisfied && explain {
		result.Explanation = fmt.Sprintf("%d resolved edge(s) point at a node that no longer exists", len(violations))
	}
	return result, nil
}
