// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// TaintedArgumentValidator flags a call into a declared sink whose
// argument resolves to a VARIABLE or CONSTANT with hasUnknown=true: a
// value ValueDomainAnalyzer could not reduce to a closed literal set,
// meaning it may carry attacker- or caller-controlled content (e.g. a
// raw SQL string built from a request field) into the sink unexamined.
type TaintedArgumentValidator struct {
	// SinkNames is the set of calleeName values treated as sensitive.
	// A nil/empty set falls back to DefaultSinkNames.
	SinkNames map[string]bool
}

var _ plugin.Plugin = TaintedArgumentValidator{}

// DefaultSinkNames are the callee names this validator treats as
// sensitive when SinkNames is unset: common raw-query/exec entry points
// across the node SQL driver ecosystem.
var DefaultSinkNames = map[string]bool{
	"query": true, "queryRaw": true, "exec": true, "execRaw": true, "raw": true,
}

func (TaintedArgumentValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "TaintedArgumentValidator", Phase: plugin.PhaseValidation, Priority: 40}
}

func (v TaintedArgumentValidator) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	sinks := v.SinkNames
	if len(sinks) == 0 {
		sinks = DefaultSinkNames
	}

	it, err := pc.Graph.QueryNodes(ctx, graph.NodeFilter{Kind: graph.KindCall})
	if err != nil {
		return plugin.Result{}, fmt.Errorf("tainted_argument: query calls: %w", err)
	}
	defer it.Close()

	var calls []graph.Node
	for {
		n, ok, err := it.Next(ctx)
		if err != nil {
			return plugin.Result{}, fmt.Errorf("tainted_argument: iterate calls: %w", err)
		}
		if !ok {
			break
		}
		if sinks[n.AttrString("calleeName")] {
			calls = append(calls, *n)
		}
	}

	count := 0
	for _, call := range calls {
		edges, err := pc.Graph.GetOutgoingEdges(ctx, call.ID, graph.EdgePassesArgument)
		if err != nil {
			return plugin.Result{}, fmt.Errorf("tainted_argument: outgoing arguments for %s: %w", call.ID, err)
		}
		for _, e := range edges {
			target, ok, err := pc.Graph.GetNode(ctx, e.Dst)
			if err != nil {
				return plugin.Result{}, fmt.Errorf("tainted_argument: argument target %s: %w", e.Dst, err)
			}
			if !ok || (target.Kind != graph.KindVariable && target.Kind != graph.KindConstant) {
				continue
			}
			if !target.AttrBool("hasUnknown") {
				continue
			}
			count++
			if pc.ReportIssue != nil {
				pc.ReportIssue(plugin.Issue{
					Category: "security",
					Message:  fmt.Sprintf("unresolved value domain reaches sink %q", call.AttrString("calleeName")),
					Affects:  call.ID,
					Severity: "warning",
				})
			}
		}
	}

	return plugin.Result{Success: true, Metadata: map[string]any{"flagged": count}}, nil
}
