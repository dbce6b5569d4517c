// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/diag"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/orchestrator"
)

// printReport renders one Orchestrator.Run outcome: phase timings, plugin
// statuses, final node/edge counts, and any diagnostics that survived the
// run.
func printReport(ctx context.Context, report *orchestrator.Report, o *orchestrator.Orchestrator, g graph.Graph) {
	for _, phase := range report.PhasesRun {
		fmt.Printf("%-12s %v\n", phase.Phase, phase.Duration)
		for name, result := range phase.Results {
			status := "ok"
			if !result.Success {
				status = "failed"
			}
			fmt.Printf("  %-30s %s\n", name, status)
		}
	}

	if report.Aborted {
		fmt.Printf("aborted at phase %s\n", report.AbortedAt)
	}

	nodeCounts, err := g.CountNodesByType(ctx)
	if err == nil {
		fmt.Println("\nnodes:")
		for kind, n := range nodeCounts {
			fmt.Printf("  %-16s %d\n", kind, n)
		}
	}

	edgeCounts, err := g.CountEdgesByType(ctx)
	if err == nil {
		fmt.Println("edges:")
		for kind, n := range edgeCounts {
			fmt.Printf("  %-16s %d\n", kind, n)
		}
	}

	diags := o.Diagnostics.All()
	if len(diags) > 0 {
		fmt.Println("\ndiagnostics:")
		for _, d := range diags {
			fmt.Printf("  %s\n", d)
		}
	}
	bySeverity := o.Diagnostics.CountBySeverity()
	fmt.Printf("\n%d warning(s), %d fatal\n", bySeverity[diag.SeverityWarning], bySeverity[diag.SeverityFatal])
}

func stringifyNodeCounts(counts map[graph.NodeKind]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}

func stringifyEdgeCounts(counts map[graph.EdgeKind]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}
