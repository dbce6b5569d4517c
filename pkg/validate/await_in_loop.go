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

// Package validate holds the read-only VALIDATION-phase checks: each walks
// the graph through the same graph.Graph capability every other component
// uses and reports what it finds through plugin.Context.ReportIssue rather
// than writing ISSUE nodes itself, keeping the single graph write path
// owned by the builder and enrichers.
package validate

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// AwaitInLoopValidator flags every CALL marked both awaited and
// insideLoop: a sequential await inside a loop body serializes what could
// run concurrently via Promise.all.
type AwaitInLoopValidator struct{}

var _ plugin.Plugin = AwaitInLoopValidator{}

func (AwaitInLoopValidator) Metadata() plugin.Metadata {
	return plugin.Metadata{Name: "AwaitInLoopValidator", Phase: plugin.PhaseValidation, Priority: 50}
}

func (v AwaitInLoopValidator) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	it, err := pc.Graph.QueryNodes(ctx, graph.NodeFilter{Kind: graph.KindCall})
	if err != nil {
		return plugin.Result{}, fmt.Errorf("await_in_loop: query calls: %w", err)
	}
	defer it.Close()

	count := 0
	for {
		n, ok, err := it.Next(ctx)
		if err != nil {
			return plugin.Result{}, fmt.Errorf("await_in_loop: iterate calls: %w", err)
		}
		if !ok {
			break
		}
		if !n.AttrBool("awaited") || !n.AttrBool("insideLoop") {
			continue
		}
		count++
		if pc.ReportIssue != nil {
			pc.ReportIssue(plugin.Issue{
				Category: "performance",
				Message:  fmt.Sprintf("Sequential await in loop: %s", n.AttrString("calleeName")),
				Affects:  n.ID,
				Severity: "warning",
			})
		}
	}

	return plugin.Result{Success: true, Metadata: map[string]any{"flagged": count}}, nil
}
