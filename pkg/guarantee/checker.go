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

// Package guarantee runs declared invariants against the graph between
// ENRICHMENT and VALIDATION. Each declared Guarantee names a rule and a
// severity; Checker prefers delegating rule evaluation to the graph
// backend when it implements graph.GuaranteeEvaluator, and otherwise
// walks the graph itself using the Guarantee's Fallback function.
package guarantee

import (
	"context"
	"fmt"

	"github.com/kraklabs/grafema/pkg/diag"
	"github.com/kraklabs/grafema/pkg/graph"
)

// Guarantee is one declared invariant: a named Datalog rule, a severity
// ("error" promotes a violation to fatal, anything else stays a
// warning), the node kinds whose change can invalidate it, and an
// in-process Fallback used when the graph backend can't evaluate Rule
// itself.
type Guarantee struct {
	Name     string
	Rule     string
	Severity string
	Types    []graph.NodeKind
	Fallback func(ctx context.Context, g graph.Graph, explain bool) (*graph.GuaranteeResult, error)
}

func (gr Guarantee) touches(changed map[graph.NodeKind]bool) bool {
	if len(gr.Types) == 0 {
		return true
	}
	for _, k := range gr.Types {
		if changed[k] {
			return true
		}
	}
	return false
}

// Checker holds the declared set of guarantees for one project.
type Checker struct {
	Guarantees []Guarantee
}

// New returns a Checker seeded with Default plus any caller-supplied
// guarantees.
func New(extra ...Guarantee) *Checker {
	return &Checker{Guarantees: append(append([]Guarantee{}, Default...), extra...)}
}

// CheckAll evaluates every declared guarantee.
func (c *Checker) CheckAll(ctx context.Context, g graph.Graph) ([]diag.Diagnostic, error) {
	return c.run(ctx, g, c.Guarantees)
}

// CheckSelective evaluates only guarantees whose Types intersect
// changedTypes (plus any guarantee declaring no Types, which always
// runs). Called when an enrichment pass reported a non-empty
// changed-types set; CheckAll is used otherwise.
func (c *Checker) CheckSelective(ctx context.Context, g graph.Graph, changedTypes map[graph.NodeKind]bool) ([]diag.Diagnostic, error) {
	var subset []Guarantee
	for _, gr := range c.Guarantees {
		if gr.touches(changedTypes) {
			subset = append(subset, gr)
		}
	}
	return c.run(ctx, g, subset)
}

func (c *Checker) run(ctx context.Context, g graph.Graph, guarantees []Guarantee) ([]diag.Diagnostic, error) {
	var diags []diag.Diagnostic
	for _, gr := range guarantees {
		result, err := c.evaluate(ctx, g, gr)
		if err != nil {
			return diags, fmt.Errorf("guarantee: evaluate %q: %w", gr.Name, err)
		}
		errorSeverity := gr.Severity == "error"
		diag.RecordGuaranteeCheck(gr.Name, result.Satisfied, gr.Severity)
		if !result.Satisfied {
			diags = append(diags, diag.GuaranteeViolation(gr.Name, gr.Rule, errorSeverity, result.Explanation))
		}
	}
	return diags, nil
}

// evaluate asks the graph backend to check the rule natively when it
// implements graph.GuaranteeEvaluator; otherwise it runs gr.Fallback.
func (c *Checker) evaluate(ctx context.Context, g graph.Graph, gr Guarantee) (*graph.GuaranteeResult, error) {
	if evaluator, ok := g.(graph.GuaranteeEvaluator); ok {
		return evaluator.CheckGuarantee(ctx, gr.Rule, true)
	}
	if gr.Fallback == nil {
		return nil, fmt.Errorf("no backend evaluator and no fallback for rule %q", gr.Name)
	}
	return gr.Fallback(ctx, g, true)
}
