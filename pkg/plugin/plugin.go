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

// Package plugin declares the contract every analysis-core participant
// implements: a fixed metadata record plus an Execute method, dispatched
// by phase. Discovery, indexing, analysis, enrichment and validation
// passes are all the same Plugin shape, differing only in which phase
// they declare and which PluginContext fields they use — a tagged-record-
// behind-one-interface design rather than a distinct type per phase.
package plugin

import (
	"context"
	"log/slog"

	"github.com/kraklabs/grafema/pkg/graph"
)

// Phase is one stage of the fixed orchestrator pipeline.
type Phase string

const (
	PhaseDiscovery  Phase = "DISCOVERY"
	PhaseIndexing   Phase = "INDEXING"
	PhaseAnalysis   Phase = "ANALYSIS"
	PhaseEnrichment Phase = "ENRICHMENT"
	PhaseGuarantee  Phase = "GUARANTEE"
	PhaseValidation Phase = "VALIDATION"
	PhaseFlush      Phase = "FLUSH"
)

// Order is the fixed phase sequence the orchestrator runs in.
var Order = []Phase{PhaseDiscovery, PhaseIndexing, PhaseAnalysis, PhaseEnrichment, PhaseGuarantee, PhaseValidation, PhaseFlush}

// CreatesDeclaration documents the node/edge kinds a plugin may create, for
// tooling. Nothing in this module compares it against what a run actually
// created.
type CreatesDeclaration struct {
	Nodes []graph.NodeKind
	Edges []graph.EdgeKind
}

// Metadata is the static, declarative half of a plugin.
type Metadata struct {
	Name         string
	Phase        Phase
	Priority     int // higher runs earlier within the phase
	Dependencies []string
	Creates      CreatesDeclaration
	Fields       []graph.FieldDeclaration
}

// Issue is what a VALIDATION-phase plugin reports through
// PluginContext.ReportIssue instead of writing ISSUE nodes itself, keeping
// the graph write path uniform.
type Issue struct {
	Category string // e.g. "performance", "security"
	Message  string
	Affects  graph.NodeID
	Severity string // "warning" | "fatal"
}

// ProgressFunc reports incremental progress (files processed, unit name, …)
// back to a caller such as a CLI progress bar.
type ProgressFunc func(done, total int, label string)

// Context is everything a plugin's Execute receives. ReportIssue is
// non-nil only during VALIDATION.
type Context struct {
	Graph          graph.Graph
	Manifest       ManifestWriter
	ProjectPath    string
	Config         map[string]any
	Logger         *slog.Logger
	OnProgress     ProgressFunc
	ForceAnalysis  bool
	StrictMode     bool
	ReportIssue    func(Issue)
	ChangedFiles   []string // units this run should consider, when narrower than the whole project
}

// ManifestWriter is the subset of the manifest store a plugin may use to
// record its own progress. Defined here, not in pkg/manifest, so
// pkg/plugin has no dependency on the manifest's file-format details.
type ManifestWriter interface {
	Record(stableID, phase, status string) error
}

// CreatedCounts tallies what a plugin run actually created, reported back
// in Result.Created. It is not checked against Metadata.Creates.
type CreatedCounts struct {
	Nodes map[graph.NodeKind]int
	Edges map[graph.EdgeKind]int
}

// Result is what Execute returns.
type Result struct {
	Success  bool
	Created  CreatedCounts
	Errors   []string
	Warnings []string
	Metadata map[string]any
}

// Plugin is the single interface every phase participant implements.
type Plugin interface {
	Metadata() Metadata
	Execute(ctx context.Context, pc *Context) (Result, error)
}

// Ordinal returns the index of p within Order, or -1 if p is not a known
// phase, so callers can sort or compare phases without a switch statement.
func (p Phase) Ordinal() int {
	for i, ph := range Order {
		if ph == p {
			return i
		}
	}
	return -1
}
