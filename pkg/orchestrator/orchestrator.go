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

// Package orchestrator drives the fixed phase pipeline
// (plugin.Order: DISCOVERY, INDEXING, ANALYSIS, ENRICHMENT, GUARANTEE,
// VALIDATION, FLUSH) over a registered set of plugins, the way teacher's
// LocalPipeline.Run drives its own fixed named steps: log a step start,
// run it, log completion with duration, and track the result in a single
// summary. Here a "step" is a whole phase, and a phase can hold any
// number of plugins rather than exactly one.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kraklabs/grafema/pkg/diag"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/guarantee"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// Orchestrator runs a fixed set of plugins across the phase pipeline
// against one graph. Guarantees is optional: when set, it runs during
// GUARANTEE, selectively over the node kinds ENRICHMENT touched (or over
// everything, when that set is empty).
type Orchestrator struct {
	Graph       graph.Graph
	Manifest    plugin.ManifestWriter
	Plugins     []plugin.Plugin
	Guarantees  *guarantee.Checker
	Logger      *slog.Logger
	Diagnostics *diag.Collector

	changedTypes map[graph.NodeKind]bool
}

// New creates an Orchestrator. logger may be nil (defaults to slog.Default()).
func New(g graph.Graph, manifest plugin.ManifestWriter, plugins []plugin.Plugin, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Graph: g, Manifest: manifest, Plugins: plugins, Logger: logger, Diagnostics: diag.NewCollector()}
}

// RunOptions narrows or escalates one Run call.
type RunOptions struct {
	ProjectPath   string
	Config        map[string]any
	StrictMode    bool
	ForceAnalysis bool
	ChangedFiles  []string
	OnProgress    plugin.ProgressFunc
}

// Report summarizes one orchestrator run.
type Report struct {
	PhasesRun []PhaseReport
	Aborted   bool
	AbortedAt plugin.Phase
}

// PhaseReport summarizes one phase's plugin results.
type PhaseReport struct {
	Phase    plugin.Phase
	Results  map[string]plugin.Result // plugin name -> result
	Duration time.Duration
}

// Run executes every phase in plugin.Order, stopping immediately after a
// phase in which any plugin reported a fatal diagnostic, and additionally
// enforcing a strict-mode barrier right after ENRICHMENT: an
// otherwise-warning-level unresolved reference is promoted to fatal when
// opts.StrictMode is set, since guarantee/validation results downstream
// assume a fully resolved graph.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	report := &Report{}
	o.changedTypes = make(map[graph.NodeKind]bool)

	for _, phase := range plugin.Order {
		phaseReport, err := o.runPhase(ctx, phase, opts)
		if err != nil {
			return report, fmt.Errorf("orchestrator: phase %s: %w", phase, err)
		}
		report.PhasesRun = append(report.PhasesRun, *phaseReport)

		if o.Diagnostics.HasFatal() {
			report.Aborted = true
			report.AbortedAt = phase
			o.Logger.Error("orchestrator.aborted", "phase", phase)
			return report, nil
		}
	}
	return report, nil
}

func (o *Orchestrator) runPhase(ctx context.Context, phase plugin.Phase, opts RunOptions) (*PhaseReport, error) {
	participants := o.pluginsForPhase(phase)
	start := time.Now()
	o.Logger.Info("orchestrator.phase.start", "phase", phase, "plugins", len(participants))
	diag.RecordPhaseStart(string(phase))

	pc := &plugin.Context{
		Graph:         o.Graph,
		Manifest:      o.Manifest,
		ProjectPath:   opts.ProjectPath,
		Config:        opts.Config,
		Logger:        o.Logger,
		OnProgress:    opts.OnProgress,
		ForceAnalysis: opts.ForceAnalysis,
		StrictMode:    opts.StrictMode,
		ChangedFiles:  opts.ChangedFiles,
	}
	var issues []plugin.Issue
	if phase == plugin.PhaseValidation {
		pc.ReportIssue = func(iss plugin.Issue) { issues = append(issues, iss) }
	}

	results := make(map[string]plugin.Result, len(participants))
	for _, p := range participants {
		name := p.Metadata().Name
		pluginStart := time.Now()
		result, err := p.Execute(ctx, pc)
		elapsed := time.Since(pluginStart).Seconds()

		if err != nil {
			diag.RecordPlugin(name, string(phase), true, elapsed)
			o.Diagnostics.Add(diag.PluginThrew(string(phase), name, err))
			results[name] = plugin.Result{Success: false, Errors: []string{err.Error()}}
			continue
		}
		diag.RecordPlugin(name, string(phase), !result.Success, elapsed)
		results[name] = result
		strictPromotion := opts.StrictMode && phase == plugin.PhaseEnrichment
		for _, w := range result.Warnings {
			detail := w
			if strictPromotion {
				detail = fmt.Sprintf("Strict mode: unresolved reference in %s: %s", name, w)
			}
			o.Diagnostics.Add(diag.UnresolvedReference(string(phase), name, "", 0, detail, strictPromotion))
		}
		for _, e := range result.Errors {
			o.Diagnostics.Add(diag.PluginThrew(string(phase), name, fmt.Errorf("%s", e)))
		}
	}

	if phase == plugin.PhaseEnrichment {
		for _, result := range results {
			for kind := range result.Created.Nodes {
				o.changedTypes[kind] = true
			}
		}
	}

	if phase == plugin.PhaseGuarantee && o.Guarantees != nil {
		var (
			diags []diag.Diagnostic
			err   error
		)
		if len(o.changedTypes) > 0 {
			diags, err = o.Guarantees.CheckSelective(ctx, o.Graph, o.changedTypes)
		} else {
			diags, err = o.Guarantees.CheckAll(ctx, o.Graph)
		}
		if err != nil {
			return nil, fmt.Errorf("guarantee phase: %w", err)
		}
		for _, d := range diags {
			o.Diagnostics.Add(d)
		}
	}

	for _, iss := range issues {
		sev := diag.SeverityWarning
		if iss.Severity == "fatal" {
			sev = diag.SeverityFatal
		}
		o.Diagnostics.Add(diag.Diagnostic{
			Code: diag.CodeUnresolvedRef, Severity: sev, Phase: string(phase),
			Plugin: "validation", Message: fmt.Sprintf("[%s] %s (affects %s)", iss.Category, iss.Message, iss.Affects),
		})
	}

	outcome := "ok"
	if o.Diagnostics.HasFatal() {
		outcome = "aborted"
	}
	duration := time.Since(start)
	diag.RecordPhaseEnd(string(phase), outcome, duration.Seconds())
	o.Logger.Info("orchestrator.phase.complete", "phase", phase, "outcome", outcome, "duration_ms", duration.Milliseconds())

	return &PhaseReport{Phase: phase, Results: results, Duration: duration}, nil
}

// pluginsForPhase returns every registered plugin declaring phase,
// highest Priority first; Priority ties preserve registration order
// (sort.SliceStable) so two equal-priority plugins run in the order the
// caller listed them.
func (o *Orchestrator) pluginsForPhase(phase plugin.Phase) []plugin.Plugin {
	var out []plugin.Plugin
	for _, p := range o.Plugins {
		if p.Metadata().Phase == phase {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metadata().Priority > out[j].Metadata().Priority
	})
	return out
}
