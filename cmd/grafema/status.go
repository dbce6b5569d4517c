// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/pkg/config"
	"github.com/kraklabs/grafema/pkg/manifest"
	"github.com/kraklabs/grafema/pkg/orchestrator"
)

// StatusResult is the JSON-serializable shape of 'grafema status'.
type StatusResult struct {
	ProjectID string         `json:"project_id"`
	Nodes     map[string]int `json:"nodes"`
	Edges     map[string]int `json:"edges"`
	Aborted   bool           `json:"aborted"`
	Warnings  int            `json:"warnings"`
	Fatal     int            `json:"fatal"`
	Timestamp time.Time      `json:"timestamp"`
}

// runStatus executes the 'status' CLI command: run the pipeline once,
// discarding the graph afterward, and report what it produced. The
// reference backend here is in-memory only; a deployment backed by a
// persistent, content-addressed graph would instead open the existing
// store and skip straight to counting.
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema status [options]

Runs the pipeline and reports resulting node/edge counts and diagnostics.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadProjectConfig(cwd, configPath)
	if err != nil {
		errors.FatalError(err, *jsonOutput)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mf, err := manifest.Open(config.ManifestPath(cwd))
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot open manifest", err.Error(), "Check permissions on .grafema/manifest", err), *jsonOutput)
	}

	ctx := context.Background()
	g, o := newOrchestrator(mf, cfg.ExcludeGlobs, cfg.MaxFileSize, logger)

	report, err := o.Run(ctx, orchestrator.RunOptions{ProjectPath: cwd, Config: cfg.AsMap()})
	if err != nil {
		errors.FatalError(errors.NewGraphIOError("Analysis run failed", err.Error(), "Check the log output above for the failing phase", err), *jsonOutput)
	}

	if !*jsonOutput {
		printReport(ctx, report, o, g)
		return
	}

	nodeCounts, _ := g.CountNodesByType(ctx)
	edgeCounts, _ := g.CountEdgesByType(ctx)
	bySeverity := o.Diagnostics.CountBySeverity()

	result := StatusResult{
		ProjectID: cfg.ProjectID,
		Nodes:     stringifyNodeCounts(nodeCounts),
		Edges:     stringifyEdgeCounts(edgeCounts),
		Aborted:   report.Aborted,
		Timestamp: time.Now().UTC(),
	}
	for sev, n := range bySeverity {
		switch sev {
		case "warning":
			result.Warnings = n
		case "fatal":
			result.Fatal = n
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
