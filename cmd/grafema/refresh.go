// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/pkg/config"
	"github.com/kraklabs/grafema/pkg/incremental"
	"github.com/kraklabs/grafema/pkg/manifest"
	"github.com/kraklabs/grafema/pkg/orchestrator"
)

// runRefresh executes the 'refresh' CLI command: build the graph, then
// exercise the freshness check and incremental reanalyzer against it.
// Since this CLI's reference graph backend is process-local memory, a
// later invocation of 'refresh' has nothing earlier to compare against;
// a deployment with a persistent, content-addressed store instead opens
// the existing graph here and skips straight to CheckFreshness.
func runRefresh(args []string, configPath string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema refresh [options]

Builds the graph, then runs the freshness check and incremental
reanalyzer over it to report which modules would need reanalysis.

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
		errors.FatalError(err, false)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	mf, err := manifest.Open(config.ManifestPath(cwd))
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot open manifest", err.Error(), "Check permissions on .grafema/manifest", err), false)
	}

	ctx := context.Background()
	g, o := newOrchestrator(mf, cfg.ExcludeGlobs, cfg.MaxFileSize, logger)

	if _, err := o.Run(ctx, orchestrator.RunOptions{ProjectPath: cwd, Config: cfg.AsMap()}); err != nil {
		errors.FatalError(errors.NewGraphIOError("Analysis run failed", err.Error(), "Check the log output above for the failing phase", err), false)
	}

	checker := &incremental.FreshnessChecker{ProjectPath: cwd}
	freshness, err := checker.CheckFreshness(ctx, g)
	if err != nil {
		errors.FatalError(errors.NewGraphIOError("Freshness check failed", err.Error(), "", err), false)
	}

	fmt.Printf("fresh=%d stale=%d deleted=%d (%dms)\n",
		freshness.FreshCount, freshness.StaleCount, freshness.DeletedCount, freshness.CheckDurationMs)

	if freshness.StaleCount == 0 {
		fmt.Println("nothing to reanalyze")
		return
	}

	reanalyzer := &incremental.Reanalyzer{ProjectPath: cwd, Manifest: mf}
	outcome, err := reanalyzer.Reanalyze(ctx, g, freshness.StaleModules)
	if err != nil {
		errors.FatalError(errors.NewGraphIOError("Reanalysis failed", err.Error(), "", err), false)
	}

	fmt.Printf("cleared=%d rebuilt=%v\n", outcome.NodesCleared, outcome.Rebuilt)
	for kind, n := range outcome.EdgesAdded {
		fmt.Printf("  +%s %d\n", kind, n)
	}
}
