// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/pkg/config"
	"github.com/kraklabs/grafema/pkg/manifest"
	"github.com/kraklabs/grafema/pkg/orchestrator"
)

// runAnalyze executes the 'analyze' CLI command: run every phase of the
// pipeline over the project rooted at the current directory.
//
// Flags:
//   - --strict: promote ENRICHMENT warnings to fatal (default: false)
//   - --force: ignore the manifest and reanalyze every file (default: false)
//   - --debug: enable debug logging (default: false)
//   - --metrics-addr: HTTP address for Prometheus metrics (empty disables)
func runAnalyze(args []string, configPath string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Promote ENRICHMENT warnings to fatal")
	force := fs.Bool("force", false, "Ignore the manifest and reanalyze every file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema analyze [options]

Runs DISCOVERY through FLUSH over the project using .grafema/config.yaml.

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

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	mf, err := manifest.Open(config.ManifestPath(cwd))
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot open manifest", err.Error(), "Check permissions on .grafema/manifest", err), false)
	}

	g, o := newOrchestrator(mf, cfg.ExcludeGlobs, cfg.MaxFileSize, logger)

	report, err := o.Run(ctx, orchestrator.RunOptions{
		ProjectPath:   cwd,
		Config:        cfg.AsMap(),
		StrictMode:    *strict || cfg.StrictMode,
		ForceAnalysis: *force,
		OnProgress: func(done, total int, label string) {
			logger.Debug("progress", "done", done, "total", total, "label", label)
		},
	})
	if err != nil {
		errors.FatalError(errors.NewGraphIOError("Analysis run failed", err.Error(), "Check the log output above for the failing phase", err), false)
	}

	printReport(ctx, report, o, g)

	if report.Aborted {
		os.Exit(1)
	}
}

func loadProjectConfig(cwd, configPath string) (*config.Config, error) {
	if configPath != "" {
		cwd = configPath
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewConfigError(
				"No grafema configuration found",
				fmt.Sprintf("%s does not exist", config.Path(cwd)),
				"Run 'grafema init' to create one",
				err,
			)
		}
		return nil, errors.NewParseError("Cannot load grafema configuration", err.Error(), "Check that .grafema/config.yaml is valid YAML", err)
	}
	return cfg, nil
}

