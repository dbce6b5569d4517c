// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/grafema/internal/errors"
	"github.com/kraklabs/grafema/pkg/config"
)

// runInit executes the 'init' CLI command, writing a default
// .grafema/config.yaml rooted at the current directory.
func runInit(args []string, configPath string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config")
	projectID := fs.String("project-id", "", "Project identifier (default: directory name)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: grafema init [options]

Creates .grafema/config.yaml with a single service rooted at ".".

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

	id := *projectID
	if id == "" {
		id = filepath.Base(cwd)
	}

	if _, err := os.Stat(config.Path(cwd)); err == nil && !*force {
		errors.FatalError(errors.NewConfigError(
			"Configuration already exists",
			fmt.Sprintf("%s already exists", config.Path(cwd)),
			"Re-run with --force to overwrite it",
			nil,
		), false)
	}

	cfg := config.DefaultConfig(id)
	if err := config.Save(cwd, cfg); err != nil {
		errors.FatalError(errors.NewConfigError("Cannot write configuration", err.Error(), "Check permissions on the project directory", err), false)
	}

	fmt.Printf("Created %s\n", config.Path(cwd))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  grafema analyze    Run the full phase pipeline")
}
