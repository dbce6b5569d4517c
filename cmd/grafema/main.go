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

// Package main implements the grafema CLI: a standalone driver for the
// analysis-core pipeline.
//
// Usage:
//
//	grafema init                 Create .grafema/config.yaml
//	grafema analyze [--strict]   Run the full phase pipeline over the project
//	grafema refresh               Incrementally reanalyze only stale modules
//	grafema status [--json]       Show graph node/edge counts and diagnostics
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .grafema/config.yaml (default: ./.grafema/config.yaml)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `grafema - static analysis-core CLI

Usage:
  grafema <command> [options]

Commands:
  init       Create .grafema/config.yaml
  analyze    Run the full phase pipeline over the project
  refresh    Incrementally reanalyze only stale modules
  status     Show graph node/edge counts and diagnostics

Global Options:
  --config       Path to .grafema/config.yaml
  --version      Show version and exit

Examples:
  grafema init
  grafema analyze
  grafema analyze --strict
  grafema refresh
  grafema status --json

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("grafema version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, *configPath)
	case "analyze":
		runAnalyze(cmdArgs, *configPath)
	case "refresh":
		runRefresh(cmdArgs, *configPath)
	case "status":
		runStatus(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
