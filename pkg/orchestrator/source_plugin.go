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

package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/kraklabs/grafema/pkg/build"
	"github.com/kraklabs/grafema/pkg/config"
	"github.com/kraklabs/grafema/pkg/extract"
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// SourceAnalysisPlugin walks the project tree (or, when ChangedFiles is
// set, just that subset), parses each source file and materializes it
// into the graph. It covers ANALYSIS: the per-file extract-then-build
// pipeline has no reason to split across the INDEXING/ANALYSIS boundary
// since neither step can run without the other's output.
type SourceAnalysisPlugin struct {
	// ExcludeGlobs narrows which files Execute walks past config.DefaultExcludeGlobs.
	ExcludeGlobs []string
	MaxFileSize  int64
}

var _ plugin.Plugin = (*SourceAnalysisPlugin)(nil)

func (p *SourceAnalysisPlugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "SourceAnalysisPlugin",
		Phase:    plugin.PhaseAnalysis,
		Priority: 100,
		Creates: plugin.CreatesDeclaration{
			Nodes: []graph.NodeKind{
				graph.KindModule, graph.KindFunction, graph.KindMethod, graph.KindClass,
				graph.KindParameter, graph.KindVariable, graph.KindConstant, graph.KindCall,
				graph.KindExpression, graph.KindImport, graph.KindExport, graph.KindLoop,
			},
			Edges: []graph.EdgeKind{graph.EdgeContains, graph.EdgeCalls, graph.EdgePassesArgument},
		},
	}
}

func (p *SourceAnalysisPlugin) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	files, err := p.filesToAnalyze(pc)
	if err != nil {
		return plugin.Result{}, fmt.Errorf("source_analysis: discover files: %w", err)
	}

	workers := workerCount(pc.Config)
	total := len(files)
	done := 0
	var mu sync.Mutex
	result := plugin.Result{Success: true, Created: plugin.CreatedCounts{
		Nodes: make(map[graph.NodeKind]int), Edges: make(map[graph.EdgeKind]int),
	}}

	// Batches of `workers` files run concurrently, with a barrier between
	// batches: every file in a batch must finish before the next starts, so
	// a fatal parse error can be surfaced without letting an unbounded
	// number of goroutines run ahead of it.
	for start := 0; start < len(files); start += workers {
		end := start + workers
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]

		var wg sync.WaitGroup
		for _, rel := range batch {
			rel := rel
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, e, werr := p.analyzeOne(ctx, pc, rel)
				mu.Lock()
				defer mu.Unlock()
				done++
				if pc.OnProgress != nil {
					pc.OnProgress(done, total, rel)
				}
				if werr != nil {
					result.Warnings = append(result.Warnings, fmt.Sprintf("source_analysis: %s: %v", rel, werr))
					return
				}
				for k, v := range n {
					result.Created.Nodes[k] += v
				}
				for k, v := range e {
					result.Created.Edges[k] += v
				}
			}()
		}
		wg.Wait()
	}

	return result, nil
}

// filesToAnalyze returns ChangedFiles verbatim when the caller narrowed
// the run (incremental reanalysis), otherwise walks ProjectPath for every
// file with a recognized extension, skipping excluded globs and
// oversized files the same way the config's ExcludeGlobs/MaxFileSize
// would during a full ingest.
func (p *SourceAnalysisPlugin) filesToAnalyze(pc *plugin.Context) ([]string, error) {
	if len(pc.ChangedFiles) > 0 {
		return pc.ChangedFiles, nil
	}

	excludes := p.ExcludeGlobs
	if len(excludes) == 0 {
		excludes = config.DefaultExcludeGlobs
	}

	var files []string
	err := filepath.WalkDir(pc.ProjectPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(pc.ProjectPath, path)
		if relErr != nil {
			return nil
		}
		slash := filepath.ToSlash(rel)
		if _, ok := extract.LanguageForExtension(filepath.Ext(path)); !ok {
			return nil
		}
		parts := strings.Split(slash, "/")
		for _, glob := range excludes {
			if matched, _ := filepath.Match(glob, slash); matched {
				return nil
			}
			if !strings.HasPrefix(glob, "**/") {
				continue
			}
			rest := strings.TrimPrefix(glob, "**/")
			dir, dirGlob := strings.CutSuffix(rest, "/**")
			for i := range parts {
				if matched, _ := filepath.Match(rest, strings.Join(parts[i:], "/")); matched {
					return nil
				}
				if matched, _ := filepath.Match(dir, parts[i]); dirGlob && matched && i < len(parts)-1 {
					return nil
				}
			}
		}
		if p.MaxFileSize > 0 {
			if info, statErr := d.Info(); statErr == nil && info.Size() > p.MaxFileSize {
				return nil
			}
		}
		files = append(files, slash)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (p *SourceAnalysisPlugin) analyzeOne(ctx context.Context, pc *plugin.Context, relFile string) (map[graph.NodeKind]int, map[graph.EdgeKind]int, error) {
	full := filepath.Join(pc.ProjectPath, relFile)
	source, err := os.ReadFile(full)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}

	lang, ok := extract.LanguageForExtension(filepath.Ext(relFile))
	if !ok {
		return nil, nil, fmt.Errorf("unsupported extension")
	}

	moduleID := "MODULE:" + relFile
	collections, err := extract.ExtractModuleCollections(ctx, lang, relFile, moduleID, source)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}

	if !pc.ForceAnalysis {
		if _, err := pc.Graph.RemoveNodesByFile(ctx, pc.ProjectPath, relFile); err != nil {
			return nil, nil, fmt.Errorf("clear prior nodes: %w", err)
		}
	}

	counter := &countingGraph{Graph: pc.Graph, nodes: make(map[graph.NodeKind]int), edges: make(map[graph.EdgeKind]int)}
	if err := build.New(counter).Build(ctx, collections); err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}
	if pc.Manifest != nil {
		_ = pc.Manifest.Record(moduleID, string(plugin.PhaseAnalysis), "done")
	}
	return counter.nodes, counter.edges, nil
}

// workerCount reads "workerCount" out of the loosely typed plugin config
// bag, falling back to one worker per CPU (capped at 8, matching the
// enrichment resolvers' own cap) when absent or invalid.
func workerCount(cfg map[string]any) int {
	if v, ok := cfg["workerCount"]; ok {
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

// countingGraph wraps a graph.Graph to tally AddNode/AddEdge calls by
// kind, so SourceAnalysisPlugin can report CreatedCounts without every
// backend needing to expose its own counters.
type countingGraph struct {
	graph.Graph
	mu    sync.Mutex
	nodes map[graph.NodeKind]int
	edges map[graph.EdgeKind]int
}

func (c *countingGraph) AddNode(ctx context.Context, n graph.Node) error {
	if err := c.Graph.AddNode(ctx, n); err != nil {
		return err
	}
	c.mu.Lock()
	c.nodes[n.Kind]++
	c.mu.Unlock()
	return nil
}

func (c *countingGraph) AddEdge(ctx context.Context, e graph.Edge) error {
	if err := c.Graph.AddEdge(ctx, e); err != nil {
		return err
	}
	c.mu.Lock()
	c.edges[e.Kind]++
	c.mu.Unlock()
	return nil
}
