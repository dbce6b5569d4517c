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

// Package incremental holds the freshness check and incremental
// reanalysis machinery: which MODULE nodes are stale relative to the
// files on disk, and how to rebuild just those modules rather than the
// whole project.
package incremental

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/hashutil"
)

// StaleReason explains why a module failed its freshness check.
type StaleReason string

const (
	ReasonChanged    StaleReason = "changed"
	ReasonDeleted    StaleReason = "deleted"
	ReasonUnreadable StaleReason = "unreadable"
)

// StaleModule is one MODULE node the freshness check rejected.
type StaleModule struct {
	ModuleID graph.NodeID
	File     string
	Reason   StaleReason
	Detail   string
}

// Report summarizes one checkFreshness pass.
type Report struct {
	FreshCount      int
	StaleCount      int
	DeletedCount    int
	StaleModules    []StaleModule
	CheckDurationMs int64
}

// FreshnessChecker compares a MODULE node's stored contentHash against the
// sha256 of the file it names, batching the filesystem+hash work 50 at a
// time in parallel the way teacher's ingestion pipeline batches per-unit
// work, and reporting why each stale module went stale instead of just
// that it did.
type FreshnessChecker struct {
	// ProjectPath is the root every MODULE File attribute is relative to.
	ProjectPath string
	// BatchSize defaults to 50 when zero.
	BatchSize int
}

// CheckFreshness enumerates every MODULE node and classifies it fresh or
// stale.
func (c *FreshnessChecker) CheckFreshness(ctx context.Context, g graph.Graph) (*Report, error) {
	start := time.Now()
	batch := c.BatchSize
	if batch <= 0 {
		batch = 50
	}

	it, err := g.QueryNodes(ctx, graph.NodeFilter{Kind: graph.KindModule})
	if err != nil {
		return nil, fmt.Errorf("freshness: query modules: %w", err)
	}
	modules, err := drainNodes(ctx, it)
	if err != nil {
		return nil, fmt.Errorf("freshness: drain modules: %w", err)
	}

	report := &Report{}
	var mu sync.Mutex

	for offset := 0; offset < len(modules); offset += batch {
		end := offset + batch
		if end > len(modules) {
			end = len(modules)
		}
		var wg sync.WaitGroup
		for _, m := range modules[offset:end] {
			m := m
			wg.Add(1)
			go func() {
				defer wg.Done()
				stale := c.check(m)
				mu.Lock()
				defer mu.Unlock()
				if stale == nil {
					report.FreshCount++
					return
				}
				report.StaleCount++
				if stale.Reason == ReasonDeleted {
					report.DeletedCount++
				}
				report.StaleModules = append(report.StaleModules, *stale)
			}()
		}
		wg.Wait()
	}

	report.CheckDurationMs = time.Since(start).Milliseconds()
	return report, nil
}

func (c *FreshnessChecker) check(m graph.Node) *StaleModule {
	full := filepath.Join(c.ProjectPath, m.File)
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return &StaleModule{ModuleID: m.ID, File: m.File, Reason: ReasonDeleted, Detail: err.Error()}
		}
		return &StaleModule{ModuleID: m.ID, File: m.File, Reason: ReasonUnreadable, Detail: err.Error()}
	}

	actual := hashutil.Sum(content)
	stored := m.AttrString("contentHash")
	if actual != stored {
		return &StaleModule{ModuleID: m.ID, File: m.File, Reason: ReasonChanged, Detail: fmt.Sprintf("stored=%s actual=%s", stored, actual)}
	}
	return nil
}

func drainNodes(ctx context.Context, it graph.NodeIterator) ([]graph.Node, error) {
	defer it.Close()
	var out []graph.Node
	for {
		n, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, *n)
	}
}
