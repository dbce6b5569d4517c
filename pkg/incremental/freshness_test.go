// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package incremental

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memgraph"
	"github.com/kraklabs/grafema/pkg/hashutil"
)

func TestCheckFreshnessClassifiesFreshChangedDeletedUnreadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fresh := []byte("package fresh\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.go"), fresh, 0o644))

	changed := []byte("package changed\nfunc v2() {}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "changed.go"), changed, 0o644))

	unreadable := filepath.Join(dir, "unreadable.go")
	require.NoError(t, os.WriteFile(unreadable, []byte("package unreadable\n"), 0o000))
	t.Cleanup(func() { os.Chmod(unreadable, 0o644) })

	g := memgraph.New()
	mk := func(id, file string, content []byte) graph.Node {
		n := graph.Node{ID: graph.NodeID(id), Kind: graph.KindModule, File: file, Attrs: map[string]any{"contentHash": hashutil.Sum(content)}}
		require.NoError(t, g.AddNode(ctx, n))
		return n
	}
	mk("mod:fresh", "fresh.go", fresh)
	mk("mod:changed", "changed.go", []byte("package changed\n")) // stored hash predates the on-disk edit
	mk("mod:deleted", "gone.go", []byte("package gone\n"))
	if os.Getuid() != 0 {
		mk("mod:unreadable", "unreadable.go", []byte("package unreadable\n"))
	}

	checker := &FreshnessChecker{ProjectPath: dir}
	report, err := checker.CheckFreshness(ctx, g)
	require.NoError(t, err)

	byID := make(map[graph.NodeID]StaleModule)
	for _, sm := range report.StaleModules {
		byID[sm.ModuleID] = sm
	}

	assert.Equal(t, ReasonChanged, byID["mod:changed"].Reason)
	assert.Equal(t, ReasonDeleted, byID["mod:deleted"].Reason)
	assert.Equal(t, 1, report.DeletedCount)
	assert.GreaterOrEqual(t, report.FreshCount, 1)

	if os.Getuid() != 0 {
		assert.Equal(t, ReasonUnreadable, byID["mod:unreadable"].Reason)
	}
}

func TestCheckFreshnessBatchesAcrossMultipleRounds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	g := memgraph.New()

	content := []byte("package m\n")
	for i := 0; i < 120; i++ {
		require.NoError(t, g.AddNode(ctx, graph.Node{
			ID: graph.NodeID(fmt.Sprintf("mod:%d", i)), Kind: graph.KindModule, File: "m.go",
			Attrs: map[string]any{"contentHash": hashutil.Sum(content)},
		}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.go"), []byte("package m\n"), 0o644))

	checker := &FreshnessChecker{ProjectPath: dir, BatchSize: 10}
	report, err := checker.CheckFreshness(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 120, report.FreshCount)
}
