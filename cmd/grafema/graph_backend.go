// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/graph/memgraph"
)

// newGraphBackend returns the reference in-memory Graph. A persistent,
// content-addressed backend is a separate downstream concern this CLI
// does not provide; memgraph.Graph satisfies the same capability
// interface so swapping one in later needs no change here.
func newGraphBackend() graph.Graph {
	return memgraph.New()
}
