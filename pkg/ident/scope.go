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

// Package ident synthesizes stable, position- and scope-aware identifiers
// for graph nodes and resolves collisions between them, covering
// arbitrary entity kinds and scope-qualified contexts across a
// multi-language, multi-kind extraction core.
package ident

import "strconv"

// ScopeTracker maintains the ordered lexical-scope stack used as key
// material for semantic ids. One ScopeTracker is instantiated per file and
// threaded through the whole visitor pipeline.
type ScopeTracker struct {
	file    string
	stack   []scopeFrame
	counter map[string]int
}

type scopeFrame struct {
	label string
	// counters tracks per-scope, per-kind item counters so that two
	// anonymous siblings in the same scope (e.g. two arrow functions
	// passed as callback arguments) get distinct ordinal positions even
	// before collision resolution runs.
	counters map[string]int
}

// NewScopeTracker creates a tracker rooted at the module scope for file
// (the project-root-relative path).
func NewScopeTracker(file string) *ScopeTracker {
	return &ScopeTracker{
		file:    file,
		stack:   []scopeFrame{{label: "module", counters: map[string]int{}}},
		counter: map[string]int{},
	}
}

// Push enters a new lexical scope (function body, class body, block, …)
// labelled label, e.g. "function:handleRequest" or "class:Server".
func (t *ScopeTracker) Push(label string) {
	t.stack = append(t.stack, scopeFrame{label: label, counters: map[string]int{}})
}

// Pop leaves the current scope. Popping the module (root) scope is a
// no-op, so a tracker can never underflow mid-traversal.
func (t *ScopeTracker) Pop() {
	if len(t.stack) <= 1 {
		return
	}
	t.stack = t.stack[:len(t.stack)-1]
}

// Context returns the current scope stack: module file first, then each
// pushed scope label in order, outermost to innermost.
func (t *ScopeTracker) Context() []string {
	ctx := make([]string, 0, len(t.stack)+1)
	ctx = append(ctx, t.file)
	for _, f := range t.stack {
		ctx = append(ctx, f.label)
	}
	return ctx
}

// Depth reports how many scopes (including module) are currently open.
func (t *ScopeTracker) Depth() int {
	return len(t.stack)
}

// NextCounter returns the next ordinal for kind within the current (topmost)
// scope, starting at 0, and advances it. Used to disambiguate same-kind
// siblings (e.g. the Nth anonymous function literal in a given scope).
func (t *ScopeTracker) NextCounter(kind string) int {
	frame := &t.stack[len(t.stack)-1]
	n := frame.counters[kind]
	frame.counters[kind] = n + 1
	return n
}

// CounterRef is a mutable reference to a monotonic counter, the shape
// Collections use so multiple visitors can share and advance the same
// counter.
type CounterRef struct{ n int }

// NewCounterRef creates a counter starting at 0.
func NewCounterRef() *CounterRef { return &CounterRef{} }

// Next returns the current value and advances the counter.
func (c *CounterRef) Next() int {
	v := c.n
	c.n++
	return v
}

// String renders the counter's current value without advancing it, for
// inclusion in ids that want a stable textual suffix.
func (c *CounterRef) String() string {
	return strconv.Itoa(c.n)
}
