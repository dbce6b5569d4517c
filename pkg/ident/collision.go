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

package ident

import "fmt"

// Candidate is one generated (collectionRef, baseId, context) triple
// submitted to the CollisionResolver. CollectionRef identifies which
// Collections slot the id belongs to (e.g. "functions", "variables") so
// the resolver's remapping can be applied back to the right records; it
// is opaque to the resolver itself.
type Candidate struct {
	CollectionRef string
	BaseID        string
	Context       []string
}

// CollisionResolver groups generated ids by their base id and assigns
// `#N` suffixes, in stable insertion (AST visit) order, to every group of
// size greater than one: for colliding base ids added in order i1, i2, …,
// the assigned suffixes are #0, #1, … in that same order.
type CollisionResolver struct {
	order []Candidate
}

// NewCollisionResolver creates an empty resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{}
}

// Add registers a generated id candidate in visit order and returns its
// slot index, stable for the lifetime of this resolver. A caller that
// needs to resolve a back-reference unambiguously (when the same textual
// base id may be generated at more than one definition site) should keep
// the slot index and use ResolveOrdered()[slot] instead of Rewrite, which
// can't distinguish same-string occurrences from each other.
func (r *CollisionResolver) Add(c Candidate) int {
	r.order = append(r.order, c)
	return len(r.order) - 1
}

// Remapping holds, for each pre-resolution base id, the resolved ids in
// the same order the colliding candidates were added. Because colliding
// candidates share an identical pre-resolution id, a plain map[string]string
// cannot carry more than one resolution per key; Rewrite instead consumes
// this queue front-to-back, which is correct as long as back-references
// are rewritten in the same relative order the candidates were generated
// in (true here: a visitor records a call argument's callId immediately
// after generating the callee's candidate id, in the same traversal pass).
type Remapping struct {
	queues map[string][]string
	next   map[string]int
}

// Resolve groups every added candidate by BaseID and assigns `#N` suffixes
// to each group of size greater than one, in the order candidates were
// added. It returns the old-id-to-new-id remapping; callers must apply it
// to every back-reference (e.g. callArguments.callId) that threaded the
// pre-resolution id through — failing to rewrite one is a correctness bug.
func (r *CollisionResolver) Resolve() *Remapping {
	counts := make(map[string]int, len(r.order))
	for _, c := range r.order {
		counts[c.BaseID]++
	}

	remap := &Remapping{
		queues: make(map[string][]string, len(counts)),
		next:   make(map[string]int, len(counts)),
	}
	for _, c := range r.order {
		if counts[c.BaseID] <= 1 {
			remap.queues[c.BaseID] = append(remap.queues[c.BaseID], c.BaseID)
			continue
		}
		n := len(remap.queues[c.BaseID])
		remap.queues[c.BaseID] = append(remap.queues[c.BaseID], fmt.Sprintf("%s#%d", c.BaseID, n))
	}
	return remap
}

// ResolveOrdered returns the resolved id for every candidate, in the exact
// order Add was called (so ResolveOrdered()[slot] is the unambiguous
// resolution for the candidate that Add returned slot for). Prefer this
// over Remapping.Rewrite whenever the caller retained slot indices.
func (r *CollisionResolver) ResolveOrdered() []string {
	counts := make(map[string]int, len(r.order))
	for _, c := range r.order {
		counts[c.BaseID]++
	}
	seen := make(map[string]int, len(counts))
	out := make([]string, len(r.order))
	for i, c := range r.order {
		if counts[c.BaseID] <= 1 {
			out[i] = c.BaseID
			continue
		}
		n := seen[c.BaseID]
		seen[c.BaseID] = n + 1
		out[i] = fmt.Sprintf("%s#%d", c.BaseID, n)
	}
	return out
}

// Rewrite applies the remapping to id, consuming the next queued
// resolution for id. An id with no queued resolution left (produced
// outside this resolver's run, e.g. a cross-file reference, or rewritten
// more times than it was generated) is returned unchanged.
func (remap *Remapping) Rewrite(id string) string {
	q, ok := remap.queues[id]
	if !ok {
		return id
	}
	i := remap.next[id]
	if i >= len(q) {
		return id
	}
	remap.next[id] = i + 1
	return q[i]
}
