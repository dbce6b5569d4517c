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

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kraklabs/grafema/pkg/hashutil"
)

// ComputeSemanticID builds a semantic id of the shape
// "type:context/path:name[:discriminator]". context is the scope stack
// returned by ScopeTracker.Context: module file
// first, then ordered scope labels. discriminator, when non-empty, is
// appended so callers can force uniqueness for constructs the scope stack
// alone can't distinguish (e.g. two object literal properties with the
// same key at the same position across a rewritten unwrap chain).
func ComputeSemanticID(kind, name string, context []string, discriminator string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(strings.Join(context, "/"))
	b.WriteByte(':')
	b.WriteString(name)
	if discriminator != "" {
		b.WriteByte(':')
		b.WriteString(discriminator)
	}
	return b.String()
}

// legacyIDPattern matches the legacy FILE:TYPE:name:line:column:counter
// shape that some visitors still emit and that every reader must accept.
// FILE may itself contain colons (Windows-style drive letters, or
// scheme-prefixed virtual paths), so the pattern anchors on the last five
// colon-separated fields instead of splitting greedily.
var legacyIDPattern = regexp.MustCompile(`^(.+):([A-Za-z_][A-Za-z0-9_]*):([^:]*):(\d+):(\d+):(\d+)$`)

// LegacyID is a parsed legacy-shaped identifier.
type LegacyID struct {
	File    string
	Type    string
	Name    string
	Line    int
	Column  int
	Counter int
}

// ParseLegacyID reports whether id has the legacy FILE:TYPE:name:line:column:counter
// shape, returning its parsed fields when it does.
func ParseLegacyID(id string) (LegacyID, bool) {
	m := legacyIDPattern.FindStringSubmatch(id)
	if m == nil {
		return LegacyID{}, false
	}
	line, err1 := strconv.Atoi(m[4])
	col, err2 := strconv.Atoi(m[5])
	counter, err3 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || err3 != nil {
		return LegacyID{}, false
	}
	return LegacyID{File: m[1], Type: m[2], Name: m[3], Line: line, Column: col, Counter: counter}, true
}

// FormatLegacyID renders the legacy shape for callers that still need to
// emit it (kept only for compatibility producers; new code should prefer
// ComputeSemanticID).
func FormatLegacyID(l LegacyID) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d:%d", l.File, l.Type, l.Name, l.Line, l.Column, l.Counter)
}

// Generator offers the three id shapes the extraction pipeline needs. A
// Generator is instantiated once per file and shared by every visitor run
// against it, one instance per top-level extraction call.
type Generator struct {
	file string
}

// NewGenerator creates an id generator scoped to file (project-root-relative path).
func NewGenerator(file string) *Generator {
	return &Generator{file: file}
}

// GenerateSimple produces a stable id keyed on type+name within the
// current scope context, for declared (named) constructs such as function
// and class declarations. The declaration's line is appended as the
// discriminator, so the id changes when the declaration moves to another
// line.
func (g *Generator) GenerateSimple(kind, name string, context []string, line int) string {
	return ComputeSemanticID(kind, name, context, strconv.Itoa(line))
}

// Generate produces an id for anonymous or position-bearing constructs,
// where counterRef disambiguates siblings that would otherwise collide
// (e.g. the Nth object literal at the same call site).
func (g *Generator) Generate(kind, name string, context []string, line, col int, counterRef *CounterRef) string {
	n := 0
	if counterRef != nil {
		n = counterRef.Next()
	}
	disc := fmt.Sprintf("%d:%d:%d", line, col, n)
	label := name
	if label == "" {
		label = "$anon"
	}
	return ComputeSemanticID(kind, label, context, disc)
}

// GenerateScope produces an id for a Scope node. col is optional; pass -1
// to omit it (e.g. for a scope that spans a whole file rather than a
// single bracketed block).
func (g *Generator) GenerateScope(kind, label string, context []string, line, col int) string {
	disc := strconv.Itoa(line)
	if col >= 0 {
		disc = fmt.Sprintf("%d:%d", line, col)
	}
	return ComputeSemanticID("SCOPE:"+kind, label, context, disc)
}

// ContentQualifiedID mixes a content hash into an id, for constructs whose
// semantic identity is better tied to their text than to position (used
// sparingly; most callers should prefer position+scope).
func ContentQualifiedID(kind, name, content string) string {
	return kind + ":" + name + ":" + hashutil.Truncated(hashutil.SumString(content), 16)
}
