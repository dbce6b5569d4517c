// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorAddTracksFatal(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasFatal())

	c.Add(DanglingEdge("ANALYSIS", "FunctionExtractor", "a.ts", 3, "missing target"))
	assert.False(t, c.HasFatal())

	c.Add(PluginThrew("ANALYSIS", "FunctionExtractor", errors.New("boom")))
	assert.True(t, c.HasFatal())
}

func TestCollectorAllReturnsSnapshot(t *testing.T) {
	c := NewCollector()
	c.Add(DanglingEdge("ANALYSIS", "p", "a.ts", 1, "x"))
	all := c.All()
	require.Len(t, all, 1)

	c.Add(DanglingEdge("ANALYSIS", "p", "a.ts", 2, "y"))
	assert.Len(t, all, 1, "prior snapshot must not observe later additions")
	assert.Len(t, c.All(), 2)
}

func TestCollectorForPhaseFilters(t *testing.T) {
	c := NewCollector()
	c.Add(DanglingEdge("ANALYSIS", "p", "a.ts", 1, "x"))
	c.Add(UnresolvedReference("ENRICHMENT", "q", "b.ts", 2, "y", false))

	assert.Len(t, c.ForPhase("ANALYSIS"), 1)
	assert.Len(t, c.ForPhase("ENRICHMENT"), 1)
	assert.Empty(t, c.ForPhase("VALIDATION"))
}

func TestUnresolvedReferenceSeverityDependsOnStrictMode(t *testing.T) {
	d := UnresolvedReference("ENRICHMENT", "ImportExportLinker", "a.ts", 1, "unresolved import", false)
	assert.Equal(t, SeverityWarning, d.Severity)

	strictD := UnresolvedReference("ENRICHMENT", "ImportExportLinker", "a.ts", 1, "unresolved import", true)
	assert.Equal(t, SeverityFatal, strictD.Severity)
}

func TestGuaranteeViolationSeverity(t *testing.T) {
	warn := GuaranteeViolation("GuaranteeChecker", "no-dangling-edges", false, "found 2")
	assert.Equal(t, SeverityWarning, warn.Severity)
	assert.Equal(t, "ENRICHMENT", warn.Phase)

	fatal := GuaranteeViolation("GuaranteeChecker", "no-dangling-edges", true, "found 2")
	assert.Equal(t, SeverityFatal, fatal.Severity)
}

func TestCountBySeverity(t *testing.T) {
	c := NewCollector()
	c.Add(DanglingEdge("ANALYSIS", "p", "a.ts", 1, "x"))
	c.Add(UnresolvedReference("ENRICHMENT", "q", "b.ts", 2, "y", true))

	counts := c.CountBySeverity()
	assert.Equal(t, 1, counts[SeverityWarning])
	assert.Equal(t, 1, counts[SeverityFatal])
}

func TestDiagnosticStringIncludesLocation(t *testing.T) {
	d := ParseError("ANALYSIS", "TSExtractor", "src/a.ts", 12, errors.New("unexpected token"))
	s := d.String()
	assert.Contains(t, s, "src/a.ts:12")
	assert.Contains(t, s, "ERR_PARSE")
}
