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

package diag

import (
	"fmt"
	"sync"
)

// Code identifies a diagnostic's kind.
type Code string

const (
	CodeParseError         Code = "ERR_PARSE"
	CodePluginThrew        Code = "ERR_PLUGIN_THREW"
	CodeDanglingEdge       Code = "ERR_DANGLING_EDGE"
	CodeUnresolvedRef      Code = "ERR_UNRESOLVED_REFERENCE"
	CodeGraphIO            Code = "ERR_GRAPH_IO"
	CodeGuaranteeViolation Code = "GUARANTEE_VIOLATION"
)

// Severity is how a diagnostic affects run control flow.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// Diagnostic is one user-visible record: phase, plugin name, file/line
// when known, and a short code, stable enough to diff between runs.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Phase    string
	Plugin   string
	File     string
	Line     int
	Message  string
}

// String renders a diagnostic the way a CLI or log line would show it.
func (d Diagnostic) String() string {
	loc := ""
	if d.File != "" {
		if d.Line > 0 {
			loc = fmt.Sprintf(" %s:%d", d.File, d.Line)
		} else {
			loc = " " + d.File
		}
	}
	return fmt.Sprintf("[%s/%s]%s %s (%s): %s", d.Phase, d.Plugin, loc, d.Code, d.Severity, d.Message)
}

// Collector accumulates diagnostics across a run, addressable by
// (phase, plugin), and tracks whether a fatal diagnostic has been seen so
// the orchestrator can stop immediately.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	fatal       bool
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records d and updates the fatal flag. It also increments the
// grafema_diagnostics_total metric.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, d)
	if d.Severity == SeverityFatal {
		c.fatal = true
	}
	RecordDiagnostic(string(d.Code), string(d.Severity))
}

// HasFatal reports whether any fatal diagnostic has been recorded so far.
func (c *Collector) HasFatal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// All returns a snapshot of every diagnostic recorded so far, in order.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// ForPhase filters to diagnostics emitted during the given phase.
func (c *Collector) ForPhase(phase string) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.diagnostics {
		if d.Phase == phase {
			out = append(out, d)
		}
	}
	return out
}

// CountBySeverity tallies diagnostics by severity.
func (c *Collector) CountBySeverity() map[Severity]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[Severity]int)
	for _, d := range c.diagnostics {
		counts[d.Severity]++
	}
	return counts
}

// ParseError builds an ERR_PARSE diagnostic scoped to file: a parse error
// is recorded and that module is skipped for the run; other modules
// proceed.
func ParseError(phase, plugin, file string, line int, err error) Diagnostic {
	return Diagnostic{
		Code: CodeParseError, Severity: SeverityWarning,
		Phase: phase, Plugin: plugin, File: file, Line: line,
		Message: err.Error(),
	}
}

// PluginThrew builds an ERR_PLUGIN_THREW diagnostic at fatal severity,
// wrapping a plugin panic/error so the run can abort cleanly.
func PluginThrew(phase, plugin string, err error) Diagnostic {
	return Diagnostic{
		Code: CodePluginThrew, Severity: SeverityFatal,
		Phase: phase, Plugin: plugin,
		Message: err.Error(),
	}
}

// DanglingEdge builds an ERR_DANGLING_EDGE diagnostic at warning severity:
// a referenced node was missing during edge creation, so the edge was
// dropped.
func DanglingEdge(phase, plugin, file string, line int, detail string) Diagnostic {
	return Diagnostic{
		Code: CodeDanglingEdge, Severity: SeverityWarning,
		Phase: phase, Plugin: plugin, File: file, Line: line,
		Message: detail,
	}
}

// UnresolvedReference builds an ERR_UNRESOLVED_REFERENCE diagnostic. Its
// severity depends on strict mode: a warning in default mode, fatal in
// strict mode, aborting after the ENRICHMENT barrier.
func UnresolvedReference(phase, plugin, file string, line int, detail string, strict bool) Diagnostic {
	sev := SeverityWarning
	if strict {
		sev = SeverityFatal
	}
	return Diagnostic{
		Code: CodeUnresolvedRef, Severity: sev,
		Phase: phase, Plugin: plugin, File: file, Line: line,
		Message: detail,
	}
}

// GraphIOError builds an ERR_GRAPH_IO diagnostic at fatal severity: a
// graph I/O failure always propagates as fatal.
func GraphIOError(phase, plugin string, err error) Diagnostic {
	return Diagnostic{
		Code: CodeGraphIO, Severity: SeverityFatal,
		Phase: phase, Plugin: plugin,
		Message: err.Error(),
	}
}

// GuaranteeViolation builds a GUARANTEE_VIOLATION diagnostic, attached to
// phase ENRICHMENT, fatal when the guarantee is declared severity
// "error", otherwise a warning.
func GuaranteeViolation(plugin, rule string, errorSeverity bool, explanation string) Diagnostic {
	sev := SeverityWarning
	if errorSeverity {
		sev = SeverityFatal
	}
	return Diagnostic{
		Code: CodeGuaranteeViolation, Severity: sev,
		Phase: "ENRICHMENT", Plugin: plugin,
		Message: fmt.Sprintf("guarantee %q violated: %s", rule, explanation),
	}
}
