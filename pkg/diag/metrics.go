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

// Package diag carries the analysis core's ambient instrumentation:
// Prometheus counters/histograms per phase, validator and freshness
// check, plus the diagnostic taxonomy every plugin reports through. A
// sync.Once-gated init() builds one package-level instance and registers
// it with prometheus.MustRegister on the first Record* call.
package diag

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	once sync.Once

	phasesStarted   *prometheus.CounterVec
	phasesCompleted *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec

	pluginsRun     *prometheus.CounterVec
	pluginErrors   *prometheus.CounterVec
	pluginDuration *prometheus.HistogramVec

	diagnosticsEmitted *prometheus.CounterVec

	freshnessChecks *prometheus.CounterVec
	freshnessStale  prometheus.Counter
	freshnessFresh  prometheus.Counter
	freshnessDur    prometheus.Histogram

	guaranteeChecks    *prometheus.CounterVec
	guaranteeViolation *prometheus.CounterVec
}

var m metrics

func (mm *metrics) init() {
	mm.once.Do(func() {
		buckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

		mm.phasesStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_phase_started_total", Help: "Orchestrator phases started, by phase.",
		}, []string{"phase"})
		mm.phasesCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_phase_completed_total", Help: "Orchestrator phases completed, by phase and outcome.",
		}, []string{"phase", "outcome"})
		mm.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "grafema_phase_duration_seconds", Help: "Phase wall-clock duration.", Buckets: buckets,
		}, []string{"phase"})

		mm.pluginsRun = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_plugin_run_total", Help: "Plugin executions, by plugin and phase.",
		}, []string{"plugin", "phase"})
		mm.pluginErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_plugin_errors_total", Help: "Plugin executions that returned or threw an error.",
		}, []string{"plugin", "phase"})
		mm.pluginDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "grafema_plugin_duration_seconds", Help: "Plugin execution duration.", Buckets: buckets,
		}, []string{"plugin", "phase"})

		mm.diagnosticsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_diagnostics_total", Help: "Diagnostics emitted, by code and severity.",
		}, []string{"code", "severity"})

		mm.freshnessChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_freshness_modules_total", Help: "Modules classified by freshness check, by reason.",
		}, []string{"reason"})
		mm.freshnessFresh = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grafema_freshness_fresh_total", Help: "Modules classified fresh.",
		})
		mm.freshnessStale = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grafema_freshness_stale_total", Help: "Modules classified stale (any reason).",
		})
		mm.freshnessDur = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "grafema_freshness_check_duration_seconds", Help: "Freshness check wall-clock duration.", Buckets: buckets,
		})

		mm.guaranteeChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_guarantee_checks_total", Help: "Guarantee rule evaluations, by rule.",
		}, []string{"rule"})
		mm.guaranteeViolation = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grafema_guarantee_violations_total", Help: "Guarantee rule violations, by rule and severity.",
		}, []string{"rule", "severity"})

		prometheus.MustRegister(
			mm.phasesStarted, mm.phasesCompleted, mm.phaseDuration,
			mm.pluginsRun, mm.pluginErrors, mm.pluginDuration,
			mm.diagnosticsEmitted,
			mm.freshnessChecks, mm.freshnessFresh, mm.freshnessStale, mm.freshnessDur,
			mm.guaranteeChecks, mm.guaranteeViolation,
		)
	})
}

// RecordPhaseStart marks a phase beginning.
func RecordPhaseStart(phase string) {
	m.init()
	m.phasesStarted.WithLabelValues(phase).Inc()
}

// RecordPhaseEnd marks a phase ending, with outcome "ok" or "aborted", and
// observes its duration in seconds.
func RecordPhaseEnd(phase, outcome string, seconds float64) {
	m.init()
	m.phasesCompleted.WithLabelValues(phase, outcome).Inc()
	m.phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordPlugin records one plugin execution, its phase, whether it erred,
// and its duration.
func RecordPlugin(name, phase string, errored bool, seconds float64) {
	m.init()
	m.pluginsRun.WithLabelValues(name, phase).Inc()
	if errored {
		m.pluginErrors.WithLabelValues(name, phase).Inc()
	}
	m.pluginDuration.WithLabelValues(name, phase).Observe(seconds)
}

// RecordDiagnostic records one emitted diagnostic by code and severity.
func RecordDiagnostic(code, severity string) {
	m.init()
	m.diagnosticsEmitted.WithLabelValues(code, severity).Inc()
}

// RecordFreshness records one module's freshness classification. reason is
// "fresh", "changed", "deleted", or "unreadable".
func RecordFreshness(reason string) {
	m.init()
	m.freshnessChecks.WithLabelValues(reason).Inc()
	if reason == "fresh" {
		m.freshnessFresh.Inc()
	} else {
		m.freshnessStale.Inc()
	}
}

// RecordFreshnessDuration observes the wall-clock cost of one checkFreshness call.
func RecordFreshnessDuration(seconds float64) {
	m.init()
	m.freshnessDur.Observe(seconds)
}

// RecordGuaranteeCheck records one guarantee rule evaluation and, if it
// failed, the violation at the given severity.
func RecordGuaranteeCheck(rule string, satisfied bool, severity string) {
	m.init()
	m.guaranteeChecks.WithLabelValues(rule).Inc()
	if !satisfied {
		m.guaranteeViolation.WithLabelValues(rule, severity).Inc()
	}
}
