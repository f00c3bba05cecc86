// Metrics for one run of the injection pipeline
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"strings"
	"time"

	"gcode-inject/pkg/storage"
)

// PipelineMetrics holds the metrics recorded while parsing, locating and
// splicing documents. All methods are safe on a nil receiver, so callers
// that do not collect metrics can pass nil.
type PipelineMetrics struct {
	DocumentsParsed *Counter
	MovesParsed     *Counter
	ParseWarnings   *Counter
	LayersFound     *Gauge
	Injections      *Counter
	BlocksRemoved   *Counter
	MatchDistance   *Histogram
	StageDuration   *Histogram

	registry *Registry
}

// NewPipelineMetrics creates and registers the pipeline metrics.
func NewPipelineMetrics() *PipelineMetrics {
	m := &PipelineMetrics{
		DocumentsParsed: NewCounter("gcode_inject_documents_parsed_total", "Documents parsed"),
		MovesParsed:     NewCounter("gcode_inject_moves_total", "Motion instructions parsed, by kind"),
		ParseWarnings:   NewCounter("gcode_inject_parse_warnings_total", "Malformed coordinate tokens skipped"),
		LayersFound:     NewGauge("gcode_inject_layers", "Layer boundaries in the last parsed document"),
		Injections:      NewCounter("gcode_inject_injections_total", "Injection requests, by tool, mode and outcome"),
		BlocksRemoved:   NewCounter("gcode_inject_blocks_removed_total", "Injected blocks removed, by tool"),
		MatchDistance: NewHistogram("gcode_inject_match_distance_mm",
			"Planar distance between a point target and the chosen move",
			[]float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 50}),
		StageDuration: NewHistogram("gcode_inject_stage_duration_seconds",
			"Time spent per pipeline stage", DurationBuckets()),
		registry: NewRegistry(),
	}
	for _, metric := range []Metric{
		m.DocumentsParsed, m.MovesParsed, m.ParseWarnings, m.LayersFound,
		m.Injections, m.BlocksRemoved, m.MatchDistance, m.StageDuration,
	} {
		m.registry.MustRegister(metric)
	}
	return m
}

// RecordDocument records the shape of a freshly parsed document.
func (m *PipelineMetrics) RecordDocument(moves, depositing, warnings, layers int) {
	if m == nil {
		return
	}
	m.DocumentsParsed.Inc(nil)
	m.MovesParsed.Add(Labels{"kind": "deposit"}, uint64(depositing))
	m.MovesParsed.Add(Labels{"kind": "travel"}, uint64(moves-depositing))
	m.ParseWarnings.Add(nil, uint64(warnings))
	m.LayersFound.Set(nil, float64(layers))
}

// RecordInjection counts one injection request and its outcome
// (injected, skipped, replaced, failed).
func (m *PipelineMetrics) RecordInjection(tool, mode, outcome string) {
	if m == nil {
		return
	}
	m.Injections.Inc(Labels{"tool": tool, "mode": mode, "outcome": outcome})
}

// RecordMatchDistance records how far a point search had to reach.
func (m *PipelineMetrics) RecordMatchDistance(d float64) {
	if m == nil {
		return
	}
	m.MatchDistance.Observe(nil, d)
}

// RecordRemoval counts removed blocks.
func (m *PipelineMetrics) RecordRemoval(tool string, n int) {
	if m == nil {
		return
	}
	m.BlocksRemoved.Add(Labels{"tool": tool}, uint64(n))
}

// StartStage returns a function that records the stage's duration.
func (m *PipelineMetrics) StartStage(stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageDuration.Observe(Labels{"stage": stage}, time.Since(start).Seconds())
	}
}

// Registry returns the underlying registry
func (m *PipelineMetrics) Registry() *Registry {
	return m.registry
}

// Gather returns all metrics in Prometheus text format
func (m *PipelineMetrics) Gather() string {
	if m == nil {
		return ""
	}
	return m.registry.Gather()
}

// WriteTextfile atomically writes the metrics to path for a textfile
// collector.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	lines := strings.Split(strings.TrimSuffix(m.Gather(), "\n"), "\n")
	_, err := storage.WriteAtomic(path, lines, storage.WriteOptions{})
	return err
}
