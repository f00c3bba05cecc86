// Metrics collection for the injection pipeline
//
// Provides Prometheus-compatible metrics:
// - Counter: Monotonically increasing values
// - Gauge: Values that can go up and down
// - Histogram: Distribution of observations in buckets
//
// A run is short-lived, so nothing is scraped. Gather renders the Prometheus
// text format with series sorted by label set, suitable for a node
// exporter textfile collector.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Labels represents metric labels as key-value pairs
type Labels map[string]string

// String returns labels in Prometheus format
func (l Labels) String() string {
	return formatLabels(l, "", "")
}

func (l Labels) sortedKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// key identifies a label set within one metric
func (l Labels) key() string {
	var sb strings.Builder
	for i, k := range l.sortedKeys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

// formatLabels formats labels for Prometheus output. A non-empty extraKey
// is appended last, as histograms do with "le".
func formatLabels(labels Labels, extraKey, extraValue string) string {
	if len(labels) == 0 && extraKey == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	write := func(k, v string) {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabel(v))
		sb.WriteByte('"')
	}
	for _, k := range labels.sortedKeys() {
		write(k, labels[k])
	}
	if extraKey != "" {
		write(extraKey, extraValue)
	}
	sb.WriteByte('}')
	return sb.String()
}

// escapeLabel escapes special characters in label values
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// formatFloat formats a float64 for Prometheus output
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Metric is the interface for all metric types
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

// family holds the series of one metric keyed by label set.
type family[V any] struct {
	name   string
	help   string
	mu     sync.Mutex
	series map[string]*series[V]
}

type series[V any] struct {
	labels Labels
	value  V
}

func (f *family[V]) init(name, help string) {
	f.name, f.help = name, help
	f.series = make(map[string]*series[V])
}

// with runs fn on the series for labels, creating it on first use.
func (f *family[V]) with(labels Labels, fn func(v *V)) {
	key := labels.key()
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[key]
	if !ok {
		cp := make(Labels, len(labels))
		for k, v := range labels {
			cp[k] = v
		}
		s = &series[V]{labels: cp}
		f.series[key] = s
	}
	fn(&s.value)
}

// get returns the value for labels, or the zero value.
func (f *family[V]) get(labels Labels) V {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.series[labels.key()]; ok {
		return s.value
	}
	var zero V
	return zero
}

// each visits every series in label-key order.
func (f *family[V]) each(fn func(labels Labels, v V)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := f.series[k]
		fn(s.labels, s.value)
	}
}

func writeHeader(sb *strings.Builder, name, help string, t MetricType) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, t)
}

// Counter is a monotonically increasing metric
type Counter struct {
	family[uint64]
}

// NewCounter creates a new counter metric
func NewCounter(name, help string) *Counter {
	c := &Counter{}
	c.init(name, help)
	return c
}

func (c *Counter) Name() string     { return c.name }
func (c *Counter) Help() string     { return c.help }
func (c *Counter) Type() MetricType { return TypeCounter }

// Inc increments the counter by 1
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add increments the counter by the given value
func (c *Counter) Add(labels Labels, delta uint64) {
	c.with(labels, func(v *uint64) { *v += delta })
}

// Get returns the current counter value for labels
func (c *Counter) Get(labels Labels) uint64 {
	return c.get(labels)
}

func (c *Counter) Write(sb *strings.Builder) {
	writeHeader(sb, c.name, c.help, TypeCounter)
	c.each(func(labels Labels, v uint64) {
		fmt.Fprintf(sb, "%s%s %d\n", c.name, formatLabels(labels, "", ""), v)
	})
}

// Gauge is a metric that can go up and down
type Gauge struct {
	family[float64]
}

// NewGauge creates a new gauge metric
func NewGauge(name, help string) *Gauge {
	g := &Gauge{}
	g.init(name, help)
	return g
}

func (g *Gauge) Name() string     { return g.name }
func (g *Gauge) Help() string     { return g.help }
func (g *Gauge) Type() MetricType { return TypeGauge }

// Set sets the gauge to the given value
func (g *Gauge) Set(labels Labels, value float64) {
	g.with(labels, func(v *float64) { *v = value })
}

// Add adds the given value to the gauge
func (g *Gauge) Add(labels Labels, delta float64) {
	g.with(labels, func(v *float64) { *v += delta })
}

// Get returns the current gauge value for labels
func (g *Gauge) Get(labels Labels) float64 {
	return g.get(labels)
}

func (g *Gauge) Write(sb *strings.Builder) {
	writeHeader(sb, g.name, g.help, TypeGauge)
	g.each(func(labels Labels, v float64) {
		fmt.Fprintf(sb, "%s%s %s\n", g.name, formatLabels(labels, "", ""), formatFloat(v))
	})
}

// HistogramSnapshot is a point-in-time view of one histogram series.
// Buckets holds cumulative counts, one per upper bound.
type HistogramSnapshot struct {
	Count   uint64
	Sum     float64
	Buckets []uint64
}

// Histogram tracks the distribution of observations
type Histogram struct {
	family[HistogramSnapshot]
	bounds []float64
}

// NewHistogram creates a new histogram metric with the given bucket bounds
func NewHistogram(name, help string, bounds []float64) *Histogram {
	sorted := make([]float64, len(bounds))
	copy(sorted, bounds)
	sort.Float64s(sorted)
	h := &Histogram{bounds: sorted}
	h.init(name, help)
	return h
}

// DurationBuckets suits per-document processing times in seconds
func DurationBuckets() []float64 {
	return []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
}

func (h *Histogram) Name() string     { return h.name }
func (h *Histogram) Help() string     { return h.help }
func (h *Histogram) Type() MetricType { return TypeHistogram }

// Observe records a value in the histogram
func (h *Histogram) Observe(labels Labels, value float64) {
	h.with(labels, func(s *HistogramSnapshot) {
		if s.Buckets == nil {
			s.Buckets = make([]uint64, len(h.bounds))
		}
		s.Count++
		s.Sum += value
		for i, bound := range h.bounds {
			if value <= bound {
				s.Buckets[i]++
			}
		}
	})
}

// Timer returns a function that records the elapsed time when called
func (h *Histogram) Timer(labels Labels) func() {
	start := time.Now()
	return func() {
		h.Observe(labels, time.Since(start).Seconds())
	}
}

// Snapshot returns a copy of the series for labels
func (h *Histogram) Snapshot(labels Labels) HistogramSnapshot {
	s := h.get(labels)
	buckets := make([]uint64, len(h.bounds))
	copy(buckets, s.Buckets)
	s.Buckets = buckets
	return s
}

// Bounds returns the bucket upper bounds
func (h *Histogram) Bounds() []float64 {
	out := make([]float64, len(h.bounds))
	copy(out, h.bounds)
	return out
}

func (h *Histogram) Write(sb *strings.Builder) {
	writeHeader(sb, h.name, h.help, TypeHistogram)
	h.each(func(labels Labels, s HistogramSnapshot) {
		for i, bound := range h.bounds {
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, formatLabels(labels, "le", formatFloat(bound)), s.Buckets[i])
		}
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, formatLabels(labels, "le", "+Inf"), s.Count)
		fmt.Fprintf(sb, "%s_sum%s %s\n", h.name, formatLabels(labels, "", ""), formatFloat(s.Sum))
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, formatLabels(labels, "", ""), s.Count)
	})
}

// Registry holds all registered metrics
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string // Preserve registration order
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]Metric),
	}
}

// Register adds a metric to the registry
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := metric.Name()
	if _, exists := r.metrics[name]; exists {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.metrics[name] = metric
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a metric and panics on error
func (r *Registry) MustRegister(metric Metric) {
	if err := r.Register(metric); err != nil {
		panic(err)
	}
}

// Get returns a metric by name
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather collects all metrics in Prometheus text format
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].Write(&sb)
	}
	return sb.String()
}
