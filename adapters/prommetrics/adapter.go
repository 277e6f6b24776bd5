package prommetrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zzstoatzz/statuswire/core"
)

// Options configure the recorder. A nil Registerer falls back to the
// process-default registry, which is what the daemon wants; tests pass their
// own prometheus.NewRegistry().
type Options struct {
	Namespace  string
	Registerer prometheus.Registerer
	Buckets    []float64
}

// Recorder bridges core.MetricsRecorder onto prometheus collectors. Vectors
// are created on first observation of a metric name; the tag keys seen first
// become that metric's label schema, and later observations are coerced onto
// it: missing tags report "", unknown tags are dropped. Core emits stable
// tag sets per metric name, so coercion only matters for host code.
type Recorder struct {
	namespace  string
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*counterEntry
	histograms map[string]*histogramEntry
}

type counterEntry struct {
	vec    *prometheus.CounterVec
	labels []string
}

type histogramEntry struct {
	vec    *prometheus.HistogramVec
	labels []string
}

func NewRecorder(opts Options) *Recorder {
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	return &Recorder{
		namespace:  sanitizeName(opts.Namespace),
		registerer: registerer,
		buckets:    buckets,
		counters:   map[string]*counterEntry{},
		histograms: map[string]*histogramEntry{},
	}
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	entry := r.counter(name, tags)
	if entry == nil {
		return
	}
	entry.vec.With(coerceLabels(entry.labels, tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	entry := r.histogram(name, tags)
	if entry == nil {
		return
	}
	entry.vec.With(coerceLabels(entry.labels, tags)).Observe(value)
}

func (r *Recorder) counter(name string, tags map[string]string) *counterEntry {
	metric := sanitizeName(name)
	if metric == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.counters[metric]; ok {
		return entry
	}
	labels := labelKeys(tags)
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      metric,
		Help:      "statuswire counter " + metric,
	}, labels)
	registered, ok := r.register(vec).(*prometheus.CounterVec)
	if !ok {
		return nil
	}
	entry := &counterEntry{vec: registered, labels: labels}
	r.counters[metric] = entry
	return entry
}

func (r *Recorder) histogram(name string, tags map[string]string) *histogramEntry {
	metric := sanitizeName(name)
	if metric == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.histograms[metric]; ok {
		return entry
	}
	labels := labelKeys(tags)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      metric,
		Help:      "statuswire histogram " + metric,
		Buckets:   r.buckets,
	}, labels)
	registered, ok := r.register(vec).(*prometheus.HistogramVec)
	if !ok {
		return nil
	}
	entry := &histogramEntry{vec: registered, labels: labels}
	r.histograms[metric] = entry
	return entry
}

// register tolerates duplicate registration so two recorders sharing one
// registry (daemon restart paths, tests) reuse the existing collector.
func (r *Recorder) register(collector prometheus.Collector) prometheus.Collector {
	err := r.registerer.Register(collector)
	if err == nil {
		return collector
	}
	var already prometheus.AlreadyRegisteredError
	if asAlreadyRegistered(err, &already) {
		return already.ExistingCollector
	}
	return nil
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	if typed, ok := err.(prometheus.AlreadyRegisteredError); ok {
		*target = typed
		return true
	}
	return false
}

func labelKeys(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		sanitized := sanitizeName(key)
		if sanitized == "" {
			continue
		}
		keys = append(keys, sanitized)
	}
	sort.Strings(keys)
	return keys
}

func coerceLabels(schema []string, tags map[string]string) prometheus.Labels {
	labels := make(prometheus.Labels, len(schema))
	for _, key := range schema {
		labels[key] = ""
	}
	for key, value := range tags {
		sanitized := sanitizeName(key)
		if _, ok := labels[sanitized]; ok {
			labels[sanitized] = value
		}
	}
	return labels
}

// sanitizeName maps core metric names like "statuswire.dispatch.duration_ms"
// onto the prometheus charset.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(name))
	for index, char := range name {
		switch {
		case char >= 'a' && char <= 'z',
			char >= 'A' && char <= 'Z',
			char == '_', char == ':':
			builder.WriteRune(char)
		case char >= '0' && char <= '9':
			if index == 0 {
				builder.WriteByte('_')
			}
			builder.WriteRune(char)
		default:
			builder.WriteByte('_')
		}
	}
	return builder.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
