package prommetrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestIncCounterRegistersAndAccumulates(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(Options{Namespace: "statuswire", Registerer: registry})

	ctx := context.Background()
	tags := map[string]string{"operation": "set_status", "success": "true"}
	recorder.IncCounter(ctx, "statuswire.operation.total", 1, tags)
	recorder.IncCounter(ctx, "statuswire.operation.total", 2, tags)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected one metric family, got %d", len(families))
	}
	family := families[0]
	if family.GetName() != "statuswire_statuswire_operation_total" {
		t.Fatalf("unexpected metric name %q", family.GetName())
	}
	if len(family.GetMetric()) != 1 {
		t.Fatalf("expected one series, got %d", len(family.GetMetric()))
	}
	if got := family.GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected counter value 3, got %v", got)
	}
}

func TestIncCounterCoercesLaterTagSets(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(Options{Registerer: registry})

	ctx := context.Background()
	recorder.IncCounter(ctx, "deliveries.total", 1, map[string]string{"outcome": "delivered"})
	// Unknown tag dropped, known tag missing reports "".
	recorder.IncCounter(ctx, "deliveries.total", 1, map[string]string{"surprise": "x"})

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected one metric family, got %d", len(families))
	}
	series := families[0].GetMetric()
	if len(series) != 2 {
		t.Fatalf("expected two series, got %d", len(series))
	}
	for _, metric := range series {
		if len(metric.GetLabel()) != 1 {
			t.Fatalf("expected exactly the outcome label, got %d labels", len(metric.GetLabel()))
		}
		if metric.GetLabel()[0].GetName() != "outcome" {
			t.Fatalf("unexpected label %q", metric.GetLabel()[0].GetName())
		}
	}
}

func TestObserveHistogramRecordsSamples(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(Options{Registerer: registry})

	ctx := context.Background()
	recorder.ObserveHistogram(ctx, "dispatch.duration_ms", 12.5, map[string]string{"event_type": "status.created"})
	recorder.ObserveHistogram(ctx, "dispatch.duration_ms", 7.5, map[string]string{"event_type": "status.created"})
	recorder.ObserveHistogram(ctx, "dispatch.duration_ms", -1, nil) // dropped

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected one metric family, got %d", len(families))
	}
	histogram := families[0].GetMetric()[0].GetHistogram()
	if histogram.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", histogram.GetSampleCount())
	}
	if histogram.GetSampleSum() != 20 {
		t.Fatalf("expected sample sum 20, got %v", histogram.GetSampleSum())
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"statuswire.dispatch.total": "statuswire_dispatch_total",
		"  spaced out  ":            "spaced_out",
		"9starts_with_digit":        "_9starts_with_digit",
		"":                          "",
	}
	for input, want := range cases {
		if got := sanitizeName(input); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNilAndZeroObservationsAreIgnored(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(Options{Registerer: registry})

	recorder.IncCounter(context.Background(), "noop.total", 0, nil)

	var nilRecorder *Recorder
	nilRecorder.IncCounter(context.Background(), "noop.total", 1, nil)
	nilRecorder.ObserveHistogram(context.Background(), "noop.duration", 1, nil)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 0 {
		t.Fatalf("expected no families, got %d", len(families))
	}
}
