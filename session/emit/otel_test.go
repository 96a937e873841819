package emit

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer() (*OTelEmitter, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return NewOTelEmitter(provider.Tracer("test")), exporter
}

func spanAttr(span tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOTelEmitter_CreatesSpanPerEvent(t *testing.T) {
	emitter, exporter := newTestTracer()

	emitter.Emit(testEvent())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "trial_start" {
		t.Errorf("span name = %q, want trial_start", span.Name)
	}

	if v, ok := spanAttr(span, "session.id"); !ok || v.AsString() != "s-001" {
		t.Errorf("session.id attribute missing or wrong: %v", v.AsString())
	}
	if v, ok := spanAttr(span, "session.trial"); !ok || v.AsInt64() != 3 {
		t.Errorf("session.trial attribute missing or wrong: %v", v.AsInt64())
	}
	if v, ok := spanAttr(span, "meta.rt_ms"); !ok || v.AsInt64() != 1200 {
		t.Errorf("meta.rt_ms attribute missing or wrong: %v", v.AsInt64())
	}
}

func TestOTelEmitter_TypedMetaAttributes(t *testing.T) {
	emitter, exporter := newTestTracer()

	event := testEvent()
	event.Meta = map[string]interface{}{
		"outcome":  "completed",
		"resumed":  true,
		"accuracy": 0.75,
	}
	emitter.Emit(event)

	span := exporter.GetSpans()[0]
	if v, _ := spanAttr(span, "meta.outcome"); v.AsString() != "completed" {
		t.Errorf("meta.outcome = %v", v.AsString())
	}
	if v, _ := spanAttr(span, "meta.resumed"); !v.AsBool() {
		t.Error("meta.resumed not recorded as bool true")
	}
	if v, _ := spanAttr(span, "meta.accuracy"); v.AsFloat64() != 0.75 {
		t.Errorf("meta.accuracy = %v", v.AsFloat64())
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, exporter := newTestTracer()

	event := testEvent()
	event.Msg = "save_failed"
	event.Meta = map[string]interface{}{"error": "disk full"}
	emitter.Emit(event)

	span := exporter.GetSpans()[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status = %v, want error", span.Status.Code)
	}
	if span.Status.Description != "disk full" {
		t.Errorf("status description = %q, want the error text", span.Status.Description)
	}
	if len(span.Events) == 0 {
		t.Error("no error event recorded on the span")
	}
}
