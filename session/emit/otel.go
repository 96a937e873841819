package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes an immediately-ended span (events are points in
// time, not durations) with:
//   - Span name: event.Msg (e.g. "trial_start", "session_end")
//   - Attributes: session ID, test, block, trial, and all Meta fields
//   - Status: error if event.Meta["error"] is set
//
// Usage:
//
//	tracer := otel.Tracer("cogtest-go")
//	emitter := emit.NewOTelEmitter(tracer)
//
//	engine, err := session.New(cfg, plan, st, emitter)
//
// Setup of the tracer provider (exporter, batching) is application code;
// see go.opentelemetry.io/otel/sdk/trace.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates a new OTelEmitter using the given tracer,
// typically otel.Tracer("cogtest-go").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates a span for the event and ends it immediately.
func (o *OTelEmitter) Emit(event Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("session.id", event.SessionID),
		attribute.String("session.test", event.Test),
		attribute.Int("session.block", event.Block),
		attribute.Int("session.trial", event.Trial),
	)

	for key, value := range event.Meta {
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String("meta."+key, v))
		case bool:
			span.SetAttributes(attribute.Bool("meta."+key, v))
		case int:
			span.SetAttributes(attribute.Int("meta."+key, v))
		case int64:
			span.SetAttributes(attribute.Int64("meta."+key, v))
		case float64:
			span.SetAttributes(attribute.Float64("meta."+key, v))
		default:
			span.SetAttributes(attribute.String("meta."+key, fmt.Sprintf("%v", v)))
		}
	}

	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}
