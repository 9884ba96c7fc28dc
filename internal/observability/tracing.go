package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for pipeline spans.
const TracerName = "copilot.pipeline"

// Span attribute keys
const (
	AttrMeetingID    = "meeting.id"
	AttrMeetingUUID  = "meeting.uuid"
	AttrStep         = "pipeline.step"
	AttrOutcome      = "pipeline.outcome"
	AttrRecordID     = "record.id"
	AttrModel        = "llm.model"
	AttrOperation    = "llm.operation"
	AttrIsRelevant   = "analysis.relevant"
	AttrDownloadSize = "download.bytes"
)

// Tracer starts spans for pipeline runs and their steps.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the globally registered tracer provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartRun starts the root span for one webhook's pipeline run.
func (t *Tracer) StartRun(ctx context.Context, meetingID, meetingUUID string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String(AttrMeetingID, meetingID),
			attribute.String(AttrMeetingUUID, meetingUUID),
		),
	)
}

// StartStep starts a child span for a single pipeline step.
func (t *Tracer) StartStep(ctx context.Context, step string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "pipeline.step."+step,
		trace.WithAttributes(attribute.String(AttrStep, step)),
	)
}

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
