package workflow

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for workflow spans.
const tracerName = "github.com/jonathan/career-navigator/workflow"

// Span names
const (
	spanInvoke = "workflow.invoke"
	spanNode   = "workflow.node"
)

func startInvokeSpan(ctx context.Context, tracer trace.Tracer, runID, start string) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanInvoke,
		trace.WithAttributes(
			attribute.String("workflow.run_id", runID),
			attribute.String("workflow.start_node", start),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// endInvokeSpan marks the run status. A pause is not an error.
func endInvokeSpan(span trace.Span, s *State) {
	span.SetAttributes(
		attribute.String("workflow.current_step", s.CurrentStep),
		attribute.Bool("workflow.needs_human_review", s.NeedsHumanReview),
	)
	if s.Failed() {
		span.SetStatus(codes.Error, s.Error)
		return
	}
	span.SetStatus(codes.Ok, "")
}

func startNodeSpan(ctx context.Context, tracer trace.Tracer, runID, node string) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanNode,
		trace.WithAttributes(
			attribute.String("workflow.run_id", runID),
			attribute.String("workflow.node", node),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func endNodeSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
