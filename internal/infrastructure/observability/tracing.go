package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "support-relay"

// GetTracer returns the service tracer.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartInboundSpan starts a span around handling one customer message.
func StartInboundSpan(ctx context.Context, sender string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "routing.inbound",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("message.sender_address", MaskAddress(sender))),
	)
}

// StartConversationSpan starts a span for an operation on an existing conversation.
func StartConversationSpan(ctx context.Context, operation string, conversationID uint) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "conversation."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("conversation.id", int64(conversationID))),
	)
}

// StartProviderSpan starts a client span around a call to an external provider.
func StartProviderSpan(ctx context.Context, provider, operation string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, provider+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider.name", provider)),
	)
}

// SetAttempts records how many attempts a provider call took.
func SetAttempts(span trace.Span, attempts int) {
	span.SetAttributes(attribute.Int("provider.attempts", attempts))
}

// StartSweepSpan starts a span for one reaper sweep.
func StartSweepSpan(ctx context.Context) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "reaper.sweep", trace.WithSpanKind(trace.SpanKindInternal))
}

// AddStatusTransition adds a status transition event to a span.
func AddStatusTransition(span trace.Span, fromStatus, toStatus string) {
	span.AddEvent("status.transition",
		trace.WithAttributes(
			attribute.String("status.from", fromStatus),
			attribute.String("status.to", toStatus),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
