package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecordItemCompletedEvent emits a span event for a finished work item
func RecordItemCompletedEvent(
	span trace.Span,
	projectID string,
	serviceTag string,
	resources int64,
	pages int64,
	durationSeconds float64,
) {
	if span == nil {
		return
	}

	span.AddEvent("extraction.item.completed", trace.WithAttributes(
		attribute.String("event.type", "extraction.item.completed"),
		attribute.String("project.id", projectID),
		attribute.String("service.tag", serviceTag),
		attribute.Int64("resources.count", resources),
		attribute.Int64("pages.count", pages),
		attribute.Float64("duration.seconds", durationSeconds),
	))
}

// RecordItemFailedEvent emits a span event for a failed work item
func RecordItemFailedEvent(
	span trace.Span,
	projectID string,
	serviceTag string,
	kind string,
	errorMsg string,
) {
	if span == nil {
		return
	}

	span.AddEvent("extraction.item.failed", trace.WithAttributes(
		attribute.String("event.type", "extraction.item.failed"),
		attribute.String("project.id", projectID),
		attribute.String("service.tag", serviceTag),
		attribute.String("error.kind", kind),
		attribute.String("error", errorMsg),
	))
}

// RecordRateLimitEvent emits a span event when a quota rejection throttles a service
func RecordRateLimitEvent(
	span trace.Span,
	serviceTag string,
	newRate float64,
) {
	if span == nil {
		return
	}

	span.AddEvent("extraction.ratelimit.applied", trace.WithAttributes(
		attribute.String("event.type", "extraction.ratelimit.applied"),
		attribute.String("service.tag", serviceTag),
		attribute.Float64("rate.current", newRate),
	))
}

// RecordRunCompletedEvent emits a span event summarizing a run
func RecordRunCompletedEvent(
	span trace.Span,
	provider string,
	rootScope string,
	completed int64,
	failed int64,
	resourcesWritten int64,
	durationSeconds float64,
) {
	if span == nil {
		return
	}

	span.AddEvent("extraction.run.completed", trace.WithAttributes(
		attribute.String("event.type", "extraction.run.completed"),
		attribute.String("provider", provider),
		attribute.String("root.scope", rootScope),
		attribute.Int64("items.completed", completed),
		attribute.Int64("items.failed", failed),
		attribute.Int64("resources.written", resourcesWritten),
		attribute.Float64("duration.seconds", durationSeconds),
	))
}
