package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric recorders for extraction runs. All are safe to call before
// InitOTEL: unset instruments are skipped.

// RecordItemCompleted counts a finished work item and its duration.
func RecordItemCompleted(ctx context.Context, projectID, serviceTag string, seconds float64) {
	if ItemsCompleted != nil {
		ItemsCompleted.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("project_id", projectID),
				attribute.String("service_tag", serviceTag),
			))
	}
	if ItemDuration != nil {
		ItemDuration.Record(ctx, seconds,
			metric.WithAttributes(
				attribute.String("service_tag", serviceTag),
			))
	}
}

// RecordItemFailed counts a work item that gave up with the error kind.
func RecordItemFailed(ctx context.Context, projectID, serviceTag, kind string) {
	if ItemsFailed == nil {
		return
	}
	ItemsFailed.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.String("service_tag", serviceTag),
			attribute.String("error_kind", kind),
		))
}

// RecordItemSkipped counts an item never handed to a worker.
func RecordItemSkipped(ctx context.Context, serviceTag, reason string) {
	if ItemsSkipped == nil {
		return
	}
	ItemsSkipped.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("service_tag", serviceTag),
			attribute.String("reason", reason),
		))
}

// RecordPagesFetched counts listing pages drained from a service.
func RecordPagesFetched(ctx context.Context, serviceTag string, n int64) {
	if PagesFetched == nil || n == 0 {
		return
	}
	PagesFetched.Add(ctx, n,
		metric.WithAttributes(
			attribute.String("service_tag", serviceTag),
		))
}

// RecordResourcesWritten counts resource files landed in the sink.
func RecordResourcesWritten(ctx context.Context, serviceTag string, n int64) {
	if ResourcesWritten == nil || n == 0 {
		return
	}
	ResourcesWritten.Add(ctx, n,
		metric.WithAttributes(
			attribute.String("service_tag", serviceTag),
		))
}

// RecordRetryAttempt counts one backoff-and-retry cycle.
func RecordRetryAttempt(ctx context.Context, op string) {
	if RetryAttempts == nil {
		return
	}
	RetryAttempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
		))
}

// RecordRateLimitSignal counts a quota rejection and gauges the lowered rate.
func RecordRateLimitSignal(ctx context.Context, serviceTag string, newRate float64) {
	if RateLimitSignals != nil {
		RateLimitSignals.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("service_tag", serviceTag),
			))
	}
	if ThrottleRate != nil {
		ThrottleRate.Record(ctx, newRate,
			metric.WithAttributes(
				attribute.String("service_tag", serviceTag),
			))
	}
}

// RecordQueueDepth gauges the number of queued work items.
func RecordQueueDepth(ctx context.Context, n int64) {
	if QueueDepth == nil {
		return
	}
	QueueDepth.Record(ctx, n)
}
