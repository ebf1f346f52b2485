package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "bbwebhook"

// Result labels shared by the counters.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds the bbwebhook metric instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	WebhooksReceived  metric.Int64Counter
	CommentsPosted    metric.Int64Counter
	NotificationsSent metric.Int64Counter
	CommentDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the given provider.
// Pass otel.GetMeterProvider() to use the global provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.WebhooksReceived, err = meter.Int64Counter("bbwebhook.webhooks.received",
		metric.WithDescription("Number of webhook requests by event kind and outcome"))
	if err != nil {
		return nil, err
	}

	m.CommentsPosted, err = meter.Int64Counter("bbwebhook.comments.posted",
		metric.WithDescription("Number of pull request comment attempts by result"))
	if err != nil {
		return nil, err
	}

	m.NotificationsSent, err = meter.Int64Counter("bbwebhook.notifications.sent",
		metric.WithDescription("Number of notification deliveries by sink and result"))
	if err != nil {
		return nil, err
	}

	m.CommentDuration, err = meter.Float64Histogram("bbwebhook.comment.duration_seconds",
		metric.WithDescription("Pull request comment call duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordWebhook counts one inbound webhook. event is the event kind or
// "invalid"; outcome is the HTTP status class.
func (m *Metrics) RecordWebhook(ctx context.Context, event, outcome string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

// RecordComment counts one comment attempt and, unless skipped, its duration.
func (m *Metrics) RecordComment(ctx context.Context, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.CommentsPosted.Add(ctx, 1, attrs)
	if result != ResultSkipped {
		m.CommentDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// RecordNotification counts one delivery attempt on a sink.
func (m *Metrics) RecordNotification(ctx context.Context, sink, result string) {
	if m == nil {
		return
	}
	m.NotificationsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("result", result),
	))
}
