package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bbwebhook"

// StartDispatchSpan starts a span for dispatching a validated event.
func StartDispatchSpan(ctx context.Context, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "webhook.dispatch",
		trace.WithAttributes(attribute.String("webhook.event", kind)),
	)
}

// StartCommentSpan starts a span for a pull request comment post.
func StartCommentSpan(ctx context.Context, workspace, repoSlug string, prID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "bitbucket.comment",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bitbucket.workspace", workspace),
			attribute.String("bitbucket.repo_slug", repoSlug),
			attribute.Int64("bitbucket.pr_id", prID),
		),
	)
}

// StartNotifySpan starts a span for one notification sink delivery.
func StartNotifySpan(ctx context.Context, sink string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "notify",
		trace.WithAttributes(attribute.String("notify.sink", sink)),
	)
}
