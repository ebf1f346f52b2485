package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/config"
	"github.com/Strob0t/bbwebhook/internal/domain/webhook"
	"github.com/Strob0t/bbwebhook/internal/port/broadcast"
	"github.com/Strob0t/bbwebhook/internal/port/commenter"
	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

// Notification text for push events.
const (
	PushNotificationTitle = "Webhook received!"
	pushNotificationHint  = "\nClick to view in Bitbucket"
)

// PullRequestProcessedMessage is returned for every accepted pull request event.
const PullRequestProcessedMessage = "Pull request created event processed"

// WebhookDispatcher performs the side effect for a validated event and
// builds the response returned to Bitbucket.
type WebhookDispatcher struct {
	notify    *NotificationService
	commenter commenter.Commenter
	hub       broadcast.Broadcaster
	messages  config.Messages
	comments  config.Comments
	metrics   *cfotel.Metrics
}

// NewWebhookDispatcher creates a dispatcher. notify, c and hub may be nil;
// a nil commenter behaves like one without credentials.
func NewWebhookDispatcher(
	notify *NotificationService,
	c commenter.Commenter,
	hub broadcast.Broadcaster,
	messages config.Messages,
	comments config.Comments,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		notify:    notify,
		commenter: c,
		hub:       hub,
		messages:  messages,
		comments:  comments,
	}
}

// SetMetrics attaches metric instruments. Nil disables recording.
func (d *WebhookDispatcher) SetMetrics(m *cfotel.Metrics) { d.metrics = m }

// Dispatch runs the event-specific side effect. Downstream failures are
// logged and never change the result.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, ev webhook.Event) webhook.OutboundResult {
	ctx, span := cfotel.StartDispatchSpan(ctx, string(ev.Kind()))
	defer span.End()

	var res webhook.OutboundResult
	switch e := ev.(type) {
	case webhook.PushEvent:
		res = d.dispatchPush(ctx, e)
	case webhook.PullRequestCreatedEvent:
		res = d.dispatchPullRequestCreated(ctx, e)
	default:
		return webhook.ResultFor(webhook.Unsupported())
	}

	if d.hub != nil {
		d.hub.BroadcastEvent(ctx, webhook.StreamType(ev), ev)
	}
	return res
}

// PushMessage returns the configured message for actor, or the default
// "<actor> committed <hash>" text.
func (d *WebhookDispatcher) PushMessage(ev webhook.PushEvent) string {
	if msg, ok := d.messages.Authors[ev.Actor]; ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("%s committed %s", ev.Actor, ev.CommitHash)
}

func (d *WebhookDispatcher) dispatchPush(ctx context.Context, ev webhook.PushEvent) webhook.OutboundResult {
	msg := d.PushMessage(ev)

	slog.InfoContext(ctx, "push event received",
		"author", ev.Actor,
		"commit", ev.CommitHash,
		"url", ev.CommitURL,
	)

	if d.notify != nil {
		d.notify.Notify(ctx, notifier.Notification{
			Title:   PushNotificationTitle,
			Message: msg + pushNotificationHint,
			URL:     ev.CommitURL,
			Source:  webhook.StreamPush,
		})
	}

	return webhook.Success(map[string]any{
		"data": map[string]any{
			"author":  ev.Actor,
			"commit":  ev.CommitHash,
			"url":     ev.CommitURL,
			"message": msg,
		},
	})
}

// CommentText returns the comment posted for a pull request by author.
func (d *WebhookDispatcher) CommentText(author string) string {
	if d.comments.PerAuthor {
		if text, ok := d.comments.Authors[author]; ok && text != "" {
			return text
		}
	}
	return d.comments.Default
}

func (d *WebhookDispatcher) dispatchPullRequestCreated(ctx context.Context, ev webhook.PullRequestCreatedEvent) webhook.OutboundResult {
	log := slog.With(
		"author", ev.Author,
		"workspace", ev.Workspace,
		"repo_slug", ev.RepoSlug,
	)
	if ev.PRID != nil {
		log = log.With("pr_id", *ev.PRID)
	}
	log.InfoContext(ctx, "pull request created event received", "title", ev.Title)

	processed := webhook.Success(map[string]any{"message": PullRequestProcessedMessage})

	if !ev.Addressable() {
		log.WarnContext(ctx, "pull request comment skipped, event lacks pull request id or repository")
		d.metrics.RecordComment(ctx, cfotel.ResultSkipped, 0)
		return processed
	}

	req := commenter.CommentRequest{
		Workspace: ev.Workspace,
		RepoSlug:  ev.RepoSlug,
		PRID:      *ev.PRID,
		Text:      d.CommentText(ev.Author),
	}

	start := time.Now()
	err := d.postComment(ctx, req)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, commenter.ErrNoCredentials):
		log.WarnContext(ctx, "pull request comment skipped, bitbucket credentials not configured")
		d.metrics.RecordComment(ctx, cfotel.ResultSkipped, elapsed)
	case err != nil:
		log.ErrorContext(ctx, "pull request comment failed", "error", err, "duration", elapsed)
		d.metrics.RecordComment(ctx, cfotel.ResultFailed, elapsed)
	default:
		log.InfoContext(ctx, "pull request comment posted", "duration", elapsed)
		d.metrics.RecordComment(ctx, cfotel.ResultOK, elapsed)
	}

	return processed
}

// postComment guards the commenter call so that nothing it does can fail
// the request.
func (d *WebhookDispatcher) postComment(ctx context.Context, req commenter.CommentRequest) (err error) {
	if d.commenter == nil {
		return commenter.ErrNoCredentials
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("comment panic: %v", r)
		}
	}()
	return d.commenter.AddComment(ctx, req)
}

// StatusClass returns "2xx", "4xx" or "5xx" for metrics labels.
func StatusClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "5xx"
	case status >= http.StatusBadRequest:
		return "4xx"
	default:
		return "2xx"
	}
}
