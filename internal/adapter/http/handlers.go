package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/adapter/ws"
	"github.com/Strob0t/bbwebhook/internal/domain/webhook"
	"github.com/Strob0t/bbwebhook/internal/service"
)

// WebhookInfoMessage is returned by GET on the webhook route.
const WebhookInfoMessage = "Bitbucket webhook endpoint is running. Configure your repository webhook to point to this URL."

const defaultMaxBodyBytes = 1 << 20

// CommentAPIStatus reports the state of the pull request comment client.
type CommentAPIStatus interface {
	Configured() bool
	BreakerState() string
}

// Handlers holds the collaborators of the HTTP endpoints. Only Dispatcher
// is required.
type Handlers struct {
	Dispatcher   *service.WebhookDispatcher
	Notify       *service.NotificationService
	CommentAPI   CommentAPIStatus
	Hub          *ws.Hub
	Metrics      *cfotel.Metrics
	MaxBodyBytes int64
}

// HandleWebhook handles POST on the webhook route.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventKey := r.Header.Get(webhook.HeaderEventKey)

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Metrics.RecordWebhook(ctx, "unknown", service.StatusClass(http.StatusRequestEntityTooLarge))
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		slog.WarnContext(ctx, "failed to read webhook body", "error", err)
		h.Metrics.RecordWebhook(ctx, "unknown", service.StatusClass(http.StatusBadRequest))
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	slog.DebugContext(ctx, "webhook payload", "event_key", eventKey, "body", string(body))

	ev, err := service.ParseEvent(body, eventKey)
	if err != nil {
		res := webhook.ResultFor(err)
		var fault *webhook.Fault
		if errors.As(err, &fault) {
			slog.ErrorContext(ctx, "webhook processing failed", "error", err, "event_key", eventKey)
		} else {
			slog.WarnContext(ctx, "webhook rejected", "reason", err.Error(), "event_key", eventKey)
		}
		h.Metrics.RecordWebhook(ctx, "unknown", service.StatusClass(res.HTTPStatus))
		writeResult(w, res)
		return
	}

	res := h.Dispatcher.Dispatch(ctx, ev)
	h.Metrics.RecordWebhook(ctx, string(ev.Kind()), service.StatusClass(res.HTTPStatus))
	writeResult(w, res)
}

// WebhookInfo handles GET on the webhook route.
func (h *Handlers) WebhookInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "active",
		"message": WebhookInfoMessage,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":                 "ok",
		"desktop_notifications":  false,
		"comment_api_configured": false,
		"sinks":                  []string{},
	}
	if h.Notify != nil {
		resp["desktop_notifications"] = h.Notify.HasLocalSink()
		resp["sinks"] = h.Notify.Sinks()
	}
	if h.CommentAPI != nil {
		resp["comment_api_configured"] = h.CommentAPI.Configured()
		resp["breaker"] = h.CommentAPI.BreakerState()
	}
	if h.Hub != nil {
		resp["ws_connections"] = h.Hub.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, resp)
}
