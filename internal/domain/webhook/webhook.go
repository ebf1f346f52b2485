// Package webhook defines domain types for inbound Bitbucket webhook events.
package webhook

import "net/http"

// Header carrying the Bitbucket event kind, e.g. "repo:push".
const HeaderEventKey = "X-Event-Key"

// EventKeyPullRequestCreated is the only pull request event key handled.
const EventKeyPullRequestCreated = "pullrequest:created"

// UnknownAuthor replaces a missing username.
const UnknownAuthor = "unknown"

// Kind names an event variant for logs and metrics.
type Kind string

const (
	KindPush               Kind = "push"
	KindPullRequestCreated Kind = "pullrequest_created"
)

// Event is a validated inbound event. The only implementations are
// PushEvent and PullRequestCreatedEvent.
type Event interface {
	Kind() Kind
	sealed()
}

// PushEvent holds the fields extracted from the first change of a push.
type PushEvent struct {
	Actor      string `json:"author"`
	CommitHash string `json:"commit"` // 7-char prefix, empty when unavailable
	CommitURL  string `json:"url"`
}

func (PushEvent) Kind() Kind { return KindPush }
func (PushEvent) sealed() {}

// PullRequestCreatedEvent holds the fields needed to comment on a new pull request.
type PullRequestCreatedEvent struct {
	PRID      *int64 `json:"pr_id"`
	Author    string `json:"author"`
	Workspace string `json:"workspace"`
	RepoSlug  string `json:"repo_slug"`
	Title     string `json:"title,omitempty"`
}

func (PullRequestCreatedEvent) Kind() Kind { return KindPullRequestCreated }
func (PullRequestCreatedEvent) sealed() {}

// Addressable reports whether the event carries everything needed to
// address the comments endpoint.
func (e PullRequestCreatedEvent) Addressable() bool {
	return e.PRID != nil && e.Workspace != "" && e.RepoSlug != ""
}

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// OutboundResult is the response returned to the webhook sender.
type OutboundResult struct {
	Status     string
	Payload    map[string]any
	HTTPStatus int
}

// Success builds a 200 result with the given payload merged next to "status".
func Success(payload map[string]any) OutboundResult {
	body := map[string]any{"status": StatusSuccess}
	for k, v := range payload {
		body[k] = v
	}
	return OutboundResult{Status: StatusSuccess, Payload: body, HTTPStatus: http.StatusOK}
}

// Failure builds an error result with the given status code.
func Failure(msg string, status int) OutboundResult {
	return OutboundResult{
		Status:     StatusError,
		Payload:    map[string]any{"status": StatusError, "error": msg},
		HTTPStatus: status,
	}
}
