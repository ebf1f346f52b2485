// Package bitbucket implements commenter.Commenter against the Bitbucket
// Cloud REST API 2.0.
package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	cfotel "github.com/Strob0t/bbwebhook/internal/adapter/otel"
	"github.com/Strob0t/bbwebhook/internal/config"
	"github.com/Strob0t/bbwebhook/internal/port/commenter"
	"github.com/Strob0t/bbwebhook/internal/resilience"
	"github.com/Strob0t/bbwebhook/internal/secrets"
)

// maxErrorBody caps how much of a failed response is kept for logs.
const maxErrorBody = 4 << 10

// APIError is returned for a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitbucket API %d: %s", e.StatusCode, e.Body)
}

// Credentials supplies API credentials by key. *secrets.Vault satisfies it.
type Credentials interface {
	Get(key string) string
}

type staticCredentials map[string]string

func (s staticCredentials) Get(key string) string { return s[key] }

// Client posts pull request comments.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a client from cfg. breaker may be nil. Requests are
// bounded by cfg.Timeout and traced through an otelhttp transport.
func NewClient(cfg config.Bitbucket, breaker *resilience.Breaker) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.APIBaseURL, "/"),
		creds:   staticCredentials(secrets.BitbucketValues(cfg)),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfotel.Transport(nil),
		},
		breaker: breaker,
	}
}

// UseCredentials replaces the credentials taken from config. It must be
// called before the client serves requests.
func (c *Client) UseCredentials(src Credentials) { c.creds = src }

// Configured reports whether credentials are available.
func (c *Client) Configured() bool {
	return c.creds.Get(secrets.KeyBitbucketToken) != "" ||
		(c.creds.Get(secrets.KeyBitbucketUsername) != "" && c.creds.Get(secrets.KeyBitbucketAppPassword) != "")
}

// BreakerState returns the breaker position, or "disabled" without one.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

type commentBody struct {
	Content commentContent `json:"content"`
}

type commentContent struct {
	Raw string `json:"raw"`
}

// AddComment posts req.Text as a new comment on the pull request. It makes
// a single attempt and returns commenter.ErrNoCredentials without any
// network call when credentials are missing.
func (c *Client) AddComment(ctx context.Context, req commenter.CommentRequest) error {
	if !c.Configured() {
		return commenter.ErrNoCredentials
	}

	ctx, span := cfotel.StartCommentSpan(ctx, req.Workspace, req.RepoSlug, req.PRID)
	defer span.End()

	err := c.execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("bitbucket add comment: %w", err)
	}
	return nil
}

// execute runs fn through the breaker. Client errors (4xx) are returned
// without counting against the breaker.
func (c *Client) execute(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}

	var clientErr error
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			clientErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return clientErr
}

func (c *Client) post(ctx context.Context, req commenter.CommentRequest) error {
	payload, err := json.Marshal(commentBody{Content: commentContent{Raw: req.Text}})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	reqURL := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/comments",
		c.baseURL, url.PathEscape(req.Workspace), url.PathEscape(req.RepoSlug), req.PRID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // URL is built from the configured API base
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.WarnContext(ctx, "bitbucket comment rejected",
			"status", resp.StatusCode,
			"workspace", req.Workspace,
			"repo_slug", req.RepoSlug,
			"pr_id", req.PRID,
			"body", string(body),
		)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// authorize prefers a bearer token over basic credentials.
func (c *Client) authorize(req *http.Request) {
	if token := c.creds.Get(secrets.KeyBitbucketToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		return
	}
	req.SetBasicAuth(c.creds.Get(secrets.KeyBitbucketUsername), c.creds.Get(secrets.KeyBitbucketAppPassword))
}
