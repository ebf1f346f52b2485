// Package commenter defines the port for posting comments on pull requests.
package commenter

import (
	"context"
	"errors"
)

// ErrNoCredentials is returned when no API credentials are configured.
var ErrNoCredentials = errors.New("commenter: no credentials configured")

// CommentRequest addresses a single pull request comment.
type CommentRequest struct {
	Workspace string
	RepoSlug  string
	PRID      int64
	Text      string
}

// Commenter posts comments to a pull request. A nil error means the remote
// accepted the comment.
type Commenter interface {
	AddComment(ctx context.Context, req CommentRequest) error
}
