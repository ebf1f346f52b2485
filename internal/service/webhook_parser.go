package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/bbwebhook/internal/domain/webhook"
)

const shortHashLen = 7

// ParseEvent validates a Bitbucket webhook body and extracts the event it
// describes. eventKey is the X-Event-Key header value, empty when absent.
//
// The returned error is a *webhook.ValidationError for payloads that are
// rejected by shape, or a *webhook.Fault when a present field has an
// unexpected JSON type.
func ParseEvent(body []byte, eventKey string) (webhook.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, webhook.NoData()
	}
	if !json.Valid(trimmed) {
		return nil, webhook.InvalidJSON()
	}
	if isNull(trimmed) {
		return nil, webhook.NoData()
	}
	if trimmed[0] != '{' {
		return nil, webhook.Unsupported()
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode payload: %w", err))
	}
	if len(envelope) == 0 {
		return nil, webhook.NoData()
	}

	if eventKey == "" || eventKey == webhook.EventKeyPullRequestCreated {
		if raw, ok := envelope["pullrequest"]; ok && !isNull(raw) {
			return parsePullRequestCreated(trimmed)
		}
	}

	_, hasActor := envelope["actor"]
	_, hasPush := envelope["push"]
	if hasActor && hasPush {
		return parsePush(trimmed)
	}

	return nil, webhook.Unsupported()
}

type bbUser struct {
	Username string `json:"username"`
}

type pullRequestPayload struct {
	PullRequest struct {
		ID     *int64  `json:"id"`
		Title  string  `json:"title"`
		Author *bbUser `json:"author"`
	} `json:"pullrequest"`
	Repository *struct {
		FullName string  `json:"full_name"`
		Name     string  `json:"name"`
		Owner    *bbUser `json:"owner"`
	} `json:"repository"`
}

func parsePullRequestCreated(body []byte) (webhook.Event, error) {
	var p pullRequestPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode pull request payload: %w", err))
	}

	ev := webhook.PullRequestCreatedEvent{
		PRID:   p.PullRequest.ID,
		Title:  p.PullRequest.Title,
		Author: usernameOrUnknown(p.PullRequest.Author),
	}

	if repo := p.Repository; repo != nil {
		if ws, slug, ok := strings.Cut(repo.FullName, "/"); ok {
			ev.Workspace, ev.RepoSlug = ws, slug
		} else {
			if repo.Owner != nil {
				ev.Workspace = repo.Owner.Username
			}
			ev.RepoSlug = repo.Name
		}
	}

	return ev, nil
}

type pushPayload struct {
	Actor *bbUser `json:"actor"`
	Push  *struct {
		Changes []json.RawMessage `json:"changes"`
	} `json:"push"`
}

type pushChange struct {
	New json.RawMessage `json:"new"`
}

type pushRef struct {
	Target json.RawMessage `json:"target"`
}

type pushTarget struct {
	Hash  string `json:"hash"`
	Links *struct {
		HTML *struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

func parsePush(body []byte) (webhook.Event, error) {
	var p pushPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode push payload: %w", err))
	}
	if p.Push == nil || len(p.Push.Changes) == 0 {
		return nil, webhook.NoChanges()
	}

	// Only the first change is reported.
	var change pushChange
	if err := json.Unmarshal(p.Push.Changes[0], &change); err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode push change: %w", err))
	}
	empty, err := isEmptyObject(change.New)
	if err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode push change new: %w", err))
	}
	if empty {
		return nil, webhook.InvalidChange()
	}

	var ref pushRef
	if err := json.Unmarshal(change.New, &ref); err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode push change new: %w", err))
	}
	empty, err = isEmptyObject(ref.Target)
	if err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode push target: %w", err))
	}
	if empty {
		return nil, webhook.InvalidChange()
	}

	var target pushTarget
	if err := json.Unmarshal(ref.Target, &target); err != nil {
		return nil, webhook.NewFault(fmt.Errorf("decode push target: %w", err))
	}

	ev := webhook.PushEvent{
		Actor:      usernameOrUnknown(p.Actor),
		CommitHash: shortHash(target.Hash),
	}
	if target.Links != nil && target.Links.HTML != nil {
		ev.CommitURL = target.Links.HTML.Href
	}
	return ev, nil
}

// shortHash returns the first seven characters of hash, or "" when the
// hash is too short to abbreviate.
func shortHash(hash string) string {
	if len(hash) < shortHashLen {
		return ""
	}
	return hash[:shortHashLen]
}

// usernameOrUnknown treats an empty username like a missing one.
func usernameOrUnknown(u *bbUser) string {
	if u == nil || u.Username == "" {
		return webhook.UnknownAuthor
	}
	return u.Username
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isEmptyObject reports whether raw is absent, null, or {}. A present value
// of another JSON type is an error.
func isEmptyObject(raw json.RawMessage) (bool, error) {
	if len(bytes.TrimSpace(raw)) == 0 || isNull(raw) {
		return true, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, err
	}
	return len(fields) == 0, nil
}
