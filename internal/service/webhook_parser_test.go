package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Strob0t/bbwebhook/internal/domain/webhook"
)

const pushPayloadJSON = `{
	"actor": {"username": "jdoe", "display_name": "Jane Doe"},
	"repository": {"full_name": "teamx/reponame"},
	"push": {
		"changes": [
			{
				"new": {
					"name": "main",
					"target": {
						"hash": "a1b2c3d4e5f6",
						"links": {"html": {"href": "https://bitbucket.org/teamx/reponame/commits/a1b2c3d4e5f6"}}
					}
				}
			},
			{
				"new": {"target": {"hash": "ffffffffffff"}}
			}
		]
	}
}`

func mustValidation(t *testing.T, err error) *webhook.ValidationError {
	t.Helper()
	var verr *webhook.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *webhook.ValidationError, got %T: %v", err, err)
	}
	if verr.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", verr.Status)
	}
	return verr
}

func TestParseEvent_Push(t *testing.T) {
	ev, err := ParseEvent([]byte(pushPayloadJSON), "repo:push")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	push, ok := ev.(webhook.PushEvent)
	if !ok {
		t.Fatalf("expected PushEvent, got %T", ev)
	}
	if push.Actor != "jdoe" {
		t.Errorf("expected actor jdoe, got %q", push.Actor)
	}
	if push.CommitHash != "a1b2c3d" {
		t.Errorf("expected hash a1b2c3d, got %q", push.CommitHash)
	}
	if push.CommitURL != "https://bitbucket.org/teamx/reponame/commits/a1b2c3d4e5f6" {
		t.Errorf("unexpected commit URL %q", push.CommitURL)
	}
}

func TestParseEvent_PushWithoutHeader(t *testing.T) {
	ev, err := ParseEvent([]byte(pushPayloadJSON), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind() != webhook.KindPush {
		t.Fatalf("expected push, got %s", ev.Kind())
	}
}

func TestParseEvent_PushDefaults(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		actor   string
		hash    string
		url     string
	}{
		{
			name:    "actor without username",
			payload: `{"actor": {}, "push": {"changes": [{"new": {"target": {"hash": "0123456789"}}}]}}`,
			actor:   "unknown",
			hash:    "0123456",
		},
		{
			name:    "empty username",
			payload: `{"actor": {"username": ""}, "push": {"changes": [{"new": {"target": {"hash": "0123456789"}}}]}}`,
			actor:   "unknown",
			hash:    "0123456",
		},
		{
			name:    "null actor",
			payload: `{"actor": null, "push": {"changes": [{"new": {"target": {"hash": "0123456789"}}}]}}`,
			actor:   "unknown",
			hash:    "0123456",
		},
		{
			name:    "short hash",
			payload: `{"actor": {"username": "a"}, "push": {"changes": [{"new": {"target": {"hash": "abc"}}}]}}`,
			actor:   "a",
			hash:    "",
		},
		{
			name:    "exactly seven",
			payload: `{"actor": {"username": "a"}, "push": {"changes": [{"new": {"target": {"hash": "abcdefg"}}}]}}`,
			actor:   "a",
			hash:    "abcdefg",
		},
		{
			name:    "missing hash and links",
			payload: `{"actor": {"username": "a"}, "push": {"changes": [{"new": {"target": {"type": "commit"}}}]}}`,
			actor:   "a",
		},
		{
			name:    "links without html",
			payload: `{"actor": {"username": "a"}, "push": {"changes": [{"new": {"target": {"hash": "1234567", "links": {}}}}]}}`,
			actor:   "a",
			hash:    "1234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.payload), "repo:push")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			push := ev.(webhook.PushEvent)
			if push.Actor != tt.actor {
				t.Errorf("actor = %q, want %q", push.Actor, tt.actor)
			}
			if push.CommitHash != tt.hash {
				t.Errorf("hash = %q, want %q", push.CommitHash, tt.hash)
			}
			if push.CommitURL != tt.url {
				t.Errorf("url = %q, want %q", push.CommitURL, tt.url)
			}
		})
	}
}

func TestParseEvent_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		header  string
		kind    webhook.ErrorKind
		msg     string
	}{
		{"empty body", ``, "", webhook.MalformedInput, webhook.MsgNoData},
		{"whitespace body", "  \n\t", "", webhook.MalformedInput, webhook.MsgNoData},
		{"null", `null`, "", webhook.MalformedInput, webhook.MsgNoData},
		{"empty object", `{}`, "repo:push", webhook.MalformedInput, webhook.MsgNoData},
		{"invalid json", `{"actor":`, "", webhook.MalformedInput, webhook.MsgInvalidJSON},
		{"plain text", `hello`, "", webhook.MalformedInput, webhook.MsgInvalidJSON},
		{"array", `[1,2,3]`, "", webhook.UnsupportedEvent, webhook.MsgUnsupported},
		{"string", `"push"`, "", webhook.UnsupportedEvent, webhook.MsgUnsupported},
		{"unrelated object", `{"foo": "bar"}`, "", webhook.UnsupportedEvent, webhook.MsgUnsupported},
		{"actor without push", `{"actor": {"username": "a"}}`, "repo:push", webhook.UnsupportedEvent, webhook.MsgUnsupported},
		{"push without actor", `{"push": {"changes": []}}`, "repo:push", webhook.UnsupportedEvent, webhook.MsgUnsupported},
		{"null pullrequest", `{"pullrequest": null}`, "pullrequest:created", webhook.UnsupportedEvent, webhook.MsgUnsupported},
		{
			"pullrequest under other event key",
			`{"pullrequest": {"id": 1}}`,
			"pullrequest:updated",
			webhook.UnsupportedEvent, webhook.MsgUnsupported,
		},
		{"empty changes", `{"actor": {}, "push": {"changes": []}}`, "repo:push", webhook.StructuralMismatch, webhook.MsgNoChanges},
		{"missing changes", `{"actor": {}, "push": {}}`, "repo:push", webhook.StructuralMismatch, webhook.MsgNoChanges},
		{"null push", `{"actor": {}, "push": null}`, "repo:push", webhook.StructuralMismatch, webhook.MsgNoChanges},
		{"change without new", `{"actor": {}, "push": {"changes": [{"old": {}}]}}`, "", webhook.StructuralMismatch, webhook.MsgInvalidChange},
		{"null new", `{"actor": {}, "push": {"changes": [{"new": null}]}}`, "", webhook.StructuralMismatch, webhook.MsgInvalidChange},
		{"empty new", `{"actor": {}, "push": {"changes": [{"new": {}}]}}`, "", webhook.StructuralMismatch, webhook.MsgInvalidChange},
		{"new without target", `{"actor": {}, "push": {"changes": [{"new": {"name": "main"}}]}}`, "", webhook.StructuralMismatch, webhook.MsgInvalidChange},
		{"empty target", `{"actor": {}, "push": {"changes": [{"new": {"target": {}}}]}}`, "", webhook.StructuralMismatch, webhook.MsgInvalidChange},
		{"null change", `{"actor": {}, "push": {"changes": [null]}}`, "", webhook.StructuralMismatch, webhook.MsgInvalidChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.payload), tt.header)
			if ev != nil {
				t.Fatalf("expected no event, got %#v", ev)
			}
			verr := mustValidation(t, err)
			if verr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", verr.Kind, tt.kind)
			}
			if verr.Message != tt.msg {
				t.Errorf("message = %q, want %q", verr.Message, tt.msg)
			}
		})
	}
}

func TestParseEvent_Faults(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"numeric username", `{"actor": {"username": 42}, "push": {"changes": [{"new": {"target": {"hash": "abcdefg"}}}]}}`},
		{"changes not a list", `{"actor": {}, "push": {"changes": "x"}}`},
		{"change not an object", `{"actor": {}, "push": {"changes": ["x"]}}`},
		{"new not an object", `{"actor": {}, "push": {"changes": [{"new": 5}]}}`},
		{"numeric hash", `{"actor": {}, "push": {"changes": [{"new": {"target": {"hash": 123}}}]}}`},
		{"pull request id not a number", `{"pullrequest": {"id": "seven"}}`},
		{"pullrequest not an object", `{"pullrequest": "seven"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.payload), "")
			var fault *webhook.Fault
			if !errors.As(err, &fault) {
				t.Fatalf("expected *webhook.Fault, got %T: %v", err, err)
			}
			res := webhook.ResultFor(err)
			if res.HTTPStatus != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", res.HTTPStatus)
			}
			if res.Payload["error"] != err.Error() {
				t.Errorf("expected error text in payload, got %v", res.Payload["error"])
			}
		})
	}
}

func TestParseEvent_PullRequestFullName(t *testing.T) {
	payload := `{
		"pullrequest": {"id": 42, "title": "Add feature", "author": {"username": "jdoe"}},
		"repository": {"full_name": "teamx/reponame", "name": "ignored", "owner": {"username": "ignored"}}
	}`

	ev, err := ParseEvent([]byte(payload), "pullrequest:created")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pr, ok := ev.(webhook.PullRequestCreatedEvent)
	if !ok {
		t.Fatalf("expected PullRequestCreatedEvent, got %T", ev)
	}
	if pr.PRID == nil || *pr.PRID != 42 {
		t.Fatalf("expected PR id 42, got %v", pr.PRID)
	}
	if pr.Workspace != "teamx" || pr.RepoSlug != "reponame" {
		t.Errorf("expected teamx/reponame, got %s/%s", pr.Workspace, pr.RepoSlug)
	}
	if pr.Author != "jdoe" {
		t.Errorf("expected author jdoe, got %q", pr.Author)
	}
	if !pr.Addressable() {
		t.Error("expected event to be addressable")
	}
}

func TestParseEvent_PullRequestOwnerFallback(t *testing.T) {
	payload := `{
		"pullrequest": {"id": 7},
		"repository": {"name": "reponame", "owner": {"username": "teamx"}}
	}`

	ev, err := ParseEvent([]byte(payload), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pr := ev.(webhook.PullRequestCreatedEvent)
	if pr.Workspace != "teamx" || pr.RepoSlug != "reponame" {
		t.Errorf("expected teamx/reponame, got %s/%s", pr.Workspace, pr.RepoSlug)
	}
	if pr.Author != webhook.UnknownAuthor {
		t.Errorf("expected unknown author, got %q", pr.Author)
	}
}

func TestParseEvent_PullRequestEmptyAuthor(t *testing.T) {
	payload := `{
		"pullrequest": {"id": 7, "author": {"username": ""}},
		"repository": {"full_name": "teamx/reponame"}
	}`

	ev, err := ParseEvent([]byte(payload), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr := ev.(webhook.PullRequestCreatedEvent); pr.Author != webhook.UnknownAuthor {
		t.Fatalf("expected empty author reported as %q, got %q", webhook.UnknownAuthor, pr.Author)
	}
}

func TestParseEvent_PullRequestFullNameWithoutSlash(t *testing.T) {
	payload := `{
		"pullrequest": {"id": 7},
		"repository": {"full_name": "reponame", "name": "reponame", "owner": {"username": "teamx"}}
	}`

	ev, err := ParseEvent([]byte(payload), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pr := ev.(webhook.PullRequestCreatedEvent)
	if pr.Workspace != "teamx" || pr.RepoSlug != "reponame" {
		t.Errorf("expected teamx/reponame, got %s/%s", pr.Workspace, pr.RepoSlug)
	}
}

func TestParseEvent_PullRequestMissingID(t *testing.T) {
	for _, payload := range []string{
		`{"pullrequest": {"title": "x"}, "repository": {"full_name": "a/b"}}`,
		`{"pullrequest": {"id": null}, "repository": {"full_name": "a/b"}}`,
	} {
		ev, err := ParseEvent([]byte(payload), "pullrequest:created")
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", payload, err)
		}
		pr := ev.(webhook.PullRequestCreatedEvent)
		if pr.PRID != nil {
			t.Errorf("expected nil PR id, got %d", *pr.PRID)
		}
		if pr.Addressable() {
			t.Error("expected event without id to be unaddressable")
		}
	}
}

func TestParseEvent_PullRequestWinsOverPush(t *testing.T) {
	payload := `{
		"pullrequest": {"id": 1},
		"actor": {"username": "a"},
		"push": {"changes": []}
	}`

	ev, err := ParseEvent([]byte(payload), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind() != webhook.KindPullRequestCreated {
		t.Fatalf("expected pull request event, got %s", ev.Kind())
	}

	// A push header skips the pull request branch.
	_, err = ParseEvent([]byte(payload), "repo:push")
	if verr := mustValidation(t, err); verr.Message != webhook.MsgNoChanges {
		t.Fatalf("expected %q, got %q", webhook.MsgNoChanges, verr.Message)
	}
}

func TestShortHash(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"abcdef":       "",
		"abcdefg":      "abcdefg",
		"a1b2c3d4e5f6": "a1b2c3d",
	}
	for in, want := range tests {
		if got := shortHash(in); got != want {
			t.Errorf("shortHash(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseEvent_OnlyFirstChange(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"actor": {"username": "x"}, "push": {"changes": [
		{"new": {"target": {"hash": "1111111aaaa"}}},
		{}
	]}}`), "repo:push")
	if err != nil {
		t.Fatalf("expected later changes to be ignored, got %v", err)
	}
	if got := ev.(webhook.PushEvent).CommitHash; got != "1111111" {
		t.Errorf("expected first change hash, got %q", got)
	}

	_, err = ParseEvent([]byte(`{"actor": {"username": "x"}, "push": {"changes": [
		{},
		{"new": {"target": {"hash": "2222222bbbb"}}}
	]}}`), "repo:push")
	if verr := mustValidation(t, err); verr.Message != webhook.MsgInvalidChange {
		t.Errorf("expected %q, got %q", webhook.MsgInvalidChange, verr.Message)
	}
}
