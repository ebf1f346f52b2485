package webhook

// Stream event types broadcast to websocket clients.
const (
	StreamPush               = "webhook.push"
	StreamPullRequestCreated = "webhook.pullrequest_created"
)

// StreamType returns the stream event type for ev.
func StreamType(ev Event) string {
	if ev.Kind() == KindPullRequestCreated {
		return StreamPullRequestCreated
	}
	return StreamPush
}
