package nats

import "github.com/Strob0t/bbwebhook/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(settings map[string]string) (notifier.Notifier, error) {
		if settings["url"] == "" {
			return nil, notifier.ErrNotConfigured
		}
		subject := settings["subject"]
		if subject == "" {
			subject = "bbwebhook.notifications"
		}
		return Connect(settings["url"], subject)
	})
}
