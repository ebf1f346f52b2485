package slack

import "github.com/Strob0t/bbwebhook/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(settings map[string]string) (notifier.Notifier, error) {
		if settings["webhook_url"] == "" {
			return nil, notifier.ErrNotConfigured
		}
		return NewNotifier(settings["webhook_url"]), nil
	})
}
