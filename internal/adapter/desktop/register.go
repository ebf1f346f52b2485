package desktop

import "github.com/Strob0t/bbwebhook/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(settings map[string]string) (notifier.Notifier, error) {
		mode := settings["mode"]
		if mode == "" {
			mode = ModeAuto
		}
		binary := settings["binary"]
		if binary == "" {
			binary = "terminal-notifier"
		}
		return New(mode, binary), nil
	})
}
