// Package desktop implements a notifier.Notifier that raises a macOS
// notification through terminal-notifier.
package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/Strob0t/bbwebhook/internal/port/notifier"
)

const providerName = "desktop"

// Modes accepted by New.
const (
	ModeAuto = "auto"
	ModeOn   = "on"
	ModeOff  = "off"
)

// Swapped in tests.
var (
	execCommand = exec.CommandContext
	lookPath    = exec.LookPath
	goos        = runtime.GOOS
)

// Notifier shells out to terminal-notifier.
type Notifier struct {
	binary string
	procs  *procPool
}

// NewNotifier creates a desktop notifier that runs binary.
func NewNotifier(binary string) *Notifier {
	return &Notifier{binary: binary, procs: newProcPool(maxConcurrentNotifiers)}
}

// New picks the desktop sink for mode. "off" always yields a no-op; "auto"
// yields a no-op unless the host is macOS and binary is on PATH; "on"
// always yields the real notifier.
func New(mode, binary string) notifier.Notifier {
	switch mode {
	case ModeOff:
		return notifier.Noop{Sink: providerName}
	case ModeOn:
		return NewNotifier(binary)
	}

	if goos != "darwin" {
		slog.Info("desktop notifications unavailable", "reason", "unsupported platform", "os", goos)
		return notifier.Noop{Sink: providerName}
	}
	path, err := lookPath(binary)
	if err != nil {
		slog.Info("desktop notifications unavailable", "reason", "binary not found", "binary", binary)
		return notifier.Noop{Sink: providerName}
	}
	return NewNotifier(path)
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		ActionLinks: true,
		Local:       true,
	}
}

// Send runs terminal-notifier and waits for it to exit. The command is
// killed when ctx is done, including while it waits for a free slot.
func (n *Notifier) Send(ctx context.Context, msg notifier.Notification) error {
	return n.procs.run(ctx, func() error { return n.exec(ctx, msg) })
}

func (n *Notifier) exec(ctx context.Context, msg notifier.Notification) error {
	args := []string{"-title", msg.Title, "-message", msg.Message}
	if msg.URL != "" {
		args = append(args, "-open", msg.URL)
	}
	if msg.Source != "" {
		args = append(args, "-group", msg.Source)
	}

	out, err := execCommand(ctx, n.binary, args...).CombinedOutput() //nolint:gosec // binary from operator config
	if err != nil {
		return fmt.Errorf("desktop notify: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
