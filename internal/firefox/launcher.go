package firefox

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/lotas/lesezeichen/internal/applog"
)

// Launcher opens URLs as new tabs of a running (or newly started) Firefox.
type Launcher struct {
	Binary  string // defaults to "firefox"
	Profile string // profile directory; empty uses Firefox's default
}

func (l Launcher) Open(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("open tab: empty url")
	}
	bin := l.Binary
	if bin == "" {
		bin = "firefox"
	}
	var args []string
	if l.Profile != "" {
		args = append(args, "--profile", l.Profile)
	}
	args = append(args, "--new-tab", url)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	applog.Info("firefox.open", "url", url)
	// Firefox hands the URL to the running instance and exits.
	go cmd.Wait()
	return nil
}
