package sysopt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=Clash Verge
Exec=%s
Terminal=false
X-GNOME-Autostart-enabled=true
`

// xdgLauncher manages an XDG autostart entry.
type xdgLauncher struct {
	dir  string
	exec string
}

func (l xdgLauncher) path() string {
	return filepath.Join(l.dir, "clash-verge.desktop")
}

func (l xdgLauncher) Enabled() (bool, error) {
	_, err := os.Stat(l.path())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l xdgLauncher) Enable() error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}
	exec := l.exec
	if strings.ContainsAny(exec, " \t") {
		exec = `"` + exec + `"`
	}
	return os.WriteFile(l.path(), []byte(fmt.Sprintf(desktopEntryTemplate, exec)), 0644)
}

func (l xdgLauncher) Disable() error {
	if err := os.Remove(l.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
