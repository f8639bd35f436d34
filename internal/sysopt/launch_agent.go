package sysopt

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
)

const launchAgentLabel = "io.github.clash-verge-rev.clash-verge-rev"

const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

// launchAgent manages a per-user LaunchAgent plist.
type launchAgent struct {
	dir  string
	exec string
}

func (l launchAgent) path() string {
	return filepath.Join(l.dir, launchAgentLabel+".plist")
}

func (l launchAgent) Enabled() (bool, error) {
	_, err := os.Stat(l.path())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l launchAgent) Enable() error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}
	plist := fmt.Sprintf(launchAgentTemplate, launchAgentLabel, html.EscapeString(l.exec))
	return os.WriteFile(l.path(), []byte(plist), 0644)
}

func (l launchAgent) Disable() error {
	if err := os.Remove(l.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
