//go:build darwin

package sysopt

import (
	"os"
	"path/filepath"
)

func newProxyBackend() ProxyBackend {
	return macProxy{run: execRunner}
}

func newLauncher() Launcher {
	exe, err := os.Executable()
	if err != nil {
		return unsupportedLauncher{}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return unsupportedLauncher{}
	}
	return launchAgent{dir: filepath.Join(home, "Library", "LaunchAgents"), exec: exe}
}
