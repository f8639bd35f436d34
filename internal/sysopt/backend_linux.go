//go:build linux

package sysopt

import (
	"os"
	"path/filepath"
)

func newProxyBackend() ProxyBackend {
	return gnomeProxy{run: execRunner}
}

func newLauncher() Launcher {
	exe, err := os.Executable()
	if err != nil {
		return unsupportedLauncher{}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return unsupportedLauncher{}
	}
	return xdgLauncher{dir: filepath.Join(dir, "autostart"), exec: exe}
}
