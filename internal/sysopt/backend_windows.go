//go:build windows

package sysopt

import "os"

func newProxyBackend() ProxyBackend {
	return registryProxy{}
}

func newLauncher() Launcher {
	exe, err := os.Executable()
	if err != nil {
		return unsupportedLauncher{}
	}
	return runKeyLauncher{exec: exe}
}
