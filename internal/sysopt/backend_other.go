//go:build !linux && !darwin && !windows

package sysopt

func newProxyBackend() ProxyBackend { return unsupportedProxy{} }

func newLauncher() Launcher { return unsupportedLauncher{} }
