//go:build !linux && !windows

package appinit

// The macOS bundle declares the scheme in Info.plist.
func registerScheme() error { return nil }
