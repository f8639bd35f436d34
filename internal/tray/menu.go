// Package tray shows the system tray icon and menu.
package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Controller is what the tray menu acts on.
type Controller interface {
	ShowWindow()
	SystemProxyEnabled() bool
	SetSystemProxy(enable bool) error
	LaunchAtLoginEnabled() bool
	SetLaunchAtLogin(enable bool) error
	CoreRunning() bool
	RestartCore() error
	MixedPort() uint16
	Quit()
}

// MenuState is the part of the menu derived from the controller.
type MenuState struct {
	SystemProxy   bool
	LaunchAtLogin bool
	Tooltip       string
}

// BuildState reads the current menu state from ctrl.
func BuildState(ctrl Controller, version string) MenuState {
	var tooltip strings.Builder
	tooltip.WriteString("Clash Verge")
	if version != "" {
		tooltip.WriteString(" v" + version)
	}
	if ctrl.CoreRunning() {
		tooltip.WriteString(fmt.Sprintf("\nCore: running on port %d", ctrl.MixedPort()))
	} else {
		tooltip.WriteString("\nCore: stopped")
	}
	if ctrl.SystemProxyEnabled() {
		tooltip.WriteString("\nSystem proxy: on")
	}

	return MenuState{
		SystemProxy:   ctrl.SystemProxyEnabled(),
		LaunchAtLogin: ctrl.LaunchAtLoginEnabled(),
		Tooltip:       tooltip.String(),
	}
}

// openCommand returns the command that opens path in the file manager.
func openCommand(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("explorer", path), nil
	default:
		return nil, fmt.Errorf("unsupported OS %s for opening %s", goos, path)
	}
}

func openPath(path string) error {
	cmd, err := openCommand(runtime.GOOS, path)
	if err != nil {
		return err
	}
	return cmd.Start()
}
