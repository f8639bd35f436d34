//go:build linux

package appinit

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const desktopFileName = "clash-verge.desktop"

const schemeDesktopEntry = `[Desktop Entry]
Type=Application
Name=Clash Verge
Exec="%s" %%u
Terminal=false
NoDisplay=true
MimeType=x-scheme-handler/clash;
`

func registerScheme() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	if err := writeDesktopEntry(filepath.Join(dataHome, "applications"), exe); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, "xdg-mime", "default", desktopFileName, "x-scheme-handler/"+URLScheme).CombinedOutput(); err != nil {
		return fmt.Errorf("xdg-mime failed: %w: %s", err, out)
	}
	return nil
}

func writeDesktopEntry(dir, exe string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, desktopFileName), []byte(fmt.Sprintf(schemeDesktopEntry, exe)), 0644)
}
