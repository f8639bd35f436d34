//go:build windows

package appinit

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows/registry"
)

func registerScheme() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	root, _, err := registry.CreateKey(registry.CURRENT_USER, `Software\Classes\`+URLScheme, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to create scheme key: %w", err)
	}
	defer root.Close()
	if err := root.SetStringValue("", "URL:"+URLScheme); err != nil {
		return err
	}
	if err := root.SetStringValue("URL Protocol", ""); err != nil {
		return err
	}

	cmd, _, err := registry.CreateKey(registry.CURRENT_USER, `Software\Classes\`+URLScheme+`\shell\open\command`, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to create command key: %w", err)
	}
	defer cmd.Close()
	return cmd.SetStringValue("", fmt.Sprintf(`"%s" "%%1"`, exe))
}
