package appinit

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ScriptCommand returns the interpreter invocation for a startup script, chosen by extension.
func ScriptCommand(path string) (string, []string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sh":
		return "bash", []string{path}, nil
	case ".ps1":
		return "powershell", []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", path}, nil
	case ".bat", ".cmd":
		return "cmd", []string{"/C", path}, nil
	default:
		return "", nil, fmt.Errorf("unsupported startup script %s", filepath.Base(path))
	}
}

// RunStartupScript runs the configured startup script in its own directory with the
// data directory as its only argument. An empty path is a no-op.
func RunStartupScript(ctx context.Context, path, dataDir string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("startup script: %w", err)
	}

	name, args, err := ScriptCommand(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, append(args, dataDir)...)
	cmd.Dir = filepath.Dir(path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("startup script failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
