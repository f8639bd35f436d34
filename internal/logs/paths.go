package logs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"verge-go/internal/config"
)

const (
	osWindows = "windows"
	osDarwin  = "darwin"
)

// GetLogDir returns the standard log directory for the current OS
func GetLogDir() (string, error) {
	return logDirFor(runtime.GOOS)
}

func logDirFor(goos string) (string, error) {
	switch goos {
	case osWindows:
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return getDefaultLogDir()
			}
			localAppData = filepath.Join(userProfile, "AppData", "Local")
		}
		return filepath.Join(localAppData, config.AppDirName, "logs"), nil
	case osDarwin:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return getDefaultLogDir()
		}
		return filepath.Join(homeDir, "Library", "Logs", config.AppDirName), nil
	default:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return getDefaultLogDir()
		}
		// XDG_STATE_HOME if set, otherwise ~/.local/state
		stateDir := os.Getenv("XDG_STATE_HOME")
		if stateDir == "" {
			stateDir = filepath.Join(homeDir, ".local", "state")
		}
		return filepath.Join(stateDir, config.AppDirName, "logs"), nil
	}
}

// getDefaultLogDir returns a fallback log directory
func getDefaultLogDir() (string, error) {
	return filepath.Join(os.TempDir(), config.AppDirName, "logs"), nil
}

// GetLogFilePathWithDir returns the full path for a log file, using the standard
// directory when logDir is empty. The directory is created if needed.
func GetLogFilePathWithDir(logDir, filename string) (string, error) {
	if logDir == "" {
		dir, err := GetLogDir()
		if err != nil {
			return "", err
		}
		logDir = dir
	}

	if strings.HasPrefix(logDir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		logDir = filepath.Join(homeDir, logDir[2:])
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(logDir, filename), nil
}
