// Package appinit holds the one-shot startup chores: bundled resources, URL-scheme
// registration and the user's startup script.
package appinit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ResourceFiles are copied from the bundle into the data directory.
var ResourceFiles = []string{"Country.mmdb", "geoip.dat", "geosite.dat"}

// InitResources copies bundled resources into dataDir when they are missing or the
// bundled copy is newer. A missing bundled file is skipped.
func InitResources(resourcesDir, dataDir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	var errs []error
	for _, name := range ResourceFiles {
		src := filepath.Join(resourcesDir, name)
		dst := filepath.Join(dataDir, name)

		srcInfo, err := os.Stat(src)
		if err != nil {
			logger.Debug("Bundled resource not found", zap.String("file", src))
			continue
		}

		dstInfo, err := os.Stat(dst)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			errs = append(errs, err)
			continue
		case !srcInfo.ModTime().After(dstInfo.ModTime()):
			continue
		}

		if err := copyFile(src, dst); err != nil {
			errs = append(errs, fmt.Errorf("failed to copy %s: %w", name, err))
			continue
		}
		logger.Info("Resource installed", zap.String("file", name))
	}
	return errors.Join(errs...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
