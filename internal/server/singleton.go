package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CheckSingleton asks a running instance on port to show its window and, when a
// scheme request is given, to import it. It reports whether another instance answered.
func CheckSingleton(ctx context.Context, port uint16, schemeRequest string) (bool, error) {
	base := "http://127.0.0.1:" + strconv.Itoa(int(port))
	client := &http.Client{Timeout: 2 * time.Second}

	if err := get(ctx, client, base+"/commands/visible"); err != nil {
		// nobody listening: this process is the only instance
		return false, nil
	}

	if schemeRequest != "" {
		target := base + "/commands/scheme?param=" + url.QueryEscape(schemeRequest)
		if err := get(ctx, client, target); err != nil {
			return true, fmt.Errorf("failed to forward scheme request: %w", err)
		}
	}
	return true, nil
}

func get(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
