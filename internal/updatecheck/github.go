package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// Repo is the GitHub repository releases are read from
	Repo = "clash-verge-rev/clash-verge-rev"

	defaultAPIBase = "https://api.github.com"
	httpTimeout    = 10 * time.Second
)

// Release is the part of a GitHub release the checker reads.
type Release struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}

// GitHubClient reads releases from the GitHub REST API.
type GitHubClient struct {
	httpClient *http.Client
	apiBase    string
	repo       string
}

// NewGitHubClient creates a client for Repo.
func NewGitHubClient() *GitHubClient {
	return &GitHubClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiBase:    defaultAPIBase,
		repo:       Repo,
	}
}

// Latest returns the newest published release. With prerelease the newest
// non-draft release of any kind is returned.
func (c *GitHubClient) Latest(ctx context.Context, prerelease bool) (*Release, error) {
	if !prerelease {
		var release Release
		if err := c.get(ctx, fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, c.repo), &release); err != nil {
			return nil, err
		}
		return &release, nil
	}

	var releases []Release
	if err := c.get(ctx, fmt.Sprintf("%s/repos/%s/releases", c.apiBase, c.repo), &releases); err != nil {
		return nil, err
	}
	for i := range releases {
		if !releases[i].Draft {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("no releases found")
}

func (c *GitHubClient) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode release: %w", err)
	}
	return nil
}
