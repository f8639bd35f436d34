package updatecheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"verge-go/internal/notify"
)

type staticSource struct {
	release *Release
	err     error
}

func (s *staticSource) Latest(context.Context, bool) (*Release, error) { return s.release, s.err }

type notes struct{ bodies []string }

func (n *notes) notifier() notify.Notifier {
	return notify.Func(func(_, body string) { n.bodies = append(n.bodies, body) })
}

func TestCheckFindsNewerRelease(t *testing.T) {
	n := &notes{}
	src := &staticSource{release: &Release{TagName: "v2.1.0", HTMLURL: "https://github.com/clash-verge-rev/clash-verge-rev/releases/tag/v2.1.0"}}
	c := New("2.0.3", src, n.notifier(), zaptest.NewLogger(t))

	info := c.Check(context.Background())
	assert.True(t, info.UpdateAvailable)
	assert.Equal(t, "v2.1.0", info.Latest)
	assert.NoError(t, info.Err)

	// the same version is announced once
	c.Check(context.Background())
	assert.Equal(t, []string{"New version v2.1.0 is available"}, n.bodies)
}

func TestCheckUpToDate(t *testing.T) {
	n := &notes{}
	c := New("v2.1.0", &staticSource{release: &Release{TagName: "v2.1.0"}}, n.notifier(), nil)

	info := c.Check(context.Background())
	assert.False(t, info.UpdateAvailable)
	assert.Empty(t, n.bodies)
}

func TestCheckFailureKeepsLastRelease(t *testing.T) {
	src := &staticSource{release: &Release{TagName: "v3.0.0"}}
	c := New("v2.0.0", src, nil, nil)
	c.Check(context.Background())

	src.release, src.err = nil, errors.New("rate limited")
	info := c.Check(context.Background())

	assert.Error(t, info.Err)
	assert.Equal(t, "v3.0.0", info.Latest)
	assert.True(t, c.Info().UpdateAvailable)
}

func TestDevelopmentBuildsAreNotChecked(t *testing.T) {
	assert.False(t, New("dev", &staticSource{}, nil, nil).Enabled())
	assert.True(t, New("1.2.3", &staticSource{}, nil, nil).Enabled())
	assert.False(t, newer("v1.0.0", "nightly"))
}

func TestGitHubClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/" + Repo + "/releases/latest":
			_, _ = w.Write([]byte(`{"tag_name":"v2.2.0","html_url":"https://example.com/v2.2.0"}`))
		case "/repos/" + Repo + "/releases":
			_, _ = w.Write([]byte(`[{"tag_name":"v2.3.0-rc1","draft":true},{"tag_name":"v2.3.0-beta","prerelease":true}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewGitHubClient()
	client.apiBase = srv.URL

	stable, err := client.Latest(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "v2.2.0", stable.TagName)

	pre, err := client.Latest(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "v2.3.0-beta", pre.TagName)
	assert.True(t, pre.Prerelease)

	client.repo = "missing/repo"
	_, err = client.Latest(context.Background(), false)
	assert.Error(t, err)
}
