package profiles

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxUpdateInterval is the longest refresh interval, in minutes, taken from the
// Profile-Update-Interval header. Longer values are ignored.
const MaxUpdateInterval uint64 = 365 * 24 * 60

// ErrInvalidProfile is returned when a fetched body is not a usable proxy profile.
var ErrInvalidProfile = errors.New("invalid profile")

// FetchError describes a failed download of a remote profile.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch remote profile %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch remote profile with status %d", e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads remote profiles.
type Fetcher struct {
	version   string
	mixedPort func() uint16
	// systemProxy resolves the proxy used for WithProxy fetches.
	systemProxy func(*http.Request) (*url.URL, error)
	now         func() time.Time
}

// NewFetcher creates a fetcher. mixedPort is consulted for SelfProxy fetches.
func NewFetcher(version string, mixedPort func() uint16) *Fetcher {
	return &Fetcher{
		version:     version,
		mixedPort:   mixedPort,
		systemProxy: http.ProxyFromEnvironment,
		now:         time.Now,
	}
}

// FromURL downloads rawURL and returns a remote profile item holding the body.
// name and desc override what the server reports; opt may be nil.
func (f *Fetcher) FromURL(ctx context.Context, rawURL string, name, desc *string, opt *Option) (*Item, error) {
	if opt == nil {
		opt = &Option{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	userAgent := "clash-verge/v" + f.version
	if opt.UserAgent != nil && *opt.UserAgent != "" {
		userAgent = *opt.UserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client(opt).Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if err := validateProfile(body); err != nil {
		return nil, err
	}

	item := &Item{
		UID:      NewUID("r"),
		Type:     TypeRemote,
		URL:      rawURL,
		Extra:    parseUserInfo(resp.Header.Get("Subscription-Userinfo")),
		Updated:  f.now().Unix(),
		FileData: string(body),
	}
	item.File = item.UID + ".yaml"

	switch {
	case name != nil:
		item.Name = *name
	default:
		item.Name = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
		if item.Name == "" {
			item.Name = "Remote File"
		}
	}
	if desc != nil {
		item.Desc = *desc
	}

	itemOpt := *opt
	if itemOpt.UpdateInterval == nil {
		hours, err := strconv.ParseUint(strings.TrimSpace(resp.Header.Get("Profile-Update-Interval")), 10, 64)
		if err == nil && hours <= MaxUpdateInterval/60 {
			minutes := hours * 60
			itemOpt.UpdateInterval = &minutes
		}
	}
	item.Option = &itemOpt

	return item, nil
}

func (f *Fetcher) client(opt *Option) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	switch {
	case boolValue(opt.SelfProxy) && f.mixedPort != nil:
		proxyURL := &url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", f.mixedPort())}
		transport.Proxy = http.ProxyURL(proxyURL)
	case boolValue(opt.WithProxy):
		transport.Proxy = f.systemProxy
	}

	if boolValue(opt.DangerAcceptInvalidCerts) {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per profile
	}

	return &http.Client{Transport: transport}
}

// validateProfile checks the body is a YAML mapping that declares proxies.
func validateProfile(body []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: the remote profile data is invalid yaml: %v", ErrInvalidProfile, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: the remote profile is empty", ErrInvalidProfile)
	}
	_, hasProxies := doc["proxies"]
	_, hasProviders := doc["proxy-providers"]
	if !hasProxies && !hasProviders {
		return fmt.Errorf("%w: profile does not contain `proxies` or `proxy-providers`", ErrInvalidProfile)
	}
	return nil
}

// parseUserInfo parses "upload=1; download=2; total=3; expire=4".
func parseUserInfo(header string) *Extra {
	if header == "" {
		return nil
	}

	extra := &Extra{}
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "upload":
			extra.Upload = n
		case "download":
			extra.Download = n
		case "total":
			extra.Total = n
		case "expire":
			extra.Expire = n
		}
	}
	return extra
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
