// Package profiles fetches remote configuration profiles and keeps the profile collection.
package profiles

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Profile types
const (
	TypeRemote = "remote"
	TypeLocal  = "local"
)

// Option controls how a remote profile is fetched and refreshed.
type Option struct {
	UserAgent *string `yaml:"user_agent,omitempty"`
	// WithProxy fetches through the system proxy.
	WithProxy *bool `yaml:"with_proxy,omitempty"`
	// SelfProxy fetches through the shell's own mixed port.
	SelfProxy                *bool   `yaml:"self_proxy,omitempty"`
	DangerAcceptInvalidCerts *bool   `yaml:"danger_accept_invalid_certs,omitempty"`
	UpdateInterval           *uint64 `yaml:"update_interval,omitempty"` // minutes
}

// Extra is the traffic quota reported by the subscription-userinfo response header.
type Extra struct {
	Upload   uint64 `yaml:"upload"`
	Download uint64 `yaml:"download"`
	Total    uint64 `yaml:"total"`
	Expire   uint64 `yaml:"expire"`
}

// Item is one entry of the profile collection.
type Item struct {
	UID     string  `yaml:"uid"`
	Type    string  `yaml:"type"`
	Name    string  `yaml:"name"`
	Desc    string  `yaml:"desc,omitempty"`
	File    string  `yaml:"file"`
	URL     string  `yaml:"url,omitempty"`
	Extra   *Extra  `yaml:"extra,omitempty"`
	Updated int64   `yaml:"updated"`
	Option  *Option `yaml:"option,omitempty"`

	// FileData is the profile body. It is stored in File, never in the index.
	FileData string `yaml:"-"`
}

// NewUID returns a new profile uid with the given type prefix.
func NewUID(prefix string) string {
	return prefix + strings.ToLower(ulid.Make().String())
}

func boolValue(p *bool) bool {
	return p != nil && *p
}
