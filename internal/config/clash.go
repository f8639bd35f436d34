package config

import (
	"strconv"
)

// DefaultMixedPort is the mixed port the proxy core listens on when nothing else is configured.
const DefaultMixedPort uint16 = 7890

// MixedPortKey is the clash mapping key holding the mixed port.
const MixedPortKey = "mixed-port"

// ClashDoc is the generic key/value configuration handed to the proxy core (config.yaml).
// The shell only owns a handful of keys; everything else passes through untouched.
type ClashDoc map[string]any

// DefaultClash returns the mapping written on first launch
func DefaultClash() ClashDoc {
	return ClashDoc{
		MixedPortKey:          int(DefaultMixedPort),
		"mode":                "rule",
		"log-level":           "info",
		"allow-lan":           false,
		"external-controller": "127.0.0.1:9097",
		"secret":              "",
	}
}

// MixedPort returns the configured mixed port, or DefaultMixedPort when the key is
// missing or not a valid port.
func (c ClashDoc) MixedPort() uint16 {
	raw, ok := c[MixedPortKey]
	if !ok {
		return DefaultMixedPort
	}

	var port int64
	switch v := raw.(type) {
	case int:
		port = int64(v)
	case int64:
		port = v
	case uint16:
		port = int64(v)
	case uint64:
		port = int64(v)
	case float64:
		port = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return DefaultMixedPort
		}
		port = parsed
	default:
		return DefaultMixedPort
	}

	if port <= 0 || port > 65535 {
		return DefaultMixedPort
	}
	return uint16(port)
}

// Patch merges m into c, overwriting existing keys.
func (c ClashDoc) Patch(m map[string]any) {
	for k, v := range m {
		c[k] = v
	}
}

// Clone returns a shallow copy of the top-level mapping.
func (c ClashDoc) Clone() ClashDoc {
	out := make(ClashDoc, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
