// Package enhance generates the runtime config the proxy core loads: the current
// profile with the shell-owned clash keys laid over it.
package enhance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"verge-go/internal/config"
	"verge-go/internal/profiles"
)

// HandledKeys are the clash mapping keys that override the profile.
var HandledKeys = []string{
	"mode",
	"port",
	"socks-port",
	"mixed-port",
	"allow-lan",
	"log-level",
	"ipv6",
	"secret",
	"external-controller",
}

// ClashSource provides the clash mapping.
type ClashSource interface {
	Clash() config.ClashDoc
}

// ProfileSource provides the current profile and its file.
type ProfileSource interface {
	Current() (profiles.Item, bool)
	FilePath(item profiles.Item) string
}

// Generator writes the runtime config.
type Generator struct {
	clash    ClashSource
	profiles ProfileSource
	path     string
}

// NewGenerator creates a generator writing to path.
func NewGenerator(clash ClashSource, profiles ProfileSource, path string) *Generator {
	return &Generator{clash: clash, profiles: profiles, path: path}
}

// Path returns the runtime config path.
func (g *Generator) Path() string { return g.path }

// Generate builds and writes the runtime config.
func (g *Generator) Generate() (map[string]any, error) {
	base := map[string]any{}
	if item, ok := g.profiles.Current(); ok {
		loaded, err := loadProfile(g.profiles.FilePath(item))
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", item.UID, err)
		}
		base = loaded
	}

	runtime := Merge(base, g.clash.Clash())
	if err := config.WriteYAML(g.path, runtime); err != nil {
		return nil, err
	}
	return runtime, nil
}

// Merge lays the handled keys of clash over profile. profile is not modified.
func Merge(profile map[string]any, clash config.ClashDoc) map[string]any {
	out := make(map[string]any, len(profile)+len(HandledKeys))
	for k, v := range profile {
		out[k] = v
	}
	for _, k := range HandledKeys {
		if v, ok := clash[k]; ok {
			out[k] = v
		}
	}
	return out
}

func loadProfile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
