package sysopt

import (
	"context"
	"strconv"
	"strings"
)

const gnomeProxySchema = "org.gnome.system.proxy"

// gnomeProxy drives the GNOME proxy settings through gsettings.
type gnomeProxy struct {
	run runner
}

func (g gnomeProxy) get(key ...string) (string, error) {
	args := append([]string{"get"}, key...)
	out, err := g.run(context.Background(), "gsettings", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (g gnomeProxy) set(schema, key, value string) error {
	_, err := g.run(context.Background(), "gsettings", "set", schema, key, value)
	return err
}

func (g gnomeProxy) Get() (Proxy, error) {
	mode, err := g.get(gnomeProxySchema, "mode")
	if err != nil {
		return Proxy{}, err
	}
	host, err := g.get(gnomeProxySchema+".http", "host")
	if err != nil {
		return Proxy{}, err
	}
	rawPort, err := g.get(gnomeProxySchema+".http", "port")
	if err != nil {
		return Proxy{}, err
	}
	ignore, err := g.get(gnomeProxySchema, "ignore-hosts")
	if err != nil {
		return Proxy{}, err
	}

	port, _ := strconv.ParseUint(rawPort, 10, 16)
	return Proxy{
		Enable: unquote(mode) == "manual",
		Host:   unquote(host),
		Port:   uint16(port),
		Bypass: strings.Join(parseGVariantList(ignore), ","),
	}, nil
}

func (g gnomeProxy) Set(p Proxy) error {
	if !p.Enable {
		return g.set(gnomeProxySchema, "mode", "'none'")
	}

	for _, kind := range []string{"http", "https", "socks"} {
		schema := gnomeProxySchema + "." + kind
		if err := g.set(schema, "host", quote(p.Host)); err != nil {
			return err
		}
		if err := g.set(schema, "port", strconv.Itoa(int(p.Port))); err != nil {
			return err
		}
	}
	if err := g.set(gnomeProxySchema, "ignore-hosts", formatGVariantList(splitBypass(p.Bypass))); err != nil {
		return err
	}
	return g.set(gnomeProxySchema, "mode", "'manual'")
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `\'`, "'")
}

// formatGVariantList renders ['a', 'b'].
func formatGVariantList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, quote(item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// parseGVariantList parses ['a', 'b'] and @as [].
func parseGVariantList(s string) []string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@as"))
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := unquote(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitBypass splits a bypass list on commas and semicolons.
func splitBypass(bypass string) []string {
	fields := strings.FieldsFunc(bypass, func(r rune) bool { return r == ',' || r == ';' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
