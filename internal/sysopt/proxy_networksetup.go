package sysopt

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
)

// macProxy drives the macOS proxy settings through networksetup for every
// enabled network service.
type macProxy struct {
	run runner
}

func (m macProxy) services() ([]string, error) {
	out, err := m.run(context.Background(), "networksetup", "-listallnetworkservices")
	if err != nil {
		return nil, err
	}
	return parseNetworkServices(string(out)), nil
}

func (m macProxy) Get() (Proxy, error) {
	services, err := m.services()
	if err != nil {
		return Proxy{}, err
	}
	if len(services) == 0 {
		return Proxy{}, errors.New("no network service found")
	}

	out, err := m.run(context.Background(), "networksetup", "-getwebproxy", services[0])
	if err != nil {
		return Proxy{}, err
	}
	p := parseWebProxy(string(out))

	bypass, err := m.run(context.Background(), "networksetup", "-getproxybypassdomains", services[0])
	if err == nil {
		p.Bypass = strings.Join(parseBypassDomains(string(bypass)), ",")
	}
	return p, nil
}

func (m macProxy) Set(p Proxy) error {
	services, err := m.services()
	if err != nil {
		return err
	}

	state := "off"
	if p.Enable {
		state = "on"
	}
	port := strconv.Itoa(int(p.Port))

	var errs []error
	for _, svc := range services {
		if p.Enable {
			for _, flag := range []string{"-setwebproxy", "-setsecurewebproxy", "-setsocksfirewallproxy"} {
				if _, err := m.run(context.Background(), "networksetup", flag, svc, p.Host, port); err != nil {
					errs = append(errs, err)
				}
			}
			args := append([]string{"-setproxybypassdomains", svc}, splitBypass(p.Bypass)...)
			if _, err := m.run(context.Background(), "networksetup", args...); err != nil {
				errs = append(errs, err)
			}
		}
		for _, flag := range []string{"-setwebproxystate", "-setsecurewebproxystate", "-setsocksfirewallproxystate"} {
			if _, err := m.run(context.Background(), "networksetup", flag, svc, state); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// parseNetworkServices skips the header line and disabled (*) services.
func parseNetworkServices(out string) []string {
	var services []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if strings.HasPrefix(line, "An asterisk") {
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		services = append(services, line)
	}
	return services
}

// parseWebProxy parses the output of networksetup -getwebproxy.
func parseWebProxy(out string) Proxy {
	var p Proxy
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Enabled":
			p.Enable = value == "Yes"
		case "Server":
			p.Host = value
		case "Port":
			port, _ := strconv.ParseUint(value, 10, 16)
			p.Port = uint16(port)
		}
	}
	return p
}

func parseBypassDomains(out string) []string {
	if strings.HasPrefix(strings.TrimSpace(out), "There aren't any bypass domains") {
		return nil
	}
	return strings.Fields(out)
}
