//go:build windows

package sysopt

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const internetSettingsKey = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`

const (
	internetOptionRefresh         = 37
	internetOptionSettingsChanged = 39
)

var (
	wininet               = windows.NewLazySystemDLL("wininet.dll")
	procInternetSetOption = wininet.NewProc("InternetSetOptionW")
)

// registryProxy writes the per-user WinINet proxy settings.
type registryProxy struct{}

func (registryProxy) Get() (Proxy, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		return Proxy{}, fmt.Errorf("failed to open internet settings: %w", err)
	}
	defer k.Close()

	var p Proxy
	if enable, _, err := k.GetIntegerValue("ProxyEnable"); err == nil {
		p.Enable = enable == 1
	}
	if server, _, err := k.GetStringValue("ProxyServer"); err == nil && server != "" {
		if host, port, err := net.SplitHostPort(server); err == nil {
			p.Host = host
			n, _ := strconv.ParseUint(port, 10, 16)
			p.Port = uint16(n)
		}
	}
	if override, _, err := k.GetStringValue("ProxyOverride"); err == nil {
		p.Bypass = override
	}
	return p, nil
}

func (registryProxy) Set(p Proxy) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open internet settings: %w", err)
	}
	defer k.Close()

	var enable uint32
	if p.Enable {
		enable = 1
		server := net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
		if err := k.SetStringValue("ProxyServer", server); err != nil {
			return err
		}
		if err := k.SetStringValue("ProxyOverride", strings.Join(splitBypass(p.Bypass), ";")); err != nil {
			return err
		}
	}
	if err := k.SetDWordValue("ProxyEnable", enable); err != nil {
		return err
	}
	return refreshInternetSettings()
}

func refreshInternetSettings() error {
	if err := procInternetSetOption.Find(); err != nil {
		return err
	}
	for _, option := range []uintptr{internetOptionSettingsChanged, internetOptionRefresh} {
		ret, _, callErr := procInternetSetOption.Call(0, option, 0, 0)
		if ret == 0 {
			return errors.Join(errors.New("InternetSetOptionW failed"), callErr)
		}
	}
	return nil
}
