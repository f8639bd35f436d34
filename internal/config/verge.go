package config

// Verge is the persisted settings document of the shell (verge.yaml).
// Every field is optional; nil means "not configured".
type Verge struct {
	VergeMixedPort     *uint16   `yaml:"verge_mixed_port,omitempty"`
	EnableRandomPort   *bool     `yaml:"enable_random_port,omitempty"`
	EnableSilentStart  *bool     `yaml:"enable_silent_start,omitempty"`
	WindowSizePosition []float64 `yaml:"window_size_position,omitempty"`
	WindowIsMaximized  *bool     `yaml:"window_is_maximized,omitempty"`

	EnableSystemProxy *bool   `yaml:"enable_system_proxy,omitempty"`
	SystemProxyBypass *string `yaml:"system_proxy_bypass,omitempty"`
	EnableAutoLaunch  *bool   `yaml:"enable_auto_launch,omitempty"`

	StartupScript *string  `yaml:"startup_script,omitempty"`
	ClashCore     *string  `yaml:"clash_core,omitempty"`
	Hotkeys       []string `yaml:"hotkeys,omitempty"`
}

// DefaultVerge is the document written on first launch
func DefaultVerge() Verge {
	return Verge{
		EnableRandomPort:  Ptr(false),
		EnableSilentStart: Ptr(false),
		EnableSystemProxy: Ptr(false),
		EnableAutoLaunch:  Ptr(false),
		ClashCore:         Ptr("verge-mihomo"),
	}
}

// Patch overwrites every field of v that is set in p.
func (v *Verge) Patch(p Verge) {
	if p.VergeMixedPort != nil {
		v.VergeMixedPort = Ptr(*p.VergeMixedPort)
	}
	if p.EnableRandomPort != nil {
		v.EnableRandomPort = Ptr(*p.EnableRandomPort)
	}
	if p.EnableSilentStart != nil {
		v.EnableSilentStart = Ptr(*p.EnableSilentStart)
	}
	if p.WindowSizePosition != nil {
		v.WindowSizePosition = append([]float64(nil), p.WindowSizePosition...)
	}
	if p.WindowIsMaximized != nil {
		v.WindowIsMaximized = Ptr(*p.WindowIsMaximized)
	}
	if p.EnableSystemProxy != nil {
		v.EnableSystemProxy = Ptr(*p.EnableSystemProxy)
	}
	if p.SystemProxyBypass != nil {
		v.SystemProxyBypass = Ptr(*p.SystemProxyBypass)
	}
	if p.EnableAutoLaunch != nil {
		v.EnableAutoLaunch = Ptr(*p.EnableAutoLaunch)
	}
	if p.StartupScript != nil {
		v.StartupScript = Ptr(*p.StartupScript)
	}
	if p.ClashCore != nil {
		v.ClashCore = Ptr(*p.ClashCore)
	}
	if p.Hotkeys != nil {
		v.Hotkeys = append([]string(nil), p.Hotkeys...)
	}
}

// Clone returns a deep copy
func (v Verge) Clone() Verge {
	var out Verge
	out.Patch(v)
	return out
}
