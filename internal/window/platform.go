package window

import "runtime"

// PlatformProfile is the fixed window chrome and default size of one target platform.
// It is selected once at startup.
type PlatformProfile struct {
	Name string

	// Decorations enables the native frame. Transparent only applies when it is off.
	Decorations bool
	Transparent bool
	// OverlayTitleBar hides the title and draws content under the native title bar.
	OverlayTitleBar bool
	// Shadow requests a drop shadow after creation.
	Shadow bool

	DefaultWidth  float64
	DefaultHeight float64
}

var profiles = map[string]PlatformProfile{
	"windows": {
		Name:          "windows",
		Transparent:   true,
		Shadow:        true,
		DefaultWidth:  800,
		DefaultHeight: 636,
	},
	"darwin": {
		Name:            "darwin",
		Decorations:     true,
		OverlayTitleBar: true,
		Shadow:          true,
		DefaultWidth:    800,
		DefaultHeight:   642,
	},
	"linux": {
		Name:          "linux",
		Transparent:   true,
		DefaultWidth:  800,
		DefaultHeight: 642,
	},
}

// ProfileFor returns the profile for goos. Unknown platforms get the linux profile.
func ProfileFor(goos string) PlatformProfile {
	if p, ok := profiles[goos]; ok {
		return p
	}
	p := profiles["linux"]
	p.Name = goos
	return p
}

// CurrentProfile returns the profile of the running platform.
func CurrentProfile() PlatformProfile {
	return ProfileFor(runtime.GOOS)
}
