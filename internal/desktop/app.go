package desktop

import (
	"context"
	"io/fs"

	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"verge-go/internal/window"
)

// Hooks are the wails lifecycle callbacks.
type Hooks struct {
	OnStartup func(ctx context.Context)
	// OnBeforeClose returns true to keep the process alive.
	OnBeforeClose func(ctx context.Context) bool
	OnShutdown    func(ctx context.Context)
}

// AppOptions builds the wails options for the platform profile. The window always
// starts hidden; the bootstrap sequence decides whether and where it appears.
func AppOptions(profile window.PlatformProfile, assets fs.FS, hooks Hooks) *options.App {
	alpha := uint8(255)
	if profile.Transparent && !profile.Decorations {
		alpha = 0
	}

	titleBar := mac.TitleBarDefault()
	if profile.OverlayTitleBar {
		titleBar = mac.TitleBarHiddenInset()
	}

	return &options.App{
		Title:            window.Title,
		Width:            int(profile.DefaultWidth),
		Height:           int(profile.DefaultHeight),
		MinWidth:         int(window.MinWidth),
		MinHeight:        int(window.MinHeight),
		StartHidden:      true,
		Frameless:        !profile.Decorations,
		BackgroundColour: &options.RGBA{R: 255, G: 255, B: 255, A: alpha},
		AssetServer:      &assetserver.Options{Assets: assets},
		OnStartup:        hooks.OnStartup,
		OnBeforeClose:    hooks.OnBeforeClose,
		OnShutdown:       hooks.OnShutdown,
		Mac: &mac.Options{
			TitleBar:             titleBar,
			WebviewIsTransparent: profile.Transparent,
		},
		Windows: &windows.Options{
			WebviewIsTransparent: profile.Transparent,
			WindowIsTranslucent:  profile.Transparent,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: profile.Transparent,
			ProgramName:         "clash-verge",
		},
	}
}
