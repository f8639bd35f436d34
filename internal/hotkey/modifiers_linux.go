//go:build !nogui && !headless

package hotkey

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4.
func modifiers(m Mods) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if m&ModCtrl != 0 {
		mods = append(mods, hotkey.ModCtrl)
	}
	if m&ModShift != 0 {
		mods = append(mods, hotkey.ModShift)
	}
	if m&ModAlt != 0 {
		mods = append(mods, hotkey.Mod1)
	}
	if m&ModSuper != 0 {
		mods = append(mods, hotkey.Mod4)
	}
	return mods
}
