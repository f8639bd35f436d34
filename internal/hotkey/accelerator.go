package hotkey

import (
	"fmt"
	"strings"
)

// Mods is a set of modifier keys.
type Mods uint8

const (
	ModCtrl Mods = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Accelerator is a parsed shortcut such as "CmdOrControl+Shift+D".
type Accelerator struct {
	Mods Mods
	// Key is the upper-cased key name: a letter, a digit, F1-F12 or a named key.
	Key string
}

var namedKeys = map[string]string{
	"SPACE":  "SPACE",
	"ENTER":  "RETURN",
	"RETURN": "RETURN",
	"ESC":    "ESCAPE",
	"ESCAPE": "ESCAPE",
	"TAB":    "TAB",
	"DELETE": "DELETE",
	"LEFT":   "LEFT",
	"RIGHT":  "RIGHT",
	"UP":     "UP",
	"DOWN":   "DOWN",
}

// ParseAccelerator parses a "+" separated shortcut for goos. CmdOrControl maps to
// the command key on darwin and to control elsewhere.
func ParseAccelerator(s, goos string) (Accelerator, error) {
	var acc Accelerator
	parts := strings.Split(s, "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q", s)
		}
		if i == len(parts)-1 {
			key, ok := keyName(part)
			if !ok {
				return Accelerator{}, fmt.Errorf("unsupported key %q in %q", part, s)
			}
			acc.Key = key
			break
		}

		switch strings.ToLower(part) {
		case "cmdorcontrol", "cmdorctrl", "commandorcontrol", "commandorctrl":
			if goos == "darwin" {
				acc.Mods |= ModSuper
			} else {
				acc.Mods |= ModCtrl
			}
		case "ctrl", "control":
			acc.Mods |= ModCtrl
		case "shift":
			acc.Mods |= ModShift
		case "alt", "option":
			acc.Mods |= ModAlt
		case "cmd", "command", "super", "meta", "win":
			acc.Mods |= ModSuper
		default:
			return Accelerator{}, fmt.Errorf("unsupported modifier %q in %q", part, s)
		}
	}
	if acc.Mods == 0 {
		return Accelerator{}, fmt.Errorf("accelerator %q needs a modifier", s)
	}
	return acc, nil
}

func keyName(part string) (string, bool) {
	upper := strings.ToUpper(part)
	if len(upper) == 1 && (upper[0] >= 'A' && upper[0] <= 'Z' || upper[0] >= '0' && upper[0] <= '9') {
		return upper, true
	}
	if named, ok := namedKeys[upper]; ok {
		return named, true
	}
	if n, ok := strings.CutPrefix(upper, "F"); ok {
		switch n {
		case "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12":
			return upper, true
		}
	}
	return "", false
}
