package input

import (
	"fmt"
	"strings"
)

// Linux input keycodes for bindable modifier keys. A name may map to
// several codes ("ctrl" matches either side); the channel counts as
// pressed while any of them is down.
var modifierCodes = map[string][]uint16{
	"leftctrl":   {29},
	"rightctrl":  {97},
	"ctrl":       {29, 97},
	"leftshift":  {42},
	"rightshift": {54},
	"shift":      {42, 54},
	"leftalt":    {56},
	"rightalt":   {100},
	"alt":        {56, 100},
	"leftmeta":   {125},
	"rightmeta":  {126},
	"meta":       {125, 126},
	"capslock":   {58},
}

// ModifierKey resolves a modifier key name to its keycodes.
func ModifierKey(name string) ([]uint16, bool) {
	codes, ok := modifierCodes[strings.ToLower(name)]
	return codes, ok
}

// a=30 ... z=44, same layout as the console keymap.
var letterCodes = [26]uint16{
	30, 48, 46, 32, 18, 33, 34, 35, 23, 36,
	37, 38, 50, 49, 24, 25, 16, 19, 31, 20,
	22, 47, 17, 45, 21, 44,
}

// 0=11, 1=2, ..., 9=10
var digitCodes = [10]uint16{11, 2, 3, 4, 5, 6, 7, 8, 9, 10}

const keycodeSpace = 57

// ShortcutSpec is a parsed custom shortcut like "ctrl+shift+space".
type ShortcutSpec struct {
	Ctrl, Shift, Alt, Meta bool
	Key                    string
	KeyCode                uint16
}

// ParseShortcut parses a "+"-separated combination. The final element is
// the trigger key (a letter, digit, or "space"); the rest are modifiers.
func ParseShortcut(s string) (ShortcutSpec, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return ShortcutSpec{}, fmt.Errorf("shortcut %q needs at least one modifier", s)
	}
	var spec ShortcutSpec
	for _, mod := range parts[:len(parts)-1] {
		switch strings.TrimSpace(mod) {
		case "ctrl":
			spec.Ctrl = true
		case "shift":
			spec.Shift = true
		case "alt":
			spec.Alt = true
		case "meta", "super", "cmd":
			spec.Meta = true
		default:
			return ShortcutSpec{}, fmt.Errorf("unknown modifier %q in shortcut %q", mod, s)
		}
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	spec.Key = key
	switch {
	case key == "space":
		spec.KeyCode = keycodeSpace
	case len(key) == 1 && key[0] >= 'a' && key[0] <= 'z':
		spec.KeyCode = letterCodes[key[0]-'a']
	case len(key) == 1 && key[0] >= '0' && key[0] <= '9':
		spec.KeyCode = digitCodes[key[0]-'0']
	default:
		return ShortcutSpec{}, fmt.Errorf("unsupported shortcut key %q", key)
	}
	return spec, nil
}
