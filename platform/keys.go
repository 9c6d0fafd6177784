package platform

import (
	"fmt"
	"strings"
)

// vkCodes maps key names to Windows virtual key codes
var vkCodes = map[string]uint32{
	"a": 0x41, "b": 0x42, "c": 0x43, "d": 0x44, "e": 0x45,
	"f": 0x46, "g": 0x47, "h": 0x48, "i": 0x49, "j": 0x4A,
	"k": 0x4B, "l": 0x4C, "m": 0x4D, "n": 0x4E, "o": 0x4F,
	"p": 0x50, "q": 0x51, "r": 0x52, "s": 0x53, "t": 0x54,
	"u": 0x55, "v": 0x56, "w": 0x57, "x": 0x58, "y": 0x59, "z": 0x5A,
	"0": 0x30, "1": 0x31, "2": 0x32, "3": 0x33, "4": 0x34,
	"5": 0x35, "6": 0x36, "7": 0x37, "8": 0x38, "9": 0x39,
	"f1": 0x70, "f2": 0x71, "f3": 0x72, "f4": 0x73,
	"f5": 0x74, "f6": 0x75, "f7": 0x76, "f8": 0x77,
	"f9": 0x78, "f10": 0x79, "f11": 0x7A, "f12": 0x7B,
	"space": 0x20, "enter": 0x0D, "esc": 0x1B,
	"tab": 0x09, "backspace": 0x08,
	"shift": 0x10, "ctrl": 0x11, "alt": 0x12, "win": 0x5B,
}

// Low-level hooks report the left/right variants of modifiers
var modifierAliases = map[uint32]string{
	0xA0: "shift", 0xA1: "shift",
	0xA2: "ctrl", 0xA3: "ctrl",
	0xA4: "alt", 0xA5: "alt",
	0x5C: "win",
}

var vkNames = func() map[uint32]string {
	names := make(map[uint32]string, len(vkCodes)+len(modifierAliases))
	for name, code := range vkCodes {
		names[code] = name
	}
	for code, name := range modifierAliases {
		names[code] = name
	}
	return names
}()

// CanonicalKey normalizes a configured key name ("Control" -> "ctrl", "cmd" -> "win")
func CanonicalKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "control":
		return "ctrl"
	case "cmd", "command", "meta", "super", "windows":
		return "win"
	case "option":
		return "alt"
	case "escape":
		return "esc"
	case "return":
		return "enter"
	}
	return name
}

// VKCode returns the Windows virtual key code for a key name
func VKCode(key string) (uint32, error) {
	if code, ok := vkCodes[CanonicalKey(key)]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("unknown key: %s", key)
}

// KeyName returns the key name for a virtual key code. Codes without a name
// map to "vk_0xNN" so they never collide with a configured key.
func KeyName(vk uint32) string {
	if name, ok := vkNames[vk]; ok {
		return name
	}
	return fmt.Sprintf("vk_0x%02x", vk)
}
