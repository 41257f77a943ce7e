// Package keys maps configured key names to Linux evdev key codes.
package keys

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a Linux input-event key code (KEY_* in input-event-codes.h).
type Code uint16

// ErrUnknownKey is returned when a key name has no evdev mapping.
var ErrUnknownKey = errors.New("unknown key")

var codes = map[string]Code{
	"ESC": 1,
	"1":   2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"MINUS":      12,
	"EQUAL":      13,
	"BACKSPACE":  14,
	"TAB":        15,
	"Q":          16, "W": 17, "E": 18, "R": 19, "T": 20, "Y": 21, "U": 22, "I": 23, "O": 24, "P": 25,
	"LEFTBRACE":  26,
	"RIGHTBRACE": 27,
	"ENTER":      28,
	"LEFTCTRL":   29,
	"A":          30, "S": 31, "D": 32, "F": 33, "G": 34, "H": 35, "J": 36, "K": 37, "L": 38,
	"SEMICOLON":  39,
	"APOSTROPHE": 40,
	"GRAVE":      41,
	"LEFTSHIFT":  42,
	"BACKSLASH":  43,
	"Z":          44, "X": 45, "C": 46, "V": 47, "B": 48, "N": 49, "M": 50,
	"COMMA":      51,
	"DOT":        52,
	"SLASH":      53,
	"RIGHTSHIFT": 54,
	"KPASTERISK": 55,
	"LEFTALT":    56,
	"SPACE":      57,
	"CAPSLOCK":   58,
	"F1":         59, "F2": 60, "F3": 61, "F4": 62, "F5": 63, "F6": 64, "F7": 65, "F8": 66, "F9": 67, "F10": 68,
	"NUMLOCK":    69,
	"SCROLLLOCK": 70,
	"KP7":        71, "KP8": 72, "KP9": 73, "KPMINUS": 74,
	"KP4": 75, "KP5": 76, "KP6": 77, "KPPLUS": 78,
	"KP1": 79, "KP2": 80, "KP3": 81, "KP0": 82, "KPDOT": 83,
	"F11":            87,
	"F12":            88,
	"KPENTER":        96,
	"RIGHTCTRL":      97,
	"KPSLASH":        98,
	"SYSRQ":          99,
	"RIGHTALT":       100,
	"HOME":           102,
	"UP":             103,
	"PAGEUP":         104,
	"LEFT":           105,
	"RIGHT":          106,
	"END":            107,
	"DOWN":           108,
	"PAGEDOWN":       109,
	"INSERT":         110,
	"DELETE":         111,
	"MUTE":           113,
	"VOLUMEDOWN":     114,
	"VOLUMEUP":       115,
	"POWER":          116,
	"KPEQUAL":        117,
	"PAUSE":          119,
	"LEFTMETA":       125,
	"RIGHTMETA":      126,
	"COMPOSE":        127,
	"STOP":           128,
	"AGAIN":          129,
	"UNDO":           131,
	"COPY":           133,
	"OPEN":           134,
	"PASTE":          135,
	"FIND":           136,
	"CUT":            137,
	"HELP":           138,
	"MENU":           139,
	"CALC":           140,
	"SLEEP":          142,
	"WWW":            150,
	"SCREENLOCK":     152,
	"MAIL":           155,
	"BOOKMARKS":      156,
	"BACK":           158,
	"FORWARD":        159,
	"NEXTSONG":       163,
	"PLAYPAUSE":      164,
	"PREVIOUSSONG":   165,
	"STOPCD":         166,
	"REFRESH":        173,
	"SCROLLUP":       177,
	"SCROLLDOWN":     178,
	"NEW":            181,
	"REDO":           182,
	"F13":            183, "F14": 184, "F15": 185, "F16": 186, "F17": 187, "F18": 188,
	"F19": 189, "F20": 190, "F21": 191, "F22": 192, "F23": 193, "F24": 194,
	"PRINT":          210,
	"SEARCH":         217,
	"BRIGHTNESSDOWN": 224,
	"BRIGHTNESSUP":   225,
	"MICMUTE":        248,
}

// aliases are accepted spellings that resolve to a canonical name.
var aliases = map[string]string{
	"SUPER":  "LEFTMETA",
	"META":   "LEFTMETA",
	"CTRL":   "LEFTCTRL",
	"SHIFT":  "LEFTSHIFT",
	"ALT":    "LEFTALT",
	"PERIOD": "DOT",
	"ESCAPE": "ESC",
	"RETURN": "ENTER",
	"10":     "0",
}

// Lookup resolves a key name (case-insensitive, optional KEY_ prefix) to its code.
func Lookup(name string) (Code, error) {
	normalized := normalize(name)
	if canonical, ok := aliases[normalized]; ok {
		normalized = canonical
	}
	code, ok := codes[normalized]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return code, nil
}

// Resolve maps an ordered list of key names to codes, preserving order.
func Resolve(names []string) ([]Code, error) {
	out := make([]Code, 0, len(names))
	for _, name := range names {
		code, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

// Name returns the canonical name for code, or "KEY_<n>" when unmapped.
func Name(code Code) string {
	for name, c := range codes {
		if c == code {
			return name
		}
	}
	return fmt.Sprintf("KEY_%d", code)
}

// Names lists every canonical key name in sorted order.
func Names() []string {
	out := make([]string, 0, len(codes))
	for name := range codes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

func normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "KEY_")
}
