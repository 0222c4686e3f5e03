package session

import "strings"

// KeyEvent is a keyboard event as delivered by a front-end.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
	Shift bool   `json:"shiftKey"`
}

type keyAction int

const (
	keyNone keyAction = iota
	keyUndo
	keyRedo
)

func (k KeyEvent) action() keyAction {
	if !k.Ctrl && !k.Meta {
		return keyNone
	}
	switch strings.ToLower(k.Key) {
	case "z":
		if k.Shift {
			return keyRedo
		}
		return keyUndo
	case "y":
		return keyRedo
	default:
		return keyNone
	}
}

// ParseKey reads a chord such as "ctrl+z" or "meta+shift+z".
func ParseKey(chord string) KeyEvent {
	var k KeyEvent
	for _, part := range strings.Split(chord, "+") {
		switch p := strings.ToLower(strings.TrimSpace(part)); p {
		case "ctrl", "control":
			k.Ctrl = true
		case "meta", "cmd", "super":
			k.Meta = true
		case "shift":
			k.Shift = true
		default:
			k.Key = p
		}
	}
	return k
}
