package activity

import (
	"fmt"

	serrors "github.com/pilab-dev/shadow-session/errors"
)

// Kind is a class of user interaction that counts as activity.
type Kind string

const (
	PointerDown Kind = "mousedown"
	PointerMove Kind = "mousemove"
	KeyPress    Kind = "keypress"
	Scroll      Kind = "scroll"
	TouchStart  Kind = "touchstart"
	Click       Kind = "click"
	KeyDown     Kind = "keydown"
	Wheel       Kind = "wheel"
)

var kinds = []Kind{PointerDown, PointerMove, KeyPress, Scroll, TouchStart, Click, KeyDown, Wheel}

// Kinds returns the fixed set of interaction classes the tracker listens to.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind maps an event name such as "mousemove" to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == name {
			return k, nil
		}
	}

	return "", fmt.Errorf("%w: %q", serrors.ErrUnknownActivityKind, name)
}
