package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyM   = 77  // M key (ASCII)
	KeyR   = 82  // R key (ASCII)
	KeyV   = 86  // V key (ASCII)
	KeyEsc = 256 // Escape key (GLFW)
)

// KeyAction is the state change a key event reports.
type KeyAction int

const (
	// KeyRelease is reported when a key goes up.
	KeyRelease KeyAction = iota

	// KeyPress is reported when a key goes down.
	KeyPress

	// KeyRepeat is reported while a key is held down.
	KeyRepeat
)

// String returns the lowercase action name.
func (a KeyAction) String() string {
	switch a {
	case KeyRelease:
		return "release"
	case KeyPress:
		return "press"
	case KeyRepeat:
		return "repeat"
	}
	return "unknown"
}

// KeyEvent is a single key transition delivered by the window.
type KeyEvent struct {
	// Key is the virtual key code (see the Key constants).
	Key uint32

	// Action is the transition that occurred.
	Action KeyAction
}
