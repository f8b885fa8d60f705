// Package event provides the single-threaded event context the booth runs on:
// key event fan-out, keyed periodic timers and coalesced repaint requests.
package event

import (
	"strings"
	"time"
)

// Key is a logical key understood by the booth.
type Key int

const (
	KeyNone Key = iota
	KeyEscape
	KeyLeft
	KeyRight
)

func (k Key) String() string {
	switch k {
	case KeyEscape:
		return "escape"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	default:
		return "none"
	}
}

// ParseKey maps "left", "right" and "escape" (case-insensitive) to a Key.
func ParseKey(s string) (Key, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return KeyLeft, true
	case "right":
		return KeyRight, true
	case "escape", "esc":
		return KeyEscape, true
	}
	return KeyNone, false
}

// Source tells where a key event came from. Only SourceButton is subject to
// the input lockout.
type Source int

const (
	SourceKeyboard Source = iota
	SourceScreen
	SourceButton
)

func (s Source) String() string {
	switch s {
	case SourceKeyboard:
		return "keyboard"
	case SourceScreen:
		return "screen"
	case SourceButton:
		return "button"
	default:
		return "unknown"
	}
}

// KeyEvent is a key press from any input source.
type KeyEvent struct {
	Key    Key
	Source Source
}

// TimerKey names a periodic timer. Starting a timer with a key that is
// already live replaces it.
type TimerKey string

type (
	KeyHandler   func(KeyEvent) error
	TimerHandler func() error
	PaintHandler func() error
)

// Context is what the booth core needs from its runtime.
type Context interface {
	BindKeyEvent(h KeyHandler)
	StartPeriodicTimer(key TimerKey, period time.Duration, h TimerHandler)
	StopTimer(key TimerKey)
	RequestRepaint()
}
