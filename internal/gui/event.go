package gui

import "image"

type EventKind int

const (
	EventKeyUp EventKind = iota
	EventQuit
	EventResize
	EventButtonDown
	EventWheel
	EventMotion
)

func (k EventKind) String() string {
	switch k {
	case EventKeyUp:
		return "key-up"
	case EventQuit:
		return "quit"
	case EventResize:
		return "resize"
	case EventButtonDown:
		return "button-down"
	case EventWheel:
		return "wheel"
	case EventMotion:
		return "motion"
	default:
		return "unknown"
	}
}

// Buttons is a set of pointer buttons.
type Buttons uint8

const (
	ButtonLeft Buttons = 1 << iota
	ButtonRight
	ButtonMiddle
)

const KeyEscape rune = 0x1b

// Event is one input event in viewport pixel coordinates.
type Event struct {
	Kind EventKind
	// Key is the released key for EventKeyUp: a printable rune or KeyEscape.
	Key rune
	X, Y int
	// Width and Height are the new viewport for EventResize.
	Width, Height int
	// Buttons held during EventMotion, or pressed for EventButtonDown.
	Buttons Buttons
	// Wheel is +1 for a step up and -1 for a step down.
	Wheel int
}

// Frontend is the window or terminal the loop draws into.
type Frontend interface {
	// Size is the viewport in pixels.
	Size() (int, int)
	// Poll returns the next queued event without blocking.
	Poll() (Event, bool)
	// Pending receives when new input is queued. A nil channel means the
	// frontend must be polled periodically instead.
	Pending() <-chan struct{}
	// Present shows img scaled to the viewport with overlay text on top.
	Present(img *image.RGBA, overlay string) error
	Close() error
}
