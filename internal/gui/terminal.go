package gui

import (
	"fmt"
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Terminal draws into a tcell screen using upper half blocks, so every cell
// shows two vertically stacked pixels. Input is read by a pump goroutine.
type Terminal struct {
	screen tcell.Screen

	mu      sync.Mutex
	queue   []Event
	buttons Buttons
	pending chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewTerminal initialises screen, or the real terminal when screen is nil,
// and starts reading input.
func NewTerminal(screen tcell.Screen) (*Terminal, error) {
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return nil, fmt.Errorf("terminal: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}
	screen.EnableMouse()
	screen.HideCursor()
	screen.Clear()

	t := &Terminal{
		screen:  screen,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go t.pump()
	return t, nil
}

func (t *Terminal) pump() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		if out, ok := t.translate(ev); ok {
			t.mu.Lock()
			t.queue = append(t.queue, out)
			t.mu.Unlock()
			select {
			case t.pending <- struct{}{}:
			default:
			}
		}
	}
}

// translate maps a tcell event onto the loop's events. Terminals report key
// presses only, so a press stands in for the release.
func (t *Terminal) translate(ev tcell.Event) (Event, bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape:
			return Event{Kind: EventKeyUp, Key: KeyEscape}, true
		case tcell.KeyCtrlC:
			return Event{Kind: EventQuit}, true
		case tcell.KeyRune:
			return Event{Kind: EventKeyUp, Key: ev.Rune()}, true
		}
	case *tcell.EventResize:
		w, h := ev.Size()
		return Event{Kind: EventResize, Width: w, Height: h * 2}, true
	case *tcell.EventMouse:
		x, y := ev.Position()
		y *= 2
		b := ev.Buttons()
		switch {
		case b&tcell.WheelUp != 0:
			return Event{Kind: EventWheel, Wheel: 1, X: x, Y: y}, true
		case b&tcell.WheelDown != 0:
			return Event{Kind: EventWheel, Wheel: -1, X: x, Y: y}, true
		}

		var held Buttons
		if b&tcell.Button1 != 0 {
			held |= ButtonLeft
		}
		if b&tcell.Button2 != 0 {
			held |= ButtonRight
		}
		if b&tcell.Button3 != 0 {
			held |= ButtonMiddle
		}

		prev := t.buttons
		t.buttons = held
		switch {
		case held != 0 && held&^prev != 0:
			return Event{Kind: EventButtonDown, Buttons: held &^ prev, X: x, Y: y}, true
		case held != 0:
			return Event{Kind: EventMotion, Buttons: held, X: x, Y: y}, true
		}
	}
	return Event{}, false
}

// Size reports the viewport in pixels: one column and two rows per cell.
func (t *Terminal) Size() (int, int) {
	w, h := t.screen.Size()
	return w, h * 2
}

func (t *Terminal) Poll() (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return Event{}, false
	}
	ev := t.queue[0]
	t.queue = t.queue[1:]
	return ev, true
}

func (t *Terminal) Pending() <-chan struct{} { return t.pending }

func (t *Terminal) Present(img *image.RGBA, overlay string) error {
	cols, rows := t.screen.Size()
	if cols == 0 || rows == 0 {
		return nil
	}
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
	ph := rows * 2

	pixel := func(x, y int) tcell.Color {
		c := img.RGBAAt(x*iw/cols, y*ih/ph)
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			style := tcell.StyleDefault.Foreground(pixel(cx, 2*cy)).Background(pixel(cx, 2*cy+1))
			t.screen.SetContent(cx, cy, '▀', nil, style)
		}
	}

	if overlay != "" {
		style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
		for i, r := range []rune(overlay) {
			if i >= cols {
				break
			}
			t.screen.SetContent(i, 0, r, nil, style)
		}
	}
	t.screen.Show()
	return nil
}

// Close restores the terminal and waits for the input pump to stop.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.screen.Fini()
		<-t.done
	})
	return nil
}
