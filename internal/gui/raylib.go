//go:build raylib

package gui

import (
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	colBg   = rl.NewColor(16, 16, 20, 255)
	colText = rl.NewColor(180, 180, 180, 255)
)

// releaseKeys are the keys the loop reacts to, with the rune they report.
var releaseKeys = []struct {
	key int32
	r   rune
}{
	{rl.KeyEscape, KeyEscape},
	{rl.KeyC, 'c'},
	{rl.KeyI, 'i'},
	{rl.KeyS, 's'},
	{rl.KeySpace, ' '},
	{rl.KeyLeftBracket, '['},
	{rl.KeyRightBracket, ']'},
}

// Window is a raylib frontend. All of its methods must run on the thread
// that created it.
type Window struct {
	tex    rl.Texture2D
	loaded bool
	pixels []color.RGBA

	queue []Event
	lastX int
	lastY int
}

func NewWindow(width, height int, title string) *Window {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(width), int32(height), title)
	rl.SetExitKey(0)
	return &Window{}
}

func (w *Window) Size() (int, int) {
	return rl.GetScreenWidth(), rl.GetScreenHeight()
}

// Poll gathers the window's input once per drain and returns it event by event.
func (w *Window) Poll() (Event, bool) {
	if len(w.queue) == 0 {
		w.collect()
	}
	if len(w.queue) == 0 {
		return Event{}, false
	}
	ev := w.queue[0]
	w.queue = w.queue[1:]
	return ev, true
}

func (w *Window) collect() {
	rl.PollInputEvents()

	if rl.WindowShouldClose() {
		w.queue = append(w.queue, Event{Kind: EventQuit})
		return
	}
	if rl.IsWindowResized() {
		ww, wh := w.Size()
		w.queue = append(w.queue, Event{Kind: EventResize, Width: ww, Height: wh})
	}
	for _, k := range releaseKeys {
		if rl.IsKeyReleased(k.key) {
			w.queue = append(w.queue, Event{Kind: EventKeyUp, Key: k.r})
		}
	}

	x, y := int(rl.GetMouseX()), int(rl.GetMouseY())
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		w.queue = append(w.queue, Event{Kind: EventWheel, Wheel: int(wheel), X: x, Y: y})
	}

	var pressed, held Buttons
	for _, b := range []struct {
		rl  rl.MouseButton
		btn Buttons
	}{
		{rl.MouseLeftButton, ButtonLeft},
		{rl.MouseRightButton, ButtonRight},
		{rl.MouseMiddleButton, ButtonMiddle},
	} {
		if rl.IsMouseButtonPressed(b.rl) {
			pressed |= b.btn
		}
		if rl.IsMouseButtonDown(b.rl) {
			held |= b.btn
		}
	}
	if pressed != 0 {
		w.queue = append(w.queue, Event{Kind: EventButtonDown, Buttons: pressed, X: x, Y: y})
	} else if held != 0 && (x != w.lastX || y != w.lastY) {
		w.queue = append(w.queue, Event{Kind: EventMotion, Buttons: held, X: x, Y: y})
	}
	w.lastX, w.lastY = x, y
}

// Pending is nil: raylib has no input channel, the loop polls.
func (w *Window) Pending() <-chan struct{} { return nil }

func (w *Window) Present(img *image.RGBA, overlay string) error {
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
	if !w.loaded || int(w.tex.Width) != iw || int(w.tex.Height) != ih {
		if w.loaded {
			rl.UnloadTexture(w.tex)
		}
		rimg := rl.NewImageFromImage(img)
		w.tex = rl.LoadTextureFromImage(rimg)
		rl.UnloadImage(rimg)
		rl.SetTextureFilter(w.tex, rl.FilterBilinear)
		w.loaded = true
	} else {
		w.pixels = w.pixels[:0]
		for i := 0; i+3 < len(img.Pix); i += 4 {
			w.pixels = append(w.pixels, color.RGBA{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]})
		}
		rl.UpdateTexture(w.tex, w.pixels)
	}

	sw, sh := w.Size()
	rl.BeginDrawing()
	rl.ClearBackground(colBg)
	rl.DrawTexturePro(w.tex,
		rl.NewRectangle(0, 0, float32(iw), float32(ih)),
		rl.NewRectangle(0, 0, float32(sw), float32(sh)),
		rl.NewVector2(0, 0), 0, rl.White)
	if overlay != "" {
		rl.DrawText(overlay, 8, 8, 16, colText)
	}
	rl.EndDrawing()
	return nil
}

func (w *Window) Close() error {
	if w.loaded {
		rl.UnloadTexture(w.tex)
		w.loaded = false
	}
	rl.CloseWindow()
	return nil
}

// OpenWindow opens the raylib window frontend.
func OpenWindow(width, height int, title string) (Frontend, error) {
	return NewWindow(width, height, title), nil
}
