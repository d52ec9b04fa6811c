package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/store"
)

var (
	background   = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	outlineColor = color.RGBA{R: 200, G: 200, B: 90, A: 255}
	sliceColor   = color.RGBA{R: 90, G: 170, B: 220, A: 255}
)

const absorption = 1.5

// Viewer renders a density volume with a software ray marcher. It holds its
// own copy of the field, filled either from the running solver or from a
// recording.
type Viewer struct {
	cam     *Camera
	palette *Palette

	lightX, lightY   float64
	anchorX, anchorY int
	width, height    int
	resolution       int
	loop             bool

	grid    dynamo.Grid
	density dynamo.Field
	reader  *store.Reader
	ended   bool

	drawCube, drawSlice, drawInfo bool
	slice                         int
	info                          string

	img *image.RGBA
}

// NewViewer returns a viewer whose rendered image is at most resolution
// pixels along its longest side. loop makes playback restart at the end of
// a recording.
func NewViewer(resolution int, loop bool, palette *Palette) *Viewer {
	if palette == nil {
		palette = PaletteSmoke
	}
	return &Viewer{
		cam:        NewCamera(),
		palette:    palette,
		lightX:     0.8,
		lightY:     0.6,
		width:      resolution,
		height:     resolution,
		resolution: resolution,
		loop:       loop,
		drawCube:   true,
		drawInfo:   true,
	}
}

func (v *Viewer) Camera() *Camera { return v.cam }

func (v *Viewer) Grid() dynamo.Grid { return v.grid }

// Density is the field the next Render draws.
func (v *Viewer) Density() dynamo.Field { return v.density }

func (v *Viewer) SetViewport(w, h int) {
	v.width, v.height = max(w, 1), max(h, 1)
}

func (v *Viewer) Viewport() (int, int) { return v.width, v.height }

// IngestFromSimulation copies the solver density.
func (v *Viewer) IngestFromSimulation(g dynamo.Grid, d dynamo.Field) error {
	if len(d) != g.Cells() {
		return fmt.Errorf("%w: %d values for a %s grid", dynamo.ErrDimensionMismatch, len(d), g)
	}
	v.setGrid(g)
	copy(v.density, d)
	return nil
}

func (v *Viewer) setGrid(g dynamo.Grid) {
	if v.grid != g || len(v.density) != g.Cells() {
		v.grid = g
		v.density = g.NewField()
		v.slice = (g.N + 1) / 2
	}
}

// Open prepares playback of the recording at path. The first frame is
// loaded by the first LoadNextFrame.
func (v *Viewer) Open(path string) error {
	r, err := store.Open(path)
	if err != nil {
		return err
	}
	if r.Header().Frames == 0 {
		r.Close()
		return fmt.Errorf("%s: %w", path, store.ErrEndOfData)
	}
	if v.reader != nil {
		v.reader.Close()
	}
	v.reader = r
	v.ended = false
	v.setGrid(r.Header().Grid())
	return nil
}

// LoadNextFrame reads the next recorded frame. At the end of the recording
// it rewinds when looping; otherwise the last frame stays and
// store.ErrEndOfData is returned.
func (v *Viewer) LoadNextFrame() error {
	if v.reader == nil {
		return errors.New("viz: no recording open")
	}
	f, err := v.reader.Next()
	if errors.Is(err, store.ErrEndOfData) {
		if !v.loop {
			v.ended = true
			return err
		}
		if err := v.reader.Rewind(); err != nil {
			return err
		}
		f, err = v.reader.Next()
	}
	if err != nil {
		return err
	}
	copy(v.density, f)
	return nil
}

// Position returns the index of the frame on screen and the frame count.
func (v *Viewer) Position() (int, int) {
	if v.reader == nil {
		return 0, 0
	}
	return v.reader.Position() - 1, int(v.reader.Header().Frames)
}

// Ended reports whether non-looping playback reached the last frame.
func (v *Viewer) Ended() bool { return v.ended }

func (v *Viewer) Close() error {
	if v.reader == nil {
		return nil
	}
	err := v.reader.Close()
	v.reader = nil
	return err
}

func (v *Viewer) SetAnchor(x, y int) { v.anchorX, v.anchorY = x, y }

// Rotate turns the camera by the pointer motion from the anchor to (x, y)
// and moves the anchor there. A full viewport width is half a turn.
func (v *Viewer) Rotate(x, y int) {
	dx, dy := v.dragAngles(x, y)
	v.cam.Rotate(dx, dy)
}

// RotateLight is Rotate for the light direction.
func (v *Viewer) RotateLight(x, y int) {
	dx, dy := v.dragAngles(x, y)
	v.lightY += dx
	v.lightX = math.Max(-math.Pi/2, math.Min(math.Pi/2, v.lightX+dy))
}

func (v *Viewer) dragAngles(x, y int) (float64, float64) {
	dx := float64(x-v.anchorX) / float64(v.width) * math.Pi
	dy := float64(y-v.anchorY) / float64(v.height) * math.Pi
	v.anchorX, v.anchorY = x, y
	return dx, dy
}

// Dolly moves the eye by a pointer travel of dy pixels from the anchor;
// negative values move closer.
func (v *Viewer) Dolly(dy int) {
	v.cam.Dolly(float64(dy-v.anchorY) / float64(v.height))
}

func (v *Viewer) ToggleCube() bool {
	v.drawCube = !v.drawCube
	return v.drawCube
}

func (v *Viewer) ToggleSliceOutline() bool {
	v.drawSlice = !v.drawSlice
	return v.drawSlice
}

func (v *Viewer) ToggleInfo() bool {
	v.drawInfo = !v.drawInfo
	return v.drawInfo
}

// MoveSlice shifts the outlined slice by d cells, staying inside the grid.
func (v *Viewer) MoveSlice(d int) {
	v.slice = max(1, min(v.grid.N, v.slice+d))
}

func (v *Viewer) Slice() int { return v.slice }

func (v *Viewer) SetInfo(s string) { v.info = s }

// Info returns the overlay text and whether it should be shown.
func (v *Viewer) Info() (string, bool) { return v.info, v.drawInfo }

// RenderSize is the image size Render produces for the current viewport.
func (v *Viewer) RenderSize() (int, int) {
	w, h := v.width, v.height
	if long := max(w, h); long > v.resolution {
		w = max(1, w*v.resolution/long)
		h = max(1, h*v.resolution/long)
	}
	return w, h
}

// Render draws the current volume and the enabled outlines. The returned
// image is reused by the next call.
func (v *Viewer) Render() *image.RGBA {
	w, h := v.RenderSize()
	if v.img == nil || v.img.Bounds().Dx() != w || v.img.Bounds().Dy() != h {
		v.img = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	if v.density == nil {
		fill(v.img, background)
	} else {
		v.march(w, h)
	}

	if v.drawCube {
		DrawWireframe(v.img, CreateCubeWireframe(), v.cam, outlineColor)
	}
	if v.drawSlice && v.grid.N > 0 {
		z := 2*(float64(v.slice)-0.5)/float64(v.grid.N) - 1
		DrawWireframe(v.img, CreateSliceWireframe(z), v.cam, sliceColor)
	}
	return v.img
}

func fill(img *image.RGBA, c color.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// march casts one ray per pixel front to back through the volume,
// one cell per step, with Lambert shading from the density gradient.
func (v *Viewer) march(w, h int) {
	n := float64(v.grid.N)
	step := 2 / n
	light := Vec3{
		X: math.Sin(v.lightY) * math.Cos(v.lightX),
		Y: math.Sin(v.lightX),
		Z: math.Cos(v.lightY) * math.Cos(v.lightX),
	}

	toCell := func(p Vec3) (float32, float32, float32) {
		return float32((p.X+1)/2*n + 0.5), float32((p.Y+1)/2*n + 0.5), float32((p.Z+1)/2*n + 0.5)
	}

	dynamo.ParallelFor(h, 4, func(start, end int) {
		for py := start; py < end; py++ {
			for px := 0; px < w; px++ {
				var r, g, b float64
				trans := 1.0

				eye, dir := v.cam.Ray(px, py, w, h)
				if t0, t1, ok := boxHit(eye, dir); ok {
					for t := t0 + step/2; t < t1 && trans > 0.02; t += step {
						p := eye.Add(dir.Scale(t))
						x, y, z := toCell(p)
						d := float64(v.grid.Sample(v.density, x, y, z))
						if d <= 1e-4 {
							continue
						}
						grad := Vec3{
							X: float64(v.grid.Sample(v.density, x+1, y, z) - v.grid.Sample(v.density, x-1, y, z)),
							Y: float64(v.grid.Sample(v.density, x, y+1, z) - v.grid.Sample(v.density, x, y-1, z)),
							Z: float64(v.grid.Sample(v.density, x, y, z+1) - v.grid.Sample(v.density, x, y, z-1)),
						}
						shade := 0.35 + 0.65*math.Max(0, -grad.Normalize().Dot(light))
						c := v.palette.At(math.Min(1, d))
						a := 1 - math.Exp(-d*absorption)
						k := trans * a * shade / 255
						r += k * float64(c.R)
						g += k * float64(c.G)
						b += k * float64(c.B)
						trans *= 1 - a
					}
				}

				o := v.img.PixOffset(px, py)
				v.img.Pix[o+0] = uint8(math.Min(255, 255*r+trans*float64(background.R)))
				v.img.Pix[o+1] = uint8(math.Min(255, 255*g+trans*float64(background.G)))
				v.img.Pix[o+2] = uint8(math.Min(255, 255*b+trans*float64(background.B)))
				v.img.Pix[o+3] = 255
			}
		}
	})
}
