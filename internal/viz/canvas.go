package viz

import (
	"image"
	"image/color"
)

// DrawWireframe projects every edge of w and draws it onto img.
func DrawWireframe(img *image.RGBA, w *Wireframe, cam *Camera, c color.RGBA) {
	if img == nil || w == nil || cam == nil {
		return
	}
	bw, bh := img.Bounds().Dx(), img.Bounds().Dy()
	for _, e := range w.Edges {
		x1, y1, _, v1 := cam.Project(e.Start, bw, bh)
		x2, y2, _, v2 := cam.Project(e.End, bw, bh)
		if v1 && v2 {
			drawLine(img, x1, y1, x2, y2, c)
		}
	}
}

// drawLine draws a line using Bresenham's algorithm; points off the image
// are skipped.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	r := img.Bounds()
	for steps := 0; steps <= dx+dy; steps++ {
		if image.Pt(x0, y0).In(r) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
