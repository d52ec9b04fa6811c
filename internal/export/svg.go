package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/viz"
)

// SliceToSVG draws the z = slice plane of f as one square per interior cell,
// scale pixels wide, coloured by density relative to the frame peak. Empty
// cells are left to the background.
func SliceToSVG(g dynamo.Grid, f dynamo.Field, slice int, scale float64, pal *viz.Palette) (string, error) {
	if len(f) != g.Cells() {
		return "", fmt.Errorf("%w: %d values for a %s grid", dynamo.ErrDimensionMismatch, len(f), g)
	}
	if slice < 1 || slice > g.N {
		return "", fmt.Errorf("%w: slice %d outside 1..%d", dynamo.ErrGridSize, slice, g.N)
	}
	if pal == nil {
		pal = viz.PaletteSmoke
	}
	peak := float64(f.Max())
	if peak <= 0 {
		peak = 1
	}

	size := float64(g.N) * scale
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size))

	for j := 1; j <= g.N; j++ {
		for i := 1; i <= g.N; i++ {
			v := float64(f[g.Index(i, j, slice)]) / peak
			if v <= 0.001 {
				continue
			}
			c := pal.At(v)
			// y grows upwards in the grid and downwards in SVG.
			x := float64(i-1) * scale
			y := float64(g.N-j) * scale
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#%02x%02x%02x"/>
`, x, y, scale, scale, c.R, c.G, c.B))
		}
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

// VolumeToPNG ray marches one frame the way the live view does and encodes
// the image as PNG.
func VolumeToPNG(w io.Writer, g dynamo.Grid, f dynamo.Field, size int, pal *viz.Palette) error {
	v := viz.NewViewer(size, false, pal)
	v.SetViewport(size, size)
	if err := v.IngestFromSimulation(g, f); err != nil {
		return err
	}
	var img image.Image = v.Render()
	return png.Encode(w, img)
}
