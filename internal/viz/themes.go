package viz

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Palette maps normalised density to colour by linear interpolation
// between evenly spaced stops.
type Palette struct {
	Name  string
	Stops []lipgloss.Color
	rgba  []color.RGBA
}

var (
	PaletteSmoke = newPalette("smoke", "#000000", "#3a3f4b", "#9aa4b8", "#ffffff")
	PaletteFire  = newPalette("fire", "#000000", "#7a1000", "#ff6a00", "#ffd84a", "#ffffff")
	PaletteOcean = newPalette("ocean", "#001a33", "#0077be", "#00a8cc", "#e0f0ff")
	PaletteNeon  = newPalette("neon", "#0a0a0a", "#ff00ff", "#00ffff", "#ffffff")

	// All available palettes
	Palettes = []*Palette{PaletteSmoke, PaletteFire, PaletteOcean, PaletteNeon}
)

func newPalette(name string, stops ...lipgloss.Color) *Palette {
	p := &Palette{Name: name, Stops: stops}
	for _, s := range stops {
		p.rgba = append(p.rgba, parseHex(string(s)))
	}
	return p
}

func parseHex(s string) color.RGBA {
	if len(s) != 7 || s[0] != '#' {
		panic(fmt.Sprintf("viz: bad colour %q", s))
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		panic(fmt.Sprintf("viz: bad colour %q", s))
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// At returns the colour for v in [0, 1]; values outside are clamped.
func (p *Palette) At(v float64) color.RGBA {
	if v <= 0 {
		return p.rgba[0]
	}
	n := len(p.rgba) - 1
	if v >= 1 {
		return p.rgba[n]
	}
	f := v * float64(n)
	i := int(f)
	t := f - float64(i)
	a, b := p.rgba[i], p.rgba[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + t*(float64(y)-float64(x)) + 0.5) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// Color is At as a lipgloss colour, for terminal views.
func (p *Palette) Color(v float64) lipgloss.Color {
	c := p.At(v)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// GetPalette returns a palette by name, or the smoke palette.
func GetPalette(name string) *Palette {
	for _, p := range Palettes {
		if p.Name == name {
			return p
		}
	}
	return PaletteSmoke
}

// PaletteNames returns list of available palette names
func PaletteNames() []string {
	names := make([]string, len(Palettes))
	for i, p := range Palettes {
		names[i] = p.Name
	}
	return names
}
