package viewer

import (
	"image/color"

	"github.com/example/siteplan/internal/render"
	"github.com/example/siteplan/internal/scene"
)

// Swatch is a named palette entry. Name is what the session stores.
type Swatch struct {
	Name  string
	Color color.RGBA
}

var paletteNames = []string{
	"black", "white", "red", "lime", "blue", "yellow", "cyan", "magenta",
	"maroon", "green", "navy", "olive", "teal", "purple", "silver", "gray",
}

var strokeWidths = []float64{1, 2, 4, 6, 8}

// Palette returns the stroke colours offered by the toolbar.
func Palette() []Swatch {
	out := make([]Swatch, len(paletteNames))
	for i, n := range paletteNames {
		c, _ := render.ParseColor(n)
		out[i] = Swatch{Name: n, Color: c}
	}
	return out
}

// FillPalette is Palette preceded by the transparent entry.
func FillPalette() []Swatch {
	return append([]Swatch{{Name: scene.Transparent}}, Palette()...)
}

// Widths returns the stroke widths offered by the toolbar.
func Widths() []float64 {
	return append([]float64(nil), strokeWidths...)
}
