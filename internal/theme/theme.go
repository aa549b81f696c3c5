package theme

import (
	"image/color"
	"sort"
	"strings"
)

// Theme defines the colours of the editor chrome. Scene objects carry their
// own colours and are not themed.
type Theme struct {
	Name string

	// General
	Background color.RGBA // Window area around the canvas
	Foreground color.RGBA // Status and notice text
	Canvas     color.RGBA // Paper colour under the background layer

	// Toolbar
	ToolbarBackground     color.RGBA
	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA // Also marks the active tool
	ButtonText            color.RGBA
	ButtonBorder          color.RGBA

	// Editing aids
	VertexMarker     color.RGBA // Polygon vertices placed so far
	ClosingHighlight color.RGBA // First vertex once the polygon can close
	Connector        color.RGBA // Lines between pending vertices
	SelectionOutline color.RGBA
	RubberBand       color.RGBA
	DeleteAffordance color.RGBA
	DeleteGlyph      color.RGBA
	Caret            color.RGBA

	// Notices
	NoticeBackground color.RGBA
	NoticeText       color.RGBA

	// Transparent canvas pattern
	CheckerLight color.RGBA
	CheckerDark  color.RGBA

	// Chrome metrics in canvas pixels
	MarkerRadius   float64 // Doubled for the closing highlight
	ConnectorWidth float64
	OutlineWidth   float64
	NoticeFontSize float64
}

// Default returns the hardcoded default light theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:                  "Default",
		Background:            color.RGBA{220, 220, 220, 255},
		Foreground:            color.RGBA{0, 0, 0, 255},
		Canvas:                color.RGBA{255, 255, 255, 255},
		ToolbarBackground:     color.RGBA{220, 220, 220, 255},
		ButtonBackground:      color.RGBA{200, 200, 200, 255},
		ButtonBackgroundHover: color.RGBA{180, 180, 180, 255},
		ButtonBackgroundPress: color.RGBA{150, 150, 150, 255},
		ButtonText:            color.RGBA{0, 0, 0, 255},
		ButtonBorder:          color.RGBA{0, 0, 0, 255},
		VertexMarker:          color.RGBA{0, 120, 215, 255},
		ClosingHighlight:      color.RGBA{0, 200, 0, 255},
		Connector:             color.RGBA{0, 120, 215, 255},
		SelectionOutline:      color.RGBA{0, 120, 215, 255},
		RubberBand:            color.RGBA{0, 120, 215, 96},
		DeleteAffordance:      color.RGBA{220, 53, 69, 255},
		DeleteGlyph:           color.RGBA{255, 255, 255, 255},
		Caret:                 color.RGBA{0, 0, 0, 255},
		NoticeBackground:      color.RGBA{255, 255, 255, 230},
		NoticeText:            color.RGBA{0, 0, 0, 255},
		CheckerLight:          color.RGBA{220, 220, 220, 255},
		CheckerDark:           color.RGBA{192, 192, 192, 255},
		MarkerRadius:          4,
		ConnectorWidth:        1.5,
		OutlineWidth:          1,
		NoticeFontSize:        16,
	}
}

// Dark is a low-glare variant.
func Dark() *Theme {
	t := Default()
	t.Name = "Dark"
	t.Background = color.RGBA{40, 40, 40, 255}
	t.Foreground = color.RGBA{230, 230, 230, 255}
	t.Canvas = color.RGBA{64, 64, 64, 255}
	t.ToolbarBackground = color.RGBA{32, 32, 32, 255}
	t.ButtonBackground = color.RGBA{60, 60, 60, 255}
	t.ButtonBackgroundHover = color.RGBA{80, 80, 80, 255}
	t.ButtonBackgroundPress = color.RGBA{100, 100, 100, 255}
	t.ButtonText = color.RGBA{230, 230, 230, 255}
	t.ButtonBorder = color.RGBA{120, 120, 120, 255}
	t.Caret = color.RGBA{230, 230, 230, 255}
	t.NoticeBackground = color.RGBA{30, 30, 30, 230}
	t.NoticeText = color.RGBA{230, 230, 230, 255}
	t.CheckerLight = color.RGBA{70, 70, 70, 255}
	t.CheckerDark = color.RGBA{55, 55, 55, 255}
	return t
}

// HighContrast uses saturated chrome for projectors and poor screens.
func HighContrast() *Theme {
	t := Default()
	t.Name = "HighContrast"
	t.Background = color.RGBA{0, 0, 0, 255}
	t.Foreground = color.RGBA{255, 255, 0, 255}
	t.ToolbarBackground = color.RGBA{0, 0, 0, 255}
	t.ButtonBackground = color.RGBA{0, 0, 0, 255}
	t.ButtonBackgroundHover = color.RGBA{0, 0, 160, 255}
	t.ButtonBackgroundPress = color.RGBA{255, 255, 0, 255}
	t.ButtonText = color.RGBA{255, 255, 255, 255}
	t.ButtonBorder = color.RGBA{255, 255, 255, 255}
	t.VertexMarker = color.RGBA{255, 0, 255, 255}
	t.ClosingHighlight = color.RGBA{0, 255, 0, 255}
	t.Connector = color.RGBA{255, 0, 255, 255}
	t.SelectionOutline = color.RGBA{255, 0, 255, 255}
	t.RubberBand = color.RGBA{255, 0, 255, 128}
	t.MarkerRadius = 6
	t.ConnectorWidth = 3
	t.OutlineWidth = 2
	t.NoticeFontSize = 20
	return t
}

var builtins = map[string]func() *Theme{
	"default":       Default,
	"dark":          Dark,
	"high_contrast": HighContrast,
}

// Builtin returns a compiled-in theme by case-insensitive name.
func Builtin(name string) (*Theme, bool) {
	fn, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// BuiltinNames lists the compiled-in theme names.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithDefaultMetrics returns a copy of t whose unset metrics are taken from
// Default. Themes built in code often set colours only.
func (t *Theme) WithDefaultMetrics() *Theme {
	c := *t
	d := Default()
	for _, m := range []struct{ dst, def *float64 }{
		{&c.MarkerRadius, &d.MarkerRadius},
		{&c.ConnectorWidth, &d.ConnectorWidth},
		{&c.OutlineWidth, &d.OutlineWidth},
		{&c.NoticeFontSize, &d.NoticeFontSize},
	} {
		if *m.dst <= 0 {
			*m.dst = *m.def
		}
	}
	return &c
}
