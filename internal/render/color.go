package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/theme"
	"golang.org/x/image/colornames"
)

// ParseColor accepts CSS colour names, #RGB, #RRGGBB, #RRGGBBAA and the
// transparent sentinel.
func ParseColor(s string) (color.RGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "" || v == scene.Transparent:
		return color.RGBA{}, nil
	case strings.HasPrefix(v, "#"):
		c, err := theme.ParseHex(v)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return c, nil
	}
	if c, ok := colornames.Map[v]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown colour %q", s)
}

// ValidColor reports whether s parses.
func ValidColor(s string) bool {
	_, err := ParseColor(s)
	return err == nil
}

// Hex formats c as #RRGGBB, or #RRGGBBAA when not opaque.
func Hex(c color.RGBA) string {
	return theme.Hex(c)
}

func mustColor(s string) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return c
}
