package theme

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned for a theme key that names no chrome setting.
var ErrUnknownKey = errors.New("unknown theme key")

// Entry is one key and its formatted value.
type Entry struct {
	Key   string
	Value string
}

// setting binds a theme file key to either a colour or a metric.
type setting struct {
	key    string
	colour func(*Theme) *color.RGBA
	metric func(*Theme) *float64
}

func colourKey(key string, f func(*Theme) *color.RGBA) setting {
	return setting{key: key, colour: f}
}

func metricKey(key string, f func(*Theme) *float64) setting {
	return setting{key: key, metric: f}
}

// settings lists every key in the order themes are written out.
var settings = []setting{
	colourKey("background", func(t *Theme) *color.RGBA { return &t.Background }),
	colourKey("foreground", func(t *Theme) *color.RGBA { return &t.Foreground }),
	colourKey("canvas", func(t *Theme) *color.RGBA { return &t.Canvas }),
	colourKey("toolbar_background", func(t *Theme) *color.RGBA { return &t.ToolbarBackground }),
	colourKey("button_background", func(t *Theme) *color.RGBA { return &t.ButtonBackground }),
	colourKey("button_background_hover", func(t *Theme) *color.RGBA { return &t.ButtonBackgroundHover }),
	colourKey("button_background_press", func(t *Theme) *color.RGBA { return &t.ButtonBackgroundPress }),
	colourKey("button_text", func(t *Theme) *color.RGBA { return &t.ButtonText }),
	colourKey("button_border", func(t *Theme) *color.RGBA { return &t.ButtonBorder }),
	colourKey("vertex_marker", func(t *Theme) *color.RGBA { return &t.VertexMarker }),
	colourKey("closing_highlight", func(t *Theme) *color.RGBA { return &t.ClosingHighlight }),
	colourKey("connector", func(t *Theme) *color.RGBA { return &t.Connector }),
	colourKey("selection_outline", func(t *Theme) *color.RGBA { return &t.SelectionOutline }),
	colourKey("rubber_band", func(t *Theme) *color.RGBA { return &t.RubberBand }),
	colourKey("delete_affordance", func(t *Theme) *color.RGBA { return &t.DeleteAffordance }),
	colourKey("delete_glyph", func(t *Theme) *color.RGBA { return &t.DeleteGlyph }),
	colourKey("caret", func(t *Theme) *color.RGBA { return &t.Caret }),
	colourKey("notice_background", func(t *Theme) *color.RGBA { return &t.NoticeBackground }),
	colourKey("notice_text", func(t *Theme) *color.RGBA { return &t.NoticeText }),
	colourKey("checker_light", func(t *Theme) *color.RGBA { return &t.CheckerLight }),
	colourKey("checker_dark", func(t *Theme) *color.RGBA { return &t.CheckerDark }),
	metricKey("marker_radius", func(t *Theme) *float64 { return &t.MarkerRadius }),
	metricKey("connector_width", func(t *Theme) *float64 { return &t.ConnectorWidth }),
	metricKey("outline_width", func(t *Theme) *float64 { return &t.OutlineWidth }),
	metricKey("notice_font_size", func(t *Theme) *float64 { return &t.NoticeFontSize }),
}

var settingIndex = func() map[string]setting {
	m := make(map[string]setting, len(settings))
	for _, s := range settings {
		m[normalizeKey(s.key)] = s
	}
	return m
}()

// normalizeKey lets vertex_marker, VertexMarker and vertexmarker name the
// same setting.
func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", ""))
}

// Set assigns one key. Colours take #RGB, #RRGGBB or #RRGGBBAA; metrics a
// positive number of canvas pixels.
func (t *Theme) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if normalizeKey(key) == "name" {
		t.Name = value
		return nil
	}
	s, ok := settingIndex[normalizeKey(key)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if s.colour != nil {
		c, err := ParseHex(value)
		if err != nil {
			return fmt.Errorf("%s: %w", s.key, err)
		}
		*s.colour(t) = c
		return nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", s.key, value)
	}
	if n <= 0 {
		return fmt.Errorf("%s: must be positive, got %v", s.key, n)
	}
	*s.metric(t) = n
	return nil
}

// Entries lists every setting of t in file order, name first.
func (t *Theme) Entries() []Entry {
	out := make([]Entry, 0, len(settings)+1)
	out = append(out, Entry{Key: "name", Value: t.Name})
	for _, s := range settings {
		if s.colour != nil {
			out = append(out, Entry{Key: s.key, Value: Hex(*s.colour(t))})
			continue
		}
		out = append(out, Entry{Key: s.key, Value: strconv.FormatFloat(*s.metric(t), 'g', -1, 64)})
	}
	return out
}

// Write emits t in the format Parse reads.
func (t *Theme) Write(w io.Writer) error {
	for _, e := range t.Entries() {
		if _, err := fmt.Fprintf(w, "%s = %s\n", e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads a theme file on top of the default theme. Each line is
// "key = value" or "key: value"; blank lines and lines starting with # or
// // are skipped.
func Parse(r io.Reader) (*Theme, error) {
	t := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		if err := t.Set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return t, scanner.Err()
}

// ParseHex parses #RGB, #RRGGBB or #RRGGBBAA.
func ParseHex(s string) (color.RGBA, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("colour %q must start with #", s)
	}
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	if len(digits) != 6 && len(digits) != 8 {
		return color.RGBA{}, fmt.Errorf("colour %q: want 3, 6 or 8 hex digits", s)
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	c := color.RGBA{R: b[0], G: b[1], B: b[2], A: 255}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

// Hex formats c as #rrggbb, or #rrggbbaa when not opaque.
func Hex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
