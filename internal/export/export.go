// Package export converts scene objects into the element list handed to
// the host application.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
)

const (
	CategoryAnnotation = "annotation"
	CategoryAsset      = "asset"
)

// Properties is the style and metadata bag of a DrawingElement.
type Properties struct {
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	Category    string  `json:"category,omitempty"`
	Label       string  `json:"label,omitempty"`
}

// DrawingElement summarises one drawable for the host. Coordinates hold a
// representative anchor, not a full reconstruction of the geometry.
type DrawingElement struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Coordinates []geom.Point `json:"coordinates"`
	Properties  Properties   `json:"properties"`
}

// ExternalElement is a host supplied overlay item. Only image elements are
// rendered; Image is resolved through the session loader.
type ExternalElement struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Image      string         `json:"image,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Measurement reports the size of a finished shape in scene units.
type Measurement struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Area      float64 `json:"area,omitempty"`
	Perimeter float64 `json:"perimeter,omitempty"`
	Length    float64 `json:"length,omitempty"`
}

// Elements returns one DrawingElement per drawable in objs, in order.
// Layer objects are skipped.
func Elements(objs []*scene.Object) []DrawingElement {
	out := make([]DrawingElement, 0, len(objs))
	for _, o := range objs {
		if o.IsLayer() {
			continue
		}
		out = append(out, Element(o))
	}
	return out
}

// Element converts a single object.
func Element(o *scene.Object) DrawingElement {
	return DrawingElement{
		ID:          o.ID,
		Type:        string(o.Kind),
		Coordinates: coordinates(o),
		Properties: Properties{
			Color:       o.Style.StrokeColor,
			StrokeWidth: o.Style.StrokeWidth,
			FillColor:   o.Style.FillColor,
			Category:    category(o),
			Label:       label(o),
		},
	}
}

func coordinates(o *scene.Object) []geom.Point {
	switch o.Kind {
	case scene.KindText:
		return []geom.Point{o.Position}
	case scene.KindLine:
		return []geom.Point{o.Start, o.End}
	case scene.KindCircle:
		return []geom.Point{o.Center}
	}
	return []geom.Point{o.Bounds().Min}
}

func category(o *scene.Object) string {
	if v, ok := o.Properties["category"].(string); ok {
		return v
	}
	if o.Kind == scene.KindImage {
		return CategoryAsset
	}
	return CategoryAnnotation
}

func label(o *scene.Object) string {
	if o.Kind == scene.KindText {
		return o.Text
	}
	if v, ok := o.Properties["label"].(string); ok {
		return v
	}
	return ""
}

// Measure returns the measurement for shapes that have one.
func Measure(o *scene.Object) (Measurement, bool) {
	m := Measurement{ID: o.ID, Type: string(o.Kind)}
	switch o.Kind {
	case scene.KindRectangle:
		b := o.Bounds()
		m.Area = b.Dx() * b.Dy()
		m.Perimeter = 2 * (b.Dx() + b.Dy())
	case scene.KindCircle:
		r := math.Abs(o.Radius)
		m.Area = math.Pi * r * r
		m.Perimeter = 2 * math.Pi * r
	case scene.KindPolygon:
		m.Area = geom.PolygonArea(o.Vertices)
		m.Perimeter = geom.Perimeter(o.Vertices)
	case scene.KindLine:
		m.Length = o.Start.Distance(o.End)
	default:
		return Measurement{}, false
	}
	return m, true
}

// WriteJSON encodes elements as an indented JSON array.
func WriteJSON(w io.Writer, elements []DrawingElement) error {
	if elements == nil {
		elements = []DrawingElement{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(elements); err != nil {
		return fmt.Errorf("encode elements: %w", err)
	}
	return nil
}

// ReadExternal decodes a JSON array of external elements.
func ReadExternal(r io.Reader) ([]ExternalElement, error) {
	var out []ExternalElement
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode external elements: %w", err)
	}
	return out, nil
}
