package scene

import (
	"image"
	"maps"
	"math"
	"slices"

	"github.com/example/siteplan/internal/geom"
)

// Kind identifies the geometry an Object carries.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindLine      Kind = "line"
	KindPolygon   Kind = "polygon"
	KindText      Kind = "text"
	KindImage     Kind = "image"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindRectangle, KindCircle, KindLine, KindPolygon, KindText, KindImage}
}

// Fillable reports whether the fill tool may repaint objects of this kind.
func (k Kind) Fillable() bool {
	switch k {
	case KindRectangle, KindCircle, KindPolygon:
		return true
	}
	return false
}

// Layer places an object in one of the three z-order bands.
// Drawable is the zero value so ordinary objects need no flag.
type Layer int

const (
	LayerDrawable Layer = iota
	LayerBackground
	LayerOverlay
)

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerOverlay:
		return "overlay"
	}
	return "drawable"
}

// rank orders bands bottom to top.
func (l Layer) rank() int {
	switch l {
	case LayerBackground:
		return 0
	case LayerOverlay:
		return 1
	}
	return 2
}

// Transparent is the fill colour sentinel meaning "no fill".
const Transparent = "transparent"

// Style is the paint applied to an object.
type Style struct {
	StrokeColor string
	StrokeWidth float64
	FillColor   string
}

// HasFill reports whether the style paints an interior.
func (s Style) HasFill() bool {
	return s.FillColor != "" && s.FillColor != Transparent
}

// Fit controls how a layer image maps onto the canvas.
type Fit int

const (
	// FitNone draws the image at Position with Width x Height.
	FitNone Fit = iota
	// FitContain scales preserving aspect ratio and centres on the canvas.
	FitContain
	// FitStretch fills the whole canvas ignoring aspect ratio.
	FitStretch
)

// Object is one entry in the scene. Only the fields for its Kind are used.
type Object struct {
	ID    string
	Kind  Kind
	Layer Layer
	Style Style

	// rectangle: the press point and the opposite corner.
	Anchor, Corner geom.Point

	// circle
	Center geom.Point
	Radius float64

	// line
	Start, End geom.Point

	// polygon
	Vertices []geom.Point

	// text and image: top-left plus measured extent.
	Position      geom.Point
	Width, Height float64

	Text     string
	FontSize float64
	// Editing marks the text object owning the keyboard.
	Editing bool
	// Preselected means the next typed rune replaces Text.
	Preselected bool

	Image    image.Image
	ImageRef string
	Fit      Fit

	// Set for objects that came from host-supplied external elements.
	ExternalID string
	Properties map[string]any
}

// IsLayer reports whether o lives in the background or overlay band.
func (o *Object) IsLayer() bool { return o.Layer != LayerDrawable }

// Bounds returns the scene-space bounding box. Layer images with a canvas
// fit report an empty box since their extent depends on the canvas.
func (o *Object) Bounds() geom.Rect {
	switch o.Kind {
	case KindRectangle:
		return geom.RectFrom(o.Anchor, o.Corner)
	case KindCircle:
		r := math.Abs(o.Radius)
		return geom.Rect{Min: geom.Pt(o.Center.X-r, o.Center.Y-r), Max: geom.Pt(o.Center.X+r, o.Center.Y+r)}
	case KindLine:
		return geom.RectFrom(o.Start, o.End)
	case KindPolygon:
		return geom.Bounds(o.Vertices)
	case KindText, KindImage:
		return geom.Rect{Min: o.Position, Max: geom.Pt(o.Position.X+o.Width, o.Position.Y+o.Height)}
	}
	return geom.Rect{}
}

// Contains reports whether the scene point p hits o. tol widens thin
// shapes (lines) so they can be picked.
func (o *Object) Contains(p geom.Point, tol float64) bool {
	switch o.Kind {
	case KindRectangle:
		return o.Bounds().Contains(p)
	case KindCircle:
		return p.Distance(o.Center) <= math.Abs(o.Radius)
	case KindLine:
		return geom.SegmentDistance(p, o.Start, o.End) <= math.Max(o.Style.StrokeWidth/2, tol)
	case KindPolygon:
		return geom.InPolygon(p, o.Vertices)
	case KindText, KindImage:
		return o.Bounds().Contains(p)
	}
	return false
}

// Translate moves o by d in scene space.
func (o *Object) Translate(d geom.Point) {
	switch o.Kind {
	case KindRectangle:
		o.Anchor = o.Anchor.Add(d)
		o.Corner = o.Corner.Add(d)
	case KindCircle:
		o.Center = o.Center.Add(d)
	case KindLine:
		o.Start = o.Start.Add(d)
		o.End = o.End.Add(d)
	case KindPolygon:
		for i := range o.Vertices {
			o.Vertices[i] = o.Vertices[i].Add(d)
		}
	case KindText, KindImage:
		o.Position = o.Position.Add(d)
	}
}

// Clone returns a copy that shares no mutable state with o. The decoded
// image is shared since it is never written after load.
func (o *Object) Clone() *Object {
	c := *o
	c.Vertices = slices.Clone(o.Vertices)
	c.Properties = maps.Clone(o.Properties)
	return &c
}
