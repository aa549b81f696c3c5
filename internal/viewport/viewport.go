// Package viewport maps scene coordinates onto the canvas.
//
// The transform is uniform scale followed by translation:
//
//	screen = scene*Scale + Translate
package viewport

import (
	"math"

	"github.com/example/siteplan/internal/geom"
)

const (
	MinScale = 0.1
	MaxScale = 5.0

	// ButtonFactor is the multiplier applied by one zoom button press.
	ButtonFactor = 1.2
	// WheelBase is raised to the wheel deltaY to get the zoom factor.
	WheelBase = 0.999
)

// Viewport is the pan/zoom state of one canvas.
type Viewport struct {
	Scale     float64
	Translate geom.Point
	Width     float64
	Height    float64
}

// New returns an identity viewport over a w x h canvas.
func New(w, h float64) *Viewport {
	return &Viewport{Scale: 1, Width: w, Height: h}
}

// Clamp limits s to [MinScale, MaxScale].
func Clamp(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, s))
}

// ToScene converts a canvas point to scene space.
func (v *Viewport) ToScene(p geom.Point) geom.Point {
	return p.Sub(v.Translate).Scale(1 / v.Scale)
}

// ToScreen converts a scene point to canvas space.
func (v *Viewport) ToScreen(p geom.Point) geom.Point {
	return p.Scale(v.Scale).Add(v.Translate)
}

// ZoomAt sets the scale to s (clamped) while keeping the scene point under
// the canvas point anchor fixed.
func (v *Viewport) ZoomAt(s float64, anchor geom.Point) {
	s = Clamp(s)
	if s == v.Scale {
		return
	}
	ratio := s / v.Scale
	v.Translate = anchor.Sub(anchor.Sub(v.Translate).Scale(ratio))
	v.Scale = s
}

// Centre is the middle of the canvas in canvas space.
func (v *Viewport) Centre() geom.Point {
	return geom.Pt(v.Width/2, v.Height/2)
}

// ZoomIn multiplies the scale by ButtonFactor around the canvas centre.
func (v *Viewport) ZoomIn() {
	v.ZoomAt(v.Scale*ButtonFactor, v.Centre())
}

// ZoomOut divides the scale by ButtonFactor around the canvas centre.
func (v *Viewport) ZoomOut() {
	v.ZoomAt(v.Scale/ButtonFactor, v.Centre())
}

// Wheel applies a scroll of deltaY anchored at the cursor. Positive deltaY
// zooms out.
func (v *Viewport) Wheel(deltaY float64, cursor geom.Point) {
	v.ZoomAt(v.Scale*math.Pow(WheelBase, deltaY), cursor)
}

// Pan shifts the view by d canvas pixels.
func (v *Viewport) Pan(d geom.Point) {
	v.Translate = v.Translate.Add(d)
}

// Reset restores scale 1 and zero translation.
func (v *Viewport) Reset() {
	v.Scale = 1
	v.Translate = geom.Point{}
}

// Resize sets the canvas size. It reports whether anything changed.
func (v *Viewport) Resize(w, h float64) bool {
	if v.Width == w && v.Height == h {
		return false
	}
	v.Width, v.Height = w, h
	return true
}

// Matrix returns the 2x3 affine [a b c d e f] with
// x' = a*x + c*y + e and y' = b*x + d*y + f.
func (v *Viewport) Matrix() [6]float64 {
	return [6]float64{v.Scale, 0, 0, v.Scale, v.Translate.X, v.Translate.Y}
}
