package viewport

import (
	"math"
	"testing"

	"github.com/example/siteplan/internal/geom"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func nearPt(a, b geom.Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }

func TestButtonZoomAnchorsCentre(t *testing.T) {
	v := New(800, 600)
	v.ZoomIn()
	if !near(v.Scale, 1.2) {
		t.Fatalf("scale = %v, want 1.2", v.Scale)
	}
	// The scene point under the canvas centre must not move.
	c := v.Centre()
	if got := v.ToScreen(geom.Pt(400, 300)); !nearPt(got, c) {
		t.Fatalf("centre drifted to %v", got)
	}
	v.ZoomOut()
	if !near(v.Scale, 1) || !nearPt(v.Translate, geom.Point{}) {
		t.Fatalf("zoom out did not invert zoom in: %+v", v)
	}
}

func TestClampBounds(t *testing.T) {
	v := New(100, 100)
	for i := 0; i < 50; i++ {
		v.ZoomIn()
	}
	if v.Scale != MaxScale {
		t.Fatalf("scale = %v, want %v", v.Scale, MaxScale)
	}
	for i := 0; i < 100; i++ {
		v.ZoomOut()
	}
	if v.Scale != MinScale {
		t.Fatalf("scale = %v, want %v", v.Scale, MinScale)
	}
}

func TestWheelZoomToPoint(t *testing.T) {
	tests := []struct {
		name   string
		deltaY float64
		cursor geom.Point
	}{
		{"zoom in at corner", -100, geom.Pt(10, 20)},
		{"zoom out at middle", 250, geom.Pt(300, 200)},
		{"large delta clamps", -100000, geom.Pt(50, 50)},
	}
	for _, tt := range tests {
		v := New(800, 600)
		v.Pan(geom.Pt(13, -7))
		before := v.ToScene(tt.cursor)
		want := Clamp(v.Scale * math.Pow(WheelBase, tt.deltaY))
		v.Wheel(tt.deltaY, tt.cursor)
		if !near(v.Scale, want) {
			t.Errorf("%s: scale = %v, want %v", tt.name, v.Scale, want)
		}
		if after := v.ToScene(tt.cursor); !nearPt(before, after) {
			t.Errorf("%s: point under cursor moved %v -> %v", tt.name, before, after)
		}
	}
}

func TestResetAndRoundTrip(t *testing.T) {
	v := New(640, 480)
	v.Wheel(-300, geom.Pt(100, 100))
	v.Pan(geom.Pt(40, 40))
	p := geom.Pt(123.5, 67.25)
	if got := v.ToScene(v.ToScreen(p)); !nearPt(got, p) {
		t.Fatalf("round trip %v -> %v", p, got)
	}
	v.Reset()
	if v.Scale != 1 || v.Translate != (geom.Point{}) {
		t.Fatalf("reset left %+v", v)
	}
	if m := v.Matrix(); m != [6]float64{1, 0, 0, 1, 0, 0} {
		t.Fatalf("matrix = %v", m)
	}
}

func TestResizeIdempotent(t *testing.T) {
	v := New(100, 100)
	if !v.Resize(200, 150) {
		t.Fatal("first resize should report a change")
	}
	if v.Resize(200, 150) {
		t.Fatal("repeat resize should be a no-op")
	}
	if v.Width != 200 || v.Height != 150 {
		t.Fatalf("size = %vx%v", v.Width, v.Height)
	}
}
