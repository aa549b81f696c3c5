package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
)

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	n := 0
	opts = append([]Option{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("obj-%d", n)
	})}, opts...)
	s, err := New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func drag(s *Session, from, to geom.Point) {
	s.PointerDown(from)
	s.PointerMove(from.Add(to).Scale(0.5))
	s.PointerMove(to)
	s.PointerUp(to)
}

func click(s *Session, p geom.Point) {
	s.PointerDown(p)
	s.PointerUp(p)
}

func press(code key.Code) key.Event { return key.Event{Code: code, Direction: key.DirPress} }

func TestRectangleDragAndDelete(t *testing.T) {
	s := newSession(t)
	var last []export.DrawingElement
	s.OnChange(func(els []export.DrawingElement) { last = els })

	if err := s.SetTool(ToolRectangle); err != nil {
		t.Fatal(err)
	}
	drag(s, geom.Pt(50, 50), geom.Pt(150, 130))

	if len(last) != 1 || last[0].Type != "rectangle" {
		t.Fatalf("elements = %+v", last)
	}
	if last[0].Coordinates[0] != geom.Pt(50, 50) {
		t.Fatalf("anchor = %v", last[0].Coordinates[0])
	}
	o, _ := s.Object(last[0].ID)
	if b := o.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Fatalf("size = %vx%v", b.Dx(), b.Dy())
	}

	_ = s.SetTool(ToolSelect)
	click(s, geom.Pt(100, 100))
	if !s.HandleKey(press(key.CodeDeleteForward)) {
		t.Fatal("delete not consumed")
	}
	if len(last) != 0 || len(s.Elements()) != 0 {
		t.Fatalf("expected empty export, got %+v", last)
	}
}

func TestLiveResizeTracksPointer(t *testing.T) {
	tests := []struct {
		tool  Tool
		check func(*scene.Object) bool
	}{
		{ToolRectangle, func(o *scene.Object) bool { return o.Corner == geom.Pt(30, 40) }},
		{ToolCircle, func(o *scene.Object) bool { return o.Radius == 50 }},
		{ToolLine, func(o *scene.Object) bool { return o.End == geom.Pt(30, 40) }},
	}
	for _, tt := range tests {
		s := newSession(t)
		_ = s.SetTool(tt.tool)
		s.PointerDown(geom.Pt(0, 0))
		s.PointerMove(geom.Pt(30, 40))
		o, ok := s.Object("obj-1")
		if !ok || !tt.check(o) {
			t.Errorf("%v: geometry after move = %+v", tt.tool, o)
		}
		s.PointerUp(geom.Pt(30, 40))
	}
}

func TestZeroSizeShapeIsKept(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolCircle)
	click(s, geom.Pt(10, 10))
	if n := len(s.Elements()); n != 1 {
		t.Fatalf("elements = %d, want 1", n)
	}
}

func TestPolygonAutoClose(t *testing.T) {
	s := newSession(t)
	var measured []export.Measurement
	s.OnMeasure(func(m export.Measurement) { measured = append(measured, m) })
	_ = s.SetTool(ToolPolygon)
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 3, Y: 4}} {
		click(s, p)
	}
	els := s.Elements()
	if len(els) != 1 || els[0].Type != "polygon" {
		t.Fatalf("elements = %+v", els)
	}
	o, _ := s.Object(els[0].ID)
	if len(o.Vertices) != 3 {
		t.Fatalf("vertices = %v", o.Vertices)
	}
	if s.Tool() != ToolSelect {
		t.Fatalf("tool = %v, want select", s.Tool())
	}
	if len(s.Pending()) != 0 {
		t.Fatal("pending buffer should be empty")
	}
	if len(measured) != 1 || measured[0].Area != 5000 {
		t.Fatalf("measurements = %+v", measured)
	}
}

func TestPolygonNeedsThreeVerticesToAutoClose(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolPolygon)
	click(s, geom.Pt(0, 0))
	click(s, geom.Pt(100, 0))
	click(s, geom.Pt(2, 2)) // near vertex 1 but only two vertices so far
	if got := len(s.Pending()); got != 3 {
		t.Fatalf("pending = %d, want 3", got)
	}
	if len(s.Elements()) != 0 {
		t.Fatal("polygon should not be committed")
	}
}

func TestPolygonExplicitCommitRejected(t *testing.T) {
	s := newSession(t)
	var notices []string
	s.OnNotice(func(msg string) { notices = append(notices, msg) })
	_ = s.SetTool(ToolPolygon)
	click(s, geom.Pt(0, 0))
	click(s, geom.Pt(50, 0))
	if s.ClosePolygon() {
		t.Fatal("commit with two vertices should fail")
	}
	if len(notices) != 1 {
		t.Fatalf("notices = %v", notices)
	}
	if len(s.Pending()) != 2 || len(s.Elements()) != 0 {
		t.Fatal("buffer should be preserved and nothing committed")
	}
	click(s, geom.Pt(50, 50))
	if !s.HandleKey(press(key.CodeReturnEnter)) || len(s.Elements()) != 1 {
		t.Fatal("enter should commit a three vertex polygon")
	}
}

func TestSwitchingToolCancelsPolygon(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolPolygon)
	click(s, geom.Pt(0, 0))
	click(s, geom.Pt(10, 0))
	_ = s.SetTool(ToolRectangle)
	if len(s.Pending()) != 0 {
		t.Fatal("pending vertices survived a tool switch")
	}
	if len(s.Elements()) != 0 {
		t.Fatal("nothing should be exported")
	}
}

func TestCloseThresholdSpace(t *testing.T) {
	tests := []struct {
		name   string
		space  Space
		closes bool
	}{
		// At scale 2 a 6 unit scene distance is 12 canvas pixels.
		{"canvas", SpaceCanvas, false},
		{"scene", SpaceScene, true},
	}
	for _, tt := range tests {
		s := newSession(t, WithCloseThreshold(10, tt.space))
		s.view.Scale = 2
		_ = s.SetTool(ToolPolygon)
		for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 200}, {X: 12, Y: 0}} {
			click(s, p)
		}
		if got := len(s.Elements()) == 1; got != tt.closes {
			t.Errorf("%s: closed = %v, want %v", tt.name, got, tt.closes)
		}
	}
}

func TestFillUsesStrokeWhenTransparent(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolRectangle)
	drag(s, geom.Pt(0, 0), geom.Pt(50, 50))
	_ = s.SetTool(ToolLine)
	drag(s, geom.Pt(0, 25), geom.Pt(50, 25))

	if err := s.SetActiveStyle(scene.Style{StrokeColor: "#0000ff", StrokeWidth: 2, FillColor: scene.Transparent}); err != nil {
		t.Fatal(err)
	}
	_ = s.SetTool(ToolFill)
	click(s, geom.Pt(25, 25)) // line is on top but not fillable
	o, _ := s.Object("obj-1")
	if o.Style.FillColor != "#0000ff" {
		t.Fatalf("fill = %q, want stroke colour", o.Style.FillColor)
	}

	_ = s.SetActiveStyle(scene.Style{StrokeColor: "#0000ff", StrokeWidth: 2, FillColor: "green"})
	click(s, geom.Pt(10, 10))
	o, _ = s.Object("obj-1")
	if o.Style.FillColor != "green" {
		t.Fatalf("fill = %q, want green", o.Style.FillColor)
	}
	click(s, geom.Pt(400, 400)) // miss is a no-op
}

func TestTextCreateEditAndDeleteSuppression(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolText)
	click(s, geom.Pt(20, 20))

	id, editing := s.Editing()
	if !editing {
		t.Fatal("new text should enter an edit session")
	}
	o, _ := s.Object(id)
	if o.Text != DefaultText || !o.Preselected {
		t.Fatalf("new text = %+v", o)
	}

	for _, r := range "Gate" {
		s.HandleKey(key.Event{Rune: r, Direction: key.DirPress})
	}
	s.HandleKey(press(key.CodeDeleteForward))
	s.HandleKey(press(key.CodeDeleteBackspace))
	o, ok := s.Object(id)
	if !ok {
		t.Fatal("delete key removed the text being edited")
	}
	if o.Text != "Gat" {
		t.Fatalf("text = %q, want Gat", o.Text)
	}

	s.HandleKey(press(key.CodeEscape))
	if _, editing := s.Editing(); editing {
		t.Fatal("escape should end the edit session")
	}
	els := s.Elements()
	if len(els) != 1 || els[0].Properties.Label != "Gat" {
		t.Fatalf("elements = %+v", els)
	}
	// Outside the edit session the selected text can be deleted.
	s.HandleKey(press(key.CodeDeleteForward))
	if len(s.Elements()) != 0 {
		t.Fatal("delete should remove the selected text")
	}
}

func TestTextClickSelectsExisting(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolText)
	click(s, geom.Pt(20, 20))
	s.EndEdit()
	click(s, geom.Pt(22, 25))
	if n := len(s.Elements()); n != 1 {
		t.Fatalf("clicking existing text created another: %d", n)
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] != "obj-1" {
		t.Fatalf("selection = %v", sel)
	}
	click(s, geom.Pt(22, 25))
	if id, ok := s.Editing(); !ok || id != "obj-1" {
		t.Fatal("clicking selected text should start editing")
	}
}

func TestEmptiedTextIsRemoved(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolText)
	click(s, geom.Pt(20, 20))
	s.Backspace()
	s.EndEdit()
	if len(s.Elements()) != 0 {
		t.Fatal("empty text should be dropped when editing ends")
	}
}

func TestDeleteAffordancePlacement(t *testing.T) {
	tests := []struct {
		name  string
		from  geom.Point
		to    geom.Point
		wantX float64
		wantY float64
	}{
		{"left when room", geom.Pt(100, 100), geom.Pt(200, 200), 100 - AffordanceGap - AffordanceSize, 100},
		{"above at canvas edge", geom.Pt(5, 100), geom.Pt(80, 200), 5, 100 - AffordanceGap - AffordanceSize},
	}
	for _, tt := range tests {
		s := newSession(t)
		_ = s.SetTool(ToolRectangle)
		drag(s, tt.from, tt.to)
		if _, ok := s.DeleteAffordance(); ok {
			t.Fatalf("%s: affordance shown without selection", tt.name)
		}
		_ = s.SetTool(ToolSelect)
		click(s, tt.from.Add(geom.Pt(10, 10)))
		a, ok := s.DeleteAffordance()
		if !ok {
			t.Fatalf("%s: no affordance", tt.name)
		}
		if a.Min.X != tt.wantX || a.Min.Y != tt.wantY {
			t.Errorf("%s: affordance at %v, want (%v,%v)", tt.name, a.Min, tt.wantX, tt.wantY)
		}
		click(s, a.Min.Add(geom.Pt(2, 2)))
		if len(s.Elements()) != 0 {
			t.Errorf("%s: clicking the affordance should delete", tt.name)
		}
	}
}

func TestDeleteAffordanceStaysOnCanvas(t *testing.T) {
	tests := []struct {
		name      string
		from      geom.Point
		to        geom.Point
		rightSide bool
	}{
		{"top-left corner", geom.Pt(2, 2), geom.Pt(40, 40), true},
		{"top edge", geom.Pt(10, 0), geom.Pt(300, 50), true},
		{"top-right corner", geom.Pt(2, 2), geom.Pt(DefaultWidth-5, 40), false},
		{"whole canvas", geom.Pt(0, 0), geom.Pt(DefaultWidth, DefaultHeight), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t)
			_ = s.SetTool(ToolRectangle)
			drag(s, tt.from, tt.to)
			_ = s.SetTool(ToolSelect)
			click(s, tt.from.Add(geom.Pt(1, 1)))
			a, ok := s.DeleteAffordance()
			if !ok {
				t.Fatal("no affordance")
			}
			if a.Min.X < 0 || a.Min.Y < 0 || a.Max.X > DefaultWidth || a.Max.Y > DefaultHeight {
				t.Fatalf("affordance %v leaves the %dx%d canvas", a, DefaultWidth, DefaultHeight)
			}
			if a.Dx() != AffordanceSize || a.Dy() != AffordanceSize {
				t.Errorf("affordance size = %vx%v", a.Dx(), a.Dy())
			}
			if tt.rightSide && (a.Min.X < tt.to.X || a.Min.Y != tt.from.Y) {
				t.Errorf("affordance at %v, want right of %v level with its top", a.Min, tt.to)
			}
			click(s, a.Min.Add(geom.Pt(2, 2)))
			if len(s.Elements()) != 0 {
				t.Error("clicking the affordance should delete")
			}
		})
	}
}

func TestSelectDragMovesAndBandSelects(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolRectangle)
	drag(s, geom.Pt(10, 10), geom.Pt(30, 30))
	drag(s, geom.Pt(100, 100), geom.Pt(120, 120))
	_ = s.SetTool(ToolSelect)

	drag(s, geom.Pt(20, 20), geom.Pt(40, 25))
	o, _ := s.Object("obj-1")
	if o.Bounds().Min != geom.Pt(30, 15) {
		t.Fatalf("moved bounds = %+v", o.Bounds())
	}

	drag(s, geom.Pt(0, 0), geom.Pt(200, 200))
	if sel := s.Selection(); len(sel) != 2 {
		t.Fatalf("band selection = %v", sel)
	}
	if n := s.DeleteSelection(); n != 2 {
		t.Fatalf("deleted %d", n)
	}
}

func TestHitTestIgnoresBackground(t *testing.T) {
	s := newSession(t)
	s.SetBackground(image.NewRGBA(image.Rect(0, 0, 800, 600)), "map.png")
	click(s, geom.Pt(400, 300))
	if len(s.Selection()) != 0 {
		t.Fatal("background must not be selectable")
	}
	s.HandleKey(press(key.CodeDeleteForward))
	if len(s.Objects()) != 1 {
		t.Fatal("background must survive delete")
	}
}

func TestClearSparesLayers(t *testing.T) {
	s := newSession(t)
	s.SetBackground(image.NewRGBA(image.Rect(0, 0, 10, 10)), "bg")
	s.SetOverlay(image.NewRGBA(image.Rect(0, 0, 10, 10)), "ov")
	_ = s.SetTool(ToolRectangle)
	drag(s, geom.Pt(0, 0), geom.Pt(10, 10))
	s.Clear()
	if len(s.Elements()) != 0 {
		t.Fatal("drawables should be gone")
	}
	if n := len(s.Objects()); n != 2 {
		t.Fatalf("objects = %d, want both layers", n)
	}
}

func TestExportMatchesDrawablesOnEveryChange(t *testing.T) {
	s := newSession(t)
	s.OnChange(func(els []export.DrawingElement) {
		n := 0
		for _, o := range s.Objects() {
			if !o.IsLayer() {
				n++
			}
		}
		if n != len(els) {
			t.Errorf("export has %d elements, scene has %d drawables", len(els), n)
		}
	})
	s.SetBackground(image.NewRGBA(image.Rect(0, 0, 10, 10)), "bg")
	_ = s.SetTool(ToolLine)
	drag(s, geom.Pt(0, 0), geom.Pt(10, 10))
	_ = s.SetTool(ToolText)
	click(s, geom.Pt(50, 50))
	s.TypeText("N")
	s.Clear()
}

func TestListenerMayMutateSession(t *testing.T) {
	s := newSession(t)
	calls := 0
	s.OnChange(func(els []export.DrawingElement) {
		calls++
		if calls == 1 {
			s.Clear()
		}
	})
	_ = s.SetTool(ToolCircle)
	s.PointerDown(geom.Pt(5, 5))
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(s.Elements()) != 0 {
		t.Fatal("clear from listener did not apply")
	}
}

func TestHandleMouseAndWheel(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolRectangle)
	s.HandleMouse(mouse.Event{X: 10, Y: 10, Button: mouse.ButtonLeft, Direction: mouse.DirPress})
	s.HandleMouse(mouse.Event{X: 40, Y: 30, Direction: mouse.DirNone})
	s.HandleMouse(mouse.Event{X: 40, Y: 30, Button: mouse.ButtonLeft, Direction: mouse.DirRelease})
	if len(s.Elements()) != 1 {
		t.Fatal("mouse drag should create a rectangle")
	}
	s.HandleMouse(mouse.Event{X: 100, Y: 100, Button: mouse.ButtonWheelUp, Direction: mouse.DirStep})
	v := s.Viewport()
	if v.Scale <= 1 {
		t.Fatalf("wheel up should zoom in, scale = %v", v.Scale)
	}
	if got := v.ToScene(geom.Pt(100, 100)); got.Distance(geom.Pt(100, 100)) > 1e-9 {
		t.Fatalf("cursor point drifted to %v", got)
	}
}

func TestDrawingUnderZoomUsesSceneSpace(t *testing.T) {
	s := newSession(t)
	s.ZoomIn()
	s.ResetView()
	s.Pan(geom.Pt(100, 0))
	_ = s.SetTool(ToolLine)
	drag(s, geom.Pt(100, 0), geom.Pt(150, 0))
	o, _ := s.Object("obj-1")
	if o.Start != geom.Pt(0, 0) || o.End != geom.Pt(50, 0) {
		t.Fatalf("line = %v -> %v", o.Start, o.End)
	}
}

func TestPanToolMovesViewOnly(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolRectangle)
	drag(s, geom.Pt(10, 10), geom.Pt(60, 40))
	before := s.Elements()

	changes := 0
	s.OnChange(func([]export.DrawingElement) { changes++ })
	_ = s.SetTool(ToolPan)
	drag(s, geom.Pt(10, 10), geom.Pt(40, 30))

	if v := s.Viewport(); v.Translate != geom.Pt(30, 20) || v.Scale != 1 {
		t.Fatalf("view = %+v", v)
	}
	if changes != 0 {
		t.Fatalf("pan emitted %d changes", changes)
	}
	after := s.Elements()
	if len(after) != 1 || after[0].Coordinates[0] != before[0].Coordinates[0] {
		t.Fatalf("geometry moved: %+v -> %+v", before, after)
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	s := newSession(t)
	tests := []struct {
		r    rune
		want Tool
	}{
		{'r', ToolRectangle},
		{'P', ToolPolygon},
		{'f', ToolFill},
		{'v', ToolSelect},
	}
	for _, tt := range tests {
		s.HandleKey(key.Event{Rune: tt.r, Direction: key.DirPress})
		if s.Tool() != tt.want {
			t.Errorf("rune %q: tool = %v, want %v", tt.r, s.Tool(), tt.want)
		}
	}
	s.HandleKey(key.Event{Rune: '+', Direction: key.DirPress})
	if s.Viewport().Scale != 1.2 {
		t.Fatalf("scale = %v", s.Viewport().Scale)
	}
	s.HandleKey(key.Event{Rune: '0', Direction: key.DirPress})
	if s.Viewport().Scale != 1 {
		t.Fatal("0 should reset the view")
	}
}

func TestStyleValidation(t *testing.T) {
	s := newSession(t)
	if err := s.SetActiveStyle(scene.Style{StrokeColor: "bogus"}); err == nil {
		t.Fatal("expected error for bad colour")
	}
	if _, err := ParseTool("hexagon"); err == nil {
		t.Fatal("expected unknown tool error")
	}
	if tool, _ := ParseTool("Rect"); tool != ToolRectangle {
		t.Fatalf("rect alias = %v", tool)
	}
}

func TestMoveVertex(t *testing.T) {
	s := newSession(t)
	_ = s.SetTool(ToolPolygon)
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}} {
		click(s, p)
	}
	s.ClosePolygon()
	if err := s.MoveVertex("obj-1", 2, geom.Pt(20, 20)); err != nil {
		t.Fatal(err)
	}
	o, _ := s.Object("obj-1")
	if o.Vertices[2] != geom.Pt(20, 20) {
		t.Fatalf("vertex = %v", o.Vertices[2])
	}
	if err := s.MoveVertex("obj-1", 9, geom.Pt(0, 0)); err == nil {
		t.Fatal("expected error for bad index")
	}
}

func TestFrameAndSnapshot(t *testing.T) {
	s := newSession(t, WithCanvasSize(64, 48))
	_ = s.SetTool(ToolPolygon)
	click(s, geom.Pt(5, 5))
	click(s, geom.Pt(40, 5))
	img := s.Frame()
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("frame bounds = %v", b)
	}
	var buf bytes.Buffer
	if err := s.Snapshot(&buf); err != nil {
		t.Fatal(err)
	}
	snap, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := snap.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("snapshot bounds = %v", b)
	}
}

func TestWriteOutputs(t *testing.T) {
	s := newSession(t, WithCanvasSize(120, 80))
	_ = s.SetTool(ToolLine)
	drag(s, geom.Pt(10, 10), geom.Pt(100, 70))

	base := filepath.Join(t.TempDir(), "out", "plan.png")
	out, err := s.WriteOutputs(base)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(out.PNG) != "plan.png" || filepath.Base(out.JSON) != "plan.json" {
		t.Errorf("outputs = %+v", out)
	}
	f, err := os.Open(out.PNG)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Errorf("snapshot size = %v", b)
	}
	data, err := os.ReadFile(out.JSON)
	if err != nil {
		t.Fatal(err)
	}
	var els []export.DrawingElement
	if err := json.Unmarshal(data, &els); err != nil || len(els) != 1 || els[0].Type != "line" {
		t.Errorf("elements %s: %v", data, err)
	}
}

func TestOutputPaths(t *testing.T) {
	for in, want := range map[string]string{
		"plan":      "plan.png",
		"plan.png":  "plan.png",
		"plan.JSON": "plan.png",
		"a/plan.v2": "a/plan.v2.png",
	} {
		if got := OutputPaths(in).PNG; got != want {
			t.Errorf("OutputPaths(%q).PNG = %q, want %q", in, got, want)
		}
	}
}
