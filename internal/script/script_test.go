package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/scene"
)

func newRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	n := 0
	loader := editor.LoaderFunc(func(ctx context.Context, ref string) (image.Image, error) {
		if ref == "missing.png" {
			return nil, errors.New("not found")
		}
		return image.NewRGBA(image.Rect(0, 0, 40, 20)), nil
	})
	s, err := editor.New(
		editor.WithLoader(loader),
		editor.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("obj-%d", n)
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	var out bytes.Buffer
	return New(s, &out), &out
}

func TestRunScenario(t *testing.T) {
	r, out := newRunner(t)
	src := `
# a little site plan
background site.png
style blue 3
tool rectangle
drag 10 10 60 40
tool polygon
click 100 100
click 200 100
click 150 180
click 102 101
tool text
click 300 300
type Gate
key Escape
asset tree.png 400 50
wait
export
`
	if err := r.Run(strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}
	var els []export.DrawingElement
	if err := json.Unmarshal(out.Bytes(), &els); err != nil {
		t.Fatalf("export output: %v\n%s", err, out.String())
	}
	want := []string{"image", "rectangle", "polygon", "text"}
	if len(els) != len(want) {
		t.Fatalf("got %d elements, want %d: %+v", len(els), len(want), els)
	}
	for i, typ := range want {
		if els[i].Type != typ {
			t.Errorf("element %d type = %q, want %q", i, els[i].Type, typ)
		}
	}
	if els[1].Properties.Color != "blue" || els[1].Properties.StrokeWidth != 3 {
		t.Errorf("rectangle style = %+v", els[1].Properties)
	}
	if els[3].Properties.Label != "Gate" {
		t.Errorf("text label = %q", els[3].Properties.Label)
	}
	if got := r.Session.Tool(); got != editor.ToolText {
		t.Errorf("tool = %v, want text", got)
	}
	if bg := len(r.Session.Objects()) - len(els); bg != 1 {
		t.Errorf("layer objects = %d, want 1", bg)
	}
}

func TestExecErrors(t *testing.T) {
	r, _ := newRunner(t)
	tests := []struct {
		line string
		want error
	}{
		{"frobnicate", ErrUnknownCommand},
		{"tool hexagon", editor.ErrUnknownTool},
		{"style notacolour 2", editor.ErrBadColor},
	}
	for _, tt := range tests {
		if err := r.Exec(tt.line); !errors.Is(err, tt.want) {
			t.Errorf("Exec(%q) = %v, want %v", tt.line, err, tt.want)
		}
	}
	for _, line := range []string{"down 1", "drag a b c d", "zoom sideways", "type hello", "close", "key F13"} {
		if err := r.Exec(line); err == nil {
			t.Errorf("Exec(%q) succeeded", line)
		}
	}
}

func TestRunReportsLine(t *testing.T) {
	r, _ := newRunner(t)
	err := r.Run(strings.NewReader("tool rect\n\nbogus\n"))
	if err == nil || !strings.HasPrefix(err.Error(), "line 3:") {
		t.Fatalf("err = %v", err)
	}
}

func TestViewCommands(t *testing.T) {
	r, _ := newRunner(t)
	for _, line := range []string{"zoom in", "zoom in", "pan 10 -5", "wheel -100 0 0"} {
		if err := r.Exec(line); err != nil {
			t.Fatal(err)
		}
	}
	v := r.Session.Viewport()
	if v.Scale <= 1.44 {
		t.Errorf("scale = %v", v.Scale)
	}
	if err := r.Exec("zoom reset"); err != nil {
		t.Fatal(err)
	}
	if v := r.Session.Viewport(); v.Scale != 1 || v.Translate.X != 0 || v.Translate.Y != 0 {
		t.Errorf("after reset = %+v", v)
	}
	if err := r.Exec("resize 320 240"); err != nil {
		t.Fatal(err)
	}
	if v := r.Session.Viewport(); v.Width != 320 || v.Height != 240 {
		t.Errorf("size = %vx%v", v.Width, v.Height)
	}
}

func TestSelectDeleteAndClear(t *testing.T) {
	r, _ := newRunner(t)
	lines := []string{
		"tool circle", "drag 50 50 80 50",
		"tool line", "drag 0 0 30 30",
		"select obj-1", "delete",
	}
	for _, l := range lines {
		if err := r.Exec(l); err != nil {
			t.Fatalf("%s: %v", l, err)
		}
	}
	els := r.Session.Elements()
	if len(els) != 1 || els[0].Type != "line" {
		t.Fatalf("after delete = %+v", els)
	}
	if err := r.Exec("clear"); err != nil {
		t.Fatal(err)
	}
	if n := len(r.Session.Elements()); n != 0 {
		t.Errorf("after clear = %d", n)
	}
}

func TestElementsFile(t *testing.T) {
	r, _ := newRunner(t)
	path := filepath.Join(t.TempDir(), "els.json")
	data := `[{"id":"a","type":"image","image":"a.png"},{"id":"b","type":"image","image":"b.png","properties":{"x":5,"y":5,"width":10,"height":10}}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Exec("elements " + path); err != nil {
		t.Fatal(err)
	}
	if err := r.Exec("wait"); err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, o := range r.Session.Objects() {
		if o.Layer == scene.LayerOverlay {
			n++
		}
	}
	if n != 2 {
		t.Errorf("overlay objects = %d, want 2", n)
	}
	if len(r.Session.Elements()) != 0 {
		t.Error("overlay leaked into export")
	}
}

func TestHelpListsCommands(t *testing.T) {
	r, out := newRunner(t)
	if err := r.Exec("help"); err != nil {
		t.Fatal(err)
	}
	for _, name := range Commands() {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help missing %s", name)
		}
	}
}
