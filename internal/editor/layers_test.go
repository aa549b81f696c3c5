package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/library"
	"github.com/example/siteplan/internal/scene"
)

// gatedLoader returns images sized by ref once the test releases them.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	sizes map[string]int
}

func newGatedLoader(sizes map[string]int) *gatedLoader {
	g := &gatedLoader{gates: map[string]chan struct{}{}, sizes: sizes}
	for ref := range sizes {
		g.gates[ref] = make(chan struct{})
	}
	return g
}

func (g *gatedLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	g.mu.Lock()
	gate, ok := g.gates[ref]
	size := g.sizes[ref]
	g.mu.Unlock()
	if !ok {
		return nil, errors.New("no such image")
	}
	select {
	case <-gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return image.NewRGBA(image.Rect(0, 0, size, size)), nil
}

func (g *gatedLoader) release(ref string) { close(g.gates[ref]) }

// waitChanges returns a channel receiving each change notification.
func waitChanges(s *Session) <-chan []export.DrawingElement {
	ch := make(chan []export.DrawingElement, 16)
	s.OnChange(func(els []export.DrawingElement) { ch <- els })
	return ch
}

func TestAssetsInsertInCompletionOrder(t *testing.T) {
	g := newGatedLoader(map[string]int{"a": 10, "b": 20})
	s := newSession(t, WithLoader(g))
	_ = s.SetTool(ToolRectangle)
	drag(s, geom.Pt(0, 0), geom.Pt(30, 30))
	s.SetBackground(image.NewRGBA(image.Rect(0, 0, 4, 4)), "bg")
	changes := waitChanges(s)

	s.InsertAsset("a", geom.Pt(0, 0))
	s.InsertAsset("b", geom.Pt(50, 50))
	g.release("b")
	<-changes
	g.release("a")
	<-changes
	s.Wait()

	objs := s.Objects()
	if len(objs) != 4 {
		t.Fatalf("objects = %d, want 4", len(objs))
	}
	tests := []struct {
		kind scene.Kind
		ref  string
	}{
		{scene.KindImage, "bg"},
		{scene.KindImage, "a"},
		{scene.KindImage, "b"},
		{scene.KindRectangle, ""},
	}
	for i, tt := range tests {
		if objs[i].Kind != tt.kind || objs[i].ImageRef != tt.ref {
			t.Errorf("z %d = %v %q, want %v %q", i, objs[i].Kind, objs[i].ImageRef, tt.kind, tt.ref)
		}
	}
	if objs[1].Width != 10 || objs[2].Position != geom.Pt(50, 50) {
		t.Fatalf("unexpected geometry %+v %+v", objs[1], objs[2])
	}
	if hit := s.store.HitTest(geom.Pt(5, 5), 0, nil); hit == nil || hit.Kind != scene.KindRectangle {
		t.Errorf("drawn rectangle should stay above the asset, hit %+v", hit)
	}
}

func TestBackgroundLoadSuperseded(t *testing.T) {
	g := newGatedLoader(map[string]int{"old": 10, "new": 20})
	s := newSession(t, WithLoader(g))

	s.LoadBackground("old")
	s.LoadBackground("new")
	g.release("new")
	g.release("old")
	s.Wait()

	bgs := 0
	for _, o := range s.Objects() {
		if o.Layer == scene.LayerBackground {
			bgs++
			if o.ImageRef != "new" {
				t.Fatalf("background = %s, want new", o.ImageRef)
			}
		}
	}
	if bgs != 1 {
		t.Fatalf("backgrounds = %d, want 1", bgs)
	}
}

func TestLoadFailureLeavesSceneUntouched(t *testing.T) {
	fail := LoaderFunc(func(context.Context, string) (image.Image, error) {
		return nil, errors.New("404")
	})
	s := newSession(t, WithLoader(fail))
	errs := make(chan error, 1)
	s.OnError(func(err error) { errs <- err })

	s.InsertAsset("missing.png", geom.Point{})
	s.Wait()
	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("nil error reported")
		}
	default:
		t.Fatal("load failure not reported")
	}
	if len(s.Objects()) != 0 {
		t.Fatal("failed load changed the scene")
	}
}

func TestOverlayAfterClearKeepsDrawablesGone(t *testing.T) {
	tests := []struct {
		name    string
		overlay func(s *Session)
		want    int
	}{
		{"set overlay", func(s *Session) {
			s.SetOverlay(image.NewRGBA(image.Rect(0, 0, 4, 4)), "plan")
		}, 1},
		{"external elements", func(s *Session) {
			s.SetExternalElements([]export.ExternalElement{
				{ID: "e1", Type: "image", Image: "school"},
				{ID: "e2", Type: "image", Image: "park"},
			})
		}, 2},
		{"both", func(s *Session) {
			s.SetOverlay(image.NewRGBA(image.Rect(0, 0, 4, 4)), "plan")
			s.SetExternalElements([]export.ExternalElement{{ID: "e1", Type: "image", Image: "school"}})
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGatedLoader(map[string]int{"school": 8, "park": 8})
			g.release("school")
			g.release("park")
			s := newSession(t, WithLoader(g))
			_ = s.SetTool(ToolRectangle)
			drag(s, geom.Pt(0, 0), geom.Pt(10, 10))
			drag(s, geom.Pt(20, 20), geom.Pt(40, 40))
			if len(s.Elements()) != 2 {
				t.Fatalf("drawn = %d, want 2", len(s.Elements()))
			}

			s.Clear()
			tt.overlay(s)
			s.Wait()

			if els := s.Elements(); len(els) != 0 {
				t.Fatalf("elements after clear = %+v", els)
			}
			drawables, overlays := 0, 0
			for _, o := range s.Objects() {
				switch o.Layer {
				case scene.LayerDrawable:
					drawables++
				case scene.LayerOverlay:
					overlays++
				}
			}
			if drawables != 0 {
				t.Errorf("drawables = %d, want 0", drawables)
			}
			if overlays != tt.want {
				t.Errorf("overlays = %d, want %d", overlays, tt.want)
			}
		})
	}
}

func TestExternalElementsReplaceOverlayOnly(t *testing.T) {
	g := newGatedLoader(map[string]int{"school": 8, "park": 8, "hospital": 8})
	for _, ref := range []string{"school", "park", "hospital"} {
		g.release(ref)
	}
	s := newSession(t, WithLoader(g))
	_ = s.SetTool(ToolRectangle)
	drag(s, geom.Pt(0, 0), geom.Pt(10, 10))
	s.SetBackground(image.NewRGBA(image.Rect(0, 0, 4, 4)), "bg")

	s.SetExternalElements([]export.ExternalElement{
		{ID: "e1", Type: "image", Image: "school", Properties: map[string]any{"x": 5.0, "y": 6.0, "width": 30.0, "height": 20.0}},
		{ID: "e2", Type: "image", Image: "park"},
		{ID: "e3", Type: "label"},
	})
	s.Wait()
	overlays := func() []*scene.Object {
		var out []*scene.Object
		for _, o := range s.Objects() {
			if o.Layer == scene.LayerOverlay {
				out = append(out, o)
			}
		}
		return out
	}
	got := overlays()
	if len(got) != 2 {
		t.Fatalf("overlays = %d, want 2", len(got))
	}
	for _, o := range got {
		if o.ExternalID == "e1" && (o.Fit != scene.FitNone || o.Position != geom.Pt(5, 6) || o.Width != 30) {
			t.Fatalf("placed overlay = %+v", o)
		}
		if o.ExternalID == "e2" && o.Fit != scene.FitStretch {
			t.Fatalf("unplaced overlay should stretch: %+v", o)
		}
	}

	s.SetExternalElements([]export.ExternalElement{{ID: "e4", Type: "image", Image: "hospital"}})
	s.Wait()
	got = overlays()
	if len(got) != 1 || got[0].ExternalID != "e4" {
		t.Fatalf("after replace overlays = %+v", got)
	}
	if len(s.Elements()) != 1 {
		t.Fatal("drawables must be untouched by overlay replacement")
	}
	s.Clear()
	if len(overlays()) != 1 {
		t.Fatal("clear must not remove overlays")
	}
}

func TestCloseCancelsLoads(t *testing.T) {
	g := newGatedLoader(map[string]int{"slow": 4})
	s, err := New(WithLoader(g))
	if err != nil {
		t.Fatal(err)
	}
	s.InsertAsset("slow", geom.Point{})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(s.Objects()) != 0 {
		t.Fatal("cancelled load should not insert")
	}
	errs := make(chan error, 1)
	s.OnError(func(err error) { errs <- err })
	s.InsertAsset("slow", geom.Point{})
	if err := <-errs; !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRefLoaderSources(t *testing.T) {
	data := encodePNG(t, 3, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/map.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	file := dir + "/local.png"
	if err := writeFile(file, data); err != nil {
		t.Fatal(err)
	}
	lib := library.New(fstest.MapFS{"gate.png": {Data: data}})
	l := NewRefLoader(lib, srv.Client())

	refs := []string{
		"library:gate",
		srv.URL + "/map.png",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		file,
	}
	for _, ref := range refs {
		img, err := l.Load(context.Background(), ref)
		if err != nil {
			t.Errorf("Load(%.40s): %v", ref, err)
			continue
		}
		if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
			t.Errorf("Load(%.40s) bounds = %v", ref, b)
		}
	}
	for _, ref := range []string{srv.URL + "/missing.png", dir + "/nope.png", "data:text/plain,hi"} {
		if _, err := l.Load(context.Background(), ref); err == nil {
			t.Errorf("Load(%.40s) should fail", ref)
		}
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
