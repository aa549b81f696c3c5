package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/store"
)

type testServer struct {
	app   *fiber.App
	m     *Manager
	store *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "siteplan.db"))
	if err != nil {
		t.Fatal(err)
	}
	loader := editor.LoaderFunc(func(ctx context.Context, ref string) (image.Image, error) {
		if strings.HasPrefix(ref, "missing") {
			return nil, errors.New("no such image")
		}
		return image.NewRGBA(image.Rect(0, 0, 100, 50)), nil
	})
	m := NewManager(WithSink(st), WithSessionOptions(editor.WithLoader(loader)))
	t.Cleanup(func() {
		m.Shutdown()
		_ = st.Close()
	})
	return &testServer{app: NewApp(Config{Manager: m, History: st}), m: m, store: st}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func (ts *testServer) create(t *testing.T) string {
	t.Helper()
	code, body := ts.do(t, http.MethodPost, "/sessions", map[string]int{"width": 400, "height": 300})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %s", code, body)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		t.Fatalf("create body %s: %v", body, err)
	}
	return out.ID
}

func decodeState(t *testing.T, body []byte) statePayload {
	t.Helper()
	var st statePayload
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("state %s: %v", body, err)
	}
	return st
}

func TestDrawRectangleIsRecorded(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	base := "/sessions/" + id

	steps := []struct {
		path string
		body any
	}{
		{"/tool", map[string]string{"tool": "rectangle"}},
		{"/pointer", map[string]any{"action": "down", "x": 10, "y": 10}},
		{"/pointer", map[string]any{"action": "move", "x": 60, "y": 40}},
		{"/pointer", map[string]any{"action": "up", "x": 60, "y": 40}},
	}
	var last []byte
	for _, s := range steps {
		code, body := ts.do(t, http.MethodPost, base+s.path, s.body)
		if code != http.StatusOK {
			t.Fatalf("POST %s = %d %s", s.path, code, body)
		}
		last = body
	}
	st := decodeState(t, last)
	if len(st.Elements) != 1 || st.Elements[0].Type != "rectangle" {
		t.Fatalf("elements = %+v", st.Elements)
	}

	rev, err := ts.store.Latest(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rev.Elements) != 1 || rev.Elements[0].ID != st.Elements[0].ID {
		t.Errorf("recorded = %+v", rev.Elements)
	}

	code, body := ts.do(t, http.MethodGet, base+"/measurements", nil)
	if code != http.StatusOK || !strings.Contains(string(body), `"area":1500`) {
		t.Errorf("measurements = %d %s", code, body)
	}
	code, body = ts.do(t, http.MethodGet, base+"/history?limit=1", nil)
	if code != http.StatusOK {
		t.Fatalf("history = %d %s", code, body)
	}
	var revs []store.Revision
	if err := json.Unmarshal(body, &revs); err != nil || len(revs) != 1 {
		t.Errorf("history body %s: %v", body, err)
	}
}

func TestSelectionAffordanceAndDelete(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	base := "/sessions/" + id

	ts.do(t, http.MethodPost, base+"/tool", map[string]string{"tool": "circle"})
	ts.do(t, http.MethodPost, base+"/pointer", map[string]any{"action": "down", "x": 200, "y": 150})
	ts.do(t, http.MethodPost, base+"/pointer", map[string]any{"action": "up", "x": 230, "y": 150})
	ts.do(t, http.MethodPost, base+"/tool", map[string]string{"tool": "select"})
	_, body := ts.do(t, http.MethodPost, base+"/pointer", map[string]any{"action": "click", "x": 200, "y": 150})
	if st := decodeState(t, body); len(st.Selection) != 1 {
		t.Fatalf("selection = %v", st.Selection)
	}

	_, body = ts.do(t, http.MethodGet, base+"/affordance", nil)
	var aff struct {
		Visible bool `json:"visible"`
	}
	if err := json.Unmarshal(body, &aff); err != nil || !aff.Visible {
		t.Errorf("affordance = %s", body)
	}

	_, body = ts.do(t, http.MethodPost, base+"/key", map[string]string{"key": "Delete"})
	if st := decodeState(t, body); len(st.Elements) != 0 {
		t.Errorf("after Delete = %+v", st.Elements)
	}
	_, body = ts.do(t, http.MethodGet, base+"/affordance", nil)
	if !strings.Contains(string(body), `"visible":false`) {
		t.Errorf("affordance after delete = %s", body)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	base := "/sessions/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/sessions/nope/elements", nil, http.StatusNotFound},
		{"unknown tool", http.MethodPost, base + "/tool", map[string]string{"tool": "hexagon"}, http.StatusBadRequest},
		{"empty body", http.MethodPost, base + "/tool", nil, http.StatusBadRequest},
		{"bad json", http.MethodPost, base + "/tool", "{", http.StatusBadRequest},
		{"bad colour", http.MethodPost, base + "/style", map[string]string{"strokeColor": "nocolour"}, http.StatusBadRequest},
		{"no edit", http.MethodPost, base + "/text", map[string]string{"text": "hi"}, http.StatusConflict},
		{"short polygon", http.MethodPost, base + "/polygon/close", nil, http.StatusUnprocessableEntity},
		{"unknown object", http.MethodDelete, base + "/objects/nope", nil, http.StatusNotFound},
		{"bad key", http.MethodPost, base + "/key", map[string]string{"key": "Hyper"}, http.StatusBadRequest},
		{"bad pointer", http.MethodPost, base + "/pointer", map[string]any{"action": "hover"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(t, tt.method, tt.path, tt.body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, body)
			}
		})
	}
}

func TestShortPolygonKeepsVerticesAndNotice(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	base := "/sessions/" + id
	ts.do(t, http.MethodPost, base+"/tool", map[string]string{"tool": "polygon"})
	ts.do(t, http.MethodPost, base+"/pointer", map[string]any{"action": "click", "x": 10, "y": 10})
	ts.do(t, http.MethodPost, base+"/pointer", map[string]any{"action": "click", "x": 90, "y": 10})

	code, body := ts.do(t, http.MethodPost, base+"/polygon/close", nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("close = %d", code)
	}
	st := decodeState(t, body)
	if len(st.Pending) != 2 || st.Notice == "" {
		t.Errorf("state = %+v", st)
	}
}

func TestLayersAndLoadErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	base := "/sessions/" + id

	if code, _ := ts.do(t, http.MethodPut, base+"/background", map[string]string{"ref": "site.png"}); code != http.StatusAccepted {
		t.Fatalf("background = %d", code)
	}
	overlay := `[{"id":"o1","type":"image","image":"plan.png"},{"id":"o2","type":"image","image":"missing.png"}]`
	if code, body := ts.do(t, http.MethodPut, base+"/overlay", overlay); code != http.StatusAccepted {
		t.Fatalf("overlay = %d %s", code, body)
	}
	if code, _ := ts.do(t, http.MethodPost, base+"/assets", map[string]any{"ref": "tree.png", "x": 5, "y": 5}); code != http.StatusAccepted {
		t.Fatalf("asset = %d", code)
	}
	s, err := ts.m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	s.Wait()

	_, body := ts.do(t, http.MethodGet, base+"/objects", nil)
	var objs []map[string]any
	if err := json.Unmarshal(body, &objs); err != nil {
		t.Fatal(err)
	}
	layers := map[string]int{}
	for _, o := range objs {
		layers[o["layer"].(string)]++
	}
	if layers["background"] != 1 || layers["overlay"] != 1 || layers["drawable"] != 1 {
		t.Errorf("layers = %v", layers)
	}

	_, body = ts.do(t, http.MethodGet, base+"/errors", nil)
	if !strings.Contains(string(body), "missing.png") {
		t.Errorf("errors = %s", body)
	}

	_, body = ts.do(t, http.MethodGet, base+"/elements", nil)
	if !strings.Contains(string(body), `"type":"image"`) || strings.Count(string(body), `"id"`) != 1 {
		t.Errorf("elements = %s", body)
	}
}

func TestSnapshotAndFrame(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	for _, p := range []string{"/snapshot.png", "/frame.png"} {
		code, body := ts.do(t, http.MethodGet, "/sessions/"+id+p, nil)
		if code != http.StatusOK {
			t.Fatalf("%s = %d", p, code)
		}
		img, err := png.Decode(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
			t.Errorf("%s size = %v", p, b)
		}
	}
}

func TestDeleteSessionPurges(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)
	ts.do(t, http.MethodPost, "/sessions/"+id+"/clear", nil)

	if code, _ := ts.do(t, http.MethodDelete, "/sessions/"+id+"?purge=true", nil); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	if code, _ := ts.do(t, http.MethodGet, "/sessions/"+id, nil); code != http.StatusNotFound {
		t.Errorf("get after delete = %d", code)
	}
	if _, err := ts.store.Latest(context.Background(), id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("records left: %v", err)
	}
	if code, _ := ts.do(t, http.MethodDelete, "/sessions/"+id, nil); code != http.StatusNotFound {
		t.Errorf("second delete = %d", code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t)
	code, body := ts.do(t, http.MethodGet, "/health/ready", nil)
	if code != http.StatusOK || !strings.Contains(string(body), `"sessions":1`) {
		t.Errorf("ready = %d %s", code, body)
	}
}
