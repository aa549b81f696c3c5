package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/store"
)

// History reads recorded revisions. *store.Store satisfies it.
type History interface {
	History(ctx context.Context, sessionID string, limit int) ([]store.Revision, error)
	Measurements(ctx context.Context, sessionID string) ([]export.Measurement, error)
}

type handler struct {
	m       *Manager
	history History
}

type viewPayload struct {
	Scale     float64    `json:"scale"`
	Translate geom.Point `json:"translate"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
}

type statePayload struct {
	Tool      string                  `json:"tool"`
	Elements  []export.DrawingElement `json:"elements"`
	Selection []string                `json:"selection"`
	Pending   []geom.Point            `json:"pending"`
	Editing   string                  `json:"editing,omitempty"`
	Notice    string                  `json:"notice,omitempty"`
	View      viewPayload             `json:"view"`
}

func state(s *editor.Session) statePayload {
	v := s.Viewport()
	editing, _ := s.Editing()
	p := statePayload{
		Tool:      s.Tool().String(),
		Elements:  s.Elements(),
		Selection: s.Selection(),
		Pending:   s.Pending(),
		Editing:   editing,
		Notice:    s.Notice(),
		View:      viewPayload{Scale: v.Scale, Translate: v.Translate, Width: v.Width, Height: v.Height},
	}
	if p.Selection == nil {
		p.Selection = []string{}
	}
	if p.Pending == nil {
		p.Pending = []geom.Point{}
	}
	return p
}

func decode(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty body")
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid json")
	}
	return nil
}

// httpError maps session errors onto status codes.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoSession), errors.Is(err, editor.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrUnknownTool), errors.Is(err, editor.ErrBadColor):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, editor.ErrClosed):
		return fiber.NewError(http.StatusGone, err.Error())
	}
	return err
}

func (h *handler) session(c fiber.Ctx) (*editor.Session, error) {
	s, err := h.m.Get(c.Params("id"))
	return s, httpError(err)
}

func (h *handler) reply(c fiber.Ctx, s *editor.Session) error {
	return c.JSON(state(s))
}

// ============================================================
// Sessions
// ============================================================

type createRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (h *handler) CreateSession(c fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := decode(c, &req); err != nil {
			return err
		}
	}
	var opts []editor.Option
	if req.Width > 0 && req.Height > 0 {
		opts = append(opts, editor.WithCanvasSize(req.Width, req.Height))
	}
	id, s, err := h.m.Create(opts...)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id, "state": state(s)})
}

func (h *handler) DeleteSession(c fiber.Ctx) error {
	purge := c.Query("purge") == "true"
	if err := h.m.Close(c.Context(), c.Params("id"), purge); err != nil {
		return httpError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *handler) GetState(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return h.reply(c, s)
}

// ============================================================
// Tools and input
// ============================================================

type toolRequest struct {
	Tool string `json:"tool"`
}

func (h *handler) SetTool(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req toolRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	t, err := editor.ParseTool(req.Tool)
	if err != nil {
		return httpError(err)
	}
	if err := s.SetTool(t); err != nil {
		return httpError(err)
	}
	return h.reply(c, s)
}

type pointerRequest struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (h *handler) Pointer(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req pointerRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	p := geom.Pt(req.X, req.Y)
	switch req.Action {
	case "down":
		s.PointerDown(p)
	case "move":
		s.PointerMove(p)
	case "up":
		s.PointerUp(p)
	case "click":
		s.PointerDown(p)
		s.PointerUp(p)
	default:
		return fiber.NewError(http.StatusBadRequest, "action must be down, move, up or click")
	}
	return h.reply(c, s)
}

type keyRequest struct {
	Key string `json:"key"`
}

func (h *handler) Key(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req keyRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	e, ok := editor.KeyByName(req.Key)
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown key "+strconv.Quote(req.Key))
	}
	s.HandleKey(e)
	return h.reply(c, s)
}

type textRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (h *handler) Text(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req textRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if req.ID != "" {
		if err := s.SetText(req.ID, req.Text); err != nil {
			return httpError(err)
		}
		return h.reply(c, s)
	}
	if !s.TypeText(req.Text) {
		return fiber.NewError(http.StatusConflict, "no text is being edited")
	}
	return h.reply(c, s)
}

// ============================================================
// View
// ============================================================

type zoomRequest struct {
	Action string  `json:"action"`
	DeltaY float64 `json:"deltaY"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (h *handler) Zoom(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req zoomRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	switch req.Action {
	case "in":
		s.ZoomIn()
	case "out":
		s.ZoomOut()
	case "reset":
		s.ResetView()
	case "wheel":
		s.Wheel(req.DeltaY, geom.Pt(req.X, req.Y))
	default:
		return fiber.NewError(http.StatusBadRequest, "action must be in, out, reset or wheel")
	}
	return h.reply(c, s)
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (h *handler) Pan(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req panRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	s.Pan(geom.Pt(req.DX, req.DY))
	return h.reply(c, s)
}

func (h *handler) Resize(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fiber.NewError(http.StatusBadRequest, "width and height must be positive")
	}
	s.Resize(req.Width, req.Height)
	return h.reply(c, s)
}

// ============================================================
// Objects
// ============================================================

func (h *handler) Clear(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.Clear()
	return h.reply(c, s)
}

func (h *handler) DeleteSelection(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.DeleteSelection()
	return h.reply(c, s)
}

func (h *handler) DeleteObject(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := s.Delete(c.Params("oid")); err != nil {
		return httpError(err)
	}
	return h.reply(c, s)
}

type selectRequest struct {
	IDs []string `json:"ids"`
}

func (h *handler) Select(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req selectRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	s.Select(req.IDs...)
	return h.reply(c, s)
}

type vertexRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *handler) MoveVertex(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "bad vertex index")
	}
	var req vertexRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if err := s.MoveVertex(c.Params("oid"), i, geom.Pt(req.X, req.Y)); err != nil {
		if errors.Is(err, editor.ErrNotFound) {
			return httpError(err)
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.reply(c, s)
}

type styleRequest struct {
	StrokeColor string  `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   string  `json:"fillColor"`
	// Target is "active" (default) or "selection".
	Target string `json:"target"`
}

func (h *handler) Style(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req styleRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	st := s.Style()
	if req.StrokeColor != "" {
		st.StrokeColor = req.StrokeColor
	}
	if req.StrokeWidth > 0 {
		st.StrokeWidth = req.StrokeWidth
	}
	if req.FillColor != "" {
		st.FillColor = req.FillColor
	}
	switch req.Target {
	case "", "active":
		err = s.SetActiveStyle(st)
	case "selection":
		err = s.SetSelectionStyle(st)
	default:
		return fiber.NewError(http.StatusBadRequest, "target must be active or selection")
	}
	if err != nil {
		return httpError(err)
	}
	return h.reply(c, s)
}

func (h *handler) ClosePolygon(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if !s.ClosePolygon() {
		return c.Status(http.StatusUnprocessableEntity).JSON(state(s))
	}
	return h.reply(c, s)
}

func (h *handler) CancelPolygon(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.CancelPolygon()
	return h.reply(c, s)
}

// ============================================================
// Layers and assets
// ============================================================

type refRequest struct {
	Ref string  `json:"ref"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

func (h *handler) SetBackground(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req refRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if req.Ref == "" {
		return fiber.NewError(http.StatusBadRequest, "ref required")
	}
	s.LoadBackground(req.Ref)
	return c.SendStatus(http.StatusAccepted)
}

func (h *handler) SetOverlay(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	els, err := export.ReadExternal(bytes.NewReader(c.Body()))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s.SetExternalElements(els)
	return c.SendStatus(http.StatusAccepted)
}

func (h *handler) InsertAsset(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req refRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if req.Ref == "" {
		return fiber.NewError(http.StatusBadRequest, "ref required")
	}
	s.InsertAsset(req.Ref, geom.Pt(req.X, req.Y))
	return c.SendStatus(http.StatusAccepted)
}

// ============================================================
// Output
// ============================================================

func (h *handler) Elements(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Elements())
}

func (h *handler) Objects(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0)
	for _, o := range s.Objects() {
		out = append(out, fiber.Map{
			"id":     o.ID,
			"kind":   string(o.Kind),
			"layer":  layerName(o.Layer),
			"bounds": o.Bounds(),
		})
	}
	return c.JSON(out)
}

func layerName(l scene.Layer) string {
	switch l {
	case scene.LayerBackground:
		return "background"
	case scene.LayerOverlay:
		return "overlay"
	}
	return "drawable"
}

func (h *handler) Snapshot(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.Snapshot(&buf); err != nil {
		return err
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

func (h *handler) Frame(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Frame()); err != nil {
		return err
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

func (h *handler) Affordance(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	r, ok := s.DeleteAffordance()
	if !ok {
		return c.JSON(fiber.Map{"visible": false})
	}
	return c.JSON(fiber.Map{"visible": true, "rect": r})
}

func (h *handler) Errors(c fiber.Ctx) error {
	errs, err := h.m.Errors(c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"errors": errs})
}

func (h *handler) History(c fiber.Ctx) error {
	if h.history == nil {
		return fiber.NewError(http.StatusNotImplemented, "no history store")
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fiber.NewError(http.StatusBadRequest, "bad limit")
		}
		limit = n
	}
	revs, err := h.history.History(c.Context(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	if revs == nil {
		revs = []store.Revision{}
	}
	return c.JSON(revs)
}

func (h *handler) Measurements(c fiber.Ctx) error {
	if h.history == nil {
		return fiber.NewError(http.StatusNotImplemented, "no history store")
	}
	ms, err := h.history.Measurements(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if ms == nil {
		ms = []export.Measurement{}
	}
	return c.JSON(ms)
}
