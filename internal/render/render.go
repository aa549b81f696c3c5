// Package render rasterises a scene with gg. It draws layer images, then
// drawables in z-order, then any editing chrome on top.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"

	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/theme"
	"github.com/example/siteplan/internal/viewport"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

const caretWidth = 1.5

// Chrome holds the editing aids drawn above the scene, all in canvas space
// except Pending which is in scene space.
type Chrome struct {
	Pending      []geom.Point
	Cursor       *geom.Point
	CanClose     bool
	Selection    []geom.Rect
	Band         *geom.Rect
	Affordance   *geom.Rect
	Notice       string
	CaretFor     string // id of the text object being edited
	ShowCheckers bool
}

// Renderer draws scenes. It is safe for concurrent use.
type Renderer struct {
	theme *theme.Theme
	src   *text.FontSource

	mu    sync.Mutex
	faces map[float64]text.Face
}

// New loads the bundled Go Regular font and returns a renderer using t for
// chrome colours. A nil theme means theme.Default().
func New(t *theme.Theme) (*Renderer, error) {
	if t == nil {
		t = theme.Default()
	}
	t = t.WithDefaultMetrics()
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return &Renderer{theme: t, src: src, faces: map[float64]text.Face{}}, nil
}

// Theme returns the chrome theme.
func (r *Renderer) Theme() *theme.Theme { return r.theme }

func (r *Renderer) face(size float64) text.Face {
	size = math.Max(1, math.Round(size*4)/4)
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.faces[size]
	if !ok {
		f = r.src.Face(size)
		r.faces[size] = f
	}
	return f
}

// Measure returns the advance width and line height of s at size.
func (r *Renderer) Measure(s string, size float64) (w, h float64) {
	f := r.face(size)
	if s == "" {
		return 0, f.Metrics().LineHeight()
	}
	return text.Measure(s, f)
}

// Frame renders objs into a w x h canvas as seen through view. chrome may
// be nil.
func (r *Renderer) Frame(objs []*scene.Object, w, h int, view viewport.Viewport, chrome *Chrome) *image.RGBA {
	dc := r.draw(objs, w, h, view, chrome)
	defer dc.Close()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out
}

// Snapshot writes a PNG of objs at canvas resolution with no pan or zoom
// and no editing chrome.
func (r *Renderer) Snapshot(wr io.Writer, objs []*scene.Object, w, h int) error {
	dc := r.draw(objs, w, h, *viewport.New(float64(w), float64(h)), nil)
	defer dc.Close()
	if err := dc.EncodePNG(wr); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func (r *Renderer) draw(objs []*scene.Object, w, h int, view viewport.Viewport, chrome *Chrome) *gg.Context {
	w, h = max(w, 1), max(h, 1)
	if view.Scale == 0 {
		view.Scale = 1
	}
	dc := gg.NewContext(w, h)
	if chrome != nil && chrome.ShowCheckers {
		drawCheckerboard(dc, w, h, r.theme.CheckerLight, r.theme.CheckerDark)
	} else {
		dc.ClearWithColor(gg.FromColor(r.theme.Canvas))
	}
	cw, ch := float64(w), float64(h)
	for _, o := range objs {
		if o.IsLayer() {
			r.drawLayer(dc, o, cw, ch, &view)
		}
	}
	for _, o := range objs {
		if !o.IsLayer() {
			r.drawObject(dc, o, &view, chrome)
		}
	}
	if chrome != nil {
		r.drawChrome(dc, chrome, &view)
	}
	return dc
}

func drawCheckerboard(dc *gg.Context, w, h int, light, dark color.Color) {
	const size = 8
	dc.ClearWithColor(gg.FromColor(light))
	dc.SetColor(dark)
	for y := 0; y < h; y += size {
		for x := (y / size % 2) * size; x < w; x += 2 * size {
			dc.DrawRectangle(float64(x), float64(y), size, size)
		}
	}
	_ = dc.Fill()
}

// layerRect resolves where a layer image lands in scene space.
func layerRect(o *scene.Object, cw, ch float64) geom.Rect {
	switch o.Fit {
	case scene.FitContain:
		if o.Image == nil {
			return geom.Rect{}
		}
		b := o.Image.Bounds()
		return geom.FitContain(float64(b.Dx()), float64(b.Dy()), cw, ch)
	case scene.FitStretch:
		return geom.Rect{Max: geom.Pt(cw, ch)}
	}
	return o.Bounds()
}

func (r *Renderer) drawLayer(dc *gg.Context, o *scene.Object, cw, ch float64, view *viewport.Viewport) {
	if o.Image == nil {
		return
	}
	drawImage(dc, o.Image, layerRect(o, cw, ch), view)
}

func drawImage(dc *gg.Context, img image.Image, dst geom.Rect, view *viewport.Viewport) {
	if dst.Empty() {
		return
	}
	tl := view.ToScreen(dst.Min)
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             tl.X,
		Y:             tl.Y,
		DstWidth:      dst.Dx() * view.Scale,
		DstHeight:     dst.Dy() * view.Scale,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})
}

func (r *Renderer) drawObject(dc *gg.Context, o *scene.Object, view *viewport.Viewport, chrome *Chrome) {
	st := o.Style
	lw := math.Max(st.StrokeWidth, 0) * view.Scale
	switch o.Kind {
	case scene.KindRectangle:
		b := o.Bounds()
		p := view.ToScreen(b.Min)
		dc.DrawRectangle(p.X, p.Y, b.Dx()*view.Scale, b.Dy()*view.Scale)
		paint(dc, st, lw)
	case scene.KindCircle:
		c := view.ToScreen(o.Center)
		dc.DrawCircle(c.X, c.Y, math.Abs(o.Radius)*view.Scale)
		paint(dc, st, lw)
	case scene.KindLine:
		a, b := view.ToScreen(o.Start), view.ToScreen(o.End)
		dc.MoveTo(a.X, a.Y)
		dc.LineTo(b.X, b.Y)
		dc.SetLineCap(gg.LineCapRound)
		dc.SetColor(mustColor(st.StrokeColor))
		dc.SetLineWidth(math.Max(lw, 1))
		_ = dc.Stroke()
	case scene.KindPolygon:
		if len(o.Vertices) == 0 {
			return
		}
		for i, v := range o.Vertices {
			p := view.ToScreen(v)
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
		dc.ClosePath()
		paint(dc, st, lw)
	case scene.KindText:
		size := o.FontSize * view.Scale
		f := r.face(size)
		p := view.ToScreen(o.Position)
		dc.SetFont(f)
		dc.SetColor(mustColor(textColor(st)))
		dc.DrawString(o.Text, p.X, p.Y+f.Metrics().Ascent)
		if chrome != nil && chrome.CaretFor == o.ID {
			adv, _ := text.Measure(o.Text, f)
			if o.Text == "" {
				adv = 0
			}
			dc.SetColor(r.theme.Caret)
			dc.SetLineWidth(caretWidth)
			dc.MoveTo(p.X+adv+1, p.Y)
			dc.LineTo(p.X+adv+1, p.Y+f.Metrics().LineHeight())
			_ = dc.Stroke()
		}
	case scene.KindImage:
		if o.Image != nil {
			drawImage(dc, o.Image, o.Bounds(), view)
		}
	}
}

func textColor(st scene.Style) string {
	if st.HasFill() {
		return st.FillColor
	}
	return st.StrokeColor
}

// paint fills then strokes the current path.
func paint(dc *gg.Context, st scene.Style, lw float64) {
	if st.HasFill() {
		dc.SetColor(mustColor(st.FillColor))
		_ = dc.FillPreserve()
	}
	if lw > 0 && st.StrokeColor != "" && st.StrokeColor != scene.Transparent {
		dc.SetColor(mustColor(st.StrokeColor))
		dc.SetLineWidth(lw)
		_ = dc.Stroke()
		return
	}
	dc.ClearPath()
}

func (r *Renderer) drawChrome(dc *gg.Context, c *Chrome, view *viewport.Viewport) {
	t := r.theme
	if len(c.Pending) > 0 {
		dc.SetColor(t.Connector)
		dc.SetLineWidth(t.ConnectorWidth)
		for i, v := range c.Pending {
			p := view.ToScreen(v)
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
		if c.Cursor != nil {
			p := view.ToScreen(*c.Cursor)
			dc.LineTo(p.X, p.Y)
		}
		_ = dc.Stroke()
		for i, v := range c.Pending {
			p := view.ToScreen(v)
			col, rad := t.VertexMarker, t.MarkerRadius
			if i == 0 && c.CanClose {
				col, rad = t.ClosingHighlight, t.MarkerRadius*2
			}
			dc.SetColor(col)
			dc.DrawCircle(p.X, p.Y, rad)
			_ = dc.Fill()
		}
	}
	for _, b := range c.Selection {
		dc.SetColor(t.SelectionOutline)
		dc.SetLineWidth(t.OutlineWidth)
		dc.SetDash(4, 3)
		dc.DrawRectangle(b.Min.X, b.Min.Y, b.Dx(), b.Dy())
		_ = dc.Stroke()
		dc.ClearDash()
	}
	if c.Band != nil {
		b := *c.Band
		dc.SetColor(t.RubberBand)
		dc.DrawRectangle(b.Min.X, b.Min.Y, b.Dx(), b.Dy())
		_ = dc.Fill()
	}
	if c.Affordance != nil {
		a := *c.Affordance
		dc.SetColor(t.DeleteAffordance)
		dc.DrawRoundedRectangle(a.Min.X, a.Min.Y, a.Dx(), a.Dy(), 4)
		_ = dc.Fill()
		inset := a.Dx() / 4
		dc.SetColor(t.DeleteGlyph)
		dc.SetLineWidth(2)
		dc.MoveTo(a.Min.X+inset, a.Min.Y+inset)
		dc.LineTo(a.Max.X-inset, a.Max.Y-inset)
		dc.MoveTo(a.Max.X-inset, a.Min.Y+inset)
		dc.LineTo(a.Min.X+inset, a.Max.Y-inset)
		_ = dc.Stroke()
	}
	if c.Notice != "" {
		f := r.face(t.NoticeFontSize)
		w, h := text.Measure(c.Notice, f)
		x := (float64(dc.Width()) - w) / 2
		y := float64(dc.Height()) - h - 16
		dc.SetColor(t.NoticeBackground)
		dc.DrawRoundedRectangle(x-8, y-6, w+16, h+12, 4)
		_ = dc.Fill()
		dc.SetFont(f)
		dc.SetColor(t.NoticeText)
		dc.DrawString(c.Notice, x, y+f.Metrics().Ascent)
	}
}
