package viewer

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/theme"
)

const (
	buttonHeight = 24
	swatchSize   = 16
	swatchStep   = 18
	widthRowH    = 16
	statusHeight = 24
	titleHeight  = 24
)

type targetKind int

const (
	targetNone targetKind = iota
	targetTool
	targetStroke
	targetFill
	targetWidth
)

type target struct {
	kind  targetKind
	index int
}

var toolLabels = map[editor.Tool]string{
	editor.ToolSelect:    "V:Select",
	editor.ToolPan:       "H:Pan",
	editor.ToolRectangle: "R:Rect",
	editor.ToolCircle:    "C:Circle",
	editor.ToolLine:      "L:Line",
	editor.ToolPolygon:   "P:Polygon",
	editor.ToolText:      "T:Text",
	editor.ToolFill:      "F:Fill",
}

// toolbar is the left hand column: tool buttons, stroke and fill palettes
// and stroke widths.
type toolbar struct {
	width   int
	buttons []*CacheButton
	stroke  []image.Rectangle
	fill    []image.Rectangle
	widths  []image.Rectangle
	hover   target
}

func newToolbar(onSelect func(editor.Tool)) *toolbar {
	tb := &toolbar{width: labelWidth("Siteplan") + 8}
	for _, t := range editor.Tools() {
		label := toolLabels[t]
		if w := labelWidth(label) + 8; w > tb.width {
			tb.width = w
		}
		tb.buttons = append(tb.buttons, &CacheButton{Button: &ToolButton{label: label, tool: t, onSelect: onSelect}})
	}
	if minW := 4*swatchStep + 4; tb.width < minW {
		tb.width = minW
	}
	tb.layout()
	return tb
}

func (tb *toolbar) layout() {
	y := titleHeight
	for _, b := range tb.buttons {
		b.SetRect(image.Rect(0, y, tb.width, y+buttonHeight))
		y += buttonHeight
	}
	y += 4
	tb.stroke, y = swatchGrid(len(paletteNames), tb.width, y)
	y += 6
	tb.fill, y = swatchGrid(len(paletteNames)+1, tb.width, y)
	y += 6
	tb.widths = tb.widths[:0]
	for range strokeWidths {
		tb.widths = append(tb.widths, image.Rect(0, y, tb.width, y+widthRowH))
		y += widthRowH
	}
}

func swatchGrid(n, width, y int) ([]image.Rectangle, int) {
	var rects []image.Rectangle
	x := 4
	for i := 0; i < n; i++ {
		rects = append(rects, image.Rect(x, y, x+swatchSize, y+swatchSize))
		x += swatchStep
		if x+swatchSize > width && i < n-1 {
			x = 4
			y += swatchStep
		}
	}
	return rects, y + swatchStep
}

func (tb *toolbar) hit(p image.Point) target {
	if p.X >= tb.width {
		return target{kind: targetNone}
	}
	for i, b := range tb.buttons {
		if p.In(b.Rect()) {
			return target{targetTool, i}
		}
	}
	for _, group := range []struct {
		kind  targetKind
		rects []image.Rectangle
	}{{targetStroke, tb.stroke}, {targetFill, tb.fill}, {targetWidth, tb.widths}} {
		for i, r := range group.rects {
			if p.In(r) {
				return target{group.kind, i}
			}
		}
	}
	return target{kind: targetNone}
}

// apply performs the click on t against s.
func (tb *toolbar) apply(t target, s *editor.Session) error {
	st := s.Style()
	switch t.kind {
	case targetTool:
		tb.buttons[t.index].Activate()
		return nil
	case targetStroke:
		st.StrokeColor = paletteNames[t.index]
	case targetFill:
		st.FillColor = FillPalette()[t.index].Name
	case targetWidth:
		st.StrokeWidth = strokeWidths[t.index]
	default:
		return nil
	}
	if err := s.SetActiveStyle(st); err != nil {
		return err
	}
	if len(s.Selection()) > 0 {
		return s.SetSelectionStyle(st)
	}
	return nil
}

func (tb *toolbar) draw(dst *image.RGBA, th *theme.Theme, tool editor.Tool, st scene.Style) {
	height := dst.Bounds().Dy()
	draw.Draw(dst, image.Rect(0, 0, tb.width, height), image.NewUniform(th.ToolbarBackground), image.Point{}, draw.Src)
	drawLabel(dst, th.Foreground, 4, 16, "Siteplan")

	for i, b := range tb.buttons {
		state := StateDefault
		if b.Button.(*ToolButton).tool == tool {
			state = StatePressed
		} else if tb.hover == (target{targetTool, i}) {
			state = StateHover
		}
		b.Draw(dst, th, state)
	}

	palette := Palette()
	for i, r := range tb.stroke {
		drawSwatch(dst, th, r, palette[i].Color, palette[i].Name == st.StrokeColor, tb.hover == (target{targetStroke, i}))
	}
	fills := FillPalette()
	for i, r := range tb.fill {
		selected := fills[i].Name == st.FillColor || (i == 0 && !st.HasFill())
		if i == 0 {
			checker(dst, r, th.CheckerLight, th.CheckerDark)
			drawSwatch(dst, th, r, color.RGBA{}, selected, tb.hover == (target{targetFill, i}))
			continue
		}
		drawSwatch(dst, th, r, fills[i].Color, selected, tb.hover == (target{targetFill, i}))
	}

	stroke, _ := parseOr(st.StrokeColor, th.Foreground)
	for i, r := range tb.widths {
		bg := th.ButtonBackground
		if strokeWidths[i] == st.StrokeWidth {
			bg = th.ButtonBackgroundPress
		} else if tb.hover == (target{targetWidth, i}) {
			bg = th.ButtonBackgroundHover
		}
		draw.Draw(dst, r, image.NewUniform(bg), image.Point{}, draw.Src)
		drawLabel(dst, th.ButtonText, 4, r.Min.Y+12, fmt.Sprintf("%g", strokeWidths[i]))
		thick := int(strokeWidths[i] + 0.5)
		mid := r.Min.Y + widthRowH/2
		draw.Draw(dst, image.Rect(24, mid-thick/2, r.Max.X-4, mid-thick/2+thick), image.NewUniform(stroke), image.Point{}, draw.Over)
	}
}

func drawSwatch(dst *image.RGBA, th *theme.Theme, r image.Rectangle, c color.RGBA, selected, hover bool) {
	if c.A > 0 {
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
	}
	if hover {
		draw.Draw(dst, r, image.NewUniform(color.RGBA{255, 255, 255, 80}), image.Point{}, draw.Over)
	}
	if selected {
		strokeRect(dst, r.Inset(-1), th.SelectionOutline)
	}
}

func checker(dst *image.RGBA, r image.Rectangle, light, dark color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if ((x/4)+(y/4))%2 == 0 {
				dst.Set(x, y, light)
			} else {
				dst.Set(x, y, dark)
			}
		}
	}
}
