package editor

import (
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
)

// newShape returns a zero-size shape of the tool's kind anchored at p.
func newShape(t Tool, p geom.Point, st scene.Style) *scene.Object {
	switch t {
	case ToolRectangle:
		return &scene.Object{Kind: scene.KindRectangle, Anchor: p, Corner: p, Style: st}
	case ToolCircle:
		return &scene.Object{Kind: scene.KindCircle, Center: p, Style: st}
	case ToolLine:
		return &scene.Object{Kind: scene.KindLine, Start: p, End: p, Style: st}
	}
	return nil
}

// resize grows a shape from its fixed anchor towards p.
func resize(o *scene.Object, p geom.Point) {
	switch o.Kind {
	case scene.KindRectangle:
		o.Corner = p
	case scene.KindCircle:
		o.Radius = o.Center.Distance(p)
	case scene.KindLine:
		o.End = p
	}
}

func newPolygon(vertices []geom.Point, st scene.Style) *scene.Object {
	return &scene.Object{
		Kind:     scene.KindPolygon,
		Vertices: append([]geom.Point(nil), vertices...),
		Style:    st,
	}
}

// newText returns a text object whose default content is pre-selected.
func newText(p geom.Point, size float64, st scene.Style) *scene.Object {
	return &scene.Object{
		Kind:        scene.KindText,
		Position:    p,
		Text:        DefaultText,
		FontSize:    size,
		Style:       st,
		Editing:     true,
		Preselected: true,
	}
}
