package editor

import (
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
)

// PointerDown handles a primary button press at canvas point p.
func (s *Session) PointerDown(p geom.Point) {
	s.mu.Lock()
	defer s.unlock()
	s.notice = ""
	if a, ok := s.affordance(); ok && a.Contains(p) {
		s.deleteSelection()
		return
	}
	sp := s.view.ToScene(p)
	switch s.tool {
	case ToolSelect:
		s.selectDown(sp)
	case ToolPan:
		s.drag = dragState{kind: dragPan, last: p}
	case ToolRectangle, ToolCircle, ToolLine:
		s.endEdit()
		o := s.store.Add(newShape(s.tool, sp, s.style))
		s.selection = nil
		s.drag = dragState{kind: dragCreate, id: o.ID, start: sp}
		s.changed()
	case ToolPolygon:
		s.polygonDown(sp)
	case ToolText:
		s.textDown(sp)
	case ToolFill:
		s.fillDown(sp)
	}
}

// PointerMove handles pointer motion at canvas point p, pressed or not.
func (s *Session) PointerMove(p geom.Point) {
	s.mu.Lock()
	defer s.unlock()
	sp := s.view.ToScene(p)
	switch s.drag.kind {
	case dragNone:
		if len(s.pending) > 0 {
			s.cursor = &sp
		}
	case dragCreate:
		if o, ok := s.store.Get(s.drag.id); ok {
			resize(o, sp)
			s.changed()
		}
	case dragMove:
		d := sp.Sub(s.drag.last)
		s.drag.last = sp
		if d == (geom.Point{}) {
			return
		}
		for _, id := range s.selection {
			if o, ok := s.store.Get(id); ok {
				o.Translate(d)
			}
		}
		s.changed()
	case dragPan:
		s.view.Pan(p.Sub(s.drag.last))
		s.drag.last = p
	case dragBand:
		s.drag.band = geom.RectFrom(s.drag.start, sp)
	}
}

// PointerUp ends the current drag at canvas point p.
func (s *Session) PointerUp(p geom.Point) {
	s.mu.Lock()
	defer s.unlock()
	sp := s.view.ToScene(p)
	switch s.drag.kind {
	case dragCreate:
		if o, ok := s.store.Get(s.drag.id); ok {
			resize(o, sp)
			s.changed()
			s.measured(o)
		}
	case dragMove:
		if d := sp.Sub(s.drag.last); d != (geom.Point{}) {
			for _, id := range s.selection {
				if o, ok := s.store.Get(id); ok {
					o.Translate(d)
				}
			}
			s.changed()
		}
	case dragPan:
		s.view.Pan(p.Sub(s.drag.last))
	case dragBand:
		band := geom.RectFrom(s.drag.start, sp)
		s.selection = nil
		if !band.Empty() {
			for _, o := range s.store.Within(band) {
				s.selection = append(s.selection, o.ID)
			}
		}
	}
	s.drag = dragState{}
}

// tolerance converts the canvas hit slop into scene units.
func (s *Session) tolerance() float64 {
	return hitTolerance / s.view.Scale
}

func (s *Session) selectDown(sp geom.Point) {
	hit := s.store.HitTest(sp, s.tolerance(), nil)
	if s.editing != "" && (hit == nil || hit.ID != s.editing) {
		s.endEdit()
	}
	if hit == nil {
		s.selection = nil
		s.drag = dragState{kind: dragBand, start: sp, band: geom.Rect{Min: sp, Max: sp}}
		return
	}
	if !s.isSelected(hit.ID) {
		s.selection = []string{hit.ID}
	}
	s.drag = dragState{kind: dragMove, id: hit.ID, start: sp, last: sp}
}

func (s *Session) textDown(sp geom.Point) {
	hit := s.store.HitTest(sp, s.tolerance(), func(o *scene.Object) bool { return o.Kind == scene.KindText })
	if hit != nil {
		if hit.ID == s.editing {
			return
		}
		wasSelected := s.isSelected(hit.ID)
		s.endEdit()
		s.selection = []string{hit.ID}
		if wasSelected {
			s.beginEdit(hit)
		}
		return
	}
	s.endEdit()
	o := newText(sp, s.fontSize, scene.Style{StrokeColor: s.style.StrokeColor, FillColor: scene.Transparent})
	s.measureText(o)
	s.store.Add(o)
	s.selection = []string{o.ID}
	s.editing = o.ID
	s.changed()
}

func (s *Session) fillDown(sp geom.Point) {
	hit := s.store.HitTest(sp, s.tolerance(), func(o *scene.Object) bool { return o.Kind.Fillable() })
	if hit == nil {
		return
	}
	fill := s.style.FillColor
	if fill == "" || fill == scene.Transparent {
		fill = s.style.StrokeColor
	}
	hit.Style.FillColor = fill
	s.changed()
}
