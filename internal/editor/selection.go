package editor

import (
	"fmt"
	"math"
	"slices"

	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/render"
	"github.com/example/siteplan/internal/scene"
)

const (
	// AffordanceSize is the side of the delete button in canvas pixels.
	AffordanceSize = 24
	// AffordanceGap separates the button from the selection bounds.
	AffordanceGap = 6
)

// SetTool switches the pointer mode. Switching away cancels a pending
// polygon and ends any text edit.
func (s *Session) SetTool(t Tool) error {
	if t < ToolSelect || t > ToolFill {
		return fmt.Errorf("%w: %d", ErrUnknownTool, int(t))
	}
	s.mu.Lock()
	defer s.unlock()
	if t == s.tool {
		return nil
	}
	s.cancelPolygon()
	s.endEdit()
	s.drag = dragState{}
	if t != ToolSelect && t != ToolText {
		s.selection = nil
	}
	s.tool = t
	return nil
}

// Selection returns the ids of the active selection in selection order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selection)
}

// Select replaces the active selection. Unknown and layer ids are dropped.
func (s *Session) Select(ids ...string) {
	s.mu.Lock()
	defer s.unlock()
	s.selection = nil
	for _, id := range ids {
		if o, ok := s.store.Get(id); ok && !o.IsLayer() && !s.isSelected(id) {
			s.selection = append(s.selection, id)
		}
	}
}

func (s *Session) isSelected(id string) bool {
	return slices.Contains(s.selection, id)
}

// DeleteSelection removes every selected drawable. It reports how many
// objects were removed.
func (s *Session) DeleteSelection() int {
	s.mu.Lock()
	defer s.unlock()
	return s.deleteSelection()
}

func (s *Session) deleteSelection() int {
	n := 0
	for _, id := range s.selection {
		if id == s.editing {
			s.editing = ""
		}
		if s.store.Remove(id) {
			n++
		}
	}
	s.selection = nil
	if n > 0 {
		s.changed()
	}
	return n
}

// Delete removes a single drawable by id. Layer objects are never removed.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.unlock()
	o, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if o.IsLayer() {
		return nil
	}
	s.store.Remove(id)
	s.selection = slices.DeleteFunc(s.selection, func(v string) bool { return v == id })
	if s.editing == id {
		s.editing = ""
	}
	s.changed()
	return nil
}

// DeleteAffordance returns where the floating delete button sits in canvas
// space, or false when nothing is selected.
func (s *Session) DeleteAffordance() (geom.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.affordance()
}

// affordance prefers the left of the selection bounds, then above, then
// the right. Whichever side is used, the button is kept on the canvas.
func (s *Session) affordance() (geom.Rect, bool) {
	var (
		b     geom.Rect
		found bool
	)
	for _, id := range s.selection {
		o, ok := s.store.Get(id)
		if !ok {
			continue
		}
		r := s.screenRect(o.Bounds())
		if !found {
			b, found = r, true
		} else {
			b = b.Union(r)
		}
	}
	if !found {
		return geom.Rect{}, false
	}
	const step = AffordanceGap + AffordanceSize
	var at geom.Point
	switch {
	case b.Min.X-step >= 0:
		at = geom.Pt(b.Min.X-step, b.Min.Y)
	case b.Min.Y-step >= 0:
		at = geom.Pt(b.Min.X, b.Min.Y-step)
	default:
		at = geom.Pt(b.Max.X+AffordanceGap, b.Min.Y)
	}
	at.X = clampSpan(at.X, s.view.Width-AffordanceSize)
	at.Y = clampSpan(at.Y, s.view.Height-AffordanceSize)
	return geom.Rect{Min: at, Max: at.Add(geom.Pt(AffordanceSize, AffordanceSize))}, true
}

// clampSpan limits v to [0, hi]; hi below zero pins v to zero.
func clampSpan(v, hi float64) float64 {
	return math.Max(0, math.Min(v, hi))
}

// SetActiveStyle sets the style used for new objects.
func (s *Session) SetActiveStyle(st scene.Style) error {
	if err := validateStyle(st); err != nil {
		return err
	}
	s.mu.Lock()
	s.style = st
	s.mu.Unlock()
	return nil
}

// SetSelectionStyle applies st to every selected object.
func (s *Session) SetSelectionStyle(st scene.Style) error {
	if err := validateStyle(st); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.unlock()
	n := 0
	for _, id := range s.selection {
		if o, ok := s.store.Get(id); ok {
			o.Style = st
			n++
		}
	}
	if n > 0 {
		s.changed()
	}
	return nil
}

func validateStyle(st scene.Style) error {
	for _, c := range []string{st.StrokeColor, st.FillColor} {
		if !render.ValidColor(c) {
			return fmt.Errorf("%w: %q", ErrBadColor, c)
		}
	}
	if st.StrokeWidth < 0 {
		return fmt.Errorf("negative stroke width %v", st.StrokeWidth)
	}
	return nil
}

// MoveVertex moves vertex i of a polygon or line to the scene point p.
// For lines index 0 is the start and 1 the end.
func (s *Session) MoveVertex(id string, i int, p geom.Point) error {
	s.mu.Lock()
	defer s.unlock()
	o, ok := s.store.Get(id)
	if !ok || o.IsLayer() {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	switch {
	case o.Kind == scene.KindPolygon && i >= 0 && i < len(o.Vertices):
		o.Vertices[i] = p
	case o.Kind == scene.KindLine && i == 0:
		o.Start = p
	case o.Kind == scene.KindLine && i == 1:
		o.End = p
	default:
		return fmt.Errorf("object %s has no vertex %d", id, i)
	}
	s.changed()
	return nil
}

// Clear removes every drawable. Background and overlay layers stay.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.unlock()
	s.store.Clear()
	s.selection = nil
	s.editing = ""
	s.cancelPolygon()
	s.drag = dragState{}
	s.changed()
}
