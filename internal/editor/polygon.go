package editor

import (
	"github.com/example/siteplan/internal/geom"
)

const noticeTooFewVertices = "A polygon needs at least 3 points"

// closeDistance measures how far sp is from the first pending vertex in
// the configured threshold space.
func (s *Session) closeDistance(sp geom.Point) float64 {
	d := sp.Distance(s.pending[0])
	if s.thresholdSpace == SpaceCanvas {
		d *= s.view.Scale
	}
	return d
}

func (s *Session) polygonDown(sp geom.Point) {
	s.endEdit()
	s.selection = nil
	if len(s.pending) >= 3 && s.closeDistance(sp) <= s.closeThreshold {
		// The closing click itself is not a vertex.
		s.commitPolygon()
		return
	}
	s.pending = append(s.pending, sp)
	s.cursor = nil
}

// commitPolygon adds the pending polygon and returns to Select. Caller holds
// s.mu and has checked the vertex count.
func (s *Session) commitPolygon() {
	o := s.store.Add(newPolygon(s.pending, s.style))
	s.pending = nil
	s.cursor = nil
	s.tool = ToolSelect
	s.changed()
	s.measured(o)
}

// ClosePolygon commits the pending polygon explicitly. With fewer than
// three vertices it shows a notice, keeps the vertices and returns false.
func (s *Session) ClosePolygon() bool {
	s.mu.Lock()
	defer s.unlock()
	if len(s.pending) < 3 {
		s.noticef(noticeTooFewVertices)
		return false
	}
	s.commitPolygon()
	return true
}

// CancelPolygon discards any pending vertices.
func (s *Session) CancelPolygon() {
	s.mu.Lock()
	defer s.unlock()
	s.cancelPolygon()
}

func (s *Session) cancelPolygon() {
	s.pending = nil
	s.cursor = nil
}
