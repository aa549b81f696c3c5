package editor

import "github.com/example/siteplan/internal/geom"

// ZoomIn zooms by one button step around the canvas centre.
func (s *Session) ZoomIn() {
	s.mu.Lock()
	s.view.ZoomIn()
	s.mu.Unlock()
}

// ZoomOut zooms out by one button step around the canvas centre.
func (s *Session) ZoomOut() {
	s.mu.Lock()
	s.view.ZoomOut()
	s.mu.Unlock()
}

// Wheel zooms by a scroll delta keeping the scene point under the canvas
// point cursor fixed.
func (s *Session) Wheel(deltaY float64, cursor geom.Point) {
	s.mu.Lock()
	s.view.Wheel(deltaY, cursor)
	s.mu.Unlock()
}

// Pan shifts the view by d canvas pixels.
func (s *Session) Pan(d geom.Point) {
	s.mu.Lock()
	s.view.Pan(d)
	s.mu.Unlock()
}

// ResetView restores zoom 1 and no pan.
func (s *Session) ResetView() {
	s.mu.Lock()
	s.view.Reset()
	s.mu.Unlock()
}

// Resize sets the canvas size. Repeating the same size does nothing.
func (s *Session) Resize(w, h int) {
	s.mu.Lock()
	s.view.Resize(float64(w), float64(h))
	s.mu.Unlock()
}
