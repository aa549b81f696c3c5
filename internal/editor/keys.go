package editor

import (
	"strings"
	"unicode"

	"github.com/example/siteplan/internal/geom"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"
)

// WheelStep is the deltaY of one wheel notch.
const WheelStep = 100

// HandleKey dispatches a keyboard event. It reports whether the event was
// consumed.
func (s *Session) HandleKey(e key.Event) bool {
	if e.Direction == key.DirRelease {
		return false
	}
	if _, editing := s.Editing(); editing {
		return s.editKey(e)
	}
	switch e.Code {
	case key.CodeDeleteForward, key.CodeDeleteBackspace:
		return s.DeleteSelection() > 0
	case key.CodeEscape:
		s.mu.Lock()
		s.cancelPolygon()
		s.selection = nil
		s.drag = dragState{}
		s.unlock()
		return true
	case key.CodeReturnEnter:
		if s.Tool() == ToolPolygon {
			s.ClosePolygon()
			return true
		}
		if sel := s.Selection(); len(sel) == 1 {
			return s.BeginEdit(sel[0]) == nil
		}
		return false
	}
	if e.Modifiers&(key.ModControl|key.ModAlt|key.ModMeta) != 0 {
		return false
	}
	switch r := unicode.ToLower(e.Rune); r {
	case '+', '=':
		s.ZoomIn()
	case '-':
		s.ZoomOut()
	case '0':
		s.ResetView()
	default:
		t, ok := toolShortcuts[r]
		if !ok {
			return false
		}
		_ = s.SetTool(t)
	}
	return true
}

// editKey routes keys to the text edit session. Delete never removes the
// object being edited.
func (s *Session) editKey(e key.Event) bool {
	switch e.Code {
	case key.CodeDeleteBackspace:
		return s.Backspace()
	case key.CodeDeleteForward:
		return true
	case key.CodeEscape, key.CodeReturnEnter:
		s.EndEdit()
		return true
	}
	if e.Rune > 0 && unicode.IsPrint(e.Rune) && e.Modifiers&(key.ModControl|key.ModMeta) == 0 {
		return s.TypeText(string(e.Rune))
	}
	return true
}

// HandleMouse dispatches a pointer event in canvas coordinates.
func (s *Session) HandleMouse(e mouse.Event) {
	p := geom.Pt(float64(e.X), float64(e.Y))
	switch e.Button {
	case mouse.ButtonWheelUp:
		s.Wheel(-WheelStep, p)
		return
	case mouse.ButtonWheelDown:
		s.Wheel(WheelStep, p)
		return
	}
	switch e.Direction {
	case mouse.DirPress:
		if e.Button == mouse.ButtonLeft {
			s.PointerDown(p)
		}
	case mouse.DirRelease:
		if e.Button == mouse.ButtonLeft {
			s.PointerUp(p)
		}
	case mouse.DirNone:
		s.PointerMove(p)
	}
}

var namedKeys = map[string]key.Code{
	"delete":    key.CodeDeleteForward,
	"backspace": key.CodeDeleteBackspace,
	"escape":    key.CodeEscape,
	"esc":       key.CodeEscape,
	"enter":     key.CodeReturnEnter,
	"return":    key.CodeReturnEnter,
}

// KeyByName builds a key press for a name such as "Delete", "Escape" or a
// single character.
func KeyByName(name string) (key.Event, bool) {
	if code, ok := namedKeys[strings.ToLower(name)]; ok {
		return key.Event{Code: code, Direction: key.DirPress}, true
	}
	r := []rune(name)
	if len(r) == 1 {
		return key.Event{Rune: r[0], Direction: key.DirPress}, true
	}
	return key.Event{}, false
}
