package editor

import (
	"fmt"
	"unicode/utf8"

	"github.com/example/siteplan/internal/scene"
)

func (s *Session) measureText(o *scene.Object) {
	w, h := s.renderer.Measure(o.Text, o.FontSize)
	o.Width, o.Height = max(w, 1), h
}

// beginEdit opens an edit session on o. Caller holds s.mu.
func (s *Session) beginEdit(o *scene.Object) {
	o.Editing = true
	o.Preselected = true
	s.editing = o.ID
}

// endEdit closes the current edit session. Emptied text objects are
// removed. Caller holds s.mu.
func (s *Session) endEdit() {
	if s.editing == "" {
		return
	}
	id := s.editing
	s.editing = ""
	o, ok := s.store.Get(id)
	if !ok {
		return
	}
	o.Editing = false
	o.Preselected = false
	if o.Text == "" {
		s.store.Remove(id)
		s.selection = nil
		s.changed()
	}
}

// BeginEdit starts editing the text object id.
func (s *Session) BeginEdit(id string) error {
	s.mu.Lock()
	defer s.unlock()
	o, ok := s.store.Get(id)
	if !ok || o.Kind != scene.KindText {
		return fmt.Errorf("%w: text %s", ErrNotFound, id)
	}
	if s.editing != id {
		s.endEdit()
		s.beginEdit(o)
		s.selection = []string{id}
	}
	return nil
}

// EndEdit leaves the current text edit session, if any.
func (s *Session) EndEdit() {
	s.mu.Lock()
	defer s.unlock()
	s.endEdit()
}

// TypeText appends str to the text being edited. The first input after
// the edit starts replaces the pre-selected content. It reports whether an
// edit session consumed the input.
func (s *Session) TypeText(str string) bool {
	s.mu.Lock()
	defer s.unlock()
	o := s.editingObject()
	if o == nil {
		return false
	}
	if o.Preselected {
		o.Text = ""
		o.Preselected = false
	}
	o.Text += str
	s.measureText(o)
	s.changed()
	return true
}

// Backspace deletes the last rune of the text being edited, or all of it
// while it is still pre-selected.
func (s *Session) Backspace() bool {
	s.mu.Lock()
	defer s.unlock()
	o := s.editingObject()
	if o == nil {
		return false
	}
	switch {
	case o.Preselected:
		o.Text = ""
		o.Preselected = false
	case o.Text != "":
		_, n := utf8.DecodeLastRuneInString(o.Text)
		o.Text = o.Text[:len(o.Text)-n]
	default:
		return true
	}
	s.measureText(o)
	s.changed()
	return true
}

// SetText replaces the content of a text object outside of an edit session.
func (s *Session) SetText(id, text string) error {
	s.mu.Lock()
	defer s.unlock()
	o, ok := s.store.Get(id)
	if !ok || o.Kind != scene.KindText {
		return fmt.Errorf("%w: text %s", ErrNotFound, id)
	}
	o.Text = text
	o.Preselected = false
	s.measureText(o)
	s.changed()
	return nil
}

func (s *Session) editingObject() *scene.Object {
	if s.editing == "" {
		return nil
	}
	o, ok := s.store.Get(s.editing)
	if !ok {
		s.editing = ""
		return nil
	}
	return o
}
