// Package scene is the ordered object store behind an editing session.
//
// Objects are kept in z-order, lowest first. Background and overlay layer
// objects always sit below every drawable, are never hit-testable and are
// spared by Clear.
package scene

import (
	"slices"

	"github.com/example/siteplan/internal/geom"
	"github.com/google/uuid"
)

// Store holds the objects of one scene.
type Store struct {
	objects []*Object
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default uuid based id source.
func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add inserts o at the top of its layer band and returns it. An empty ID is
// filled from the generator; a duplicate ID is replaced with a fresh one.
func (s *Store) Add(o *Object) *Object {
	return s.insert(o, func(cur *Object) bool { return cur.Layer.rank() > o.Layer.rank() })
}

// AddBack is Add, but o goes to the bottom of its layer band.
func (s *Store) AddBack(o *Object) *Object {
	return s.insert(o, func(cur *Object) bool { return cur.Layer.rank() >= o.Layer.rank() })
}

// insert places o before the first object for which before returns true.
func (s *Store) insert(o *Object, before func(*Object) bool) *Object {
	if o.ID == "" || s.index(o.ID) >= 0 {
		o.ID = s.newID()
	}
	at := len(s.objects)
	if i := slices.IndexFunc(s.objects, before); i >= 0 {
		at = i
	}
	s.objects = slices.Insert(s.objects, at, o)
	return o
}

// Get returns the object with the given id.
func (s *Store) Get(id string) (*Object, bool) {
	if i := s.index(id); i >= 0 {
		return s.objects[i], true
	}
	return nil, false
}

// Remove deletes a drawable by id. Layer objects are left alone and
// false is returned for them as for unknown ids.
func (s *Store) Remove(id string) bool {
	i := s.index(id)
	if i < 0 || s.objects[i].IsLayer() {
		return false
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	return true
}

// RemoveLayer deletes every object in band l and reports how many went.
func (s *Store) RemoveLayer(l Layer) int {
	n := len(s.objects)
	s.objects = slices.DeleteFunc(s.objects, func(o *Object) bool { return o.Layer == l })
	return n - len(s.objects)
}

// Clear removes every drawable, keeping both layer bands.
func (s *Store) Clear() int {
	return s.RemoveLayer(LayerDrawable)
}

// Objects returns all objects in z-order. The slice is a copy; the
// objects are not.
func (s *Store) Objects() []*Object {
	return slices.Clone(s.objects)
}

// Drawables returns the non-layer objects in z-order.
func (s *Store) Drawables() []*Object {
	return s.InLayer(LayerDrawable)
}

// InLayer returns the objects of band l in z-order.
func (s *Store) InLayer(l Layer) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Layer == l {
			out = append(out, o)
		}
	}
	return out
}

// Len is the total object count, layers included.
func (s *Store) Len() int { return len(s.objects) }

// HitTest returns the topmost drawable containing p for which match
// returns true. A nil match accepts every drawable.
func (s *Store) HitTest(p geom.Point, tol float64, match func(*Object) bool) *Object {
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.IsLayer() {
			continue
		}
		if match != nil && !match(o) {
			continue
		}
		if o.Contains(p, tol) {
			return o
		}
	}
	return nil
}

// Within returns the drawables whose bounds overlap r, in z-order.
func (s *Store) Within(r geom.Rect) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if !o.IsLayer() && o.Bounds().Overlaps(r) {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.objects, func(o *Object) bool { return o.ID == id })
}
