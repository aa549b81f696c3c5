package editor

import (
	"fmt"
	"image"

	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
)

// SetBackground installs img as the fixed background, replacing any
// previous one. It is fitted inside the canvas and centred.
func (s *Session) SetBackground(img image.Image, ref string) {
	s.mu.Lock()
	defer s.unlock()
	s.bgGen++
	s.installBackground(img, ref)
}

func (s *Session) installBackground(img image.Image, ref string) {
	s.store.RemoveLayer(scene.LayerBackground)
	b := img.Bounds()
	s.store.Add(&scene.Object{
		Kind:     scene.KindImage,
		Layer:    scene.LayerBackground,
		Fit:      scene.FitContain,
		Image:    img,
		ImageRef: ref,
		Width:    float64(b.Dx()),
		Height:   float64(b.Dy()),
	})
	s.changed()
}

// LoadBackground resolves ref asynchronously and installs it as the
// background. A later SetBackground or LoadBackground supersedes it.
func (s *Session) LoadBackground(ref string) {
	s.mu.Lock()
	s.bgGen++
	gen := s.bgGen
	s.mu.Unlock()
	s.load(ref, func(img image.Image) {
		if gen != s.bgGen {
			s.log.Info("background superseded", "ref", ref)
			return
		}
		s.installBackground(img, ref)
	})
}

// SetOverlay replaces the overlay layer with a single image stretched to
// the canvas.
func (s *Session) SetOverlay(img image.Image, ref string) {
	s.mu.Lock()
	defer s.unlock()
	s.overlayGen++
	s.store.RemoveLayer(scene.LayerOverlay)
	s.addOverlay(img, export.ExternalElement{Image: ref})
	s.changed()
}

// SetExternalElements replaces the overlay layer with the given elements.
// Existing overlay objects go immediately; image elements appear as their
// loads complete. Elements with x, y, width and height properties are
// placed there, others are stretched over the canvas.
func (s *Session) SetExternalElements(elements []export.ExternalElement) {
	s.mu.Lock()
	s.overlayGen++
	gen := s.overlayGen
	s.store.RemoveLayer(scene.LayerOverlay)
	s.changed()
	s.unlock()

	for _, el := range elements {
		if el.Image == "" {
			continue
		}
		el := el
		s.load(el.Image, func(img image.Image) {
			if gen != s.overlayGen {
				return
			}
			s.addOverlay(img, el)
			s.changed()
		})
	}
}

func (s *Session) addOverlay(img image.Image, el export.ExternalElement) {
	o := &scene.Object{
		Kind:       scene.KindImage,
		Layer:      scene.LayerOverlay,
		Fit:        scene.FitStretch,
		Image:      img,
		ImageRef:   el.Image,
		ExternalID: el.ID,
		Properties: el.Properties,
	}
	if r, ok := placement(el.Properties); ok {
		o.Fit = scene.FitNone
		o.Position = r.Min
		o.Width, o.Height = r.Dx(), r.Dy()
	}
	s.store.Add(o)
}

func placement(props map[string]any) (geom.Rect, bool) {
	var v [4]float64
	for i, k := range []string{"x", "y", "width", "height"} {
		f, ok := props[k].(float64)
		if !ok {
			return geom.Rect{}, false
		}
		v[i] = f
	}
	if v[2] <= 0 || v[3] <= 0 {
		return geom.Rect{}, false
	}
	return geom.Rect{Min: geom.Pt(v[0], v[1]), Max: geom.Pt(v[0]+v[2], v[1]+v[3])}, true
}

// InsertAsset resolves ref asynchronously and adds it as a drawable image
// with its top-left at the scene point at. The image goes to the back of
// the drawables, above the layers. Concurrent inserts land in completion
// order, each under the ones before it, and none are dropped.
func (s *Session) InsertAsset(ref string, at geom.Point) {
	s.load(ref, func(img image.Image) {
		b := img.Bounds()
		o := s.store.AddBack(&scene.Object{
			Kind:     scene.KindImage,
			Image:    img,
			ImageRef: ref,
			Position: at,
			Width:    float64(b.Dx()),
			Height:   float64(b.Dy()),
			Style:    scene.Style{StrokeColor: scene.Transparent, FillColor: scene.Transparent},
		})
		s.log.Debug("asset inserted", "ref", ref, "id", o.ID)
		s.changed()
	})
}

// InsertImage adds a decoded image as a drawable right away.
func (s *Session) InsertImage(img image.Image, ref string, at geom.Point) string {
	s.mu.Lock()
	defer s.unlock()
	b := img.Bounds()
	o := s.store.Add(&scene.Object{
		Kind:     scene.KindImage,
		Image:    img,
		ImageRef: ref,
		Position: at,
		Width:    float64(b.Dx()),
		Height:   float64(b.Dy()),
		Style:    scene.Style{StrokeColor: scene.Transparent, FillColor: scene.Transparent},
	})
	s.changed()
	return o.ID
}

// load runs the loader in a goroutine and calls apply under the session
// lock when it succeeds. Failures are logged and reported to error
// listeners; the scene is left untouched.
func (s *Session) load(ref string, apply func(image.Image)) {
	s.mu.Lock()
	if s.closed {
		s.failed("image load", fmt.Errorf("load %s: %w", ref, ErrClosed))
		s.unlock()
		return
	}
	ctx := s.ctx
	s.loads.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.loads.Done()
		img, err := s.loader.Load(ctx, ref)
		s.mu.Lock()
		defer s.unlock()
		if s.closed {
			return
		}
		if err != nil {
			s.failed("image load", fmt.Errorf("load %s: %w", ref, err))
			return
		}
		apply(img)
	}()
}
