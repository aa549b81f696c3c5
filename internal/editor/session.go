// Package editor implements an interactive annotation session: a scene of
// vector objects over background layers, a pan/zoom viewport and the tool
// state machine that turns pointer and keyboard input into scene edits.
//
// A Session is safe for concurrent use. Mutations run synchronously under
// the session lock; image loads run in goroutines and splice their result
// in when they complete. Listeners are called outside the lock, in the
// order the events happened, and may call back into the session.
package editor

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/render"
	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/theme"
	"github.com/example/siteplan/internal/viewport"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrNotFound    = errors.New("object not found")
	ErrClosed      = errors.New("session closed")
	ErrBadColor    = errors.New("invalid colour")
)

// Space selects the coordinate space the polygon closing threshold is
// measured in.
type Space int

const (
	// SpaceCanvas measures on screen, so the threshold is independent of zoom.
	SpaceCanvas Space = iota
	// SpaceScene measures in scene units and shrinks on screen when zoomed out.
	SpaceScene
)

const (
	DefaultWidth          = 800
	DefaultHeight         = 600
	DefaultCloseThreshold = 10
	DefaultFontSize       = 20
	DefaultText           = "Text"

	// hitTolerance is the canvas-space slop for picking thin shapes.
	hitTolerance = 4
)

// DefaultStyle is the active style of a new session.
func DefaultStyle() scene.Style {
	return scene.Style{StrokeColor: "#ff0000", StrokeWidth: 2, FillColor: scene.Transparent}
}

type dragKind int

const (
	dragNone dragKind = iota
	dragCreate
	dragMove
	dragPan
	dragBand
)

type dragState struct {
	kind  dragKind
	id    string
	start geom.Point // scene
	last  geom.Point // scene for move, canvas for pan
	band  geom.Rect  // scene
}

// Session is one editor instance.
type Session struct {
	mu sync.Mutex

	store    *scene.Store
	view     *viewport.Viewport
	renderer *render.Renderer
	loader   Loader
	log      *slog.Logger

	tool           Tool
	style          scene.Style
	fontSize       float64
	closeThreshold float64
	thresholdSpace Space

	pending   []geom.Point
	cursor    *geom.Point
	drag      dragState
	selection []string
	editing   string
	notice    string

	bgGen      uint64
	overlayGen uint64

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
	closed bool

	onChange  []func([]export.DrawingElement)
	onNotice  []func(string)
	onMeasure []func(export.Measurement)
	onError   []func(error)

	queue       []event
	dispatching bool

	// options consumed by New
	storeOpts []scene.Option
	thm       *theme.Theme
	width     float64
	height    float64
}

// Option configures a Session.
type Option func(*Session)

// WithCanvasSize sets the initial canvas size in pixels.
func WithCanvasSize(w, h int) Option {
	return func(s *Session) { s.width, s.height = float64(w), float64(h) }
}

// WithLoader sets how image references are resolved.
func WithLoader(l Loader) Option { return func(s *Session) { s.loader = l } }

// WithLogger routes session logging to l.
func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.log = l } }

// WithTheme sets the chrome colours used when rendering frames.
func WithTheme(t *theme.Theme) Option { return func(s *Session) { s.thm = t } }

// WithRenderer shares an existing renderer between sessions.
func WithRenderer(r *render.Renderer) Option { return func(s *Session) { s.renderer = r } }

// WithStyle sets the initial active style.
func WithStyle(st scene.Style) Option { return func(s *Session) { s.style = st } }

// WithFontSize sets the size of new text objects.
func WithFontSize(size float64) Option { return func(s *Session) { s.fontSize = size } }

// WithCloseThreshold sets the polygon auto-close distance and its space.
func WithCloseThreshold(d float64, space Space) Option {
	return func(s *Session) { s.closeThreshold, s.thresholdSpace = d, space }
}

// WithIDGenerator replaces the uuid object id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.storeOpts = append(s.storeOpts, scene.WithIDGenerator(fn)) }
}

// WithChangeListener registers fn as with OnChange.
func WithChangeListener(fn func([]export.DrawingElement)) Option {
	return func(s *Session) { s.onChange = append(s.onChange, fn) }
}

// New creates a session with an empty scene.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		tool:           ToolSelect,
		style:          DefaultStyle(),
		fontSize:       DefaultFontSize,
		closeThreshold: DefaultCloseThreshold,
		width:          DefaultWidth,
		height:         DefaultHeight,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.renderer == nil {
		r, err := render.New(s.thm)
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}
	if s.loader == nil {
		s.loader = NewRefLoader(nil, nil)
	}
	s.store = scene.NewStore(s.storeOpts...)
	s.view = viewport.New(s.width, s.height)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Close cancels in-flight loads and waits for them to finish. Later
// loads fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()
	s.loads.Wait()
	return nil
}

// Wait blocks until every in-flight image load has been applied.
func (s *Session) Wait() { s.loads.Wait() }

// OnChange registers fn to receive the element list after every scene
// mutation.
func (s *Session) OnChange(fn func([]export.DrawingElement)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// OnNotice registers fn for user-facing notices.
func (s *Session) OnNotice(fn func(string)) {
	s.mu.Lock()
	s.onNotice = append(s.onNotice, fn)
	s.mu.Unlock()
}

// OnMeasure registers fn to receive the size of each finished shape.
func (s *Session) OnMeasure(fn func(export.Measurement)) {
	s.mu.Lock()
	s.onMeasure = append(s.onMeasure, fn)
	s.mu.Unlock()
}

// OnError registers fn for asynchronous failures such as image loads.
func (s *Session) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = append(s.onError, fn)
	s.mu.Unlock()
}

// Elements returns the current export list.
func (s *Session) Elements() []export.DrawingElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Elements(s.store.Objects())
}

// Objects returns clones of every object in z-order, layers included.
func (s *Session) Objects() []*scene.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneObjects()
}

func (s *Session) cloneObjects() []*scene.Object {
	objs := s.store.Objects()
	out := make([]*scene.Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

// Object returns a clone of the object with id.
func (s *Session) Object(id string) (*scene.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Tool returns the active tool.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// Viewport returns a copy of the viewport state.
func (s *Session) Viewport() viewport.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.view
}

// Style returns the active style.
func (s *Session) Style() scene.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// Pending returns the vertices of the polygon under construction.
func (s *Session) Pending() []geom.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geom.Point(nil), s.pending...)
}

// Editing returns the id of the text object in an edit session, if any.
func (s *Session) Editing() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing, s.editing != ""
}

// Notice returns the last notice shown to the user.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// Frame renders the current view with editing chrome.
func (s *Session) Frame() *image.RGBA {
	s.mu.Lock()
	objs := s.cloneObjects()
	view := *s.view
	chrome := s.chrome()
	s.mu.Unlock()
	return s.renderer.Frame(objs, int(view.Width), int(view.Height), view, chrome)
}

// Snapshot writes the flattened scene as PNG at canvas resolution, without
// pan, zoom or editing chrome.
func (s *Session) Snapshot(w io.Writer) error {
	s.mu.Lock()
	objs := s.cloneObjects()
	cw, ch := int(s.view.Width), int(s.view.Height)
	s.mu.Unlock()
	return s.renderer.Snapshot(w, objs, cw, ch)
}

func (s *Session) chrome() *render.Chrome {
	c := &render.Chrome{
		Pending:  append([]geom.Point(nil), s.pending...),
		CanClose: len(s.pending) >= 3,
		CaretFor: s.editing,
		Notice:   s.notice,
	}
	if len(s.pending) > 0 && s.cursor != nil {
		p := *s.cursor
		c.Cursor = &p
	}
	for _, id := range s.selection {
		if o, ok := s.store.Get(id); ok {
			c.Selection = append(c.Selection, s.screenRect(o.Bounds()).Inset(2))
		}
	}
	if s.drag.kind == dragBand {
		b := s.screenRect(s.drag.band)
		c.Band = &b
	}
	if a, ok := s.affordance(); ok {
		c.Affordance = &a
	}
	return c
}

func (s *Session) screenRect(r geom.Rect) geom.Rect {
	return geom.RectFrom(s.view.ToScreen(r.Min), s.view.ToScreen(r.Max))
}

type eventKind int

const (
	evChange eventKind = iota
	evNotice
	evMeasure
	evError
)

type event struct {
	kind     eventKind
	elements []export.DrawingElement
	msg      string
	measure  export.Measurement
	err      error
}

// changed queues a fresh export. Caller holds s.mu.
func (s *Session) changed() {
	s.queue = append(s.queue, event{kind: evChange, elements: export.Elements(s.store.Objects())})
}

// noticef queues a notice. Caller holds s.mu.
func (s *Session) noticef(msg string) {
	s.notice = msg
	s.log.Info("notice", "msg", msg)
	s.queue = append(s.queue, event{kind: evNotice, msg: msg})
}

// measured queues the measurement of o if it has one. Caller holds s.mu.
func (s *Session) measured(o *scene.Object) {
	if m, ok := export.Measure(o); ok {
		s.queue = append(s.queue, event{kind: evMeasure, measure: m})
	}
}

// failed logs err and queues it for error listeners. Caller holds s.mu.
func (s *Session) failed(msg string, err error) {
	s.log.Error(msg, "err", err)
	s.queue = append(s.queue, event{kind: evError, err: err})
}

// unlock releases s.mu and delivers queued events. Exactly one goroutine
// delivers at a time; others leave their events for it.
func (s *Session) unlock() {
	if s.dispatching || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for {
		q := s.queue
		s.queue = nil
		change := slices.Clone(s.onChange)
		notice := slices.Clone(s.onNotice)
		measure := slices.Clone(s.onMeasure)
		errs := slices.Clone(s.onError)
		s.mu.Unlock()

		for _, ev := range q {
			switch ev.kind {
			case evChange:
				for _, fn := range change {
					fn(ev.elements)
				}
			case evNotice:
				for _, fn := range notice {
					fn(ev.msg)
				}
			case evMeasure:
				for _, fn := range measure {
					fn(ev.measure)
				}
			case evError:
				for _, fn := range errs {
					fn(ev.err)
				}
			}
		}

		s.mu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
	}
}
