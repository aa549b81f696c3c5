// Package viewer runs an editor session in a desktop window.
package viewer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"sync"
	"time"
	"unicode"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/image/draw"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/siteplan/internal/clipboard"
	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/notify"
	"github.com/example/siteplan/internal/render"
	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/theme"
)

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

const messageDuration = 2 * time.Second

// Viewer shows one session with a toolbar and a status line.
type Viewer struct {
	session  *editor.Session
	theme    *theme.Theme
	notifier *notify.Notifier
	output   string
	title    string

	updateCh  chan struct{}
	onClose   func()
	closeOnce sync.Once
}

// Option modifies a Viewer during creation.
type Option func(*Viewer)

// WithTheme sets the chrome colours.
func WithTheme(t *theme.Theme) Option { return func(v *Viewer) { v.theme = t } }

// WithNotifier sends desktop notifications for saves, copies and load failures.
func WithNotifier(n *notify.Notifier) Option { return func(v *Viewer) { v.notifier = n } }

// WithOutput sets the base path used by the save shortcut.
func WithOutput(out string) Option { return func(v *Viewer) { v.output = out } }

// WithTitle sets the window title.
func WithTitle(title string) Option { return func(v *Viewer) { v.title = title } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(v *Viewer) { v.onClose = fn } }

// New creates a viewer for s.
func New(s *editor.Session, opts ...Option) *Viewer {
	v := &Viewer{
		session:  s,
		theme:    theme.Default(),
		output:   "siteplan",
		title:    "Siteplan",
		updateCh: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(v)
	}
	s.OnChange(func([]export.DrawingElement) { v.requestPaint() })
	return v
}

// requestPaint asks the window loop for a repaint without blocking.
func (v *Viewer) requestPaint() {
	select {
	case v.updateCh <- struct{}{}:
	default:
	}
}

func (v *Viewer) notifyClose() {
	v.closeOnce.Do(func() {
		if v.onClose != nil {
			v.onClose()
		}
	})
}

// statusEvent carries a status line message into the window loop.
type statusEvent struct{ text string }

type paintState struct {
	width, height int
	session       *editor.Session
	toolbar       *toolbar
	theme         *theme.Theme
	message       string
	messageUntil  time.Time
}

// compose draws one window frame into dst.
func compose(ctx context.Context, dst *image.RGBA, st paintState) {
	th := st.theme
	draw.Draw(dst, dst.Bounds(), image.NewUniform(th.Background), image.Point{}, draw.Src)

	frame := st.session.Frame()
	if ctx.Err() != nil {
		return
	}
	draw.Draw(dst, frame.Bounds().Add(image.Pt(st.toolbar.width, 0)), frame, image.Point{}, draw.Src)

	st.toolbar.draw(dst, th, st.session.Tool(), st.session.Style())
	if ctx.Err() != nil {
		return
	}
	drawStatus(dst, st)
}

func drawStatus(dst *image.RGBA, st paintState) {
	th := st.theme
	b := dst.Bounds()
	rect := image.Rect(0, b.Dy()-statusHeight, b.Dx(), b.Dy())
	draw.Draw(dst, rect, image.NewUniform(th.ToolbarBackground), image.Point{}, draw.Src)

	view := st.session.Viewport()
	text := fmt.Sprintf("%s  %.0f%%  ^S:save ^C:copy ^J:copy json ^V:paste +/-/0:zoom Del:delete ^Q:quit",
		st.session.Tool(), view.Scale*100)
	if _, editing := st.session.Editing(); editing {
		text = "editing text  Enter/Esc:done Backspace:erase"
	}
	if n := len(st.session.Pending()); n > 0 {
		text = fmt.Sprintf("polygon: %d points  click the first point or Enter to close, Esc to cancel", n)
	}
	if st.message != "" && time.Now().Before(st.messageUntil) {
		text = st.message
	}
	drawLabel(dst, th.Foreground, st.toolbar.width+4, rect.Min.Y+16, text)
}

func drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	compose(ctx, b.RGBA(), st)
	if ctx.Err() != nil {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

// canvasSize is the session canvas for a window of the given size.
func (tb *toolbar) canvasSize(width, height int) (int, int) {
	return max(width-tb.width, 1), max(height-statusHeight, 1)
}

// canvasEvent shifts a window mouse event into canvas coordinates.
func (tb *toolbar) canvasEvent(e mouse.Event) mouse.Event {
	e.X -= float32(tb.width)
	return e
}

type action int

const (
	actionNone action = iota
	actionSave
	actionCopy
	actionCopyJSON
	actionPaste
	actionQuit
)

var shortcuts = map[KeyShortcut]action{
	{Rune: 's', Modifiers: key.ModControl}: actionSave,
	{Rune: 'c', Modifiers: key.ModControl}: actionCopy,
	{Rune: 'j', Modifiers: key.ModControl}: actionCopyJSON,
	{Rune: 'v', Modifiers: key.ModControl}: actionPaste,
	{Rune: 'q', Modifiers: key.ModControl}: actionQuit,
}

func shortcutFor(e key.Event) action {
	ks := KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: e.Modifiers & (key.ModControl | key.ModAlt | key.ModMeta)}
	if ks.Modifiers == 0 {
		return actionNone
	}
	return shortcuts[ks]
}

// perform runs a window action and returns the status line message.
func (v *Viewer) perform(a action) string {
	s := v.session
	switch a {
	case actionSave:
		out, err := s.WriteOutputs(v.output)
		if err != nil {
			log.Printf("save: %v", err)
			return fmt.Sprintf("save failed: %v", err)
		}
		v.notifier.Export(out.PNG, s.Frame())
		return fmt.Sprintf("saved %s and %s", out.PNG, out.JSON)
	case actionCopy:
		var buf bytes.Buffer
		if err := s.Snapshot(&buf); err != nil {
			return fmt.Sprintf("copy failed: %v", err)
		}
		img, err := png.Decode(&buf)
		if err == nil {
			err = clipboard.CopySnapshot(img)
		}
		if err != nil {
			log.Printf("copy: %v", err)
			return fmt.Sprintf("copy failed: %v", err)
		}
		v.notifier.Copy("snapshot")
		return "snapshot copied to clipboard"
	case actionCopyJSON:
		if err := clipboard.CopyElements(s.Elements()); err != nil {
			log.Printf("copy: %v", err)
			return fmt.Sprintf("copy failed: %v", err)
		}
		v.notifier.Copy("element list")
		return "element list copied to clipboard"
	case actionPaste:
		view := s.Viewport()
		at := view.ToScene(view.Centre())
		if _, err := clipboard.PasteImage(s, at); err != nil {
			log.Printf("paste: %v", err)
			return fmt.Sprintf("paste failed: %v", err)
		}
		return "pasted image"
	}
	return ""
}

// Run executes the UI loop using shiny's driver.
func (v *Viewer) Run() { driver.Main(v.Main) }

// Main runs the window loop on s until the window closes.
func (v *Viewer) Main(s screen.Screen) {
	sess := v.session
	tb := newToolbar(func(t editor.Tool) {
		if err := sess.SetTool(t); err != nil {
			log.Printf("tool: %v", err)
		}
	})

	view := sess.Viewport()
	width := int(view.Width) + tb.width
	height := int(view.Height) + statusHeight
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: v.title})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()
	defer v.notifyClose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-v.updateCh:
				w.Send(paint.Event{})
			case <-done:
				return
			}
		}
	}()

	sess.OnError(func(err error) {
		v.notifier.LoadFailure(err)
		w.Send(statusEvent{text: err.Error()})
	})

	var message string
	var messageUntil time.Time
	setMessage := func(text string) {
		if text == "" {
			return
		}
		message = text
		messageUntil = time.Now().Add(messageDuration)
		log.Print(text)
	}

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	defer close(paintCh)
	go func() {
		for st := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			drawFrame(ctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if ctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			cancel()
		}
	}()

	stopPaint := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	for {
		switch e := w.NextEvent().(type) {
		case statusEvent:
			setMessage(e.text)
			w.Send(paint.Event{})
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				stopPaint()
				return
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			sess.Resize(tb.canvasSize(width, height))
			w.Send(paint.Event{})
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil && dropCount < frameDropThreshold {
				paintCancel()
				dropCount++
			}
			paintMu.Unlock()
			st := paintState{
				width:        width,
				height:       height,
				session:      sess,
				toolbar:      tb,
				theme:        v.theme,
				message:      message,
				messageUntil: messageUntil,
			}
			select {
			case paintCh <- st:
			default:
				select {
				case <-paintCh:
				default:
				}
				paintCh <- st
			}
		case mouse.Event:
			p := image.Pt(int(e.X), int(e.Y))
			if p.Y >= height-statusHeight {
				continue
			}
			if p.X < tb.width {
				t := tb.hit(p)
				if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress {
					if err := tb.apply(t, sess); err != nil {
						setMessage(err.Error())
					}
				}
				if t != tb.hover || e.Direction == mouse.DirPress {
					tb.hover = t
					w.Send(paint.Event{})
				}
				continue
			}
			if tb.hover.kind != targetNone {
				tb.hover = target{}
			}
			sess.HandleMouse(tb.canvasEvent(e))
			w.Send(paint.Event{})
		case key.Event:
			if e.Direction == key.DirRelease {
				continue
			}
			if a := shortcutFor(e); a != actionNone {
				if a == actionQuit {
					stopPaint()
					return
				}
				setMessage(v.perform(a))
				w.Send(paint.Event{})
				continue
			}
			if sess.HandleKey(e) {
				w.Send(paint.Event{})
			}
		case error:
			log.Printf("window: %v", e)
		}
	}
}

// parseOr parses a colour name, falling back to def for transparent or
// invalid values.
func parseOr(name string, def color.RGBA) (color.RGBA, bool) {
	if name == "" || name == scene.Transparent {
		return def, false
	}
	c, err := render.ParseColor(name)
	if err != nil {
		return def, false
	}
	return c, true
}
