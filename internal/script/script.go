// Package script replays line-oriented editing commands against an editor
// session. It backs the render command and makes editing scenarios easy
// to write down.
//
//	background site.png
//	tool rectangle
//	drag 50 50 150 130
//	key Delete
//
// Blank lines and lines starting with # are ignored.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
	"github.com/example/siteplan/internal/scene"
)

// ErrUnknownCommand is returned for a verb the runner does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Runner executes commands against one session.
type Runner struct {
	Session *editor.Session
	// Out receives the output of export and help.
	Out io.Writer
}

// New returns a runner writing to out.
func New(s *editor.Session, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{Session: s, Out: out}
}

// Run executes every line of r, stopping at the first error.
func (r *Runner) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	n := 0
	for scanner.Scan() {
		n++
		if err := r.Exec(scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return scanner.Err()
}

type command struct {
	args  string
	usage string
	run   func(r *Runner, args []string, rest string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"tool":       {"NAME", "switch tool", cmdTool},
		"down":       {"X Y", "press at a canvas point", pointCmd((*editor.Session).PointerDown)},
		"move":       {"X Y", "move the pointer", pointCmd((*editor.Session).PointerMove)},
		"up":         {"X Y", "release at a canvas point", pointCmd((*editor.Session).PointerUp)},
		"click":      {"X Y", "press and release", cmdClick},
		"drag":       {"X1 Y1 X2 Y2", "press, move and release", cmdDrag},
		"key":        {"NAME", "press a key (Delete, Backspace, Escape, Enter or a character)", cmdKey},
		"type":       {"TEXT", "type into the text being edited", cmdType},
		"zoom":       {"in|out|reset", "button zoom", cmdZoom},
		"wheel":      {"DELTA X Y", "wheel zoom at a canvas point", cmdWheel},
		"pan":        {"DX DY", "pan the view", cmdPan},
		"resize":     {"W H", "resize the canvas", cmdResize},
		"style":      {"STROKE WIDTH [FILL]", "set the active style", cmdStyle},
		"background": {"REF", "load the fixed background", cmdBackground},
		"overlay":    {"REF", "replace the overlay with one stretched image", cmdOverlay},
		"elements":   {"FILE", "replace the overlay with external elements from JSON", cmdElements},
		"asset":      {"REF X Y", "insert an image at a scene point", cmdAsset},
		"close":      {"", "commit the pending polygon", cmdClose},
		"cancel":     {"", "discard the pending polygon", cmdCancel},
		"select":     {"ID...", "replace the selection", cmdSelect},
		"delete":     {"", "delete the selection", cmdDelete},
		"clear":      {"", "remove every drawable", cmdClear},
		"wait":       {"", "wait for pending image loads", cmdWait},
		"export":     {"", "print the element list as JSON", cmdExport},
		"help":       {"", "list commands", cmdHelp},
	}
}

// Exec runs a single command line.
func (r *Runner) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	verb = strings.ToLower(verb)
	rest = strings.TrimSpace(rest)
	cmd, ok := commands[verb]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, verb)
	}
	if err := cmd.run(r, strings.Fields(rest), rest); err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}
	return nil
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func point(args []string) (geom.Point, error) {
	v, err := floats(args, 2)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Pt(v[0], v[1]), nil
}

func one(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("want 1 argument, got %d", len(args))
	}
	return args[0], nil
}

func pointCmd(fn func(*editor.Session, geom.Point)) func(*Runner, []string, string) error {
	return func(r *Runner, args []string, _ string) error {
		p, err := point(args)
		if err != nil {
			return err
		}
		fn(r.Session, p)
		return nil
	}
}

func cmdTool(r *Runner, args []string, _ string) error {
	name, err := one(args)
	if err != nil {
		return err
	}
	t, err := editor.ParseTool(name)
	if err != nil {
		return err
	}
	return r.Session.SetTool(t)
}

func cmdClick(r *Runner, args []string, _ string) error {
	p, err := point(args)
	if err != nil {
		return err
	}
	r.Session.PointerDown(p)
	r.Session.PointerUp(p)
	return nil
}

func cmdDrag(r *Runner, args []string, _ string) error {
	v, err := floats(args, 4)
	if err != nil {
		return err
	}
	from, to := geom.Pt(v[0], v[1]), geom.Pt(v[2], v[3])
	r.Session.PointerDown(from)
	r.Session.PointerMove(to)
	r.Session.PointerUp(to)
	return nil
}

func cmdKey(r *Runner, args []string, _ string) error {
	name, err := one(args)
	if err != nil {
		return err
	}
	e, ok := editor.KeyByName(name)
	if !ok {
		return fmt.Errorf("unknown key %q", name)
	}
	r.Session.HandleKey(e)
	return nil
}

func cmdType(r *Runner, _ []string, rest string) error {
	if !r.Session.TypeText(rest) {
		return fmt.Errorf("no text is being edited")
	}
	return nil
}

func cmdZoom(r *Runner, args []string, _ string) error {
	dir, err := one(args)
	if err != nil {
		return err
	}
	switch dir {
	case "in":
		r.Session.ZoomIn()
	case "out":
		r.Session.ZoomOut()
	case "reset":
		r.Session.ResetView()
	default:
		return fmt.Errorf("want in, out or reset, got %q", dir)
	}
	return nil
}

func cmdWheel(r *Runner, args []string, _ string) error {
	v, err := floats(args, 3)
	if err != nil {
		return err
	}
	r.Session.Wheel(v[0], geom.Pt(v[1], v[2]))
	return nil
}

func cmdPan(r *Runner, args []string, _ string) error {
	p, err := point(args)
	if err != nil {
		return err
	}
	r.Session.Pan(p)
	return nil
}

func cmdResize(r *Runner, args []string, _ string) error {
	v, err := floats(args, 2)
	if err != nil {
		return err
	}
	r.Session.Resize(int(v[0]), int(v[1]))
	return nil
}

func cmdStyle(r *Runner, args []string, _ string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("want STROKE WIDTH [FILL]")
	}
	w, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad width %q", args[1])
	}
	st := scene.Style{StrokeColor: args[0], StrokeWidth: w, FillColor: scene.Transparent}
	if len(args) == 3 {
		st.FillColor = args[2]
	}
	return r.Session.SetActiveStyle(st)
}

func cmdBackground(r *Runner, args []string, _ string) error {
	ref, err := one(args)
	if err != nil {
		return err
	}
	r.Session.LoadBackground(ref)
	return nil
}

func cmdOverlay(r *Runner, args []string, _ string) error {
	ref, err := one(args)
	if err != nil {
		return err
	}
	r.Session.SetExternalElements([]export.ExternalElement{{ID: ref, Type: "image", Image: ref}})
	return nil
}

func cmdElements(r *Runner, args []string, _ string) error {
	path, err := one(args)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	els, err := export.ReadExternal(f)
	if err != nil {
		return err
	}
	r.Session.SetExternalElements(els)
	return nil
}

func cmdAsset(r *Runner, args []string, _ string) error {
	if len(args) != 3 {
		return fmt.Errorf("want REF X Y")
	}
	p, err := point(args[1:])
	if err != nil {
		return err
	}
	r.Session.InsertAsset(args[0], p)
	return nil
}

func cmdClose(r *Runner, _ []string, _ string) error {
	if !r.Session.ClosePolygon() {
		return fmt.Errorf("polygon needs at least 3 points")
	}
	return nil
}

func cmdCancel(r *Runner, _ []string, _ string) error {
	r.Session.CancelPolygon()
	return nil
}

func cmdSelect(r *Runner, args []string, _ string) error {
	r.Session.Select(args...)
	return nil
}

func cmdDelete(r *Runner, _ []string, _ string) error {
	r.Session.DeleteSelection()
	return nil
}

func cmdClear(r *Runner, _ []string, _ string) error {
	r.Session.Clear()
	return nil
}

func cmdWait(r *Runner, _ []string, _ string) error {
	r.Session.Wait()
	return nil
}

func cmdExport(r *Runner, _ []string, _ string) error {
	return export.WriteJSON(r.Out, r.Session.Elements())
}

func cmdHelp(r *Runner, _ []string, _ string) error {
	for _, name := range Commands() {
		c := commands[name]
		fmt.Fprintf(r.Out, "  %-10s %-20s %s\n", name, c.args, c.usage)
	}
	return nil
}
