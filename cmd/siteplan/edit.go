package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/viewer"
)

type editCmd struct {
	*root
	fs         *flag.FlagSet
	output     string
	background string
	elements   string
	scriptPath string
	width      int
	height     int
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	c := &editCmd{root: r.subcommand("edit"), fs: fs}
	fs.StringVar(&c.output, "o", "siteplan", "base path for the snapshot and element list written by ctrl+s")
	fs.StringVar(&c.background, "background", "", "background image reference (file, URL, data URL or library:name)")
	fs.StringVar(&c.elements, "elements", "", "JSON file of external overlay elements")
	fs.StringVar(&c.scriptPath, "script", "", "command script replayed before the window opens")
	fs.IntVar(&c.width, "width", 0, "canvas width (defaults to the config)")
	fs.IntVar(&c.height, "height", 0, "canvas height (defaults to the config)")
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, &UsageError{of: c}
	}
	if fs.NArg() == 1 && c.background == "" {
		c.background = fs.Arg(0)
	}
	if c.width < 0 || c.height < 0 {
		return nil, errors.New("canvas size must not be negative")
	}
	return c, nil
}

// newSession builds a session from the config and the size flags, then
// starts the background and overlay loads.
func (c *editCmd) newSession() (*editor.Session, error) {
	opts := c.sessionOptions()
	if c.width > 0 || c.height > 0 {
		w, h := c.width, c.height
		if w == 0 {
			w = c.config.Canvas.Width
		}
		if h == 0 {
			h = c.config.Canvas.Height
		}
		opts = append(opts, editor.WithCanvasSize(w, h))
	}
	s, err := editor.New(opts...)
	if err != nil {
		return nil, err
	}
	if c.background != "" {
		s.LoadBackground(c.background)
	}
	if c.elements != "" {
		f, err := os.Open(c.elements)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		els, err := export.ReadExternal(f)
		f.Close()
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%s: %w", c.elements, err)
		}
		s.SetExternalElements(els)
	}
	return s, nil
}

func (c *editCmd) Run() error {
	s, err := c.newSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if c.scriptPath != "" {
		if err := runScriptFile(s, c.scriptPath, c.out()); err != nil {
			return err
		}
	}
	s.OnError(func(err error) { log.Printf("load: %v", err) })

	v := viewer.New(s,
		viewer.WithTheme(c.activeTheme),
		viewer.WithNotifier(c.notifier),
		viewer.WithOutput(c.outputBase(c.output)),
		viewer.WithTitle(windowTitle(c.background)),
	)
	v.Run()
	return nil
}

func windowTitle(background string) string {
	if background == "" {
		return "Siteplan"
	}
	return "Siteplan - " + background
}

func (c *editCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *editCmd) Template() string {
	return "edit.txt"
}
