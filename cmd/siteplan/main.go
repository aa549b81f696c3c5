package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/siteplan/internal/config"
	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/library"
	"github.com/example/siteplan/internal/notify"
	"github.com/example/siteplan/internal/scene"
	"github.com/example/siteplan/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs          *flag.FlagSet
	program     string
	stdout      io.Writer
	notifier    *notify.Notifier
	config      *config.Config
	exportAlert bool
	copyAlert   bool
	loadAlert   bool
	themeName   string
	activeTheme *theme.Theme
}

func (r *root) Program() string {
	return r.program
}

func (r *root) subcommand(name string) *root {
	program := strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &root{
		program:     program,
		stdout:      r.stdout,
		notifier:    r.notifier,
		config:      r.config,
		exportAlert: r.exportAlert,
		copyAlert:   r.copyAlert,
		loadAlert:   r.loadAlert,
		themeName:   r.themeName,
		activeTheme: r.activeTheme,
	}
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}
	cfg.ApplyEnv()

	r := &root{
		fs:       flag.NewFlagSet("siteplan", flag.ContinueOnError),
		program:  "siteplan",
		stdout:   os.Stdout,
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
	}
	r.fs.BoolVar(&r.exportAlert, "notify-export", cfg.Notify.Export, "show a desktop notification after saving a snapshot")
	r.fs.BoolVar(&r.copyAlert, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.loadAlert, "notify-load", cfg.Notify.LoadFailure, "show a desktop notification when an image fails to load")
	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (see the themes command)")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.notifier != nil {
		r.notifier.Enable(notify.EventExport, r.exportAlert)
		r.notifier.Enable(notify.EventCopy, r.copyAlert)
		r.notifier.Enable(notify.EventLoadFailure, r.loadAlert)
	}
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "render":
		cmd, err = parseRenderCmd(subArgs, r)
	case "interactive":
		cmd, err = parseInteractiveCmd(subArgs, r)
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "colors":
		cmd, err = parseColorsCmd(subArgs, r)
	case "widths":
		cmd, err = parseWidthsCmd(subArgs, r)
	case "themes":
		cmd, err = parseThemesCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func (r *root) resolveTheme() *theme.Theme {
	if r.config == nil {
		return theme.Default()
	}
	if r.themeName != "" {
		r.config.Theme = r.themeName
	}
	t, err := r.config.ResolveTheme(theme.NewLoader())
	if err != nil {
		if name := r.config.Theme; name != "" && name != "default" {
			fmt.Fprintf(os.Stderr, "warning: failed to load theme '%s': %v. using default.\n", name, err)
		}
		return theme.Default()
	}
	return t
}

// sessionOptions turns the loaded configuration into editor options.
func (r *root) sessionOptions() []editor.Option {
	cfg := r.config
	if cfg == nil {
		cfg = config.New()
	}
	space := editor.SpaceCanvas
	if cfg.Editor.ThresholdSpace == "scene" {
		space = editor.SpaceScene
	}
	var lib *library.Library
	if cfg.LibraryDir != "" {
		lib = library.Dir(cfg.LibraryDir)
	}
	opts := []editor.Option{
		editor.WithCanvasSize(cfg.Canvas.Width, cfg.Canvas.Height),
		editor.WithStyle(scene.Style{
			StrokeColor: cfg.Editor.StrokeColor,
			StrokeWidth: cfg.Editor.StrokeWidth,
			FillColor:   cfg.Editor.FillColor,
		}),
		editor.WithFontSize(cfg.Editor.FontSize),
		editor.WithCloseThreshold(cfg.Editor.CloseThreshold, space),
		editor.WithLoader(editor.NewRefLoader(lib, nil)),
	}
	if r.activeTheme != nil {
		opts = append(opts, editor.WithTheme(r.activeTheme))
	}
	return opts
}

// outputBase places name in the configured output directory unless it
// already carries a directory.
func (r *root) outputBase(name string) string {
	if r.config == nil || r.config.OutputDir == "" || filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(r.config.OutputDir, name)
}

func (r *root) out() io.Writer {
	if r == nil || r.stdout == nil {
		return os.Stdout
	}
	return r.stdout
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		switch {
		case errors.As(err, &uerr):
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		case errors.Is(err, flag.ErrHelp):
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
