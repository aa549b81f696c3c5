package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/example/siteplan/internal/theme"
)

// Canvas holds the initial drawing surface size.
type Canvas struct {
	Width  int
	Height int
}

// Editor holds the defaults applied to new editor sessions.
type Editor struct {
	CloseThreshold float64
	// ThresholdSpace is "canvas" (screen pixels) or "scene".
	ThresholdSpace string
	StrokeColor    string
	StrokeWidth    float64
	FillColor      string
	FontSize       float64
}

// Notify holds notification settings.
type Notify struct {
	Export      bool
	Copy        bool
	LoadFailure bool
}

// Server holds settings for the HTTP bridge.
type Server struct {
	Addr     string
	Database string
}

// Config holds the application configuration.
type Config struct {
	Theme      string
	OutputDir  string
	LibraryDir string
	Canvas     Canvas
	Editor     Editor
	Notify     Notify
	Server     Server
	Themes     map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme: "", // Empty falls back to env, then the default theme
		Canvas: Canvas{
			Width:  800,
			Height: 600,
		},
		Editor: Editor{
			CloseThreshold: 10,
			ThresholdSpace: "canvas",
			StrokeColor:    "red",
			StrokeWidth:    2,
			FillColor:      "transparent",
			FontSize:       20,
		},
		Notify: Notify{
			LoadFailure: true,
		},
		Server: Server{
			Addr:     "127.0.0.1:8765",
			Database: "siteplan.db",
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// ApplyEnv overrides settings from SITEPLAN_THEME, SITEPLAN_ADDR and
// SITEPLAN_DB when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SITEPLAN_THEME"); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("SITEPLAN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SITEPLAN_DB"); v != "" {
		c.Server.Database = v
	}
}

// ResolveTheme returns the theme named by c.Theme. Themes defined in the
// config win over those found by l.
func (c *Config) ResolveTheme(l *theme.Loader) (*theme.Theme, error) {
	if t, ok := c.Themes[c.Theme]; ok {
		return t, nil
	}
	if l == nil {
		l = theme.NewLoader()
	}
	return l.Load(c.Theme)
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.OutputDir != "" {
		fmt.Fprintf(&sb, "output_dir = %s\n", c.OutputDir)
	}
	if c.LibraryDir != "" {
		fmt.Fprintf(&sb, "library_dir = %s\n", c.LibraryDir)
	}
	sb.WriteString("\n")

	sb.WriteString("[canvas]\n")
	fmt.Fprintf(&sb, "width = %d\n", c.Canvas.Width)
	fmt.Fprintf(&sb, "height = %d\n", c.Canvas.Height)
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "close_threshold = %g\n", c.Editor.CloseThreshold)
	fmt.Fprintf(&sb, "threshold_space = %s\n", c.Editor.ThresholdSpace)
	fmt.Fprintf(&sb, "stroke_color = %s\n", c.Editor.StrokeColor)
	fmt.Fprintf(&sb, "stroke_width = %g\n", c.Editor.StrokeWidth)
	fmt.Fprintf(&sb, "fill_color = %s\n", c.Editor.FillColor)
	fmt.Fprintf(&sb, "font_size = %g\n", c.Editor.FontSize)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	fmt.Fprintf(&sb, "load_failure = %v\n", c.Notify.LoadFailure)
	sb.WriteString("\n")

	sb.WriteString("[server]\n")
	fmt.Fprintf(&sb, "addr = %s\n", c.Server.Addr)
	fmt.Fprintf(&sb, "database = %s\n", c.Server.Database)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		for _, e := range t.Entries() {
			fmt.Fprintf(&sb, "%s = %s\n", e.Key, e.Value)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
