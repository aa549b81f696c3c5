package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/example/siteplan/internal/render"
	"github.com/example/siteplan/internal/viewer"
)

type colorsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseColorsCmd(args []string, r *root) (*colorsCmd, error) {
	fs := flag.NewFlagSet("colors", flag.ContinueOnError)
	cmd := &colorsCmd{root: r.subcommand("colors"), fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

// defaultStroke is the configured stroke colour, normalised for comparison
// against the palette.
func (c *colorsCmd) defaultStroke() string {
	if c.config == nil {
		return ""
	}
	col, err := render.ParseColor(c.config.Editor.StrokeColor)
	if err != nil {
		return ""
	}
	return render.Hex(col)
}

func (c *colorsCmd) Run() error {
	palette := viewer.Palette()
	if len(palette) == 0 {
		fmt.Fprintln(c.out(), "no colors available")
		return nil
	}
	fmt.Fprintln(c.out(), "available palette colors (* marks the default stroke color):")
	def := c.defaultStroke()
	for idx, entry := range palette {
		hex := strings.ToUpper(render.Hex(entry.Color))
		marker := " "
		if strings.EqualFold(hex, def) {
			marker = "*"
		}
		block := fmt.Sprintf("\x1b[48;2;%d;%d;%dm  \x1b[0m", entry.Color.R, entry.Color.G, entry.Color.B)
		fmt.Fprintf(c.out(), "%s %2d: %-12s %s %s\n", marker, idx, entry.Name, hex, block)
	}
	fmt.Fprintln(c.out(), "fill also accepts \"transparent\"; any #rgb or #rrggbb value is valid too")
	return nil
}

func (c *colorsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *colorsCmd) Template() string {
	return "colors.txt"
}

type widthsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseWidthsCmd(args []string, r *root) (*widthsCmd, error) {
	fs := flag.NewFlagSet("widths", flag.ContinueOnError)
	cmd := &widthsCmd{root: r.subcommand("widths"), fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *widthsCmd) Run() error {
	widths := viewer.Widths()
	if len(widths) == 0 {
		fmt.Fprintln(c.out(), "no widths available")
		return nil
	}
	fmt.Fprintln(c.out(), "available stroke widths (* marks the default width):")
	var def float64
	if c.config != nil {
		def = c.config.Editor.StrokeWidth
	}
	for _, width := range widths {
		marker := " "
		if width == def {
			marker = "*"
		}
		fmt.Fprintf(c.out(), "%s %3gpx\n", marker, width)
	}
	return nil
}

func (c *widthsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *widthsCmd) Template() string {
	return "widths.txt"
}
