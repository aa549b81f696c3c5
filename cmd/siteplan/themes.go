package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/example/siteplan/internal/theme"
)

type themesCmd struct {
	*root
	fs         *flag.FlagSet
	printTheme bool
}

func parseThemesCmd(args []string, r *root) (*themesCmd, error) {
	fs := flag.NewFlagSet("themes", flag.ContinueOnError)
	cmd := &themesCmd{root: r.subcommand("themes"), fs: fs}
	fs.BoolVar(&cmd.printTheme, "print", false, "write the active theme as a theme file instead of listing")
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

// names merges the loader's themes with the [theme.<name>] sections of the
// config file.
func (c *themesCmd) names(l *theme.Loader) []string {
	seen := map[string]bool{}
	for _, n := range l.Available() {
		seen[n] = true
	}
	if c.config != nil {
		for n := range c.config.Themes {
			seen[n] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *themesCmd) Run() error {
	if c.printTheme {
		t := c.activeTheme
		if t == nil {
			t = theme.Default()
		}
		return t.Write(c.out())
	}
	active := "default"
	if c.config != nil && c.config.Theme != "" {
		active = c.config.Theme
	}
	fmt.Fprintln(c.out(), "available themes (* marks the active theme):")
	for _, n := range c.names(theme.NewLoader()) {
		marker := " "
		if strings.EqualFold(n, strings.TrimSuffix(active, theme.Ext)) {
			marker = "*"
		}
		fmt.Fprintf(c.out(), "%s %s\n", marker, n)
	}
	return nil
}

func (c *themesCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *themesCmd) Template() string {
	return "themes.txt"
}
