package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/siteplan/internal/config"
)

type configCmd struct {
	*root
	fs *flag.FlagSet
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	c := &configCmd{root: r.subcommand("config"), fs: fs}
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "show", "print":
		fmt.Fprint(c.out(), c.config.String())
		return nil
	case "path":
		return c.runPath()
	case "save":
		return c.runSave()
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func (c *configCmd) runPath() error {
	path := config.NewLoader(version, configPathOverride).GetConfigPath()
	if path == "" {
		fmt.Fprintln(c.out(), "no config file found; using defaults")
		return nil
	}
	fmt.Fprintln(c.out(), path)
	return nil
}

// savePath is the file written by "config save": the loaded file, or the
// XDG location when none exists yet.
func savePath() (string, error) {
	if path := config.NewLoader(version, configPathOverride).GetConfigPath(); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home dir: %w", err)
	}
	return filepath.Join(home, ".config", "siteplan", "config.rc"), nil
}

func (c *configCmd) runSave() error {
	path, err := savePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(c.config.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *configCmd) Template() string {
	return "config.txt"
}
