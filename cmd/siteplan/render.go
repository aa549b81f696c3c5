package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/script"
)

// runScriptFile replays the command script at path ("-" for stdin) on s.
func runScriptFile(s *editor.Session, path string, out io.Writer) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if err := script.New(s, out).Run(in); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.Wait()
	return nil
}

type renderCmd struct {
	edit *editCmd
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	c := &editCmd{root: r.subcommand("render"), fs: fs}
	rc := &renderCmd{edit: c}
	fs.StringVar(&c.output, "o", "siteplan", "base path for the snapshot (.png) and element list (.json)")
	fs.StringVar(&c.background, "background", "", "background image reference (file, URL, data URL or library:name)")
	fs.StringVar(&c.elements, "elements", "", "JSON file of external overlay elements")
	fs.IntVar(&c.width, "width", 0, "canvas width (defaults to the config)")
	fs.IntVar(&c.height, "height", 0, "canvas height (defaults to the config)")
	fs.Usage = usageFunc(rc)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{of: rc}
	}
	if c.width < 0 || c.height < 0 {
		return nil, fmt.Errorf("canvas size must not be negative")
	}
	c.scriptPath = fs.Arg(0)
	return rc, nil
}

func (rc *renderCmd) Run() error {
	c := rc.edit
	s, err := c.newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		mu       sync.Mutex
		loadErrs []error
	)
	s.OnError(func(err error) {
		mu.Lock()
		loadErrs = append(loadErrs, err)
		mu.Unlock()
	})
	if err := runScriptFile(s, c.scriptPath, c.out()); err != nil {
		return err
	}
	mu.Lock()
	for _, err := range loadErrs {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		c.notifier.LoadFailure(err)
	}
	mu.Unlock()

	out, err := s.WriteOutputs(c.outputBase(c.output))
	if err != nil {
		return err
	}
	c.notifier.Export(out.PNG, s.Frame())
	fmt.Fprintf(c.out(), "wrote %s and %s\n", out.PNG, out.JSON)
	return nil
}

func (rc *renderCmd) Program() string { return rc.edit.program }

func (rc *renderCmd) FlagSet() *flag.FlagSet {
	return rc.edit.fs
}

func (rc *renderCmd) Template() string {
	return "render.txt"
}

type interactiveCmd struct {
	*root
	fs     *flag.FlagSet
	output string
	in     io.Reader
}

func parseInteractiveCmd(args []string, r *root) (*interactiveCmd, error) {
	fs := flag.NewFlagSet("interactive", flag.ContinueOnError)
	c := &interactiveCmd{root: r.subcommand("interactive"), fs: fs, in: os.Stdin}
	fs.StringVar(&c.output, "o", "", "base path written by the save command and on exit")
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *interactiveCmd) Run() error {
	s, err := editor.New(c.sessionOptions()...)
	if err != nil {
		return err
	}
	defer s.Close()
	s.OnError(func(err error) { fmt.Fprintf(c.out(), "load failed: %v\n", err) })
	s.OnNotice(func(msg string) { fmt.Fprintln(c.out(), msg) })
	runner := script.New(s, c.out())

	save := func(base string) {
		if base == "" {
			fmt.Fprintln(c.out(), "no output path; use save PATH or -o")
			return
		}
		s.Wait()
		out, err := s.WriteOutputs(c.outputBase(base))
		if err != nil {
			fmt.Fprintln(c.out(), err)
			return
		}
		c.notifier.Export(out.PNG, nil)
		fmt.Fprintf(c.out(), "wrote %s and %s\n", out.PNG, out.JSON)
	}

	fmt.Fprintln(c.out(), "Enter commands (type 'help' for a list, 'exit' to quit)")
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out(), "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if verb, rest, _ := strings.Cut(line, " "); verb == "save" {
			if rest = strings.TrimSpace(rest); rest == "" {
				rest = c.output
			}
			save(rest)
			continue
		}
		if err := runner.Exec(line); err != nil {
			fmt.Fprintln(c.out(), err)
		}
	}
	if c.output != "" {
		save(c.output)
	}
	return scanner.Err()
}

func (c *interactiveCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *interactiveCmd) Template() string {
	return "interactive.txt"
}
