package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/siteplan/internal/theme"
)

// Parse reads configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var currentSection string
	var currentTheme *theme.Theme
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			currentTheme = nil

			if name, ok := strings.CutPrefix(currentSection, "theme."); ok {
				// Start with defaults so missing keys are fine
				currentTheme = theme.Default()
				currentTheme.Name = name
				cfg.Themes[name] = currentTheme
			}
			continue
		}

		// Key = Value or Key: Value
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
			value = value[1 : len(value)-1]
		}

		var err error
		switch {
		case currentTheme != nil:
			err = currentTheme.Set(key, value)
		case currentSection == "":
			err = setRootField(cfg, key, value)
		case currentSection == "canvas":
			err = setCanvasField(&cfg.Canvas, key, value)
		case currentSection == "editor":
			err = setEditorField(&cfg.Editor, key, value)
		case currentSection == "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		case currentSection == "server":
			err = setServerField(&cfg.Server, key, value)
		}
		if err != nil {
			section := currentSection
			if section == "" {
				section = "root"
			}
			return nil, fmt.Errorf("line %d [%s]: %w", lineNo, section, err)
		}
	}

	return cfg, scanner.Err()
}

func setRootField(cfg *Config, key, value string) error {
	switch key {
	case "theme":
		cfg.Theme = value
	case "output_dir":
		cfg.OutputDir = value
	case "library_dir":
		cfg.LibraryDir = value
	}
	return nil
}

func setCanvasField(c *Canvas, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid size for key %s: %q", key, value)
	}
	switch key {
	case "width":
		c.Width = n
	case "height":
		c.Height = n
	}
	return nil
}

func setEditorField(e *Editor, key, value string) error {
	num := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid number for key %s: %q", key, value)
		}
		return f, nil
	}
	var err error
	switch key {
	case "close_threshold":
		e.CloseThreshold, err = num()
	case "threshold_space":
		if value != "canvas" && value != "scene" {
			return fmt.Errorf("threshold_space must be canvas or scene, got %q", value)
		}
		e.ThresholdSpace = value
	case "stroke_color":
		e.StrokeColor = value
	case "stroke_width":
		e.StrokeWidth, err = num()
	case "fill_color":
		e.FillColor = value
	case "font_size":
		e.FontSize, err = num()
	}
	return err
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch key {
	case "export":
		n.Export = b
	case "copy":
		n.Copy = b
	case "load_failure":
		n.LoadFailure = b
	}
	return nil
}

func setServerField(s *Server, key, value string) error {
	switch key {
	case "addr":
		s.Addr = value
	case "database":
		s.Database = value
	}
	return nil
}
