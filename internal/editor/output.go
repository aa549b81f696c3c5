package editor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/siteplan/internal/export"
)

// Outputs names the files written by WriteOutputs.
type Outputs struct {
	PNG  string
	JSON string
}

// OutputPaths derives the snapshot and element list paths from base. A
// .png or .json extension on base is dropped first.
func OutputPaths(base string) Outputs {
	ext := strings.ToLower(filepath.Ext(base))
	if ext == ".png" || ext == ".json" {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return Outputs{PNG: base + ".png", JSON: base + ".json"}
}

// WriteOutputs writes the snapshot and element list next to base.
func (s *Session) WriteOutputs(base string) (Outputs, error) {
	out := OutputPaths(base)
	if dir := filepath.Dir(out.PNG); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return out, err
		}
	}
	if err := writeBuffered(out.PNG, func(w *bufio.Writer) error { return s.Snapshot(w) }); err != nil {
		return out, fmt.Errorf("snapshot: %w", err)
	}
	if err := writeBuffered(out.JSON, func(w *bufio.Writer) error { return export.WriteJSON(w, s.Elements()) }); err != nil {
		return out, fmt.Errorf("elements: %w", err)
	}
	return out, nil
}

func writeBuffered(path string, fn func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
