package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the file extension of theme files.
const Ext = ".theme"

// Loader resolves theme names against the built-in themes and a list of
// directories searched in order.
type Loader struct {
	Dirs []string
}

// NewLoader searches $SITEPLAN_THEME_DIR, then ~/.config/siteplan/themes,
// then /usr/share/siteplan/themes.
func NewLoader() *Loader {
	var dirs []string
	if d := os.Getenv("SITEPLAN_THEME_DIR"); d != "" {
		dirs = append(dirs, d)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "siteplan", "themes"))
	}
	dirs = append(dirs, "/usr/share/siteplan/themes")
	return &Loader{Dirs: dirs}
}

// Load returns the theme called name. An empty name is the default theme.
// A name that is an existing file is parsed directly; otherwise built-in
// themes win over files in Dirs.
func (l *Loader) Load(name string) (*Theme, error) {
	if name == "" {
		return Default(), nil
	}
	if isFile(name) {
		return parseFile(name)
	}
	base := strings.TrimSuffix(name, Ext)
	if t, ok := Builtin(base); ok {
		return t, nil
	}
	if path, ok := l.find(base); ok {
		return parseFile(path)
	}
	return nil, fmt.Errorf("theme %q not found (searched %s)", name, strings.Join(l.Dirs, ", "))
}

// Available lists the built-in themes and the theme files found in Dirs,
// without extension.
func (l *Loader) Available() []string {
	seen := map[string]bool{}
	for _, n := range BuiltinNames() {
		seen[n] = true
	}
	for _, dir := range l.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() && strings.HasSuffix(e.Name(), Ext) {
				seen[strings.TrimSuffix(e.Name(), Ext)] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (l *Loader) find(base string) (string, bool) {
	for _, dir := range l.Dirs {
		path := filepath.Join(dir, base+Ext)
		if isFile(path) {
			return path, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func parseFile(path string) (*Theme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == Default().Name {
		t.Name = strings.TrimSuffix(filepath.Base(path), Ext)
	}
	return t, nil
}
