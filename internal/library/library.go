// Package library serves named marker images (school, hospital, gate and
// so on) that can be dropped onto a site plan as image objects.
package library

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Scheme prefixes image references that resolve against a Library.
const Scheme = "library:"

var extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Library indexes the images found at the top level of a filesystem.
type Library struct {
	fsys fs.FS

	loadOnce sync.Once
	loadErr  error
	images   map[string]image.Image
	data     map[string][]byte
}

// New creates a library over fsys. Nothing is read until first use.
func New(fsys fs.FS) *Library {
	return &Library{fsys: fsys}
}

// Dir is New(os.DirFS(dir)).
func Dir(dir string) *Library {
	return New(os.DirFS(dir))
}

func (l *Library) load() {
	l.images = map[string]image.Image{}
	l.data = map[string][]byte{}
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		l.loadErr = err
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := entry.Name()
		ext := strings.ToLower(path.Ext(file))
		if !supported(ext) {
			continue
		}
		data, err := fs.ReadFile(l.fsys, file)
		if err != nil {
			l.loadErr = err
			return
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			l.loadErr = fmt.Errorf("decode %s: %w", file, err)
			return
		}
		name := strings.TrimSuffix(file, path.Ext(file))
		l.images[name] = img
		l.data[name] = data
	}
}

func supported(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (l *Library) ensure() error {
	l.loadOnce.Do(l.load)
	return l.loadErr
}

// Image returns the decoded image for name. A "library:" prefix is accepted.
func (l *Library) Image(name string) (image.Image, error) {
	if err := l.ensure(); err != nil {
		return nil, err
	}
	img, ok := l.images[strings.TrimPrefix(name, Scheme)]
	if !ok {
		return nil, fmt.Errorf("asset %q not in library", name)
	}
	return img, nil
}

// Raw returns a copy of the encoded bytes for name.
func (l *Library) Raw(name string) ([]byte, error) {
	if err := l.ensure(); err != nil {
		return nil, err
	}
	data, ok := l.data[strings.TrimPrefix(name, Scheme)]
	if !ok {
		return nil, fmt.Errorf("asset %q not in library", name)
	}
	return append([]byte(nil), data...), nil
}

// Names lists the available assets sorted by name.
func (l *Library) Names() []string {
	if err := l.ensure(); err != nil {
		return nil
	}
	names := make([]string, 0, len(l.images))
	for name := range l.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
