//go:build linux || freebsd || openbsd || netbsd || dragonfly

package clipboard

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
)

func resetWithoutDisplay(t *testing.T) {
	t.Helper()
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	initOnce = sync.Once{}
	initErr = nil
	t.Cleanup(func() {
		initOnce = sync.Once{}
		initErr = nil
	})
}

type inserter struct{ n int }

func (i *inserter) InsertImage(image.Image, string, geom.Point) string {
	i.n++
	return "pasted"
}

func TestEnsureInitWithoutDisplay(t *testing.T) {
	resetWithoutDisplay(t)

	if err := WriteText("hello world"); !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay, got %v", err)
	}
	if err := CopyElements([]export.DrawingElement{{ID: "a", Type: "line"}}); !errors.Is(err, errNoDisplay) {
		t.Fatalf("CopyElements: expected errNoDisplay, got %v", err)
	}
	if err := CopySnapshot(image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, errNoDisplay) {
		t.Fatalf("CopySnapshot: expected errNoDisplay, got %v", err)
	}
}

func TestPasteWithoutDisplayInsertsNothing(t *testing.T) {
	resetWithoutDisplay(t)

	var dst inserter
	if _, err := PasteImage(&dst, geom.Pt(10, 10)); !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay, got %v", err)
	}
	if dst.n != 0 {
		t.Errorf("inserted %d images", dst.n)
	}
}
