// Package clipboard moves snapshots, element lists and pasted images
// between an editor session and the system clipboard.
package clipboard

import (
	"bytes"
	"image"

	"github.com/example/siteplan/internal/export"
	"github.com/example/siteplan/internal/geom"
)

// PasteRef is the reference recorded on images pasted from the clipboard.
const PasteRef = "clipboard:image"

// ImageInserter receives pasted images. *editor.Session satisfies it.
type ImageInserter interface {
	InsertImage(img image.Image, ref string, at geom.Point) string
}

// CopySnapshot places a rendered snapshot on the clipboard as PNG.
func CopySnapshot(img image.Image) error {
	return WriteImage(img)
}

// CopyElements places the element list on the clipboard as JSON.
func CopyElements(elements []export.DrawingElement) error {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, elements); err != nil {
		return err
	}
	return WriteJSON(buf.Bytes())
}

// PasteImage inserts the clipboard image into dst at the given scene point
// and returns the new object id.
func PasteImage(dst ImageInserter, at geom.Point) (string, error) {
	img, err := ReadImage()
	if err != nil {
		return "", err
	}
	return dst.InsertImage(img, PasteRef, at), nil
}
