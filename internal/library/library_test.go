package library

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLibraryIndexesImages(t *testing.T) {
	fsys := fstest.MapFS{
		"school.png":   {Data: pngBytes(t, 4, 3)},
		"hospital.png": {Data: pngBytes(t, 2, 2)},
		"README.txt":   {Data: []byte("not an image")},
		"sub/x.png":    {Data: pngBytes(t, 1, 1)},
	}
	lib := New(fsys)

	names := lib.Names()
	if len(names) != 2 || names[0] != "hospital" || names[1] != "school" {
		t.Fatalf("names = %v", names)
	}
	img, err := lib.Image("library:school")
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("bounds = %v", b)
	}
	raw, err := lib.Raw("hospital")
	if err != nil || len(raw) == 0 {
		t.Fatalf("raw: %v", err)
	}
	if _, err := lib.Image("missing"); err == nil {
		t.Fatal("expected error for missing asset")
	}
}

func TestLibraryDecodeFailure(t *testing.T) {
	lib := New(fstest.MapFS{"bad.png": {Data: []byte("garbage")}})
	if _, err := lib.Image("bad"); err == nil {
		t.Fatal("expected decode error")
	}
	if lib.Names() != nil {
		t.Fatal("names should be nil after a load error")
	}
}
