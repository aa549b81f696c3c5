package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/example/siteplan/internal/library"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxDownload caps remote image size.
const maxDownload = 64 << 20

// Loader resolves an image reference.
type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, ref string) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, ref string) (image.Image, error) { return f(ctx, ref) }

// RefLoader picks a source by reference prefix: "library:" names, http(s)
// URLs, base64 data URLs and otherwise file paths.
type RefLoader struct {
	Library *library.Library
	Client  *http.Client
}

// NewRefLoader returns a RefLoader. A nil client means http.DefaultClient.
func NewRefLoader(lib *library.Library, client *http.Client) *RefLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &RefLoader{Library: lib, Client: client}
}

func (l *RefLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(ref, library.Scheme):
		if l.Library == nil {
			return nil, fmt.Errorf("load %s: no asset library configured", ref)
		}
		return l.Library.Image(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetch(ctx, ref)
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return img, nil
}

func (l *RefLoader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}

func decodeDataURL(ref string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data url")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data url: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return img, nil
}
