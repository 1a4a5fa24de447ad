package mediumblog

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/eringen/mediumblog/sanity"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 80
	uploadsSubdir = "uploads"
)

// localAssets serves seeded images from the static uploads directory.
// Images are resized once when seeded, so width is not used.
type localAssets struct {
	prefix string
}

func (l localAssets) ImageURL(ref sanity.ImageRef, width int) string {
	return l.prefix + "/" + ref.Filename()
}

// processImage decodes an image from src, resizes it down to maxImageWidth
// and encodes it as JPEG. The returned ref is derived from the encoded bytes.
func processImage(src io.Reader) (sanity.ImageRef, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return sanity.ImageRef{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return sanity.ImageRef{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	sum := sha1.Sum(buf.Bytes())
	ref := sanity.ImageRef{ID: hex.EncodeToString(sum[:]), Width: w, Height: h, Format: "jpg"}
	return ref, buf.Bytes(), nil
}

// importImage processes the image file at path and writes it into the
// uploads directory under staticDir.
func importImage(path, staticDir string) (sanity.ImageRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return sanity.ImageRef{}, err
	}
	defer f.Close()

	ref, data, err := processImage(f)
	if err != nil {
		return sanity.ImageRef{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Join(staticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sanity.ImageRef{}, fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ref.Filename()), data, 0o644); err != nil {
		return sanity.ImageRef{}, fmt.Errorf("write image: %w", err)
	}
	return ref, nil
}
