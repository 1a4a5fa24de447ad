package sanity

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidImageRef is returned for asset references that do not follow
// the image-<id>-<width>x<height>-<format> pattern.
var ErrInvalidImageRef = errors.New("sanity: invalid image asset reference")

// ImageRef is a parsed image asset reference.
type ImageRef struct {
	ID     string
	Width  int
	Height int
	Format string
}

// ParseImageRef parses refs like "image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg".
func ParseImageRef(ref string) (ImageRef, error) {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" || parts[1] == "" || parts[3] == "" {
		return ImageRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	w, h, ok := strings.Cut(parts[2], "x")
	if !ok {
		return ImageRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return ImageRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return ImageRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	return ImageRef{ID: parts[1], Width: width, Height: height, Format: parts[3]}, nil
}

// String renders the ref back into its asset id form.
func (r ImageRef) String() string {
	return fmt.Sprintf("image-%s-%dx%d-%s", r.ID, r.Width, r.Height, r.Format)
}

// Filename is the name the asset pipeline serves the original file under.
func (r ImageRef) Filename() string {
	return fmt.Sprintf("%s-%dx%d.%s", r.ID, r.Width, r.Height, r.Format)
}

// ImageBuilder maps image refs to CDN urls for one project and dataset.
type ImageBuilder struct {
	projectID string
	dataset   string
	base      string
}

// NewImageBuilder uses the same project and dataset as the query client.
func NewImageBuilder(cfg Config) *ImageBuilder {
	cfg.setDefaults()
	return &ImageBuilder{
		projectID: cfg.ProjectID,
		dataset:   cfg.Dataset,
		base:      "https://cdn.sanity.io/images",
	}
}

// ImageURL returns the CDN url of ref. A positive width asks the pipeline
// for a resized, format-negotiated rendition.
func (b *ImageBuilder) ImageURL(ref ImageRef, width int) string {
	u := b.base + "/" + url.PathEscape(b.projectID) + "/" + url.PathEscape(b.dataset) + "/" + ref.Filename()
	if width > 0 {
		q := url.Values{}
		q.Set("w", strconv.Itoa(width))
		q.Set("auto", "format")
		u += "?" + q.Encode()
	}
	return u
}
