package sanity

import (
	"errors"
	"testing"
)

func TestParseImageRef(t *testing.T) {
	ref, err := ParseImageRef("image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg")
	if err != nil {
		t.Fatalf("ParseImageRef: %v", err)
	}
	want := ImageRef{ID: "Tb9Ew8CXIwaY6R1kjMvI0uRR", Width: 2000, Height: 3000, Format: "jpg"}
	if ref != want {
		t.Fatalf("got %+v, want %+v", ref, want)
	}
	if got := ref.String(); got != "image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg" {
		t.Errorf("String() = %q", got)
	}
	if got := ref.Filename(); got != "Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000.jpg" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestParseImageRefInvalid(t *testing.T) {
	for _, ref := range []string{
		"",
		"file-abc-10x10-jpg",
		"image-abc-10x10",
		"image--10x10-jpg",
		"image-abc-10by10-jpg",
		"image-abc-0x10-jpg",
		"image-abc-10x-5-png",
		"image-abc-10x10-",
	} {
		if _, err := ParseImageRef(ref); !errors.Is(err, ErrInvalidImageRef) {
			t.Errorf("ParseImageRef(%q) err = %v, want ErrInvalidImageRef", ref, err)
		}
	}
}

func TestImageURL(t *testing.T) {
	b := NewImageBuilder(Config{ProjectID: "abc123"})
	ref := ImageRef{ID: "xyz", Width: 800, Height: 600, Format: "png"}

	if got, want := b.ImageURL(ref, 0), "https://cdn.sanity.io/images/abc123/production/xyz-800x600.png"; got != want {
		t.Errorf("ImageURL(0) = %q, want %q", got, want)
	}
	if got, want := b.ImageURL(ref, 720), "https://cdn.sanity.io/images/abc123/production/xyz-800x600.png?auto=format&w=720"; got != want {
		t.Errorf("ImageURL(720) = %q, want %q", got, want)
	}
}
