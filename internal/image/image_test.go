package image

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func TestCropClamped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))

	tests := []struct {
		name        string
		r           image.Rectangle
		want        image.Rectangle
		wantClamped bool
	}{
		{"inside", image.Rect(10, 10, 40, 30), image.Rect(10, 10, 40, 30), false},
		{"right edge", image.Rect(90, 10, 130, 30), image.Rect(90, 10, 100, 30), true},
		{"negative", image.Rect(-5, -5, 20, 20), image.Rect(0, 0, 20, 20), true},
		{"outside", image.Rect(200, 200, 220, 220), image.Rectangle{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := CropClamped(img, tt.r)
			if got.Bounds() != tt.want {
				t.Errorf("bounds = %v, want %v", got.Bounds(), tt.want)
			}
			if clamped != tt.wantClamped {
				t.Errorf("clamped = %v, want %v", clamped, tt.wantClamped)
			}
		})
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{10, 20, 30, 255})

	path := filepath.Join(t.TempDir(), "nested", "ref.png")
	if err := SaveImage(img, path); err != nil {
		t.Fatal(err)
	}

	got, err := Loader{Dir: filepath.Dir(path)}.Load("ref.png")
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	r, g, b, _ := got.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestLoadImageMissing(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}
