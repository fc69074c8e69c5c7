package screenshot

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	imageInternal "webomatic/internal/image"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(5, 5, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := imageInternal.SaveImage(img, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileCapturerWholeImage(t *testing.T) {
	frame, err := FileCapturer{Path: writePNG(t, 64, 48)}.Capture(image.Rectangle{})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("frame %dx%d", frame.Width, frame.Height)
	}
}

func TestFileCapturerRegionIsClamped(t *testing.T) {
	frame, err := FileCapturer{Path: writePNG(t, 64, 48)}.Capture(image.Rect(40, 30, 100, 100))
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 24 || frame.Height != 18 {
		t.Errorf("frame %dx%d, want 24x18", frame.Width, frame.Height)
	}
	if frame.Image.Bounds().Min != image.Pt(40, 30) {
		t.Errorf("crop lost its absolute origin: %v", frame.Image.Bounds())
	}
}

func TestFileCapturerMissingFile(t *testing.T) {
	_, err := FileCapturer{Path: filepath.Join(t.TempDir(), "none.png")}.Capture(image.Rectangle{})
	if !errors.Is(err, ErrCapture) {
		t.Errorf("expected ErrCapture, got %v", err)
	}
}

func TestSaveFrame(t *testing.T) {
	dir := t.TempDir()
	c := NewScreenCapturer(0, true, dir)
	path, err := c.Save(NewFrame(image.NewRGBA(image.Rect(0, 0, 4, 4))), "frame")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "frame_") || filepath.Dir(path) != dir {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}
