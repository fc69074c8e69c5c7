package screenshot

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/kbinani/screenshot"

	imageInternal "webomatic/internal/image"
)

// ErrCapture wraps every failure of the screen capture backend
var ErrCapture = errors.New("screen capture failed")

// Frame is a captured screen image with its pixel size
type Frame struct {
	Image  image.Image
	Width  int
	Height int
}

// NewFrame wraps img, taking the size from its bounds
func NewFrame(img image.Image) Frame {
	b := img.Bounds()
	return Frame{Image: img, Width: b.Dx(), Height: b.Dy()}
}

// Capturer grabs a frame of the screen. An empty region means the whole display.
type Capturer interface {
	Capture(region image.Rectangle) (Frame, error)
}

// ScreenCapturer captures a physical display via kbinani/screenshot
type ScreenCapturer struct {
	display     int
	saveLocally bool
	dir         string
}

// NewScreenCapturer creates a capturer for the given display index. When
// saveLocally is set every captured frame is also written to dir as PNG.
func NewScreenCapturer(display int, saveLocally bool, dir string) *ScreenCapturer {
	return &ScreenCapturer{
		display:     display,
		saveLocally: saveLocally,
		dir:         dir,
	}
}

// DisplayBounds returns the bounds of the configured display
func (c *ScreenCapturer) DisplayBounds() (image.Rectangle, error) {
	if n := screenshot.NumActiveDisplays(); c.display < 0 || c.display >= n {
		return image.Rectangle{}, fmt.Errorf("%w: display %d not active (%d displays)", ErrCapture, c.display, n)
	}
	return screenshot.GetDisplayBounds(c.display), nil
}

// Capture captures region, or the whole display when region is empty
func (c *ScreenCapturer) Capture(region image.Rectangle) (Frame, error) {
	if region.Empty() {
		bounds, err := c.DisplayBounds()
		if err != nil {
			return Frame{}, err
		}
		region = bounds
	}

	img, err := screenshot.CaptureRect(region)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	frame := NewFrame(img)
	if c.saveLocally {
		if _, err := c.Save(frame, "frame"); err != nil {
			return frame, err
		}
	}
	return frame, nil
}

// Save writes frame to the capturer's directory with a timestamped name
func (c *ScreenCapturer) Save(frame Frame, prefix string) (string, error) {
	dir := c.dir
	if dir == "" {
		dir = "data"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, time.Now().Format("20060102_150405.000")))
	if err := imageInternal.SaveImage(frame.Image, path); err != nil {
		return "", fmt.Errorf("save frame: %w", err)
	}
	return path, nil
}

// FileCapturer serves a saved screenshot as the captured frame, for offline
// matching and tests
type FileCapturer struct {
	Path string
}

// Capture loads the file and crops it to region when region is not empty
func (c FileCapturer) Capture(region image.Rectangle) (Frame, error) {
	img, err := imageInternal.LoadImage(c.Path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	if !region.Empty() {
		img, _ = imageInternal.CropClamped(img, region)
	}
	return NewFrame(img), nil
}
