package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnreadable is returned when an image file is missing or cannot be decoded
var ErrUnreadable = errors.New("image unreadable")

// LoadImage reads and decodes a PNG, JPEG, GIF, BMP or WebP file
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnreadable, path, err)
	}
	return img, nil
}

// Loader loads images from disk, resolving relative paths against Dir
type Loader struct {
	Dir string
}

// Load implements the reference image loader used by the locator
func (l Loader) Load(path string) (image.Image, error) {
	if l.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.Dir, path)
	}
	return LoadImage(path)
}

// CropClamped returns the part of img inside r, clamped to img's bounds.
// The result keeps absolute coordinates (its Bounds().Min is the clamped
// top-left corner). clamped reports whether r reached outside img.
func CropClamped(img image.Image, r image.Rectangle) (cropped image.Image, clamped bool) {
	bounds := img.Bounds()
	inter := r.Intersect(bounds)
	clamped = inter != r

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(inter), clamped
	}

	dst := image.NewRGBA(inter)
	draw.Draw(dst, inter, img, inter.Min, draw.Src)
	return dst, clamped
}

// ToRGBA copies img into a new RGBA image with the same bounds
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// SaveImage writes img as PNG, creating parent directories as needed
var SaveImage = func(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}

	outFile, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer outFile.Close()

	if err := png.Encode(outFile, img); err != nil {
		return fmt.Errorf("failed to save image: %v", err)
	}
	return nil
}

// ImageToBytes encodes img as PNG
func ImageToBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	return buf.Bytes(), nil
}
