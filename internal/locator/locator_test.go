package locator

import (
	"errors"
	"image"
	"image/draw"
	"math/rand/v2"
	"testing"

	"webomatic/internal/grid"
	imageInternal "webomatic/internal/image"
	"webomatic/internal/logger"
	"webomatic/internal/screenshot"
)

type mapLoader map[string]image.Image

func (m mapLoader) Load(path string) (image.Image, error) {
	img, ok := m[path]
	if !ok {
		return nil, imageInternal.ErrUnreadable
	}
	return img, nil
}

func texture(w, h int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	return img
}

func cut(src *image.RGBA, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}

func mustZone(t *testing.T, a, b string, cfg grid.Config) grid.Zone {
	t.Helper()
	z, err := grid.ParseZone([2]string{a, b}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return z
}

// 400x300 frame, 4x3 grid of 100px cells
var baseGrid = grid.Config{Width: 400, Height: 300, Columns: 4, Rows: 3}

func TestLocateFindsTargetInZone(t *testing.T) {
	frame := texture(400, 300, 1)
	button := image.Rect(130, 140, 160, 160)

	loc := New([]Target{{
		Name:               "send",
		Zone:               mustZone(t, "B2", "B2", baseGrid),
		ReferenceImagePath: "send.png",
	}}, baseGrid, 400, mapLoader{"send.png": cut(frame, button)}, logger.NewNop())

	res, err := loc.Locate("send", screenshot.NewFrame(frame))
	if err != nil {
		t.Fatal(err)
	}
	if res.CenterX != 145 || res.CenterY != 150 {
		t.Errorf("center = (%d, %d), want (145, 150)", res.CenterX, res.CenterY)
	}
	if res.Confidence < 0.99 || res.Confidence > 1 {
		t.Errorf("confidence = %v", res.Confidence)
	}
	if res.ZoneRect != (grid.Rect{Left: 100, Top: 100, Width: 100, Height: 100}) {
		t.Errorf("zone rect = %v", res.ZoneRect)
	}
	if res.TemplateWidth != 30 || res.TemplateHeight != 20 {
		t.Errorf("template = %dx%d", res.TemplateWidth, res.TemplateHeight)
	}
}

func TestLocateRescalesPerFrame(t *testing.T) {
	// grid calibrated on a 200px wide screen, frames are 400px wide
	calibrated := grid.Config{Width: 200, Height: 150, Columns: 4, Rows: 3}
	frame := texture(400, 300, 2)
	button := image.Rect(310, 210, 340, 240)

	loc := New([]Target{{
		Name:               "ok",
		Zone:               mustZone(t, "D3", "D3", calibrated),
		ReferenceImagePath: "ok.png",
	}}, calibrated, 200, mapLoader{"ok.png": cut(frame, button)}, logger.NewNop())

	res, err := loc.Locate("ok", screenshot.NewFrame(frame))
	if err != nil {
		t.Fatal(err)
	}
	if res.CenterX != 325 || res.CenterY != 225 {
		t.Errorf("center = (%d, %d), want (325, 225)", res.CenterX, res.CenterY)
	}

	// a reference-sized frame right after must not inherit the 2x scale
	small := texture(200, 150, 3)
	loc.loader = mapLoader{"ok.png": cut(small, image.Rect(160, 110, 180, 140))}
	res, err = loc.Locate("ok", screenshot.NewFrame(small))
	if err != nil {
		t.Fatal(err)
	}
	if res.ZoneRect != (grid.Rect{Left: 150, Top: 100, Width: 50, Height: 50}) {
		t.Errorf("zone rect after resize = %v", res.ZoneRect)
	}
}

func TestLocateClampsZoneToFrame(t *testing.T) {
	// grid extends 100px past the right edge of the frame
	wide := grid.Config{Width: 500, Height: 300, Columns: 5, Rows: 3}
	frame := texture(400, 300, 4)
	button := image.Rect(360, 20, 390, 50)

	loc := New([]Target{{
		Name:               "edge",
		Zone:               mustZone(t, "D1", "E1", wide),
		ReferenceImagePath: "edge.png",
	}}, wide, 0, mapLoader{"edge.png": cut(frame, button)}, logger.NewNop())

	res, err := loc.Locate("edge", screenshot.NewFrame(frame))
	if err != nil {
		t.Fatal(err)
	}
	if res.CenterX != 375 || res.CenterY != 35 {
		t.Errorf("center = (%d, %d), want (375, 35)", res.CenterX, res.CenterY)
	}
}

func TestLocateErrors(t *testing.T) {
	frame := texture(400, 300, 5)
	other := texture(20, 20, 99)
	zone := mustZone(t, "A1", "B2", baseGrid)

	loc := New([]Target{
		{Name: "noref", Zone: zone, ReferenceImagePath: "missing.png"},
		{Name: "absent", Zone: zone, ReferenceImagePath: "other.png"},
		{Name: "inverted", Zone: grid.Zone{TopLeft: zone.BottomRight, BottomRight: zone.TopLeft}, ReferenceImagePath: "other.png"},
	}, baseGrid, 400, mapLoader{"other.png": other}, logger.NewNop())

	tests := []struct {
		target string
		want   error
	}{
		{"nope", ErrUnknownTarget},
		{"noref", ErrMissingReferenceImage},
		{"absent", ErrTargetNotFound},
		{"inverted", grid.ErrInvalidZone},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, err := loc.Locate(tt.target, screenshot.NewFrame(frame))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	_, err := loc.Locate("absent", screenshot.NewFrame(frame))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if nf.Threshold != 0.75 || nf.Confidence >= 0.75 || nf.Zone != zone {
		t.Errorf("unexpected not found details %+v", nf)
	}
}

func TestLocateInExpandedZone(t *testing.T) {
	frame := texture(400, 300, 6)
	button := image.Rect(320, 230, 350, 260)

	loc := New([]Target{{
		Name:               "late",
		Zone:               mustZone(t, "C2", "C2", baseGrid),
		ReferenceImagePath: "late.png",
	}}, baseGrid, 400, mapLoader{"late.png": cut(frame, button)}, logger.NewNop())

	_, err := loc.Locate("late", screenshot.NewFrame(frame))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found in C2, got %v", err)
	}

	target, _ := loc.Target("late")
	res, err := loc.LocateIn(target, grid.ExpandZone(nf.Zone, 1, baseGrid), screenshot.NewFrame(frame))
	if err != nil {
		t.Fatal(err)
	}
	if res.CenterX != 335 || res.CenterY != 245 {
		t.Errorf("center = (%d, %d), want (335, 245)", res.CenterX, res.CenterY)
	}
}

func TestTargetsSorted(t *testing.T) {
	loc := New([]Target{{Name: "b"}, {Name: "a"}}, baseGrid, 400, mapLoader{}, logger.NewNop())
	got := loc.Targets()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("targets = %v", got)
	}
	if tgt, _ := loc.Target("a"); tgt.Threshold != 0.75 {
		t.Errorf("default threshold = %v", tgt.Threshold)
	}
}

func TestTargetNamesAreCaseInsensitive(t *testing.T) {
	loc := New([]Target{{Name: "ComposeButton"}}, baseGrid, 400, mapLoader{}, logger.NewNop())
	if got := loc.Targets(); len(got) != 1 || got[0] != "composebutton" {
		t.Errorf("targets = %v", got)
	}
	for _, name := range []string{"ComposeButton", "composebutton", " COMPOSEBUTTON "} {
		if _, ok := loc.Target(name); !ok {
			t.Errorf("target %q not found", name)
		}
	}
}
