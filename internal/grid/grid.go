// Package grid maps logical grid cells ("B3") and zones spanning two cells
// to pixel rectangles inside a calibrated screen region.
package grid

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Alphabet is the ordered set of column letters. A grid with N columns uses
// the first N letters.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	// ErrInvalidCell is returned when a cell id is malformed or falls outside the grid
	ErrInvalidCell = errors.New("invalid grid cell")

	// ErrInvalidZone is returned when a zone resolves to a non-positive width or height
	ErrInvalidZone = errors.New("invalid grid zone")
)

// Config describes a grid anchored at (AnchorLeft, AnchorTop) spanning
// Width x Height pixels, split into Columns x Rows cells.
type Config struct {
	AnchorLeft float64 `mapstructure:"anchor_left" json:"anchor_left"`
	AnchorTop  float64 `mapstructure:"anchor_top" json:"anchor_top"`
	Width      float64 `mapstructure:"width" json:"width"`
	Height     float64 `mapstructure:"height" json:"height"`
	Columns    int     `mapstructure:"columns" json:"columns"`
	Rows       int     `mapstructure:"rows" json:"rows"`

	// Scale is the factor applied by the last Rescale that produced this
	// value. It is informational only, lookups never read it.
	Scale float64 `mapstructure:"-" json:"scale"`
}

// Rect is a pixel rectangle in screen coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Overlaps reports whether r and o share at least one pixel.
func (r Rect) Overlaps(o Rect) bool {
	return r.Rectangle().Overlaps(o.Rectangle())
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d, %d, %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

// Cell is a column index and a 1-indexed row.
type Cell struct {
	Col int
	Row int
}

func (c Cell) String() string {
	if c.Col < 0 || c.Col >= len(Alphabet) {
		return fmt.Sprintf("?%d", c.Row)
	}
	return fmt.Sprintf("%c%d", Alphabet[c.Col], c.Row)
}

// Zone is the rectangular span from TopLeft to BottomRight inclusive.
type Zone struct {
	TopLeft     Cell
	BottomRight Cell
}

func (z Zone) String() string {
	return z.TopLeft.String() + ":" + z.BottomRight.String()
}

// Cells returns the zone as the two cell ids it was configured with.
func (z Zone) Cells() [2]string {
	return [2]string{z.TopLeft.String(), z.BottomRight.String()}
}

// CellError describes which cell id failed and why. It unwraps to ErrInvalidCell.
type CellError struct {
	ID     string
	Reason string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%v %q: %s", ErrInvalidCell, e.ID, e.Reason)
}

func (e *CellError) Unwrap() error {
	return ErrInvalidCell
}

// ParseCell parses ids like "A1" or "c12". The column letter must be one of
// the first cfg.Columns letters of Alphabet and the row must be in [1, cfg.Rows].
func ParseCell(id string, cfg Config) (Cell, error) {
	s := strings.ToUpper(strings.TrimSpace(id))
	if len(s) < 2 {
		return Cell{}, &CellError{ID: id, Reason: "expected a column letter followed by a row number"}
	}

	col := strings.IndexByte(Alphabet, s[0])
	if col < 0 {
		return Cell{}, &CellError{ID: id, Reason: "column must be a letter"}
	}

	row, err := strconv.Atoi(s[1:])
	if err != nil {
		return Cell{}, &CellError{ID: id, Reason: "row must be a number"}
	}

	cell := Cell{Col: col, Row: row}
	if err := checkCell(cell, cfg); err != nil {
		return Cell{}, &CellError{ID: id, Reason: err.Error()}
	}
	return cell, nil
}

// ParseZone parses a [top-left, bottom-right] pair of cell ids.
func ParseZone(ids [2]string, cfg Config) (Zone, error) {
	tl, err := ParseCell(ids[0], cfg)
	if err != nil {
		return Zone{}, err
	}
	br, err := ParseCell(ids[1], cfg)
	if err != nil {
		return Zone{}, err
	}
	return Zone{TopLeft: tl, BottomRight: br}, nil
}

func checkCell(c Cell, cfg Config) error {
	if cfg.Columns <= 0 || cfg.Rows <= 0 {
		return fmt.Errorf("grid has %dx%d cells", cfg.Columns, cfg.Rows)
	}
	if cfg.Columns > len(Alphabet) {
		return fmt.Errorf("grid has %d columns, at most %d supported", cfg.Columns, len(Alphabet))
	}
	if c.Col < 0 || c.Col >= cfg.Columns {
		return fmt.Errorf("column outside A-%c", Alphabet[cfg.Columns-1])
	}
	if c.Row < 1 || c.Row > cfg.Rows {
		return fmt.Errorf("row outside 1-%d", cfg.Rows)
	}
	return nil
}

// CellToRect returns the pixel bounds of a single cell. Every cell is
// computed from the anchor, never by stepping from a neighbour, so
// truncation does not accumulate across the grid.
func CellToRect(c Cell, cfg Config) (Rect, error) {
	if err := checkCell(c, cfg); err != nil {
		return Rect{}, &CellError{ID: c.String(), Reason: err.Error()}
	}

	cellW := cfg.Width / float64(cfg.Columns)
	cellH := cfg.Height / float64(cfg.Rows)

	return Rect{
		Left:   int(cfg.AnchorLeft + float64(c.Col)*cellW),
		Top:    int(cfg.AnchorTop + float64(c.Row-1)*cellH),
		Width:  int(cellW),
		Height: int(cellH),
	}, nil
}

// ZoneToRect returns the union of the zone's two corner cells.
func ZoneToRect(z Zone, cfg Config) (Rect, error) {
	tl, err := CellToRect(z.TopLeft, cfg)
	if err != nil {
		return Rect{}, err
	}
	br, err := CellToRect(z.BottomRight, cfg)
	if err != nil {
		return Rect{}, err
	}

	r := Rect{
		Left:   tl.Left,
		Top:    tl.Top,
		Width:  (br.Left + br.Width) - tl.Left,
		Height: (br.Top + br.Height) - tl.Top,
	}
	if r.Width <= 0 || r.Height <= 0 {
		return Rect{}, fmt.Errorf("%w %s: resolves to %dx%d", ErrInvalidZone, z, r.Width, r.Height)
	}
	return r, nil
}

// Rescale returns cfg with anchor and span multiplied by
// observedWidth/referenceWidth. Column and row counts are unchanged. It must
// be called once per captured frame; the result is never cached.
func Rescale(cfg Config, observedWidth, referenceWidth int) Config {
	if referenceWidth <= 0 || observedWidth <= 0 || observedWidth == referenceWidth {
		return cfg
	}

	ratio := float64(observedWidth) / float64(referenceWidth)
	cfg.AnchorLeft *= ratio
	cfg.AnchorTop *= ratio
	cfg.Width *= ratio
	cfg.Height *= ratio
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	cfg.Scale *= ratio
	return cfg
}

// ExpandZone grows z by n cells in every direction, clamped to the grid.
// Callers use it to retry a lookup in a wider area; the locator itself
// never expands.
func ExpandZone(z Zone, n int, cfg Config) Zone {
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return Zone{
		TopLeft: Cell{
			Col: clamp(z.TopLeft.Col-n, 0, cfg.Columns-1),
			Row: clamp(z.TopLeft.Row-n, 1, cfg.Rows),
		},
		BottomRight: Cell{
			Col: clamp(z.BottomRight.Col+n, 0, cfg.Columns-1),
			Row: clamp(z.BottomRight.Row+n, 1, cfg.Rows),
		},
	}
}
