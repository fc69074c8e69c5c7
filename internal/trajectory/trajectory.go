// Package trajectory synthesizes human-like pointer paths: a handful of short
// bursts toward intermediate waypoints, settling pauses between them and a
// final settle onto the exact target.
package trajectory

import (
	"fmt"
	"math"
	"time"
)

// Point is a screen position in pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Dist returns the straight-line distance between p and q
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Round returns the nearest integer pixel
func (p Point) Round() (int, int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// PositionSample is a pointer position at T seconds from the sequence origin
type PositionSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"timestamp"`
}

// Point drops the timestamp
func (s PositionSample) Point() Point {
	return Point{X: s.X, Y: s.Y}
}

// Step is one pointer move followed by a delay before the next one
type Step struct {
	Point
	Delay time.Duration
}

// SegmentKind tags a Segment
type SegmentKind int

const (
	Burst SegmentKind = iota
	Pause
)

func (k SegmentKind) String() string {
	switch k {
	case Burst:
		return "burst"
	case Pause:
		return "pause"
	default:
		return fmt.Sprintf("SegmentKind(%d)", int(k))
	}
}

// Segment is either a Burst (Steps played in order, Duration their total
// delay) or a Pause (pointer held at Position for Duration).
type Segment struct {
	Kind     SegmentKind
	Steps    []Step
	Position Point
	Duration time.Duration
}

// Plan is a fully materialized trajectory. Segments are replayed in order,
// then the Settle steps; the last Settle step is always exactly End.
type Plan struct {
	Start    Point
	End      Point
	Segments []Segment
	Settle   []Step
}

// Bursts counts the burst segments
func (p Plan) Bursts() int {
	return p.count(Burst)
}

// Pauses counts the pause segments
func (p Plan) Pauses() int {
	return p.count(Pause)
}

func (p Plan) count(kind SegmentKind) int {
	n := 0
	for _, s := range p.Segments {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// TotalDuration is the wall-clock time a replay of the plan takes
func (p Plan) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Segments {
		total += s.Duration
	}
	for _, st := range p.Settle {
		total += st.Delay
	}
	return total
}

// Final returns the last emitted position
func (p Plan) Final() Point {
	if n := len(p.Settle); n > 0 {
		return p.Settle[n-1].Point
	}
	return p.End
}

// Samples flattens the plan into timed positions. Each sample is stamped
// with the time the pointer arrives there; a pause contributes one sample at
// its hold position. Every delay before the final sample is positive, so T
// is strictly increasing.
func (p Plan) Samples() []PositionSample {
	var out []PositionSample
	var t time.Duration
	emit := func(pt Point) {
		out = append(out, PositionSample{X: pt.X, Y: pt.Y, T: t.Seconds()})
	}

	for _, s := range p.Segments {
		switch s.Kind {
		case Burst:
			for _, st := range s.Steps {
				emit(st.Point)
				t += st.Delay
			}
		case Pause:
			emit(s.Position)
			t += s.Duration
		}
	}
	for _, st := range p.Settle {
		emit(st.Point)
		t += st.Delay
	}
	return out
}
