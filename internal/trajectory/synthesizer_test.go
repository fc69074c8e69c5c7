package trajectory

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestSynthesizeEndsExactlyAtTarget(t *testing.T) {
	s := NewSynthesizer(DefaultProfile(), seeded(1))
	start, end := Pt(0, 0), Pt(100, 0)

	for i := 0; i < 100; i++ {
		plan := s.Synthesize(start, end)

		samples := plan.Samples()
		last := samples[len(samples)-1]
		if last.X != 100 || last.Y != 0 {
			t.Fatalf("run %d: last sample = (%v, %v), want (100, 0)", i, last.X, last.Y)
		}
		if p := plan.Pauses(); p < 3 || p > 5 {
			t.Fatalf("run %d: %d pauses, want 3..5", i, p)
		}
		if plan.Pauses() != plan.Bursts()-1 {
			t.Fatalf("run %d: %d pauses for %d bursts", i, plan.Pauses(), plan.Bursts())
		}
	}
}

func TestSynthesizeProperties(t *testing.T) {
	rng := seeded(42)
	s := NewSynthesizer(DefaultProfile(), rng)

	for i := 0; i < 200; i++ {
		start := Pt(rng.Float64()*1600, rng.Float64()*900)
		end := Pt(rng.Float64()*1600, rng.Float64()*900)
		if start.Dist(end) < 10 {
			continue
		}
		plan := s.Synthesize(start, end)

		if plan.Final() != end {
			t.Fatalf("final = %v, want %v", plan.Final(), end)
		}
		if plan.Segments[0].Kind != Burst {
			t.Fatalf("first segment is %v", plan.Segments[0].Kind)
		}
		first := plan.Segments[0].Steps[0]
		if math.Abs(first.X-start.X) > 1 || math.Abs(first.Y-start.Y) > 1 {
			t.Fatalf("first sample %v too far from start %v", first.Point, start)
		}
		if plan.TotalDuration() <= 0 {
			t.Fatalf("non-positive duration %v", plan.TotalDuration())
		}
		if plan.Pauses() != plan.Bursts()-1 {
			t.Fatalf("%d pauses for %d bursts", plan.Pauses(), plan.Bursts())
		}
		for j, seg := range plan.Segments {
			if (seg.Kind == Burst) != (j%2 == 0) {
				t.Fatalf("segment %d is %v; bursts and pauses must alternate", j, seg.Kind)
			}
		}
	}
}

func TestSynthesizeCloseRange(t *testing.T) {
	s := NewSynthesizer(DefaultProfile(), seeded(3))
	end := Pt(500, 300)

	plan := s.Synthesize(Pt(495, 297), end)
	if len(plan.Segments) != 0 {
		t.Fatalf("close range produced %d segments", len(plan.Segments))
	}
	if len(plan.Settle) != 3 {
		t.Fatalf("settle has %d steps, want 2 corrections + exact end", len(plan.Settle))
	}
	for _, st := range plan.Settle[:2] {
		if math.Abs(st.X-end.X) > 2 || math.Abs(st.Y-end.Y) > 2 {
			t.Errorf("correction %v beyond 2px of %v", st.Point, end)
		}
		if st.Delay < 50*time.Millisecond || st.Delay > 150*time.Millisecond {
			t.Errorf("correction delay %v out of range", st.Delay)
		}
	}
	if plan.Final() != end || plan.Settle[2].Delay != 0 {
		t.Errorf("last step = %+v", plan.Settle[2])
	}
}

func TestZeroCloseThresholdFallsBackToDefault(t *testing.T) {
	p := DefaultProfile()
	p.CloseThreshold = 0
	s := NewSynthesizer(p, seeded(4))
	if got := s.Profile().CloseThreshold; got != 10 {
		t.Errorf("close threshold = %v, want the default 10", got)
	}

	plan := s.Synthesize(Pt(50, 50), Pt(50, 50))
	if plan.Bursts() != 0 {
		t.Fatalf("standing still produced %d bursts", plan.Bursts())
	}
	for _, smp := range plan.Samples() {
		if math.IsNaN(smp.X) || math.IsNaN(smp.Y) {
			t.Fatalf("NaN sample %+v", smp)
		}
	}
	if plan.Final() != Pt(50, 50) {
		t.Errorf("final = %v", plan.Final())
	}
}

func TestSamplesStrictlyIncreasing(t *testing.T) {
	s := NewSynthesizer(DefaultProfile(), seeded(9))
	for _, end := range []Point{Pt(800, 600), Pt(3, 4)} {
		samples := s.Synthesize(Pt(0, 0), end).Samples()
		for i := 1; i < len(samples); i++ {
			if samples[i].T <= samples[i-1].T {
				t.Fatalf("T not increasing at %d: %v <= %v", i, samples[i].T, samples[i-1].T)
			}
		}
	}
}

func TestPauseTiming(t *testing.T) {
	s := NewSynthesizer(DefaultProfile(), seeded(5))
	plan := s.Synthesize(Pt(0, 0), Pt(1000, 500))

	pause := 0
	for _, seg := range plan.Segments {
		if seg.Kind != Pause {
			continue
		}
		min, max := 50*time.Millisecond, 200*time.Millisecond
		if pause == 1 {
			min, max = 400*time.Millisecond, 500*time.Millisecond
		}
		if seg.Duration < min || seg.Duration > max {
			t.Errorf("pause %d lasts %v, want %v..%v", pause, seg.Duration, min, max)
		}
		pause++
	}
}

func TestBurstShape(t *testing.T) {
	s := NewSynthesizer(DefaultProfile(), seeded(11))
	plan := s.Synthesize(Pt(0, 0), Pt(0, 400))

	var sum time.Duration
	for _, seg := range plan.Segments {
		sum += seg.Duration
		if seg.Kind != Burst {
			continue
		}
		if len(seg.Steps) < 2 {
			t.Errorf("burst with %d steps", len(seg.Steps))
		}
		if seg.Duration < 10*time.Millisecond || seg.Duration > 50*time.Millisecond {
			t.Errorf("burst duration %v out of range", seg.Duration)
		}
	}
	for _, st := range plan.Settle {
		sum += st.Delay
	}
	if sum != plan.TotalDuration() {
		t.Errorf("total %v != sum of parts %v", plan.TotalDuration(), sum)
	}
}

func TestFinalBurstDoesNotCurve(t *testing.T) {
	// a vertical move bows along x, so the last pause position may sit off
	// the line but the last burst target must land back on it
	p := DefaultProfile()
	p.Tremor = 0
	s := NewSynthesizer(p, seeded(21))

	for i := 0; i < 50; i++ {
		plan := s.Synthesize(Pt(100, 0), Pt(100, 400))
		last := plan.Segments[len(plan.Segments)-1]
		end := last.Steps[len(last.Steps)-1]
		if math.Abs(end.X-100) > 1e-9 {
			t.Fatalf("final burst ends at x=%v, want 100", end.X)
		}
	}
}

func TestSeededSynthesisIsRepeatable(t *testing.T) {
	a := NewSynthesizer(DefaultProfile(), seeded(7)).Synthesize(Pt(10, 20), Pt(640, 480)).Samples()
	b := NewSynthesizer(DefaultProfile(), seeded(7)).Synthesize(Pt(10, 20), Pt(640, 480)).Samples()

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRangePick(t *testing.T) {
	rng := seeded(1)
	r := Range{Min: 5 * time.Millisecond, Max: 6 * time.Millisecond}
	for i := 0; i < 100; i++ {
		if d := r.Pick(rng); d < r.Min || d > r.Max {
			t.Fatalf("picked %v outside %v..%v", d, r.Min, r.Max)
		}
	}
	if d := (Range{Min: time.Second}).Pick(rng); d != time.Second {
		t.Errorf("degenerate range picked %v", d)
	}
}
