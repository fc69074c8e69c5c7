package replay

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"testing"
	"time"

	"webomatic/internal/logger"
	"webomatic/internal/trajectory"
)

type fakeDriver struct {
	moves   []image.Point
	clicks  []image.Point
	failAt  int
	onMove  func(n int)
	clickFn func() error
}

func (d *fakeDriver) MoveTo(x, y int) error {
	d.moves = append(d.moves, image.Pt(x, y))
	if d.onMove != nil {
		d.onMove(len(d.moves))
	}
	if d.failAt > 0 && len(d.moves) == d.failAt {
		return errors.New("serial port closed")
	}
	return nil
}

func (d *fakeDriver) Click(x, y int) error {
	d.clicks = append(d.clicks, image.Pt(x, y))
	if d.clickFn != nil {
		return d.clickFn()
	}
	return nil
}

type recordingSleeper struct {
	total time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) { s.total += d }

func plan(seed uint64) trajectory.Plan {
	s := trajectory.NewSynthesizer(trajectory.DefaultProfile(), rand.New(rand.NewPCG(seed, seed)))
	return s.Synthesize(trajectory.Pt(10, 10), trajectory.Pt(610, 410))
}

func TestReplayPlaysEveryStep(t *testing.T) {
	p := plan(1)
	d := &fakeDriver{}
	sl := &recordingSleeper{}

	if err := New(d, sl, logger.NewNop()).Replay(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if len(d.moves) != len(p.Samples()) {
		t.Errorf("moves = %d, samples = %d", len(d.moves), len(p.Samples()))
	}
	if last := d.moves[len(d.moves)-1]; last != image.Pt(610, 410) {
		t.Errorf("last move = %v", last)
	}
	if sl.total != p.TotalDuration() {
		t.Errorf("slept %v, plan lasts %v", sl.total, p.TotalDuration())
	}
}

func TestReplayCancelsBetweenSegments(t *testing.T) {
	p := plan(2)
	firstBurst := len(p.Segments[0].Steps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// cancel while the first burst is still in flight
	d := &fakeDriver{onMove: func(n int) {
		if n == 1 {
			cancel()
		}
	}}

	err := New(d, &recordingSleeper{}, logger.NewNop()).Replay(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(d.moves) != firstBurst {
		t.Errorf("moved %d times, want the whole first burst (%d)", len(d.moves), firstBurst)
	}
}

func TestReplayDriverFailure(t *testing.T) {
	d := &fakeDriver{failAt: 3}
	err := New(d, &recordingSleeper{}, logger.NewNop()).Replay(context.Background(), plan(3))
	if !errors.Is(err, ErrDriver) {
		t.Fatalf("expected ErrDriver, got %v", err)
	}
	if len(d.moves) != 3 {
		t.Errorf("kept moving after failure: %d moves", len(d.moves))
	}
}

func TestReplayAndClick(t *testing.T) {
	p := plan(4)
	d := &fakeDriver{}
	sl := &recordingSleeper{}

	err := New(d, sl, logger.NewNop()).ReplayAndClick(context.Background(), p, 300*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.clicks) != 1 || d.clicks[0] != image.Pt(610, 410) {
		t.Errorf("clicks = %v", d.clicks)
	}
	if sl.total != p.TotalDuration()+300*time.Millisecond {
		t.Errorf("slept %v", sl.total)
	}

	d = &fakeDriver{clickFn: func() error { return errors.New("button stuck") }}
	if err := New(d, sl, logger.NewNop()).ReplayAndClick(context.Background(), p, 0); !errors.Is(err, ErrDriver) {
		t.Errorf("expected ErrDriver from click, got %v", err)
	}
}
