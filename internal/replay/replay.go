// Package replay executes trajectory plans through a pointer driver.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webomatic/internal/logger"
	"webomatic/internal/trajectory"
)

// ErrDriver wraps every failure reported by a pointer driver
var ErrDriver = errors.New("pointer driver failed")

// Driver moves and clicks the real pointer
type Driver interface {
	MoveTo(x, y int) error
	Click(x, y int) error
}

// Locator reports the current pointer position. Drivers that can read the
// pointer implement it.
type Locator interface {
	Position() (int, int, error)
}

// Sleeper waits for d
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper
type SleeperFunc func(time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// RealSleeper sleeps on the wall clock
var RealSleeper Sleeper = SleeperFunc(time.Sleep)

// Replayer plays plans step by step. Cancellation is honoured between
// segments only, so the pointer never stops inside a jittered burst.
type Replayer struct {
	driver  Driver
	sleeper Sleeper
	logger  *logger.LoggerManager
}

// New creates a Replayer. A nil sleeper uses RealSleeper.
func New(driver Driver, sleeper Sleeper, log *logger.LoggerManager) *Replayer {
	if sleeper == nil {
		sleeper = RealSleeper
	}
	return &Replayer{driver: driver, sleeper: sleeper, logger: log}
}

// Replay plays plan. It returns ctx.Err() when cancelled at a segment
// boundary and a wrapped ErrDriver when the driver fails.
func (r *Replayer) Replay(ctx context.Context, plan trajectory.Plan) error {
	start := time.Now()
	for i, seg := range plan.Segments {
		if err := ctx.Err(); err != nil {
			r.logger.Info("replay aborted before segment %d/%d", i+1, len(plan.Segments))
			return err
		}

		switch seg.Kind {
		case trajectory.Burst:
			if err := r.steps(seg.Steps); err != nil {
				return err
			}
		case trajectory.Pause:
			if err := r.move(seg.Position); err != nil {
				return err
			}
			r.sleeper.Sleep(seg.Duration)
		}
	}

	if err := ctx.Err(); err != nil {
		r.logger.Info("replay aborted before settle")
		return err
	}
	if err := r.steps(plan.Settle); err != nil {
		return err
	}

	r.logger.Debug("replayed %d bursts to %v in %v (planned %v)", plan.Bursts(), plan.Final(), time.Since(start), plan.TotalDuration())
	return nil
}

// ReplayAndClick replays plan, waits preClick and clicks at the plan's end point
func (r *Replayer) ReplayAndClick(ctx context.Context, plan trajectory.Plan, preClick time.Duration) error {
	if err := r.Replay(ctx, plan); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.sleeper.Sleep(preClick)

	x, y := plan.Final().Round()
	if err := r.driver.Click(x, y); err != nil {
		return fmt.Errorf("%w: click at (%d, %d): %v", ErrDriver, x, y, err)
	}
	return nil
}

func (r *Replayer) steps(steps []trajectory.Step) error {
	for _, st := range steps {
		if err := r.move(st.Point); err != nil {
			return err
		}
		if st.Delay > 0 {
			r.sleeper.Sleep(st.Delay)
		}
	}
	return nil
}

func (r *Replayer) move(p trajectory.Point) error {
	x, y := p.Round()
	if err := r.driver.MoveTo(x, y); err != nil {
		return fmt.Errorf("%w: move to (%d, %d): %v", ErrDriver, x, y, err)
	}
	return nil
}
