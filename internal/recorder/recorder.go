// Package recorder samples the real pointer at a fixed rate and derives the
// statistics used to tune trajectory synthesis.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"webomatic/internal/logger"
	"webomatic/internal/trajectory"
)

// DefaultSampleRate is the pointer sampling frequency in Hz
const DefaultSampleRate = 100

var (
	// ErrAlreadyRecording is returned by Record while another recording runs
	ErrAlreadyRecording = errors.New("recording already in progress")

	// ErrInvalidDuration is returned by Record for a non-positive duration
	ErrInvalidDuration = errors.New("recording duration must be positive")
)

// PositionSource reads the current pointer position
type PositionSource interface {
	Sample() (x, y float64, err error)
}

// Recorder samples a PositionSource into timestamped positions
type Recorder struct {
	source     PositionSource
	sampleRate int
	logger     *logger.LoggerManager

	mu        sync.Mutex
	recording bool
}

// New creates a recorder. sampleRate <= 0 selects DefaultSampleRate.
func New(source PositionSource, sampleRate int, log *logger.LoggerManager) *Recorder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Recorder{source: source, sampleRate: sampleRate, logger: log}
}

// IsRecording reports whether Record is running
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Record samples until duration elapses or ctx is cancelled. On
// cancellation it returns what was captured so far together with ctx.Err().
func (r *Recorder) Record(ctx context.Context, duration time.Duration) ([]trajectory.PositionSample, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	r.recording = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
	}()

	interval := time.Second / time.Duration(r.sampleRate)
	samples := make([]trajectory.PositionSample, 0, int(duration/interval)+1)

	start := time.Now()
	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sample := func() error {
		x, y, err := r.source.Sample()
		if err != nil {
			return fmt.Errorf("sample pointer: %w", err)
		}
		t := time.Since(start).Seconds()
		if n := len(samples); n > 0 && t <= samples[n-1].T {
			return nil
		}
		samples = append(samples, trajectory.PositionSample{X: x, Y: y, T: t})
		return nil
	}

	if err := sample(); err != nil {
		return samples, err
	}
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("recording cancelled after %d samples", len(samples))
			return samples, ctx.Err()
		case <-deadline.C:
			r.logger.Info("recorded %d samples in %v", len(samples), time.Since(start).Round(time.Millisecond))
			return samples, nil
		case <-ticker.C:
			if err := sample(); err != nil {
				return samples, err
			}
		}
	}
}
