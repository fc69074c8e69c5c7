package recorder

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"webomatic/internal/trajectory"
)

// DefaultSettledFraction of the mean velocity separates moving from settled
const DefaultSettledFraction = 0.3

// minPhaseSamples is the shortest recording that gets a phase breakdown
const minPhaseSamples = 10

// PhaseState labels a movement phase
type PhaseState string

const (
	Moving  PhaseState = "moving"
	Settled PhaseState = "settled"
)

// Phase starts at T seconds and lasts until the next phase
type Phase struct {
	State PhaseState `json:"state"`
	T     float64    `json:"timestamp"`
}

// Analysis summarizes a recording
type Analysis struct {
	TotalPoints   int       `json:"total_points"`
	Duration      float64   `json:"duration"`
	SampleRate    float64   `json:"sample_rate"`
	AvgVelocity   float64   `json:"avg_velocity"`
	MaxVelocity   float64   `json:"max_velocity"`
	Velocities    []float64 `json:"-"`
	Accelerations []float64 `json:"-"`
	Phases        []Phase   `json:"phases,omitempty"`
}

// Analyze derives velocity, acceleration and moving/settled phases.
// settledFraction <= 0 selects DefaultSettledFraction.
func Analyze(samples []trajectory.PositionSample, settledFraction float64) Analysis {
	if settledFraction <= 0 {
		settledFraction = DefaultSettledFraction
	}

	a := Analysis{TotalPoints: len(samples)}
	if len(samples) == 0 {
		return a
	}
	a.Duration = samples[len(samples)-1].T - samples[0].T
	if a.Duration > 0 {
		a.SampleRate = float64(len(samples)) / a.Duration
	}

	times := make([]float64, 0, len(samples))
	for i := 1; i < len(samples); i++ {
		prev, curr := samples[i-1], samples[i]
		dt := curr.T - prev.T
		if dt <= 0 {
			continue
		}
		v := math.Hypot(curr.X-prev.X, curr.Y-prev.Y) / dt
		a.Velocities = append(a.Velocities, v)
		times = append(times, curr.T)

		if n := len(a.Velocities); n > 1 {
			a.Accelerations = append(a.Accelerations, (a.Velocities[n-1]-a.Velocities[n-2])/dt)
		}
	}

	if len(a.Velocities) == 0 {
		return a
	}
	a.AvgVelocity = stat.Mean(a.Velocities, nil)
	a.MaxVelocity = floats.Max(a.Velocities)

	if len(samples) >= minPhaseSamples {
		a.Phases = phases(a.Velocities, times, a.AvgVelocity*settledFraction)
	}
	return a
}

// phases records a boundary each time the state flips, with no debouncing
func phases(velocities, times []float64, threshold float64) []Phase {
	var out []Phase
	var current PhaseState
	for i, v := range velocities {
		state := Settled
		if v > threshold {
			state = Moving
		}
		if state != current {
			out = append(out, Phase{State: state, T: times[i]})
			current = state
		}
	}
	return out
}

// retargetStride keeps every Nth recorded sample when retargeting
const retargetStride = 5

// Retarget replays the timing of a recording toward a new target: every
// fifth sample becomes a step whose position moves linearly from the
// recording's start to target and whose delay is the recorded gap to the
// next kept sample. The last step lands exactly on target.
func Retarget(samples []trajectory.PositionSample, target trajectory.Point) trajectory.Plan {
	if len(samples) == 0 {
		return trajectory.Plan{End: target, Settle: []trajectory.Step{{Point: target}}}
	}

	start := samples[0].Point()
	var kept []trajectory.PositionSample
	for i := 0; i < len(samples); i += retargetStride {
		kept = append(kept, samples[i])
	}

	plan := trajectory.Plan{Start: start, End: target}
	if len(kept) < 2 {
		plan.Settle = []trajectory.Step{{Point: target}}
		return plan
	}

	seg := trajectory.Segment{Kind: trajectory.Burst, Steps: make([]trajectory.Step, len(kept))}
	for i, s := range kept {
		progress := float64(i) / float64(len(kept)-1)
		step := trajectory.Step{Point: trajectory.Point{
			X: start.X + (target.X-start.X)*progress,
			Y: start.Y + (target.Y-start.Y)*progress,
		}}
		if i < len(kept)-1 {
			step.Delay = secondsToDuration(kept[i+1].T - s.T)
		}
		seg.Steps[i] = step
		seg.Duration += step.Delay
	}
	seg.Steps[len(kept)-1].Point = target
	plan.Segments = []trajectory.Segment{seg}
	return plan
}
