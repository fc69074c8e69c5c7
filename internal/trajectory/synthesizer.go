package trajectory

import (
	"math"
	"math/rand/v2"
	"time"
)

// Synthesizer turns a start and end point into a Plan. It is not safe for
// concurrent use because it owns its random source.
type Synthesizer struct {
	profile Profile
	rng     *rand.Rand
}

// NewSynthesizer creates a synthesizer. A nil rng gets a randomly seeded
// PCG source; pass a seeded one for repeatable plans.
func NewSynthesizer(profile Profile, rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Synthesizer{profile: profile.normalized(), rng: rng}
}

// Profile returns the effective profile
func (s *Synthesizer) Profile() Profile {
	return s.profile
}

// Synthesize builds the full plan from start to end. It never sleeps.
func (s *Synthesizer) Synthesize(start, end Point) Plan {
	plan := Plan{Start: start, End: end}

	dx, dy := end.X-start.X, end.Y-start.Y
	distance := math.Hypot(dx, dy)
	// a zero distance has no direction to burst along
	if distance == 0 || distance < s.profile.CloseThreshold {
		plan.Settle = s.settle(end, s.profile.CorrectionJitters, s.profile.CorrectionDelay)
		return plan
	}

	// unit direction and its perpendicular
	ux, uy := dx/distance, dy/distance
	px, py := -uy, ux

	n := s.profile.BurstsMin + s.rng.IntN(s.profile.BurstsMax-s.profile.BurstsMin+1)
	current := start
	for i := 0; i < n; i++ {
		progress := float64(i+1)/float64(n) + s.uniform(s.profile.ProgressJitter)
		progress = math.Max(0, math.Min(1, progress))

		target := Point{X: start.X + dx*progress, Y: start.Y + dy*progress}
		if i < n-1 {
			offset := s.uniform(s.profile.CurveOffset)
			target.X += offset * px
			target.Y += offset * py
		}

		plan.Segments = append(plan.Segments, s.burst(current, target))
		current = target

		if i < n-1 {
			r := s.profile.ShortPause
			if i == s.profile.LongPauseAfter {
				r = s.profile.LongPause
			}
			plan.Segments = append(plan.Segments, Segment{
				Kind:     Pause,
				Position: current,
				Duration: r.Pick(s.rng),
			})
		}
	}

	plan.Settle = s.settle(end, s.profile.SettleJitters, s.profile.SettleDelay)
	return plan
}

// burst interpolates from -> to with tremor on every step, including both ends
func (s *Synthesizer) burst(from, to Point) Segment {
	duration := s.profile.BurstDuration.Pick(s.rng)
	steps := max(2, int(duration.Seconds()*s.profile.StepsPerSecond))
	delay := duration / time.Duration(steps)

	seg := Segment{Kind: Burst, Steps: make([]Step, steps)}
	for j := 0; j < steps; j++ {
		f := float64(j) / float64(steps-1)
		seg.Steps[j] = Step{
			Point: Point{
				X: from.X + (to.X-from.X)*f + s.uniform(s.profile.Tremor),
				Y: from.Y + (to.Y-from.Y)*f + s.uniform(s.profile.Tremor),
			},
			Delay: delay,
		}
		seg.Duration += delay
	}
	return seg
}

// settle emits jitters around end followed by end itself with no delay
func (s *Synthesizer) settle(end Point, jitters int, delays Range) []Step {
	steps := make([]Step, 0, jitters+1)
	for i := 0; i < jitters; i++ {
		steps = append(steps, Step{
			Point: Point{
				X: end.X + s.uniform(s.profile.SettleJitter),
				Y: end.Y + s.uniform(s.profile.SettleJitter),
			},
			Delay: delays.Pick(s.rng),
		})
	}
	return append(steps, Step{Point: end})
}

// uniform draws from [-a, a]
func (s *Synthesizer) uniform(a float64) float64 {
	if a <= 0 {
		return 0
	}
	return (s.rng.Float64()*2 - 1) * a
}
