package trajectory

import (
	"math/rand/v2"
	"time"
)

// Range is an inclusive [Min, Max] duration interval
type Range struct {
	Min time.Duration `mapstructure:"min" json:"min"`
	Max time.Duration `mapstructure:"max" json:"max"`
}

// Pick draws uniformly from the range
func (r Range) Pick(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int64N(int64(r.Max-r.Min)+1))
}

// Profile parametrizes the shape and timing of synthesized trajectories
type Profile struct {
	// Below this distance only micro corrections around the target are emitted
	CloseThreshold float64 `mapstructure:"close_threshold"`

	BurstsMin int `mapstructure:"bursts_min"`
	BurstsMax int `mapstructure:"bursts_max"`
	// Uniform offset added to each burst's nominal progress fraction
	ProgressJitter float64 `mapstructure:"progress_jitter"`
	// Max perpendicular offset of every burst target except the last
	CurveOffset    float64 `mapstructure:"curve_offset"`
	BurstDuration  Range   `mapstructure:"burst_duration"`
	StepsPerSecond float64 `mapstructure:"steps_per_second"`
	Tremor         float64 `mapstructure:"tremor"`

	// The pause following this burst index uses LongPause
	LongPauseAfter int   `mapstructure:"long_pause_after"`
	LongPause      Range `mapstructure:"long_pause"`
	ShortPause     Range `mapstructure:"short_pause"`

	SettleJitters int     `mapstructure:"settle_jitters"`
	SettleJitter  float64 `mapstructure:"settle_jitter"`
	SettleDelay   Range   `mapstructure:"settle_delay"`

	CorrectionJitters int   `mapstructure:"correction_jitters"`
	CorrectionDelay   Range `mapstructure:"correction_delay"`
}

// DefaultProfile mirrors the timing signature observed in recorded movement
func DefaultProfile() Profile {
	return Profile{
		CloseThreshold: 10,
		BurstsMin:      4,
		BurstsMax:      6,
		ProgressJitter: 0.1,
		CurveOffset:    20,
		BurstDuration:  Range{20 * time.Millisecond, 50 * time.Millisecond},
		StepsPerSecond: 100,
		Tremor:         1,

		LongPauseAfter: 1,
		LongPause:      Range{400 * time.Millisecond, 500 * time.Millisecond},
		ShortPause:     Range{50 * time.Millisecond, 200 * time.Millisecond},

		SettleJitters: 3,
		SettleJitter:  2,
		SettleDelay:   Range{50 * time.Millisecond, 100 * time.Millisecond},

		CorrectionJitters: 2,
		CorrectionDelay:   Range{50 * time.Millisecond, 150 * time.Millisecond},
	}
}

// normalized fills nonsensical values from the defaults
func (p Profile) normalized() Profile {
	d := DefaultProfile()
	if p.CloseThreshold <= 0 {
		p.CloseThreshold = d.CloseThreshold
	}
	if p.BurstsMin < 1 {
		p.BurstsMin = d.BurstsMin
	}
	if p.BurstsMax < p.BurstsMin {
		p.BurstsMax = p.BurstsMin
	}
	if p.StepsPerSecond <= 0 {
		p.StepsPerSecond = d.StepsPerSecond
	}
	if p.BurstDuration.Min <= 0 {
		p.BurstDuration = d.BurstDuration
	}
	if p.LongPause.Min <= 0 {
		p.LongPause = d.LongPause
	}
	if p.ShortPause.Min <= 0 {
		p.ShortPause = d.ShortPause
	}
	if p.SettleDelay.Min <= 0 {
		p.SettleDelay = d.SettleDelay
	}
	if p.CorrectionDelay.Min <= 0 {
		p.CorrectionDelay = d.CorrectionDelay
	}
	return p
}
