package database

import "time"

// MatchAudit is one locate attempt and its outcome
type MatchAudit struct {
	ID         int64
	Target     string
	Zone       string
	CenterX    int
	CenterY    int
	Confidence float64
	Found      bool
	Clicked    bool
	Error      string
	ZoneImage  []byte
	CreatedAt  time.Time
}

// Recording is a saved pointer recording with its summary statistics
type Recording struct {
	ID          int64
	SessionID   string
	Duration    float64
	SampleRate  float64
	TotalPoints int
	AvgVelocity float64
	MaxVelocity float64
	Samples     []RecordingSample
	CreatedAt   time.Time
}

// RecordingSample is one row of recording_samples
type RecordingSample struct {
	Seq int
	X   float64
	Y   float64
	T   float64
}
