package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"webomatic/internal/trajectory"
)

// Session is a recording with its analysis, as stored on disk
type Session struct {
	ID         string                      `json:"id"`
	RecordedAt time.Time                   `json:"recorded_at"`
	Movements  []trajectory.PositionSample `json:"movements"`
	Analysis   Analysis                    `json:"analysis"`
}

// NewSession analyzes samples and stamps the result with a fresh id
func NewSession(samples []trajectory.PositionSample, settledFraction float64) Session {
	return Session{
		ID:         uuid.NewString(),
		RecordedAt: time.Now(),
		Movements:  samples,
		Analysis:   Analyze(samples, settledFraction),
	}
}

// SaveSession writes s as indented JSON into dir and returns the file path
func SaveSession(dir string, s Session) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %v", err)
	}

	name := fmt.Sprintf("mouse_movement_%s.json", s.RecordedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}
	return path, nil
}

// LoadSession reads a session file. Velocity series are recomputed since
// they are not stored.
func LoadSession(path string, settledFraction float64) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", path, err)
	}
	s.Analysis = Analyze(s.Movements, settledFraction)
	return s, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
