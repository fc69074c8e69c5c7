// Package intent reads and writes click intent records, the JSON hand-off
// file between whoever decides where to click and the process that clicks.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"webomatic/internal/grid"
	"webomatic/internal/locator"
)

const (
	// SafetyGreen marks an intent that may be executed without confirmation
	SafetyGreen = "green"
	// SafetyExecuted marks a record of a click that already happened
	SafetyExecuted = "executed"
)

// ErrNoCenter is returned for records without a usable center point
var ErrNoCenter = errors.New("intent has no center point")

// Point is an integer screen position
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Record is one click intent
type Record struct {
	ID                   string     `json:"id,omitempty"`
	Intent               string     `json:"intent"`
	Target               string     `json:"target,omitempty"`
	CenterPoint          *Point     `json:"center_point,omitempty"`
	Coordinates          *grid.Rect `json:"coordinates,omitempty"`
	Confidence           float64    `json:"confidence"`
	SafetyStatus         string     `json:"safety_status"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
	Zone                 string     `json:"zone,omitempty"`
	Timestamp            string     `json:"timestamp"`
}

// UnmarshalJSON treats a missing requires_confirmation as true
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		RequiresConfirmation *bool `json:"requires_confirmation"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.RequiresConfirmation = aux.RequiresConfirmation == nil || *aux.RequiresConfirmation
	return nil
}

// Safe reports whether the record may be clicked automatically
func (r Record) Safe() bool {
	return r.SafetyStatus == SafetyGreen && !r.RequiresConfirmation
}

// Center returns the click position
func (r Record) Center() (int, int, error) {
	if r.CenterPoint == nil {
		return 0, 0, ErrNoCenter
	}
	return r.CenterPoint.X, r.CenterPoint.Y, nil
}

// FromMatch builds a green record for a successful precision lookup
func FromMatch(m locator.MatchResult) Record {
	rect := m.ZoneRect
	return Record{
		ID:                   uuid.NewString(),
		Intent:               fmt.Sprintf("Precision click on %s", m.Target),
		Target:               m.Target,
		CenterPoint:          &Point{X: m.CenterX, Y: m.CenterY},
		Coordinates:          &rect,
		Confidence:           m.Confidence,
		SafetyStatus:         SafetyGreen,
		RequiresConfirmation: false,
		Zone:                 m.Zone.String(),
		Timestamp:            time.Now().Format(time.RFC3339Nano),
	}
}

// Executed builds the record left behind by a precision click that has
// already been performed. Watchers never execute it again.
func Executed(m locator.MatchResult) Record {
	rec := FromMatch(m)
	rec.Intent = fmt.Sprintf("Precision click executed on %s", m.Target)
	rec.SafetyStatus = SafetyExecuted
	return rec
}

// Write replaces the file at path with rec. The file is written next to its
// destination and renamed, so readers never see a partial record.
func Write(path string, rec Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(time.RFC3339Nano)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".intent-*.json")
	if err != nil {
		return fmt.Errorf("write intent: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write intent: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write intent: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write intent: %w", err)
	}
	return nil
}

// Read loads the record at path
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode intent %s: %w", path, err)
	}
	return rec, nil
}
