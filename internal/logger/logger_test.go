package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := NewLoggerManagerWithLevel(path, INFO)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("hidden %d", 1)
	l.Info("located %s at (%d, %d)", "compose", 10, 20)
	l.LogError(errors.New("boom"), "replay failed")
	l.LogError(nil, "ignored")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		entries = append(entries, m)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
	}
	if entries[0]["msg"] != "located compose at (10, 20)" || entries[0]["level"] != "info" {
		t.Errorf("unexpected first entry %v", entries[0])
	}
	if entries[1]["msg"] != "replay failed" || entries[1]["error"] != "boom" {
		t.Errorf("unexpected error entry %v", entries[1])
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Info("nothing %s", "here")
	l.With().Warn("still nothing")
	if err := l.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
