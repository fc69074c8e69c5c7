package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webomatic/internal/grid"
	"webomatic/internal/locator"
	"webomatic/internal/logger"
)

const sample = `
log_file_path: logs/test.log
grid:
  anchor_left: 0
  anchor_top: 0
  width: 1200
  height: 800
  columns: 12
  rows: 8
  reference_width: 1200
refs_dir: refs
targets:
  gmail:
    zone: [A1, B2]
    ref_image: gmail.png
  send:
    zone: [K8, L8]
    ref_image: send.png
    threshold: 0.9
  offgrid:
    zone: [A1, Z9]
    ref_image: x.png
  inverted:
    zone: [C3, A1]
    ref_image: x.png
  onecell:
    zone: [A1]
    ref_image: x.png
  noimage:
    zone: [A1, A1]
trajectory:
  bursts_min: 5
  bursts_max: 5
  long_pause:
    min: 300ms
    max: 350ms
replay:
  driver: robotgo
intent:
  poll_interval: 500ms
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileFlagsAndEnv(t *testing.T) {
	path := writeConfig(t, sample)
	t.Setenv("WEBOMATIC_DATABASE_DSN", "user:pw@tcp(db:3306)/webomatic")

	fs := Flags("test")
	if err := fs.Parse([]string{"--config", path, "--driver", "arduino"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogFilePath != "logs/test.log" {
		t.Errorf("log file = %q", cfg.LogFilePath)
	}
	if cfg.Grid.Width != 1200 || cfg.Grid.Columns != 12 || cfg.Grid.ReferenceWidth != 1200 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Replay.Driver != "arduino" {
		t.Errorf("driver = %q, flag should override file", cfg.Replay.Driver)
	}
	if cfg.Database.DSN != "user:pw@tcp(db:3306)/webomatic" {
		t.Errorf("dsn = %q, env should apply", cfg.Database.DSN)
	}
	if cfg.Intent.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.Intent.PollInterval)
	}

	p := cfg.Trajectory
	if p.BurstsMin != 5 || p.BurstsMax != 5 {
		t.Errorf("bursts = %d..%d", p.BurstsMin, p.BurstsMax)
	}
	if p.LongPause.Min != 300*time.Millisecond || p.LongPause.Max != 350*time.Millisecond {
		t.Errorf("long pause = %+v", p.LongPause)
	}
	if p.CloseThreshold != 10 || p.SettleJitters != 3 {
		t.Errorf("unset profile fields lost their defaults: %+v", p)
	}
	if cfg.Replay.PreClick.Min != 200*time.Millisecond {
		t.Errorf("pre-click = %+v", cfg.Replay.PreClick)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := InitConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.AnchorLeft != 1039 || cfg.Grid.ReferenceWidth != 1600 || cfg.Intent.PollInterval != 2*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	fs := Flags("test")
	if err := fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(fs); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestLocatorTargetsSkipsMalformed(t *testing.T) {
	fs := Flags("test")
	if err := fs.Parse([]string{"--config", writeConfig(t, sample)}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatal(err)
	}

	targets, errs := cfg.LocatorTargets()
	if len(targets) != 2 || targets[0].Name != "gmail" || targets[1].Name != "send" {
		t.Fatalf("targets = %+v", targets)
	}
	if targets[1].Threshold != 0.9 {
		t.Errorf("send threshold = %v", targets[1].Threshold)
	}
	if targets[0].Zone.String() != "A1:B2" {
		t.Errorf("gmail zone = %s", targets[0].Zone)
	}

	if len(errs) != 4 {
		t.Fatalf("errs = %v", errs)
	}
	bad := map[string]error{}
	for _, e := range errs {
		var te *TargetError
		if !errors.As(e, &te) {
			t.Fatalf("error %v is not a TargetError", e)
		}
		bad[te.Name] = te.Err
	}
	if !errors.Is(bad["offgrid"], grid.ErrInvalidCell) {
		t.Errorf("offgrid: %v", bad["offgrid"])
	}
	if !errors.Is(bad["inverted"], grid.ErrInvalidZone) {
		t.Errorf("inverted: %v", bad["inverted"])
	}
	if bad["onecell"] == nil || bad["noimage"] == nil {
		t.Errorf("missing errors: %v", bad)
	}
}

func TestMixedCaseTargetNameResolves(t *testing.T) {
	fs := Flags("test")
	body := `
targets:
  ComposeButton:
    zone: [A1, B2]
    ref_image: compose.png
`
	if err := fs.Parse([]string{"--config", writeConfig(t, body)}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatal(err)
	}

	targets, errs := cfg.LocatorTargets()
	if len(errs) != 0 || len(targets) != 1 {
		t.Fatalf("targets = %+v, errs = %v", targets, errs)
	}
	loc := locator.New(targets, cfg.Grid.Config, cfg.Grid.ReferenceWidth, nil, logger.NewNop())
	tgt, ok := loc.Target("ComposeButton")
	if !ok {
		t.Fatalf("ComposeButton not resolvable, have %v", loc.Targets())
	}
	if tgt.ReferenceImagePath != "compose.png" {
		t.Errorf("target = %+v", tgt)
	}
}
