package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"webomatic/internal/grid"
	"webomatic/internal/locator"
	"webomatic/internal/trajectory"
)

// EnvPrefix prefixes environment overrides, e.g. WEBOMATIC_DATABASE_DSN
const EnvPrefix = "WEBOMATIC"

// GridConfig is the calibrated grid plus the screen width it was calibrated on
type GridConfig struct {
	grid.Config    `mapstructure:",squash"`
	ReferenceWidth int `mapstructure:"reference_width"`
}

// TargetConfig is one entry of the targets table
type TargetConfig struct {
	Zone      []string `mapstructure:"zone"`
	RefImage  string   `mapstructure:"ref_image"`
	Threshold float64  `mapstructure:"threshold"`
}

type RecorderConfig struct {
	SampleRate      int     `mapstructure:"sample_rate"`
	SettledFraction float64 `mapstructure:"settled_fraction"`
	OutputDir       string  `mapstructure:"output_dir"`
}

// ReplayConfig selects the pointer driver and the pause before a click
type ReplayConfig struct {
	Driver   string           `mapstructure:"driver"`
	PreClick trajectory.Range `mapstructure:"pre_click"`
}

type ArduinoConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type IntentConfig struct {
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	SaveToDB bool   `mapstructure:"save_to_db"`
}

type ScreenshotConfig struct {
	Display     int    `mapstructure:"display"`
	SaveLocally bool   `mapstructure:"save_locally"`
	Dir         string `mapstructure:"dir"`
}

// HotkeysConfig names the keys that start a click and abort a replay
type HotkeysConfig struct {
	Abort   string `mapstructure:"abort"`
	Trigger string `mapstructure:"trigger"`
}

// Config is the whole config.yaml
type Config struct {
	LogFilePath string                  `mapstructure:"log_file_path"`
	LogLevel    string                  `mapstructure:"log_level"`
	Grid        GridConfig              `mapstructure:"grid"`
	Targets     map[string]TargetConfig `mapstructure:"targets"`
	RefsDir     string                  `mapstructure:"refs_dir"`
	ExpandCells int                     `mapstructure:"expand_cells"`
	Trajectory  trajectory.Profile      `mapstructure:"trajectory"`
	Recorder    RecorderConfig          `mapstructure:"recorder"`
	Replay      ReplayConfig            `mapstructure:"replay"`
	Arduino     ArduinoConfig           `mapstructure:"arduino"`
	Intent      IntentConfig            `mapstructure:"intent"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Screenshot  ScreenshotConfig        `mapstructure:"screenshot"`
	MetricsAddr string                  `mapstructure:"metrics_addr"`
	Hotkeys     HotkeysConfig           `mapstructure:"hotkeys"`
}

// Default returns the built-in configuration: the 12x8 grid calibrated on a
// 1600px wide screen and the recorded human timing profile.
func Default() Config {
	return Config{
		LogFilePath: "logs/webomatic.log",
		LogLevel:    "INFO",
		Grid: GridConfig{
			Config: grid.Config{
				AnchorLeft: 1039,
				AnchorTop:  26,
				Width:      1008,
				Height:     1040,
				Columns:    12,
				Rows:       8,
				Scale:      1,
			},
			ReferenceWidth: 1600,
		},
		RefsDir:     "refs",
		ExpandCells: 1,
		Trajectory:  trajectory.DefaultProfile(),
		Recorder: RecorderConfig{
			SampleRate:      100,
			SettledFraction: 0.3,
			OutputDir:       "recordings",
		},
		Replay: ReplayConfig{
			Driver:   "robotgo",
			PreClick: trajectory.Range{Min: 200 * time.Millisecond, Max: 400 * time.Millisecond},
		},
		Arduino: ArduinoConfig{
			BaudRate:    9600,
			ReadTimeout: 2 * time.Second,
		},
		Intent: IntentConfig{
			Path:         "click_intent.json",
			PollInterval: 2 * time.Second,
		},
		Screenshot: ScreenshotConfig{
			Dir: "data",
		},
		Hotkeys: HotkeysConfig{
			Abort:   "q",
			Trigger: "shift+enter",
		},
	}
}

// scalar defaults registered with viper so env overrides reach them
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log_file_path", d.LogFilePath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("refs_dir", d.RefsDir)
	v.SetDefault("expand_cells", d.ExpandCells)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("grid.reference_width", d.Grid.ReferenceWidth)
	v.SetDefault("recorder.sample_rate", d.Recorder.SampleRate)
	v.SetDefault("recorder.settled_fraction", d.Recorder.SettledFraction)
	v.SetDefault("recorder.output_dir", d.Recorder.OutputDir)
	v.SetDefault("replay.driver", d.Replay.Driver)
	v.SetDefault("arduino.port", d.Arduino.Port)
	v.SetDefault("arduino.baud_rate", d.Arduino.BaudRate)
	v.SetDefault("arduino.read_timeout", d.Arduino.ReadTimeout)
	v.SetDefault("intent.path", d.Intent.Path)
	v.SetDefault("intent.poll_interval", d.Intent.PollInterval)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.save_to_db", d.Database.SaveToDB)
	v.SetDefault("screenshot.display", d.Screenshot.Display)
	v.SetDefault("screenshot.save_locally", d.Screenshot.SaveLocally)
	v.SetDefault("screenshot.dir", d.Screenshot.Dir)
	v.SetDefault("hotkeys.abort", d.Hotkeys.Abort)
	v.SetDefault("hotkeys.trigger", d.Hotkeys.Trigger)
}

// Flags returns the command line flags shared by every binary
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to config.yaml (default ./config.yaml)")
	fs.String("log-file", "", "log file path")
	fs.String("log-level", "", "DEBUG, INFO, WARN or ERROR")
	fs.Int("display", 0, "display index to capture")
	fs.String("driver", "", "pointer driver: robotgo or arduino")
	fs.Bool("save-locally", false, "save captured frames and zone crops")
	fs.String("metrics-addr", "", "address to serve /metrics on")
	return fs
}

var flagKeys = map[string]string{
	"log-file":     "log_file_path",
	"log-level":    "log_level",
	"display":      "screenshot.display",
	"driver":       "replay.driver",
	"save-locally": "screenshot.save_locally",
	"metrics-addr": "metrics_addr",
}

// Load reads config.yaml (or the file named by the --config flag), applies
// WEBOMATIC_* environment overrides and flags that were set explicitly.
// A missing file is not an error; defaults apply.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
		for flagName, key := range flagKeys {
			if f := fs.Lookup(flagName); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("bind flag %s: %w", flagName, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return cfg, nil
}

// InitConfig loads ./config.yaml without flags
var InitConfig = func() (Config, error) {
	return Load(nil)
}

// TargetError reports a malformed targets entry
type TargetError struct {
	Name string
	Err  error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Name, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// LocatorTargets converts the targets table. Malformed entries are skipped
// and reported; the remaining targets are returned sorted by name.
func (c Config) LocatorTargets() ([]locator.Target, []error) {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	var targets []locator.Target
	var errs []error
	for _, name := range names {
		tc := c.Targets[name]
		if len(tc.Zone) != 2 {
			errs = append(errs, &TargetError{Name: name, Err: fmt.Errorf("zone needs exactly 2 cells, got %d", len(tc.Zone))})
			continue
		}
		zone, err := grid.ParseZone([2]string{tc.Zone[0], tc.Zone[1]}, c.Grid.Config)
		if err != nil {
			errs = append(errs, &TargetError{Name: name, Err: err})
			continue
		}
		if _, err := grid.ZoneToRect(zone, c.Grid.Config); err != nil {
			errs = append(errs, &TargetError{Name: name, Err: err})
			continue
		}
		if tc.RefImage == "" {
			errs = append(errs, &TargetError{Name: name, Err: errors.New("ref_image is empty")})
			continue
		}
		if tc.Threshold < 0 || tc.Threshold > 1 {
			errs = append(errs, &TargetError{Name: name, Err: fmt.Errorf("threshold %v outside [0,1]", tc.Threshold)})
			continue
		}
		targets = append(targets, locator.Target{
			Name:               locator.NormalizeName(name),
			Zone:               zone,
			ReferenceImagePath: tc.RefImage,
			Threshold:          tc.Threshold,
		})
	}
	return targets, errs
}
