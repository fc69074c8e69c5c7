package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"webomatic/internal/arduino"
	"webomatic/internal/click_manager"
	"webomatic/internal/config"
	"webomatic/internal/database"
	imageInternal "webomatic/internal/image"
	"webomatic/internal/intent"
	"webomatic/internal/interrupt"
	"webomatic/internal/locator"
	"webomatic/internal/logger"
	"webomatic/internal/metrics"
	"webomatic/internal/pointer"
	"webomatic/internal/replay"
	"webomatic/internal/screenshot"
	"webomatic/internal/trajectory"
)

const usage = `usage: webomatic [flags] <command>

commands:
  targets           list configured targets and their zones
  click <target>    locate target on screen and click it once
  hotkey <target>   click target every time the trigger hotkey is pressed
  watch             execute safe click intents written to the intent file

flags:
`

func main() {
	fs := config.Flags("webomatic")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	c, err := config.Load(fs)
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	loggerManager, err := logger.NewLoggerManagerWithLevel(c.LogFilePath, logger.LogLevel(strings.ToUpper(c.LogLevel)))
	if err != nil {
		log.Fatal("Error initializing logger: ", err)
	}
	defer loggerManager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, args, loggerManager); err != nil {
		loggerManager.LogError(err, args[0])
		loggerManager.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, c config.Config, args []string, loggerManager *logger.LoggerManager) error {
	targets, errs := c.LocatorTargets()
	for _, e := range errs {
		loggerManager.Warn("skipping target: %v", e)
	}
	loc := locator.New(targets, c.Grid.Config, c.Grid.ReferenceWidth, imageInternal.Loader{Dir: c.RefsDir}, loggerManager)

	switch args[0] {
	case "targets":
		return listTargets(loc)
	case "click", "hotkey":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a target name", args[0])
		}
		if _, ok := loc.Target(args[1]); !ok {
			return fmt.Errorf("%w: %s", locator.ErrUnknownTarget, args[1])
		}
	case "watch":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	a, err := newApp(ctx, c, loc, loggerManager)
	if err != nil {
		return err
	}
	defer a.close()

	switch args[0] {
	case "click":
		_, err = a.clicker.Click(ctx, args[1])
		return err
	case "hotkey":
		return a.hotkeyLoop(ctx, args[1])
	default:
		w := intent.NewWatcher(c.Intent.Path, c.Intent.PollInterval, a.clicker.MoveAndClick, loggerManager)
		return w.WithMetrics(a.metrics).Run(ctx)
	}
}

func listTargets(loc *locator.Locator) error {
	for _, name := range loc.Targets() {
		t, _ := loc.Target(name)
		fmt.Printf("%-20s %-8s %.2f  %s\n", name, t.Zone, t.Threshold, t.ReferenceImagePath)
	}
	return nil
}

type app struct {
	clicker    *click_manager.PrecisionClicker
	interrupts *interrupt.InterruptManager
	dbManager  *database.DatabaseManager
	metrics    *metrics.Metrics
	logger     *logger.LoggerManager
	closers    []func() error
}

func newApp(ctx context.Context, c config.Config, loc *locator.Locator, loggerManager *logger.LoggerManager) (*app, error) {
	a := &app{logger: loggerManager}

	robot := pointer.NewRobotDriver()
	var driver replay.Driver = robot
	if c.Replay.Driver == "arduino" {
		d, err := arduino.Open(c.Arduino, loggerManager)
		if err != nil {
			return nil, fmt.Errorf("error opening arduino port: %w", err)
		}
		a.closers = append(a.closers, d.Close)
		driver = d
	}
	loggerManager.Info("pointer driver: %s", c.Replay.Driver)

	a.dbManager = database.NewDatabaseManager(nil, false, loggerManager)
	if c.Database.DSN != "" && c.Database.SaveToDB {
		db, err := database.Open(ctx, c.Database.DSN)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.dbManager = database.NewDatabaseManager(db, true, loggerManager)
		if err := a.dbManager.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		loggerManager.Info("match audits are saved to the database")
	}

	m := metrics.New()
	a.metrics = m
	if c.MetricsAddr != "" {
		go func() {
			if err := m.Serve(c.MetricsAddr); err != nil {
				loggerManager.LogError(err, "metrics server")
			}
		}()
		loggerManager.Info("serving metrics on %s/metrics", c.MetricsAddr)
	}

	a.interrupts = interrupt.NewInterruptManager(c.Hotkeys, loggerManager)
	a.interrupts.StartMonitoring()

	debugDir := ""
	if c.Screenshot.SaveLocally {
		debugDir = c.Screenshot.Dir
	}

	a.clicker = click_manager.NewPrecisionClicker(click_manager.Options{
		Capturer:    screenshot.NewScreenCapturer(c.Screenshot.Display, c.Screenshot.SaveLocally, c.Screenshot.Dir),
		Locator:     loc,
		Synthesizer: trajectory.NewSynthesizer(c.Trajectory, nil),
		Replayer:    replay.New(driver, replay.RealSleeper, loggerManager),
		Position:    robot.Position,
		Interrupts:  a.interrupts,
		Database:    a.dbManager,
		Metrics:     m,
		IntentPath:  c.Intent.Path,
		PreClick:    c.Replay.PreClick,
		ExpandCells: c.ExpandCells,
		DebugDir:    debugDir,
	}, loggerManager)
	return a, nil
}

func (a *app) close() {
	a.dbManager.WaitForAsyncOperations()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.LogError(err, "error closing resource")
		}
	}
}

// hotkeyLoop clicks target each time the trigger hotkey is pressed. The abort
// hotkey stops the click in progress; the loop itself ends with ctx.
func (a *app) hotkeyLoop(ctx context.Context, target string) error {
	a.logger.Info("ready: press the trigger hotkey to click %s, the abort hotkey to stop a move", target)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.interrupts.TriggerChan():
		}

		_, err := a.clicker.Click(ctx, target)

		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			a.logger.Info("click on %s aborted", target)
		case errors.Is(err, locator.ErrTargetNotFound):
			a.logger.Warn("%v", err)
		default:
			a.logger.LogError(err, "precision click failed")
		}
	}
}
