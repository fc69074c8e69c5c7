package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"webomatic/internal/config"
	"webomatic/internal/database"
	"webomatic/internal/logger"
	"webomatic/internal/pointer"
	"webomatic/internal/recorder"
	"webomatic/internal/replay"
	"webomatic/internal/trajectory"
)

func main() {
	fs := config.Flags("recorder")
	duration := fs.Duration("duration", 5*time.Second, "how long to record")
	countdown := fs.Int("countdown", 3, "seconds to wait before recording starts")
	retarget := fs.String("retarget", "", "replay the recorded timing toward x,y after saving")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if *duration <= 0 {
		log.Fatalf("--duration must be positive, got %v", *duration)
	}
	if *countdown < 0 {
		log.Fatalf("--countdown must not be negative, got %d", *countdown)
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

	robot := pointer.NewRobotDriver()
	rec := recorder.New(robot, c.Recorder.SampleRate, loggerManager)

	for i := *countdown; i > 0; i-- {
		loggerManager.Info("recording starts in %d...", i)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}

	loggerManager.Info("recording pointer for %v, move the mouse now", *duration)
	samples, err := rec.Record(ctx, *duration)
	if err != nil && !errors.Is(err, context.Canceled) {
		loggerManager.LogError(err, "recording failed")
		return
	}

	session := recorder.NewSession(samples, c.Recorder.SettledFraction)
	a := session.Analysis
	loggerManager.Info("recorded %d points over %.2fs (%.1f Hz), avg velocity %.1f px/s, max %.1f px/s, %d phases",
		a.TotalPoints, a.Duration, a.SampleRate, a.AvgVelocity, a.MaxVelocity, len(a.Phases))

	path, err := recorder.SaveSession(c.Recorder.OutputDir, session)
	if err != nil {
		loggerManager.LogError(err, "save session")
		return
	}
	loggerManager.Info("session saved to %s", path)

	if c.Database.DSN != "" && c.Database.SaveToDB {
		saveToDatabase(c.Database.DSN, session, loggerManager)
	}

	if *retarget != "" {
		target, err := parsePoint(*retarget)
		if err != nil {
			loggerManager.LogError(err, "retarget")
			return
		}
		plan := recorder.Retarget(session.Movements, target)
		loggerManager.Info("replaying recorded timing toward %s over %v", target, plan.TotalDuration())
		if err := replay.New(robot, replay.RealSleeper, loggerManager).Replay(ctx, plan); err != nil {
			loggerManager.LogError(err, "retarget replay")
		}
	}
}

func saveToDatabase(dsn string, s recorder.Session, loggerManager *logger.LoggerManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, dsn)
	if err != nil {
		loggerManager.LogError(err, "Error connecting to database")
		return
	}
	defer db.Close()

	dbManager := database.NewDatabaseManager(db, true, loggerManager)
	if err := dbManager.EnsureSchema(ctx); err != nil {
		loggerManager.LogError(err, "ensure schema")
		return
	}
	if _, err := dbManager.SaveRecording(ctx, toRecording(s)); err != nil {
		loggerManager.LogError(err, "save recording")
	}
}

func toRecording(s recorder.Session) database.Recording {
	rec := database.Recording{
		SessionID:   s.ID,
		Duration:    s.Analysis.Duration,
		SampleRate:  s.Analysis.SampleRate,
		TotalPoints: s.Analysis.TotalPoints,
		AvgVelocity: s.Analysis.AvgVelocity,
		MaxVelocity: s.Analysis.MaxVelocity,
		Samples:     make([]database.RecordingSample, len(s.Movements)),
	}
	for i, m := range s.Movements {
		rec.Samples[i] = database.RecordingSample{Seq: i, X: m.X, Y: m.Y, T: m.T}
	}
	return rec
}

// parsePoint reads "x,y"
func parsePoint(s string) (trajectory.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return trajectory.Point{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return trajectory.Point{}, fmt.Errorf("bad x in %q: %v", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return trajectory.Point{}, fmt.Errorf("bad y in %q: %v", s, err)
	}
	return trajectory.Pt(x, y), nil
}
