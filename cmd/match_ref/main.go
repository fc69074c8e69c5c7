package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"webomatic/internal/config"
	"webomatic/internal/grid"
	imageInternal "webomatic/internal/image"
	"webomatic/internal/intent"
	"webomatic/internal/locator"
	"webomatic/internal/logger"
	"webomatic/internal/matcher"
	"webomatic/internal/screenshot"
)

func main() {
	fs := config.Flags("match_ref")
	shot := fs.String("screenshot", "", "saved screenshot to search (required)")
	ref := fs.String("ref", "", "reference image to find (required)")
	zone := fs.String("zone", "", "grid cell (C3) or zone (A1:B2) to search in (required)")
	threshold := fs.Float64("threshold", matcher.DefaultThreshold, "minimum confidence")
	write := fs.Bool("write-intent", false, "also write the record to the configured intent file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if *shot == "" || *ref == "" || *zone == "" {
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

	rec, err := match(c, *shot, *ref, *zone, *threshold, loggerManager)
	if err != nil {
		var nf *locator.NotFoundError
		if errors.As(err, &nf) {
			loggerManager.Warn("no match for %s in %s: best %.3f < %.2f", *ref, nf.Zone, nf.Confidence, nf.Threshold)
		} else {
			loggerManager.LogError(err, "match_ref")
		}
		loggerManager.Close()
		os.Exit(1)
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))

	if *write {
		if err := intent.Write(c.Intent.Path, rec); err != nil {
			loggerManager.LogError(err, "write intent")
			return
		}
		loggerManager.Info("intent written to %s", c.Intent.Path)
	}
}

// match searches one cell or zone of a saved screenshot for ref
func match(c config.Config, shot, ref, zoneArg string, threshold float64, loggerManager *logger.LoggerManager) (intent.Record, error) {
	ids, err := zoneCells(zoneArg)
	if err != nil {
		return intent.Record{}, err
	}
	z, err := grid.ParseZone(ids, c.Grid.Config)
	if err != nil {
		return intent.Record{}, err
	}

	frame, err := screenshot.FileCapturer{Path: shot}.Capture(image.Rectangle{})
	if err != nil {
		return intent.Record{}, err
	}
	loggerManager.Info("screenshot %s: %dx%d", shot, frame.Width, frame.Height)

	name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	loc := locator.New([]locator.Target{{
		Name:               name,
		Zone:               z,
		ReferenceImagePath: ref,
		Threshold:          threshold,
	}}, c.Grid.Config, c.Grid.ReferenceWidth, imageInternal.Loader{}, loggerManager)

	res, err := loc.Locate(name, frame)
	if err != nil {
		return intent.Record{}, err
	}
	loggerManager.Info("found %s at (%d, %d), confidence %.3f", name, res.CenterX, res.CenterY, res.Confidence)
	return intent.FromMatch(res), nil
}

// zoneCells accepts "C3" or "A1:B2"
func zoneCells(s string) ([2]string, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 1:
		return [2]string{parts[0], parts[0]}, nil
	case 2:
		return [2]string{parts[0], parts[1]}, nil
	}
	return [2]string{}, fmt.Errorf("%w: %q", grid.ErrInvalidZone, s)
}
