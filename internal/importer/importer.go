// Package importer periodically rewrites the calendar outline file from the
// configured event sources.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"orgcal/internal/config"
	"orgcal/internal/group"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/segment"
	"orgcal/internal/synth"
)

// EventSource yields normalized events for a window.
type EventSource interface {
	Events(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// Options controls one import run.
type Options struct {
	OutputFile      string
	NumDays         int
	IncludeEndTime  bool
	IncludeDuration bool
}

// OptionsFromConfig maps the import section of the configuration.
func OptionsFromConfig(c config.ImportConfig) Options {
	return Options{
		OutputFile:      config.ExpandPath(c.OutputFile),
		NumDays:         c.NumDays,
		IncludeEndTime:  c.IncludeEndTime,
		IncludeDuration: c.IncludeDuration,
	}
}

// Importer renders calendar events into an outline file.
type Importer struct {
	source EventSource
	loc    *time.Location
	opts   Options
	log    *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an importer writing in loc.
func New(src EventSource, loc *time.Location, opts Options) *Importer {
	return &Importer{
		source: src,
		loc:    loc,
		opts:   opts,
		log:    appLog.New("importer"),
		now:    time.Now,
	}
}

// Once queries now ± NumDays, renders the outline and replaces the output
// file atomically.
func (im *Importer) Once(ctx context.Context) error {
	now := im.now().In(im.loc)
	window := time.Duration(im.opts.NumDays) * 24 * time.Hour
	events, err := im.source.Events(ctx, now.Add(-window), now.Add(window))
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	segs := segment.SplitAll(events, im.loc, im.opts.IncludeDuration)
	groups := group.By(segs)

	var buf bytes.Buffer
	if err := synth.WriteOutline(&buf, groups, synth.OutlineOptions{IncludeEndTime: im.opts.IncludeEndTime}); err != nil {
		return fmt.Errorf("import: render: %w", err)
	}
	if err := config.WriteFileAtomic(im.opts.OutputFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("import: write %s: %w", im.opts.OutputFile, err)
	}

	im.log.Info("calendar imported",
		"file", im.opts.OutputFile,
		"events", len(events),
		"segments", len(segs),
		"groups", len(groups),
	)
	return nil
}

// Loop runs Once immediately and then at every tick of the cron schedule.
// It returns the first failure, or nil once ctx is done.
func (im *Importer) Loop(ctx context.Context, schedule string) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("import: schedule %q: %w", schedule, err)
	}

	for {
		if err := im.Once(ctx); err != nil {
			return err
		}

		next := sched.Next(im.now())
		im.log.Debug("next import scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
