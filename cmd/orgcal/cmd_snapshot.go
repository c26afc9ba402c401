package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orgcal/internal/config"
	"orgcal/internal/ics"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/store"
)

var snapshotFlags struct {
	db       string
	calendar string
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot --db DB FILE...",
	Short: "Expand .ics files into a sqlite calendar store",
	Long: `Expands every event of the given .ics files within now ± import.num_days
and replaces the calendar's rows in the store. The calendar name defaults to
the file name without extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	f := snapshotCmd.Flags()
	f.StringVar(&snapshotFlags.db, "db", "", "Calendar store path (required)")
	f.StringVar(&snapshotFlags.calendar, "calendar", "", "Calendar name for all files")
	_ = snapshotCmd.MarkFlagRequired("db")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, err := store.Open(config.ExpandPath(snapshotFlags.db))
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now().In(loc)
	window := time.Duration(cfg.Import.NumDays) * 24 * time.Hour

	var names []string
	byCalendar := make(map[string][]model.Event)
	for _, path := range args {
		name := snapshotFlags.calendar
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		parsed, err := ics.ParseICS(name, body)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		events, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
			Location:   loc,
			RangeStart: now.Add(-window),
			RangeEnd:   now.Add(window),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, seen := byCalendar[name]; !seen {
			names = append(names, name)
		}
		byCalendar[name] = append(byCalendar[name], events...)
	}

	for _, name := range names {
		if err := st.Replace(cmd.Context(), name, byCalendar[name]); err != nil {
			return err
		}
		appLog.Info("calendar stored", "calendar", name, "events", len(byCalendar[name]))
	}
	return nil
}
