package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orgcal/internal/config"
	"orgcal/internal/extract"
	"orgcal/internal/synth"
)

var feedCmd = &cobra.Command{
	Use:   "feed KIND",
	Short: "Print the iCalendar feed of one org entry kind",
	Long:  "KIND is one of: " + kindNames() + ".",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeed,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print clock and scheduled entries as timeline JSON",
	Args:  cobra.NoArgs,
	RunE:  runTimeline,
}

func kindNames() string {
	names := make([]string, len(extract.Kinds))
	for i, k := range extract.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// collectOrg extracts every entry below the configured org directory.
func collectOrg(cfg *config.Config) ([]extract.Entry, *time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	entries, err := extract.NewCollector(loc).CollectDir(config.ExpandPath(cfg.OrgDirectory))
	if err != nil {
		return nil, nil, err
	}
	return entries, loc, nil
}

func runFeed(cmd *cobra.Command, args []string) error {
	kind, ok := extract.ParseKind(args[0])
	if !ok {
		return fmt.Errorf("unknown kind %q (want one of: %s)", args[0], kindNames())
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	entries, loc, err := collectOrg(cfg)
	if err != nil {
		return err
	}

	data := synth.FeedBytes(entries, kind, synth.FeedOptions{
		Now:      time.Now().In(loc),
		Window:   time.Duration(cfg.FeedWindowDays) * 24 * time.Hour,
		Location: loc,
	})
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	entries, loc, err := collectOrg(cfg)
	if err != nil {
		return err
	}
	return synth.EncodeTimeline(cmd.OutOrStdout(), synth.Timeline(entries, time.Now().In(loc)))
}
