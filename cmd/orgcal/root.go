package main

import (
	"github.com/spf13/cobra"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "orgcal",
	Short: "Bridge org-mode outlines and calendars",
	Long: "orgcal serves deadlines, schedules and clock ranges from org-mode files\n" +
		"as iCalendar feeds, and imports calendar events into an org-mode file.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		appLog.Init(appLog.ParseLevel(rootFlags.logLevel), rootFlags.logFormat, cmd.ErrOrStderr())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "~/.config/orgcal/config.yaml", "Path to config file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.Version = version
}

// loadConfig reads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	path := config.ExpandPath(rootFlags.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appLog.Debug("config loaded",
		"path", path,
		"timezone", cfg.Timezone,
		"org_directory", cfg.OrgDirectory,
		"sources", len(cfg.Sources),
		"calendars", len(cfg.Calendars),
	)
	return cfg, nil
}
