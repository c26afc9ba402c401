package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"orgcal/internal/importer"
)

var importFlags struct {
	once bool
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Write calendar events from the configured sources into the org file",
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importFlags.once, "once", false, "Import once and exit instead of following the refresh schedule")
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	adapter, closeSources, err := buildAdapter(cfg, loc)
	if err != nil {
		return err
	}
	defer func() { _ = closeSources() }()

	im := importer.New(adapter, loc, importer.OptionsFromConfig(cfg.Import))
	if importFlags.once {
		return im.Once(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return im.Loop(ctx, cfg.Import.Refresh)
}
