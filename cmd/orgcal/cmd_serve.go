package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"orgcal/internal/extract"
	"orgcal/internal/importer"
	appLog "orgcal/internal/log"
	"orgcal/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve org and calendar feeds and keep the calendar outline fresh",
	Long: `Starts the HTTP server and, when sources are configured, the periodic
calendar import. Either loop failing stops the whole process.
SIGHUP drops the cached org file extractions.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	collector := extract.NewCollector(loc)
	srv := web.NewServer(cfg, loc, collector)
	g.Go(func() error {
		return srv.ListenAndServe(gCtx)
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	g.Go(func() error {
		dropOnHangup(gCtx, hup, collector)
		return nil
	})

	if len(cfg.Sources) > 0 {
		adapter, closeSources, err := buildAdapter(cfg, loc)
		if err != nil {
			return err
		}
		defer func() { _ = closeSources() }()

		im := importer.New(adapter, loc, importer.OptionsFromConfig(cfg.Import))
		g.Go(func() error {
			return im.Loop(gCtx, cfg.Import.Refresh)
		})
	} else {
		appLog.Info("no sources configured, calendar import disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("serve failed", err)
		return err
	}
	appLog.Info("orgcal exiting")
	return nil
}

// dropOnHangup empties the org extraction cache on every signal until ctx
// is done.
func dropOnHangup(ctx context.Context, sig <-chan os.Signal, c *extract.Collector) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			appLog.Info("org cache dropped", "files", c.Invalidate())
		}
	}
}
