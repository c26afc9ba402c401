package main

import (
	"errors"
	"fmt"
	"time"

	"orgcal/internal/config"
	"orgcal/internal/ics"
	"orgcal/internal/source"
	"orgcal/internal/store"
)

// buildAdapter turns the configured sources into an event adapter. The
// returned close function releases any opened calendar stores.
func buildAdapter(cfg *config.Config, loc *time.Location) (*source.Adapter, func() error, error) {
	fetcher := ics.NewFetcher(config.ExpandPath(cfg.Import.CacheDir))

	var stores []*store.Store
	closeAll := func() error {
		var errs []error
		for _, st := range stores {
			errs = append(errs, st.Close())
		}
		return errors.Join(errs...)
	}

	adapter := &source.Adapter{
		Include: cfg.Import.IncludeCalendars,
		Exclude: cfg.Import.ExcludeCalendars,
	}
	for i, sc := range cfg.Sources {
		switch sc.Kind {
		case config.SourceICS:
			adapter.Providers = append(adapter.Providers, &source.ICSProvider{
				Calendar: sc.Name,
				URL:      sc.URL,
				Path:     config.ExpandPath(sc.Path),
				Fetcher:  fetcher,
				Location: loc,
			})
		case config.SourceSQLite:
			st, err := store.Open(config.ExpandPath(sc.Path))
			if err != nil {
				_ = closeAll()
				return nil, nil, fmt.Errorf("%w: sources[%d]: %w", source.ErrSourceUnavailable, i, err)
			}
			stores = append(stores, st)
			adapter.Providers = append(adapter.Providers, st)
		default:
			_ = closeAll()
			return nil, nil, fmt.Errorf("sources[%d]: unknown kind %q", i, sc.Kind)
		}
	}
	return adapter, closeAll, nil
}
