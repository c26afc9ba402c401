package source

import (
	"context"
	"os"
	"time"

	"orgcal/internal/ics"
	"orgcal/internal/model"
)

// ICSProvider serves one ICS feed, remote (URL) or local (Path), as a
// calendar store. Recurrences are expanded inside the query window.
type ICSProvider struct {
	Calendar string
	URL      string
	Path     string

	Fetcher  *ics.Fetcher
	Location *time.Location
}

// Query implements Provider.
func (p *ICSProvider) Query(ctx context.Context, q Query) ([]model.Event, error) {
	if !q.Allows(p.Calendar) {
		return nil, nil
	}

	body, err := p.body(ctx)
	if err != nil {
		return nil, err
	}
	parsed, err := ics.ParseICS(p.Calendar, body)
	if err != nil {
		return nil, err
	}
	return ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		Location:   p.Location,
		RangeStart: q.Start,
		RangeEnd:   q.End,
	})
}

func (p *ICSProvider) body(ctx context.Context) ([]byte, error) {
	if p.Path != "" {
		return os.ReadFile(p.Path)
	}
	res, err := p.Fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}
