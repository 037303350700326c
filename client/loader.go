package client

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Searcher is the query side of the API client.
type Searcher interface {
	Search(ctx context.Context, date, device string) ([]RawReading, error)
}

// Loader fetches one day of readings for several devices concurrently.
type Loader struct {
	Client       Searcher
	QueryTimeout time.Duration
}

func NewLoader(c Searcher, queryTimeout time.Duration) *Loader {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &Loader{Client: c, QueryTimeout: queryTimeout}
}

// LoadDay issues one search per distinct device and combines the results in
// device order. Any failed query fails the whole load; no partial result is
// returned.
func (l *Loader) LoadDay(ctx context.Context, date string, devices []string) ([]RawReading, error) {
	devices = uniqueDevices(devices)
	results := make([][]RawReading, len(devices))

	g, gctx := errgroup.WithContext(ctx)
	for i, device := range devices {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, l.QueryTimeout)
			defer cancel()

			rows, err := l.Client.Search(qctx, date, device)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []RawReading
	for _, rows := range results {
		combined = append(combined, rows...)
	}
	if combined == nil {
		combined = []RawReading{}
	}
	return combined, nil
}

// uniqueDevices drops repeated and blank names, keeping first-seen order. A
// blank name would search every device.
func uniqueDevices(devices []string) []string {
	seen := make(map[string]struct{}, len(devices))
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
