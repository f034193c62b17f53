package reconcile

import (
	"context"
	"fmt"

	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/metrics"
)

// syncMetars stores the latest METAR for every facility airport under
// METAR:<ICAO>.
func (e *Engine) syncMetars(ctx context.Context) error {
	metars, err := e.feed.Metars(ctx, e.fac.Airports)
	if err != nil {
		metrics.IncFetchFailure("metar")
		return fmt.Errorf("fetch metars: %w", err)
	}

	for _, metar := range metars {
		if len(metar) < 4 {
			continue
		}
		if err := e.cache.Put(ctx, cache.MetarKey(metar[:4]), metar, 0); err != nil {
			metrics.IncCacheFailure("metars")
			return err
		}
	}
	return nil
}
