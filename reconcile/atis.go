package reconcile

import (
	"context"
	"fmt"

	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/metrics"
	"github.com/vmemphis/data-parser/vatsim"
)

// ATIS stations are tracked by airport, not by callsign: KMEM_ATIS and
// KMEM_D_ATIS are both "KMEM".
func (e *Engine) reconcileAtis(ctx context.Context, stations []vatsim.Atis) error {
	ids := newIDSet()
	var rows []database.AtisOnline

	for i := 0; i < len(stations); i++ {
		atis := stations[i]
		if len(atis.Callsign) < 4 {
			continue
		}
		airport := atis.Callsign[:4]
		if !e.fac.IsAirport(airport) {
			continue
		}
		ids.add(airport)
		rows = append(rows, database.AtisOnline{
			CID:       atis.CID,
			Airport:   airport,
			Callsign:  atis.Callsign,
			Code:      atis.AtisCode,
			Frequency: atis.Frequency,
			Text:      JoinText(atis.TextAtis),
			TimeStart: atis.LogonTime,
		})
	}

	if err := e.store.ReplaceAtis(ctx, rows); err != nil {
		metrics.IncStoreFailure(string(cache.Atis))
		return err
	}

	swapErr := e.swapActiveSet(ctx, cache.Atis, ids.ids, cache.TopicAtisDelete, func(airport string) {
		if err := e.cache.Delete(ctx, cache.AtisKey(airport)); err != nil {
			log.Error(fmt.Sprintf("Failed to remove ATIS for %s: %s", airport, err.Error()))
		}
	})

	// The ATIS text itself is written by the website; keep it alive while the
	// station is connected.
	for _, airport := range ids.ids {
		if err := e.cache.Touch(ctx, cache.AtisKey(airport), e.opts.ActiveTTL); err != nil {
			metrics.IncCacheFailure(string(cache.Atis))
			log.Error(fmt.Sprintf("Failed to refresh ATIS for %s: %s", airport, err.Error()))
		}
	}

	return swapErr
}
