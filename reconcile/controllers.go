package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/metrics"
	"github.com/vmemphis/data-parser/vatsim"
)

const flightServiceCallsign = "PRC_FSS"

func (e *Engine) isPosition(c vatsim.Controller) bool {
	if len(c.Callsign) < 3 || c.Callsign == flightServiceCallsign || c.Facility == 0 {
		return false
	}
	return e.fac.IsPosition(c.Callsign[:3])
}

// neighborCenter returns the neighbor id if c is working a neighboring
// center sector, e.g. "ZHU_W_CTR" -> "ZHU".
func (e *Engine) neighborCenter(c vatsim.Controller) (string, bool) {
	parts := strings.Split(c.Callsign, "_")
	if len(parts) < 2 || parts[len(parts)-1] != "CTR" || !e.fac.IsNeighbor(parts[0]) {
		return "", false
	}
	return parts[0], true
}

func (e *Engine) reconcileControllers(ctx context.Context, controllers []vatsim.Controller) error {
	ids := newIDSet()
	var rows []database.AtcOnline

	for i := 0; i < len(controllers); i++ {
		ctrl := controllers[i]
		if !e.isPosition(ctrl) || !ids.add(ctrl.Callsign) {
			continue
		}
		rows = append(rows, database.AtcOnline{
			CID:       ctrl.CID,
			Name:      ctrl.Name,
			Rating:    ctrl.Rating,
			Position:  ctrl.Callsign,
			TimeStart: ctrl.LogonTime,
			Atis:      JoinText(ctrl.TextAtis),
			Frequency: ctrl.Frequency,
		})
	}

	if err := e.store.ReplaceControllers(ctx, rows); err != nil {
		metrics.IncStoreFailure(string(cache.Controllers))
		return err
	}

	swapErr := e.swapActiveSet(ctx, cache.Controllers, ids.ids, cache.TopicControllerDelete, nil)

	var sessionErrs []error
	if e.sessions != nil {
		for _, row := range rows {
			if err := e.sessions.Update(ctx, row.CID, row.TimeStart, row.Position); err != nil {
				metrics.IncStoreFailure("sessions")
				log.Error(fmt.Sprintf("Failed to update session for %s: %s", row.Position, err.Error()))
				sessionErrs = append(sessionErrs, err)
			}
		}
	}

	if len(sessionErrs) > 0 {
		return errors.Join(swapErr, fmt.Errorf("%d of %d sessions failed: %w", len(sessionErrs), len(rows), errors.Join(sessionErrs...)))
	}
	return swapErr
}

// reconcileNeighbors keeps the list of staffed neighboring centers. Nobody
// needs to hear about a neighbor going offline, so there is no diff.
func (e *Engine) reconcileNeighbors(ctx context.Context, controllers []vatsim.Controller) error {
	ids := newIDSet()
	for _, ctrl := range controllers {
		if id, ok := e.neighborCenter(ctrl); ok {
			ids.add(id)
		}
	}

	if err := e.cache.ReplaceActiveSet(ctx, e.key(cache.Neighbors), ids.ids, e.opts.ActiveTTL); err != nil {
		metrics.IncCacheFailure(string(cache.Neighbors))
		return err
	}
	return nil
}
