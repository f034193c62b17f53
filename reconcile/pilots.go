package reconcile

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/geo"
	"github.com/vmemphis/data-parser/metrics"
	"github.com/vmemphis/data-parser/vatsim"
)

// inScope reports whether a pilot departs, arrives or is flying inside the
// facility. Pilots without a flight plan never are.
func (e *Engine) inScope(p vatsim.Pilot) bool {
	if p.FlightPlan == nil {
		return false
	}
	return e.fac.IsAirport(p.FlightPlan.Departure) ||
		e.fac.IsAirport(p.FlightPlan.Arrival) ||
		e.fac.Contains(geo.FromLatLon(p.Latitude, p.Longitude))
}

func (e *Engine) reconcilePilots(ctx context.Context, pilots []vatsim.Pilot) error {
	ids := newIDSet()
	var rows []database.PilotOnline

	for i := 0; i < len(pilots); i++ {
		pilot := pilots[i]
		if !e.inScope(pilot) || !ids.add(pilot.Callsign) {
			continue
		}

		fp := pilot.FlightPlan
		rows = append(rows, database.PilotOnline{
			CID:           pilot.CID,
			Name:          pilot.Name,
			Callsign:      pilot.Callsign,
			Aircraft:      fp.Aircraft,
			Departure:     fp.Departure,
			Destination:   fp.Arrival,
			Code:          rand.Intn(999-101) + 101,
			Latitude:      pilot.Latitude,
			Longitude:     pilot.Longitude,
			Altitude:      pilot.Altitude,
			Heading:       pilot.Heading,
			Speed:         pilot.Groundspeed,
			PlannedCruise: NormalizeAltitude(fp.Altitude),
			Route:         fp.Route,
			Remarks:       fp.Remarks,
		})
	}

	if err := e.store.ReplacePilots(ctx, rows); err != nil {
		metrics.IncStoreFailure(string(cache.Pilots))
		return err
	}

	swapErr := e.swapActiveSet(ctx, cache.Pilots, ids.ids, cache.TopicPilotDelete, nil)

	failed := 0
	for i := range rows {
		if err := e.publishTelemetry(ctx, &rows[i]); err != nil {
			failed++
		}
	}
	if failed > 0 {
		metrics.IncCacheFailure(string(cache.Pilots))
		log.Error(fmt.Sprintf("Failed to update telemetry for %d of %d pilots", failed, len(rows)))
	}

	return swapErr
}

// publishTelemetry writes the short-lived PILOT:<callsign> hash and announces
// it on PILOT:UPDATE. This happens every cycle for every active flight.
func (e *Engine) publishTelemetry(ctx context.Context, p *database.PilotOnline) error {
	fields := map[string]string{
		"callsign":    p.Callsign,
		"lat":         formatFloat(p.Latitude),
		"lng":         formatFloat(p.Longitude),
		"speed":       strconv.Itoa(p.Speed),
		"heading":     strconv.Itoa(p.Heading),
		"altitude":    strconv.Itoa(p.Altitude),
		"cruise":      strconv.Itoa(p.PlannedCruise),
		"destination": p.Destination,
	}
	if err := e.cache.PutHash(ctx, cache.PilotKey(p.Callsign), fields, e.opts.FlightTTL); err != nil {
		return err
	}
	return e.cache.Publish(ctx, cache.TopicPilotUpdate, p.Callsign)
}
