// Package pirep ingests pilot reports inside the facility boundary.
package pirep

import (
	"context"
	"fmt"
	"time"

	"github.com/dhawton/log4g"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/facility"
	"github.com/vmemphis/data-parser/geo"
	"github.com/vmemphis/data-parser/metrics"
)

var log = log4g.Category("pirep")

const (
	Retention = 2 * time.Hour

	typePirep  = "PIREP"
	typeUrgent = "Urgent PIREP"
)

type Feed interface {
	Reports(ctx context.Context) ([]*geojson.Feature, error)
}

type Store interface {
	PurgeReports(ctx context.Context, before time.Time) (int64, error)
	ReportExists(ctx context.Context, raw string, reportTime time.Time) (bool, error)
	CreateReport(ctx context.Context, report *database.Pirep) error
}

type Ingester struct {
	fac   *facility.Facility
	feed  Feed
	store Store
	now   func() time.Time
}

func NewIngester(fac *facility.Facility, feed Feed, store Store) *Ingester {
	return &Ingester{
		fac:   fac,
		feed:  feed,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the ingester's time source.
func (i *Ingester) WithClock(now func() time.Time) *Ingester {
	i.now = now
	return i
}

// Poll fetches the report feed, purges automatic reports past retention and
// stores every new in-scope report. One report failing to store does not
// stop the rest.
func (i *Ingester) Poll(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObservePoll("pirep", time.Since(started), err)
	}()

	log.Info("Fetching PIREPs.")
	features, err := i.feed.Reports(ctx)
	if err != nil {
		metrics.IncFetchFailure("pirep")
		log.Error("Failed to fetch PIREPs: " + err.Error())
		return fmt.Errorf("fetch reports: %w", err)
	}

	cutoff := i.now().Add(-Retention)
	purged, err := i.store.PurgeReports(ctx, cutoff)
	if err != nil {
		metrics.IncStoreFailure("pireps")
		log.Error("Failed to purge old PIREPs: " + err.Error())
		return err
	}

	stored, failed := 0, 0
	for _, f := range features {
		report, ok := i.normalize(f)
		if !ok || report.ReportTime.Before(cutoff) {
			continue
		}

		exists, err := i.store.ReportExists(ctx, report.Raw, report.ReportTime)
		if err != nil {
			failed++
			metrics.IncReportInsertFailure()
			log.Error("Failed to look up PIREP: " + err.Error())
			continue
		}
		if exists {
			continue
		}

		if err := i.store.CreateReport(ctx, report); err != nil {
			failed++
			metrics.IncReportInsertFailure()
			log.Error(fmt.Sprintf("Failed to store PIREP %q: %s", report.Raw, err.Error()))
			continue
		}
		stored++
	}

	log.Info(fmt.Sprintf("PIREPs: %d new, %d purged, %d failed", stored, purged, failed))
	return nil
}

// normalize turns a feature into a report if it is a PIREP inside the
// boundary. The feed puts latitude first in its coordinates.
func (i *Ingester) normalize(f *geojson.Feature) (*database.Pirep, bool) {
	if f == nil {
		return nil, false
	}
	p := f.Properties

	kind := prop(p, "airepType")
	if kind != typePirep && kind != typeUrgent {
		return nil, false
	}

	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return nil, false
	}
	if !i.fac.Contains(geo.FromLatLon(pt[0], pt[1])) {
		return nil, false
	}

	reportTime, ok := observed(p)
	if !ok {
		return nil, false
	}

	raw := prop(p, "rawOb")
	location := raw
	if len(location) > 3 {
		location = location[:3]
	}

	return &database.Pirep{
		ReportTime:  reportTime,
		Location:    location,
		Aircraft:    prop(p, "acType"),
		FlightLevel: prop(p, "fltlvl"),
		SkyCond:     skyCondition(p),
		Turbulence:  turbulence(p),
		Icing:       icing(p),
		Vis:         prop(p, "visib"),
		Temp:        prop(p, "temp"),
		Wind:        wind(p),
		Urgent:      kind == typeUrgent,
		Raw:         raw,
		Manual:      false,
	}, true
}
