package pirep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/facility"
)

var now = time.Date(2021, 7, 10, 18, 0, 0, 0, time.UTC)

func testFacility(t *testing.T) *facility.Facility {
	t.Helper()
	fac, err := facility.New("ZME", []string{"KMEM"}, []string{"MEM"}, nil,
		[][]float64{{-91, 34}, {-88, 34}, {-88, 37}, {-91, 37}, {-91, 34}})
	if err != nil {
		t.Fatal(err)
	}
	return fac
}

// sqliteStore is the real store on a throwaway database, plus a way to read
// back what was ingested.
type sqliteStore struct {
	*database.Store
	db *gorm.DB
}

func (s *sqliteStore) reports(t *testing.T) []database.Pirep {
	t.Helper()
	var rows []database.Pirep
	if err := s.db.Order("report_time").Find(&rows).Error; err != nil {
		t.Fatalf("read reports: %v", err)
	}
	return rows
}

func testStore(t *testing.T) *sqliteStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pireps.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	store, err := database.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	return &sqliteStore{Store: store, db: db}
}

// feature builds a report at (lat, lon) in the feed's coordinate order.
func feature(kind, raw string, lat, lon float64, at time.Time) string {
	return fmt.Sprintf(`{"type": "Feature",
		"geometry": {"type": "Point", "coordinates": [%g, %g]},
		"properties": {"airepType": %q, "rawOb": %q, "obsTime": %q, "acType": "B738",
			"fltlvl": "350", "wdir": 270, "wspd": 45, "tbInt1": "MOD", "tbType1": "CHOP"}}`,
		lat, lon, kind, raw, at.Format(time.RFC3339))
}

func collection(features ...string) string {
	out := `{"type": "FeatureCollection", "features": [`
	for i, f := range features {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out + "]}"
}

type staticFeed struct {
	features []*geojson.Feature
	err      error
}

func (f *staticFeed) Reports(ctx context.Context) ([]*geojson.Feature, error) {
	return f.features, f.err
}

func parse(t *testing.T, body string) *staticFeed {
	t.Helper()
	fc, err := geojson.UnmarshalFeatureCollection([]byte(body))
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return &staticFeed{features: fc.Features}
}

func TestPollStoresInScopeReports(t *testing.T) {
	store := testStore(t)
	feed := parse(t, collection(
		feature("PIREP", "MEM UA /OV MEM/TM 1745/FL350/TP B738/TB MOD CHOP", 35.0, -89.9, now.Add(-15*time.Minute)),
		feature("Urgent PIREP", "LIT UUA /OV LIT/TM 1750/FL120/TP C172/TB SEV", 34.7, -90.5, now.Add(-10*time.Minute)),
		feature("AIREP", "ARP UAL1 3500N 08930W", 35.0, -89.5, now.Add(-5*time.Minute)),
		feature("PIREP", "ORD UA /OV ORD/TM 1740", 41.9, -87.9, now.Add(-20*time.Minute)),
		feature("PIREP", "SWP UA /OV SWP/TM 1740", -89.9, 35.0, now.Add(-20*time.Minute)),
	))
	ing := NewIngester(testFacility(t), feed, store).WithClock(func() time.Time { return now })

	if err := ing.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	reports := store.reports(t)
	if len(reports) != 2 {
		t.Fatalf("stored %d reports, want 2: %+v", len(reports), reports)
	}

	first := reports[0]
	if first.Location != "MEM" || first.Wind != "270@45" || first.Turbulence != "MOD CHOP" || first.Urgent || first.Manual {
		t.Errorf("first report = %+v", first)
	}
	if !reports[1].Urgent {
		t.Error("urgent report not flagged")
	}
}

func TestPollSkipsDuplicatesAndStale(t *testing.T) {
	store := testStore(t)
	feed := parse(t, collection(
		feature("PIREP", "MEM UA /OV MEM/TM 1745", 35.0, -89.9, now.Add(-15*time.Minute)),
		feature("PIREP", "MEM UA /OV MEM/TM 1500", 35.0, -89.9, now.Add(-3*time.Hour)),
	))
	ing := NewIngester(testFacility(t), feed, store).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := ing.Poll(ctx); err != nil {
			t.Fatal(err)
		}
	}

	reports := store.reports(t)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report after two polls, got %d", len(reports))
	}
}

func TestPollRetention(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	old := now.Add(-150 * time.Minute)

	if err := store.CreateReport(ctx, &database.Pirep{Raw: "AUTO OLD", ReportTime: old}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateReport(ctx, &database.Pirep{Raw: "MANUAL OLD", ReportTime: old, Manual: true}); err != nil {
		t.Fatal(err)
	}

	ing := NewIngester(testFacility(t), &staticFeed{}, store).WithClock(func() time.Time { return now })
	if err := ing.Poll(ctx); err != nil {
		t.Fatal(err)
	}

	reports := store.reports(t)
	if len(reports) != 1 || reports[0].Raw != "MANUAL OLD" {
		t.Fatalf("expected only the manual report to survive, got %+v", reports)
	}
}

func TestPollFetchFailureLeavesStore(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	if err := store.CreateReport(ctx, &database.Pirep{Raw: "AUTO OLD", ReportTime: now.Add(-3 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	ing := NewIngester(testFacility(t), &staticFeed{err: errors.New("timeout")}, store).WithClock(func() time.Time { return now })
	if err := ing.Poll(ctx); err == nil {
		t.Fatal("expected fetch error")
	}

	reports := store.reports(t)
	if len(reports) != 1 {
		t.Errorf("store changed after failed fetch: %+v", reports)
	}
}

type flakyStore struct {
	*sqliteStore
	fail string
}

func (s *flakyStore) CreateReport(ctx context.Context, r *database.Pirep) error {
	if r.Raw == s.fail {
		return errors.New("write rejected")
	}
	return s.sqliteStore.CreateReport(ctx, r)
}

func TestPollContinuesAfterInsertFailure(t *testing.T) {
	store := &flakyStore{sqliteStore: testStore(t), fail: "BAD UA"}
	feed := parse(t, collection(
		feature("PIREP", "MEM UA 1", 35.0, -89.9, now.Add(-15*time.Minute)),
		feature("PIREP", "BAD UA", 35.0, -89.9, now.Add(-14*time.Minute)),
		feature("PIREP", "MEM UA 2", 35.0, -89.9, now.Add(-13*time.Minute)),
	))
	ing := NewIngester(testFacility(t), feed, store).WithClock(func() time.Time { return now })

	if err := ing.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	reports := store.reports(t)
	if len(reports) != 2 {
		t.Fatalf("expected 2 stored reports, got %d", len(reports))
	}
}

func TestClientReports(t *testing.T) {
	body := collection(feature("PIREP", "MEM UA", 35.0, -89.9, now))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	features, err := NewClient(server.URL, time.Second).Reports(context.Background())
	if err != nil {
		t.Fatalf("Reports: %v", err)
	}
	if len(features) != 1 || features[0].Properties["rawOb"] != "MEM UA" {
		t.Fatalf("features = %+v", features)
	}
}

func TestClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, time.Second).Reports(context.Background()); err == nil {
		t.Fatal("expected error for 503")
	}
}
