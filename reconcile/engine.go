// Package reconcile runs the fast poll cycle: it takes the network snapshot,
// keeps what belongs to the facility, replaces the stored snapshot, and
// publishes leave notifications for everything that dropped out of the last
// known active set.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhawton/log4g"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/facility"
	"github.com/vmemphis/data-parser/metrics"
	"github.com/vmemphis/data-parser/vatsim"
)

var log = log4g.Category("reconcile")

const (
	DefaultActiveTTL = 65 * time.Second
	DefaultFlightTTL = 300 * time.Second
)

type Feed interface {
	Data(ctx context.Context) (*vatsim.Data, error)
	Metars(ctx context.Context, airports []string) ([]string, error)
}

type Store interface {
	ReplacePilots(ctx context.Context, rows []database.PilotOnline) error
	ReplaceControllers(ctx context.Context, rows []database.AtcOnline) error
	ReplaceAtis(ctx context.Context, rows []database.AtisOnline) error
}

type Cache interface {
	ActiveSet(ctx context.Context, key cache.Key) ([]string, error)
	ReplaceActiveSet(ctx context.Context, key cache.Key, ids []string, ttl time.Duration) error
	Publish(ctx context.Context, topic, payload string) error
	PutHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Sessions receives every in-scope controller after the controller snapshot
// has been stored.
type Sessions interface {
	Update(ctx context.Context, cid int, start time.Time, position string) error
}

type Options struct {
	// Scope prefixes every active set key. Empty keeps the bare class names.
	Scope     string
	ActiveTTL time.Duration
	FlightTTL time.Duration
}

type Engine struct {
	fac      *facility.Facility
	feed     Feed
	store    Store
	cache    Cache
	sessions Sessions
	opts     Options
}

func New(fac *facility.Facility, feed Feed, store Store, c Cache, sessions Sessions, opts Options) *Engine {
	if opts.ActiveTTL <= 0 {
		opts.ActiveTTL = DefaultActiveTTL
	}
	if opts.FlightTTL <= 0 {
		opts.FlightTTL = DefaultFlightTTL
	}
	return &Engine{
		fac:      fac,
		feed:     feed,
		store:    store,
		cache:    c,
		sessions: sessions,
		opts:     opts,
	}
}

func (e *Engine) key(class cache.Class) cache.Key {
	return cache.Key{Class: class, Scope: e.opts.Scope}
}

// Poll runs one cycle. A failed snapshot fetch aborts before anything is
// touched. After that each entity class is reconciled independently and a
// failure in one leaves the others alone.
func (e *Engine) Poll(ctx context.Context) (err error) {
	cycle := uuid.NewString()[:8]
	started := time.Now()
	defer func() {
		metrics.ObservePoll("vatsim", time.Since(started), err)
	}()

	log.Info(fmt.Sprintf("[%s] Fetching data from VATSIM.", cycle))
	data, err := e.feed.Data(ctx)
	if err != nil {
		metrics.IncFetchFailure("vatsim")
		log.Error(fmt.Sprintf("[%s] Failed to get data from VATSIM: %s", cycle, err.Error()))
		return fmt.Errorf("fetch data feed: %w", err)
	}
	log.Debug(fmt.Sprintf("[%s] Processing %s pilots, %s controllers, %s ATIS", cycle,
		humanize.Comma(int64(len(data.Pilots))),
		humanize.Comma(int64(len(data.Controllers))),
		humanize.Comma(int64(len(data.Atis)))))

	tasks := []struct {
		class string
		run   func() error
	}{
		{"pilots", func() error { return e.reconcilePilots(ctx, data.Pilots) }},
		{"controllers", func() error { return e.reconcileControllers(ctx, data.Controllers) }},
		{"neighbors", func() error { return e.reconcileNeighbors(ctx, data.Controllers) }},
		{"atis", func() error { return e.reconcileAtis(ctx, data.Atis) }},
		{"metars", func() error { return e.syncMetars(ctx) }},
	}

	// Every task reports into its own slot so all failures surface, not
	// just the first one.
	errs := make([]error, len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			errs[i] = e.logged(cycle, task.class, task.run())
			return nil
		})
	}
	_ = g.Wait()

	err = errors.Join(errs...)
	log.Info(fmt.Sprintf("[%s] Cycle finished in %s", cycle, time.Since(started).Round(time.Millisecond)))
	return err
}

func (e *Engine) logged(cycle, class string, err error) error {
	if err != nil {
		log.Error(fmt.Sprintf("[%s] Error processing %s: %s", cycle, class, err.Error()))
	}
	return err
}

// swapActiveSet diffs current against the stored active set, publishes a
// leave for every departed id and only then replaces the set. If the stored
// set cannot be read the set is left as it is, so the next healthy cycle
// still sees the old ids and publishes the leaves late rather than never.
func (e *Engine) swapActiveSet(ctx context.Context, class cache.Class, current []string, topic string, onLeave func(id string)) error {
	key := e.key(class)

	previous, err := e.cache.ActiveSet(ctx, key)
	if err != nil {
		metrics.IncCacheFailure(string(class))
		log.Error(fmt.Sprintf("CACHE UNAVAILABLE, skipping %s diff this cycle: %s", class, err.Error()))
		return fmt.Errorf("read active %s: %w", class, err)
	}

	departed := Departed(previous, current)
	for _, id := range departed {
		if err := e.cache.Publish(ctx, topic, id); err != nil {
			metrics.IncCacheFailure(string(class))
			log.Error(fmt.Sprintf("Failed to publish %s for %s: %s", topic, id, err.Error()))
		}
		if onLeave != nil {
			onLeave(id)
		}
	}
	metrics.AddLeaves(string(class), len(departed))

	if err := e.cache.ReplaceActiveSet(ctx, key, current, e.opts.ActiveTTL); err != nil {
		metrics.IncCacheFailure(string(class))
		return fmt.Errorf("replace active %s: %w", class, err)
	}
	metrics.SetActive(string(class), len(current))
	return nil
}

// Departed returns the ids in previous that are missing from current, in
// their previous order and without duplicates.
func Departed(previous, current []string) []string {
	present := make(map[string]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}

	var departed []string
	seen := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		if _, ok := present[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		departed = append(departed, id)
	}
	return departed
}

// idSet keeps ids in first-seen order.
type idSet struct {
	ids  []string
	seen map[string]struct{}
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{})}
}

// add reports whether id was new.
func (s *idSet) add(id string) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}
