package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/facility"
	"github.com/vmemphis/data-parser/vatsim"
)

var errDown = errors.New("down")

func testFacility(t *testing.T) *facility.Facility {
	t.Helper()
	fac, err := facility.New("ZME",
		[]string{"KMEM", "KBNA", "KLIT"},
		[]string{"MEM", "BNA", "LIT"},
		[]string{"ZHU", "ZTL"},
		[][]float64{{-91, 34}, {-88, 34}, {-88, 37}, {-91, 37}, {-91, 34}},
	)
	if err != nil {
		t.Fatalf("facility: %v", err)
	}
	return fac
}

type fakeFeed struct {
	data     *vatsim.Data
	err      error
	metars   []string
	metarErr error
}

func (f *fakeFeed) Data(ctx context.Context) (*vatsim.Data, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeFeed) Metars(ctx context.Context, airports []string) ([]string, error) {
	return f.metars, f.metarErr
}

type fakeStore struct {
	mu          sync.Mutex
	pilots      []database.PilotOnline
	controllers []database.AtcOnline
	atis        []database.AtisOnline
	writes      int
	failPilots  bool
}

func (s *fakeStore) ReplacePilots(ctx context.Context, rows []database.PilotOnline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPilots {
		return errDown
	}
	s.writes++
	s.pilots = rows
	return nil
}

func (s *fakeStore) ReplaceControllers(ctx context.Context, rows []database.AtcOnline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.controllers = rows
	return nil
}

func (s *fakeStore) ReplaceAtis(ctx context.Context, rows []database.AtisOnline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.atis = rows
	return nil
}

type message struct {
	topic, payload string
}

type fakeCache struct {
	mu        sync.Mutex
	sets      map[string][]string
	ttls      map[string]time.Duration
	hashes    map[string]map[string]string
	values    map[string]string
	touched   map[string]time.Duration
	deleted   []string
	published []message
	readErr   error
	ops       []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		sets:    make(map[string][]string),
		ttls:    make(map[string]time.Duration),
		hashes:  make(map[string]map[string]string),
		values:  make(map[string]string),
		touched: make(map[string]time.Duration),
	}
}

func (c *fakeCache) ActiveSet(ctx context.Context, key cache.Key) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "get "+key.String())
	if c.readErr != nil {
		return nil, c.readErr
	}
	return append([]string(nil), c.sets[key.String()]...), nil
}

func (c *fakeCache) ReplaceActiveSet(ctx context.Context, key cache.Key, ids []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "set "+key.String())
	c.sets[key.String()] = append([]string(nil), ids...)
	c.ttls[key.String()] = ttl
	return nil
}

func (c *fakeCache) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "publish "+topic)
	c.published = append(c.published, message{topic, payload})
	return nil
}

func (c *fakeCache) PutHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[key] = fields
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *fakeCache) Touch(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched[key] = ttl
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	return nil
}

// payloads returns the sorted payloads published on topic.
func (c *fakeCache) payloads(topic string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.published {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	sort.Strings(out)
	return out
}

func (c *fakeCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = nil
	c.ops = nil
	c.deleted = nil
}

type sessionCall struct {
	cid      int
	start    time.Time
	position string
}

type fakeSessions struct {
	mu      sync.Mutex
	calls   []sessionCall
	failCID int
}

func (s *fakeSessions) Update(ctx context.Context, cid int, start time.Time, position string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sessionCall{cid, start, position})
	if cid == s.failCID {
		return errors.New("session write rejected")
	}
	return nil
}

// memSessionStore is a session.Store keyed by cid and start.
type memSessionStore struct {
	mu   sync.Mutex
	rows map[string]*database.ControllerHours
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{rows: make(map[string]*database.ControllerHours)}
}

func sessionID(cid int, start time.Time) string {
	return fmt.Sprintf("%d@%d", cid, start.UnixNano())
}

func (m *memSessionStore) FindSession(ctx context.Context, cid int, start time.Time) (*database.ControllerHours, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID(cid, start)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (m *memSessionStore) CreateSession(ctx context.Context, s *database.ControllerHours) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.rows[sessionID(s.CID, s.TimeStart)] = &cp
	return nil
}

func (m *memSessionStore) SaveSession(ctx context.Context, s *database.ControllerHours) error {
	return m.CreateSession(ctx, s)
}

func (m *memSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// stuckNotifier never answers until its context is done.
type stuckNotifier struct{}

func (stuckNotifier) SessionOpened(ctx context.Context, cid int) error {
	<-ctx.Done()
	return ctx.Err()
}
