// Package session keeps the controller hours ledger: one row per continuous
// controller session, extended on every poll the controller is still seen.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dhawton/log4g"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/metrics"
)

var log = log4g.Category("session")

type Store interface {
	FindSession(ctx context.Context, cid int, start time.Time) (*database.ControllerHours, error)
	CreateSession(ctx context.Context, session *database.ControllerHours) error
	SaveSession(ctx context.Context, session *database.ControllerHours) error
}

// Notifier is told about every newly opened session.
type Notifier interface {
	SessionOpened(ctx context.Context, cid int) error
}

const (
	// StartPrecision is the precision session start times are keyed at. It
	// matches the DATETIME(3) columns gorm's mysql driver creates.
	StartPrecision = time.Millisecond

	DefaultNotifyTimeout = 10 * time.Second
	maxPendingNotify     = 32
)

type Ledger struct {
	store    Store
	notifier Notifier
	now      func() time.Time

	notifyTimeout time.Duration
	pending       chan struct{}
	wg            sync.WaitGroup
}

func NewLedger(store Store, notifier Notifier) *Ledger {
	return &Ledger{
		store:         store,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: DefaultNotifyTimeout,
		pending:       make(chan struct{}, maxPendingNotify),
	}
}

// WithClock replaces the ledger's time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// WithNotifyTimeout bounds each accounting notification.
func (l *Ledger) WithNotifyTimeout(d time.Duration) *Ledger {
	if d > 0 {
		l.notifyTimeout = d
	}
	return l
}

// Update records that cid is still online in a session that started at
// start. A session is identified by cid and start together, so a reconnect
// with a new logon time opens a new row and the old one simply stops being
// extended.
func (l *Ledger) Update(ctx context.Context, cid int, start time.Time, position string) error {
	now := l.now()
	start = start.UTC().Truncate(StartPrecision)

	session, err := l.store.FindSession(ctx, cid, start)
	if err != nil {
		return err
	}

	if session != nil {
		session.TimeEnd = now
		if err := l.store.SaveSession(ctx, session); err != nil {
			return fmt.Errorf("extend session %d: %w", cid, err)
		}
		return nil
	}

	session = &database.ControllerHours{
		CID:       cid,
		TimeStart: start,
		TimeEnd:   now,
		Position:  position,
	}
	if err := l.store.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("open session %d: %w", cid, err)
	}
	log.Debug(fmt.Sprintf("Opened session for %d on %s", cid, position))

	l.notify(cid)
	return nil
}

// notify tells the accounting service about a new session in the
// background. It never blocks the caller: when too many notifications are
// already in flight this one is dropped.
func (l *Ledger) notify(cid int) {
	if l.notifier == nil {
		return
	}

	select {
	case l.pending <- struct{}{}:
	default:
		metrics.IncAccountingFailure()
		log.Error(fmt.Sprintf("Accounting backlog full, dropped session notification for %d", cid))
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() { <-l.pending }()

		ctx, cancel := context.WithTimeout(context.Background(), l.notifyTimeout)
		defer cancel()
		if err := l.notifier.SessionOpened(ctx, cid); err != nil {
			metrics.IncAccountingFailure()
			log.Error(fmt.Sprintf("Failed to notify accounting of session for %d: %s", cid, err.Error()))
		}
	}()
}

// Wait blocks until every notification in flight has finished.
func (l *Ledger) Wait() {
	l.wg.Wait()
}
