package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const batchSize = 100

type Store struct {
	db *gorm.DB
}

// replace swaps the whole table for rows inside one transaction. Readers keep
// seeing the previous snapshot until commit and a failure leaves it intact.
func replace[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model T
		if err := tx.Where("1 = 1").Delete(&model).Error; err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, batchSize).Error; err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})
}

func (s *Store) ReplacePilots(ctx context.Context, rows []PilotOnline) error {
	if err := replace(ctx, s.db, rows); err != nil {
		return fmt.Errorf("replace pilots: %w", err)
	}
	return nil
}

func (s *Store) ReplaceControllers(ctx context.Context, rows []AtcOnline) error {
	if err := replace(ctx, s.db, rows); err != nil {
		return fmt.Errorf("replace controllers: %w", err)
	}
	return nil
}

func (s *Store) ReplaceAtis(ctx context.Context, rows []AtisOnline) error {
	if err := replace(ctx, s.db, rows); err != nil {
		return fmt.Errorf("replace atis: %w", err)
	}
	return nil
}

// FindSession returns the session opened by cid at start, or nil if there is
// none.
func (s *Store) FindSession(ctx context.Context, cid int, start time.Time) (*ControllerHours, error) {
	session := &ControllerHours{}
	err := s.db.WithContext(ctx).Where("cid = ? AND time_start = ?", cid, start.UTC()).First(session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session %d: %w", cid, err)
	}
	return session, nil
}

func (s *Store) CreateSession(ctx context.Context, session *ControllerHours) error {
	session.TimeStart = session.TimeStart.UTC()
	session.TimeEnd = session.TimeEnd.UTC()
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) SaveSession(ctx context.Context, session *ControllerHours) error {
	session.TimeEnd = session.TimeEnd.UTC()
	return s.db.WithContext(ctx).Save(session).Error
}

// PurgeReports deletes automatically ingested reports older than before.
// Manual reports are never touched.
func (s *Store) PurgeReports(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("manual = ? AND report_time < ?", false, before.UTC()).Delete(&Pirep{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge reports: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) ReportExists(ctx context.Context, raw string, reportTime time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Pirep{}).Where("raw = ? AND report_time = ?", raw, reportTime.UTC()).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup report: %w", err)
	}
	return count > 0, nil
}

func (s *Store) CreateReport(ctx context.Context, report *Pirep) error {
	report.ReportTime = report.ReportTime.UTC()
	return s.db.WithContext(ctx).Create(report).Error
}
