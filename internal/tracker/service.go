// Package tracker holds the Activity Point rules: daily totals, the earn
// cap, the unlock threshold, the Saturday lock and the ledger mutations
// that depend on them. Every mutation runs in a single store transaction.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ap-tracker/internal/clock"
	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"
)

// Service evaluates rules and applies mutations for one store.
type Service struct {
	db        *storage.DB
	clock     clock.Clock
	loc       *time.Location
	weekStart time.Weekday
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the time zone that day and week windows are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithWeekStart sets the first day of the week window.
func WithWeekStart(d time.Weekday) Option {
	return func(s *Service) { s.weekStart = d }
}

// NewService creates a Service using the real clock, the local time zone
// and Monday-start weeks unless overridden.
func NewService(db *storage.DB, opts ...Option) *Service {
	s := &Service{
		db:        db,
		clock:     clock.Real(),
		loc:       time.Local,
		weekStart: time.Monday,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the time zone windows are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the current time in the service's time zone.
func (s *Service) Now() time.Time {
	return s.clock.Now().In(s.loc)
}

// TodayTotals sums today's earned and spent AP.
func (s *Service) TodayTotals(ctx context.Context, userID int64) (models.Totals, error) {
	return s.todayTotals(ctx, s.db.Queries, userID, s.clock.Now())
}

// WeekTotals sums earned and spent AP for the current week.
func (s *Service) WeekTotals(ctx context.Context, userID int64) (models.Totals, error) {
	start, end := WeekRange(s.clock.Now(), s.loc, s.weekStart)
	return s.db.SumWindow(ctx, userID, start, end)
}

// Balance returns all-time earned minus all-time spent.
func (s *Service) Balance(ctx context.Context, userID int64) (int, error) {
	return balance(ctx, s.db.Queries, userID)
}

// CanEarn reports whether amount more AP fits under today's cap.
func (s *Service) CanEarn(ctx context.Context, userID int64, amount int) (bool, error) {
	settings, today, err := s.settingsAndToday(ctx, s.db.Queries, userID, s.clock.Now())
	if err != nil {
		return false, err
	}
	return WithinCap(*settings, today, amount), nil
}

// IsUnlockedToday reports whether today's net AP meets the unlock threshold.
func (s *Service) IsUnlockedToday(ctx context.Context, userID int64) (bool, error) {
	settings, today, err := s.settingsAndToday(ctx, s.db.Queries, userID, s.clock.Now())
	if err != nil {
		return false, err
	}
	return Unlocked(*settings, today), nil
}

// IsSaturdayLockedNow reports whether the Saturday lock blocks spending at now.
func (s *Service) IsSaturdayLockedNow(ctx context.Context, userID int64, now time.Time) (bool, error) {
	settings, err := s.settings(ctx, s.db.Queries, userID)
	if err != nil {
		return false, err
	}
	return SaturdayLocked(*settings, now, s.loc), nil
}

// CategoryTotals returns earned AP per category for a calendar month.
func (s *Service) CategoryTotals(ctx context.Context, userID int64, year int, month time.Month) ([]models.CategoryTotal, error) {
	start, end := MonthRange(year, month, s.loc)
	return s.db.CategoryTotals(ctx, userID, start, end)
}

// MonthEntries returns a calendar month's entries, newest first.
func (s *Service) MonthEntries(ctx context.Context, userID int64, year int, month time.Month) ([]models.Entry, error) {
	start, end := MonthRange(year, month, s.loc)
	return s.db.ListEntriesBetween(ctx, userID, start, end)
}

func (s *Service) todayTotals(ctx context.Context, q *storage.Queries, userID int64, now time.Time) (models.Totals, error) {
	start, end := DayRange(now, s.loc)
	return q.SumWindow(ctx, userID, start, end)
}

func (s *Service) settings(ctx context.Context, q *storage.Queries, userID int64) (*models.UserSettings, error) {
	settings, err := q.GetSettings(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("settings for user %d: %w", userID, err)
	}
	return settings, err
}

func (s *Service) settingsAndToday(ctx context.Context, q *storage.Queries, userID int64, now time.Time) (*models.UserSettings, models.Totals, error) {
	settings, err := s.settings(ctx, q, userID)
	if err != nil {
		return nil, models.Totals{}, err
	}
	today, err := s.todayTotals(ctx, q, userID, now)
	if err != nil {
		return nil, models.Totals{}, err
	}
	return settings, today, nil
}

func balance(ctx context.Context, q *storage.Queries, userID int64) (int, error) {
	all, err := q.SumAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	return all.Net, nil
}
