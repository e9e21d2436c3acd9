package tracker

import (
	"context"
	"errors"
	"time"

	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"
)

// Status is a point-in-time summary of a user's totals and gates.
type Status struct {
	Now             time.Time
	Settings        models.UserSettings
	Today           models.Totals
	Week            models.Totals
	Balance         int
	ActiveQuest     *models.Quest
	QuestsTotal     int
	QuestsCompleted int
	UnlockedToday   bool
	SaturdayLocked  bool
	SpendOptions    []SpendOption
}

// CanSpend reports whether the unlock threshold is met and the Saturday lock is off.
func (st *Status) CanSpend() bool {
	return st.UnlockedToday && !st.SaturdayLocked
}

// RemainingEarn is how much more AP can be earned today.
func (st *Status) RemainingEarn() int {
	if rem := st.Settings.DailyEarnCap - st.Today.Earned; rem > 0 {
		return rem
	}
	return 0
}

// Status reads everything the dashboard needs in one consistent snapshot.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	var st *Status
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		now := s.clock.Now()
		settings, today, err := s.settingsAndToday(ctx, q, userID, now)
		if err != nil {
			return err
		}
		weekStart, weekEnd := WeekRange(now, s.loc, s.weekStart)
		week, err := q.SumWindow(ctx, userID, weekStart, weekEnd)
		if err != nil {
			return err
		}
		bal, err := balance(ctx, q, userID)
		if err != nil {
			return err
		}
		active, err := q.GetActiveQuest(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			active, err = nil, nil
		}
		if err != nil {
			return err
		}
		total, completed, err := q.QuestCounts(ctx, userID)
		if err != nil {
			return err
		}

		st = &Status{
			Now:             now.In(s.loc),
			Settings:        *settings,
			Today:           today,
			Week:            week,
			Balance:         bal,
			ActiveQuest:     active,
			QuestsTotal:     total,
			QuestsCompleted: completed,
			UnlockedToday:   Unlocked(*settings, today),
			SaturdayLocked:  SaturdayLocked(*settings, now, s.loc),
		}
		st.SpendOptions = SpendGate{
			HasActiveQuest: active != nil,
			SaturdayLocked: st.SaturdayLocked,
			UnlockTime:     settings.SaturdayUnlockTime,
			UnlockedToday:  st.UnlockedToday,
			Balance:        bal,
		}.Options()
		return nil
	})
	return st, err
}
