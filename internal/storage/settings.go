package storage

import (
	"context"
	"time"

	"ap-tracker/internal/models"
)

// EnsureSettings inserts the given settings unless the user already has a row.
func (q *Queries) EnsureSettings(ctx context.Context, s models.UserSettings) error {
	now := toMillis(time.Now())
	_, err := q.exec(ctx, `
		INSERT INTO user_settings (
			user_id, saturday_lock_enabled, saturday_unlock_minute,
			daily_earn_cap, unlock_net_ap_today, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		s.UserID, boolToInt(s.SaturdayLockEnabled), int(s.SaturdayUnlockTime),
		s.DailyEarnCap, s.UnlockNetAPToday, now, now,
	)
	return err
}

// GetSettings returns the settings row of a user.
func (q *Queries) GetSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	row := q.queryRow(ctx, `
		SELECT user_id, saturday_lock_enabled, saturday_unlock_minute,
		       daily_earn_cap, unlock_net_ap_today, created_at, updated_at
		FROM user_settings
		WHERE user_id = ?`,
		userID,
	)

	var (
		s         models.UserSettings
		lockInt   int
		unlockMin int
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&s.UserID, &lockInt, &unlockMin, &s.DailyEarnCap, &s.UnlockNetAPToday, &createdAt, &updatedAt); err != nil {
		return nil, translateError(err)
	}
	s.SaturdayLockEnabled = lockInt != 0
	s.SaturdayUnlockTime = models.TimeOfDay(unlockMin)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

// UpdateSettings overwrites the editable settings fields.
func (q *Queries) UpdateSettings(ctx context.Context, s models.UserSettings) error {
	res, err := q.exec(ctx, `
		UPDATE user_settings
		SET saturday_lock_enabled = ?, saturday_unlock_minute = ?,
		    daily_earn_cap = ?, unlock_net_ap_today = ?, updated_at = ?
		WHERE user_id = ?`,
		boolToInt(s.SaturdayLockEnabled), int(s.SaturdayUnlockTime),
		s.DailyEarnCap, s.UnlockNetAPToday, toMillis(time.Now()), s.UserID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
