package storage

import (
	"context"
	"time"

	"ap-tracker/internal/models"
)

const presetColumns = `id, user_id, label, category, ap, icon_key, is_active, sort_order, created_at, updated_at`

// CreatePreset inserts a preset and returns it with its ID set.
func (q *Queries) CreatePreset(ctx context.Context, p models.EarnPreset) (*models.EarnPreset, error) {
	now := time.Now()
	id, err := q.insert(ctx, `
		INSERT INTO earn_presets (user_id, label, category, ap, icon_key, is_active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Label, string(p.Category), p.AP, p.IconKey, boolToInt(p.IsActive), p.SortOrder,
		toMillis(now), toMillis(now),
	)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.CreatedAt = fromMillis(toMillis(now))
	p.UpdatedAt = p.CreatedAt
	return &p, nil
}

// GetPreset returns one preset owned by userID.
func (q *Queries) GetPreset(ctx context.Context, userID, presetID int64) (*models.EarnPreset, error) {
	return scanPreset(q.queryRow(ctx,
		"SELECT "+presetColumns+" FROM earn_presets WHERE user_id = ? AND id = ?",
		userID, presetID,
	))
}

// ListPresets returns a user's presets in display order (sort_order, label).
func (q *Queries) ListPresets(ctx context.Context, userID int64, activeOnly bool) ([]models.EarnPreset, error) {
	query := "SELECT " + presetColumns + " FROM earn_presets WHERE user_id = ?"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY sort_order, label"

	rows, err := q.query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []models.EarnPreset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

// CountPresets returns how many presets a user has.
func (q *Queries) CountPresets(ctx context.Context, userID int64) (int, error) {
	var n int
	err := q.queryRow(ctx, "SELECT COUNT(*) FROM earn_presets WHERE user_id = ?", userID).Scan(&n)
	return n, err
}

// MaxPresetSortOrder returns the highest sort_order in use, or 0 when the user has no presets.
func (q *Queries) MaxPresetSortOrder(ctx context.Context, userID int64) (int, error) {
	var n int
	err := q.queryRow(ctx,
		"SELECT COALESCE(MAX(sort_order), 0) FROM earn_presets WHERE user_id = ?", userID,
	).Scan(&n)
	return n, err
}

// SetPresetActive sets the is_active flag of a preset.
func (q *Queries) SetPresetActive(ctx context.Context, userID, presetID int64, active bool) error {
	res, err := q.exec(ctx,
		"UPDATE earn_presets SET is_active = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		boolToInt(active), toMillis(time.Now()), userID, presetID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetPresetSortOrder moves a preset to the given sort position.
func (q *Queries) SetPresetSortOrder(ctx context.Context, userID, presetID int64, sortOrder int) error {
	res, err := q.exec(ctx,
		"UPDATE earn_presets SET sort_order = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		sortOrder, toMillis(time.Now()), userID, presetID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeletePreset removes a preset. Past entries keep their own copy of the label.
func (q *Queries) DeletePreset(ctx context.Context, userID, presetID int64) error {
	res, err := q.exec(ctx, "DELETE FROM earn_presets WHERE user_id = ? AND id = ?", userID, presetID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanPreset(row rowScanner) (*models.EarnPreset, error) {
	var (
		p         models.EarnPreset
		category  string
		activeInt int
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Label, &category, &p.AP, &p.IconKey, &activeInt, &p.SortOrder, &createdAt, &updatedAt); err != nil {
		return nil, translateError(err)
	}
	p.Category = models.Category(category)
	p.IsActive = activeInt != 0
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}
