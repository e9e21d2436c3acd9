package storage

import (
	"context"
	"time"

	"ap-tracker/internal/models"
)

const questColumns = `id, user_id, name, status, minutes_logged, notes, created_at, updated_at`

// CreateQuest inserts a not-started quest.
func (q *Queries) CreateQuest(ctx context.Context, userID int64, name string) (*models.Quest, error) {
	now := toMillis(time.Now())
	id, err := q.insert(ctx,
		"INSERT INTO quests (user_id, name, status, minutes_logged, notes, created_at, updated_at) VALUES (?, ?, ?, 0, '', ?, ?)",
		userID, name, string(models.QuestNotStarted), now, now,
	)
	if err != nil {
		return nil, err
	}
	return q.GetQuest(ctx, userID, id)
}

// GetQuest returns one quest owned by userID.
func (q *Queries) GetQuest(ctx context.Context, userID, questID int64) (*models.Quest, error) {
	return scanQuest(q.queryRow(ctx,
		"SELECT "+questColumns+" FROM quests WHERE user_id = ? AND id = ?",
		userID, questID,
	))
}

// GetActiveQuest returns the user's active quest, or ErrNotFound.
func (q *Queries) GetActiveQuest(ctx context.Context, userID int64) (*models.Quest, error) {
	return scanQuest(q.queryRow(ctx,
		"SELECT "+questColumns+" FROM quests WHERE user_id = ? AND status = ?",
		userID, string(models.QuestActive),
	))
}

// ListQuests returns a user's quests ordered by name.
func (q *Queries) ListQuests(ctx context.Context, userID int64) ([]models.Quest, error) {
	rows, err := q.query(ctx,
		"SELECT "+questColumns+" FROM quests WHERE user_id = ? ORDER BY name",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []models.Quest
	for rows.Next() {
		qu, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, *qu)
	}
	return quests, rows.Err()
}

// SetQuestStatus changes the status of one quest.
func (q *Queries) SetQuestStatus(ctx context.Context, userID, questID int64, status models.QuestStatus) error {
	res, err := q.exec(ctx,
		"UPDATE quests SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		string(status), toMillis(time.Now()), userID, questID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DemoteActiveQuests moves any active quest of the user back to not_started.
func (q *Queries) DemoteActiveQuests(ctx context.Context, userID int64) error {
	_, err := q.exec(ctx,
		"UPDATE quests SET status = ?, updated_at = ? WHERE user_id = ? AND status = ?",
		string(models.QuestNotStarted), toMillis(time.Now()), userID, string(models.QuestActive),
	)
	return err
}

// AddQuestMinutes adjusts minutes_logged by delta, never going below zero.
func (q *Queries) AddQuestMinutes(ctx context.Context, userID, questID int64, delta int) error {
	res, err := q.exec(ctx, `
		UPDATE quests
		SET minutes_logged = CASE WHEN minutes_logged + ? < 0 THEN 0 ELSE minutes_logged + ? END,
		    updated_at = ?
		WHERE user_id = ? AND id = ?`,
		delta, delta, toMillis(time.Now()), userID, questID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateQuestNotes replaces the notes of a quest.
func (q *Queries) UpdateQuestNotes(ctx context.Context, userID, questID int64, notes string) error {
	res, err := q.exec(ctx,
		"UPDATE quests SET notes = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		notes, toMillis(time.Now()), userID, questID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteQuest removes a quest. Entries that referenced it keep their rows
// with quest_id cleared by the foreign key.
func (q *Queries) DeleteQuest(ctx context.Context, userID, questID int64) error {
	res, err := q.exec(ctx, "DELETE FROM quests WHERE user_id = ? AND id = ?", userID, questID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// QuestCounts returns the total and completed quest counts of a user.
func (q *Queries) QuestCounts(ctx context.Context, userID int64) (total, completed int, err error) {
	err = q.queryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM quests WHERE user_id = ?`,
		string(models.QuestCompleted), userID,
	).Scan(&total, &completed)
	return total, completed, err
}

func scanQuest(row rowScanner) (*models.Quest, error) {
	var (
		qu        models.Quest
		status    string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&qu.ID, &qu.UserID, &qu.Name, &status, &qu.MinutesLogged, &qu.Notes, &createdAt, &updatedAt); err != nil {
		return nil, translateError(err)
	}
	qu.Status = models.QuestStatus(status)
	qu.CreatedAt = fromMillis(createdAt)
	qu.UpdatedAt = fromMillis(updatedAt)
	return &qu, nil
}
