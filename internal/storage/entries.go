package storage

import (
	"context"
	"database/sql"
	"time"

	"ap-tracker/internal/models"
)

const entryColumns = `e.id, e.user_id, e.ts, e.kind, e.label, e.category, e.ap, e.quest_id, COALESCE(q.name, ''), e.minutes`

// CreateEntry appends a ledger entry. A zero Timestamp is replaced by the current time.
func (q *Queries) CreateEntry(ctx context.Context, e models.Entry) (*models.Entry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	id, err := q.insert(ctx, `
		INSERT INTO entries (user_id, ts, kind, label, category, ap, quest_id, minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, toMillis(e.Timestamp), string(e.Kind), e.Label, string(e.Category), e.AP,
		toNullInt64(e.QuestID), e.Minutes,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.Timestamp = fromMillis(toMillis(e.Timestamp))
	return &e, nil
}

// SumWindow sums earned and spent AP for entries with start <= ts < end.
func (q *Queries) SumWindow(ctx context.Context, userID int64, start, end time.Time) (models.Totals, error) {
	return q.sumTotals(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = ? THEN ap ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? THEN ap ELSE 0 END), 0)
		FROM entries
		WHERE user_id = ? AND ts >= ? AND ts < ?`,
		string(models.KindEarn), string(models.KindSpend), userID, toMillis(start), toMillis(end),
	)
}

// SumAll sums earned and spent AP over the user's whole ledger.
func (q *Queries) SumAll(ctx context.Context, userID int64) (models.Totals, error) {
	return q.sumTotals(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = ? THEN ap ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? THEN ap ELSE 0 END), 0)
		FROM entries
		WHERE user_id = ?`,
		string(models.KindEarn), string(models.KindSpend), userID,
	)
}

func (q *Queries) sumTotals(ctx context.Context, query string, args ...any) (models.Totals, error) {
	var t models.Totals
	if err := q.queryRow(ctx, query, args...).Scan(&t.Earned, &t.Spent); err != nil {
		return models.Totals{}, err
	}
	t.Net = t.Earned - t.Spent
	return t, nil
}

// LatestSpend returns the most recent spend entry of a user, or ErrNotFound.
func (q *Queries) LatestSpend(ctx context.Context, userID int64) (*models.Entry, error) {
	return scanEntry(q.queryRow(ctx, `
		SELECT `+entryColumns+`
		FROM entries e
		LEFT JOIN quests q ON q.id = e.quest_id
		WHERE e.user_id = ? AND e.kind = ?
		ORDER BY e.ts DESC, e.id DESC
		LIMIT 1`,
		userID, string(models.KindSpend),
	))
}

// DeleteEntry removes a ledger entry.
func (q *Queries) DeleteEntry(ctx context.Context, userID, entryID int64) error {
	res, err := q.exec(ctx, "DELETE FROM entries WHERE user_id = ? AND id = ?", userID, entryID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListEntries returns the newest entries first. A limit of 0 returns all of them.
func (q *Queries) ListEntries(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries e
		LEFT JOIN quests q ON q.id = e.quest_id
		WHERE e.user_id = ?
		ORDER BY e.ts DESC, e.id DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListEntriesBetween returns entries with start <= ts < end, newest first.
func (q *Queries) ListEntriesBetween(ctx context.Context, userID int64, start, end time.Time) ([]models.Entry, error) {
	rows, err := q.query(ctx, `
		SELECT `+entryColumns+`
		FROM entries e
		LEFT JOIN quests q ON q.id = e.quest_id
		WHERE e.user_id = ? AND e.ts >= ? AND e.ts < ?
		ORDER BY e.ts DESC, e.id DESC`,
		userID, toMillis(start), toMillis(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// CategoryTotals returns earned AP per category for entries with start <= ts < end,
// largest total first.
func (q *Queries) CategoryTotals(ctx context.Context, userID int64, start, end time.Time) ([]models.CategoryTotal, error) {
	rows, err := q.query(ctx, `
		SELECT category, COALESCE(SUM(ap), 0), COUNT(*)
		FROM entries
		WHERE user_id = ? AND kind = ? AND ts >= ? AND ts < ?
		GROUP BY category
		ORDER BY 2 DESC, category`,
		userID, string(models.KindEarn), toMillis(start), toMillis(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		var category string
		if err := rows.Scan(&category, &ct.Total, &ct.Count); err != nil {
			return nil, err
		}
		ct.Category = models.Category(category)
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e        models.Entry
		ts       int64
		kind     string
		category string
		questID  sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.UserID, &ts, &kind, &e.Label, &category, &e.AP, &questID, &e.QuestName, &e.Minutes); err != nil {
		return nil, translateError(err)
	}
	e.Timestamp = fromMillis(ts)
	e.Kind = models.EntryKind(kind)
	e.Category = models.Category(category)
	e.QuestID = fromNullInt64(questID)
	return &e, nil
}
