package tracker

import (
	"context"
	"errors"
	"strings"

	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"
)

const (
	spendLabel         = "Quest session"
	questCompleteLabel = "Quest completed"
)

// EarnFromPreset records an earn entry copied from one of the user's presets.
func (s *Service) EarnFromPreset(ctx context.Context, userID, presetID int64) (*models.Entry, error) {
	var entry *models.Entry
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		preset, err := q.GetPreset(ctx, userID, presetID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("Preset not found.")
		}
		if err != nil {
			return err
		}
		entry, err = s.earn(ctx, q, userID, preset.Label, preset.Category, preset.AP)
		return err
	})
	return entry, err
}

// CreateCustomEarn records an earn entry that has no preset behind it.
func (s *Service) CreateCustomEarn(ctx context.Context, userID int64, label string, category models.Category, ap int) (*models.Entry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, invalid("Label is required.")
	}
	if ap <= 0 {
		return nil, invalid("AP must be a positive number.")
	}
	if ap > MaxEarnAP {
		return nil, invalid("AP cannot exceed %d.", MaxEarnAP)
	}
	if _, err := models.ParsePresetCategory(string(category)); err != nil {
		return nil, invalid("Choose a valid category.")
	}

	var entry *models.Entry
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		entry, err = s.earn(ctx, q, userID, label, category, ap)
		return err
	})
	return entry, err
}

func (s *Service) earn(ctx context.Context, q *storage.Queries, userID int64, label string, category models.Category, ap int) (*models.Entry, error) {
	now := s.clock.Now()
	settings, today, err := s.settingsAndToday(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	if !WithinCap(*settings, today, ap) {
		return nil, invalid("Daily AP cap reached.")
	}
	return q.CreateEntry(ctx, models.Entry{
		UserID:    userID,
		Timestamp: now,
		Kind:      models.KindEarn,
		Label:     label,
		Category:  category,
		AP:        ap,
	})
}

// SpendAP logs a quest session on the active quest. The spend entry and the
// quest's minutes are written in the same transaction.
func (s *Service) SpendAP(ctx context.Context, userID int64, cost int) (*models.Quest, error) {
	minutes, ok := MinutesFor(cost)
	if !ok {
		return nil, invalid("invalid cost: spend amount must be 10, 18, or 30 AP.")
	}

	var quest *models.Quest
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		now := s.clock.Now()

		active, err := q.GetActiveQuest(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("Select an active quest before spending AP.")
		}
		if err != nil {
			return err
		}

		settings, today, err := s.settingsAndToday(ctx, q, userID, now)
		if err != nil {
			return err
		}
		if !Unlocked(*settings, today) {
			return invalid("OSRS spending locked until your net AP today meets the unlock threshold.")
		}
		if SaturdayLocked(*settings, now, s.loc) {
			return invalid("OSRS spending is locked until the Saturday unlock time (%s).", settings.SaturdayUnlockTime)
		}

		bal, err := balance(ctx, q, userID)
		if err != nil {
			return err
		}
		if bal < cost {
			return invalid("Insufficient AP balance.")
		}

		questID := active.ID
		if _, err := q.CreateEntry(ctx, models.Entry{
			UserID:    userID,
			Timestamp: now,
			Kind:      models.KindSpend,
			Label:     spendLabel,
			Category:  models.CategoryOSRS,
			AP:        cost,
			QuestID:   &questID,
			Minutes:   minutes,
		}); err != nil {
			return err
		}
		if err := q.AddQuestMinutes(ctx, userID, active.ID, minutes); err != nil {
			return err
		}
		active.MinutesLogged += minutes
		quest = active
		return nil
	})
	return quest, err
}

// UndoLastSpend deletes the most recent spend entry and takes its minutes
// back off the linked quest, never below zero.
func (s *Service) UndoLastSpend(ctx context.Context, userID int64) (*models.Entry, error) {
	var undone *models.Entry
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		last, err := q.LatestSpend(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("No spend entries to undo.")
		}
		if err != nil {
			return err
		}
		if err := q.DeleteEntry(ctx, userID, last.ID); err != nil {
			return err
		}
		if last.QuestID != nil && last.Minutes > 0 {
			if err := q.AddQuestMinutes(ctx, userID, *last.QuestID, -last.Minutes); err != nil {
				return err
			}
		}
		undone = last
		return nil
	})
	return undone, err
}

// SetActiveQuest makes questID the user's only active quest. Any other
// active quest goes back to not started.
func (s *Service) SetActiveQuest(ctx context.Context, userID, questID int64) (*models.Quest, error) {
	var quest *models.Quest
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		target, err := q.GetQuest(ctx, userID, questID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("Quest not found.")
		}
		if err != nil {
			return err
		}
		if target.Status == models.QuestCompleted {
			return invalid("Completed quests cannot be set active.")
		}
		if err := q.DemoteActiveQuests(ctx, userID); err != nil {
			return err
		}
		if err := q.SetQuestStatus(ctx, userID, questID, models.QuestActive); err != nil {
			return err
		}
		target.Status = models.QuestActive
		quest = target
		return nil
	})
	return quest, err
}

// MarkQuestComplete closes a quest and records a zero AP completion entry.
func (s *Service) MarkQuestComplete(ctx context.Context, userID, questID int64) (*models.Quest, error) {
	var quest *models.Quest
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		target, err := q.GetQuest(ctx, userID, questID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("Quest not found.")
		}
		if err != nil {
			return err
		}
		if err := q.SetQuestStatus(ctx, userID, questID, models.QuestCompleted); err != nil {
			return err
		}
		id := target.ID
		if _, err := q.CreateEntry(ctx, models.Entry{
			UserID:    userID,
			Timestamp: s.clock.Now(),
			Kind:      models.KindQuestComplete,
			Label:     questCompleteLabel,
			Category:  models.CategoryOSRS,
			AP:        0,
			QuestID:   &id,
		}); err != nil {
			return err
		}
		target.Status = models.QuestCompleted
		quest = target
		return nil
	})
	return quest, err
}
