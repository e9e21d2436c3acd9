package tracker

import (
	"context"
	"time"

	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"
)

// Export is a full snapshot of one user's tracker data.
type Export struct {
	User       string              `json:"user" yaml:"user"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Balance    int                 `json:"balance" yaml:"balance"`
	Settings   models.UserSettings `json:"settings" yaml:"settings"`
	Quests     []models.Quest      `json:"quests" yaml:"quests"`
	Presets    []models.EarnPreset `json:"presets" yaml:"presets"`
	Entries    []models.Entry      `json:"entries" yaml:"entries"`
}

// Export reads everything belonging to the user, entries newest first.
func (s *Service) Export(ctx context.Context, user *models.User) (*Export, error) {
	out := &Export{User: user.Username, ExportedAt: s.clock.Now().In(s.loc)}
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		settings, err := s.settings(ctx, q, user.ID)
		if err != nil {
			return err
		}
		out.Settings = *settings
		if out.Balance, err = balance(ctx, q, user.ID); err != nil {
			return err
		}
		if out.Quests, err = q.ListQuests(ctx, user.ID); err != nil {
			return err
		}
		if out.Presets, err = q.ListPresets(ctx, user.ID, false); err != nil {
			return err
		}
		out.Entries, err = q.ListEntries(ctx, user.ID, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
