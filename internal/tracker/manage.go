package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"
)

// DefaultPresets are created for every new user.
var DefaultPresets = []models.EarnPreset{
	{Label: "Dog walk before phone", Category: models.CategoryBase, AP: 5, IconKey: "dog.svg", SortOrder: 10},
	{Label: "Morning routine complete", Category: models.CategoryBase, AP: 3, IconKey: "default.svg", SortOrder: 20},
	{Label: "No scrolling first 60 min", Category: models.CategoryBase, AP: 5, IconKey: "default.svg", SortOrder: 30},
	{Label: "Workout (30–45 min)", Category: models.CategoryHealth, AP: 12, IconKey: "workout.svg", SortOrder: 40},
	{Label: "Workout (60+ min)", Category: models.CategoryHealth, AP: 15, IconKey: "workout.svg", SortOrder: 50},
	{Label: "Focus block", Category: models.CategoryCareer, AP: 10, IconKey: "focus.svg", SortOrder: 60},
	{Label: "Job application submitted", Category: models.CategoryCareer, AP: 15, IconKey: "job.svg", SortOrder: 70},
	{Label: "Website work", Category: models.CategoryCareer, AP: 10, IconKey: "default.svg", SortOrder: 80},
	{Label: "Log spending", Category: models.CategoryBudget, AP: 5, IconKey: "budget.svg", SortOrder: 90},
	{Label: "No impulse spending", Category: models.CategoryBudget, AP: 5, IconKey: "budget.svg", SortOrder: 100},
	{Label: "Budget review", Category: models.CategoryBudget, AP: 10, IconKey: "budget.svg", SortOrder: 110},
	{Label: "Savings transfer", Category: models.CategoryBudget, AP: 15, IconKey: "budget.svg", SortOrder: 120},
}

// sortStep is the gap left between consecutive preset sort orders.
const sortStep = 10

// RegisterUser creates a user together with their settings and default presets.
func (s *Service) RegisterUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("Username is required.")
	}

	var user *models.User
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		u, err := q.CreateUser(ctx, username, passwordHash)
		if errors.Is(err, storage.ErrDuplicate) {
			return invalid("User %s already exists.", username)
		}
		if err != nil {
			return err
		}
		if err := initializeUser(ctx, q, u.ID); err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// InitializeUser creates missing settings and, when the user has no presets
// at all, the default presets. Calling it again is harmless.
func (s *Service) InitializeUser(ctx context.Context, userID int64) error {
	return s.db.WithTx(ctx, func(q *storage.Queries) error {
		return initializeUser(ctx, q, userID)
	})
}

func initializeUser(ctx context.Context, q *storage.Queries, userID int64) error {
	if err := q.EnsureSettings(ctx, models.DefaultSettings(userID)); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	n, err := q.CountPresets(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, p := range DefaultPresets {
		p.UserID = userID
		p.IsActive = true
		if _, err := q.CreatePreset(ctx, p); err != nil {
			return fmt.Errorf("create preset %q: %w", p.Label, err)
		}
	}
	return nil
}

// CreateQuest adds a not-started quest.
func (s *Service) CreateQuest(ctx context.Context, userID int64, name string) (*models.Quest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("Quest name is required.")
	}
	quest, err := s.db.CreateQuest(ctx, userID, name)
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, invalid("Quest name must be unique.")
	}
	return quest, err
}

// UpdateQuestNotes replaces a quest's notes.
func (s *Service) UpdateQuestNotes(ctx context.Context, userID, questID int64, notes string) error {
	err := s.db.UpdateQuestNotes(ctx, userID, questID, notes)
	if errors.Is(err, storage.ErrNotFound) {
		return invalid("Quest not found.")
	}
	return err
}

// DeleteQuest removes a quest. Ledger entries that referenced it are kept.
func (s *Service) DeleteQuest(ctx context.Context, userID, questID int64) error {
	err := s.db.DeleteQuest(ctx, userID, questID)
	if errors.Is(err, storage.ErrNotFound) {
		return invalid("Quest not found.")
	}
	return err
}

// PresetInput holds the user-editable preset fields.
type PresetInput struct {
	Label    string
	Category models.Category
	AP       int
	IconKey  string
}

// CreatePreset adds an active preset at the end of the display order.
func (s *Service) CreatePreset(ctx context.Context, userID int64, in PresetInput) (*models.EarnPreset, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, invalid("Label is required.")
	}
	if in.AP <= 0 {
		return nil, invalid("AP must be a positive number.")
	}
	if in.AP > MaxEarnAP {
		return nil, invalid("AP cannot exceed %d.", MaxEarnAP)
	}
	if _, err := models.ParsePresetCategory(string(in.Category)); err != nil {
		return nil, invalid("Choose a valid category.")
	}

	var preset *models.EarnPreset
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		maxOrder, err := q.MaxPresetSortOrder(ctx, userID)
		if err != nil {
			return err
		}
		preset, err = q.CreatePreset(ctx, models.EarnPreset{
			UserID:    userID,
			Label:     label,
			Category:  in.Category,
			AP:        in.AP,
			IconKey:   strings.TrimSpace(in.IconKey),
			IsActive:  true,
			SortOrder: maxOrder + sortStep,
		})
		if errors.Is(err, storage.ErrDuplicate) {
			return invalid("Preset label must be unique.")
		}
		return err
	})
	return preset, err
}

// TogglePreset flips whether a preset is offered on the dashboard.
func (s *Service) TogglePreset(ctx context.Context, userID, presetID int64) (*models.EarnPreset, error) {
	var preset *models.EarnPreset
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		p, err := q.GetPreset(ctx, userID, presetID)
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("Preset not found.")
		}
		if err != nil {
			return err
		}
		p.IsActive = !p.IsActive
		if err := q.SetPresetActive(ctx, userID, presetID, p.IsActive); err != nil {
			return err
		}
		preset = p
		return nil
	})
	return preset, err
}

// DeletePreset removes a preset.
func (s *Service) DeletePreset(ctx context.Context, userID, presetID int64) error {
	err := s.db.DeletePreset(ctx, userID, presetID)
	if errors.Is(err, storage.ErrNotFound) {
		return invalid("Preset not found.")
	}
	return err
}

// Direction is the way a preset moves in the display order.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", invalid("Unknown direction %q.", s)
}

// MovePreset swaps a preset's sort order with its neighbour in display
// order. Moving the first preset up or the last one down does nothing.
func (s *Service) MovePreset(ctx context.Context, userID, presetID int64, dir Direction) error {
	return s.db.WithTx(ctx, func(q *storage.Queries) error {
		presets, err := q.ListPresets(ctx, userID, false)
		if err != nil {
			return err
		}

		idx := -1
		for i := range presets {
			if presets[i].ID == presetID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return invalid("Preset not found.")
		}

		other := idx - 1
		if dir == Down {
			other = idx + 1
		}
		if other < 0 || other >= len(presets) {
			return nil
		}

		if presets[idx].SortOrder == presets[other].SortOrder {
			// Equal orders cannot be swapped meaningfully; spread the list out first.
			for i := range presets {
				order := (i + 1) * sortStep
				if presets[i].SortOrder == order {
					continue
				}
				if err := q.SetPresetSortOrder(ctx, userID, presets[i].ID, order); err != nil {
					return err
				}
				presets[i].SortOrder = order
			}
		}

		a, b := presets[idx], presets[other]
		if err := q.SetPresetSortOrder(ctx, userID, a.ID, b.SortOrder); err != nil {
			return err
		}
		return q.SetPresetSortOrder(ctx, userID, b.ID, a.SortOrder)
	})
}

// GetSettings returns the user's rule settings.
func (s *Service) GetSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	return s.settings(ctx, s.db.Queries, userID)
}

// SettingsInput holds the user-editable settings fields.
type SettingsInput struct {
	SaturdayLockEnabled bool
	SaturdayUnlockTime  models.TimeOfDay
	DailyEarnCap        int
	UnlockNetAPToday    int
}

// UpdateSettings validates and stores new settings.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, in SettingsInput) (*models.UserSettings, error) {
	if in.DailyEarnCap < 0 {
		return nil, invalid("Daily earn cap cannot be negative.")
	}
	if in.UnlockNetAPToday < 0 {
		return nil, invalid("Unlock threshold cannot be negative.")
	}
	if in.SaturdayUnlockTime < 0 || in.SaturdayUnlockTime >= 24*60 {
		return nil, invalid("Saturday unlock time must be between 00:00 and 23:59.")
	}

	var updated *models.UserSettings
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		settings, err := s.settings(ctx, q, userID)
		if err != nil {
			return err
		}
		settings.SaturdayLockEnabled = in.SaturdayLockEnabled
		settings.SaturdayUnlockTime = in.SaturdayUnlockTime
		settings.DailyEarnCap = in.DailyEarnCap
		settings.UnlockNetAPToday = in.UnlockNetAPToday
		if err := q.UpdateSettings(ctx, *settings); err != nil {
			return err
		}
		updated = settings
		return nil
	})
	return updated, err
}
