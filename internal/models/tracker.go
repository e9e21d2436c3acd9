package models

import (
	"fmt"
	"time"
)

// Category classifies earn presets and ledger entries.
type Category string

const (
	CategoryBase   Category = "Base"
	CategoryCareer Category = "Career"
	CategoryHealth Category = "Health"
	CategoryBudget Category = "Budget"
	// CategoryOSRS is only used for spend and quest completion entries.
	CategoryOSRS Category = "OSRS"
)

// PresetCategories lists the categories a preset or custom earn may use, in display order.
var PresetCategories = []Category{CategoryBase, CategoryCareer, CategoryHealth, CategoryBudget}

// ParsePresetCategory returns the preset category named by s.
func ParsePresetCategory(s string) (Category, error) {
	for _, c := range PresetCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// EntryKind is the type of a ledger entry.
type EntryKind string

const (
	KindEarn          EntryKind = "earn"
	KindSpend         EntryKind = "spend"
	KindQuestComplete EntryKind = "quest_complete"
)

// QuestStatus is the lifecycle state of a quest.
type QuestStatus string

const (
	QuestNotStarted QuestStatus = "not_started"
	QuestActive     QuestStatus = "active"
	QuestCompleted  QuestStatus = "completed"
)

// Label returns the human readable name of the status.
func (s QuestStatus) Label() string {
	switch s {
	case QuestActive:
		return "Active"
	case QuestCompleted:
		return "Completed"
	default:
		return "Not started"
	}
}

// TimeOfDay is a wall clock time stored as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// Of returns the time of day of t in t's location.
func Of(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText encodes the time as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UserSettings holds the per-user rule configuration.
type UserSettings struct {
	UserID              int64     `json:"-" yaml:"-"`
	SaturdayLockEnabled bool      `json:"saturday_lock_enabled" yaml:"saturday_lock_enabled"`
	SaturdayUnlockTime  TimeOfDay `json:"saturday_unlock_time" yaml:"saturday_unlock_time"`
	DailyEarnCap        int       `json:"daily_earn_cap" yaml:"daily_earn_cap"`
	UnlockNetAPToday    int       `json:"unlock_net_ap_today" yaml:"unlock_net_ap_today"`
	CreatedAt           time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"updated_at"`
}

// DefaultSettings returns the settings every new user starts with.
func DefaultSettings(userID int64) UserSettings {
	return UserSettings{
		UserID:             userID,
		SaturdayUnlockTime: TimeOfDay(10*60 + 30),
		DailyEarnCap:       65,
		UnlockNetAPToday:   15,
	}
}

// EarnPreset is a reusable template for a common earn action.
type EarnPreset struct {
	ID        int64     `json:"id" yaml:"id"`
	UserID    int64     `json:"-" yaml:"-"`
	Label     string    `json:"label" yaml:"label"`
	Category  Category  `json:"category" yaml:"category"`
	AP        int       `json:"ap" yaml:"ap"`
	IconKey   string    `json:"icon_key,omitempty" yaml:"icon_key,omitempty"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
	SortOrder int       `json:"sort_order" yaml:"sort_order"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Quest is a goal that accumulates logged session minutes.
type Quest struct {
	ID            int64       `json:"id" yaml:"id"`
	UserID        int64       `json:"-" yaml:"-"`
	Name          string      `json:"name" yaml:"name"`
	Status        QuestStatus `json:"status" yaml:"status"`
	MinutesLogged int         `json:"minutes_logged" yaml:"minutes_logged"`
	Notes         string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Entry is an immutable ledger record.
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	UserID    int64     `json:"-" yaml:"-"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Kind      EntryKind `json:"kind" yaml:"kind"`
	Label     string    `json:"label" yaml:"label"`
	Category  Category  `json:"category" yaml:"category"`
	AP        int       `json:"ap" yaml:"ap"`
	QuestID   *int64    `json:"quest_id,omitempty" yaml:"quest_id,omitempty"`
	// QuestName is filled by list queries that join the quest.
	QuestName string `json:"quest_name,omitempty" yaml:"quest_name,omitempty"`
	Minutes   int    `json:"minutes" yaml:"minutes"`
}

// Totals is the earned/spent split over some window.
type Totals struct {
	Earned int `json:"earned" yaml:"earned"`
	Spent  int `json:"spent" yaml:"spent"`
	Net    int `json:"net" yaml:"net"`
}

// CategoryTotal aggregates earned AP for one category.
type CategoryTotal struct {
	Category Category
	Total    int
	Count    int
}
