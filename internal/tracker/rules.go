package tracker

import (
	"time"

	"ap-tracker/internal/models"
)

// SpendCost is an allowed spend amount and the session minutes it buys.
type SpendCost struct {
	AP      int
	Minutes int
}

// SpendCosts are the only amounts that can be spent, cheapest first.
var SpendCosts = []SpendCost{
	{AP: 10, Minutes: 30},
	{AP: 18, Minutes: 60},
	{AP: 30, Minutes: 120},
}

// MaxEarnAP bounds the AP of a single earn entry or preset.
const MaxEarnAP = 1000

// MinutesFor returns the session length bought by cost.
func MinutesFor(cost int) (int, bool) {
	for _, c := range SpendCosts {
		if c.AP == cost {
			return c.Minutes, true
		}
	}
	return 0, false
}

// DayRange returns local midnight of now's day and the following midnight.
func DayRange(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// WeekRange returns the seven day window containing now that begins on weekStart.
func WeekRange(now time.Time, loc *time.Location, weekStart time.Weekday) (start, end time.Time) {
	local := now.In(loc)
	offset := (int(local.Weekday()) - int(weekStart) + 7) % 7
	start = time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}

// MonthRange returns the first instant of the month and of the next one.
func MonthRange(year int, month time.Month, loc *time.Location) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// WithinCap reports whether earning amount more today stays within the daily cap.
func WithinCap(s models.UserSettings, today models.Totals, amount int) bool {
	return amount <= s.DailyEarnCap-today.Earned
}

// Unlocked reports whether today's net AP meets the unlock threshold.
func Unlocked(s models.UserSettings, today models.Totals) bool {
	return today.Net >= s.UnlockNetAPToday
}

// SaturdayLocked reports whether spending is blocked at now: the lock is
// enabled, it is Saturday in loc, and the unlock time has not been reached.
func SaturdayLocked(s models.UserSettings, now time.Time, loc *time.Location) bool {
	if !s.SaturdayLockEnabled {
		return false
	}
	local := now.In(loc)
	if local.Weekday() != time.Saturday {
		return false
	}
	return models.Of(local) < s.SaturdayUnlockTime
}

// SpendOption describes whether one of the fixed costs can be spent right now.
type SpendOption struct {
	Cost    int
	Minutes int
	Enabled bool
	Reason  string
}

// SpendGate is the state the spend rules are evaluated against.
type SpendGate struct {
	HasActiveQuest bool
	SaturdayLocked bool
	UnlockTime     models.TimeOfDay
	UnlockedToday  bool
	Balance        int
}

// Options evaluates every fixed cost against the gate. Reasons follow the
// order the spend operation checks them in.
func (g SpendGate) Options() []SpendOption {
	opts := make([]SpendOption, 0, len(SpendCosts))
	for _, c := range SpendCosts {
		opt := SpendOption{Cost: c.AP, Minutes: c.Minutes, Enabled: true}
		switch {
		case !g.HasActiveQuest:
			opt.Reason = "Select an active quest"
		case !g.UnlockedToday:
			opt.Reason = "Net AP today below unlock"
		case g.SaturdayLocked:
			opt.Reason = "Locked until " + g.UnlockTime.String()
		case g.Balance < c.AP:
			opt.Reason = "Insufficient balance"
		}
		opt.Enabled = opt.Reason == ""
		opts = append(opts, opt)
	}
	return opts
}
