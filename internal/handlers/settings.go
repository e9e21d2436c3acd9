package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"ap-tracker/internal/models"
	"ap-tracker/internal/tracker"
)

// SettingsViewModel is the data passed to the settings template.
type SettingsViewModel struct {
	Page
	Settings *models.UserSettings
}

// Settings renders the rule settings form.
func (h *Handlers) Settings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	settings, err := h.svc.GetSettings(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "settings.html", SettingsViewModel{Page: h.page(w, r, "settings"), Settings: settings})
}

// UpdateSettings saves the rule settings form.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := r.ParseForm(); err != nil {
		h.done(w, r, "/settings", "Invalid form submission.")
		return
	}

	unlockTime, err := models.ParseTimeOfDay(strings.TrimSpace(r.FormValue("saturday_unlock_time")))
	if err != nil {
		h.done(w, r, "/settings", "Saturday unlock time must be HH:MM.")
		return
	}
	dailyCap, err := strconv.Atoi(strings.TrimSpace(r.FormValue("daily_earn_cap")))
	if err != nil {
		h.done(w, r, "/settings", "Daily earn cap must be a whole number.")
		return
	}
	unlockNet, err := strconv.Atoi(strings.TrimSpace(r.FormValue("unlock_net_ap_today")))
	if err != nil {
		h.done(w, r, "/settings", "Unlock threshold must be a whole number.")
		return
	}

	_, err = h.svc.UpdateSettings(r.Context(), user.ID, tracker.SettingsInput{
		SaturdayLockEnabled: r.FormValue("saturday_lock_enabled") != "",
		SaturdayUnlockTime:  unlockTime,
		DailyEarnCap:        dailyCap,
		UnlockNetAPToday:    unlockNet,
	})
	if err != nil {
		h.fail(w, r, "/settings", err)
		return
	}
	h.done(w, r, "/settings", "Settings saved.")
}
