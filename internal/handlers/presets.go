package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ap-tracker/internal/models"
	"ap-tracker/internal/tracker"
)

// presetIcons are the icon files shipped under /static/icons.
var presetIcons = []string{"default.svg", "dog.svg", "workout.svg", "focus.svg", "job.svg", "budget.svg"}

// PresetsViewModel is the data passed to the presets template.
type PresetsViewModel struct {
	Page
	Presets    []models.EarnPreset
	Categories []models.Category
	Icons      []string
}

// Presets lists every preset, including inactive ones.
func (h *Handlers) Presets(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	presets, err := h.db.ListPresets(r.Context(), user.ID, false)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "presets.html", PresetsViewModel{
		Page:       h.page(w, r, "presets"),
		Presets:    presets,
		Categories: models.PresetCategories,
		Icons:      presetIcons,
	})
}

// CreatePreset adds a preset from the new preset form.
func (h *Handlers) CreatePreset(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := r.ParseForm(); err != nil {
		h.done(w, r, "/presets", "Invalid form submission.")
		return
	}
	ap, err := strconv.Atoi(strings.TrimSpace(r.FormValue("ap")))
	if err != nil {
		h.done(w, r, "/presets", "AP must be a positive number.")
		return
	}
	preset, err := h.svc.CreatePreset(r.Context(), user.ID, tracker.PresetInput{
		Label:    r.FormValue("label"),
		Category: models.Category(r.FormValue("category")),
		AP:       ap,
		IconKey:  r.FormValue("icon_key"),
	})
	if err != nil {
		h.fail(w, r, "/presets", err)
		return
	}
	h.done(w, r, "/presets", fmt.Sprintf("Preset %q added.", preset.Label))
}

// TogglePreset activates or deactivates a preset.
func (h *Handlers) TogglePreset(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/presets", "Preset not found.")
		return
	}
	preset, err := h.svc.TogglePreset(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, "/presets", err)
		return
	}
	state := "hidden"
	if preset.IsActive {
		state = "shown"
	}
	h.done(w, r, "/presets", fmt.Sprintf("%s is now %s on the dashboard.", preset.Label, state))
}

// DeletePreset removes a preset.
func (h *Handlers) DeletePreset(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/presets", "Preset not found.")
		return
	}
	if err := h.svc.DeletePreset(r.Context(), user.ID, id); err != nil {
		h.fail(w, r, "/presets", err)
		return
	}
	h.done(w, r, "/presets", "Preset deleted.")
}

// MovePreset moves a preset one place up or down.
func (h *Handlers) MovePreset(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/presets", "Preset not found.")
		return
	}
	dir, err := tracker.ParseDirection(r.PathValue("direction"))
	if err != nil {
		h.fail(w, r, "/presets", err)
		return
	}
	if err := h.svc.MovePreset(r.Context(), user.ID, id, dir); err != nil {
		h.fail(w, r, "/presets", err)
		return
	}
	h.redirectBack(w, r, "/presets")
}
