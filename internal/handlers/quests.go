package handlers

import (
	"fmt"
	"net/http"

	"ap-tracker/internal/models"
)

// QuestsViewModel is the data passed to the quests template.
type QuestsViewModel struct {
	Page
	Active    *models.Quest
	Quests    []models.Quest
	Completed int
}

// Quests lists the user's quests.
func (h *Handlers) Quests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	quests, err := h.db.ListQuests(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	_, completed, err := h.db.QuestCounts(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	vm := QuestsViewModel{Page: h.page(w, r, "quests"), Quests: quests, Completed: completed}
	for i := range quests {
		if quests[i].Status == models.QuestActive {
			vm.Active = &quests[i]
		}
	}
	h.render(w, r, "quests.html", vm)
}

// CreateQuest adds a quest from the new quest form.
func (h *Handlers) CreateQuest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := r.ParseForm(); err != nil {
		h.done(w, r, "/quests", "Invalid form submission.")
		return
	}
	quest, err := h.svc.CreateQuest(r.Context(), user.ID, r.FormValue("name"))
	if err != nil {
		h.fail(w, r, "/quests", err)
		return
	}
	h.done(w, r, "/quests", fmt.Sprintf("Quest %q added.", quest.Name))
}

// ActivateQuest makes a quest the active one.
func (h *Handlers) ActivateQuest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/quests", "Quest not found.")
		return
	}
	quest, err := h.svc.SetActiveQuest(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, "/quests", err)
		return
	}
	h.done(w, r, "/quests", fmt.Sprintf("%s is now the active quest.", quest.Name))
}

// CompleteQuest marks a quest as completed.
func (h *Handlers) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/quests", "Quest not found.")
		return
	}
	quest, err := h.svc.MarkQuestComplete(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, "/quests", err)
		return
	}
	h.done(w, r, "/quests", fmt.Sprintf("%s completed.", quest.Name))
}

// UpdateQuestNotes saves the notes field of a quest.
func (h *Handlers) UpdateQuestNotes(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/quests", "Quest not found.")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.done(w, r, "/quests", "Invalid form submission.")
		return
	}
	if err := h.svc.UpdateQuestNotes(r.Context(), user.ID, id, r.FormValue("notes")); err != nil {
		h.fail(w, r, "/quests", err)
		return
	}
	h.done(w, r, "/quests", "Notes saved.")
}

// DeleteQuest removes a quest.
func (h *Handlers) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/quests", "Quest not found.")
		return
	}
	if err := h.svc.DeleteQuest(r.Context(), user.ID, id); err != nil {
		h.fail(w, r, "/quests", err)
		return
	}
	h.done(w, r, "/quests", "Quest deleted.")
}
