package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"ap-tracker/internal/models"
	"ap-tracker/internal/tracker"
)

// recentEntries is how many ledger entries the dashboard shows.
const recentEntries = 30

// CategoryStyle defines the visual style for a category.
type CategoryStyle struct {
	Icon  string
	Color string
}

var categoryStyles = map[models.Category]CategoryStyle{
	models.CategoryBase:   {Icon: "🏠", Color: "#60a5fa"},
	models.CategoryCareer: {Icon: "💼", Color: "#a78bfa"},
	models.CategoryHealth: {Icon: "💪", Color: "#34d399"},
	models.CategoryBudget: {Icon: "💰", Color: "#fbbf24"},
	models.CategoryOSRS:   {Icon: "⚔️", Color: "#f472b6"},
}

func getCategoryStyle(category models.Category) CategoryStyle {
	if style, ok := categoryStyles[category]; ok {
		return style
	}
	return CategoryStyle{Icon: "📦", Color: "#94a3b8"}
}

// EntryItem represents a ledger entry in a list view.
type EntryItem struct {
	models.Entry
	Time          string
	CategoryStyle CategoryStyle
	// Delta is the signed effect on the balance.
	Delta int
}

// EntryGroup groups entries by local date.
type EntryGroup struct {
	Title string
	Date  string
	Net   int
	Items []EntryItem
}

func newEntryItem(e models.Entry, loc *time.Location, layout string) EntryItem {
	delta := e.AP
	if e.Kind == models.KindSpend {
		delta = -e.AP
	}
	return EntryItem{
		Entry:         e,
		Time:          e.Timestamp.In(loc).Format(layout),
		CategoryStyle: getCategoryStyle(e.Category),
		Delta:         delta,
	}
}

// groupEntries buckets entries by local day, newest day first.
func groupEntries(entries []models.Entry, now time.Time, loc *time.Location) []EntryGroup {
	groupsMap := make(map[string]*EntryGroup)
	for _, e := range entries {
		local := e.Timestamp.In(loc)
		dateStr := local.Format("2006-01-02")
		if _, ok := groupsMap[dateStr]; !ok {
			groupsMap[dateStr] = &EntryGroup{Date: dateStr, Title: formatGroupTitle(local, now)}
		}
		group := groupsMap[dateStr]
		item := newEntryItem(e, loc, "15:04")
		group.Net += item.Delta
		group.Items = append(group.Items, item)
	}

	groups := make([]EntryGroup, 0, len(groupsMap))
	for _, g := range groupsMap {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })
	return groups
}

func formatGroupTitle(date, now time.Time) string {
	dateStr := date.Format("2006-01-02")
	if dateStr == now.Format("2006-01-02") {
		return "TODAY"
	}
	if dateStr == now.AddDate(0, 0, -1).Format("2006-01-02") {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Page
	Status     *tracker.Status
	Presets    []models.EarnPreset
	Categories []models.Category
	Groups     []EntryGroup
}

// Dashboard renders totals, earn buttons, spend options and recent entries.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	ctx := r.Context()

	status, err := h.svc.Status(ctx, user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	presets, err := h.db.ListPresets(ctx, user.ID, true)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	entries, err := h.db.ListEntries(ctx, user.ID, recentEntries)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, "dashboard.html", DashboardViewModel{
		Page:       h.page(w, r, "dashboard"),
		Status:     status,
		Presets:    presets,
		Categories: models.PresetCategories,
		Groups:     groupEntries(entries, status.Now, h.svc.Location()),
	})
}

// Earn records an earn entry from a preset.
func (h *Handlers) Earn(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := pathID(r)
	if err != nil {
		h.done(w, r, "/dashboard", "Preset not found.")
		return
	}
	entry, err := h.svc.EarnFromPreset(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, "/dashboard", err)
		return
	}
	h.done(w, r, "/dashboard", fmt.Sprintf("+%d AP: %s", entry.AP, entry.Label))
}

// EarnCustom records an earn entry from the custom earn form.
func (h *Handlers) EarnCustom(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := r.ParseForm(); err != nil {
		h.done(w, r, "/dashboard", "Invalid form submission.")
		return
	}
	ap, err := strconv.Atoi(strings.TrimSpace(r.FormValue("ap")))
	if err != nil {
		h.done(w, r, "/dashboard", "AP must be a positive number.")
		return
	}
	entry, err := h.svc.CreateCustomEarn(r.Context(), user.ID,
		r.FormValue("label"), models.Category(r.FormValue("category")), ap)
	if err != nil {
		h.fail(w, r, "/dashboard", err)
		return
	}
	h.done(w, r, "/dashboard", fmt.Sprintf("+%d AP: %s", entry.AP, entry.Label))
}

// Spend spends one of the fixed costs on the active quest.
func (h *Handlers) Spend(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	// A malformed cost falls through to the service's cost validation.
	cost, _ := strconv.Atoi(r.PathValue("cost"))
	quest, err := h.svc.SpendAP(r.Context(), user.ID, cost)
	if err != nil {
		h.fail(w, r, "/dashboard", err)
		return
	}
	minutes, _ := tracker.MinutesFor(cost)
	h.done(w, r, "/dashboard", fmt.Sprintf("Spent %d AP: %s logged on %s.", cost, formatMinutes(minutes), quest.Name))
}

// UndoLastSpend reverts the most recent spend.
func (h *Handlers) UndoLastSpend(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	undone, err := h.svc.UndoLastSpend(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, "/dashboard", err)
		return
	}
	h.done(w, r, "/dashboard", fmt.Sprintf("Undid spend of %d AP.", undone.AP))
}
