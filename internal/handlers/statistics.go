package handlers

import (
	"net/http"
	"strconv"
	"time"

	"ap-tracker/internal/models"
)

// StatsCategoryItem represents a category with its earning statistics.
type StatsCategoryItem struct {
	Category      models.Category
	Total         int
	Count         int
	Percentage    float64
	CategoryStyle CategoryStyle
}

// StatsViewModel is the data passed to the statistics view template.
type StatsViewModel struct {
	Page
	Year           int
	Month          int
	MonthName      string
	Earned         int
	Spent          int
	MinutesLogged  int
	Categories     []StatsCategoryItem
	Entries        []EntryItem
	PrevYear       int
	PrevMonth      int
	NextYear       int
	NextMonth      int
	IsCurrentMonth bool
}

// Statistics renders the monthly statistics page.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	// Get year and month from query params, default to current month
	now := h.svc.Now()
	year := now.Year()
	month := int(now.Month())

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}

	categoryTotals, err := h.svc.CategoryTotals(r.Context(), user.ID, year, time.Month(month))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	entries, err := h.svc.MonthEntries(r.Context(), user.ID, year, time.Month(month))
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	vm := StatsViewModel{
		Page:      h.page(w, r, "stats"),
		Year:      year,
		Month:     month,
		MonthName: time.Month(month).String(),
	}

	for _, ct := range categoryTotals {
		vm.Earned += ct.Total
	}
	vm.Categories = make([]StatsCategoryItem, 0, len(categoryTotals))
	for _, ct := range categoryTotals {
		percentage := 0.0
		if vm.Earned > 0 {
			percentage = float64(ct.Total) / float64(vm.Earned) * 100
		}
		vm.Categories = append(vm.Categories, StatsCategoryItem{
			Category:      ct.Category,
			Total:         ct.Total,
			Count:         ct.Count,
			Percentage:    percentage,
			CategoryStyle: getCategoryStyle(ct.Category),
		})
	}

	loc := h.svc.Location()
	vm.Entries = make([]EntryItem, 0, len(entries))
	for _, e := range entries {
		if e.Kind == models.KindSpend {
			vm.Spent += e.AP
			vm.MinutesLogged += e.Minutes
		}
		vm.Entries = append(vm.Entries, newEntryItem(e, loc, "Jan 02, 15:04"))
	}

	// Calculate previous and next month
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prevDate := first.AddDate(0, -1, 0)
	nextDate := first.AddDate(0, 1, 0)
	vm.PrevYear, vm.PrevMonth = prevDate.Year(), int(prevDate.Month())
	vm.NextYear, vm.NextMonth = nextDate.Year(), int(nextDate.Month())
	vm.IsCurrentMonth = year == now.Year() && month == int(now.Month())

	h.render(w, r, "stats.html", vm)
}
