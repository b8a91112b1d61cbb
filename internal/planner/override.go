package planner

import (
	"strings"
	"time"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/notes"
)

// ApplyPriorityNoteOverrides forces the meal named by each actionable note
// into its slot, ignoring budget and eligibility. Pending, declined and
// expired notes are skipped, as are notes whose slot is not active, whose
// day does not match the plan date or whose meal is not in the catalog.
// When several notes target a slot the last one wins. A skipped host is
// scheduled again, since the note asks for that meal to be delivered.
func ApplyPriorityNoteOverrides(plan *MealPlan, all []notes.PriorityNote, meals []catalog.Meal, now time.Time) *MealPlan {
	out := plan.Clone()
	date, err := time.Parse(DayKeyLayout, plan.Date)
	if err != nil {
		date = now
	}

	active := make(map[catalog.MealTime]bool, len(out.Meta.MealPrefs))
	for _, mt := range out.Meta.MealPrefs {
		active[mt] = true
	}

	for _, n := range all {
		if !n.Actionable(now) || !active[n.Logic.Time] || !n.Logic.MatchesDay(date) {
			continue
		}
		meal, ok := resolveMeal(meals, n.Logic.Meal, n.Logic.Time)
		if !ok {
			continue
		}

		slot := n.Logic.Time
		_, idx, ok := out.Host(slot)
		if !ok {
			out.Items[slot] = append([]ScheduleItem{{
				ID:     HostID(slot),
				Role:   RoleHost,
				Status: StatusScheduled,
			}}, out.Items[slot]...)
			idx = 0
		}
		items := out.Items[slot]
		items[idx].Meal = meal
		items[idx].OverrideNoteID = n.ID
		items[idx].Status = StatusScheduled

		if !out.noteApplied(n.ID) {
			out.Meta.AppliedNotes = append(out.Meta.AppliedNotes, n.ID)
		}
	}
	return out
}

// resolveMeal finds a meal by id or case-insensitive name. Meals serving
// the slot are preferred when a name is shared.
func resolveMeal(meals []catalog.Meal, ref string, slot catalog.MealTime) (catalog.Meal, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return catalog.Meal{}, false
	}
	var fallback *catalog.Meal
	for i, m := range meals {
		if m.ID != ref && !strings.EqualFold(m.Name, ref) {
			continue
		}
		if m.ServesAt(slot) {
			return m, true
		}
		if fallback == nil {
			fallback = &meals[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return catalog.Meal{}, false
}
