package planner

import (
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"
)

// SlotSummary is the spend for one slot.
type SlotSummary struct {
	Slot     catalog.MealTime
	Items    int
	Skipped  int
	Subtotal float64
	SplitFee float64
}

// Summary is the day's spend against its authorized budget.
type Summary struct {
	Date             string
	Slots            []SlotSummary
	PreTaxTotal      float64
	Tax              float64
	Total            float64
	AuthorizedBudget float64
	Remaining        float64
	OverBudget       bool
}

// Summarize totals the plan slot by slot. Skipped items are counted but
// not charged.
func Summarize(plan *MealPlan, prefs profile.Preferences) Summary {
	s := Summary{Date: plan.Date}
	for _, slot := range plan.Slots() {
		ss := SlotSummary{Slot: slot}
		for _, item := range plan.Items[slot] {
			ss.Items++
			if !item.Scheduled() {
				ss.Skipped++
				continue
			}
			ss.Subtotal += item.Meal.Price
			ss.SplitFee += splitFee(plan, slot, item)
		}
		s.PreTaxTotal += ss.Subtotal + ss.SplitFee
		ss.Subtotal = roundCents(ss.Subtotal)
		ss.SplitFee = roundCents(ss.SplitFee)
		s.Slots = append(s.Slots, ss)
	}

	s.Total = roundCents(DayTotal(plan))
	s.PreTaxTotal = roundCents(s.PreTaxTotal)
	s.Tax = roundCents(s.Total - s.PreTaxTotal)
	s.AuthorizedBudget = roundCents(AuthorizedBudget(plan, prefs))
	s.Remaining = roundCents(s.AuthorizedBudget - s.Total)
	s.OverBudget = s.Total > s.AuthorizedBudget+GuestTolerance
	return s
}
