package planner

import (
	"strings"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"
)

// SwapContext is what FindSmartSwap needs beyond the plan.
type SwapContext struct {
	Meals       []catalog.Meal
	Preferences profile.Preferences
	// CurrentMeal is the meal being replaced. When nil the slot's host is used.
	CurrentMeal *catalog.Meal
	// RequiredRestaurant restricts candidates to one vendor.
	RequiredRestaurant string
}

// SwapResult reports where the rotation landed.
type SwapResult struct {
	Swapped  bool
	Meal     catalog.Meal
	Position int
	Total    int
}

// FindSmartSwap ranks the alternatives for a slot: meals serving mealTime
// that pass eligibility (or the safe fallback when nothing eligible serves
// the slot), excluding the current meal. Candidates are ordered by how
// close their price is to the current meal, then by catalog order.
func FindSmartSwap(mealTime catalog.MealTime, plan *MealPlan, sc SwapContext) []catalog.Meal {
	current := sc.CurrentMeal
	if current == nil && plan != nil {
		if host, _, ok := plan.Host(mealTime); ok {
			current = &host.Meal
		}
	}

	var out []catalog.Meal
	for _, m := range CandidatePool(sc.Meals, sc.Preferences, mealTime) {
		if current != nil && m.ID == current.ID {
			continue
		}
		if sc.RequiredRestaurant != "" && !strings.EqualFold(m.Vendor.Name, sc.RequiredRestaurant) {
			continue
		}
		out = append(out, m)
	}

	if current == nil {
		return out
	}
	return rankByDistance(out, current.Price)
}

// SwapMeal replaces one item with the next meal in its rotation. The
// rotation is the meal the item started from followed by its alternatives
// ranked against that meal, so repeated swaps visit every alternative and
// then come back to the start. Guests rotate only through the host's
// restaurant. The rest of the plan is left untouched; when there is no
// alternative the plan is returned as is.
func (p *Planner) SwapMeal(plan *MealPlan, slot catalog.MealTime, itemID string, prefs profile.Preferences) (*MealPlan, SwapResult, error) {
	item, idx, err := plan.Item(slot, itemID)
	if err != nil {
		return plan, SwapResult{}, err
	}

	sc := SwapContext{Meals: p.meals, Preferences: prefs}
	if item.Role == RoleGuest {
		if host, _, ok := plan.Host(slot); ok {
			sc.RequiredRestaurant = host.Meal.Vendor.Name
		}
	}

	anchor, ok := mealByID(p.meals, plan.Meta.SwapAnchors[itemID])
	pos := -1
	var ring []catalog.Meal
	if ok {
		ring = p.rotation(slot, plan, sc, anchor)
		pos = indexOfMeal(ring, item.Meal.ID)
	}
	if pos < 0 {
		// The item left its rotation, e.g. a note replaced it. Start over from
		// what it holds now.
		anchor = item.Meal
		ring = p.rotation(slot, plan, sc, anchor)
		pos = 0
	}

	n := len(ring)
	if n < 2 {
		return plan, SwapResult{}, nil
	}

	next := (pos + 1) % n
	out := plan.Clone()
	out.Items[slot][idx].Meal = ring[next]
	out.Items[slot][idx].OverrideNoteID = ""
	out.Meta.SwapAnchors[itemID] = anchor.ID
	out.Meta.SwapCounts[itemID] = next

	return out, SwapResult{Swapped: true, Meal: ring[next], Position: next + 1, Total: n}, nil
}

// rotation is anchor followed by its ranked alternatives.
func (p *Planner) rotation(slot catalog.MealTime, plan *MealPlan, sc SwapContext, anchor catalog.Meal) []catalog.Meal {
	sc.CurrentMeal = &anchor
	return append([]catalog.Meal{anchor}, FindSmartSwap(slot, plan, sc)...)
}

func indexOfMeal(meals []catalog.Meal, id string) int {
	for i, m := range meals {
		if m.ID == id {
			return i
		}
	}
	return -1
}
