package planner

import (
	"meal-scheduler/internal/catalog"
)

// MaxOptimizerPasses bounds the downgrade loop.
const MaxOptimizerPasses = 20

// OptimizeResult is the selection after downgrading.
type OptimizeResult struct {
	Selection  map[catalog.MealTime]catalog.Meal
	Total      float64
	Iterations int
	OverBudget bool
}

// Optimize downgrades the most expensive slot that has a strictly cheaper
// alternative in its pool, one slot per pass, until the pre-tax total fits
// ceiling. When no slot can get cheaper it stops and reports the overage
// instead of failing.
func Optimize(
	selection map[catalog.MealTime]catalog.Meal,
	pools map[catalog.MealTime][]catalog.Meal,
	ceiling float64,
) OptimizeResult {
	sel := make(map[catalog.MealTime]catalog.Meal, len(selection))
	for slot, m := range selection {
		sel[slot] = m
	}

	res := OptimizeResult{Selection: sel}
	for res.Iterations < MaxOptimizerPasses {
		if total(sel) <= ceiling {
			break
		}

		slot, cheaper, ok := mostExpensiveDowngrade(sel, pools)
		if !ok {
			break
		}
		sel[slot] = cheaper
		res.Iterations++
	}

	res.Total = total(sel)
	res.OverBudget = res.Total > ceiling
	return res
}

func mostExpensiveDowngrade(
	sel map[catalog.MealTime]catalog.Meal,
	pools map[catalog.MealTime][]catalog.Meal,
) (catalog.MealTime, catalog.Meal, bool) {
	var (
		bestSlot  catalog.MealTime
		bestMeal  catalog.Meal
		bestPrice = -1.0
	)
	for _, slot := range catalog.MealTimes {
		current, ok := sel[slot]
		if !ok || current.Price <= bestPrice {
			continue
		}
		cheapest, ok := cheapestBelow(pools[slot], slot, current.Price)
		if !ok {
			continue
		}
		bestSlot, bestMeal, bestPrice = slot, cheapest, current.Price
	}
	return bestSlot, bestMeal, bestPrice >= 0
}

func cheapestBelow(pool []catalog.Meal, slot catalog.MealTime, price float64) (catalog.Meal, bool) {
	var (
		best  catalog.Meal
		found bool
	)
	for _, m := range pool {
		if !m.ServesAt(slot) || m.Price >= price {
			continue
		}
		if !found || m.Price < best.Price {
			best, found = m, true
		}
	}
	return best, found
}

func total(sel map[catalog.MealTime]catalog.Meal) float64 {
	var sum float64
	for _, m := range sel {
		sum += m.Price
	}
	return sum
}
