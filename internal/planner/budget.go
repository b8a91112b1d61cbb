package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"meal-scheduler/internal/catalog"
)

const (
	// TaxRate is applied on top of every meal price and delivery fee.
	TaxRate = 0.08875

	valueThreshold = 35.0
	feastThreshold = 70.0
	anchorShare    = 0.6
	anchorCeiling  = 45.0
)

// Strategy is how the daily budget is spread across slots.
type Strategy string

const (
	StrategyValue  Strategy = "value"
	StrategyAnchor Strategy = "anchor"
	StrategyFeast  Strategy = "feast"
)

// Allocation is the per-slot spending plan for a day.
type Allocation struct {
	MaxPreTaxTotal float64
	BudgetPerSlot  float64
	Strategy       Strategy
	AnchorSlot     catalog.MealTime
	Targets        map[catalog.MealTime]float64
}

// Allocate converts a taxed daily allowance into pre-tax slot targets.
// It returns false when there are no slots to fill.
//
// The value strategy targets zero so the picker lands on the cheapest fit.
// Anchor and feast give the anchor slot (dinner, else lunch, else
// breakfast) up to 60% of the ceiling, capped at $45, and split what is
// left evenly across the other slots.
func Allocate(dailyAllowance float64, slots []catalog.MealTime) (Allocation, bool) {
	if len(slots) == 0 {
		return Allocation{}, false
	}

	maxTotal := PreTax(math.Max(dailyAllowance, 0))
	a := Allocation{
		MaxPreTaxTotal: maxTotal,
		BudgetPerSlot:  maxTotal / float64(len(slots)),
		Targets:        make(map[catalog.MealTime]float64, len(slots)),
	}

	switch {
	case maxTotal < valueThreshold:
		a.Strategy = StrategyValue
	case maxTotal > feastThreshold:
		a.Strategy = StrategyFeast
	default:
		a.Strategy = StrategyAnchor
	}

	if a.Strategy == StrategyValue {
		for _, s := range slots {
			a.Targets[s] = 0
		}
		return a, true
	}

	if len(slots) == 1 {
		a.AnchorSlot = slots[0]
		a.Targets[slots[0]] = maxTotal
		return a, true
	}

	a.AnchorSlot = anchorSlot(slots)
	anchor := math.Min(maxTotal*anchorShare, anchorCeiling)
	a.Targets[a.AnchorSlot] = anchor

	rest := (maxTotal - anchor) / float64(len(slots)-1)
	rest = math.Min(rest, a.BudgetPerSlot)
	for _, s := range slots {
		if s != a.AnchorSlot {
			a.Targets[s] = rest
		}
	}
	return a, true
}

func anchorSlot(slots []catalog.MealTime) catalog.MealTime {
	for _, want := range []catalog.MealTime{catalog.Dinner, catalog.Lunch, catalog.Breakfast} {
		for _, s := range slots {
			if s == want {
				return s
			}
		}
	}
	return slots[0]
}

// WithTax adds tax to a pre-tax amount.
func WithTax(amount float64) float64 {
	return amount * (1 + TaxRate)
}

// PreTax removes tax from a taxed amount.
func PreTax(amount float64) float64 {
	return amount / (1 + TaxRate)
}

// BudgetHash fingerprints the pre-tax ceiling to the cent.
func BudgetHash(maxPreTaxTotal float64) string {
	cents := int64(math.Round(maxPreTaxTotal * 100))
	sum := sha256.Sum256([]byte(fmt.Sprintf("budget:%d", cents)))
	return hex.EncodeToString(sum[:])
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
