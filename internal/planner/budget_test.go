package planner

import (
	"testing"

	"meal-scheduler/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	t.Run("NoSlots", func(t *testing.T) {
		_, ok := Allocate(60, nil)
		assert.False(t, ok)
	})

	t.Run("Value", func(t *testing.T) {
		a, ok := Allocate(30, []catalog.MealTime{catalog.Lunch, catalog.Dinner})
		require.True(t, ok)
		assert.Equal(t, StrategyValue, a.Strategy)
		assert.Zero(t, a.Targets[catalog.Lunch])
		assert.Zero(t, a.Targets[catalog.Dinner])
	})

	t.Run("AnchorPrefersDinner", func(t *testing.T) {
		a, ok := Allocate(60, []catalog.MealTime{catalog.Lunch, catalog.Dinner})
		require.True(t, ok)
		assert.Equal(t, StrategyAnchor, a.Strategy)
		assert.Equal(t, catalog.Dinner, a.AnchorSlot)
		assert.InDelta(t, 55.11, a.MaxPreTaxTotal, 0.01)
		assert.InDelta(t, 27.55, a.BudgetPerSlot, 0.01)
		assert.InDelta(t, 33.07, a.Targets[catalog.Dinner], 0.01)
		assert.InDelta(t, 22.04, a.Targets[catalog.Lunch], 0.01)
	})

	t.Run("AnchorFallsBackToLunch", func(t *testing.T) {
		a, _ := Allocate(60, []catalog.MealTime{catalog.Breakfast, catalog.Lunch})
		assert.Equal(t, catalog.Lunch, a.AnchorSlot)
	})

	t.Run("FeastCapsAnchor", func(t *testing.T) {
		a, ok := Allocate(150, catalog.MealTimes)
		require.True(t, ok)
		assert.Equal(t, StrategyFeast, a.Strategy)
		assert.Equal(t, anchorCeiling, a.Targets[catalog.Dinner])
		assert.LessOrEqual(t, a.Targets[catalog.Lunch], a.BudgetPerSlot)
		assert.InDelta(t, a.Targets[catalog.Lunch], a.Targets[catalog.Breakfast], 1e-9)
	})

	t.Run("SingleSlotGetsEverything", func(t *testing.T) {
		a, _ := Allocate(60, []catalog.MealTime{catalog.Breakfast})
		assert.InDelta(t, a.MaxPreTaxTotal, a.Targets[catalog.Breakfast], 1e-9)
	})

	t.Run("TargetsNeverExceedCeiling", func(t *testing.T) {
		for _, allowance := range []float64{0, 10, 38, 40, 75, 76.3, 90, 500} {
			a, _ := Allocate(allowance, catalog.MealTimes)
			var sum float64
			for _, v := range a.Targets {
				sum += v
			}
			assert.LessOrEqual(t, sum, a.MaxPreTaxTotal+1e-9, "allowance %v", allowance)
		}
	})
}

func TestBudgetHash(t *testing.T) {
	assert.Equal(t, BudgetHash(55.109), BudgetHash(55.1111))
	assert.NotEqual(t, BudgetHash(55.11), BudgetHash(55.12))
}

func TestTax(t *testing.T) {
	assert.InDelta(t, 60.0, WithTax(PreTax(60)), 1e-9)
	assert.InDelta(t, 108.875, WithTax(100), 1e-9)
}
