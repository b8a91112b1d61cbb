package planner

import (
	"testing"

	"meal-scheduler/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swapCatalog() []catalog.Meal {
	return []catalog.Meal{
		meal("d20", 20, "Bistro", catalog.Dinner),
		meal("d18", 18, "Bistro", catalog.Dinner),
		meal("d23", 23, "Grill", catalog.Dinner),
		meal("d10", 10, "Grill", catalog.Dinner),
		meal("l12", 12, "Deli", catalog.Lunch),
		meal("l14", 14, "Deli", catalog.Lunch),
	}
}

func TestFindSmartSwap(t *testing.T) {
	meals := swapCatalog()
	plan := planWith("2026-10-16", map[catalog.MealTime]catalog.Meal{catalog.Dinner: meals[0], catalog.Lunch: meals[4]})
	prefs := prefsWith(80, catalog.Lunch, catalog.Dinner)

	t.Run("OrderedByPriceProximity", func(t *testing.T) {
		got := FindSmartSwap(catalog.Dinner, plan, SwapContext{Meals: meals, Preferences: prefs})
		require.Len(t, got, 3)
		assert.Equal(t, []string{"d18", "d23", "d10"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("VendorRestricted", func(t *testing.T) {
		got := FindSmartSwap(catalog.Dinner, plan, SwapContext{Meals: meals, Preferences: prefs, RequiredRestaurant: "grill"})
		require.Len(t, got, 2)
		for _, m := range got {
			assert.Equal(t, "Grill", m.Vendor.Name)
		}
	})

	t.Run("RespectsEligibility", func(t *testing.T) {
		p := prefs
		p.Reviews = nil
		p.SetReview("d18", false)
		got := FindSmartSwap(catalog.Dinner, plan, SwapContext{Meals: meals, Preferences: p})
		for _, m := range got {
			assert.NotEqual(t, "d18", m.ID)
		}
	})

	t.Run("NeverReturnsCurrentMeal", func(t *testing.T) {
		for seed := int64(1); seed <= 30; seed++ {
			f := newMealFactory(seed)
			random := f.Catalog(20)
			for _, current := range random {
				for _, mt := range current.MealTime {
					cur := current
					got := FindSmartSwap(mt, nil, SwapContext{Meals: random, Preferences: prefs, CurrentMeal: &cur})
					for _, m := range got {
						require.NotEqual(t, current.ID, m.ID)
					}
				}
			}
		}
	})
}

func TestSwapMeal(t *testing.T) {
	meals := swapCatalog()
	p := NewPlanner(meals)
	prefs := prefsWith(80, catalog.Lunch, catalog.Dinner)
	plan := planWith("2026-10-16", map[catalog.MealTime]catalog.Meal{catalog.Dinner: meals[0], catalog.Lunch: meals[4]})

	t.Run("MutatesOnlyTargetItem", func(t *testing.T) {
		out, res, err := p.SwapMeal(plan, catalog.Dinner, HostID(catalog.Dinner), prefs)
		require.NoError(t, err)
		require.True(t, res.Swapped)

		assert.Equal(t, 2, res.Position)
		assert.Equal(t, 4, res.Total)
		assert.Equal(t, "d18", res.Meal.ID)

		dinner, _, _ := out.Host(catalog.Dinner)
		assert.Equal(t, "d18", dinner.Meal.ID)
		assert.Equal(t, out.Items[catalog.Lunch], plan.Items[catalog.Lunch])
		assert.Equal(t, 1, out.Meta.SwapCounts[HostID(catalog.Dinner)])
		assert.Equal(t, "d20", out.Meta.SwapAnchors[HostID(catalog.Dinner)])

		original, _, _ := plan.Host(catalog.Dinner)
		assert.Equal(t, "d20", original.Meal.ID, "input plan must not change")
	})

	t.Run("RotationStaysBounded", func(t *testing.T) {
		cur := plan
		for i := 0; i < 25; i++ {
			next, res, err := p.SwapMeal(cur, catalog.Dinner, HostID(catalog.Dinner), prefs)
			require.NoError(t, err)
			require.True(t, res.Swapped)
			assert.GreaterOrEqual(t, res.Position, 1)
			assert.LessOrEqual(t, res.Position, res.Total)
			assert.Less(t, next.Meta.SwapCounts[HostID(catalog.Dinner)], res.Total)
			cur = next
		}
	})

	t.Run("VisitsEveryAlternative", func(t *testing.T) {
		lunches := []catalog.Meal{
			meal("a", 10, "Deli", catalog.Lunch),
			meal("b", 11, "Deli", catalog.Lunch),
			meal("c", 12, "Deli", catalog.Lunch),
			meal("d", 13, "Deli", catalog.Lunch),
		}
		lp := NewPlanner(lunches)
		lunchPrefs := prefsWith(80, catalog.Lunch)

		for _, start := range lunches {
			cur := planWith("2026-10-16", map[catalog.MealTime]catalog.Meal{catalog.Lunch: start})
			seen := map[string]bool{}
			for i := 0; i < len(lunches)-1; i++ {
				next, res, err := lp.SwapMeal(cur, catalog.Lunch, HostID(catalog.Lunch), lunchPrefs)
				require.NoError(t, err)
				require.True(t, res.Swapped)
				assert.NotEqual(t, start.ID, res.Meal.ID)
				assert.Equal(t, i+2, res.Position)
				assert.Equal(t, len(lunches), res.Total)
				seen[res.Meal.ID] = true
				cur = next
			}
			assert.Len(t, seen, len(lunches)-1, "start %s", start.ID)

			back, res, err := lp.SwapMeal(cur, catalog.Lunch, HostID(catalog.Lunch), lunchPrefs)
			require.NoError(t, err)
			assert.Equal(t, start.ID, res.Meal.ID)
			assert.Equal(t, 1, res.Position)
			assert.Equal(t, 0, back.Meta.SwapCounts[HostID(catalog.Lunch)])
		}

		t.Run("OrderIsFixedByStartingMeal", func(t *testing.T) {
			cur := planWith("2026-10-16", map[catalog.MealTime]catalog.Meal{catalog.Lunch: lunches[1]})
			var order []string
			for i := 0; i < 4; i++ {
				next, res, err := lp.SwapMeal(cur, catalog.Lunch, HostID(catalog.Lunch), lunchPrefs)
				require.NoError(t, err)
				order = append(order, res.Meal.ID)
				cur = next
			}
			assert.Equal(t, []string{"a", "c", "d", "b"}, order)
		})

		t.Run("RestartsWhenItemLeavesRotation", func(t *testing.T) {
			cur := planWith("2026-10-16", map[catalog.MealTime]catalog.Meal{catalog.Lunch: lunches[0]})
			cur, _, err := lp.SwapMeal(cur, catalog.Lunch, HostID(catalog.Lunch), lunchPrefs)
			require.NoError(t, err)

			cur.Items[catalog.Lunch][0].Meal = meal("special", 30, "Deli", catalog.Lunch)
			out, res, err := lp.SwapMeal(cur, catalog.Lunch, HostID(catalog.Lunch), lunchPrefs)
			require.NoError(t, err)
			assert.Equal(t, "d", res.Meal.ID)
			assert.Equal(t, "special", out.Meta.SwapAnchors[HostID(catalog.Lunch)])
		})
	})

	t.Run("GuestStaysWithHostVendor", func(t *testing.T) {
		withGuestPlan := withGuest(plan, catalog.Dinner, "g1", meals[1])
		out, res, err := p.SwapMeal(withGuestPlan, catalog.Dinner, "g1", prefs)
		require.NoError(t, err)
		require.True(t, res.Swapped)
		assert.Equal(t, "Bistro", res.Meal.Vendor.Name)
		assert.Equal(t, "d20", res.Meal.ID)
		assert.Len(t, out.Items[catalog.Dinner], 2)
	})

	t.Run("NoAlternatives", func(t *testing.T) {
		single := []catalog.Meal{meal("only", 10, "Deli", catalog.Breakfast)}
		sp := planWith("2026-10-16", map[catalog.MealTime]catalog.Meal{catalog.Breakfast: single[0]})
		out, res, err := NewPlanner(single).SwapMeal(sp, catalog.Breakfast, HostID(catalog.Breakfast), prefsWith(40, catalog.Breakfast))
		require.NoError(t, err)
		assert.False(t, res.Swapped)
		assert.Same(t, sp, out)
	})

	t.Run("UnknownItem", func(t *testing.T) {
		_, _, err := p.SwapMeal(plan, catalog.Dinner, "nope", prefs)
		assert.ErrorIs(t, err, ErrItemNotFound)

		_, _, err = p.SwapMeal(plan, catalog.Breakfast, "nope", prefs)
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("ClearsOverrideMarker", func(t *testing.T) {
		marked := plan.Clone()
		marked.Items[catalog.Dinner][0].OverrideNoteID = "note-1"
		out, _, err := p.SwapMeal(marked, catalog.Dinner, HostID(catalog.Dinner), prefs)
		require.NoError(t, err)
		assert.Empty(t, out.Items[catalog.Dinner][0].OverrideNoteID)
	})
}
