package planner

import (
	"testing"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMealSafe(t *testing.T) {
	m := catalog.Meal{Allergens: []string{"Peanuts", "soy"}}

	assert.True(t, IsMealSafe(m, nil))
	assert.True(t, IsMealSafe(m, []string{"dairy"}))
	assert.False(t, IsMealSafe(m, []string{" peanuts "}))
	assert.False(t, IsMealSafe(m, []string{"dairy", "SOY"}))
}

func TestFilterEligible(t *testing.T) {
	lunches := []catalog.Meal{
		meal("Pad Thai", 14, "Tokyo Table", catalog.Lunch),
		meal("Falafel Wrap", 11, "Green Bowl", catalog.Lunch),
		meal("Chicken Shawarma", 13, "Halal Grill", catalog.Lunch),
	}
	lunches[0].Allergens = []string{"peanuts"}
	lunches[1].Dietary = catalog.Dietary{Vegan: true, Vegetarian: true}
	lunches[1].Tags = []string{"Hidden Gem", "middle eastern"}
	lunches[2].Dietary = catalog.Dietary{Halal: true}
	lunches[2].Tags = []string{"Top Tier", "Keto"}
	lunches[2].Cuisine = []string{"Middle Eastern"}

	ids := func(ms []catalog.Meal) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}

	t.Run("AllergyExcludesExactlyTheUnsafeMeal", func(t *testing.T) {
		prefs := prefsWith(60, catalog.Lunch)
		prefs.Profile.Allergies = []string{"peanuts"}
		got := FilterEligible(lunches, prefs)
		assert.Equal(t, []string{"Falafel Wrap", "Chicken Shawarma"}, ids(got))
	})

	t.Run("Diet", func(t *testing.T) {
		prefs := prefsWith(60, catalog.Lunch)
		prefs.Profile.Diet = []string{profile.DietVegan}
		assert.Equal(t, []string{"Falafel Wrap"}, ids(FilterEligible(lunches, prefs)))

		prefs.Profile.Diet = []string{profile.DietHalal, profile.DietKeto}
		assert.Equal(t, []string{"Chicken Shawarma"}, ids(FilterEligible(lunches, prefs)))
	})

	t.Run("Tier", func(t *testing.T) {
		prefs := prefsWith(60, catalog.Lunch)
		prefs.RestaurantPrefs = []string{profile.TierGems}
		assert.Equal(t, []string{"Falafel Wrap"}, ids(FilterEligible(lunches, prefs)))

		prefs.RestaurantPrefs = []string{profile.TierGems, profile.TierTop}
		assert.Len(t, FilterEligible(lunches, prefs), 2)

		prefs.RestaurantPrefs = []string{profile.TierCohort}
		assert.Len(t, FilterEligible(lunches, prefs), 3)
	})

	t.Run("CuisineMatchesTagOrCuisine", func(t *testing.T) {
		prefs := prefsWith(60, catalog.Lunch)
		prefs.Cuisines = []string{"Middle Eastern"}
		assert.Equal(t, []string{"Falafel Wrap", "Chicken Shawarma"}, ids(FilterEligible(lunches, prefs)))
	})

	t.Run("Dislikes", func(t *testing.T) {
		prefs := prefsWith(60, catalog.Lunch)
		prefs.SetReview("Falafel Wrap", false)
		assert.NotContains(t, ids(FilterEligible(lunches, prefs)), "Falafel Wrap")
		assert.NotContains(t, ids(SafeFallback(lunches, prefs)), "Falafel Wrap")
	})
}

func TestCandidatePool(t *testing.T) {
	meals := []catalog.Meal{
		meal("b1", 8, "Sunrise Cafe", catalog.Breakfast),
		meal("l1", 12, "Deli", catalog.Lunch),
	}
	meals[1].Cuisine = []string{"Italian"}

	prefs := prefsWith(60, catalog.Breakfast, catalog.Lunch)
	prefs.Cuisines = []string{"Italian"}

	lunch := CandidatePool(meals, prefs, catalog.Lunch)
	require.Len(t, lunch, 1)
	assert.Equal(t, "l1", lunch[0].ID)

	// nothing Italian at breakfast, so the safe fallback fills it
	breakfast := CandidatePool(meals, prefs, catalog.Breakfast)
	require.Len(t, breakfast, 1)
	assert.Equal(t, "b1", breakfast[0].ID)

	assert.Empty(t, CandidatePool(meals, prefs, catalog.Dinner))
}
