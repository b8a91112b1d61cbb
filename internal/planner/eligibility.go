package planner

import (
	"strings"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"
)

// tierTags maps restaurant tier codes to the tag a meal must carry. Tier
// codes without an entry do not narrow the catalog.
var tierTags = map[string]string{
	profile.TierTop:  "Top Tier",
	profile.TierGems: "Hidden Gem",
}

// IsMealSafe reports whether none of the meal's allergens appear in the
// allergy list. Matching ignores case and surrounding whitespace.
func IsMealSafe(meal catalog.Meal, allergies []string) bool {
	if len(allergies) == 0 {
		return true
	}
	blocked := make(map[string]bool, len(allergies))
	for _, a := range allergies {
		blocked[normalize(a)] = true
	}
	for _, a := range meal.Allergens {
		if blocked[normalize(a)] {
			return false
		}
	}
	return true
}

// FilterEligible narrows the catalog to meals matching every preference.
// The catalog order is preserved.
func FilterEligible(meals []catalog.Meal, prefs profile.Preferences) []catalog.Meal {
	var out []catalog.Meal
	for _, m := range meals {
		if isDisliked(m, prefs) ||
			!matchesCuisine(m, prefs.Cuisines) ||
			!IsMealSafe(m, prefs.Profile.Allergies) ||
			!matchesDiet(m, prefs.Profile.Diet) ||
			!matchesTier(m, prefs.RestaurantPrefs) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// SafeFallback is the last-resort pool used when FilterEligible has
// nothing to offer: cuisine and tier are dropped, dislikes, safety and
// diet are kept.
func SafeFallback(meals []catalog.Meal, prefs profile.Preferences) []catalog.Meal {
	var out []catalog.Meal
	for _, m := range meals {
		if isDisliked(m, prefs) ||
			!IsMealSafe(m, prefs.Profile.Allergies) ||
			!matchesDiet(m, prefs.Profile.Diet) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// CandidatePool returns the meals that may fill slot: the eligible meals
// serving it, or the safe fallback when none do.
func CandidatePool(meals []catalog.Meal, prefs profile.Preferences, slot catalog.MealTime) []catalog.Meal {
	if pool := servingAt(FilterEligible(meals, prefs), slot); len(pool) > 0 {
		return pool
	}
	return servingAt(SafeFallback(meals, prefs), slot)
}

func servingAt(meals []catalog.Meal, slot catalog.MealTime) []catalog.Meal {
	var out []catalog.Meal
	for _, m := range meals {
		if m.ServesAt(slot) {
			out = append(out, m)
		}
	}
	return out
}

func isDisliked(m catalog.Meal, prefs profile.Preferences) bool {
	r, ok := prefs.Reviews[m.Name]
	return ok && r.Disliked()
}

func matchesCuisine(m catalog.Meal, cuisines []string) bool {
	if len(cuisines) == 0 {
		return true
	}
	for _, c := range cuisines {
		if m.MatchesCuisine(c) {
			return true
		}
	}
	return false
}

func matchesDiet(m catalog.Meal, diet []string) bool {
	for _, d := range diet {
		switch normalize(d) {
		case "vegan":
			if !m.Dietary.Vegan {
				return false
			}
		case "vegetarian":
			if !m.Dietary.Vegetarian {
				return false
			}
		case "halal":
			if !m.Dietary.Halal {
				return false
			}
		case "gluten-free", "gluten_free", "glutenfree":
			if !m.Dietary.GlutenFree {
				return false
			}
		case "keto":
			if !m.HasTag(profile.DietKeto) {
				return false
			}
		case "spicy":
			if !m.HasTag(profile.DietSpicy) {
				return false
			}
		}
	}
	return true
}

func matchesTier(m catalog.Meal, tiers []string) bool {
	if len(tiers) == 0 {
		return true
	}
	for _, t := range tiers {
		tag, mapped := tierTags[normalize(t)]
		if !mapped {
			// wildcard and unmapped tiers such as cohort or fresh
			return true
		}
		if m.HasTag(tag) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
