package planner

import (
	"math"
	"math/rand/v2"
	"sort"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"
)

// DefaultTolerance is how far from the target price a pick may land
// before the picker widens to every meal serving the slot.
const DefaultTolerance = 3.0

const (
	favoriteWindow = 3
	generalWindow  = 5
)

// Rand is the source of the picker's tie-breaks.
type Rand interface {
	IntN(n int) int
}

// NewSeededRand returns a deterministic Rand for a seed.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Picker chooses one meal for a slot.
type Picker struct {
	rnd Rand
}

// NewPicker creates a Picker. A nil rnd uses an unseeded source.
func NewPicker(rnd Rand) *Picker {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Picker{rnd: rnd}
}

// PickMeal selects a meal for mealTime near target. Candidates within the
// tolerance window are preferred; when there are none every meal in the
// pool serving mealTime is considered. Favorites win over liked meals,
// which win over the rest. Within a tier one of the closest few is chosen
// at random. It returns false when nothing in the pool serves mealTime.
func (p *Picker) PickMeal(
	mealTime catalog.MealTime,
	target float64,
	pool []catalog.Meal,
	reviews map[string]profile.Review,
	tolerance float64,
) (catalog.Meal, bool) {
	serving := servingAt(pool, mealTime)
	if len(serving) == 0 {
		return catalog.Meal{}, false
	}

	candidates := make([]catalog.Meal, 0, len(serving))
	for _, m := range serving {
		if math.Abs(m.Price-target) <= tolerance {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		candidates = serving
	}

	var favorites, liked, general []catalog.Meal
	for _, m := range candidates {
		r := reviews[m.Name]
		switch {
		case r.IsFavorite:
			favorites = append(favorites, m)
		case r.IsLiked():
			liked = append(liked, m)
		default:
			general = append(general, m)
		}
	}

	switch {
	case len(favorites) > 0:
		return p.closest(favorites, target, favoriteWindow), true
	case len(liked) > 0:
		return p.closest(liked, target, generalWindow), true
	default:
		return p.closest(general, target, generalWindow), true
	}
}

func (p *Picker) closest(meals []catalog.Meal, target float64, window int) catalog.Meal {
	ranked := rankByDistance(meals, target)
	if len(ranked) < window {
		window = len(ranked)
	}
	return ranked[p.rnd.IntN(window)]
}

// rankByDistance orders meals by distance from price, keeping catalog
// order for ties.
func rankByDistance(meals []catalog.Meal, price float64) []catalog.Meal {
	ranked := append([]catalog.Meal(nil), meals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Price-price) < math.Abs(ranked[j].Price-price)
	})
	return ranked
}
