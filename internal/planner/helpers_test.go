package planner

import (
	"time"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"

	"github.com/brianvoe/gofakeit/v6"
)

// friday is the reference clock for plan dates in tests.
var friday = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func meal(id string, price float64, vendor string, times ...catalog.MealTime) catalog.Meal {
	return catalog.Meal{
		ID:        id,
		Name:      id,
		Price:     price,
		MealTime:  times,
		Allergens: []string{},
		Tags:      []string{},
		Vendor:    catalog.Vendor{Name: vendor},
	}
}

func prefsWith(allowance float64, slots ...catalog.MealTime) profile.Preferences {
	p := profile.Default()
	p.MealPrefs = slots
	p.Profile.DailyAllowance = allowance
	return p
}

// planWith builds a plan whose hosts are the given meals.
func planWith(date string, hosts map[catalog.MealTime]catalog.Meal) *MealPlan {
	p := NewMealPlan(date)
	for _, slot := range catalog.MealTimes {
		m, ok := hosts[slot]
		if !ok {
			continue
		}
		p.Meta.MealPrefs = append(p.Meta.MealPrefs, slot)
		p.Items[slot] = []ScheduleItem{{ID: HostID(slot), Role: RoleHost, Status: StatusScheduled, Meal: m}}
	}
	return p
}

type fixedRand int

func (f fixedRand) IntN(n int) int {
	return min(int(f), n-1)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return string(rune('a' + n - 1))
	}
}

// mealFactory builds random but reproducible catalogs.
type mealFactory struct {
	faker   *gofakeit.Faker
	vendors []string
}

var factoryAllergens = []string{"peanuts", "dairy", "gluten", "shellfish", "soy", "eggs", "sesame"}

func newMealFactory(seed int64) *mealFactory {
	f := gofakeit.New(seed)
	return &mealFactory{
		faker:   f,
		vendors: []string{f.Company(), f.Company(), f.Company()},
	}
}

func (f *mealFactory) Meal(i int) catalog.Meal {
	var times []catalog.MealTime
	for _, mt := range catalog.MealTimes {
		if f.faker.Bool() {
			times = append(times, mt)
		}
	}
	if len(times) == 0 {
		times = []catalog.MealTime{catalog.MealTimes[i%len(catalog.MealTimes)]}
	}

	var allergens []string
	for _, a := range factoryAllergens {
		if f.faker.Number(1, 5) == 1 {
			allergens = append(allergens, a)
		}
	}

	return catalog.Meal{
		ID:        f.faker.UUID(),
		Name:      f.faker.Lunch(),
		Price:     f.faker.Price(4, 45),
		MealTime:  times,
		Allergens: allergens,
		Tags:      []string{},
		Vendor:    catalog.Vendor{Name: f.faker.RandomString(f.vendors)},
	}
}

func (f *mealFactory) Catalog(n int) []catalog.Meal {
	meals := make([]catalog.Meal, n)
	for i := range meals {
		meals[i] = f.Meal(i)
	}
	return meals
}

// Allergies picks up to two allergens at random.
func (f *mealFactory) Allergies() []string {
	var out []string
	for i := 0; i < f.faker.Number(0, 2); i++ {
		out = append(out, f.faker.RandomString(factoryAllergens))
	}
	return out
}
