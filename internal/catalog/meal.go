package catalog

import "strings"

// MealTime is one of the three daily delivery windows.
type MealTime string

const (
	Breakfast MealTime = "breakfast"
	Lunch     MealTime = "lunch"
	Dinner    MealTime = "dinner"
)

// MealTimes lists the slots in the order a day is rendered.
var MealTimes = []MealTime{Breakfast, Lunch, Dinner}

// ParseMealTime accepts any casing and surrounding whitespace.
func ParseMealTime(s string) (MealTime, bool) {
	mt := MealTime(strings.ToLower(strings.TrimSpace(s)))
	switch mt {
	case Breakfast, Lunch, Dinner:
		return mt, true
	}
	return "", false
}

// Nutrition holds the per-serving macros.
type Nutrition struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Dietary flags a meal as compatible with a diet.
type Dietary struct {
	Vegan      bool `json:"vegan"`
	Vegetarian bool `json:"vegetarian"`
	Halal      bool `json:"halal"`
	GlutenFree bool `json:"gluten_free"`
}

// Vendor is the restaurant that prepares a meal.
type Vendor struct {
	Name string `json:"name"`
}

// Meal is an immutable catalog record.
type Meal struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Cuisine   []string   `json:"cuisine"`
	MealTime  []MealTime `json:"mealTime"`
	Nutrition Nutrition  `json:"nutrition"`
	Allergens []string   `json:"allergens"`
	Dietary   Dietary    `json:"dietary"`
	Tags      []string   `json:"tags"`
	Vendor    Vendor     `json:"vendor"`
}

// ServesAt reports whether the meal is offered for the given slot.
func (m Meal) ServesAt(mt MealTime) bool {
	for _, t := range m.MealTime {
		if t == mt {
			return true
		}
	}
	return false
}

// HasTag matches a tag case-insensitively.
func (m Meal) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// MatchesCuisine matches against both the cuisine list and the tags.
func (m Meal) MatchesCuisine(code string) bool {
	for _, c := range m.Cuisine {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return m.HasTag(code)
}
