package profile

import (
	"fmt"
	"strings"

	"meal-scheduler/internal/catalog"

	"github.com/go-playground/validator/v10"
)

// Restaurant tier codes.
const (
	TierWildcard = "wildcard"
	TierTop      = "top_tier"
	TierGems     = "gems"
	TierCohort   = "cohort"
	TierFresh    = "fresh"
)

// Diet codes.
const (
	DietVegan      = "Vegan"
	DietVegetarian = "Vegetarian"
	DietHalal      = "Halal"
	DietGlutenFree = "Gluten-Free"
	DietKeto       = "Keto"
	DietSpicy      = "Spicy"
)

// Review is the user's verdict on a meal. Liked is nil when the user has
// not rated it.
type Review struct {
	Liked      *bool `json:"liked"`
	IsFavorite bool  `json:"isFavorite"`
}

// Disliked reports an explicit thumbs-down.
func (r Review) Disliked() bool {
	return r.Liked != nil && !*r.Liked
}

// IsLiked reports an explicit thumbs-up.
func (r Review) IsLiked() bool {
	return r.Liked != nil && *r.Liked
}

// Profile holds the user's constraints.
type Profile struct {
	Diet           []string `json:"diet"`
	Allergies      []string `json:"allergies"`
	DailyAllowance float64  `json:"dailyAllowance" validate:"gte=0"`
}

// Preferences is everything the scheduler reads about a user.
type Preferences struct {
	MealPrefs       []catalog.MealTime `json:"mealPrefs" validate:"unique,dive,oneof=breakfast lunch dinner"`
	RestaurantPrefs []string           `json:"restaurantPrefs"`
	Cuisines        []string           `json:"cuisines"`
	Profile         Profile            `json:"profile"`
	Reviews         map[string]Review  `json:"reviews"`
}

// Default is the state of a user who has not touched their settings.
func Default() Preferences {
	return Preferences{
		MealPrefs:       []catalog.MealTime{catalog.Lunch, catalog.Dinner},
		RestaurantPrefs: []string{TierWildcard},
		Cuisines:        []string{},
		Profile: Profile{
			Diet:           []string{},
			Allergies:      []string{},
			DailyAllowance: 60,
		},
		Reviews: map[string]Review{},
	}
}

var validate = validator.New()

// Validate checks the preferences before they are accepted from a user.
func (p Preferences) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	return nil
}

// Normalize fills nil collections so persisted shapes from older versions
// can be used directly.
func (p *Preferences) Normalize() {
	if p.MealPrefs == nil {
		p.MealPrefs = []catalog.MealTime{}
	}
	if p.RestaurantPrefs == nil {
		p.RestaurantPrefs = []string{}
	}
	if p.Cuisines == nil {
		p.Cuisines = []string{}
	}
	if p.Profile.Diet == nil {
		p.Profile.Diet = []string{}
	}
	if p.Profile.Allergies == nil {
		p.Profile.Allergies = []string{}
	}
	if p.Reviews == nil {
		p.Reviews = map[string]Review{}
	}
}

// ActiveSlots returns MealPrefs in day order with duplicates and unknown
// values dropped.
func (p Preferences) ActiveSlots() []catalog.MealTime {
	want := make(map[catalog.MealTime]bool, len(p.MealPrefs))
	for _, mt := range p.MealPrefs {
		want[mt] = true
	}
	var slots []catalog.MealTime
	for _, mt := range catalog.MealTimes {
		if want[mt] {
			slots = append(slots, mt)
		}
	}
	return slots
}

// HasSlot reports whether mt is an active meal time.
func (p Preferences) HasSlot(mt catalog.MealTime) bool {
	for _, s := range p.MealPrefs {
		if s == mt {
			return true
		}
	}
	return false
}

// SetReview records a like or dislike for a meal name.
func (p *Preferences) SetReview(mealName string, liked bool) {
	p.Normalize()
	r := p.Reviews[mealName]
	r.Liked = &liked
	p.Reviews[mealName] = r
}

// ToggleFavorite flips the favorite flag for a meal name.
func (p *Preferences) ToggleFavorite(mealName string) bool {
	p.Normalize()
	r := p.Reviews[mealName]
	r.IsFavorite = !r.IsFavorite
	p.Reviews[mealName] = r
	return r.IsFavorite
}

// ParseList splits a comma separated user input into trimmed values.
func ParseList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
