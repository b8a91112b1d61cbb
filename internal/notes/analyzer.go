package notes

import (
	"context"
	"strings"
	"time"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/shared"
)

// Analysis is the verdict on a note's text.
type Analysis struct {
	Status Status
	Logic  *Logic
	Reason string
	Meta   shared.AgentMeta
}

// Analyzer turns a note's free text into an override.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

var mealTimeWords = []struct {
	word string
	time catalog.MealTime
}{
	{"breakfast", catalog.Breakfast},
	{"morning", catalog.Breakfast},
	{"lunch", catalog.Lunch},
	{"noon", catalog.Lunch},
	{"dinner", catalog.Dinner},
	{"supper", catalog.Dinner},
	{"tonight", catalog.Dinner},
}

// KeywordAnalyzer approves notes that name a catalog meal. The meal time
// and weekday are picked out of the text by plain substring matching.
type KeywordAnalyzer struct {
	meals []catalog.Meal
}

func NewKeywordAnalyzer(meals []catalog.Meal) *KeywordAnalyzer {
	return &KeywordAnalyzer{meals: meals}
}

func (a *KeywordAnalyzer) Analyze(_ context.Context, text string) (Analysis, error) {
	start := time.Now()
	lower := strings.ToLower(text)
	meta := func() shared.AgentMeta {
		return shared.AgentMeta{AgentName: "KeywordAnalyzer", Latency: time.Since(start)}
	}

	meal, ok := mentionedMeal(a.meals, lower)
	if !ok {
		return Analysis{Status: StatusDeclined, Reason: "no meal from the menu was mentioned", Meta: meta()}, nil
	}

	mt, ok := mentionedTime(lower)
	if !ok {
		if len(meal.MealTime) == 0 {
			return Analysis{Status: StatusDeclined, Reason: meal.Name + " is not served at any meal time", Meta: meta()}, nil
		}
		mt = meal.MealTime[0]
	}

	return Analysis{
		Status: StatusApproved,
		Logic:  &Logic{Day: mentionedDay(lower), Time: mt, Meal: meal.Name},
		Meta:   meta(),
	}, nil
}

// mentionedMeal returns the catalog meal with the longest name found in
// text, so "chicken shawarma wrap" beats a shorter overlapping name.
func mentionedMeal(meals []catalog.Meal, text string) (catalog.Meal, bool) {
	var best catalog.Meal
	found := false
	for _, m := range meals {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		if name == "" || !strings.Contains(text, name) {
			continue
		}
		if !found || len(name) > len(best.Name) {
			best, found = m, true
		}
	}
	return best, found
}

func mentionedTime(text string) (catalog.MealTime, bool) {
	for _, w := range mealTimeWords {
		if strings.Contains(text, w.word) {
			return w.time, true
		}
	}
	return "", false
}

func mentionedDay(text string) string {
	for _, d := range weekdays {
		if strings.Contains(text, d) {
			return d
		}
	}
	switch {
	case strings.Contains(text, "every day"), strings.Contains(text, "everyday"), strings.Contains(text, "daily"):
		return "daily"
	case strings.Contains(text, "today"), strings.Contains(text, "tonight"):
		return "today"
	}
	return ""
}
