package notes

import (
	"strings"
	"time"

	"meal-scheduler/internal/catalog"

	"github.com/google/uuid"
)

// Status is the analysis outcome of a note.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Logic is the structured override extracted from a note's text.
type Logic struct {
	Day  string           `json:"day"`
	Time catalog.MealTime `json:"time"`
	Meal string           `json:"meal"`
}

// PriorityNote is a free-text instruction such as "pizza for dinner on
// friday" that, once approved, forces a meal into a slot.
type PriorityNote struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Status       Status    `json:"status"`
	DurationDays int       `json:"durationDays"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
	Logic        *Logic    `json:"logic"`
	Reason       string    `json:"reason,omitempty"`
}

// New creates a pending note. A non-positive duration defaults to one day.
func New(text string, durationDays int, now time.Time) PriorityNote {
	if durationDays <= 0 {
		durationDays = 1
	}
	return PriorityNote{
		ID:           uuid.NewString(),
		Text:         strings.TrimSpace(text),
		Status:       StatusPending,
		DurationDays: durationDays,
		CreatedAt:    now,
		ExpiresAt:    now.AddDate(0, 0, durationDays),
	}
}

// Expired reports whether the note no longer applies at now. A zero
// ExpiresAt never expires.
func (n PriorityNote) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}

// Actionable reports whether the note should be applied as an override.
func (n PriorityNote) Actionable(now time.Time) bool {
	return n.Status == StatusApproved && n.Logic != nil && !n.Expired(now)
}

// MatchesDay reports whether the note's day targets the given date.
// Empty, "daily", "everyday" and "today" match any date.
func (l Logic) MatchesDay(date time.Time) bool {
	day := strings.ToLower(strings.TrimSpace(l.Day))
	switch day {
	case "", "daily", "everyday", "every day", "today", "any":
		return true
	}
	weekday := strings.ToLower(date.Weekday().String())
	return day == weekday || (len(day) >= 3 && strings.HasPrefix(weekday, day))
}

// Actionable filters notes down to those that can be applied at now.
func Actionable(all []PriorityNote, now time.Time) []PriorityNote {
	var out []PriorityNote
	for _, n := range all {
		if n.Actionable(now) {
			out = append(out, n)
		}
	}
	return out
}
