package notes

import (
	"testing"
	"time"

	"meal-scheduler/internal/catalog"

	"github.com/stretchr/testify/assert"
)

var friday = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	n := New("  pizza on friday ", 0, friday)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "pizza on friday", n.Text)
	assert.Equal(t, StatusPending, n.Status)
	assert.Equal(t, 1, n.DurationDays)
	assert.Equal(t, friday.AddDate(0, 0, 1), n.ExpiresAt)
	assert.Nil(t, n.Logic)
}

func TestActionable(t *testing.T) {
	approved := New("a", 2, friday)
	approved.Status = StatusApproved
	approved.Logic = &Logic{Time: catalog.Dinner, Meal: "Pad Thai"}

	noLogic := New("b", 2, friday)
	noLogic.Status = StatusApproved

	pending := New("c", 2, friday)
	pending.Logic = approved.Logic

	declined := New("d", 2, friday)
	declined.Status = StatusDeclined
	declined.Logic = approved.Logic

	all := []PriorityNote{approved, noLogic, pending, declined}

	got := Actionable(all, friday.Add(time.Hour))
	if assert.Len(t, got, 1) {
		assert.Equal(t, approved.ID, got[0].ID)
	}

	assert.Empty(t, Actionable(all, friday.AddDate(0, 0, 2)), "expired notes are not applied")

	forever := approved
	forever.ExpiresAt = time.Time{}
	assert.True(t, forever.Actionable(friday.AddDate(1, 0, 0)))
}

func TestLogicMatchesDay(t *testing.T) {
	cases := []struct {
		day  string
		want bool
	}{
		{"", true},
		{"daily", true},
		{"Every Day", true},
		{"today", true},
		{"friday", true},
		{"Friday ", true},
		{"fri", true},
		{"fr", false},
		{"monday", false},
	}
	for _, tc := range cases {
		t.Run(tc.day, func(t *testing.T) {
			assert.Equal(t, tc.want, Logic{Day: tc.day}.MatchesDay(friday))
		})
	}
}
