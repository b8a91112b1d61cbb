package planner

import (
	"errors"
	"fmt"
	"time"

	"meal-scheduler/internal/catalog"
)

// DayKeyLayout formats the date a plan is for.
const DayKeyLayout = "2006-01-02"

var (
	ErrSlotNotFound        = errors.New("slot not found in plan")
	ErrItemNotFound        = errors.New("item not found in slot")
	ErrNoHost              = errors.New("slot has no host meal")
	ErrHostRemoval         = errors.New("host meals cannot be removed, skip them instead")
	ErrInvalidConfirmation = errors.New("budget confirmation does not match this plan")
)

// Role distinguishes the user's own meal from extra guest meals.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ItemStatus is whether an item will be delivered.
type ItemStatus string

const (
	StatusScheduled ItemStatus = "scheduled"
	StatusSkipped   ItemStatus = "skipped"
)

// ScheduleItem is one meal delivered in a slot.
type ScheduleItem struct {
	ID             string       `json:"id"`
	Role           Role         `json:"role"`
	Status         ItemStatus   `json:"status"`
	Meal           catalog.Meal `json:"meal"`
	OverrideNoteID string       `json:"overrideNoteId,omitempty"`
}

// Scheduled reports whether the item counts toward the day's spend.
func (i ScheduleItem) Scheduled() bool {
	return i.Status != StatusSkipped
}

// Meta carries the plan's generation inputs and the counters that survive
// regeneration. SwapAnchors maps an item to the meal its swap rotation
// started from; it is not carried into a regenerated plan.
type Meta struct {
	Budget            float64            `json:"budget"`
	BudgetHash        string             `json:"budgetHash"`
	InputsHash        string             `json:"inputsHash"`
	Strategy          Strategy           `json:"strategy,omitempty"`
	OverBudget        bool               `json:"overBudget"`
	MealPrefs         []catalog.MealTime `json:"mealPrefs"`
	SwapCounts        map[string]int     `json:"swapCounts"`
	SwapAnchors       map[string]string  `json:"swapAnchors"`
	AuthorizedBudgets map[string]float64 `json:"authorizedBudgets"`
	AppliedNotes      []string           `json:"appliedNotes"`
}

// MealPlan is a single day's schedule.
type MealPlan struct {
	Date  string                              `json:"date"`
	Items map[catalog.MealTime][]ScheduleItem `json:"items"`
	Meta  Meta                                `json:"meta"`
}

// NewMealPlan returns an empty plan for date.
func NewMealPlan(date string) *MealPlan {
	p := &MealPlan{Date: date}
	p.Normalize()
	return p
}

// DayKey formats t as the plan date key.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// HostID is the stable id of a slot's host item. Keeping it stable lets
// swap rotation carry over when the plan is regenerated.
func HostID(slot catalog.MealTime) string {
	return fmt.Sprintf("%s-host", slot)
}

// Normalize replaces nil collections with empty ones.
func (p *MealPlan) Normalize() {
	if p.Items == nil {
		p.Items = map[catalog.MealTime][]ScheduleItem{}
	}
	if p.Meta.MealPrefs == nil {
		p.Meta.MealPrefs = []catalog.MealTime{}
	}
	if p.Meta.SwapCounts == nil {
		p.Meta.SwapCounts = map[string]int{}
	}
	if p.Meta.AuthorizedBudgets == nil {
		p.Meta.AuthorizedBudgets = map[string]float64{}
	}
	if p.Meta.SwapAnchors == nil {
		p.Meta.SwapAnchors = map[string]string{}
	}
	if p.Meta.AppliedNotes == nil {
		p.Meta.AppliedNotes = []string{}
	}
}

// Clone returns a deep copy. Meals are values and are copied with their items.
func (p *MealPlan) Clone() *MealPlan {
	if p == nil {
		return nil
	}
	c := &MealPlan{Date: p.Date, Meta: p.Meta}
	c.Items = make(map[catalog.MealTime][]ScheduleItem, len(p.Items))
	for slot, items := range p.Items {
		c.Items[slot] = append([]ScheduleItem(nil), items...)
	}
	c.Meta.MealPrefs = append([]catalog.MealTime(nil), p.Meta.MealPrefs...)
	c.Meta.AppliedNotes = append([]string(nil), p.Meta.AppliedNotes...)
	c.Meta.SwapCounts = make(map[string]int, len(p.Meta.SwapCounts))
	for k, v := range p.Meta.SwapCounts {
		c.Meta.SwapCounts[k] = v
	}
	c.Meta.AuthorizedBudgets = make(map[string]float64, len(p.Meta.AuthorizedBudgets))
	for k, v := range p.Meta.AuthorizedBudgets {
		c.Meta.AuthorizedBudgets[k] = v
	}
	c.Meta.SwapAnchors = make(map[string]string, len(p.Meta.SwapAnchors))
	for k, v := range p.Meta.SwapAnchors {
		c.Meta.SwapAnchors[k] = v
	}
	c.Normalize()
	return c
}

// IsEmpty reports whether no slot has any item.
func (p *MealPlan) IsEmpty() bool {
	for _, items := range p.Items {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

// Slots returns the filled slots in day order.
func (p *MealPlan) Slots() []catalog.MealTime {
	var out []catalog.MealTime
	for _, mt := range catalog.MealTimes {
		if len(p.Items[mt]) > 0 {
			out = append(out, mt)
		}
	}
	return out
}

// Host returns the slot's host item and its index.
func (p *MealPlan) Host(slot catalog.MealTime) (ScheduleItem, int, bool) {
	for i, item := range p.Items[slot] {
		if item.Role == RoleHost {
			return item, i, true
		}
	}
	return ScheduleItem{}, -1, false
}

// Item looks up an item by id within a slot.
func (p *MealPlan) Item(slot catalog.MealTime, itemID string) (ScheduleItem, int, error) {
	items, ok := p.Items[slot]
	if !ok || len(items) == 0 {
		return ScheduleItem{}, -1, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	for i, item := range items {
		if item.ID == itemID {
			return item, i, nil
		}
	}
	return ScheduleItem{}, -1, fmt.Errorf("%w: %s/%s", ErrItemNotFound, slot, itemID)
}

// Selection maps each slot to its host meal.
func (p *MealPlan) Selection() map[catalog.MealTime]catalog.Meal {
	sel := make(map[catalog.MealTime]catalog.Meal)
	for slot := range p.Items {
		if host, _, ok := p.Host(slot); ok {
			sel[slot] = host.Meal
		}
	}
	return sel
}

func (p *MealPlan) noteApplied(id string) bool {
	for _, n := range p.Meta.AppliedNotes {
		if n == id {
			return true
		}
	}
	return false
}
