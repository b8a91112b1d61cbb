package planner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"meal-scheduler/internal/budgetauth"
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/profile"

	"go.uber.org/zap"
)

// GuestTolerance is how far over the authorized budget a guest add may go
// without asking.
const GuestTolerance = 0.50

// GuestOptions controls guest selection.
type GuestOptions struct {
	// SameRestaurant restricts the guest to the host's vendor.
	SameRestaurant bool
}

// BudgetConfirmationRequest is returned instead of a plan when a guest
// would push the day over its authorized budget. Passing Token to
// ConfirmGuestMeal raises the day's budget and adds the guest.
type BudgetConfirmationRequest struct {
	DateKey          string
	Slot             catalog.MealTime
	Meal             catalog.Meal
	CurrentTotal     float64
	IncrementalCost  float64
	ProposedTotal    float64
	AuthorizedBudget float64
	Token            string
	ExpiresAt        time.Time
}

// Overage is how far the proposed total exceeds the authorized budget.
func (r *BudgetConfirmationRequest) Overage() float64 {
	return roundCents(r.ProposedTotal - r.AuthorizedBudget)
}

// DayTotal is the taxed spend for the plan: every scheduled item plus the
// split delivery fee of guests from another restaurant. Host delivery fees
// are display only.
func DayTotal(plan *MealPlan) float64 {
	var sum float64
	for slot, items := range plan.Items {
		for _, item := range items {
			if !item.Scheduled() {
				continue
			}
			sum += item.Meal.Price + splitFee(plan, slot, item)
		}
	}
	return WithTax(sum)
}

// AuthorizedBudget is the taxed ceiling for the plan's day: the daily
// allowance, or a confirmed amount for that day when it is higher.
func AuthorizedBudget(plan *MealPlan, prefs profile.Preferences) float64 {
	return math.Max(plan.Meta.AuthorizedBudgets[plan.Date], prefs.Profile.DailyAllowance)
}

// IsSplit reports whether a guest comes from a different restaurant than
// the slot's host.
func IsSplit(plan *MealPlan, slot catalog.MealTime, item ScheduleItem) bool {
	if item.Role != RoleGuest {
		return false
	}
	host, _, ok := plan.Host(slot)
	return ok && host.Meal.Vendor.Name != item.Meal.Vendor.Name
}

func splitFee(plan *MealPlan, slot catalog.MealTime, item ScheduleItem) float64 {
	if !IsSplit(plan, slot, item) {
		return 0
	}
	return itemLogistics(plan, slot, item).DeliveryFee
}

// AddGuestMeal adds a second meal to an occupied slot. The guest is the
// best swap alternative for the host's meal, or the host's own dish when
// there is none. If the day would exceed its authorized budget by more
// than GuestTolerance the plan is left unchanged and a confirmation
// request is returned instead.
func (p *Planner) AddGuestMeal(
	plan *MealPlan,
	slot catalog.MealTime,
	prefs profile.Preferences,
	opts GuestOptions,
) (*MealPlan, *BudgetConfirmationRequest, error) {
	host, _, ok := plan.Host(slot)
	if !ok {
		return plan, nil, fmt.Errorf("%w: %s", ErrNoHost, slot)
	}

	sc := SwapContext{Meals: p.meals, Preferences: prefs, CurrentMeal: &host.Meal}
	if opts.SameRestaurant {
		sc.RequiredRestaurant = host.Meal.Vendor.Name
	}
	meal := host.Meal
	if candidates := FindSmartSwap(slot, plan, sc); len(candidates) > 0 {
		meal = candidates[0]
	}

	itemID := fmt.Sprintf("%s-guest-%s", slot, p.newID())
	proposed := withGuest(plan, slot, itemID, meal)

	current := DayTotal(plan)
	next := DayTotal(proposed)
	authorized := AuthorizedBudget(plan, prefs)
	if next <= authorized+GuestTolerance {
		return proposed, nil, nil
	}

	req := &BudgetConfirmationRequest{
		DateKey:          plan.Date,
		Slot:             slot,
		Meal:             meal,
		CurrentTotal:     roundCents(current),
		IncrementalCost:  roundCents(next - current),
		ProposedTotal:    roundCents(next),
		AuthorizedBudget: roundCents(authorized),
	}
	if p.authorizer != nil {
		token, expiresAt, err := p.authorizer.Issue(budgetauth.Grant{
			DateKey:        plan.Date,
			Slot:           string(slot),
			ItemID:         itemID,
			MealID:         meal.ID,
			Amount:         next,
			SameRestaurant: opts.SameRestaurant,
		})
		if err != nil {
			return plan, nil, fmt.Errorf("failed to issue budget confirmation: %w", err)
		}
		req.Token = token
		req.ExpiresAt = expiresAt
	}

	p.logger.Info("guest meal needs budget confirmation",
		zap.String("date", plan.Date),
		zap.String("slot", string(slot)),
		zap.Float64("proposed_total", req.ProposedTotal),
		zap.Float64("authorized", req.AuthorizedBudget),
	)
	return plan, req, nil
}

// ConfirmGuestMeal accepts a confirmation token, raises the day's
// authorized budget to the confirmed amount and adds the guest that was
// proposed. The token is rejected when the plan has grown since it was
// issued and the add would now cost more than was confirmed.
func (p *Planner) ConfirmGuestMeal(plan *MealPlan, token string) (*MealPlan, error) {
	if p.authorizer == nil {
		return plan, errors.New("budget confirmations are not configured")
	}
	grant, err := p.authorizer.Verify(token)
	if err != nil {
		return plan, err
	}
	if grant.DateKey != plan.Date {
		return plan, fmt.Errorf("%w: token is for %s, plan is for %s", ErrInvalidConfirmation, grant.DateKey, plan.Date)
	}

	slot := catalog.MealTime(grant.Slot)
	if _, _, ok := plan.Host(slot); !ok {
		return plan, fmt.Errorf("%w: %s", ErrNoHost, slot)
	}
	if _, _, err := plan.Item(slot, grant.ItemID); err == nil {
		return plan, nil
	}
	meal, ok := mealByID(p.meals, grant.MealID)
	if !ok {
		return plan, fmt.Errorf("%w: unknown meal %s", ErrInvalidConfirmation, grant.MealID)
	}

	out := withGuest(plan, slot, grant.ItemID, meal)
	if total := DayTotal(out); total > grant.Amount+GuestTolerance {
		return plan, fmt.Errorf("%w: day total %.2f exceeds the confirmed %.2f, request the guest again",
			ErrInvalidConfirmation, total, grant.Amount)
	}
	if grant.Amount > out.Meta.AuthorizedBudgets[plan.Date] {
		out.Meta.AuthorizedBudgets[plan.Date] = math.Ceil(grant.Amount*100) / 100
	}
	return out, nil
}

// RemoveGuestMeal removes a guest item. Hosts cannot be removed.
func RemoveGuestMeal(plan *MealPlan, slot catalog.MealTime, itemID string) (*MealPlan, error) {
	item, idx, err := plan.Item(slot, itemID)
	if err != nil {
		return plan, err
	}
	if item.Role == RoleHost {
		return plan, ErrHostRemoval
	}

	out := plan.Clone()
	items := out.Items[slot]
	out.Items[slot] = append(items[:idx:idx], items[idx+1:]...)
	delete(out.Meta.SwapCounts, itemID)
	delete(out.Meta.SwapAnchors, itemID)
	return out, nil
}

// SkipMeal marks a slot's host as skipped so it no longer counts toward
// the day's spend.
func SkipMeal(plan *MealPlan, slot catalog.MealTime) (*MealPlan, error) {
	return setHostStatus(plan, slot, StatusSkipped)
}

// RestoreMeal undoes SkipMeal.
func RestoreMeal(plan *MealPlan, slot catalog.MealTime) (*MealPlan, error) {
	return setHostStatus(plan, slot, StatusScheduled)
}

func setHostStatus(plan *MealPlan, slot catalog.MealTime, status ItemStatus) (*MealPlan, error) {
	_, idx, ok := plan.Host(slot)
	if !ok {
		return plan, fmt.Errorf("%w: %s", ErrNoHost, slot)
	}
	out := plan.Clone()
	out.Items[slot][idx].Status = status
	return out, nil
}

func withGuest(plan *MealPlan, slot catalog.MealTime, itemID string, meal catalog.Meal) *MealPlan {
	out := plan.Clone()
	out.Items[slot] = append(out.Items[slot], ScheduleItem{
		ID:     itemID,
		Role:   RoleGuest,
		Status: StatusScheduled,
		Meal:   meal,
	})
	return out
}

func mealByID(meals []catalog.Meal, id string) (catalog.Meal, bool) {
	for _, m := range meals {
		if m.ID == id {
			return m, true
		}
	}
	return catalog.Meal{}, false
}
