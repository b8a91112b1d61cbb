package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/notes"
	"meal-scheduler/internal/planner"
	"meal-scheduler/internal/profile"

	"go.uber.org/zap"
)

// noteCallbackTimeout bounds the persistence done when a note resolves.
const noteCallbackTimeout = 10 * time.Second

// Session is one user's scheduler. All mutations are serialized, so it is
// safe to share between bot handlers and the note board's callbacks.
type Session struct {
	mu           sync.Mutex
	userID       string
	app          *App
	prefs        profile.Preferences
	planner      *planner.Planner
	orchestrator *planner.Orchestrator
	board        *notes.Board
	logger       *zap.Logger
}

// UserID returns the owner of the session.
func (s *Session) UserID() string {
	return s.userID
}

// Preferences returns a copy of the user's preferences.
func (s *Session) Preferences() profile.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePreferences(s.prefs)
}

// Sync returns today's plan, regenerating it when it is stale and laying
// newly approved notes over it. Changes are persisted.
func (s *Session) Sync(ctx context.Context) (planner.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx)
}

// Regenerate builds a new plan for today regardless of staleness.
func (s *Session) Regenerate(ctx context.Context) (planner.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.orchestrator.Regenerate(s.prefs, s.board.List(), s.app.now())
	if err := s.app.state.SavePlan(ctx, s.userID, res.Plan); err != nil {
		return res, fmt.Errorf("failed to save plan: %w", err)
	}
	return res, nil
}

// UpdatePreferences applies update to a copy of the preferences, validates
// and stores it, then syncs the plan against the new values.
func (s *Session) UpdatePreferences(ctx context.Context, update func(*profile.Preferences)) (planner.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clonePreferences(s.prefs)
	update(&next)
	next.Normalize()
	if err := next.Validate(); err != nil {
		return planner.SyncResult{}, err
	}
	if err := s.app.state.SavePreferences(ctx, s.userID, next); err != nil {
		return planner.SyncResult{}, fmt.Errorf("failed to save preferences: %w", err)
	}
	s.prefs = next
	return s.sync(ctx)
}

// Swap rotates an item to its next alternative.
func (s *Session) Swap(ctx context.Context, slot catalog.MealTime, itemID string) (planner.SwapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.current(ctx)
	if err != nil {
		return planner.SwapResult{}, err
	}
	if itemID == "" {
		itemID = planner.HostID(slot)
	}
	next, res, err := s.planner.SwapMeal(plan, slot, itemID, s.prefs)
	if err != nil {
		return res, err
	}
	if c := s.app.collector; c != nil {
		c.SwapPerformed(string(slot), res.Swapped)
	}
	return res, s.apply(ctx, next)
}

// AddGuest adds a guest meal to slot. When the day would go over budget
// the plan is unchanged and the confirmation request is returned.
func (s *Session) AddGuest(ctx context.Context, slot catalog.MealTime, anyRestaurant bool) (*planner.BudgetConfirmationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	next, req, err := s.planner.AddGuestMeal(plan, slot, s.prefs, planner.GuestOptions{SameRestaurant: !anyRestaurant})
	if err != nil {
		return nil, err
	}
	if req != nil {
		s.countGuest("needs_confirmation")
		return req, nil
	}
	s.countGuest("added")
	return nil, s.apply(ctx, next)
}

// ConfirmBudget accepts an over-budget guest add.
func (s *Session) ConfirmBudget(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.current(ctx)
	if err != nil {
		return err
	}
	next, err := s.planner.ConfirmGuestMeal(plan, token)
	if err != nil {
		return err
	}
	s.countGuest("confirmed")
	return s.apply(ctx, next)
}

// RemoveGuest deletes a guest item.
func (s *Session) RemoveGuest(ctx context.Context, slot catalog.MealTime, itemID string) error {
	return s.edit(ctx, func(plan *planner.MealPlan) (*planner.MealPlan, error) {
		return planner.RemoveGuestMeal(plan, slot, itemID)
	})
}

// Skip marks the host of slot as skipped.
func (s *Session) Skip(ctx context.Context, slot catalog.MealTime) error {
	return s.edit(ctx, func(plan *planner.MealPlan) (*planner.MealPlan, error) {
		return planner.SkipMeal(plan, slot)
	})
}

// Restore reschedules a skipped host.
func (s *Session) Restore(ctx context.Context, slot catalog.MealTime) error {
	return s.edit(ctx, func(plan *planner.MealPlan) (*planner.MealPlan, error) {
		return planner.RestoreMeal(plan, slot)
	})
}

// AddNote posts a priority note. Its analysis runs in the background and
// the plan is updated when it resolves.
func (s *Session) AddNote(ctx context.Context, text string, durationDays int) (notes.PriorityNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.board.Add(text, durationDays)
	if err := s.app.state.SaveNotes(ctx, s.userID, s.board.List()); err != nil {
		return n, fmt.Errorf("failed to save notes: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note and cancels its analysis.
func (s *Session) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.board.Delete(id); err != nil {
		return err
	}
	if err := s.app.state.SaveNotes(ctx, s.userID, s.board.List()); err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

// Notes lists the user's notes in creation order.
func (s *Session) Notes() []notes.PriorityNote {
	return s.board.List()
}

// WaitForNotes blocks until running note analyses finish.
func (s *Session) WaitForNotes() {
	s.board.Wait()
}

// Logistics returns the simulated delivery info for every item of today's
// plan, keyed by item id.
func (s *Session) Logistics(ctx context.Context) (*planner.MealPlan, map[string]planner.LogisticsInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.current(ctx)
	if err != nil {
		return nil, nil, err
	}
	return plan, planner.ComputeLogistics(plan), nil
}

// Summary totals today's plan against its authorized budget.
func (s *Session) Summary(ctx context.Context) (planner.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.current(ctx)
	if err != nil {
		return planner.Summary{}, err
	}
	return planner.Summarize(plan, s.prefs), nil
}

// Close stops note analysis. It must not be called with s.mu held since
// resolving notes take the lock.
func (s *Session) Close() {
	s.board.Close()
}

func (s *Session) sync(ctx context.Context) (planner.SyncResult, error) {
	if pruned := s.board.Prune(); pruned > 0 {
		if err := s.app.state.SaveNotes(ctx, s.userID, s.board.List()); err != nil {
			return planner.SyncResult{}, fmt.Errorf("failed to save notes: %w", err)
		}
	}

	res := s.orchestrator.Sync(s.prefs, s.board.List(), s.app.now())
	if res.Regenerated || res.Reason != planner.ReasonUnchanged {
		if err := s.app.state.SavePlan(ctx, s.userID, res.Plan); err != nil {
			return res, fmt.Errorf("failed to save plan: %w", err)
		}
	}
	return res, nil
}

func (s *Session) current(ctx context.Context) (*planner.MealPlan, error) {
	res, err := s.sync(ctx)
	if err != nil {
		return nil, err
	}
	return res.Plan, nil
}

func (s *Session) edit(ctx context.Context, fn func(*planner.MealPlan) (*planner.MealPlan, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.current(ctx)
	if err != nil {
		return err
	}
	next, err := fn(plan)
	if err != nil {
		return err
	}
	return s.apply(ctx, next)
}

func (s *Session) apply(ctx context.Context, plan *planner.MealPlan) error {
	s.orchestrator.Apply(plan)
	if err := s.app.state.SavePlan(ctx, s.userID, plan); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (s *Session) countGuest(outcome string) {
	if c := s.app.collector; c != nil {
		c.GuestRequested(outcome)
	}
}

// noteResolved runs on the board's goroutine once a note is approved or
// declined.
func (s *Session) noteResolved(n notes.PriorityNote) {
	if c := s.app.collector; c != nil {
		c.NoteResolved(string(n.Status))
	}

	ctx, cancel := context.WithTimeout(context.Background(), noteCallbackTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.app.state.SaveNotes(ctx, s.userID, s.board.List()); err != nil {
		s.logger.Warn("failed to save notes", zap.String("note_id", n.ID), zap.Error(err))
		return
	}
	if n.Status != notes.StatusApproved {
		return
	}
	if _, err := s.sync(ctx); err != nil {
		s.logger.Warn("failed to apply note", zap.String("note_id", n.ID), zap.Error(err))
	}
}

func clonePreferences(p profile.Preferences) profile.Preferences {
	out := p
	out.MealPrefs = append([]catalog.MealTime(nil), p.MealPrefs...)
	out.RestaurantPrefs = append([]string(nil), p.RestaurantPrefs...)
	out.Cuisines = append([]string(nil), p.Cuisines...)
	out.Profile.Diet = append([]string(nil), p.Profile.Diet...)
	out.Profile.Allergies = append([]string(nil), p.Profile.Allergies...)
	out.Reviews = make(map[string]profile.Review, len(p.Reviews))
	for k, v := range p.Reviews {
		out.Reviews[k] = v
	}
	return out
}
