package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"meal-scheduler/internal/notes"
	"meal-scheduler/internal/planner"
	"meal-scheduler/internal/profile"

	"go.uber.org/zap"
)

func prefsKey(userID string) string { return "prefs:" + userID }
func planKey(userID string) string  { return "plan:" + userID }
func notesKey(userID string) string { return "notes:" + userID }

// StateRepository persists a user's preferences, plan and notes as JSON.
// Loads are forgiving: a missing or malformed record yields the default
// value and a warning, never an error.
type StateRepository struct {
	store  Store
	logger *zap.Logger
}

func NewStateRepository(store Store, logger *zap.Logger) *StateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateRepository{store: store, logger: logger}
}

// LoadPreferences returns the stored preferences or the defaults.
func (r *StateRepository) LoadPreferences(ctx context.Context, userID string) (profile.Preferences, error) {
	prefs := profile.Default()
	found, err := r.load(ctx, prefsKey(userID), &prefs)
	if err != nil {
		return profile.Default(), err
	}
	if !found {
		return profile.Default(), nil
	}
	prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		r.logger.Warn("stored preferences are invalid, using defaults", zap.String("user_id", userID), zap.Error(err))
		return profile.Default(), nil
	}
	return prefs, nil
}

func (r *StateRepository) SavePreferences(ctx context.Context, userID string, prefs profile.Preferences) error {
	return r.save(ctx, prefsKey(userID), prefs)
}

// LoadPlan returns the stored plan, or nil when there is none.
func (r *StateRepository) LoadPlan(ctx context.Context, userID string) (*planner.MealPlan, error) {
	var plan planner.MealPlan
	found, err := r.load(ctx, planKey(userID), &plan)
	if err != nil || !found {
		return nil, err
	}
	plan.Normalize()
	return &plan, nil
}

// SavePlan stores plan. A nil plan removes the record.
func (r *StateRepository) SavePlan(ctx context.Context, userID string, plan *planner.MealPlan) error {
	if plan == nil {
		return r.store.Delete(ctx, planKey(userID))
	}
	return r.save(ctx, planKey(userID), plan)
}

func (r *StateRepository) LoadNotes(ctx context.Context, userID string) ([]notes.PriorityNote, error) {
	var out []notes.PriorityNote
	if _, err := r.load(ctx, notesKey(userID), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []notes.PriorityNote{}
	}
	return out, nil
}

func (r *StateRepository) SaveNotes(ctx context.Context, userID string, list []notes.PriorityNote) error {
	if list == nil {
		list = []notes.PriorityNote{}
	}
	return r.save(ctx, notesKey(userID), list)
}

// load decodes key into v. Malformed data is logged and reported as not
// found; only store failures are returned as errors.
func (r *StateRepository) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.logger.Warn("ignoring malformed state", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (r *StateRepository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
