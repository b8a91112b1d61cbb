package planner

import (
	"time"

	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/notes"
	"meal-scheduler/internal/profile"

	"go.uber.org/zap"
)

// State is the orchestrator's lifecycle position.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateIdle          State = "idle"
	StateGenerating    State = "generating"
	StateReady         State = "ready"
)

// Regeneration reasons.
const (
	ReasonNoPlan       = "no_plan"
	ReasonDateChanged  = "date_changed"
	ReasonMealPrefs    = "meal_prefs_changed"
	ReasonBudget       = "budget_changed"
	ReasonPreferences  = "preferences_changed"
	ReasonUnsafeItem   = "unsafe_item"
	ReasonNoteApplied  = "note_applied"
	ReasonNoCandidates = "no_candidates"
	ReasonUnchanged    = "unchanged"
	ReasonRequested    = "requested"
)

// Observer is told about each generation the orchestrator runs.
type Observer interface {
	GenerationCompleted(reason string, report Report, elapsed time.Duration)
}

// SyncResult is the outcome of a Sync.
type SyncResult struct {
	Plan        *MealPlan
	Regenerated bool
	Reason      string
	Report      *Report
}

// Orchestrator decides when to regenerate a plan and when to keep it.
// It is not safe for concurrent use.
type Orchestrator struct {
	planner  *Planner
	state    State
	plan     *MealPlan
	observer Observer
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator with no plan loaded.
func NewOrchestrator(p *Planner, observer Observer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{planner: p, state: StateUninitialized, observer: observer, logger: logger}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Plan returns the current plan, which may be nil before the first Sync.
func (o *Orchestrator) Plan() *MealPlan {
	return o.plan
}

// Load installs a persisted plan. A nil plan is allowed.
func (o *Orchestrator) Load(plan *MealPlan) {
	if plan != nil {
		plan.Normalize()
	}
	o.plan = plan
	o.state = StateIdle
}

// Apply stores the result of a swap, guest or skip action. No regeneration
// happens.
func (o *Orchestrator) Apply(plan *MealPlan) {
	o.plan = plan
	o.state = StateReady
}

// NeedsRegeneration reports whether the plan is stale for prefs at now.
func (o *Orchestrator) NeedsRegeneration(prefs profile.Preferences, now time.Time) (bool, string) {
	prefs.Normalize()
	switch {
	case o.plan == nil:
		return true, ReasonNoPlan
	case o.plan.Date != DayKey(now):
		return true, ReasonDateChanged
	case !sameSlots(o.plan.Meta.MealPrefs, prefs.ActiveSlots()):
		return true, ReasonMealPrefs
	case o.plan.Meta.BudgetHash != BudgetHash(budgetCeiling(prefs)):
		return true, ReasonBudget
	case o.plan.Meta.InputsHash != PreferenceHash(prefs):
		return true, ReasonPreferences
	case hasUnsafeItem(o.plan, prefs.Profile.Allergies):
		return true, ReasonUnsafeItem
	}
	return false, ReasonUnchanged
}

// Sync brings the plan up to date. A stale plan is regenerated keeping
// swap counters and authorized budgets. A current plan is kept as is,
// except that approved notes not yet applied are laid over it.
func (o *Orchestrator) Sync(prefs profile.Preferences, all []notes.PriorityNote, now time.Time) SyncResult {
	if o.state == StateUninitialized {
		o.state = StateIdle
	}

	stale, reason := o.NeedsRegeneration(prefs, now)
	if !stale {
		return o.applyNewNotes(all, now)
	}
	return o.regenerate(prefs, all, now, reason)
}

// Regenerate builds a fresh plan even when the current one is up to date.
func (o *Orchestrator) Regenerate(prefs profile.Preferences, all []notes.PriorityNote, now time.Time) SyncResult {
	if o.state == StateUninitialized {
		o.state = StateIdle
	}
	return o.regenerate(prefs, all, now, ReasonRequested)
}

func (o *Orchestrator) regenerate(prefs profile.Preferences, all []notes.PriorityNote, now time.Time, reason string) SyncResult {
	o.state = StateGenerating
	start := time.Now()
	plan, report := o.planner.GenerateSchedule(prefs, notes.Actionable(all, now), now)

	if o.plan != nil {
		for id, n := range o.plan.Meta.SwapCounts {
			plan.Meta.SwapCounts[id] = n
		}
		for day, b := range o.plan.Meta.AuthorizedBudgets {
			plan.Meta.AuthorizedBudgets[day] = b
		}
	}

	if plan.IsEmpty() && !report.Skipped {
		reason = ReasonNoCandidates
	}

	o.plan = plan
	o.state = StateReady

	if o.observer != nil {
		o.observer.GenerationCompleted(reason, report, time.Since(start))
	}
	o.logger.Info("plan regenerated", zap.String("reason", reason), zap.String("date", plan.Date))

	return SyncResult{Plan: plan, Regenerated: true, Reason: reason, Report: &report}
}

func (o *Orchestrator) applyNewNotes(all []notes.PriorityNote, now time.Time) SyncResult {
	var fresh []notes.PriorityNote
	for _, n := range notes.Actionable(all, now) {
		if !o.plan.noteApplied(n.ID) {
			fresh = append(fresh, n)
		}
	}

	o.state = StateReady
	if len(fresh) == 0 {
		return SyncResult{Plan: o.plan, Reason: ReasonUnchanged}
	}

	next := ApplyPriorityNoteOverrides(o.plan, fresh, o.planner.Catalog(), now)
	if len(next.Meta.AppliedNotes) == len(o.plan.Meta.AppliedNotes) {
		return SyncResult{Plan: o.plan, Reason: ReasonUnchanged}
	}
	o.plan = next
	return SyncResult{Plan: o.plan, Reason: ReasonNoteApplied}
}

// hasUnsafeItem ignores items placed by a note since those bypass
// eligibility on purpose.
func hasUnsafeItem(plan *MealPlan, allergies []string) bool {
	for _, items := range plan.Items {
		for _, item := range items {
			if item.OverrideNoteID != "" || !item.Scheduled() {
				continue
			}
			if !IsMealSafe(item.Meal, allergies) {
				return true
			}
		}
	}
	return false
}

func sameSlots(a, b []catalog.MealTime) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
