package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"meal-scheduler/internal/budgetauth"
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/notes"
	"meal-scheduler/internal/profile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Authorizer signs and checks over-budget guest confirmations.
type Authorizer interface {
	Issue(g budgetauth.Grant) (string, time.Time, error)
	Verify(token string) (budgetauth.Grant, error)
}

// Planner builds and edits daily meal plans against a fixed catalog.
type Planner struct {
	meals      []catalog.Meal
	picker     *Picker
	authorizer Authorizer
	newID      func() string
	tolerance  float64
	logger     *zap.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithRand sets the picker's tie-break source.
func WithRand(rnd Rand) Option {
	return func(p *Planner) { p.picker = NewPicker(rnd) }
}

// WithAuthorizer sets the signer for budget confirmations.
func WithAuthorizer(a Authorizer) Option {
	return func(p *Planner) { p.authorizer = a }
}

// WithIDGenerator overrides how guest item ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(p *Planner) { p.newID = fn }
}

// WithTolerance sets the picker's price window.
func WithTolerance(t float64) Option {
	return func(p *Planner) { p.tolerance = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// NewPlanner creates a Planner for meals.
func NewPlanner(meals []catalog.Meal, opts ...Option) *Planner {
	p := &Planner{
		meals:     meals,
		newID:     uuid.NewString,
		tolerance: DefaultTolerance,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.picker == nil {
		p.picker = NewPicker(nil)
	}
	return p
}

// Catalog returns the meals the planner chooses from.
func (p *Planner) Catalog() []catalog.Meal {
	return p.meals
}

// Report describes how a plan was generated.
type Report struct {
	Strategy       Strategy
	MaxPreTaxTotal float64
	PreTaxTotal    float64
	Iterations     int
	OverBudget     bool
	Candidates     int
	UsedFallback   bool
	Skipped        bool
	MissingSlots   []catalog.MealTime
}

// GenerateSchedule runs the full pipeline for the day containing now:
// filter, allocate, pick, optimize, then apply approved notes. It never
// fails; an empty candidate pool yields an empty plan.
func (p *Planner) GenerateSchedule(prefs profile.Preferences, approved []notes.PriorityNote, now time.Time) (*MealPlan, Report) {
	prefs.Normalize()
	plan := NewMealPlan(DayKey(now))
	plan.Meta.MealPrefs = prefs.ActiveSlots()
	plan.Meta.InputsHash = PreferenceHash(prefs)

	var report Report
	slots := prefs.ActiveSlots()
	ceiling := budgetCeiling(prefs)
	plan.Meta.Budget = roundCents(ceiling)
	plan.Meta.BudgetHash = BudgetHash(ceiling)

	alloc, ok := Allocate(prefs.Profile.DailyAllowance, slots)
	if !ok {
		report.Skipped = true
		return plan, report
	}
	plan.Meta.Strategy = alloc.Strategy
	report.Strategy = alloc.Strategy
	report.MaxPreTaxTotal = alloc.MaxPreTaxTotal

	eligible := FilterEligible(p.meals, prefs)
	report.Candidates = len(eligible)
	if len(eligible) == 0 {
		eligible = SafeFallback(p.meals, prefs)
		report.UsedFallback = true
		report.Candidates = len(eligible)
	}
	if len(eligible) == 0 {
		p.logger.Warn("no candidate meals for preferences", zap.String("date", plan.Date))
		return plan, report
	}

	var fallback []catalog.Meal
	pools := make(map[catalog.MealTime][]catalog.Meal, len(slots))
	selection := make(map[catalog.MealTime]catalog.Meal, len(slots))
	for _, slot := range slots {
		pool := servingAt(eligible, slot)
		if len(pool) == 0 {
			if fallback == nil {
				fallback = SafeFallback(p.meals, prefs)
			}
			pool = servingAt(fallback, slot)
			report.UsedFallback = true
		}
		pools[slot] = pool

		meal, ok := p.picker.PickMeal(slot, alloc.Targets[slot], pool, prefs.Reviews, p.tolerance)
		if !ok {
			report.MissingSlots = append(report.MissingSlots, slot)
			continue
		}
		selection[slot] = meal
	}

	opt := Optimize(selection, pools, alloc.MaxPreTaxTotal)
	report.Iterations = opt.Iterations
	report.OverBudget = opt.OverBudget
	report.PreTaxTotal = opt.Total
	plan.Meta.OverBudget = opt.OverBudget

	for _, slot := range slots {
		meal, ok := opt.Selection[slot]
		if !ok {
			continue
		}
		plan.Items[slot] = []ScheduleItem{{
			ID:     HostID(slot),
			Role:   RoleHost,
			Status: StatusScheduled,
			Meal:   meal,
		}}
	}

	plan = ApplyPriorityNoteOverrides(plan, approved, p.meals, now)

	p.logger.Debug("schedule generated",
		zap.String("date", plan.Date),
		zap.String("strategy", string(alloc.Strategy)),
		zap.Float64("pre_tax_total", opt.Total),
		zap.Int("iterations", opt.Iterations),
		zap.Bool("over_budget", opt.OverBudget),
	)
	return plan, report
}

func budgetCeiling(prefs profile.Preferences) float64 {
	return PreTax(math.Max(prefs.Profile.DailyAllowance, 0))
}

// PreferenceHash fingerprints the preference inputs that change which
// meals are eligible. Meal times and budget are tracked separately.
func PreferenceHash(prefs profile.Preferences) string {
	var disliked []string
	for name, r := range prefs.Reviews {
		if r.Disliked() {
			disliked = append(disliked, name)
		}
	}

	parts := []string{
		"cuisines=" + canonical(prefs.Cuisines),
		"tiers=" + canonical(prefs.RestaurantPrefs),
		"diet=" + canonical(prefs.Profile.Diet),
		"allergies=" + canonical(prefs.Profile.Allergies),
		"disliked=" + canonical(disliked),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}

func canonical(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, normalize(v))
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
