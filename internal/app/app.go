package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meal-scheduler/internal/budgetauth"
	"meal-scheduler/internal/catalog"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/metrics"
	"meal-scheduler/internal/notes"
	"meal-scheduler/internal/planner"
	"meal-scheduler/internal/storage"

	"go.uber.org/zap"
)

// App holds the application's dependencies and one Session per user.
type App struct {
	cfg          *config.Config
	state        *storage.StateRepository
	metricsStore *metrics.Store
	collector    *metrics.Collector
	analyzer     notes.Analyzer
	authorizer   *budgetauth.Authorizer
	importer     *catalog.Importer
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	meals    []catalog.Meal
	sessions map[string]*Session
}

// Option configures an App.
type Option func(*App)

// WithMetricsStore records generation runs and analyzer usage in SQLite.
func WithMetricsStore(s *metrics.Store) Option {
	return func(a *App) { a.metricsStore = s }
}

// WithCollector exports Prometheus metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(a *App) { a.collector = c }
}

// WithAnalyzer sets the priority note analyzer. The keyword analyzer is
// used when none is given.
func WithAnalyzer(an notes.Analyzer) Option {
	return func(a *App) { a.analyzer = an }
}

func WithImporter(i *catalog.Importer) Option {
	return func(a *App) { a.importer = i }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// NewApp creates and initializes a new App instance.
func NewApp(cfg *config.Config, meals []catalog.Meal, state *storage.StateRepository, opts ...Option) *App {
	a := &App{
		cfg:        cfg,
		state:      state,
		meals:      meals,
		authorizer: budgetauth.NewAuthorizer(cfg.BudgetSigningSecret, cfg.ConfirmationTTL),
		importer:   catalog.NewImporter(),
		logger:     zap.NewNop(),
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.analyzer == nil {
		a.analyzer = notes.NewKeywordAnalyzer(meals)
	}
	a.analyzer = &meteredAnalyzer{next: a.analyzer, app: a}
	return a
}

// Meals returns the catalog currently in use.
func (a *App) Meals() []catalog.Meal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meals
}

// Collector returns the Prometheus collector, which may be nil.
func (a *App) Collector() *metrics.Collector {
	return a.collector
}

// MetricsStore returns the SQLite metrics store, which may be nil.
func (a *App) MetricsStore() *metrics.Store {
	return a.metricsStore
}

// Session returns the session for userID, loading its persisted state on
// first use.
func (a *App) Session(ctx context.Context, userID string) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[userID]; ok {
		return s, nil
	}
	s, err := a.openSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.sessions[userID] = s
	return s, nil
}

// ImportMenu fetches a vendor's menu page, merges its meals into the
// catalog and writes the result to the configured catalog path. Open
// sessions are closed so the next access plans against the new catalog.
func (a *App) ImportMenu(ctx context.Context, url, vendor string) (int, error) {
	if a.cfg.CatalogPath == "" {
		return 0, fmt.Errorf("CATALOG_PATH environment variable not set")
	}

	imported, err := a.importer.FetchMenu(ctx, url, vendor)
	if err != nil {
		return 0, fmt.Errorf("failed to import menu: %w", err)
	}

	a.mu.Lock()
	merged := catalog.Merge(a.meals, imported)
	if err := catalog.Save(a.cfg.CatalogPath, merged); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	a.meals = merged
	stale := a.sessions
	a.sessions = make(map[string]*Session)
	a.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	a.logger.Info("menu imported",
		zap.String("vendor", vendor),
		zap.Int("meals", len(imported)),
		zap.Int("catalog_size", len(merged)),
	)
	return len(imported), nil
}

// Close stops every session's note analysis.
func (a *App) Close() {
	a.mu.Lock()
	sessions := a.sessions
	a.sessions = make(map[string]*Session)
	a.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// openSession must be called with a.mu held.
func (a *App) openSession(ctx context.Context, userID string) (*Session, error) {
	prefs, err := a.state.LoadPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	plan, err := a.state.LoadPlan(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	saved, err := a.state.LoadNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}

	logger := a.logger.With(zap.String("user_id", userID))
	opts := []planner.Option{
		planner.WithAuthorizer(a.authorizer),
		planner.WithLogger(logger),
	}
	if a.cfg.RandomSeed != 0 {
		opts = append(opts, planner.WithRand(planner.NewSeededRand(a.cfg.RandomSeed)))
	}
	p := planner.NewPlanner(a.meals, opts...)

	s := &Session{
		userID:  userID,
		app:     a,
		prefs:   prefs,
		planner: p,
		logger:  logger,
	}
	s.orchestrator = planner.NewOrchestrator(p, &runObserver{app: a, userID: userID}, logger)
	s.orchestrator.Load(plan)
	s.board = notes.NewBoard(a.analyzer,
		notes.WithDelay(a.cfg.NoteAnalysisDelay),
		notes.WithClock(a.now),
		notes.WithLogger(logger),
		notes.OnResolved(s.noteResolved),
	)
	s.board.Load(saved)
	return s, nil
}

// runObserver fans a completed generation out to the Prometheus collector
// and the SQLite run history.
type runObserver struct {
	app    *App
	userID string
}

func (o *runObserver) GenerationCompleted(reason string, report planner.Report, elapsed time.Duration) {
	if o.app.collector != nil {
		o.app.collector.GenerationCompleted(reason, report, elapsed)
	}
	if o.app.metricsStore == nil {
		return
	}
	err := o.app.metricsStore.RecordRun(context.Background(), metrics.GenerationRun{
		UserID:      o.userID,
		Reason:      reason,
		Strategy:    string(report.Strategy),
		PreTaxTotal: report.PreTaxTotal,
		Iterations:  report.Iterations,
		OverBudget:  report.OverBudget,
		Candidates:  report.Candidates,
		LatencyMS:   elapsed.Milliseconds(),
	})
	if err != nil {
		o.app.logger.Warn("failed to record generation run", zap.Error(err))
	}
}

// meteredAnalyzer records token usage for every analysis that reached a model.
type meteredAnalyzer struct {
	next notes.Analyzer
	app  *App
}

func (m *meteredAnalyzer) Analyze(ctx context.Context, text string) (notes.Analysis, error) {
	start := time.Now()
	res, err := m.next.Analyze(ctx, text)
	if err != nil || m.app.metricsStore == nil {
		return res, err
	}
	meta := res.Meta
	if meta.Latency == 0 {
		meta.Latency = time.Since(start)
	}
	if recErr := m.app.metricsStore.RecordMeta(ctx, meta); recErr != nil {
		m.app.logger.Warn("failed to record analyzer metrics", zap.String("agent", meta.AgentName), zap.Error(recErr))
	}
	return res, nil
}
