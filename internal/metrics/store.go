package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"meal-scheduler/internal/shared"

	"github.com/google/uuid"
)

// timeLayout is the stored timestamp format.
const timeLayout = "2006-01-02 15:04:05"

// ExecutionMetric records metadata for a single agent execution.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// GenerationRun records one schedule generation.
type GenerationRun struct {
	ID          string
	UserID      string
	Reason      string
	Strategy    string
	PreTaxTotal float64
	Iterations  int
	OverBudget  bool
	Candidates  int
	LatencyMS   int64
	CreatedAt   time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record saves an agent execution metric.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Executions
// that used no tokens, such as keyword matching, are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if !meta.Usage.Billed() {
		return nil
	}
	return s.Record(ctx, MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// RecordRun saves a generation run.
func (s *Store) RecordRun(ctx context.Context, r GenerationRun) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_runs (id, user_id, reason, strategy, pre_tax_total, iterations, over_budget, candidates, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Reason, r.Strategy, r.PreTaxTotal, r.Iterations, r.OverBudget, r.Candidates, r.LatencyMS, r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record generation run: %w", err)
	}
	return nil
}

// DailyUsage represents totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Generations     int
	OverBudgetRuns  int
	AvgLatencyMS    float64
}

// GetDailyUsage returns per-day token and generation totals for the last
// days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().AddDate(0, 0, -days).UTC().Format(timeLayout)

	byDay := make(map[string]*DailyUsage)
	var order []string
	day := func(d string) *DailyUsage {
		if u, ok := byDay[d]; ok {
			return u
		}
		u := &DailyUsage{Date: d}
		byDay[d] = u
		order = append(order, d)
		return u
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution metrics: %w", err)
	}
	for rows.Next() {
		var d sql.NullString
		var count, prompt, completion int
		if err := rows.Scan(&d, &count, &prompt, &completion); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan execution metrics: %w", err)
		}
		u := day(dayOrUnknown(d))
		u.TotalExecution, u.TotalPrompt, u.TotalCompletion = count, prompt, completion
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT date(created_at) AS day, COUNT(*), COALESCE(SUM(over_budget), 0), COALESCE(AVG(latency_ms), 0)
		FROM generation_runs
		WHERE created_at >= ?
		GROUP BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation runs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d sql.NullString
		var count, over int
		var latency float64
		if err := rows.Scan(&d, &count, &over, &latency); err != nil {
			return nil, fmt.Errorf("failed to scan generation runs: %w", err)
		}
		u := day(dayOrUnknown(d))
		u.Generations, u.OverBudgetRuns, u.AvgLatencyMS = count, over, latency
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]DailyUsage, 0, len(order))
	for _, d := range order {
		results = append(results, *byDay[d])
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date > results[j].Date })
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// returns how many rows were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().AddDate(0, 0, -olderThanDays).UTC().Format(timeLayout)

	var total int64
	for _, q := range []string{
		`DELETE FROM execution_metrics WHERE timestamp < ?`,
		`DELETE FROM generation_runs WHERE created_at < ?`,
	} {
		res, err := s.db.ExecContext(ctx, q, threshold)
		if err != nil {
			return total, fmt.Errorf("failed to clean up metrics: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// MapUsage helper to convert shared.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}

func dayOrUnknown(d sql.NullString) string {
	if d.Valid && d.String != "" {
		return d.String
	}
	return "Unknown"
}
