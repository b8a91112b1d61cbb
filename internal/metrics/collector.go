package metrics

import (
	"net/http"
	"time"

	"meal-scheduler/internal/planner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meal_scheduler"

// Collector exposes scheduler activity as Prometheus metrics. It
// implements planner.Observer.
type Collector struct {
	registry *prometheus.Registry

	generations      *prometheus.CounterVec
	generationTime   prometheus.Histogram
	optimizerPasses  prometheus.Histogram
	overBudget       prometheus.Counter
	swaps            *prometheus.CounterVec
	guestAdds        *prometheus.CounterVec
	notesResolved    *prometheus.CounterVec
	planTotalDollars prometheus.Gauge
}

// NewCollector registers the scheduler metrics on a fresh registry along
// with the Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Schedule generations by trigger reason and strategy",
		}, []string{"reason", "strategy"}),
		generationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating a schedule",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
		}),
		optimizerPasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimizer_passes",
			Help:      "Downgrade passes needed to fit the budget",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
		overBudget: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "over_budget_plans_total",
			Help:      "Generated plans that could not fit the budget",
		}),
		swaps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Meal swaps by slot and outcome",
		}, []string{"slot", "outcome"}),
		guestAdds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_meals_total",
			Help:      "Guest meal requests by outcome",
		}, []string{"outcome"}),
		notesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "priority_notes_total",
			Help:      "Priority notes resolved by status",
		}, []string{"status"}),
		planTotalDollars: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_pre_tax_total_dollars",
			Help:      "Pre-tax total of the most recently generated plan",
		}),
	}
}

// GenerationCompleted implements planner.Observer.
func (c *Collector) GenerationCompleted(reason string, report planner.Report, elapsed time.Duration) {
	c.generations.WithLabelValues(reason, string(report.Strategy)).Inc()
	c.generationTime.Observe(elapsed.Seconds())
	c.optimizerPasses.Observe(float64(report.Iterations))
	c.planTotalDollars.Set(report.PreTaxTotal)
	if report.OverBudget {
		c.overBudget.Inc()
	}
}

// SwapPerformed counts a swap attempt.
func (c *Collector) SwapPerformed(slot string, swapped bool) {
	outcome := "swapped"
	if !swapped {
		outcome = "no_alternative"
	}
	c.swaps.WithLabelValues(slot, outcome).Inc()
}

// GuestRequested counts a guest add: "added", "needs_confirmation" or
// "confirmed".
func (c *Collector) GuestRequested(outcome string) {
	c.guestAdds.WithLabelValues(outcome).Inc()
}

// NoteResolved counts a note leaving the pending state.
func (c *Collector) NoteResolved(status string) {
	c.notesResolved.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
