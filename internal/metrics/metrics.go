// Package metrics exports engine events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	research "github.com/armatrix/deep-research-go"
	"github.com/armatrix/deep-research-go/internal/budget"
)

const namespace = "deep_research"

// Collector holds the engine metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	StagesTotal         *prometheus.CounterVec
	ModelTurnsTotal     *prometheus.CounterVec
	ToolCallsTotal      *prometheus.CounterVec
	ToolCallDuration    *prometheus.HistogramVec
	ForcedStopsTotal    prometheus.Counter
	DispatchesTotal     prometheus.Counter
	ResearchersSkipped  prometheus.Counter
	ResearcherTasks     *prometheus.CounterVec
	ResearcherDuration  prometheus.Histogram
	ResearchersInFlight prometheus.Gauge
}

// New creates a Collector with a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Completed runs by final status",
			},
			[]string{"status"},
		),
		RunDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "End-to-end run duration in seconds",
				Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
			},
		),
		StagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stages_total",
				Help:      "Finished pipeline stages by stage and result",
			},
			[]string{"stage", "result"},
		),
		ModelTurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_turns_total",
				Help:      "Model calls made inside tool loops",
			},
			[]string{"agent"},
		),
		ToolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool executions by tool and status",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool execution latency in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		ForcedStopsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forced_stops_total",
				Help:      "Loops stopped at the iteration ceiling with tool calls pending",
			},
		),
		DispatchesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Researcher batches started by the supervisor",
			},
		),
		ResearchersSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "researchers_skipped_total",
				Help:      "Research requests rejected by the concurrency bound",
			},
		),
		ResearcherTasks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "researcher_tasks_total",
				Help:      "Finished researcher tasks by outcome",
			},
			[]string{"outcome"},
		),
		ResearcherDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "researcher_task_duration_seconds",
				Help:      "Researcher task duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ResearchersInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "researchers_in_flight",
				Help:      "Researchers dispatched and not yet finished",
			},
		),
	}
}

// WatchBudget exposes the tracker's spend and call count as gauges.
func (c *Collector) WatchBudget(t *budget.Tracker) {
	f := promauto.With(c.registry)
	f.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spend_usd",
			Help:      "Estimated model spend in USD",
		},
		func() float64 { return t.TotalCost().InexactFloat64() },
	)
	f.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_calls",
			Help:      "Model calls recorded by the budget tracker",
		},
		func() float64 { return float64(t.Snapshot().Calls) },
	)
}

// Handle records an engine event. It is a research.EventHandler.
func (c *Collector) Handle(ev research.Event) {
	switch e := ev.(type) {
	case *research.RunEvent:
		c.RunsTotal.WithLabelValues(string(e.Status)).Inc()
		c.RunDuration.Observe(e.Duration.Seconds())
	case *research.StageEvent:
		if !e.Done {
			return
		}
		result := "ok"
		if e.Err != nil {
			result = "error"
		}
		c.StagesTotal.WithLabelValues(string(e.Stage), result).Inc()
	case *research.ModelTurnEvent:
		c.ModelTurnsTotal.WithLabelValues(agentLabel(e.Agent)).Inc()
	case *research.ToolCallEvent:
		status := "ok"
		if e.IsError {
			status = "error"
		}
		c.ToolCallsTotal.WithLabelValues(e.Tool, status).Inc()
		c.ToolCallDuration.WithLabelValues(e.Tool).Observe(e.Duration.Seconds())
	case *research.ForcedStopEvent:
		c.ForcedStopsTotal.Inc()
	case *research.DispatchEvent:
		c.DispatchesTotal.Inc()
		c.ResearchersSkipped.Add(float64(e.Skipped))
		c.ResearchersInFlight.Add(float64(len(e.Topics)))
	case *research.ResearcherEvent:
		c.ResearcherTasks.WithLabelValues(outcome(e)).Inc()
		c.ResearcherDuration.Observe(e.Duration.Seconds())
		c.ResearchersInFlight.Dec()
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// agentLabel keeps label cardinality bounded: researcher task IDs collapse
// into one value.
func agentLabel(agent string) string {
	if agent == research.SupervisorAgent {
		return agent
	}
	return "researcher"
}

func outcome(e *research.ResearcherEvent) string {
	switch {
	case e.Err != nil:
		return "error"
	case e.Degraded:
		return "degraded"
	case e.ForcedStop:
		return "forced_stop"
	}
	return "ok"
}
