// Package metrics holds the Prometheus instrumentation for the FirmOS
// decision engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the decision engines.
type Metrics struct {
	// Autonomy evaluator
	AutonomyDecisions *prometheus.CounterVec

	// Guardian engine
	GuardianRuns   *prometheus.CounterVec
	GuardianChecks *prometheus.CounterVec

	// Release workflow
	ReleaseTransitions *prometheus.CounterVec
	ReleaseRefusals    *prometheus.CounterVec

	// Incident log
	IncidentsLogged   *prometheus.CounterVec
	BlockingIncidents prometheus.Gauge

	// Tool permission gate
	ToolDenials *prometheus.CounterVec
}

// New creates and registers all FirmOS metrics.
func New() *Metrics {
	return &Metrics{
		AutonomyDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_autonomy_decisions_total",
				Help: "Autonomy tier decisions by resulting tier",
			},
			[]string{"tier"},
		),

		GuardianRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_guardian_runs_total",
				Help: "Guardian report evaluations by aggregate result",
			},
			[]string{"result"}, // passed, blocked
		),

		GuardianChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_guardian_checks_total",
				Help: "Individual guardian check outcomes",
			},
			[]string{"check_id", "result"}, // result: pass, fail
		),

		ReleaseTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_release_transitions_total",
				Help: "Release workflow decisions by resulting status",
			},
			[]string{"status"},
		),

		ReleaseRefusals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_release_refusals_total",
				Help: "Invalid release transition attempts refused as no-ops",
			},
			[]string{"operation"}, // authorize, execute, rollback
		),

		IncidentsLogged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_incidents_total",
				Help: "Incidents logged by type and severity",
			},
			[]string{"type", "severity"},
		),

		BlockingIncidents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "firmos_blocking_incidents",
				Help: "Unresolved CRITICAL incidents currently blocking releases",
			},
		),

		ToolDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firmos_tool_denials_total",
				Help: "Tool permission denials by tool name",
			},
			[]string{"tool"},
		),
	}
}
