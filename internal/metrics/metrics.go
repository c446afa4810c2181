// Package metrics provides Prometheus metrics for the aggregation pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects and exposes pipeline counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	PollsTotal      *prometheus.CounterVec
	RouterSwitches  *prometheus.CounterVec
	Discrepancies   prometheus.Counter
	SignalsEmitted  prometheus.Counter
	SignalsDeduped  prometheus.Counter
	LiveMatches     prometheus.Gauge
	MatchesArchived prometheus.Counter
}

// New creates and registers all pipeline metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchpulse_polls_total",
				Help: "Feed poll attempts by domain, feed alias and outcome",
			},
			[]string{"domain", "feed", "outcome"},
		),
		RouterSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchpulse_router_switches_total",
				Help: "Active-feed switches per domain",
			},
			[]string{"domain"},
		),
		Discrepancies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matchpulse_score_discrepancies_total",
				Help: "Cross-source score disagreements recorded",
			},
		),
		SignalsEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matchpulse_signals_emitted_total",
				Help: "Smart-money signals published",
			},
		),
		SignalsDeduped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matchpulse_signals_deduped_total",
				Help: "Signal candidates suppressed by the dedup window",
			},
		),
		LiveMatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "matchpulse_live_matches",
				Help: "Matches currently tracked as live",
			},
		),
		MatchesArchived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "matchpulse_matches_archived_total",
				Help: "Matches evicted from the store and archived",
			},
		),
	}

	registry.MustRegister(
		m.PollsTotal,
		m.RouterSwitches,
		m.Discrepancies,
		m.SignalsEmitted,
		m.SignalsDeduped,
		m.LiveMatches,
		m.MatchesArchived,
	)
	return m
}

// RecordPoll counts one poll attempt. Outcome is "success", "timeout",
// "http_error" or "parse_error".
func (m *Metrics) RecordPoll(domain, feed, outcome string) {
	m.PollsTotal.WithLabelValues(domain, feed, outcome).Inc()
}

// RecordSwitch counts one router switch in a domain.
func (m *Metrics) RecordSwitch(domain string) {
	m.RouterSwitches.WithLabelValues(domain).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
