// Package metrics bundles the Prometheus collectors for linkharvest.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all collectors on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	NavigationsTotal   *prometheus.CounterVec
	NavigationDuration prometheus.Histogram
	CaptchaTotal       *prometheus.CounterVec
	BlockedURLs        prometheus.Gauge
	ProfilesTotal      *prometheus.CounterVec
	EntriesTotal       *prometheus.CounterVec
	RelayPollsTotal    prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	navigations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkharvest_navigations_total",
			Help: "Navigation attempts by outcome (ok, timeout, blocked, captcha, error).",
		},
		[]string{"outcome"},
	)
	navDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkharvest_navigation_duration_seconds",
			Help:    "Wall time of page navigations including retries.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	captcha := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkharvest_captcha_events_total",
			Help: "CAPTCHA lifecycle events (detected, solved_local, solved_relay, solved_bypass, exhausted, blocked).",
		},
		[]string{"event"},
	)
	blocked := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkharvest_blocked_urls",
			Help: "URLs currently in the session blocklist.",
		},
	)
	profiles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkharvest_profiles_total",
			Help: "Profiles processed by outcome (scraped, failed, skipped).",
		},
		[]string{"outcome"},
	)
	entries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkharvest_section_entries_total",
			Help: "Section entries extracted, by section.",
		},
		[]string{"section"},
	)
	relayPolls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkharvest_relay_polls_total",
			Help: "Solution polls issued to the CAPTCHA relay.",
		},
	)

	registry.MustRegister(navigations, navDuration, captcha, blocked, profiles, entries, relayPolls)

	return &Metrics{
		Registry:           registry,
		NavigationsTotal:   navigations,
		NavigationDuration: navDuration,
		CaptchaTotal:       captcha,
		BlockedURLs:        blocked,
		ProfilesTotal:      profiles,
		EntriesTotal:       entries,
		RelayPollsTotal:    relayPolls,
	}
}

// Handler exposes the registry in the Prometheus text format. Nil-safe, so
// a command without metrics wired can still mount the route.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Nil-safe helpers so components can run without metrics wired.

func (m *Metrics) IncNavigation(outcome string) {
	if m == nil {
		return
	}
	m.NavigationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveNavigation(d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationDuration.Observe(d.Seconds())
}

func (m *Metrics) IncCaptcha(event string) {
	if m == nil {
		return
	}
	m.CaptchaTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) SetBlockedURLs(n int) {
	if m == nil {
		return
	}
	m.BlockedURLs.Set(float64(n))
}

func (m *Metrics) IncProfile(outcome string) {
	if m == nil {
		return
	}
	m.ProfilesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddEntries(section string, n int) {
	if m == nil {
		return
	}
	m.EntriesTotal.WithLabelValues(section).Add(float64(n))
}

func (m *Metrics) IncRelayPoll() {
	if m == nil {
		return
	}
	m.RelayPollsTotal.Inc()
}
