// Package metrics collects authentication outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"authcore/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authcore"

// Collector is the Prometheus implementation of service.AuthMetrics.
type Collector struct {
	logins           *prometheus.CounterVec
	loginFailures    *prometheus.CounterVec
	refreshes        prometheus.Counter
	refreshFailures  *prometheus.CounterVec
	revocations      *prometheus.CounterVec
	registrationRace prometheus.Counter
	eventPublishes   *prometheus.CounterVec
}

var _ service.AuthMetrics = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Successful logins by provider and whether the account was created.",
		}, []string{"provider", "new_user"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Rejected logins by reason.",
		}, []string{"reason"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Successful refresh token rotations.",
		}),
		refreshFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Rejected refresh attempts by internal reason.",
		}, []string{"reason"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revoked_tokens_total",
			Help:      "Refresh tokens revoked, by scope.",
		}, []string{"scope"}),
		registrationRace: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_races_total",
			Help:      "Concurrent first logins that lost the insert and were retried.",
		}),
		eventPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publishes_total",
			Help:      "User registered event publications by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.logins,
		c.loginFailures,
		c.refreshes,
		c.refreshFailures,
		c.revocations,
		c.registrationRace,
		c.eventPublishes,
	)

	return c
}

// RecordLogin counts a successful login.
func (c *Collector) RecordLogin(provider string, newUser bool) {
	c.logins.WithLabelValues(provider, strconv.FormatBool(newUser)).Inc()
}

// RecordLoginFailure counts a rejected login.
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailures.WithLabelValues(reason).Inc()
}

// RecordRefresh counts a successful rotation.
func (c *Collector) RecordRefresh() {
	c.refreshes.Inc()
}

// RecordRefreshFailure counts a rejected refresh by its internal reason.
func (c *Collector) RecordRefreshFailure(reason string) {
	c.refreshFailures.WithLabelValues(reason).Inc()
}

// RecordRevocations adds count revoked tokens under scope.
func (c *Collector) RecordRevocations(scope string, count int) {
	if count <= 0 {
		return
	}
	c.revocations.WithLabelValues(scope).Add(float64(count))
}

// RecordRegistrationRace counts a lost concurrent registration.
func (c *Collector) RecordRegistrationRace() {
	c.registrationRace.Inc()
}

// RecordEventPublish counts an event publication attempt.
func (c *Collector) RecordEventPublish(succeeded bool) {
	result := "failure"
	if succeeded {
		result = "success"
	}
	c.eventPublishes.WithLabelValues(result).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
