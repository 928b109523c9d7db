package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SATANA888791/mail-registry/internal/infra/config"
)

// Provider represents a telemetry provider handle. A nil provider is valid
// and drops every observation, so usecases never need nil checks.
type Provider struct {
	httpRequests   prometheus.Counter
	loginAttempts  *prometheus.CounterVec
	lockouts       *prometheus.CounterVec
	numbersIssued  *prometheus.CounterVec
	numbersRepairs prometheus.Counter
}

// Attach configures telemetry collectors and returns a provider handle.
func Attach(cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		httpRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}),
		loginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		lockouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "account_lockouts_total",
			Help:      "Account lockouts by kind",
		}, []string{"kind"}),
		numbersIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "sequence_numbers_issued_total",
			Help:      "Issued document sequence numbers by register",
		}, []string{"domain"}),
		numbersRepairs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "sequence_counter_repairs_total",
			Help:      "Sequence counters realigned by the admin console",
		}),
	}, nil
}

// ObserveHTTPRequest counts one served HTTP request.
func (p *Provider) ObserveHTTPRequest() {
	if p == nil {
		return
	}
	p.httpRequests.Inc()
}

// ObserveLoginAttempt counts one login attempt with its outcome
// (success, failure, blocked, unknown_user).
func (p *Provider) ObserveLoginAttempt(outcome string) {
	if p == nil {
		return
	}
	p.loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveLockout counts one lockout by kind (temporary, permanent).
func (p *Provider) ObserveLockout(kind string) {
	if p == nil {
		return
	}
	p.lockouts.WithLabelValues(kind).Inc()
}

// ObserveNumberIssued counts one issued sequence number.
func (p *Provider) ObserveNumberIssued(domain string) {
	if p == nil {
		return
	}
	p.numbersIssued.WithLabelValues(domain).Inc()
}

// ObserveCounterRepair counts one read-repair of a drifted counter.
func (p *Provider) ObserveCounterRepair() {
	if p == nil {
		return
	}
	p.numbersRepairs.Inc()
}
