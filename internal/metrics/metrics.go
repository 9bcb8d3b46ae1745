package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GuardDecisions counts route-guard outcomes by decision
	// ("allow", "redirect_signin", "redirect_role").
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiongate",
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions by outcome.",
	}, []string{"decision"})

	// RefreshOutcomes counts token-refresh policy outcomes by state
	// ("fresh", "refreshed", "no_expiry", "failed").
	RefreshOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiongate",
		Name:      "token_refresh_total",
		Help:      "Token refresh policy outcomes.",
	}, []string{"outcome"})

	// ExchangeFailures counts credential-exchange failures by kind
	// ("invalid_response", "upstream", "transport").
	ExchangeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sessiongate",
		Name:      "credential_exchange_failures_total",
		Help:      "Identity bridge exchange failures.",
	}, []string{"kind"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
