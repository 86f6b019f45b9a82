package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adgen_quota_decisions_total",
		Help: "Quota gate outcomes, labelled allowed or denied.",
	}, []string{"result"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adgen_stripe_webhook_events_total",
		Help: "Stripe webhook events by type and outcome.",
	}, []string{"type", "outcome"})

	AdGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adgen_generations_total",
		Help: "Ad generation attempts by outcome.",
	}, []string{"outcome"})
)
