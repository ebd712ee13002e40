package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turns counts finished conversational turns by outcome
	// (accepted, rejected, degraded, safety).
	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puppettale_turns_total",
		Help: "Conversational turns processed, labelled by outcome.",
	}, []string{"outcome"})

	// GatewayAttempts counts individual backend calls made by the generative gateway.
	GatewayAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puppettale_gateway_attempts_total",
		Help: "Generative backend calls, labelled by backend and result.",
	}, []string{"backend", "result"})

	// Stories counts story synthesis runs by outcome.
	Stories = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puppettale_stories_total",
		Help: "Story synthesis runs, labelled by outcome.",
	}, []string{"outcome"})

	// IllustrationFallbacks counts pages that received the placeholder image.
	IllustrationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppettale_illustration_fallbacks_total",
		Help: "Story pages that fell back to the placeholder image.",
	})

	// SessionsEvicted counts idle sessions removed by the janitor.
	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puppettale_sessions_evicted_total",
		Help: "Idle sessions evicted from the in-memory session store.",
	})
)
