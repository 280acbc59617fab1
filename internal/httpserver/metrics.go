// internal/httpserver/metrics.go
//
// Prometheus counters served on /metrics.

package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mastermind_sessions_created_total",
		Help: "Game sessions created, by mode.",
	}, []string{"mode"})

	metricGuesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mastermind_guesses_total",
		Help: "Guess submissions, by outcome (applied or rejected).",
	}, []string{"result"})

	metricMatchmaking = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mastermind_matchmaking_total",
		Help: "PvP create requests, by outcome (matched an existing session or created a waiting one).",
	}, []string{"outcome"})
)
