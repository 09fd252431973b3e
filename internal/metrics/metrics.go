package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "classroom_quiz"

var (
	SessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_open",
		Help:      "Live sessions held by this instance.",
	})

	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "phase_transitions_total",
		Help:      "Session phase transitions by target phase.",
	}, []string{"phase"})

	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_total",
		Help:      "Answer submissions by result (correct, wrong, timeout, duplicate).",
	}, []string{"result"})

	Kicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kicks_total",
		Help:      "Participants removed by professors.",
	})

	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_errors_total",
		Help:      "Failed backend calls by operation.",
	}, []string{"op"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open WebSocket connections.",
	})

	QuestionCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "question_cache_lookups_total",
		Help:      "Question cache lookups by outcome (hit, miss).",
	}, []string{"outcome"})
)
