package gasprice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasprice_fetches_total",
		Help: "Gas price fetch attempts by chain, source and outcome.",
	}, []string{"chain", "source", "outcome"})

	escalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasprice_escalations_total",
		Help: "Refresh failures escalated past the tolerated streak.",
	}, []string{"chain"})

	errorStreakGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gasprice_error_streak",
		Help: "Consecutive failed refresh cycles since the last success.",
	}, []string{"chain"})

	fastWeiGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gasprice_fast_wei",
		Help: "Latest fast gas price estimate in wei.",
	}, []string{"chain"})
)
