//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysesTotal counts analyses by result
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measuredna_analyses_total",
		Help: "Total score analyses by result",
	}, []string{"result"})

	// analysisDuration tracks parse + fingerprint latency
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "measuredna_analysis_duration_seconds",
		Help:    "Score analysis duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// hoverEventsTotal counts pointer events by action
	hoverEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "measuredna_hover_events_total",
		Help: "Total hover events received by action",
	}, []string{"action"})

	// hoverSessions is the number of open hover websockets
	hoverSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "measuredna_hover_sessions",
		Help: "Open hover websocket sessions",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
