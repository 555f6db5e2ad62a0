// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the relay.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "finchvoice"

// RelayMetrics holds the Prometheus metrics for the reply pipeline.
// Initialize once at startup via InitMetrics().
type RelayMetrics struct {
	// RequestsTotal counts /ask requests.
	// Labels: status (ok, blocked_input, blocked_output, client_error, server_error)
	RequestsTotal *prometheus.CounterVec

	// PassesTotal counts engine passes by number and outcome.
	// Labels: pass (1, 2), outcome (ok, empty, error, timeout)
	PassesTotal *prometheus.CounterVec

	// RunDurationSeconds measures wall time from run start to terminal state.
	// Labels: pass (1, 2)
	RunDurationSeconds *prometheus.HistogramVec

	// GuardrailBlocksTotal counts guardrail blocks.
	// Labels: side (input, output)
	GuardrailBlocksTotal *prometheus.CounterVec

	// SpeechSyntheses counts synthesis attempts.
	// Labels: outcome (ok, error, skipped)
	SpeechSyntheses *prometheus.CounterVec

	// TokensMinted counts realtime token requests.
	// Labels: outcome (ok, error)
	TokensMinted *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *RelayMetrics

// InitMetrics creates and registers all relay metrics. Call once at
// application startup.
func InitMetrics() *RelayMetrics {
	m := &RelayMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Ask requests by final status.",
		}, []string{"status"}),
		PassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "passes_total",
			Help:      "Engine passes by pass number and outcome.",
		}, []string{"pass", "outcome"}),
		RunDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "run_duration_seconds",
			Help:      "Run wall time from start to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"pass"}),
		GuardrailBlocksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "guardrail_blocks_total",
			Help:      "Guardrail blocks by side.",
		}, []string{"side"}),
		SpeechSyntheses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "speech_syntheses_total",
			Help:      "Speech synthesis attempts by outcome.",
		}, []string{"outcome"}),
		TokensMinted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "realtime_tokens_total",
			Help:      "Realtime token mints by outcome.",
		}, []string{"outcome"}),
	}
	DefaultMetrics = m
	return m
}

// ObserveRequest increments the request counter when metrics are enabled.
func ObserveRequest(status string) {
	if DefaultMetrics != nil {
		DefaultMetrics.RequestsTotal.WithLabelValues(status).Inc()
	}
}

// ObservePass records a pass outcome when metrics are enabled.
func ObservePass(pass, outcome string, seconds float64) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.PassesTotal.WithLabelValues(pass, outcome).Inc()
	DefaultMetrics.RunDurationSeconds.WithLabelValues(pass).Observe(seconds)
}

// ObserveGuardrailBlock records a guardrail block when metrics are enabled.
func ObserveGuardrailBlock(side string) {
	if DefaultMetrics != nil {
		DefaultMetrics.GuardrailBlocksTotal.WithLabelValues(side).Inc()
	}
}

// ObserveSpeech records a synthesis outcome when metrics are enabled.
func ObserveSpeech(outcome string) {
	if DefaultMetrics != nil {
		DefaultMetrics.SpeechSyntheses.WithLabelValues(outcome).Inc()
	}
}

// ObserveTokenMint records a token mint outcome when metrics are enabled.
func ObserveTokenMint(outcome string) {
	if DefaultMetrics != nil {
		DefaultMetrics.TokensMinted.WithLabelValues(outcome).Inc()
	}
}
