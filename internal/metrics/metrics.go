// Package metrics exposes Prometheus collectors for wallet operations.
package metrics

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/dualwallet/internal/settlement"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create independent sets.
type Metrics struct {
	Registry *prometheus.Registry

	operations  *prometheus.CounterVec
	failures    *prometheus.CounterVec
	volume      *prometheus.CounterVec
	settlements *prometheus.CounterVec
	rpcRequests *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dualwallet",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Committed wallet operations.",
			},
			[]string{"kind", "token"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dualwallet",
				Subsystem: "engine",
				Name:      "failures_total",
				Help:      "Rejected wallet operations by error kind.",
			},
			[]string{"kind", "reason"},
		),
		volume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dualwallet",
				Subsystem: "engine",
				Name:      "volume_minor_units_total",
				Help:      "Absolute amount moved by committed operations, in minor units.",
			},
			[]string{"kind", "token"},
		),
		settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dualwallet",
				Subsystem: "settlement",
				Name:      "resolved_total",
				Help:      "Settlement orders leaving the pending state.",
			},
			[]string{"status", "reason"},
		),
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dualwallet",
				Subsystem: "grpc",
				Name:      "requests_total",
				Help:      "gRPC requests by method and status code.",
			},
			[]string{"method", "code"},
		),
	}
	m.Registry.MustRegister(
		m.operations, m.failures, m.volume, m.settlements, m.rpcRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RecordCommitted implements engine.Observer.
func (m *Metrics) RecordCommitted(_ context.Context, rec wallet.Record) {
	m.operations.WithLabelValues(string(rec.Kind), string(rec.Token)).Inc()
	amount := rec.Amount
	if amount < 0 {
		amount = -amount
	}
	m.volume.WithLabelValues(string(rec.Kind), string(rec.Token)).Add(float64(amount))
}

// OperationFailed implements engine.FailureObserver.
func (m *Metrics) OperationFailed(_ context.Context, _ string, kind wallet.Kind, err error) {
	m.failures.WithLabelValues(string(kind), string(wallet.KindOf(err))).Inc()
}

// SettlementResolved is a settlement.Registry resolve hook.
func (m *Metrics) SettlementResolved(o settlement.Order) {
	m.settlements.WithLabelValues(string(o.Status), o.Reason).Inc()
}

// RPC counts one finished gRPC call.
func (m *Metrics) RPC(method, code string) {
	m.rpcRequests.WithLabelValues(method, code).Inc()
}
