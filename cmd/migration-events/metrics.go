package main

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nspcc-dev/migration-contract/reconcile"
)

const metricsNamespace = "migration_events"

// metrics of the listen command.
type metrics struct {
	registry *prometheus.Registry

	records        prometheus.Counter
	duplicates     prometheus.Counter
	invalidTargets prometheus.Counter
	migrated       prometheus.Counter
	lastBlock      prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),

		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_total",
			Help:      "Number of new migration records",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicate_records_total",
			Help:      "Number of received records already stored in the journal",
		}),
		invalidTargets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalid_targets_total",
			Help:      "Number of records with target address rejected by the validator",
		}),
		migrated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "migrated_target_units_total",
			Help:      "Amount of migrated target units",
		}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_record_block",
			Help:      "Index of the block with the latest received record",
		}),
	}

	m.registry.MustRegister(
		m.records,
		m.duplicates,
		m.invalidTargets,
		m.migrated,
		m.lastBlock,
	)

	return m
}

func (m *metrics) observe(rec reconcile.Record, duplicate, invalidTarget bool) {
	if duplicate {
		m.duplicates.Inc()
		return
	}

	m.records.Inc()
	if invalidTarget {
		m.invalidTargets.Inc()
	}

	amount, _ := new(big.Float).SetInt(rec.Amount).Float64()
	m.migrated.Add(amount)
	m.lastBlock.Set(float64(rec.Block))
}

// serve exposes metrics over HTTP until the context is done.
func (m *metrics) serve(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("serving metrics", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
