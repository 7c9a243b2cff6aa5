// Package metrics exports the staking core's Prometheus gauges. The
// daemon refreshes them on a fixed five-second ticker; they are not
// updated as part of a settlement pass.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocif-labs/ip-staking/internal/logger"
)

// Exporter owns the gauges and the HTTP server that serves them.
type Exporter struct {
	currentEra        prometheus.Gauge
	totalActiveStake  prometheus.Gauge
	perEraMintAmount  prometheus.Gauge
	registeredIpsTotal prometheus.Gauge
	potBalance        prometheus.Gauge

	server *http.Server
	log    *logger.Logger
}

// NewExporter registers the gauges against a fresh registry and binds
// an HTTP server on port, mirroring the teacher's
// `metrics.NewExporter(cfg.Metrics.Port)` lifecycle.
func NewExporter(port int, log *logger.Logger) *Exporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	e := &Exporter{
		currentEra: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ipstaking_current_era",
			Help: "The current era counter.",
		}),
		totalActiveStake: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ipstaking_total_active_stake",
			Help: "The system-wide active stake total.",
		}),
		perEraMintAmount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ipstaking_per_era_mint_amount",
			Help: "The current per-era inflation mint amount.",
		}),
		registeredIpsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ipstaking_registered_ips_total",
			Help: "The number of currently registered ip sets.",
		}),
		potBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ipstaking_pot_balance",
			Help: "The pot account's free balance.",
		}),
		log: log,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	e.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	return e
}

// Start runs the metrics HTTP server in the background.
func (e *Exporter) Start() {
	go func() {
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.WithError(err).Error("metrics server failed")
		}
	}()
	e.log.WithField("addr", e.server.Addr).Info("metrics server started")
}

// Shutdown gracefully stops the metrics HTTP server.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}

// Update refreshes every gauge from current state.
func (e *Exporter) Update(currentEra uint32, totalActiveStake *big.Int, perEraMint *big.Int, registeredIps int, potBalance *big.Int) {
	e.currentEra.Set(float64(currentEra))
	e.totalActiveStake.Set(bigToFloat(totalActiveStake))
	e.perEraMintAmount.Set(bigToFloat(perEraMint))
	e.registeredIpsTotal.Set(float64(registeredIps))
	e.potBalance.Set(bigToFloat(potBalance))
}

func bigToFloat(v *big.Int) float64 {
	f := new(big.Float).SetInt(v)
	out, _ := f.Float64()
	return out
}
