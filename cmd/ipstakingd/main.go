// ipstakingd runs the IP-staking accounting engine as a standalone
// demo daemon: it wires config, logging, the ledger and its
// collaborators, the settlement/action pipeline, and the metrics/API
// servers together, then paces a simulated block clock until
// interrupted. A real host runtime would drive Runtime.OnBlock itself
// instead of using the demo clock.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/actions"
	"github.com/ocif-labs/ip-staking/pkg/api"
	"github.com/ocif-labs/ip-staking/pkg/config"
	"github.com/ocif-labs/ip-staking/pkg/currency"
	"github.com/ocif-labs/ip-staking/pkg/events"
	"github.com/ocif-labs/ip-staking/pkg/inflation"
	"github.com/ocif-labs/ip-staking/pkg/ledger"
	"github.com/ocif-labs/ip-staking/pkg/metrics"
	"github.com/ocif-labs/ip-staking/pkg/rational"
	"github.com/ocif-labs/ip-staking/pkg/registry"
	"github.com/ocif-labs/ip-staking/pkg/runtime"
	"github.com/ocif-labs/ip-staking/pkg/settlement"
	"github.com/ocif-labs/ip-staking/pkg/types"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ipstakingd",
	Short: "IP-staking accounting engine daemon",
	Long: `ipstakingd runs the deferred-stake accounting engine for
intellectual-property staking: era settlement, inflation minting, and
the register/stake/unstake/claim action handlers, exposed over a
read-only introspection API.`,
	Run: runDaemon,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) {
	log := logger.NewLogger(logLevel)
	log.WithFields(logger.Fields{"version": Version, "git_commit": GitCommit}).Info("starting ip-staking daemon")

	if err := config.BindFlags(cmd); err != nil {
		log.WithError(err).Fatal("failed to bind flags")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	minStake, err := config.ParseBig(cfg.Ledger.MinStakingAmount)
	if err != nil {
		log.WithError(err).Fatal("invalid min_staking_amount")
	}
	initialPerEra, err := config.ParseBig(cfg.Ledger.InitialPerEraAmount)
	if err != nil {
		log.WithError(err).Fatal("invalid initial_per_era_amount")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Pot account: the pallet id's bytes, zero-padded to an
	// account id.
	pot := derivePotAccount(cfg.Ledger.PalletID)

	// 2. Ledger, seeded at genesis (spec §6's "Genesis" note).
	l := ledger.New(ledger.Genesis{
		CurrentEra:         0,
		LastPayoutBlock:     0,
		InitialPerEraAmount: initialPerEra,
		GenesisBlock:        0,
		PotAccount:          pot,
	})

	// 3. External collaborators.
	curr := currency.NewInMemory(map[types.AccountID]*big.Int{}, log)
	reg := registry.NewInMemory()

	// 4. Events: structured logs plus, optionally, a websocket feed.
	var emit events.Emitter
	var wsEmitter *events.WebSocketEmitter
	logEmitter := events.NewLogEmitter(log)
	if cfg.Events.WebSocketEnabled {
		wsEmitter = events.NewWebSocketEmitter(log)
		emit = events.NewMultiEmitter(logEmitter, wsEmitter)
	} else {
		emit = logEmitter
	}

	// 5. Inflation engine and era settler.
	inflateEngine := inflation.NewEngine(inflation.Params{
		AnnualRate:    rational.FromPercent(cfg.Ledger.IpStakingInflationRate),
		BlocksPerYear: cfg.Ledger.BlocksPerYear,
		ErasPerYear:   cfg.Ledger.BlocksPerYear / maxUint64(cfg.Ledger.BlocksPerEra, 1),
	}, l, curr, emit, log)

	settler := settlement.NewSettler(settlement.Params{
		IpsShare:        rational.FromPercent(cfg.Ledger.IpsInflationPercentage),
		StakerShare:     rational.FromPercent(cfg.Ledger.StakerInflationPercentage),
		UnbondingPeriod: types.Era(cfg.Ledger.UnbondingPeriod),
	}, l, curr, reg, inflateEngine, emit, log)

	// 6. Action handlers.
	handlers := actions.NewHandlers(actions.Config{
		MinStakingAmount: minStake,
		MaxUniqueStakes:  cfg.Ledger.MaxUniqueStakes,
		UnbondingPeriod:  types.Era(cfg.Ledger.UnbondingPeriod),
	}, l, curr, reg, emit, log)

	// 7. Block pipeline driver.
	rt := runtime.NewRuntime(l, settler, handlers, maxUint64(cfg.Ledger.BlocksPerEra, 1), log)

	// 8. Metrics exporter.
	metricsExporter := metrics.NewExporter(cfg.Metrics.Port, log)
	metricsExporter.Start()

	// 9. Introspection API server.
	apiServer := api.NewServer(cfg.API.Port, l, wsEmitter, log)
	apiServer.Start()

	// 10. Demo block clock, calling OnBlock once per second of
	// wall-clock time (one block per tick). No external queue source exists yet
	// in standalone mode, so no actions are dispatched automatically.
	clock := runtime.NewDemoClock(rt, time.Second, func(block uint64) []runtime.Action { return nil }, log)
	go clock.Run(ctx)

	go reportMetricsPeriodically(ctx, l, curr, metricsExporter)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("ip-staking daemon is running, press ctrl+c to stop")
	<-sigCh
	log.Info("received shutdown signal, stopping daemon")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("api server shutdown error")
	}
	if err := metricsExporter.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("metrics server shutdown error")
	}

	log.Info("daemon stopped gracefully")
}

func maxUint64(v, floor uint64) uint64 {
	if v == 0 {
		return floor
	}
	return v
}

func derivePotAccount(palletID string) types.AccountID {
	var out types.AccountID
	copy(out[:], []byte(palletID))
	return out
}

func reportMetricsPeriodically(ctx context.Context, l *ledger.Ledger, curr currency.Currency, exporter *metrics.Exporter) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			system := l.SystemTriple()
			exporter.Update(
				uint32(l.CurrentEra()),
				system.Active,
				l.InflationState().PerEraAmount,
				len(l.AllIpsIDs()),
				curr.FreeBalance(l.PotAccount()),
			)
		}
	}
}
