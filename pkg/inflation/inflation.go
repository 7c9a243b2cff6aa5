// Package inflation implements the yearly inflation-rate recompute
// (spec §4.2), grounded on the original pallet's
// `inital_inflation_per_era` genesis constant and its
// `IpStakingInflationRate` / BlocksPerYear parameters: once per
// BlocksPerYear blocks, the per-era mint amount is recomputed as a
// fixed percentage of total issuance spread evenly over the eras in a
// year.
package inflation

import (
	"math/big"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/currency"
	"github.com/ocif-labs/ip-staking/pkg/events"
	"github.com/ocif-labs/ip-staking/pkg/ledger"
	"github.com/ocif-labs/ip-staking/pkg/rational"
)

// Params are the inflation engine's genesis-fixed configuration
// (spec §6).
type Params struct {
	// AnnualRate is the fraction of total issuance minted per year.
	AnnualRate rational.Fraction
	// BlocksPerYear is the recompute cadence.
	BlocksPerYear uint64
	// ErasPerYear spreads the yearly mint evenly across eras.
	ErasPerYear uint64
}

// Engine recomputes the per-era mint amount once per year of blocks.
type Engine struct {
	params Params
	ledger *ledger.Ledger
	curr   currency.Currency
	emit   events.Emitter
	log    *logger.Logger
}

func NewEngine(params Params, l *ledger.Ledger, curr currency.Currency, emit events.Emitter, log *logger.Logger) *Engine {
	return &Engine{params: params, ledger: l, curr: curr, emit: emit, log: log}
}

// MaybeRecalc recomputes the per-era inflation amount if BlocksPerYear
// blocks have elapsed since the last recompute (spec §4.2). It is a
// no-op otherwise.
func (e *Engine) MaybeRecalc(currentBlock uint64) {
	state := e.ledger.InflationState()
	if currentBlock < state.LastYearRecalcBlock+e.params.BlocksPerYear {
		return
	}

	totalIssuance := e.curr.TotalIssuance()
	yearlyMint := e.params.AnnualRate.MulFloor(totalIssuance)

	erasPerYear := e.params.ErasPerYear
	if erasPerYear == 0 {
		erasPerYear = 1
	}
	perEra := new(big.Int).Quo(yearlyMint, new(big.Int).SetUint64(erasPerYear))

	e.ledger.SetInflationState(perEra, currentBlock)

	e.log.WithFields(logger.Fields{
		"total_issuance": totalIssuance.String(),
		"yearly_mint":    yearlyMint.String(),
		"per_era":        perEra.String(),
	}).Info("recalculated inflation rate")

	e.emit.Emit(events.NewDailyInflationRate{
		PerEraAmount:  new(big.Int).Set(perEra),
		TotalIssuance: totalIssuance,
		Block:         currentBlock,
	})
}

// PerEraAmount returns the currently configured per-era mint amount.
func (e *Engine) PerEraAmount() *big.Int {
	return e.ledger.InflationState().PerEraAmount
}
