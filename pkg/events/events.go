// Package events carries the staking core's emitted events (spec
// §3's GenesisConfig / Events, grounded on the teacher's genesis and
// inflation event shapes) out to whichever sinks the runtime wires up:
// structured logs and, optionally, a live websocket fan-out.
package events

import (
	"math/big"

	"github.com/ocif-labs/ip-staking/pkg/types"
)

// IpsRegistered fires when an IP set completes registration.
type IpsRegistered struct {
	Ips     types.IpsID
	Address types.AccountID
	Block   uint64
}

// InflationEvent fires once per era boundary when the pot mints.
type InflationEvent struct {
	Era       types.Era
	Amount    *big.Int
	PotAfter  *big.Int
	Block     uint64
}

// NewDailyInflationRate fires whenever the yearly inflation
// recalculation produces a new per-era mint amount.
type NewDailyInflationRate struct {
	PerEraAmount *big.Int
	TotalIssuance *big.Int
	Block         uint64
}

// NewStake fires on every successful stake delta accrual.
type NewStake struct {
	Account types.AccountID
	Ips     types.IpsID
	Amount  *big.Int
	Era     types.Era
}

// Unstake fires on every successful unstake/unstake_all delta accrual.
type Unstake struct {
	Account   types.AccountID
	Ips       types.IpsID
	Amount    *big.Int
	UnlockEra types.Era
}

// RewardsClaimed fires when an account claims accrued rewards.
type RewardsClaimed struct {
	Account types.AccountID
	Amount  *big.Int
}

// Emitter is the sink the staking core pushes events through. It must
// never block the settlement/action path for long, so implementations
// are expected to be non-blocking best-effort (spec §5).
type Emitter interface {
	Emit(event interface{})
}
