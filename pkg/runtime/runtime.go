// Package runtime drives the block pipeline: the pre-block hook
// (inflation recalc, then era settlement, spec §2's data flow) and
// action dispatch, generalizing the teacher's BlockBuilder/Engine
// start-stop-callback shape (spec §4.10).
package runtime

import (
	"context"
	"math/big"
	"time"

	"golang.org/x/time/rate"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/actions"
	"github.com/ocif-labs/ip-staking/pkg/ledger"
	"github.com/ocif-labs/ip-staking/pkg/settlement"
	"github.com/ocif-labs/ip-staking/pkg/types"
)

// Action is a single queued dispatch for a block, in the host's
// transaction order (spec §5's "Ordering guarantees").
type Action struct {
	Kind   Kind
	Signer types.AccountID
	Ips    types.IpsID
	Amount *big.Int
}

type Kind int

const (
	KindRegister Kind = iota
	KindUnregister
	KindStake
	KindUnstake
	KindUnstakeAll
	KindClaim
)

// Runtime ties the ledger, settler, and action handlers to a block
// counter, running the S1-S5 settlement whenever a block lands on an
// era boundary before dispatching that block's actions (spec §8
// "boundary behaviors": settlement in the pre-block hook precedes
// dispatch).
type Runtime struct {
	ledger      *ledger.Ledger
	settler     *settlement.Settler
	handlers    *actions.Handlers
	blocksPerEra uint64
	log         *logger.Logger
}

func NewRuntime(l *ledger.Ledger, settler *settlement.Settler, handlers *actions.Handlers, blocksPerEra uint64, log *logger.Logger) *Runtime {
	return &Runtime{ledger: l, settler: settler, handlers: handlers, blocksPerEra: blocksPerEra, log: log}
}

// OnBlock runs the pre-block hook for blockNumber, settling the era
// boundary if blockNumber is a multiple of BlocksPerEra, then
// dispatches every queued action against the resulting state.
func (r *Runtime) OnBlock(blockNumber uint64, queued []Action) {
	if blockNumber > 0 && r.blocksPerEra > 0 && blockNumber%r.blocksPerEra == 0 {
		if err := r.settler.Settle(blockNumber); err != nil {
			r.log.WithError(err).WithField("block", blockNumber).Error("era settlement failed fatally")
			return
		}
	}

	for _, action := range queued {
		if err := r.Dispatch(action, blockNumber); err != nil {
			r.log.WithFields(logger.Fields{"kind": action.Kind, "error": err.Error()}).Warn("action rejected")
		}
	}
}

// Dispatch routes a single action to its handler.
func (r *Runtime) Dispatch(action Action, blockNumber uint64) error {
	switch action.Kind {
	case KindRegister:
		return r.handlers.Register(action.Signer, action.Ips, blockNumber)
	case KindUnregister:
		return r.handlers.Unregister(action.Ips)
	case KindStake:
		return r.handlers.Stake(action.Signer, action.Ips, action.Amount)
	case KindUnstake:
		return r.handlers.Unstake(action.Signer, action.Ips, action.Amount)
	case KindUnstakeAll:
		return r.handlers.UnstakeAll(action.Signer, action.Ips)
	case KindClaim:
		return r.handlers.Claim(action.Signer)
	default:
		return nil
	}
}

// DemoClock paces a simulated block clock for standalone/local
// operation, generalizing `consensus.BlockBuilder.minBlockTime` into a
// real rate limiter instead of a raw time.Sleep.
type DemoClock struct {
	limiter *rate.Limiter
	rt      *Runtime
	queue   func(block uint64) []Action
	log     *logger.Logger
}

// NewDemoClock builds a clock that calls rt.OnBlock once per tick,
// pulling that block's queued actions from queue.
func NewDemoClock(rt *Runtime, blockInterval time.Duration, queue func(block uint64) []Action, log *logger.Logger) *DemoClock {
	rps := rate.Every(blockInterval)
	return &DemoClock{limiter: rate.NewLimiter(rps, 1), rt: rt, queue: queue, log: log}
}

// Run drives OnBlock at the configured cadence until ctx is cancelled.
func (d *DemoClock) Run(ctx context.Context) {
	var block uint64
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			d.log.Info("demo clock stopped")
			return
		}
		block++
		var actions []Action
		if d.queue != nil {
			actions = d.queue(block)
		}
		d.rt.OnBlock(block, actions)
	}
}
