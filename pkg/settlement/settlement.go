// Package settlement implements the era-boundary settlement pipeline
// (spec §4.3): advance the era, mint inflation into the pot, split the
// mint between IP-set owners and stakers proportional to pre-promotion
// active stake, then promote every deferred pending delta. The
// ordering is load-bearing — rewards for the era being settled must be
// computed against the stake totals as they stood *before* this
// boundary's deltas are promoted (spec §9's "Ordering guarantee").
package settlement

import (
	"math/big"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/currency"
	"github.com/ocif-labs/ip-staking/pkg/events"
	"github.com/ocif-labs/ip-staking/pkg/inflation"
	"github.com/ocif-labs/ip-staking/pkg/ledger"
	"github.com/ocif-labs/ip-staking/pkg/rational"
	"github.com/ocif-labs/ip-staking/pkg/registry"
	"github.com/ocif-labs/ip-staking/pkg/types"
)

// Params are the settlement pipeline's genesis-fixed split (spec §6).
type Params struct {
	// IpsShare is the fraction of each era's mint paid to IP-set owners.
	IpsShare rational.Fraction
	// StakerShare is the fraction paid to stakers. IpsShare+StakerShare
	// need not be exactly 1 — the whole per-era amount is minted into the
	// pot, and any remainder stays there without being credited to anyone.
	StakerShare rational.Fraction
	// UnbondingPeriod is the number of extra eras a released unstake
	// must wait before its lock is actually removed (spec §4.4.4).
	UnbondingPeriod types.Era
}

// Settler drives the S1-S5 pipeline on every era boundary.
type Settler struct {
	params   Params
	ledger   *ledger.Ledger
	curr     currency.Currency
	registry registry.Registry
	inflate  *inflation.Engine
	emit     events.Emitter
	log      *logger.Logger
}

func NewSettler(params Params, l *ledger.Ledger, curr currency.Currency, reg registry.Registry, inflate *inflation.Engine, emit events.Emitter, log *logger.Logger) *Settler {
	return &Settler{params: params, ledger: l, curr: curr, registry: reg, inflate: inflate, emit: emit, log: log}
}

// Settle runs exactly one era boundary's worth of work. It is the
// runtime's era-boundary hook (spec §4.3): BlocksPerEra must already
// have elapsed by the time the caller invokes this.
func (s *Settler) Settle(currentBlock uint64) error {
	// S1: advance era. prevEra is the era whose stake totals the
	// reward split below is computed against.
	prevEra, err := s.ledger.IncrementEra()
	if err != nil {
		return err
	}

	// S2: mint this era's inflation into the pot and split it.
	s.inflate.MaybeRecalc(currentBlock)
	mint := s.inflate.PerEraAmount()
	pot := s.ledger.PotAccount()
	if mint.Sign() > 0 {
		s.curr.DepositCreating(pot, mint)
	}
	s.ledger.SetLastPayoutBlock(currentBlock)
	potBalance := s.curr.FreeBalance(pot)

	ipsPool := s.params.IpsShare.MulFloor(mint)
	stakerPool := s.params.StakerShare.MulFloor(mint)

	s.emit.Emit(events.InflationEvent{Era: prevEra, Amount: new(big.Int).Set(mint), PotAfter: potBalance, Block: currentBlock})

	// Snapshot pre-promotion totals before anything below mutates them.
	ipsIDs := s.ledger.AllIpsIDs()
	type ipsSnapshot struct {
		id    types.IpsID
		total *big.Int
		addr  types.AccountID
	}
	snapshots := make([]ipsSnapshot, 0, len(ipsIDs))
	systemTotal := big.NewInt(0)
	for _, id := range ipsIDs {
		rec, ok := s.ledger.IpsRecord(id)
		if !ok {
			continue
		}
		total := new(big.Int).Set(rec.TotalStake)
		snapshots = append(snapshots, ipsSnapshot{id: id, total: total, addr: rec.IpsAddress})
		systemTotal.Add(systemTotal, total)
	}

	// S3: split ipsPool across IP sets proportional to pre-promotion
	// stake, crediting each IP set's owning multisig as claimable.
	if systemTotal.Sign() > 0 {
		for _, snap := range snapshots {
			if snap.total.Sign() == 0 {
				continue
			}
			share := rational.Share(snap.total, systemTotal).MulFloor(ipsPool)
			if share.Sign() == 0 {
				continue
			}
			var owner types.AccountID
			owner = snap.addr
			s.ledger.AddClaimable(owner, share)
		}
	}

	// S4: split stakerPool across every account proportional to that
	// account's pre-promotion active total within the system total
	// (spec §4.3, §8 scenario 6: share = A_acct / A, a single division
	// against the system total — not a per-IP-set pair split, which
	// would floor twice and round down further than the spec intends).
	pairKeys := s.ledger.AllPairKeys()
	if systemTotal.Sign() > 0 {
		for _, acct := range s.ledger.AllAccountIDs() {
			t, ok := s.ledger.AccountTriple(acct)
			if !ok || t.Active.Sign() == 0 {
				continue
			}
			share := rational.Share(t.Active, systemTotal).MulFloor(stakerPool)
			if share.Sign() == 0 {
				continue
			}
			s.ledger.AddClaimable(acct, share)
		}
	}

	// S5: promote every deferred delta — system, every account, every
	// IP set, every pair — now that this era's rewards are locked in
	// against the pre-promotion totals.
	s.ledger.MutateSystemTriple(func(t *ledger.StakeTriple) { t.ApplyBoundary() })

	for _, acct := range s.ledger.AllAccountIDs() {
		t := s.ledger.GetOrCreateAccountTriple(acct)
		t.ApplyBoundary()
		s.ledger.PruneAccountTripleIfZero(acct)
	}

	for _, id := range ipsIDs {
		if rec, ok := s.ledger.IpsRecord(id); ok {
			rec.ApplyBoundary()
		}
	}

	newEra := prevEra + 1
	for _, key := range pairKeys {
		rec, ok := s.ledger.PairRecord(key.Account, key.Ips)
		if !ok {
			continue
		}
		if rec.ApplyBoundary(uint32(newEra)) {
			s.ledger.PrunePairRecordIfEmpty(key.Account, key.Ips)
		}
	}

	// Release any unbonding locks that matured at this era.
	for _, entry := range s.ledger.DrainMaturedUnbonding(newEra) {
		locked := s.curr.LockedAmount(currency.StakeLockID, entry.Account)
		remaining := new(big.Int).Sub(locked, entry.Amount)
		if remaining.Sign() <= 0 {
			s.curr.RemoveLock(currency.StakeLockID, entry.Account)
		} else {
			s.curr.SetLock(currency.StakeLockID, entry.Account, remaining)
		}
	}

	s.log.WithFields(logger.Fields{
		"era":       uint32(prevEra),
		"mint":      mint.String(),
		"ips_pool":  ipsPool.String(),
		"staker_pool": stakerPool.String(),
	}).Info("settled era boundary")

	return nil
}
