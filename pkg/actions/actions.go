// Package actions implements the user-initiated operations that
// mutate the ledger (spec §4.4): register, unregister, stake,
// unstake, unstake_all, claim. Each handler validates its
// preconditions eagerly, in the order spec §4.4 lists them, and only
// then mutates state — once a handler begins mutating it must not
// fail (spec §7).
package actions

import (
	"math/big"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/currency"
	"github.com/ocif-labs/ip-staking/pkg/events"
	"github.com/ocif-labs/ip-staking/pkg/ledger"
	"github.com/ocif-labs/ip-staking/pkg/registry"
	"github.com/ocif-labs/ip-staking/pkg/types"
)

// Config carries every action handler's genesis-fixed parameters
// (spec §6).
type Config struct {
	MinStakingAmount *big.Int
	MaxUniqueStakes  uint32
	UnbondingPeriod  types.Era

	// TopLevelParentCheck is the optional hook spec §9 describes: the
	// original source's commented-out "only top-level IP sets may
	// register" check. nil means permissive.
	TopLevelParentCheck func(ips types.IpsID) bool
}

// Handlers wires the ledger and its collaborators together to expose
// the six user-initiated operations.
type Handlers struct {
	cfg      Config
	ledger   *ledger.Ledger
	curr     currency.Currency
	registry registry.Registry
	emit     events.Emitter
	log      *logger.Logger
}

func NewHandlers(cfg Config, l *ledger.Ledger, curr currency.Currency, reg registry.Registry, emit events.Emitter, log *logger.Logger) *Handlers {
	return &Handlers{cfg: cfg, ledger: l, curr: curr, registry: reg, emit: emit, log: log}
}

// Register implements `register(ips_id)` (spec §4.4.1).
func (h *Handlers) Register(signer types.AccountID, ips types.IpsID, blockNumber uint64) error {
	if !h.registry.Exists(ips) {
		return ErrIpDoesntExist
	}

	derived := h.registry.DerivedMultisigAddress(ips)
	if signer != derived {
		return ErrNoPermission
	}

	if h.cfg.TopLevelParentCheck != nil && !h.cfg.TopLevelParentCheck(ips) {
		return ErrNotParent
	}

	if h.ledger.IpsExists(ips) {
		return ErrIpsAlreadyRegistered
	}

	h.ledger.RegisterIps(ips, derived, blockNumber)

	h.log.WithFields(logger.Fields{"ips": uint32(ips), "address": derived.String(), "block": blockNumber}).Info("ip set registered")
	h.emit.Emit(events.IpsRegistered{Ips: ips, Address: derived, Block: blockNumber})
	return nil
}

// Unregister implements `unregister(ips_id)` (spec §4.4.2, resolved per
// spec §9's recommendation: allowed only when the IP set carries no
// outstanding stake, surfacing otherwise rather than silently
// discarding state).
func (h *Handlers) Unregister(ips types.IpsID) error {
	rec, ok := h.ledger.IpsRecord(ips)
	if !ok {
		return ErrIpsNotRegistered
	}

	outstanding := new(big.Int).Add(rec.TotalStake, rec.NextEraNewStake)
	if outstanding.Sign() != 0 {
		return ErrIpsHasOutstandingStake
	}

	h.ledger.DeleteIpsRecord(ips)
	h.log.WithField("ips", uint32(ips)).Info("ip set unregistered")
	return nil
}

// Stake implements `stake(ips_id, amount)` (spec §4.4.3).
func (h *Handlers) Stake(signer types.AccountID, ips types.IpsID, amount *big.Int) error {
	if !h.ledger.IpsExists(ips) {
		return ErrIpsNotRegistered
	}

	currentLocked := h.curr.LockedAmount(currency.StakeLockID, signer)
	newLockTotal := new(big.Int).Add(currentLocked, amount)
	if h.curr.FreeBalance(signer).Cmp(newLockTotal) < 0 {
		return ErrNotEnoughFreeBalance
	}

	if amount.Cmp(h.cfg.MinStakingAmount) < 0 {
		return ErrBelowMinStakingAmount
	}

	pairExists := false
	if existing, ok := h.ledger.PairRecord(signer, ips); ok && !existing.IsEmpty() {
		pairExists = true
	}
	if !pairExists && h.ledger.CountPairRecordsForAccount(signer) >= int(h.cfg.MaxUniqueStakes) {
		return ErrMaxStakesAlreadyReached
	}

	// Validation complete; mutate.
	ipsRec, _ := h.ledger.IpsRecord(ips)
	ipsRec.NextEraNewStake.Add(ipsRec.NextEraNewStake, amount)

	pair := h.ledger.GetOrCreatePairRecord(signer, ips)
	if pair.PendingStake == nil {
		pair.PendingStake = new(big.Int).Set(amount)
	} else {
		pair.PendingStake.Add(pair.PendingStake, amount)
	}

	acctTriple := h.ledger.GetOrCreateAccountTriple(signer)
	acctTriple.PendingStake.Add(acctTriple.PendingStake, amount)

	h.ledger.MutateSystemTriple(func(t *ledger.StakeTriple) {
		t.PendingStake.Add(t.PendingStake, amount)
	})

	h.curr.SetLock(currency.StakeLockID, signer, newLockTotal)

	era := h.ledger.CurrentEra()
	h.log.WithFields(logger.Fields{"account": signer.String(), "ips": uint32(ips), "amount": amount.String()}).Info("stake accrued")
	h.emit.Emit(events.NewStake{Account: signer, Ips: ips, Amount: new(big.Int).Set(amount), Era: era})
	return nil
}

// Unstake implements `unstake(ips_id, amount)` (spec §4.4.4).
func (h *Handlers) Unstake(signer types.AccountID, ips types.IpsID, amount *big.Int) error {
	return h.unstake(signer, ips, amount, false)
}

// UnstakeAll implements `unstake_all(ips_id)` (spec §4.4.4): selects
// amount = staked and bypasses the residual-floor check.
func (h *Handlers) UnstakeAll(signer types.AccountID, ips types.IpsID) error {
	return h.unstake(signer, ips, nil, true)
}

func (h *Handlers) unstake(signer types.AccountID, ips types.IpsID, amount *big.Int, all bool) error {
	if !h.ledger.IpsExists(ips) {
		return ErrIpsNotRegistered
	}

	pair, ok := h.ledger.PairRecord(signer, ips)
	if !ok || pair.Active == nil {
		return ErrAccountHasNoStake
	}
	staked := pair.Active.Balance

	if all {
		amount = new(big.Int).Set(staked)
	} else {
		if amount.Cmp(h.cfg.MinStakingAmount) < 0 {
			return ErrBelowMinUnstakingAmount
		}
		if amount.Cmp(staked) > 0 {
			return ErrUnstakeValueGreaterThanStaked
		}
		residual := new(big.Int).Sub(staked, amount)
		if residual.Sign() != 0 && residual.Cmp(h.cfg.MinStakingAmount) < 0 {
			return ErrStakingAmountTooLow
		}
	}

	// Validation complete; mutate.
	ipsRec, _ := h.ledger.IpsRecord(ips)
	ipsRec.NextEraNewUnstake.Add(ipsRec.NextEraNewUnstake, amount)

	if pair.PendingUnstake == nil {
		pair.PendingUnstake = new(big.Int).Set(amount)
	} else {
		pair.PendingUnstake.Add(pair.PendingUnstake, amount)
	}

	acctTriple := h.ledger.GetOrCreateAccountTriple(signer)
	acctTriple.PendingUnstake.Add(acctTriple.PendingUnstake, amount)

	h.ledger.MutateSystemTriple(func(t *ledger.StakeTriple) {
		t.PendingUnstake.Add(t.PendingUnstake, amount)
	})

	unlockEra := h.ledger.CurrentEra() + h.cfg.UnbondingPeriod + 1
	h.ledger.EnqueueUnbonding(unlockEra, signer, amount)

	h.log.WithFields(logger.Fields{"account": signer.String(), "ips": uint32(ips), "amount": amount.String(), "unlock_era": uint32(unlockEra)}).Info("unstake accrued")
	h.emit.Emit(events.Unstake{Account: signer, Ips: ips, Amount: new(big.Int).Set(amount), UnlockEra: unlockEra})
	return nil
}

// Claim implements `claim()` (spec §4.4.5).
func (h *Handlers) Claim(signer types.AccountID) error {
	claimable := h.ledger.Claimable(signer)
	if claimable.Sign() == 0 {
		return ErrAccountHasNoClaim
	}

	taken := h.ledger.TakeClaimable(signer)
	if err := h.curr.Transfer(h.ledger.PotAccount(), signer, taken, true); err != nil {
		// The pot's balance is maintained by the settler and should
		// always cover outstanding claimables; surfacing rather than
		// panicking keeps this handler's error-return discipline.
		h.ledger.AddClaimable(signer, taken)
		return err
	}

	h.log.WithFields(logger.Fields{"account": signer.String(), "amount": taken.String()}).Info("rewards claimed")
	h.emit.Emit(events.RewardsClaimed{Account: signer, Amount: taken})
	return nil
}
