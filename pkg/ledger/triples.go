package ledger

import "math/big"

// StakeTriple is the load-bearing deferred-accounting value type (spec
// §9): an active balance plus the pending stake/unstake deltas that
// will be promoted into it at the next era boundary. The system
// triple, every per-account triple, and every IP-set's stake fields
// all share this shape.
type StakeTriple struct {
	Active         *big.Int
	PendingStake   *big.Int
	PendingUnstake *big.Int
}

// NewTriple returns a zeroed triple.
func NewTriple() StakeTriple {
	return StakeTriple{Active: big.NewInt(0), PendingStake: big.NewInt(0), PendingUnstake: big.NewInt(0)}
}

// Clone returns a deep copy so callers can snapshot a triple before a
// settlement pass mutates the original (spec §4.3 "Ordering guarantee").
func (t StakeTriple) Clone() StakeTriple {
	return StakeTriple{
		Active:         new(big.Int).Set(t.Active),
		PendingStake:   new(big.Int).Set(t.PendingStake),
		PendingUnstake: new(big.Int).Set(t.PendingUnstake),
	}
}

// ApplyBoundary promotes pending deltas into the active balance and
// clears both pendings: A ← A + Δ+ − Δ−; Δ+, Δ− ← 0 (spec §3).
func (t *StakeTriple) ApplyBoundary() {
	t.Active.Add(t.Active, t.PendingStake)
	t.Active.Sub(t.Active, t.PendingUnstake)
	t.PendingStake = big.NewInt(0)
	t.PendingUnstake = big.NewInt(0)
}

// IsZero reports whether every field of the triple is zero, the
// condition under which a per-account triple must be removed from
// storage (spec §3, §9).
func (t StakeTriple) IsZero() bool {
	return t.Active.Sign() == 0 && t.PendingStake.Sign() == 0 && t.PendingUnstake.Sign() == 0
}

// ActivePoint records the era a pair's active balance was last
// settled at, together with that balance.
type ActivePoint struct {
	Era     uint32
	Balance *big.Int
}

// PairRecord is the per-(account, IP-set) era-stake record (spec §3).
// Active is nil until the account's stake into this IP set has been
// through at least one settlement; PendingStake/PendingUnstake are nil
// until a stake/unstake action has accumulated a delta for the
// current era.
type PairRecord struct {
	Active         *ActivePoint
	PendingStake   *big.Int
	PendingUnstake *big.Int
}

// IsEmpty reports whether the record carries no information at all —
// the condition under which it must be removed from storage so that
// MaxUniqueStakes counting (spec §4.4.3) stays correct (spec §9).
func (p *PairRecord) IsEmpty() bool {
	return p.Active == nil && p.PendingStake == nil && p.PendingUnstake == nil
}

// ApplyBoundary promotes this pair's pending deltas into Active at the
// given era, per spec §3's per-pair settlement rule. It returns true
// if the record became empty and should be removed from storage.
func (p *PairRecord) ApplyBoundary(era uint32) (removed bool) {
	if p.PendingStake == nil && p.PendingUnstake == nil {
		// Nothing pending this era; leave Active untouched.
		return p.IsEmpty()
	}

	baseline := big.NewInt(0)
	if p.Active != nil {
		baseline = p.Active.Balance
	}

	newBalance := new(big.Int).Set(baseline)
	if p.PendingStake != nil {
		newBalance.Add(newBalance, p.PendingStake)
	}
	if p.PendingUnstake != nil {
		newBalance.Sub(newBalance, p.PendingUnstake)
	}

	p.PendingStake = nil
	p.PendingUnstake = nil

	if newBalance.Sign() == 0 {
		p.Active = nil
		return p.IsEmpty()
	}

	p.Active = &ActivePoint{Era: era, Balance: newBalance}
	return false
}

// IpsRecord is the per-IP-set registration plus its deferred stake
// fields (spec §3).
type IpsRecord struct {
	IpsAddress        [32]byte
	TotalStake        *big.Int
	NextEraNewStake   *big.Int
	NextEraNewUnstake *big.Int
	BlockRegisteredAt uint64
}

// NewIpsRecord returns a freshly registered IP-set record with zeroed
// stake fields (spec §4.4.1).
func NewIpsRecord(address [32]byte, blockNumber uint64) *IpsRecord {
	return &IpsRecord{
		IpsAddress:        address,
		TotalStake:        big.NewInt(0),
		NextEraNewStake:   big.NewInt(0),
		NextEraNewUnstake: big.NewInt(0),
		BlockRegisteredAt: blockNumber,
	}
}

// ApplyBoundary promotes the IP-set's deferred stake fields exactly
// like a StakeTriple (spec §3's "Boundary rule identical to system
// triple applied to the stake fields").
func (r *IpsRecord) ApplyBoundary() {
	r.TotalStake.Add(r.TotalStake, r.NextEraNewStake)
	r.TotalStake.Sub(r.TotalStake, r.NextEraNewUnstake)
	r.NextEraNewStake = big.NewInt(0)
	r.NextEraNewUnstake = big.NewInt(0)
}
