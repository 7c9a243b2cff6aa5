// Package ledger is the authoritative storage of the IP-staking
// subsystem (spec §4.1): the system stake triple, per-account stake
// triples, per-IP-set stake records, per-(account, IP-set) era-stake
// records, claimable rewards, the era counter, inflation state, and
// the pot account identity. It is pure storage with typed accessors —
// every mutation here is meant to be driven by the settlement and
// action-handler packages, never called ad hoc.
package ledger

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ocif-labs/ip-staking/pkg/types"
)

// PairKey identifies a per-(account, IP-set) era-stake record.
type PairKey struct {
	Account types.AccountID
	Ips     types.IpsID
}

// InflationState is the pallet's yearly-recompute inflation slot
// (spec §3, §4.2).
type InflationState struct {
	PerEraAmount        *big.Int
	LastYearRecalcBlock uint64
}

// UnbondEntry is one account's maturing unstake amount, queued to
// have its balance lock released once its era arrives (spec §9).
type UnbondEntry struct {
	Account types.AccountID
	Amount  *big.Int
}

// Genesis carries the initial values spec §6 requires at genesis.
type Genesis struct {
	CurrentEra          types.Era
	LastPayoutBlock      uint64
	InitialPerEraAmount  *big.Int
	GenesisBlock         uint64
	PotAccount           types.AccountID
}

// Ledger is the subsystem's authoritative in-memory store. Persistence
// beyond these genesis values is an explicit external collaborator
// (spec §1, §6) — the host runtime is responsible for durability; this
// type only has to be correct and deterministic within a process.
type Ledger struct {
	mu sync.RWMutex

	currentEra      types.Era
	lastPayoutBlock uint64
	pot             types.AccountID

	system StakeTriple

	accounts map[types.AccountID]*StakeTriple
	ipsSets  map[types.IpsID]*IpsRecord
	pairs    map[PairKey]*PairRecord

	claimable map[types.AccountID]*big.Int

	inflation InflationState

	// unbonding is keyed by the era at which a pending unstake's lock
	// should be released (current_era + UnbondingPeriod + 1 at the
	// time of the unstake action, spec §4.4.4).
	unbonding map[types.Era][]UnbondEntry
}

// New constructs a Ledger seeded from genesis values.
func New(g Genesis) *Ledger {
	return &Ledger{
		currentEra:      g.CurrentEra,
		lastPayoutBlock: g.LastPayoutBlock,
		pot:             g.PotAccount,
		system:          NewTriple(),
		accounts:        make(map[types.AccountID]*StakeTriple),
		ipsSets:         make(map[types.IpsID]*IpsRecord),
		pairs:           make(map[PairKey]*PairRecord),
		claimable:       make(map[types.AccountID]*big.Int),
		inflation: InflationState{
			PerEraAmount:        new(big.Int).Set(g.InitialPerEraAmount),
			LastYearRecalcBlock: g.GenesisBlock,
		},
		unbonding: make(map[types.Era][]UnbondEntry),
	}
}

// PotAccount returns the subsystem-owned pot account identity.
func (l *Ledger) PotAccount() types.AccountID {
	return l.pot
}

// CurrentEra returns the current era counter.
func (l *Ledger) CurrentEra() types.Era {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentEra
}

// IncrementEra advances the era counter by exactly 1 and returns the
// era that was current before the increment (the era being settled,
// spec §4.3 S1). It fails fatally if the counter would overflow.
func (l *Ledger) IncrementEra() (prev types.Era, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentEra == ^types.Era(0) {
		return 0, newFatal(FatalNoAvailableEra, "era counter exhausted")
	}
	prev = l.currentEra
	l.currentEra++
	return prev, nil
}

// LastPayoutBlock / SetLastPayoutBlock track the block number of the
// most recent inflation mint (spec §3).
func (l *Ledger) LastPayoutBlock() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastPayoutBlock
}

func (l *Ledger) SetLastPayoutBlock(block uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastPayoutBlock = block
}

// InflationState returns a copy of the current inflation slot.
func (l *Ledger) InflationState() InflationState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return InflationState{
		PerEraAmount:        new(big.Int).Set(l.inflation.PerEraAmount),
		LastYearRecalcBlock: l.inflation.LastYearRecalcBlock,
	}
}

// SetInflationState persists a freshly recalculated inflation slot.
func (l *Ledger) SetInflationState(perEraAmount *big.Int, lastYearRecalcBlock uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflation = InflationState{
		PerEraAmount:        new(big.Int).Set(perEraAmount),
		LastYearRecalcBlock: lastYearRecalcBlock,
	}
}

// SystemTriple returns a copy of the system-wide stake triple.
func (l *Ledger) SystemTriple() StakeTriple {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.system.Clone()
}

// MutateSystemTriple applies fn to the live system triple under lock.
func (l *Ledger) MutateSystemTriple(fn func(*StakeTriple)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.system)
}

// AccountTriple returns a copy of an account's stake triple, if any.
func (l *Ledger) AccountTriple(acct types.AccountID) (StakeTriple, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.accounts[acct]
	if !ok {
		return StakeTriple{}, false
	}
	return t.Clone(), true
}

// GetOrCreateAccountTriple returns the live per-account triple,
// creating a zeroed one if the account has never staked before.
func (l *Ledger) GetOrCreateAccountTriple(acct types.AccountID) *StakeTriple {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.accounts[acct]
	if !ok {
		nt := NewTriple()
		t = &nt
		l.accounts[acct] = t
	}
	return t
}

// PruneAccountTripleIfZero removes the per-account triple once it has
// settled back down to all-zero (spec §3's "removed when the triple
// would become all zero after settlement").
func (l *Ledger) PruneAccountTripleIfZero(acct types.AccountID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.accounts[acct]
	if ok && t.IsZero() {
		delete(l.accounts, acct)
	}
}

// AllAccountIDs returns every account with a live stake triple, in
// deterministic (sorted) order (spec §9 "Determinism").
func (l *Ledger) AllAccountIDs() []types.AccountID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]types.AccountID, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return lessAccountID(ids[i], ids[j])
	})
	return ids
}

func lessAccountID(a, b types.AccountID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// IpsRecord returns the live IP-set record, if registered.
func (l *Ledger) IpsRecord(ips types.IpsID) (*IpsRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.ipsSets[ips]
	return r, ok
}

// IpsExists reports whether the IP set has a registered record.
func (l *Ledger) IpsExists(ips types.IpsID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ipsSets[ips]
	return ok
}

// RegisterIps inserts a new IP-set record (spec §4.4.1). Returns false
// if the IP set was already registered.
func (l *Ledger) RegisterIps(ips types.IpsID, address types.AccountID, blockNumber uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.ipsSets[ips]; exists {
		return false
	}
	l.ipsSets[ips] = NewIpsRecord(address, blockNumber)
	return true
}

// DeleteIpsRecord removes a registered IP-set record.
func (l *Ledger) DeleteIpsRecord(ips types.IpsID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.ipsSets, ips)
}

// AllIpsIDs returns every registered IP set in deterministic order.
func (l *Ledger) AllIpsIDs() []types.IpsID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]types.IpsID, 0, len(l.ipsSets))
	for id := range l.ipsSets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PairRecord returns the live per-(account, IP-set) record, if any.
func (l *Ledger) PairRecord(acct types.AccountID, ips types.IpsID) (*PairRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.pairs[PairKey{Account: acct, Ips: ips}]
	return r, ok
}

// GetOrCreatePairRecord returns the live pair record, creating an
// empty one if the account has no prior interest in the IP set.
func (l *Ledger) GetOrCreatePairRecord(acct types.AccountID, ips types.IpsID) *PairRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := PairKey{Account: acct, Ips: ips}
	r, ok := l.pairs[key]
	if !ok {
		r = &PairRecord{}
		l.pairs[key] = r
	}
	return r
}

// PrunePairRecordIfEmpty removes the pair record if it carries no
// information at all (spec §9).
func (l *Ledger) PrunePairRecordIfEmpty(acct types.AccountID, ips types.IpsID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := PairKey{Account: acct, Ips: ips}
	r, ok := l.pairs[key]
	if ok && r.IsEmpty() {
		delete(l.pairs, key)
	}
}

// CountPairRecordsForAccount counts the account's distinct IP-set
// stake records, the quantity MaxUniqueStakes bounds (spec §4.4.3).
func (l *Ledger) CountPairRecordsForAccount(acct types.AccountID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for key := range l.pairs {
		if key.Account == acct {
			n++
		}
	}
	return n
}

// AllPairKeys returns every live pair key in deterministic order,
// primarily for the settler's promotion pass.
func (l *Ledger) AllPairKeys() []PairKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]PairKey, 0, len(l.pairs))
	for k := range l.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Account != keys[j].Account {
			return lessAccountID(keys[i].Account, keys[j].Account)
		}
		return keys[i].Ips < keys[j].Ips
	})
	return keys
}

// AddClaimable increases an account's claimable reward balance.
func (l *Ledger) AddClaimable(acct types.AccountID, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.claimable[acct]
	if !ok {
		cur = big.NewInt(0)
		l.claimable[acct] = cur
	}
	cur.Add(cur, amount)
}

// Claimable returns the account's current claimable reward balance.
func (l *Ledger) Claimable(acct types.AccountID) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cur, ok := l.claimable[acct]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(cur)
}

// TakeClaimable zeroes and returns the account's claimable balance.
func (l *Ledger) TakeClaimable(acct types.AccountID) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.claimable[acct]
	if !ok {
		return big.NewInt(0)
	}
	taken := new(big.Int).Set(cur)
	delete(l.claimable, acct)
	return taken
}

// EnqueueUnbonding records that acct's amount unlocks once unlockEra
// is settled (spec §4.4.4, §9).
func (l *Ledger) EnqueueUnbonding(unlockEra types.Era, acct types.AccountID, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unbonding[unlockEra] = append(l.unbonding[unlockEra], UnbondEntry{Account: acct, Amount: new(big.Int).Set(amount)})
}

// DrainMaturedUnbonding removes and returns every unbonding entry
// scheduled to mature at era.
func (l *Ledger) DrainMaturedUnbonding(era types.Era) []UnbondEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.unbonding[era]
	delete(l.unbonding, era)
	return entries
}
