// Package currency models the balance/currency collaborator that the
// IP-staking core treats as an external module (spec §1, §6): free
// balance queries, named-lock management, transfers, and issuance
// minting. The core never touches an account's free balance directly;
// it only goes through this interface.
package currency

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ocif-labs/ip-staking/internal/logger"
	"github.com/ocif-labs/ip-staking/pkg/types"
)

// LockID names a balance lock, the way a FRAME runtime's
// LockIdentifier would. The staking core uses a single lock identity
// so that repeated stakes and the unbonding lifecycle aggregate
// additively on one lock rather than many (spec §9).
type LockID [8]byte

var StakeLockID = LockID{'i', 'p', '/', 's', 't', 'a', 'k', 'e'}

// Currency is the collaborator interface the staking core depends on.
type Currency interface {
	FreeBalance(acct types.AccountID) *big.Int
	TotalIssuance() *big.Int

	// SetLock sets (not adds to) the named lock on acct to amount.
	SetLock(id LockID, acct types.AccountID, amount *big.Int)
	// RemoveLock clears the named lock entirely.
	RemoveLock(id LockID, acct types.AccountID)
	// LockedAmount returns the current locked amount under id for acct.
	LockedAmount(id LockID, acct types.AccountID) *big.Int

	// Transfer moves amount from `from` to `to`. If allowDeath is
	// false and the transfer would leave `from` below the existential
	// threshold (modeled here as a remaining balance of zero), it fails.
	// A transfer larger than the free balance always fails.
	Transfer(from, to types.AccountID, amount *big.Int, allowDeath bool) error

	// DepositCreating mints amount into acct, creating the account if
	// it does not yet exist, and increases total issuance.
	DepositCreating(acct types.AccountID, amount *big.Int)
}

type account struct {
	free  *big.Int
	locks map[LockID]*big.Int
}

// InMemory is a reference Currency implementation used by the runtime's
// default wiring and by tests. It is not part of the staking core's
// scope (persistence/encoding are explicitly external, spec §1) — it
// exists only to give the core collaborator something real to call.
type InMemory struct {
	mu            sync.Mutex
	accounts      map[types.AccountID]*account
	totalIssuance *big.Int
	log           *logger.Logger
}

// NewInMemory creates an in-memory currency ledger seeded with the
// given genesis balances.
func NewInMemory(genesis map[types.AccountID]*big.Int, log *logger.Logger) *InMemory {
	c := &InMemory{
		accounts:      make(map[types.AccountID]*account),
		totalIssuance: big.NewInt(0),
		log:           log,
	}
	for acct, bal := range genesis {
		c.accounts[acct] = &account{free: new(big.Int).Set(bal), locks: map[LockID]*big.Int{}}
		c.totalIssuance.Add(c.totalIssuance, bal)
	}
	return c
}

func (c *InMemory) acctLocked(a *account) *account {
	if a == nil {
		return &account{free: big.NewInt(0), locks: map[LockID]*big.Int{}}
	}
	return a
}

func (c *InMemory) FreeBalance(acct types.AccountID) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.acctLocked(c.accounts[acct])
	return new(big.Int).Set(a.free)
}

func (c *InMemory) TotalIssuance() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.totalIssuance)
}

func (c *InMemory) ensure(acct types.AccountID) *account {
	a, ok := c.accounts[acct]
	if !ok {
		a = &account{free: big.NewInt(0), locks: map[LockID]*big.Int{}}
		c.accounts[acct] = a
	}
	return a
}

func (c *InMemory) SetLock(id LockID, acct types.AccountID, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.ensure(acct)
	a.locks[id] = new(big.Int).Set(amount)
	c.log.WithFields(logger.Fields{"account": acct.String(), "amount": amount.String()}).Debug("balance lock set")
}

func (c *InMemory) RemoveLock(id LockID, acct types.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[acct]
	if !ok {
		return
	}
	delete(a.locks, id)
	c.log.WithField("account", acct.String()).Debug("balance lock removed")
}

func (c *InMemory) LockedAmount(id LockID, acct types.AccountID) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.accounts[acct]
	if !ok {
		return big.NewInt(0)
	}
	amt, ok := a.locks[id]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amt)
}

func (c *InMemory) Transfer(from, to types.AccountID, amount *big.Int, allowDeath bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.ensure(from)
	if src.free.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient free balance: have %s, need %s", src.free.String(), amount.String())
	}
	remaining := new(big.Int).Sub(src.free, amount)
	if !allowDeath && remaining.Sign() == 0 {
		return fmt.Errorf("transfer would kill account %s", from.String())
	}

	src.free = remaining
	dst := c.ensure(to)
	dst.free.Add(dst.free, amount)
	return nil
}

func (c *InMemory) DepositCreating(acct types.AccountID, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dst := c.ensure(acct)
	dst.free.Add(dst.free, amount)
	c.totalIssuance.Add(c.totalIssuance, amount)
}
