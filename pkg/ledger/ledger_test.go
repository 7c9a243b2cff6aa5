package ledger

import (
	"math/big"
	"testing"

	"github.com/ocif-labs/ip-staking/pkg/types"
)

func newTestLedger() *Ledger {
	return New(Genesis{
		CurrentEra:          0,
		LastPayoutBlock:      0,
		InitialPerEraAmount:  big.NewInt(3205000000000000),
		GenesisBlock:         0,
		PotAccount:           types.AccountID{0xFF},
	})
}

func TestIncrementEraAdvancesAndReturnsPrevious(t *testing.T) {
	l := newTestLedger()
	prev, err := l.IncrementEra()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev != 0 {
		t.Fatalf("prev = %d, want 0", prev)
	}
	if l.CurrentEra() != 1 {
		t.Fatalf("CurrentEra = %d, want 1", l.CurrentEra())
	}
}

func TestIncrementEraOverflowIsFatal(t *testing.T) {
	l := newTestLedger()
	l.currentEra = ^types.Era(0)
	_, err := l.IncrementEra()
	if err == nil || !IsFatal(err) {
		t.Fatalf("expected fatal error on era overflow, got %v", err)
	}
	fe, ok := err.(*FatalError)
	if !ok || fe.Kind != FatalNoAvailableEra {
		t.Fatalf("expected FatalNoAvailableEra, got %v", err)
	}
}

func TestAccountTripleLifecycle(t *testing.T) {
	l := newTestLedger()
	acct := types.AccountID{1}

	if _, ok := l.AccountTriple(acct); ok {
		t.Fatalf("account should have no triple yet")
	}

	t1 := l.GetOrCreateAccountTriple(acct)
	t1.PendingStake.SetInt64(100)

	triple, ok := l.AccountTriple(acct)
	if !ok || triple.PendingStake.Int64() != 100 {
		t.Fatalf("expected pending stake 100, got %+v", triple)
	}

	t1.PendingUnstake.SetInt64(100)
	t1.ApplyBoundary()
	l.PruneAccountTripleIfZero(acct)
	if _, ok := l.AccountTriple(acct); ok {
		t.Fatalf("triple should be pruned after settling back to zero")
	}
}

func TestRegisterIpsRejectsDuplicate(t *testing.T) {
	l := newTestLedger()
	ips := types.IpsID(0)
	addr := types.AccountID{2}

	if !l.RegisterIps(ips, addr, 1) {
		t.Fatalf("first registration should succeed")
	}
	if l.RegisterIps(ips, addr, 2) {
		t.Fatalf("second registration should be rejected")
	}
}

func TestPairRecordCountingForMaxUniqueStakes(t *testing.T) {
	l := newTestLedger()
	acct := types.AccountID{3}

	l.GetOrCreatePairRecord(acct, types.IpsID(0)).PendingStake = big.NewInt(1)
	l.GetOrCreatePairRecord(acct, types.IpsID(1)).PendingStake = big.NewInt(1)

	if got := l.CountPairRecordsForAccount(acct); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestClaimableAddAndTake(t *testing.T) {
	l := newTestLedger()
	acct := types.AccountID{4}

	l.AddClaimable(acct, big.NewInt(50))
	l.AddClaimable(acct, big.NewInt(25))

	if got := l.Claimable(acct); got.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("claimable = %s, want 75", got)
	}

	taken := l.TakeClaimable(acct)
	if taken.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("taken = %s, want 75", taken)
	}
	if got := l.Claimable(acct); got.Sign() != 0 {
		t.Fatalf("claimable should be zero after take, got %s", got)
	}
}

func TestUnbondingQueueDrainsOnlyMaturedEra(t *testing.T) {
	l := newTestLedger()
	acct := types.AccountID{5}

	l.EnqueueUnbonding(types.Era(3), acct, big.NewInt(10))

	if entries := l.DrainMaturedUnbonding(types.Era(2)); len(entries) != 0 {
		t.Fatalf("expected no entries matured at era 2, got %v", entries)
	}
	entries := l.DrainMaturedUnbonding(types.Era(3))
	if len(entries) != 1 || entries[0].Account != acct {
		t.Fatalf("expected one matured entry for %v, got %v", acct, entries)
	}
	if entries := l.DrainMaturedUnbonding(types.Era(3)); len(entries) != 0 {
		t.Fatalf("expected queue already drained, got %v", entries)
	}
}

func TestAllAccountIDsDeterministicOrder(t *testing.T) {
	l := newTestLedger()
	a := types.AccountID{9}
	b := types.AccountID{1}
	l.GetOrCreateAccountTriple(a)
	l.GetOrCreateAccountTriple(b)

	ids := l.AllAccountIDs()
	if len(ids) != 2 || ids[0] != b || ids[1] != a {
		t.Fatalf("expected sorted order [b, a], got %v", ids)
	}
}
