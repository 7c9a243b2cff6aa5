package ledger

import (
	"math/big"
	"testing"
)

func TestStakeTripleApplyBoundary(t *testing.T) {
	triple := NewTriple()
	triple.PendingStake.SetInt64(1000)
	triple.PendingUnstake.SetInt64(200)

	triple.ApplyBoundary()

	if triple.Active.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("Active = %s, want 800", triple.Active)
	}
	if triple.PendingStake.Sign() != 0 || triple.PendingUnstake.Sign() != 0 {
		t.Fatalf("pendings not cleared: +%s -%s", triple.PendingStake, triple.PendingUnstake)
	}
}

func TestStakeTripleIsZero(t *testing.T) {
	triple := NewTriple()
	if !triple.IsZero() {
		t.Fatalf("fresh triple should be zero")
	}
	triple.Active.SetInt64(1)
	if triple.IsZero() {
		t.Fatalf("triple with nonzero active should not be zero")
	}
}

func TestStakeTripleCloneIsIndependent(t *testing.T) {
	triple := NewTriple()
	triple.Active.SetInt64(5)
	clone := triple.Clone()
	clone.Active.SetInt64(999)
	if triple.Active.Int64() != 5 {
		t.Fatalf("mutating clone affected original: %s", triple.Active)
	}
}

func TestPairRecordApplyBoundaryPromotesAndClears(t *testing.T) {
	p := &PairRecord{PendingStake: big.NewInt(100)}
	removed := p.ApplyBoundary(1)
	if removed {
		t.Fatalf("record should not be removed")
	}
	if p.Active == nil || p.Active.Balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("Active = %+v, want balance 100", p.Active)
	}
	if p.PendingStake != nil || p.PendingUnstake != nil {
		t.Fatalf("pendings should be cleared")
	}
}

func TestPairRecordApplyBoundaryRemovesWhenZero(t *testing.T) {
	p := &PairRecord{
		Active:         &ActivePoint{Era: 1, Balance: big.NewInt(100)},
		PendingUnstake: big.NewInt(100),
	}
	removed := p.ApplyBoundary(2)
	if !removed {
		t.Fatalf("record should have been removed")
	}
	if !p.IsEmpty() {
		t.Fatalf("record should be empty after removal")
	}
}

func TestPairRecordApplyBoundaryNoopWithoutPending(t *testing.T) {
	p := &PairRecord{Active: &ActivePoint{Era: 1, Balance: big.NewInt(50)}}
	removed := p.ApplyBoundary(2)
	if removed {
		t.Fatalf("record with no pendings and nonzero active should not be removed")
	}
	if p.Active.Era != 1 {
		t.Fatalf("Active.Era should be untouched when nothing is pending, got %d", p.Active.Era)
	}
}

func TestIpsRecordApplyBoundary(t *testing.T) {
	r := NewIpsRecord([32]byte{1}, 10)
	r.NextEraNewStake.SetInt64(500)
	r.ApplyBoundary()
	if r.TotalStake.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("TotalStake = %s, want 500", r.TotalStake)
	}
	if r.NextEraNewStake.Sign() != 0 {
		t.Fatalf("NextEraNewStake should be cleared")
	}
}
