package registry

import (
	"testing"

	"github.com/ocif-labs/ip-staking/pkg/types"
)

func TestExistsAndRegister(t *testing.T) {
	r := NewInMemory(types.IpsID(0))
	if !r.Exists(types.IpsID(0)) {
		t.Fatalf("ip set 0 should exist from construction")
	}
	if r.Exists(types.IpsID(1)) {
		t.Fatalf("ip set 1 should not exist yet")
	}
	r.Register(types.IpsID(1))
	if !r.Exists(types.IpsID(1)) {
		t.Fatalf("ip set 1 should exist after Register")
	}
}

func TestDerivedMultisigAddressIsDeterministic(t *testing.T) {
	r := NewInMemory()
	a1 := r.DerivedMultisigAddress(types.IpsID(5))
	a2 := r.DerivedMultisigAddress(types.IpsID(5))
	if a1 != a2 {
		t.Fatalf("derivation should be deterministic for the same ip set id")
	}

	a3 := r.DerivedMultisigAddress(types.IpsID(6))
	if a1 == a3 {
		t.Fatalf("different ip set ids should derive different addresses")
	}
}
