// Package registry models the IP-set registry collaborator: existence
// checks and derived multisig addresses for registered IP sets. The
// registry itself — metadata, licensing, ownership transfer — is out
// of scope for the staking core (spec §1); this package only exposes
// the two primitives the core actually calls.
package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/ocif-labs/ip-staking/pkg/types"
)

// Registry is the collaborator interface the staking core depends on.
type Registry interface {
	Exists(ips types.IpsID) bool
	DerivedMultisigAddress(ips types.IpsID) types.AccountID
}

// InMemory is a reference Registry used by tests and the default
// runtime wiring, deriving a deterministic multisig-like address per
// IP set by hashing a stable salt together with the identifier.
type InMemory struct {
	mu  sync.RWMutex
	ips map[types.IpsID]struct{}
}

// NewInMemory creates a Registry with the given IP sets pre-registered.
func NewInMemory(existing ...types.IpsID) *InMemory {
	r := &InMemory{ips: make(map[types.IpsID]struct{})}
	for _, id := range existing {
		r.ips[id] = struct{}{}
	}
	return r
}

func (r *InMemory) Exists(ips types.IpsID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ips[ips]
	return ok
}

// Register marks an IP set as existing in the registry. The staking
// pallet's own `register` action requires this to already be true; it
// is exposed here only so tests and the demo daemon can seed IP sets.
func (r *InMemory) Register(ips types.IpsID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ips[ips] = struct{}{}
}

const multisigSalt = "ocif/ips-multisig"

// DerivedMultisigAddress returns a deterministic account id for the
// IP set, standing in for the on-chain multisig address an IP set's
// owning collective controls.
func (r *InMemory) DerivedMultisigAddress(ips types.IpsID) types.AccountID {
	h := sha256.New()
	h.Write([]byte(multisigSalt))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(ips))
	h.Write(buf[:])
	sum := h.Sum(nil)

	var out types.AccountID
	copy(out[:], sum)
	return out
}
