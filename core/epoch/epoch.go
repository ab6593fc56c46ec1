// Package epoch resolves the signing authority for epoch-upgrade blocks
// and enforces the strict epoch ordering described in spec.md §3/§4.2.
// It is deliberately minimal: adding a new epoch to the live protocol is
// a governance decision made by an external collaborator, not by this
// package.
package epoch

import (
	"github.com/btcnew-node/ledger/common"
)

// Authority is the account whose signature is required on an epoch block
// upgrading an account to a given epoch, together with the Link tag that
// identifies the upgrade in a state block.
type Authority struct {
	Epoch common.Epoch
	Tag   common.Link
	Key   [32]byte // Ed25519 public key of the authority account
}

// Registry maps epoch upgrade tags (the Link field of an epoch block) to
// their signing authority, and each target epoch to that same authority.
type Registry struct {
	byTag   map[common.Link]Authority
	byEpoch map[common.Epoch]Authority
}

// NewRegistry builds a registry from a fixed list of authorities. The
// list must be in strictly increasing epoch order; NewRegistry panics
// otherwise, since a mis-ordered registry is a programmer error, not a
// runtime condition.
func NewRegistry(authorities []Authority) *Registry {
	r := &Registry{
		byTag:   make(map[common.Link]Authority, len(authorities)),
		byEpoch: make(map[common.Epoch]Authority, len(authorities)),
	}
	last := common.EpochInvalid
	for _, a := range authorities {
		if a.Epoch <= last && last != common.EpochInvalid {
			panic("epoch: authorities must be registered in strictly increasing epoch order")
		}
		last = a.Epoch
		r.byTag[a.Tag] = a
		r.byEpoch[a.Epoch] = a
	}
	return r
}

// Lookup resolves a block's Link field to an epoch authority, reporting
// ok=false when the link does not name a recognized epoch upgrade (the
// caller then treats the state block as an ordinary send/receive/change).
func (r *Registry) Lookup(link common.Link) (Authority, bool) {
	a, ok := r.byTag[link]
	return a, ok
}

// AuthorityFor returns the signing authority for a target epoch.
func (r *Registry) AuthorityFor(e common.Epoch) (Authority, bool) {
	a, ok := r.byEpoch[e]
	return a, ok
}

// IsSequential reports whether next is a legal successor of prev for an
// already-open account: strictly the next epoch in sequence. Unopened
// accounts are not subject to this rule (spec.md §3: "unless an unopened
// account may open directly at any epoch").
func IsSequential(prev, next common.Epoch) bool {
	return next == prev+1
}
