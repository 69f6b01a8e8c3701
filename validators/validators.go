// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validators holds the DPOS stake/VRF-key snapshot the vote
// manager, transaction pool, and PBFT engine validate against, one
// snapshot per period per spec.md §4.6's "DPOS snapshot at
// period - delegation_delay". Grounded on the teacher's validators/state.go
// (State.GetValidatorSet) and validators/new.go's manager (a
// subnet-ID-keyed map of node weights), generalized from a single current
// validator set per subnet to a per-period history of address-keyed
// stake+VRF-key snapshots — the shape this spec's delegation-delay lookback
// requires that the teacher's single-height subnet model does not.
package validators

import (
	"sync"

	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/types"
)

// Validator is one committee member's stake and VRF identity, the
// per-period analogue of the teacher's GetValidatorOutput.
type Validator struct {
	Address types.Address
	Stake   uint64
	VRFKey  *vrf.PublicKey
}

// Snapshot is one period's immutable validator set.
type Snapshot struct {
	byAddress map[types.Address]Validator
	total     uint64
}

// NewSnapshot builds a Snapshot from vs, summing stake for the total.
func NewSnapshot(vs []Validator) *Snapshot {
	s := &Snapshot{byAddress: make(map[types.Address]Validator, len(vs))}
	for _, v := range vs {
		s.byAddress[v.Address] = v
		s.total += v.Stake
	}
	return s
}

// Stake returns addr's stake in this snapshot, or 0 if absent.
func (s *Snapshot) Stake(addr types.Address) uint64 { return s.byAddress[addr].Stake }

// Total returns the snapshot's total active stake.
func (s *Snapshot) Total() uint64 { return s.total }

// VRFPublicKey returns addr's registered VRF public key, if any.
func (s *Snapshot) VRFPublicKey(addr types.Address) (*vrf.PublicKey, bool) {
	v, ok := s.byAddress[addr]
	if !ok || v.VRFKey == nil {
		return nil, false
	}
	return v.VRFKey, true
}

// Count returns the number of validators in the snapshot.
func (s *Snapshot) Count() int { return len(s.byAddress) }

// Addresses returns every validator address in the snapshot, order
// unspecified; callers that need determinism sort the result themselves
// (per spec.md §4.9's address-order tie-break convention).
func (s *Snapshot) Addresses() []types.Address {
	out := make([]types.Address, 0, len(s.byAddress))
	for a := range s.byAddress {
		out = append(out, a)
	}
	return out
}

// Registry holds the per-period snapshot history a running node
// accumulates, generalized from the teacher's manager's single
// current-height map into a period-indexed history so
// period-delegation_delay lookups can reach back in time.
type Registry struct {
	mu       sync.RWMutex
	byPeriod map[uint64]*Snapshot
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byPeriod: make(map[uint64]*Snapshot)}
}

// SetSnapshot records the validator set active as of period.
func (r *Registry) SetSnapshot(period uint64, snap *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPeriod[period] = snap
}

// SnapshotAt returns the snapshot recorded for period, if any.
func (r *Registry) SnapshotAt(period uint64) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byPeriod[period]
	return s, ok
}

// StakeView adapts a Registry to votes.StakeQuery (and, via Stake, to the
// PBFT engine's proposer-sortition call), applying spec.md §4.6's
// period - delegation_delay lookback on every query.
type StakeView struct {
	Registry        *Registry
	DelegationDelay uint64
}

func (v *StakeView) snapshotFor(period uint64) (*Snapshot, bool) {
	lookback := v.DelegationDelay
	if lookback > period {
		lookback = period
	}
	return v.Registry.SnapshotAt(period - lookback)
}

// Stake resolves voter's stake in the DPOS snapshot at period - delegation_delay.
func (v *StakeView) Stake(period uint64, voter types.Address) uint64 {
	s, ok := v.snapshotFor(period)
	if !ok {
		return 0
	}
	return s.Stake(voter)
}

// TotalStake resolves the total active stake in that same snapshot.
func (v *StakeView) TotalStake(period uint64) uint64 {
	s, ok := v.snapshotFor(period)
	if !ok {
		return 0
	}
	return s.Total()
}

// VRFPublicKey resolves voter's VRF public key from the latest snapshot
// that names it, walking backward from the newest recorded period since a
// voter's key does not change per-period the way stake does.
func (v *StakeView) VRFPublicKey(voter types.Address) (*vrf.PublicKey, bool) {
	v.Registry.mu.RLock()
	defer v.Registry.mu.RUnlock()
	var best *Snapshot
	var bestPeriod uint64
	for period, snap := range v.Registry.byPeriod {
		if _, ok := snap.byAddress[voter]; ok && (best == nil || period > bestPeriod) {
			best, bestPeriod = snap, period
		}
	}
	if best == nil {
		return nil, false
	}
	return best.VRFPublicKey(voter)
}
