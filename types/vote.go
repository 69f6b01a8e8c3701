// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"sync/atomic"

	"github.com/taraxa-go/taraxa-core/rlp"
)

// PBFTStep is the PBFT round's current step: propose, soft-vote, cert-vote,
// or one of the next-vote steps used during round-change.
type PBFTStep uint8

const (
	StepPropose PBFTStep = iota + 1
	StepSoftVote
	StepCertVote
	StepFirstFinish
	StepSecondFinishPlus // second-finish and beyond cycle by +2 per round per spec.md §4.5
)

// VRFSortition is the stake-weighted VRF sortition ticket attached to a
// vote, binding it to a specific (period, round, step).
type VRFSortition struct {
	Period   uint64
	Round    uint32
	Step     PBFTStep
	VRFProof VRFProof
}

func (s VRFSortition) item() rlp.Item {
	return rlp.List(
		rlp.Uint64(s.Period),
		rlp.Uint64(uint64(s.Round)),
		rlp.Uint64(uint64(s.Step)),
		rlp.String(s.VRFProof[:]),
	)
}

// Message is the payload a vote's signature is computed over: the candidate
// block hash plus its sortition ticket, per spec.md §4.6.
func (s VRFSortition) Message(blockHash Hash) Hash {
	return Keccak256(blockHash[:], rlp.Encode(s.item()))
}

// Vote is a single committee member's signed PBFT vote at a given
// (period, round, step), per spec.md §3/§4.6.
type Vote struct {
	BlockHash Hash
	Sortition VRFSortition
	SignerSig Signature

	hash   atomic.Pointer[Hash]
	voter  atomic.Pointer[Address]
	weight atomic.Uint32
}

// NewVote constructs an unsigned vote.
func NewVote(blockHash Hash, sortition VRFSortition) *Vote {
	return &Vote{BlockHash: blockHash, Sortition: sortition}
}

func (v *Vote) unsignedItem() rlp.Item {
	return rlp.List(rlp.String(v.BlockHash[:]), v.Sortition.item())
}

// SigningHash is the hash the voter's signature covers.
func (v *Vote) SigningHash() Hash {
	return Keccak256(rlp.Encode(v.unsignedItem()))
}

// Hash returns (and caches) the vote hash, covering the signature too so
// two votes differing only by signature malleability never collide.
func (v *Vote) Hash() Hash {
	if h := v.hash.Load(); h != nil {
		return *h
	}
	h := Keccak256(rlp.Encode(v.unsignedItem()), v.SignerSig[:])
	v.hash.Store(&h)
	return h
}

// CachedVoter returns the cached signer address set by SetVoter, if any.
func (v *Vote) CachedVoter() (Address, bool) {
	if a := v.voter.Load(); a != nil {
		return *a, true
	}
	return Address{}, false
}

// SetVoter caches the recovered signer address.
func (v *Vote) SetVoter(a Address) { v.voter.Store(&a) }

// Weight returns the cached stake-sortition weight (committee votes
// contributed by this ticket), set by SetWeight once sortition has been
// checked.
func (v *Vote) Weight() uint64 { return uint64(v.weight.Load()) }

// SetWeight caches the vote's sortition weight.
func (v *Vote) SetWeight(w uint64) { v.weight.Store(uint32(w)) }

// EncodeRLP encodes the full signed vote.
func (v *Vote) EncodeRLP() []byte {
	unsigned, _ := v.unsignedItem().List(2)
	return rlp.Encode(rlp.List(append(append([]rlp.Item(nil), unsigned...), rlp.String(v.SignerSig[:]))...))
}

// DecodeVoteRLP decodes a vote previously produced by EncodeRLP.
func DecodeVoteRLP(data []byte) (*Vote, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := it.List(3)
	if err != nil {
		return nil, err
	}
	sortItems, err := fields[1].List(4)
	if err != nil {
		return nil, err
	}
	period, err := sortItems[0].Uint64()
	if err != nil {
		return nil, err
	}
	round, err := sortItems[1].Uint64()
	if err != nil {
		return nil, err
	}
	step, err := sortItems[2].Uint64()
	if err != nil {
		return nil, err
	}
	vrfBytes := sortItems[3].Bytes()
	if len(vrfBytes) != VRFProofLength {
		return nil, rlp.ErrUnexpectedListSize
	}
	sigBytes := fields[2].Bytes()
	if len(sigBytes) != SignatureLength {
		return nil, rlp.ErrUnexpectedListSize
	}

	var sortition VRFSortition
	sortition.Period = period
	sortition.Round = uint32(round)
	sortition.Step = PBFTStep(step)
	copy(sortition.VRFProof[:], vrfBytes)

	v := &Vote{
		BlockHash: BytesToHash(fields[0].Bytes()),
		Sortition: sortition,
	}
	copy(v.SignerSig[:], sigBytes)
	return v, nil
}

// VoteBundle is a set of votes all certifying the same (period, round,
// step, block_hash), e.g. a next-votes bundle carried in a round-change
// message per spec.md §4.5.
type VoteBundle struct {
	Votes []*Vote
}

// TotalWeight sums the cached sortition weight across the bundle.
func (b VoteBundle) TotalWeight() uint64 {
	var total uint64
	for _, v := range b.Votes {
		total += v.Weight()
	}
	return total
}
