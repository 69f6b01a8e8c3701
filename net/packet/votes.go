// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/rlp"
	"github.com/taraxa-go/taraxa-core/types"
)

// VotePacket carries a single gossiped PBFT vote (propose/soft/cert/next),
// highest dispatch priority per spec.md §4.10.
type VotePacket struct {
	Vote *types.Vote
}

func (p *VotePacket) Type() Type { return TypeVote }

// Validate has nothing further to check: signature recovery and VRF
// verification happen inside votes.Manager.Add, which also reports the
// specific invalid reason.
func (p *VotePacket) Validate(n Node) error { return nil }

// Process admits the vote into the vote manager; an Invalid result marks
// the sender malicious (bad signature, bad VRF, zero weight, etc.) per
// spec.md §4.6/§4.10, and so does a vote that equivocates against one the
// manager already holds for the same voter/round/step. Duplicate and a
// non-equivocating Added are both benign outcomes.
func (p *VotePacket) Process(ctx context.Context, n Node, from ids.NodeID) error {
	result, err := n.Votes().Add(p.Vote)
	if result == VoteInvalid {
		return errMalicious("vote packet: invalid vote from peer: %v", err)
	}
	if n.Votes().EquivocationCount() > 0 {
		return errMalicious("vote packet: equivocating vote from peer")
	}
	return nil
}

// EncodeRLP encodes the vote packet (the vote's own wire encoding, unwrapped).
func (p *VotePacket) EncodeRLP() []byte { return p.Vote.EncodeRLP() }

// DecodeVotePacketRLP decodes a vote packet.
func DecodeVotePacketRLP(data []byte) (*VotePacket, error) {
	v, err := types.DecodeVoteRLP(data)
	if err != nil {
		return nil, err
	}
	return &VotePacket{Vote: v}, nil
}

// GetVotesSyncPacket requests the next-votes bundle for (period, round)
// from a peer, used on round stall per spec.md §4.10's next-votes sync
// flow ("GetNextVotesSyncPacket" in spec.md §4.5's prose).
type GetVotesSyncPacket struct {
	Period uint64
	Round  uint32
}

func (p *GetVotesSyncPacket) Type() Type { return TypeGetVotesSync }

func (p *GetVotesSyncPacket) Validate(n Node) error { return nil }

// Process has no local effect, and nothing in this module replies with a
// VotesSyncPacket; Node exposes no "bundle at round" query to build one from.
func (p *GetVotesSyncPacket) Process(ctx context.Context, n Node, from ids.NodeID) error { return nil }

func (p *GetVotesSyncPacket) EncodeRLP() []byte {
	return rlp.Encode(rlp.List(rlp.Uint64(p.Period), rlp.Uint64(uint64(p.Round))))
}

// DecodeGetVotesSyncPacketRLP decodes a get-next-votes request.
func DecodeGetVotesSyncPacketRLP(data []byte) (*GetVotesSyncPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(2)
	if err != nil {
		return nil, err
	}
	period, err := f[0].Uint64()
	if err != nil {
		return nil, err
	}
	round, err := f[1].Uint64()
	if err != nil {
		return nil, err
	}
	return &GetVotesSyncPacket{Period: period, Round: uint32(round)}, nil
}

// VotesSyncPacket carries a next-votes bundle (>= 2f+1 next-votes for one
// round) in reply to a GetVotesSyncPacket, or unsolicited on round change.
type VotesSyncPacket struct {
	Votes []*types.Vote
}

func (p *VotesSyncPacket) Type() Type { return TypeVotesSync }

// Validate rejects an empty bundle outright; per-vote validity is checked
// by votes.Manager.Add during Process.
func (p *VotesSyncPacket) Validate(n Node) error {
	if len(p.Votes) == 0 {
		return errMalicious("votes sync packet: empty bundle")
	}
	return nil
}

// Process admits every vote in the bundle; any single Invalid or
// equivocating vote marks the sender malicious, matching VotePacket's rule
// applied per-member.
func (p *VotesSyncPacket) Process(ctx context.Context, n Node, from ids.NodeID) error {
	for _, v := range p.Votes {
		result, err := n.Votes().Add(v)
		if result == VoteInvalid {
			return errMalicious("votes sync packet: invalid vote from peer: %v", err)
		}
	}
	if n.Votes().EquivocationCount() > 0 {
		return errMalicious("votes sync packet: equivocating vote from peer")
	}
	return nil
}

// EncodeRLP encodes the votes bundle.
func (p *VotesSyncPacket) EncodeRLP() []byte {
	items := make([]rlp.Item, len(p.Votes))
	for i, v := range p.Votes {
		items[i] = rlp.String(v.EncodeRLP())
	}
	return rlp.Encode(rlp.List(items...))
}

// DecodeVotesSyncPacketRLP decodes a votes bundle packet.
func DecodeVotesSyncPacketRLP(data []byte) (*VotesSyncPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(-1)
	if err != nil {
		return nil, err
	}
	votes := make([]*types.Vote, len(f))
	for i, item := range f {
		v, err := types.DecodeVoteRLP(item.Bytes())
		if err != nil {
			return nil, err
		}
		votes[i] = v
	}
	return &VotesSyncPacket{Votes: votes}, nil
}
