// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/rlp"
	"github.com/taraxa-go/taraxa-core/types"
)

// StatusPacket is the 11-field initial handshake form of spec.md §4.10/§6.
// A chain_id or genesis_hash mismatch is fatal for the connection.
type StatusPacket struct {
	Status Status
}

func (p *StatusPacket) Type() Type { return TypeStatus }

// Validate rejects a peer whose chain_id or genesis_hash does not match
// the local node's, per spec.md §4.10.
func (p *StatusPacket) Validate(n Node) error {
	if p.Status.ChainID != n.ChainID() {
		return errMalicious("status: chain_id mismatch: peer %d, local %d", p.Status.ChainID, n.ChainID())
	}
	if p.Status.GenesisHash != n.GenesisHash() {
		return errMalicious("status: genesis_hash mismatch: peer %x, local %x", p.Status.GenesisHash[:], n.GenesisHash()[:])
	}
	return nil
}

// Process records the peer's status for liveness/sync-need tracking; the
// router's peer table owns that bookkeeping, so Process is a no-op here
// beyond validation having already gated admission.
func (p *StatusPacket) Process(ctx context.Context, n Node, from ids.NodeID) error { return nil }

func (p *StatusPacket) item() rlp.Item {
	return rlp.List(
		rlp.Uint64(p.Status.ChainID),
		rlp.Uint64(p.Status.NetworkID),
		rlp.String(p.Status.GenesisHash[:]),
		rlp.Uint64(uint64(p.Status.ProtocolVersion)),
		rlp.String([]byte(p.Status.NodeVersion)),
		rlp.Uint64(p.Status.PBFTChainSize),
		rlp.Uint64(uint64(p.Status.PBFTRound)),
		rlp.Uint64(p.Status.DAGLevel),
		rlp.Bool(p.Status.Syncing),
		rlp.Bool(p.Status.IsLightNode),
		rlp.Uint64(uint64(p.Status.History)),
	)
}

// EncodeRLP encodes the 11-field initial status packet.
func (p *StatusPacket) EncodeRLP() []byte { return rlp.Encode(p.item()) }

// DecodeStatusPacketRLP decodes the 11-field form, raising
// InvalidRlpItemsCount (via rlp.ErrUnexpectedListSize) on arity mismatch
// per spec.md §6.
func DecodeStatusPacketRLP(data []byte) (*StatusPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(11)
	if err != nil {
		return nil, err
	}
	chainID, err := f[0].Uint64()
	if err != nil {
		return nil, err
	}
	networkID, err := f[1].Uint64()
	if err != nil {
		return nil, err
	}
	protoVer, err := f[3].Uint64()
	if err != nil {
		return nil, err
	}
	pbftSize, err := f[5].Uint64()
	if err != nil {
		return nil, err
	}
	round, err := f[6].Uint64()
	if err != nil {
		return nil, err
	}
	dagLevel, err := f[7].Uint64()
	if err != nil {
		return nil, err
	}
	syncing, err := f[8].Bool()
	if err != nil {
		return nil, err
	}
	light, err := f[9].Bool()
	if err != nil {
		return nil, err
	}
	history, err := f[10].Uint64()
	if err != nil {
		return nil, err
	}
	return &StatusPacket{Status: Status{
		ChainID:         chainID,
		NetworkID:       networkID,
		GenesisHash:     types.BytesToHash(f[2].Bytes()),
		ProtocolVersion: uint32(protoVer),
		NodeVersion:     string(f[4].Bytes()),
		PBFTChainSize:   pbftSize,
		PBFTRound:       uint32(round),
		DAGLevel:        dagLevel,
		Syncing:         syncing,
		IsLightNode:     light,
		History:         uint32(history),
	}}, nil
}

// StatusUpdatePacket is the 4-field form sent after the initial handshake:
// the fast-changing liveness fields only.
type StatusUpdatePacket struct {
	PBFTChainSize uint64
	PBFTRound     uint32
	DAGLevel      uint64
	Syncing       bool
}

func (p *StatusUpdatePacket) Type() Type { return TypeStatus }

// Validate has nothing to check beyond arity (enforced by the decoder);
// an update packet carries no chain_id/genesis_hash to mismatch.
func (p *StatusUpdatePacket) Validate(n Node) error { return nil }

// Process is a no-op; the router's peer table records the fields.
func (p *StatusUpdatePacket) Process(ctx context.Context, n Node, from ids.NodeID) error { return nil }

func (p *StatusUpdatePacket) item() rlp.Item {
	return rlp.List(
		rlp.Uint64(p.PBFTChainSize),
		rlp.Uint64(uint64(p.PBFTRound)),
		rlp.Uint64(p.DAGLevel),
		rlp.Bool(p.Syncing),
	)
}

// EncodeRLP encodes the 4-field update status packet.
func (p *StatusUpdatePacket) EncodeRLP() []byte { return rlp.Encode(p.item()) }

// DecodeStatusUpdatePacketRLP decodes the 4-field update form.
func DecodeStatusUpdatePacketRLP(data []byte) (*StatusUpdatePacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(4)
	if err != nil {
		return nil, err
	}
	pbftSize, err := f[0].Uint64()
	if err != nil {
		return nil, err
	}
	round, err := f[1].Uint64()
	if err != nil {
		return nil, err
	}
	dagLevel, err := f[2].Uint64()
	if err != nil {
		return nil, err
	}
	syncing, err := f[3].Bool()
	if err != nil {
		return nil, err
	}
	return &StatusUpdatePacket{
		PBFTChainSize: pbftSize,
		PBFTRound:     uint32(round),
		DAGLevel:      dagLevel,
		Syncing:       syncing,
	}, nil
}
