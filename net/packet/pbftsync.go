// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/rlp"
	"github.com/taraxa-go/taraxa-core/types"
)

// GetPbftSyncPacket requests every finalized period starting at FromPeriod
// (inclusive), lowest dispatch priority per spec.md §4.10's PBFT sync flow.
type GetPbftSyncPacket struct {
	FromPeriod uint64
}

func (p *GetPbftSyncPacket) Type() Type { return TypeGetPbftSync }

func (p *GetPbftSyncPacket) Validate(n Node) error { return nil }

// Process has no local effect, and nothing in this module replies with
// PbftSyncPackets for the requested periods.
func (p *GetPbftSyncPacket) Process(ctx context.Context, n Node, from ids.NodeID) error { return nil }

func (p *GetPbftSyncPacket) EncodeRLP() []byte {
	return rlp.Encode(rlp.List(rlp.Uint64(p.FromPeriod)))
}

// DecodeGetPbftSyncPacketRLP decodes a PBFT sync request.
func DecodeGetPbftSyncPacketRLP(data []byte) (*GetPbftSyncPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(1)
	if err != nil {
		return nil, err
	}
	from, err := f[0].Uint64()
	if err != nil {
		return nil, err
	}
	return &GetPbftSyncPacket{FromPeriod: from}, nil
}

// PbftSyncPacket streams finalized periods in ascending height order, each
// carrying its pivot-chain block, the DAG blocks it anchors, their
// transactions, and the cert-votes that certified it.
type PbftSyncPacket struct {
	Periods []*types.PeriodData
	// HasMore is true when the peer holds periods beyond the last one in
	// this packet, prompting the receiver to send another GetPbftSyncPacket.
	HasMore bool
}

func (p *PbftSyncPacket) Type() Type { return TypePbftSync }

// Validate rejects an empty reply; each period's internal consistency
// (order hash, vote quorum) is checked by Process via the same finalize
// path local proposals go through.
func (p *PbftSyncPacket) Validate(n Node) error {
	if len(p.Periods) == 0 {
		return errMalicious("pbft sync packet: empty reply")
	}
	return nil
}

// Process applies each period in order: transactions and DAG blocks are
// admitted first so the finalize pipeline's lookups resolve, then the
// period itself is applied. A period that fails to apply (bad order hash,
// insufficient cert-vote weight) marks the sender malicious; anything
// already applied in this call before the failure stays applied, since a
// prior period's validity does not depend on a later one's.
func (p *PbftSyncPacket) Process(ctx context.Context, n Node, from ids.NodeID) error {
	for _, pd := range p.Periods {
		for _, tx := range pd.Transactions {
			if _, err := n.Pool().Insert(tx); err != nil {
				return errMalicious("pbft sync packet: invalid transaction in period: %v", err)
			}
		}
		for _, block := range pd.DagBlocks {
			authorPub, err := recoverDagAuthor(block)
			if err != nil {
				return errMalicious("pbft sync packet: cannot recover dag block author: %v", err)
			}
			if err := n.DAG().Insert(block, authorPub); err != nil {
				return errTransient("pbft sync packet: dag block insert rejected: %v", err)
			}
		}
		for _, v := range pd.CertVotes {
			result, err := n.Votes().Add(v)
			if result == VoteInvalid {
				return errMalicious("pbft sync packet: invalid cert vote: %v", err)
			}
		}
		if n.Votes().EquivocationCount() > 0 {
			return errMalicious("pbft sync packet: equivocating cert vote in period")
		}
		if err := n.Periods().Apply(pd); err != nil {
			return errMalicious("pbft sync packet: period rejected: %v", err)
		}
	}
	return nil
}

func (p *PbftSyncPacket) item() rlp.Item {
	periodItems := make([]rlp.Item, len(p.Periods))
	for i, pd := range p.Periods {
		periodItems[i] = periodDataItem(pd)
	}
	return rlp.List(rlp.List(periodItems...), rlp.Bool(p.HasMore))
}

// EncodeRLP encodes the PBFT sync reply.
func (p *PbftSyncPacket) EncodeRLP() []byte { return rlp.Encode(p.item()) }

// DecodePbftSyncPacketRLP decodes a PBFT sync reply.
func DecodePbftSyncPacketRLP(data []byte) (*PbftSyncPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(2)
	if err != nil {
		return nil, err
	}
	periodItems, err := f[0].List(-1)
	if err != nil {
		return nil, err
	}
	periods := make([]*types.PeriodData, len(periodItems))
	for i, item := range periodItems {
		pd, err := decodePeriodDataItem(item)
		if err != nil {
			return nil, err
		}
		periods[i] = pd
	}
	hasMore, err := f[1].Bool()
	if err != nil {
		return nil, err
	}
	return &PbftSyncPacket{Periods: periods, HasMore: hasMore}, nil
}

func periodDataItem(pd *types.PeriodData) rlp.Item {
	blockItems := make([]rlp.Item, len(pd.DagBlocks))
	for i, b := range pd.DagBlocks {
		blockItems[i] = rlp.String(b.EncodeRLP())
	}
	txItems := make([]rlp.Item, len(pd.Transactions))
	for i, tx := range pd.Transactions {
		txItems[i] = rlp.String(tx.EncodeRLP())
	}
	voteItems := make([]rlp.Item, len(pd.CertVotes))
	for i, v := range pd.CertVotes {
		voteItems[i] = rlp.String(v.EncodeRLP())
	}
	return rlp.List(
		rlp.String(pd.PBFTBlock.EncodeRLP()),
		rlp.List(blockItems...),
		rlp.List(txItems...),
		rlp.List(voteItems...),
		rlp.Uint64(uint64(pd.BonusVotesCount)),
	)
}

func decodePeriodDataItem(it rlp.Item) (*types.PeriodData, error) {
	f, err := it.List(5)
	if err != nil {
		return nil, err
	}
	pbftBlock, err := types.DecodePBFTBlockRLP(f[0].Bytes())
	if err != nil {
		return nil, err
	}
	blockItems, err := f[1].List(-1)
	if err != nil {
		return nil, err
	}
	blocks := make([]*types.DAGBlock, len(blockItems))
	for i, bi := range blockItems {
		b, err := types.DecodeDAGBlockRLP(bi.Bytes())
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	txItems, err := f[2].List(-1)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, len(txItems))
	for i, ti := range txItems {
		tx, err := types.DecodeTransactionRLP(ti.Bytes())
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	voteItems, err := f[3].List(-1)
	if err != nil {
		return nil, err
	}
	votes := make([]*types.Vote, len(voteItems))
	for i, vi := range voteItems {
		v, err := types.DecodeVoteRLP(vi.Bytes())
		if err != nil {
			return nil, err
		}
		votes[i] = v
	}
	bonus, err := f[4].Uint64()
	if err != nil {
		return nil, err
	}
	return &types.PeriodData{
		PBFTBlock:       pbftBlock,
		DagBlocks:       blocks,
		Transactions:    txs,
		CertVotes:       votes,
		BonusVotesCount: uint32(bonus),
	}, nil
}
