// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/rlp"
	"github.com/taraxa-go/taraxa-core/types"
)

// DagBlockPacket carries one freshly proposed DAG block together with the
// transactions it references, mid dispatch priority per spec.md §4.10.
type DagBlockPacket struct {
	Block        *types.DAGBlock
	Transactions []*types.Transaction
}

func (p *DagBlockPacket) Type() Type { return TypeDagBlock }

// Validate has nothing further to check beyond decode-time arity: author
// recovery and signature verification happen in Process, where the
// recovered pubkey is also needed by dagdb.Manager.Insert.
func (p *DagBlockPacket) Validate(n Node) error { return nil }

// Process admits every transaction first (so the DAG block's references
// resolve), recovers the block author's pubkey from its signature, and
// inserts the block. A transaction the pool rejects, or a signature the
// author's pubkey cannot be recovered from, marks the sender malicious;
// every DAG insert rejection (missing parent, level mismatch, bad VDF or
// author signature) is returned as a transient error.
func (p *DagBlockPacket) Process(ctx context.Context, n Node, from ids.NodeID) error {
	for _, tx := range p.Transactions {
		if _, err := n.Pool().Insert(tx); err != nil {
			return errMalicious("dag block packet: invalid transaction: %v", err)
		}
	}

	authorPub, err := recoverDagAuthor(p.Block)
	if err != nil {
		return errMalicious("dag block packet: cannot recover author: %v", err)
	}
	if err := n.DAG().Insert(p.Block, authorPub); err != nil {
		return errTransient("dag block packet: insert rejected: %v", err)
	}
	return nil
}

// recoverDagAuthor recovers a DAG block's author pubkey from its
// signature, the form dagdb.Manager.Insert requires.
func recoverDagAuthor(block *types.DAGBlock) ([]byte, error) {
	return crypto.Recover(block.Hash(), block.AuthorSig)
}

func (p *DagBlockPacket) item() rlp.Item {
	txItems := make([]rlp.Item, len(p.Transactions))
	for i, tx := range p.Transactions {
		txItems[i] = rlp.String(tx.EncodeRLP())
	}
	return rlp.List(rlp.String(p.Block.EncodeRLP()), rlp.List(txItems...))
}

// EncodeRLP encodes the DAG block packet.
func (p *DagBlockPacket) EncodeRLP() []byte { return rlp.Encode(p.item()) }

// DecodeDagBlockPacketRLP decodes a DAG block packet.
func DecodeDagBlockPacketRLP(data []byte) (*DagBlockPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(2)
	if err != nil {
		return nil, err
	}
	block, err := types.DecodeDAGBlockRLP(f[0].Bytes())
	if err != nil {
		return nil, err
	}
	txItems, err := f[1].List(-1)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, len(txItems))
	for i, item := range txItems {
		tx, err := types.DecodeTransactionRLP(item.Bytes())
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return &DagBlockPacket{Block: block, Transactions: txs}, nil
}

// TransactionPacket carries one or more gossiped pool-bound transactions.
type TransactionPacket struct {
	Transactions []*types.Transaction
}

func (p *TransactionPacket) Type() Type { return TypeTransaction }

// Validate rejects an empty packet; per-transaction validity (sender
// recovery, chain id, nonce ordering, balance) is checked by the node's
// Pool().Insert during Process.
func (p *TransactionPacket) Validate(n Node) error {
	if len(p.Transactions) == 0 {
		return errMalicious("transaction packet: empty")
	}
	return nil
}

// Process inserts every transaction into the pool; an insert that fails
// because the transaction is malformed (bad signature, wrong chain id)
// marks the sender malicious, while one rejected only for being
// economically unattractive (PoolRejected) does not.
func (p *TransactionPacket) Process(ctx context.Context, n Node, from ids.NodeID) error {
	for _, tx := range p.Transactions {
		if _, err := n.Pool().Insert(tx); err != nil {
			if cerr.Is(err, cerr.KindMaliciousPeer) {
				return errMalicious("transaction packet: invalid transaction: %v", err)
			}
			return errTransient("transaction packet: insert rejected: %v", err)
		}
	}
	return nil
}

func (p *TransactionPacket) item() rlp.Item {
	items := make([]rlp.Item, len(p.Transactions))
	for i, tx := range p.Transactions {
		items[i] = rlp.String(tx.EncodeRLP())
	}
	return rlp.List(items...)
}

// EncodeRLP encodes the transaction packet.
func (p *TransactionPacket) EncodeRLP() []byte { return rlp.Encode(p.item()) }

// DecodeTransactionPacketRLP decodes a transaction packet.
func DecodeTransactionPacketRLP(data []byte) (*TransactionPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(-1)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, len(f))
	for i, item := range f {
		tx, err := types.DecodeTransactionRLP(item.Bytes())
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return &TransactionPacket{Transactions: txs}, nil
}

// GetDagSyncPacket requests every DAG block (with transactions) reachable
// from the sender's known tips that the requesting peer is missing,
// lowest dispatch priority per spec.md §4.10's DAG sync flow.
type GetDagSyncPacket struct {
	KnownTips []types.Hash
}

func (p *GetDagSyncPacket) Type() Type { return TypeGetDagSync }

func (p *GetDagSyncPacket) Validate(n Node) error { return nil }

// Process has no local effect, and nothing in this module replies with a
// DagSyncPacket.
func (p *GetDagSyncPacket) Process(ctx context.Context, n Node, from ids.NodeID) error { return nil }

func (p *GetDagSyncPacket) EncodeRLP() []byte {
	items := make([]rlp.Item, len(p.KnownTips))
	for i, h := range p.KnownTips {
		items[i] = rlp.String(h[:])
	}
	return rlp.Encode(rlp.List(items...))
}

// DecodeGetDagSyncPacketRLP decodes a DAG sync request.
func DecodeGetDagSyncPacketRLP(data []byte) (*GetDagSyncPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(-1)
	if err != nil {
		return nil, err
	}
	tips := make([]types.Hash, len(f))
	for i, item := range f {
		tips[i] = types.BytesToHash(item.Bytes())
	}
	return &GetDagSyncPacket{KnownTips: tips}, nil
}

// DagSyncPacket replies to a GetDagSyncPacket with the missing DAG blocks
// and the transactions they reference, in an order the receiver can
// insert without hitting a missing-parent rejection (parents before
// children).
type DagSyncPacket struct {
	Blocks       []*types.DAGBlock
	Transactions []*types.Transaction
}

func (p *DagSyncPacket) Type() Type { return TypeDagSync }

func (p *DagSyncPacket) Validate(n Node) error { return nil }

// Process admits transactions then blocks in order, the same way
// DagBlockPacket does for a single block; any single bad signature marks
// the whole reply's sender malicious since a syncing peer should only
// ever forward blocks it has itself already verified.
func (p *DagSyncPacket) Process(ctx context.Context, n Node, from ids.NodeID) error {
	for _, tx := range p.Transactions {
		if _, err := n.Pool().Insert(tx); err != nil {
			return errMalicious("dag sync packet: invalid transaction: %v", err)
		}
	}
	for _, block := range p.Blocks {
		authorPub, err := recoverDagAuthor(block)
		if err != nil {
			return errMalicious("dag sync packet: cannot recover author: %v", err)
		}
		if err := n.DAG().Insert(block, authorPub); err != nil {
			return errTransient("dag sync packet: insert rejected: %v", err)
		}
	}
	return nil
}

func (p *DagSyncPacket) item() rlp.Item {
	blockItems := make([]rlp.Item, len(p.Blocks))
	for i, b := range p.Blocks {
		blockItems[i] = rlp.String(b.EncodeRLP())
	}
	txItems := make([]rlp.Item, len(p.Transactions))
	for i, tx := range p.Transactions {
		txItems[i] = rlp.String(tx.EncodeRLP())
	}
	return rlp.List(rlp.List(blockItems...), rlp.List(txItems...))
}

// EncodeRLP encodes the DAG sync reply.
func (p *DagSyncPacket) EncodeRLP() []byte { return rlp.Encode(p.item()) }

// DecodeDagSyncPacketRLP decodes a DAG sync reply.
func DecodeDagSyncPacketRLP(data []byte) (*DagSyncPacket, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	f, err := it.List(2)
	if err != nil {
		return nil, err
	}
	blockItems, err := f[0].List(-1)
	if err != nil {
		return nil, err
	}
	blocks := make([]*types.DAGBlock, len(blockItems))
	for i, item := range blockItems {
		b, err := types.DecodeDAGBlockRLP(item.Bytes())
		if err != nil {
			return nil, err
		}
		blocks[i] = b
	}
	txItems, err := f[1].List(-1)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, len(txItems))
	for i, item := range txItems {
		tx, err := types.DecodeTransactionRLP(item.Bytes())
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	return &DagSyncPacket{Blocks: blocks, Transactions: txs}, nil
}
