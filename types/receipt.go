// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "github.com/taraxa-go/taraxa-core/rlp"

// ReceiptStatus mirrors the EVM execution outcome encoded per EIP-658.
type ReceiptStatus uint8

const (
	ReceiptStatusFailed ReceiptStatus = iota
	ReceiptStatusSuccessful
)

// Log is a single EVM event log entry.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// Receipt records the outcome of executing a single transaction within a
// finalized period, per spec.md §4.8.
type Receipt struct {
	TxHash            Hash
	Status            ReceiptStatus
	GasUsed           uint64
	CumulativeGasUsed uint64
	Logs              []Log
	ContractAddress   *Address // set only for successful contract-creation txs
}

func (r *Receipt) item() rlp.Item {
	logs := make([]rlp.Item, len(r.Logs))
	for i, lg := range r.Logs {
		topics := make([]rlp.Item, len(lg.Topics))
		for j, t := range lg.Topics {
			topics[j] = rlp.String(t[:])
		}
		logs[i] = rlp.List(rlp.String(lg.Address[:]), rlp.List(topics...), rlp.String(lg.Data))
	}
	contract := rlp.String(nil)
	if r.ContractAddress != nil {
		contract = rlp.String(r.ContractAddress[:])
	}
	return rlp.List(
		rlp.String(r.TxHash[:]),
		rlp.Uint64(uint64(r.Status)),
		rlp.Uint64(r.GasUsed),
		rlp.Uint64(r.CumulativeGasUsed),
		rlp.List(logs...),
		contract,
	)
}

// EncodeRLP encodes the receipt.
func (r *Receipt) EncodeRLP() []byte { return rlp.Encode(r.item()) }

// DecodeReceiptRLP decodes a receipt previously produced by EncodeRLP.
func DecodeReceiptRLP(data []byte) (*Receipt, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := it.List(6)
	if err != nil {
		return nil, err
	}
	status, err := fields[1].Uint64()
	if err != nil {
		return nil, err
	}
	gasUsed, err := fields[2].Uint64()
	if err != nil {
		return nil, err
	}
	cumGasUsed, err := fields[3].Uint64()
	if err != nil {
		return nil, err
	}
	logItems, err := fields[4].List(-1)
	if err != nil {
		return nil, err
	}
	logs := make([]Log, len(logItems))
	for i, li := range logItems {
		lf, err := li.List(3)
		if err != nil {
			return nil, err
		}
		topicItems, err := lf[1].List(-1)
		if err != nil {
			return nil, err
		}
		topics := make([]Hash, len(topicItems))
		for j, ti := range topicItems {
			topics[j] = BytesToHash(ti.Bytes())
		}
		logs[i] = Log{
			Address: BytesToAddress(lf[0].Bytes()),
			Topics:  topics,
			Data:    append([]byte(nil), lf[2].Bytes()...),
		}
	}
	var contract *Address
	if b := fields[5].Bytes(); len(b) > 0 {
		a := BytesToAddress(b)
		contract = &a
	}

	return &Receipt{
		TxHash:            BytesToHash(fields[0].Bytes()),
		Status:            ReceiptStatus(status),
		GasUsed:           gasUsed,
		CumulativeGasUsed: cumGasUsed,
		Logs:              logs,
		ContractAddress:   contract,
	}, nil
}

// ReceiptsRoot hashes the canonical RLP list of receipt encodings, used as
// a cheap stand-in trie root when a full Merkle-Patricia trie is not
// constructed (see finalizer's trie builder for the real root).
func ReceiptsRoot(receipts []*Receipt) Hash {
	items := make([]rlp.Item, len(receipts))
	for i, r := range receipts {
		items[i] = rlp.String(r.EncodeRLP())
	}
	return Keccak256(rlp.Encode(rlp.List(items...)))
}
