// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rewards

import (
	"math/big"
	"sort"

	"github.com/taraxa-go/taraxa-core/types"
)

// Split holds the basis-point allocation of a period's base block reward
// across the three reward classes named by spec.md §4.9. The three
// shares need not sum to exactly 10000; any shortfall, together with every
// pool's floor-division remainder, is swept into the proposer's dust
// credit (see Compute).
type Split struct {
	ProposerBps   uint64
	VotersBps     uint64
	DagAuthorsBps uint64
}

// DefaultSplit is this implementation's resolution of spec.md §4.9's
// otherwise unspecified per-class percentages: proposer 15%, cert-voters
// 50% (weight-proportional), DAG authors 35% (rewardable-block-count
// proportional). Recorded as a DESIGN.md decision since neither spec.md
// nor original_source fixes concrete shares.
var DefaultSplit = Split{ProposerBps: 1500, VotersBps: 5000, DagAuthorsBps: 3500}

const bpsDenominator = 10000

// Distribution is the final per-address credit set for one period,
// combining base-reward shares and per-transaction fee attribution.
type Distribution struct {
	Credits map[types.Address]*big.Int
}

func newDistribution() *Distribution {
	return &Distribution{Credits: make(map[types.Address]*big.Int)}
}

func (d *Distribution) credit(addr types.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	cur, ok := d.Credits[addr]
	if !ok {
		cur = new(big.Int)
		d.Credits[addr] = cur
	}
	cur.Add(cur, amount)
}

// sortedAddresses returns addr in ascending byte order, the deterministic
// iteration order spec.md §4.9 requires for tie-broken floor-division
// remainder accumulation.
func sortedAddresses(m map[types.Address]*ValidatorStats) []types.Address {
	out := make([]types.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytesLess(out[i][:], out[j][:])
	})
	return out
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Compute distributes baseReward across the proposer, cert-voters, and
// DAG authors recorded in bs, then credits every transaction's fee to the
// DAG author that first included it. Proposer, voter-pool, and
// dag-author-pool floor-division remainders ("dust") are all credited to
// the proposer, per spec.md §4.9.
func Compute(bs *BlockStats, baseReward *big.Int, split Split) *Distribution {
	dist := newDistribution()
	dust := new(big.Int)

	proposerShare := bpsOf(baseReward, split.ProposerBps)
	dist.credit(bs.blockAuthor, proposerShare)

	votersPool := bpsOf(baseReward, split.VotersBps)
	if bs.totalVotesWeight > 0 {
		distributed := new(big.Int)
		for _, addr := range sortedAddresses(bs.validatorStats) {
			vs := bs.validatorStats[addr]
			if vs.VoteWeight == 0 {
				continue
			}
			share := floorProportion(votersPool, vs.VoteWeight, bs.totalVotesWeight)
			dist.credit(addr, share)
			distributed.Add(distributed, share)
		}
		dust.Add(dust, new(big.Int).Sub(votersPool, distributed))
	} else {
		dust.Add(dust, votersPool)
	}

	dagPool := bpsOf(baseReward, split.DagAuthorsBps)
	if bs.totalDagBlocksCount > 0 {
		distributed := new(big.Int)
		for _, addr := range sortedAddresses(bs.validatorStats) {
			vs := bs.validatorStats[addr]
			if vs.DagBlocksCount == 0 {
				continue
			}
			share := floorProportion(dagPool, uint64(vs.DagBlocksCount), uint64(bs.totalDagBlocksCount))
			dist.credit(addr, share)
			distributed.Add(distributed, share)
		}
		dust.Add(dust, new(big.Int).Sub(dagPool, distributed))
	} else {
		dust.Add(dust, dagPool)
	}

	allocated := new(big.Int).Add(proposerShare, new(big.Int).Add(votersPool, dagPool))
	shortfall := new(big.Int).Sub(baseReward, allocated)
	dust.Add(dust, shortfall)

	dist.credit(bs.blockAuthor, dust)

	for _, addr := range sortedAddresses(bs.validatorStats) {
		fee := bs.validatorStats[addr].FeesReward
		dist.credit(addr, fee)
	}

	return dist
}

func bpsOf(amount *big.Int, bps uint64) *big.Int {
	num := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return num.Div(num, big.NewInt(bpsDenominator))
}

func floorProportion(pool *big.Int, numerator, denominator uint64) *big.Int {
	num := new(big.Int).Mul(pool, new(big.Int).SetUint64(numerator))
	return num.Div(num, new(big.Int).SetUint64(denominator))
}
