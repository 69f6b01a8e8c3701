// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sortition implements stake-weighted VRF committee selection and
// the VDF difficulty gate that paces DAG block production, per spec.md
// §4.7. Generalized from the teacher's quorum/threshold family
// (quorum/static.go, threshold/threshold.go) — those packages count
// yes/no responses against a fixed threshold; this package instead
// computes a per-voter binomial-tail committee weight from a VRF output,
// the shape sampling/parameters.go's tunable-threshold struct anticipates
// but does not itself implement.
package sortition

import (
	"encoding/binary"
	"math"

	"github.com/taraxa-go/taraxa-core/config"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/types"
)

// Ticket is a VRF sortition proof plus the weight it was awarded once
// checked against a stake snapshot.
type Ticket struct {
	Output types.VRFOutput
	Proof  types.VRFProof
	Weight uint64
}

// Prove computes a VRF proof over the sortition message for (period, round,
// step) and derives the raw output, without yet weighing it against stake
// (callers call Weigh once they have the stake snapshot).
func Prove(key *vrf.PrivateKey, sortition types.VRFSortition, blockHash types.Hash) (types.VRFProof, types.VRFOutput) {
	msg := sortition.Message(blockHash)
	proof := key.Prove(msg[:])
	output, err := vrf.Output(proof)
	if err != nil {
		// Prove always yields a verifiable proof for the key that produced
		// it; a failure here indicates a corrupted key, not bad input.
		panic("sortition: freshly produced VRF proof failed to decode: " + err.Error())
	}
	return proof, output
}

// VerifyAndWeigh checks proof against pub/msg and, if valid, computes the
// voter's committee weight for the given stake snapshot and step threshold.
func VerifyAndWeigh(pub *vrf.PublicKey, proof types.VRFProof, sortition types.VRFSortition, blockHash types.Hash, stake, totalStake, threshold uint64) (uint64, error) {
	msg := sortition.Message(blockHash)
	output, err := vrf.Verify(pub, proof, msg[:])
	if err != nil {
		return 0, err
	}
	return Weigh(output, stake, totalStake, threshold), nil
}

// outputToUnitInterval interprets a VRF output's leading 8 bytes as a
// uniform sample h in [0,1).
func outputToUnitInterval(output types.VRFOutput) float64 {
	n := binary.BigEndian.Uint64(output[:8])
	return float64(n) / (float64(1) << 64)
}

// Weigh computes the largest k such that the binomial tail
// P(X <= k | X ~ Binomial(stake, threshold/totalStake)) <= h, where h is
// derived from the VRF output. Returns 0 when the voter is not elected.
func Weigh(output types.VRFOutput, stake, totalStake, threshold uint64) uint64 {
	if stake == 0 || totalStake == 0 {
		return 0
	}
	h := outputToUnitInterval(output)
	p := float64(threshold) / float64(totalStake)
	if p <= 0 {
		return 0
	}
	if p > 1 {
		p = 1
	}

	cdf := 0.0
	var k uint64
	for k = 0; k <= stake; k++ {
		cdf += binomialPMF(k, stake, p)
		if cdf > h {
			break
		}
	}
	if k == 0 {
		return 0
	}
	return k - 1
}

// binomialPMF computes P(X = k | X ~ Binomial(n, p)) via log-space
// evaluation (using math.Lgamma for the binomial coefficient) so that
// large committee sizes never overflow an intermediate factorial.
func binomialPMF(k, n uint64, p float64) float64 {
	if k > n {
		return 0
	}
	logCoeff, _ := math.Lgamma(float64(n) + 1)
	lk, _ := math.Lgamma(float64(k) + 1)
	lnk, _ := math.Lgamma(float64(n-k) + 1)
	logCoeff -= lk + lnk

	var logP, logQ float64
	if k > 0 {
		logP = float64(k) * math.Log(p)
	}
	if n-k > 0 {
		logQ = float64(n-k) * math.Log(1-p)
	}
	return math.Exp(logCoeff + logP + logQ)
}

// DifficultyGate tracks DAG tip growth to decide the VDF difficulty a new
// proposer must solve at, per spec.md §4.7's staleness/threshold-region
// rule.
type DifficultyGate struct {
	params config.VDF
}

// NewDifficultyGate constructs a gate from VDF config parameters.
func NewDifficultyGate(params config.VDF) *DifficultyGate {
	return &DifficultyGate{params: params}
}

// Difficulty selects the VDF difficulty a proposer extending tipLevel must
// solve at. blocksSinceGrowth counts PBFT periods since the DAG's highest
// level last advanced; vdfOutput is the proposer's own VRF output for this
// proposal, whose bytes 8..15 (big-endian, modulo the span) select a difficulty within
// [difficulty_min, difficulty_max] when the tip is not stale.
func (g *DifficultyGate) Difficulty(blocksSinceGrowth uint64, vdfOutput types.VRFOutput) uint8 {
	if blocksSinceGrowth >= g.params.StaleAfterBlocks {
		return g.params.DifficultyStale
	}
	span := uint64(g.params.DifficultyMax-g.params.DifficultyMin) + 1
	region := binary.BigEndian.Uint64(vdfOutput[8:16]) % span
	return g.params.DifficultyMin + uint8(region)
}

// TwoFPlusOne returns the 2f+1 quorum weight for a committee of the given
// (stake-weighted) size, i.e. the smallest weight exceeding two-thirds of
// the committee — the threshold the vote manager and PBFT engine gate on
// for soft/cert/next-vote convergence.
func TwoFPlusOne(committeeWeight uint64) uint64 {
	return (2*committeeWeight)/3 + 1
}
