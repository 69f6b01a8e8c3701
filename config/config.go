// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the consensus-tunable parameters: PBFT timing and
// committee sizing, GHOST cap, sortition thresholds and VDF difficulty
// bounds. Structured after the teacher's config.Parameters (K/AlphaPreference/
// AlphaConfidence/Beta/MinRoundInterval/...) and config/presets.go's
// Mainnet/Testnet/Local constructors, generalized from a single-round
// sampling quorum to this spec's period/round/step PBFT machinery.
package config

import (
	"fmt"
	"time"
)

// PBFT holds the PBFT engine's round/step timing and committee parameters.
type PBFT struct {
	// Lambda is the base round timeout; step s of round r times out after
	// Lambda * 2^min(s-1, LambdaExpCap) plus jitter.
	Lambda time.Duration
	// LambdaExpCap bounds the exponential backoff of the step timeout.
	LambdaExpCap uint
	// CommitteeSize is the number of voters sampled by sortition per step.
	CommitteeSize uint32
	// MaxGhostSize is the pivot-chain length above which the GHOST cap
	// trims the chain (dagdb.Manager.PivotChain); zero disables the cap.
	MaxGhostSize uint32
	// GhostPathMoveBack is how many blocks the GHOST cap drops from the end
	// of the pivot chain when MaxGhostSize is exceeded.
	GhostPathMoveBack uint32
	// DebugCountVotes enables verbose per-vote accounting, mirroring the
	// teacher's debug_count_votes flag.
	DebugCountVotes bool
}

// Sortition holds stake-weighted committee selection thresholds, larger for
// cert-vote steps than soft-vote steps per spec.md §4.7.
type Sortition struct {
	SoftThreshold uint64
	CertThreshold uint64
	NextThreshold uint64
	// DelegationDelay is how many periods back the DPOS stake snapshot used
	// for vote validation is taken from.
	DelegationDelay uint64
}

// VDF holds proof-of-delay difficulty bounds and the staleness gate.
type VDF struct {
	DifficultyMin    uint8
	DifficultyMax    uint8
	DifficultyStale  uint8
	StaleAfterBlocks uint64
}

// TxPool holds pending-transaction-set sizing.
type TxPool struct {
	MaxSize       int
	BlockGasLimit uint64
}

// Peer holds gossip/priority-queue limits.
type Peer struct {
	MaxPacketsProcessingTime time.Duration
	PerPeerQueueDepth        int
	WorkerPoolSize           int
	BlacklistDuration        time.Duration
}

// Parameters bundles every consensus-tunable knob.
type Parameters struct {
	ChainID uint64
	PBFT    PBFT
	Sort    Sortition
	VDF     VDF
	Pool    TxPool
	Peer    Peer
}

// Valid reports whether p's invariants hold, mirroring the validation style
// of the teacher's config.Parameters.Valid.
func (p Parameters) Valid() error {
	switch {
	case p.ChainID == 0:
		return fmt.Errorf("chainID must be non-zero")
	case p.PBFT.Lambda <= 0:
		return fmt.Errorf("pbft.lambda must be positive")
	case p.PBFT.CommitteeSize == 0:
		return fmt.Errorf("pbft.committeeSize must be positive")
	case p.Sort.CertThreshold < p.Sort.SoftThreshold:
		return fmt.Errorf("sortition.certThreshold (%d) must be >= softThreshold (%d): cert voting requires a stronger committee than soft voting", p.Sort.CertThreshold, p.Sort.SoftThreshold)
	case p.VDF.DifficultyMin > p.VDF.DifficultyMax:
		return fmt.Errorf("vdf.difficultyMin (%d) must be <= difficultyMax (%d)", p.VDF.DifficultyMin, p.VDF.DifficultyMax)
	case p.Pool.MaxSize <= 0:
		return fmt.Errorf("pool.maxSize must be positive")
	case p.Pool.BlockGasLimit == 0:
		return fmt.Errorf("pool.blockGasLimit must be positive")
	case p.Peer.PerPeerQueueDepth <= 0:
		return fmt.Errorf("peer.perPeerQueueDepth must be positive")
	case p.Peer.WorkerPoolSize <= 0:
		return fmt.Errorf("peer.workerPoolSize must be positive")
	}
	return nil
}

// StepTimeout returns the nominal timeout (before jitter) for step s (1-indexed) of round r.
func (p PBFT) StepTimeout(s uint32) time.Duration {
	exp := s - 1
	if uint(exp) > p.LambdaExpCap {
		exp = uint32(p.LambdaExpCap)
	}
	return p.Lambda * time.Duration(uint64(1)<<exp)
}

// Mainnet returns production parameters.
func Mainnet() Parameters {
	return Parameters{
		ChainID: 841,
		PBFT: PBFT{
			Lambda:            2 * time.Second,
			LambdaExpCap:      8,
			CommitteeSize:     20,
			MaxGhostSize:      50,
			GhostPathMoveBack: 5,
		},
		Sort: Sortition{
			SoftThreshold:   5,
			CertThreshold:   20,
			NextThreshold:   20,
			DelegationDelay: 5,
		},
		VDF: VDF{
			DifficultyMin:    16,
			DifficultyMax:    22,
			DifficultyStale:  1,
			StaleAfterBlocks: 5,
		},
		Pool: TxPool{
			MaxSize:       65536,
			BlockGasLimit: 15_000_000,
		},
		Peer: Peer{
			MaxPacketsProcessingTime: 10 * time.Second,
			PerPeerQueueDepth:        1024,
			WorkerPoolSize:           16,
			BlacklistDuration:        30 * time.Minute,
		},
	}
}

// Testnet returns relaxed parameters suitable for a public test network.
func Testnet() Parameters {
	p := Mainnet()
	p.ChainID = 842
	p.PBFT.CommitteeSize = 11
	p.Sort.SoftThreshold = 3
	p.Sort.CertThreshold = 11
	p.Sort.NextThreshold = 11
	return p
}

// Local returns fast parameters for single-process development networks.
func Local() Parameters {
	p := Mainnet()
	p.ChainID = 843
	p.PBFT.Lambda = 200 * time.Millisecond
	p.PBFT.CommitteeSize = 5
	p.Sort.SoftThreshold = 2
	p.Sort.CertThreshold = 4
	p.Sort.NextThreshold = 4
	p.VDF.DifficultyMin = 4
	p.VDF.DifficultyMax = 6
	p.VDF.DifficultyStale = 1
	p.Pool.MaxSize = 1024
	return p
}
