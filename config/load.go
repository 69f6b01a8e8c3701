// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileParameters mirrors Parameters for YAML decoding: time.Duration has no
// native YAML scalar form, so durations round-trip as Go duration strings
// ("2s", "200ms") the way the teacher's own config files express timeouts.
type fileParameters struct {
	ChainID uint64 `yaml:"chainId"`
	PBFT    struct {
		Lambda            string `yaml:"lambda"`
		LambdaExpCap      uint   `yaml:"lambdaExpCap"`
		CommitteeSize     uint32 `yaml:"committeeSize"`
		MaxGhostSize      uint32 `yaml:"maxGhostSize"`
		GhostPathMoveBack uint32 `yaml:"ghostPathMoveBack"`
		DebugCountVotes   bool   `yaml:"debugCountVotes"`
	} `yaml:"pbft"`
	Sort struct {
		SoftThreshold   uint64 `yaml:"softThreshold"`
		CertThreshold   uint64 `yaml:"certThreshold"`
		NextThreshold   uint64 `yaml:"nextThreshold"`
		DelegationDelay uint64 `yaml:"delegationDelay"`
	} `yaml:"sortition"`
	VDF struct {
		DifficultyMin    uint8  `yaml:"difficultyMin"`
		DifficultyMax    uint8  `yaml:"difficultyMax"`
		DifficultyStale  uint8  `yaml:"difficultyStale"`
		StaleAfterBlocks uint64 `yaml:"staleAfterBlocks"`
	} `yaml:"vdf"`
	Pool struct {
		MaxSize       int    `yaml:"maxSize"`
		BlockGasLimit uint64 `yaml:"blockGasLimit"`
	} `yaml:"pool"`
	Peer struct {
		MaxPacketsProcessingTime string `yaml:"maxPacketsProcessingTime"`
		PerPeerQueueDepth        int    `yaml:"perPeerQueueDepth"`
		WorkerPoolSize           int    `yaml:"workerPoolSize"`
		BlacklistDuration        string `yaml:"blacklistDuration"`
	} `yaml:"peer"`
}

// Load reads a YAML-encoded Parameters document from path. Unset fields in
// the file fall back to the Mainnet preset's values, so an operator's config
// file only needs to override what differs from mainnet defaults, matching
// the teacher's config/presets.go "preset plus override" convention.
func Load(path string) (Parameters, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	p := Mainnet()
	var f fileParameters
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Parameters{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if f.ChainID != 0 {
		p.ChainID = f.ChainID
	}
	if f.PBFT.Lambda != "" {
		d, err := time.ParseDuration(f.PBFT.Lambda)
		if err != nil {
			return Parameters{}, fmt.Errorf("config: pbft.lambda: %w", err)
		}
		p.PBFT.Lambda = d
	}
	if f.PBFT.LambdaExpCap != 0 {
		p.PBFT.LambdaExpCap = f.PBFT.LambdaExpCap
	}
	if f.PBFT.CommitteeSize != 0 {
		p.PBFT.CommitteeSize = f.PBFT.CommitteeSize
	}
	if f.PBFT.MaxGhostSize != 0 {
		p.PBFT.MaxGhostSize = f.PBFT.MaxGhostSize
	}
	if f.PBFT.GhostPathMoveBack != 0 {
		p.PBFT.GhostPathMoveBack = f.PBFT.GhostPathMoveBack
	}
	p.PBFT.DebugCountVotes = f.PBFT.DebugCountVotes

	if f.Sort.SoftThreshold != 0 {
		p.Sort.SoftThreshold = f.Sort.SoftThreshold
	}
	if f.Sort.CertThreshold != 0 {
		p.Sort.CertThreshold = f.Sort.CertThreshold
	}
	if f.Sort.NextThreshold != 0 {
		p.Sort.NextThreshold = f.Sort.NextThreshold
	}
	if f.Sort.DelegationDelay != 0 {
		p.Sort.DelegationDelay = f.Sort.DelegationDelay
	}

	if f.VDF.DifficultyMin != 0 {
		p.VDF.DifficultyMin = f.VDF.DifficultyMin
	}
	if f.VDF.DifficultyMax != 0 {
		p.VDF.DifficultyMax = f.VDF.DifficultyMax
	}
	if f.VDF.DifficultyStale != 0 {
		p.VDF.DifficultyStale = f.VDF.DifficultyStale
	}
	if f.VDF.StaleAfterBlocks != 0 {
		p.VDF.StaleAfterBlocks = f.VDF.StaleAfterBlocks
	}

	if f.Pool.MaxSize != 0 {
		p.Pool.MaxSize = f.Pool.MaxSize
	}
	if f.Pool.BlockGasLimit != 0 {
		p.Pool.BlockGasLimit = f.Pool.BlockGasLimit
	}

	if f.Peer.MaxPacketsProcessingTime != "" {
		d, err := time.ParseDuration(f.Peer.MaxPacketsProcessingTime)
		if err != nil {
			return Parameters{}, fmt.Errorf("config: peer.maxPacketsProcessingTime: %w", err)
		}
		p.Peer.MaxPacketsProcessingTime = d
	}
	if f.Peer.PerPeerQueueDepth != 0 {
		p.Peer.PerPeerQueueDepth = f.Peer.PerPeerQueueDepth
	}
	if f.Peer.WorkerPoolSize != 0 {
		p.Peer.WorkerPoolSize = f.Peer.WorkerPoolSize
	}
	if f.Peer.BlacklistDuration != "" {
		d, err := time.ParseDuration(f.Peer.BlacklistDuration)
		if err != nil {
			return Parameters{}, fmt.Errorf("config: peer.blacklistDuration: %w", err)
		}
		p.Peer.BlacklistDuration = d
	}

	return p, p.Valid()
}
