// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensusmetrics wraps prometheus.Registerer the way the
// teacher's metrics package does, with the concrete counters/gauges this
// module's components actually emit.
package consensusmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the prometheus collectors shared across components.
type Metrics struct {
	Registry prometheus.Registerer

	DAGBlocksInserted  prometheus.Counter
	DAGBlocksRejected  *prometheus.CounterVec
	VotesProcessed     *prometheus.CounterVec
	VotesEquivocations prometheus.Counter
	PeriodsFinalized   prometheus.Counter
	PBFTRound          prometheus.Gauge
	TxPoolSize         prometheus.Gauge
	PeerPacketQueue    *prometheus.GaugeVec
}

// New constructs and registers the collector set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registry: reg,
		DAGBlocksInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taraxa_dag_blocks_inserted_total",
			Help: "Number of DAG blocks successfully inserted.",
		}),
		DAGBlocksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taraxa_dag_blocks_rejected_total",
			Help: "Number of DAG blocks rejected, by reason.",
		}, []string{"reason"}),
		VotesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taraxa_votes_processed_total",
			Help: "Number of votes processed, by outcome.",
		}, []string{"outcome"}),
		VotesEquivocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taraxa_vote_equivocations_total",
			Help: "Number of detected voter equivocations.",
		}),
		PeriodsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taraxa_periods_finalized_total",
			Help: "Number of periods finalized.",
		}),
		PBFTRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taraxa_pbft_round",
			Help: "Current PBFT round of the in-progress period.",
		}),
		TxPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taraxa_txpool_size",
			Help: "Number of pending transactions in the pool.",
		}),
		PeerPacketQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taraxa_peer_packet_queue_depth",
			Help: "Depth of the per-peer inbound packet queue, by priority band.",
		}, []string{"band"}),
	}
	for _, c := range []prometheus.Collector{
		m.DAGBlocksInserted, m.DAGBlocksRejected, m.VotesProcessed,
		m.VotesEquivocations, m.PeriodsFinalized, m.PBFTRound,
		m.TxPoolSize, m.PeerPacketQueue,
	} {
		_ = reg.Register(c) // duplicate registration is not fatal in tests that reuse a registry
	}
	return m
}
