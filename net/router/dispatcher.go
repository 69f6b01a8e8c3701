// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/config"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/internal/consensusmetrics"
	"github.com/taraxa-go/taraxa-core/internal/logging"
	"github.com/taraxa-go/taraxa-core/net/packet"
)

// job is one queued inbound packet awaiting dispatch.
type job struct {
	from ids.NodeID
	pkt  packet.Packet
}

// Dispatcher is the bounded priority-queue packet dispatcher of spec.md
// §4.10/§5: three priority-banded channels feed a fixed worker pool sized
// from config.Peer.WorkerPoolSize, cross-peer work runs in parallel, and
// per-peer work is serialized via peerTable's maxInFlight=1 admission gate
// so a single misbehaving peer cannot starve the others' ordering
// guarantees. Peers that exceed MaxPacketsProcessingTime within the
// sliding window peerTable.release tracks, or that send
// malicious-peer-tagged packets, are blacklisted and disconnected.
type Dispatcher struct {
	cfg config.Peer
	log logging.Logger
	m   *consensusmetrics.Metrics

	peers     *peerTable
	blacklist *Blacklist
	node      packet.Node

	high, mid, low chan job

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher wired against node, the narrow
// packet.Node seam the orchestrator supplies at wiring time per spec.md
// §9's design note on breaking network->consensus back-references.
func NewDispatcher(cfg config.Peer, node packet.Node, m *consensusmetrics.Metrics, log logging.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		log:       log,
		m:         m,
		peers:     newPeerTable(),
		blacklist: NewBlacklist(),
		node:      node,
		high:      make(chan job, cfg.PerPeerQueueDepth),
		mid:       make(chan job, cfg.PerPeerQueueDepth),
		low:       make(chan job, cfg.PerPeerQueueDepth),
		quit:      make(chan struct{}),
	}
}

// Connected registers a newly connected peer.
func (d *Dispatcher) Connected(id ids.NodeID) { d.peers.connect(id) }

// Disconnected removes a peer's liveness and throttle state.
func (d *Dispatcher) Disconnected(id ids.NodeID) { d.peers.disconnect(id) }

// IsBanned reports whether id is currently blacklisted.
func (d *Dispatcher) IsBanned(id ids.NodeID) bool { return d.blacklist.IsBenched(id) }

// Start launches cfg.WorkerPoolSize worker goroutines on a fresh quit
// channel, so a stopped Dispatcher can be started again. Call Stop before
// calling Start a second time.
func (d *Dispatcher) Start() {
	d.quit = make(chan struct{})
	for i := 0; i < d.cfg.WorkerPoolSize; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop signals workers to exit once their current packet finishes and
// waits for them to join. Packets still queued in the bands are not
// drained, and Enqueue keeps admitting packets after Stop; they stay
// queued until the next Start.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.wg.Wait()
}

// Enqueue admits an inbound packet from peer into its priority band.
// Benched peers and full queues are rejected with a transient error; the
// caller (the transport layer) decides whether to retry or drop.
func (d *Dispatcher) Enqueue(from ids.NodeID, pkt packet.Packet) error {
	if d.blacklist.IsBenched(from) {
		return cerr.New(cerr.KindTransientPeer, "router: peer %s is blacklisted", from)
	}
	band := pkt.Type().Priority()
	ch := d.channelFor(band)
	select {
	case ch <- job{from: from, pkt: pkt}:
		if d.m != nil {
			d.m.PeerPacketQueue.WithLabelValues(band.String()).Set(float64(len(ch)))
		}
		return nil
	default:
		return cerr.New(cerr.KindTransientPeer, "router: %s queue full for peer %s", band, from)
	}
}

func (d *Dispatcher) channelFor(p packet.Priority) chan job {
	switch p {
	case packet.PriorityHigh:
		return d.high
	case packet.PriorityMid:
		return d.mid
	default:
		return d.low
	}
}

// worker takes a waiting high-band packet first; only when the high band
// is empty does it block on a select over all three bands, which picks at
// random among the bands that are ready, so mid is not preferred over low
// and low-priority traffic never starves. A packet whose sender
// already has a packet in flight elsewhere is requeued onto the back of
// its own band rather than processed concurrently, giving effect to
// spec.md §5's "per-peer packet processing is serial; cross-peer is
// parallel" via peerTable's existing maxInFlight=1 admission gate instead
// of a second per-peer lock.
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.quit:
			return
		case j := <-d.high:
			d.dispatch(j)
			continue
		default:
		}
		select {
		case <-d.quit:
			return
		case j := <-d.high:
			d.dispatch(j)
		case j := <-d.mid:
			d.dispatch(j)
		case j := <-d.low:
			d.dispatch(j)
		}
	}
}

// dispatch admits j against its sender's single in-flight slot, requeuing
// (non-blocking; a peer that floods faster than it drains simply backs off
// via an eventually-full queue, per Enqueue's own reject-on-full policy)
// when another worker already holds that slot.
func (d *Dispatcher) dispatch(j job) {
	if !d.peers.tryAcquire(j.from, 1) {
		select {
		case d.channelFor(j.pkt.Type().Priority()) <- j:
		default:
		}
		return
	}
	d.process(j)
}

// process validates and applies one admitted packet and enforces the
// sliding-window processing-time throttle and malicious-peer blacklist of
// spec.md §4.10.
func (d *Dispatcher) process(j job) {
	start := time.Now()
	err := j.pkt.Validate(d.node)
	if err == nil {
		err = j.pkt.Process(context.Background(), d.node, j.from)
	}
	elapsed := time.Since(start)

	spent := d.peers.release(j.from, elapsed, d.cfg.MaxPacketsProcessingTime*10)

	switch {
	case cerr.Is(err, cerr.KindMaliciousPeer):
		logging.Malicious(d.log, "gossip", err, "peer", j.from, "packet", j.pkt.Type())
		d.ban(j.from)
		return
	case spent > d.cfg.MaxPacketsProcessingTime:
		logging.Malicious(d.log, "gossip", cerr.New(cerr.KindMaliciousPeer, "peer %s exceeded processing-time budget", j.from), "peer", j.from)
		d.ban(j.from)
		return
	case err != nil:
		logging.Transient(d.log, "gossip", err, "peer", j.from, "packet", j.pkt.Type())
	}
}

func (d *Dispatcher) ban(id ids.NodeID) {
	d.blacklist.Bench(id, d.cfg.BlacklistDuration)
	d.peers.disconnect(id)
}
