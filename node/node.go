// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node is the orchestrator of spec.md §2/§5/§9: it wires the
// otherwise independent txpool/dagdb/votes/pbft/finalizer/rewards/storage
// components into one running process, owns the long-lived workers (the
// DAG proposer, the PBFT step loop, the gossip dispatcher), and exposes the narrow packet.Node seam the network
// layer drives instead of holding a back-reference into consensus, per
// spec.md §9's design note. Grounded on the teacher's runtimes/quasar and
// runtimes/galaxy Runtime types (New(...) wiring, Start(ctx)/Stop(ctx)
// lifecycle, a thin wrapper around the engine it owns rather than an
// engine that owns its own goroutines).
package node

import (
	"context"
	"math/big"
	"sync"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/config"
	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/dagdb"
	"github.com/taraxa-go/taraxa-core/finalizer"
	"github.com/taraxa-go/taraxa-core/internal/consensusmetrics"
	"github.com/taraxa-go/taraxa-core/internal/logging"
	"github.com/taraxa-go/taraxa-core/net/packet"
	"github.com/taraxa-go/taraxa-core/net/router"
	"github.com/taraxa-go/taraxa-core/pbft"
	"github.com/taraxa-go/taraxa-core/rewards"
	"github.com/taraxa-go/taraxa-core/sortition"
	"github.com/taraxa-go/taraxa-core/state"
	"github.com/taraxa-go/taraxa-core/storage"
	"github.com/taraxa-go/taraxa-core/txpool"
	"github.com/taraxa-go/taraxa-core/types"
	"github.com/taraxa-go/taraxa-core/validators"
	"github.com/taraxa-go/taraxa-core/votes"
)

const nodeVersion = "taraxa-go/1.0.0"
const protocolVersion = 1

// Identity bundles the keys and network addressing a Node is constructed
// with.
type Identity struct {
	NodeID ids.NodeID
	Sign   *crypto.PrivateKey
	VRF    *vrf.PrivateKey
}

// Genesis holds the values every honest node must agree on before
// consensus starts: the genesis DAG/PBFT hash and initial account
// balances.
type Genesis struct {
	Hash            types.Hash
	InitialBalances map[types.Address]*big.Int
}

// Node is the per-process orchestrator described above. All exported
// methods are safe for concurrent use.
type Node struct {
	cfg       config.Parameters
	networkID uint64
	identity  Identity
	genesis   Genesis

	log logging.Logger
	m   *consensusmetrics.Metrics

	pool       *txpool.Pool
	ledger     *state.Ledger
	evm        finalizer.EVM
	registry   *validators.Registry
	stakeView  *validators.StakeView
	dag        *dagdb.Manager
	voteMgr    *votes.Manager
	pbftEngine *pbft.Engine
	final      *finalizer.Finalizer
	dispatcher *router.Dispatcher
	store      storage.KV

	growth growthTracker

	runMu     sync.Mutex
	runCancel context.CancelFunc
	runWG     sync.WaitGroup

	mu                sync.RWMutex
	syncing           bool
	periodAnchor      map[uint64]types.Hash // finalized period -> its PBFT block hash
	headers           map[uint64]*types.BlockHeader
	certVotesByPeriod map[uint64][]*types.Vote
	stateRoot         types.Hash
	dagLevel          uint64
	nextPeriod        uint64
}

// growthTracker maintains the "stale DAG tip" gate of spec.md §4.7: the
// VDF difficulty relaxes when the pivot chain has not grown recently.
type growthTracker struct {
	mu         sync.Mutex
	maxLevel   uint64
	sinceGrown uint64
}

func (g *growthTracker) observe(level uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if level > g.maxLevel {
		g.maxLevel = level
		g.sinceGrown = 0
		return
	}
	g.sinceGrown++
}

func (g *growthTracker) staleness() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sinceGrown
}

// New wires one Node instance. store may be nil, in which case an
// in-memory storage.MemStore is used; the EVM is always a state.SimpleEVM
// over the node's own fresh state.Ledger.
func New(cfg config.Parameters, networkID uint64, id Identity, gen Genesis, store storage.KV, log logging.Logger, m *consensusmetrics.Metrics) (*Node, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	if store == nil {
		store = storage.NewMemStore()
	}
	if log == nil {
		log = logging.NoOp()
	}

	ledger := state.NewLedger()
	for addr, bal := range gen.InitialBalances {
		ledger.SetBalance(addr, bal)
	}

	registry := validators.NewRegistry()
	stakeView := &validators.StakeView{Registry: registry, DelegationDelay: cfg.Sort.DelegationDelay}

	n := &Node{
		cfg:          cfg,
		networkID:    networkID,
		identity:     id,
		genesis:      gen,
		log:          log,
		m:            m,
		pool:         txpool.New(cfg.Pool.MaxSize, cfg.ChainID),
		ledger:       ledger,
		evm:          &state.SimpleEVM{Ledger: ledger},
		registry:     registry,
		stakeView:    stakeView,
		store:        store,
		periodAnchor:      map[uint64]types.Hash{1: gen.Hash},
		headers:           make(map[uint64]*types.BlockHeader),
		certVotesByPeriod: make(map[uint64][]*types.Vote),
		stateRoot:         gen.Hash,
		nextPeriod:        1,
	}

	gate := sortition.NewDifficultyGate(cfg.VDF)
	n.dag = dagdb.New(gen.Hash, n.vdfDifficultyOf(gate), n.periodHashOf, cfg.PBFT.MaxGhostSize, cfg.PBFT.GhostPathMoveBack)

	threshold := func(step types.PBFTStep) uint64 {
		switch step {
		case types.StepSoftVote:
			return cfg.Sort.SoftThreshold
		case types.StepCertVote:
			return cfg.Sort.CertThreshold
		default:
			return cfg.Sort.NextThreshold
		}
	}
	n.voteMgr = votes.New(stakeView, threshold)
	n.pbftEngine = pbft.New(cfg.PBFT, id.Sign, id.VRF, n.voteMgr, 1)
	n.final = finalizer.New(n.evm, finalizer.NewNodeCache(4096), persistAdapter{store}, big.NewInt(2e18), rewards.DefaultSplit)
	n.dispatcher = router.NewDispatcher(cfg.Peer, n, m, log)

	return n, nil
}

// vdfDifficultyOf adapts sortition.DifficultyGate to dagdb.VDFDifficulty:
// the difficulty a given block's VDF proof must satisfy is a function of
// how stale the pivot chain was and the VRF output the proposer drew,
// exactly as spec.md §4.7 describes.
func (n *Node) vdfDifficultyOf(gate *sortition.DifficultyGate) dagdb.VDFDifficulty {
	return func(block *types.DAGBlock) uint8 {
		output, err := vrf.Output(block.VRFProof)
		if err != nil {
			return n.cfg.VDF.DifficultyMax
		}
		return gate.Difficulty(n.growth.staleness(), output)
	}
}

// periodHashOf resolves the "pivot_period_hash" a DAG block's VDF
// challenge is anchored to. Per spec.md §4.4 this identifies the current
// finalization period boundary; since every block proposed right now
// shares the same boundary regardless of which pivot it extends, this
// ignores its argument and returns the latest finalized PBFT block hash
// (or the genesis hash before any period has finalized).
func (n *Node) periodHashOf(types.Hash) types.Hash {
	n.mu.RLock()
	defer n.mu.RUnlock()
	period := n.pbftEngine.CurrentState().Period
	if period == 0 {
		return n.genesis.Hash
	}
	if h, ok := n.periodAnchor[period]; ok {
		return h
	}
	return n.genesis.Hash
}

// persistAdapter satisfies finalizer.Store against a storage.KV, writing
// the header (keyed by period), the transactions (keyed by period and
// index) and a Keccak digest of the state root and header hash in a single
// atomic batch. Receipts are not written.
type persistAdapter struct{ kv storage.KV }

func (p persistAdapter) PersistPeriod(header *types.BlockHeader, receipts []*types.Receipt, txs []*types.Transaction, stateRoot types.Hash, period uint64) error {
	b := p.kv.NewBatch()
	headerBytes := header.EncodeRLP()
	b.Put(storage.CFPBFTBlocksByPeriod, periodKey(period), headerBytes)
	for i, tx := range txs {
		b.Put(storage.CFTransactions, txKey(period, i), tx.EncodeRLP())
	}
	snap := types.Keccak256(stateRoot[:], header.Hash()[:])
	b.Put(storage.CFFinalChainStateSnaps, periodKey(period), snap[:])
	return b.Commit()
}

func periodKey(period uint64) []byte {
	return []byte{byte(period >> 56), byte(period >> 48), byte(period >> 40), byte(period >> 32), byte(period >> 24), byte(period >> 16), byte(period >> 8), byte(period)}
}

func txKey(period uint64, idx int) []byte {
	k := periodKey(period)
	return append(k, periodKey(uint64(idx))...)
}

// ChainID implements packet.Node.
func (n *Node) ChainID() uint64 { return n.cfg.ChainID }

// GenesisHash implements packet.Node.
func (n *Node) GenesisHash() types.Hash { return n.genesis.Hash }

// Status reports the gossiped liveness snapshot of spec.md §4.10.
func (n *Node) Status() packet.Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	st := n.pbftEngine.CurrentState()
	return packet.Status{
		ChainID:         n.cfg.ChainID,
		NetworkID:       n.networkID,
		GenesisHash:     n.genesis.Hash,
		ProtocolVersion: protocolVersion,
		NodeVersion:     nodeVersion,
		PBFTChainSize:   st.Period,
		PBFTRound:       st.Round,
		DAGLevel:        n.dagLevel,
		Syncing:         n.syncing,
		IsLightNode:     false,
		History:         0,
	}
}

// Votes implements packet.Node.
func (n *Node) Votes() packet.VoteAdder { return voteSeam{n.voteMgr} }

// DAG implements packet.Node.
func (n *Node) DAG() packet.DAGInserter { return dagSeam{n} }

// Pool implements packet.Node.
func (n *Node) Pool() packet.PoolInserter { return poolSeam{n} }

// Periods implements packet.Node.
func (n *Node) Periods() packet.PeriodApplier { return n }

// Send implements packet.Node. Wire transport is an external collaborator
// per spec.md §1's Non-goals; this sends nothing and returns nil, so a
// standalone node has a legal (if inert) implementation to satisfy the
// interface.
func (n *Node) Send(ids.NodeID, packet.Packet) error { return nil }

// Dispatcher exposes the gossip packet dispatcher for the transport layer
// to feed (an external collaborator per spec.md §1) and to Start/Stop
// alongside the rest of the node.
func (n *Node) Dispatcher() *router.Dispatcher { return n.dispatcher }

// TxPool exposes the transaction pool for local client submission (the
// JSON-RPC façade is out of scope; this is the seam it would call).
func (n *Node) TxPool() *txpool.Pool { return n.pool }

// Ledger exposes the reference account ledger for read-only queries.
func (n *Node) Ledger() *state.Ledger { return n.ledger }

// Validators exposes the DPOS stake/VRF-key snapshot registry so an
// external collaborator (e.g. a genesis loader or an epoch-change driver)
// can install new snapshots as they are computed.
func (n *Node) Validators() *validators.Registry { return n.registry }

// CurrentState returns the PBFT engine's current round/step position.
func (n *Node) CurrentState() pbft.State { return n.pbftEngine.CurrentState() }

// SetSyncing flags whether the node considers itself behind the network,
// surfaced in its gossiped Status.
func (n *Node) SetSyncing(syncing bool) {
	n.mu.Lock()
	n.syncing = syncing
	n.mu.Unlock()
}

var _ packet.Node = (*Node)(nil)
