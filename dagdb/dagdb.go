// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dagdb stores the block-DAG and derives the pivot chain and
// period sets it feeds to the PBFT engine, per spec.md §4.4. Structurally
// grounded on the teacher's dag/dag.go (a mutex-guarded block map plus a
// tip set pruned on parent insertion), generalized from single-parent
// height tracking to multi-parent (pivot+tips) weighted pivot selection,
// and on engine/dag/consensus_real.go / engine/dag/vertex.go for the
// mutex-guarded adjacency map and context-cancellable traversal idiom.
package dagdb

import (
	"context"
	"sort"
	"sync"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vdf"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/types"
)

// InsertError enumerates spec.md §4.4's non-fatal rejection reasons.
type InsertError struct {
	Reason string
}

func (e *InsertError) Error() string { return "dagdb: " + e.Reason }

var (
	// ErrMissingParent is returned when a referenced pivot/tip is unknown.
	ErrMissingParent = &InsertError{Reason: "missing parent"}
	// ErrBadVDF is returned when the VDF proof fails to verify.
	ErrBadVDF = &InsertError{Reason: "vdf verification failed"}
	// ErrBadSignature is returned when the author signature is invalid.
	ErrBadSignature = &InsertError{Reason: "invalid author signature"}
	// ErrBadLevel is returned when level != 1 + max(level(parents)).
	ErrBadLevel = &InsertError{Reason: "level mismatch"}
)

// node is the in-memory adjacency-index entry for one stored DAG block.
type node struct {
	block    *types.DAGBlock
	children []types.Hash
	inPeriod bool // true once included in a finalized period set
}

// VDFDifficulty resolves the VDF difficulty a given block must satisfy,
// sourced from the sortition package's staleness gate.
type VDFDifficulty func(block *types.DAGBlock) uint8

// PeriodHash resolves the pivot-chain period boundary hash a block's VDF
// challenge is anchored to (the "pivot_period_hash" in spec.md §4.4).
type PeriodHash func(pivot types.Hash) types.Hash

// Manager stores all known DAG blocks plus an in-memory adjacency index.
type Manager struct {
	mu sync.RWMutex

	nodes   map[types.Hash]*node
	tips    map[types.Hash]struct{}
	genesis types.Hash

	difficultyOf VDFDifficulty
	periodHashOf PeriodHash

	maxGhostSize      uint32
	ghostPathMoveBack uint32
}

// New constructs a Manager rooted at genesis.
func New(genesis types.Hash, difficultyOf VDFDifficulty, periodHashOf PeriodHash, maxGhostSize, ghostPathMoveBack uint32) *Manager {
	return &Manager{
		nodes:             make(map[types.Hash]*node),
		tips:              map[types.Hash]struct{}{genesis: {}},
		genesis:           genesis,
		difficultyOf:      difficultyOf,
		periodHashOf:      periodHashOf,
		maxGhostSize:      maxGhostSize,
		ghostPathMoveBack: ghostPathMoveBack,
	}
}

// Insert validates and admits block, wiring it into the adjacency index.
func (m *Manager) Insert(block *types.DAGBlock, authorPub []byte) error {
	parents := block.Parents()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, parent := range parents {
		if parent != m.genesis {
			if _, ok := m.nodes[parent]; !ok {
				return ErrMissingParent
			}
		}
	}

	maxParentLevel := uint64(0)
	for _, parent := range parents {
		if parent == m.genesis {
			continue
		}
		if lvl := m.nodes[parent].block.Level; lvl > maxParentLevel {
			maxParentLevel = lvl
		}
	}
	if block.Level != maxParentLevel+1 {
		return ErrBadLevel
	}

	if m.difficultyOf != nil {
		difficulty := m.difficultyOf(block)
		periodHash := types.EmptyHash
		if m.periodHashOf != nil {
			periodHash = m.periodHashOf(block.Pivot)
		}
		challenge := VDFChallenge(block.Level, periodHash)
		proof := &vdf.Proof{Y: block.VDFProof[:len(block.VDFProof)/2], Pi: block.VDFProof[len(block.VDFProof)/2:]}
		if err := vdf.Verify(challenge, proof, difficulty); err != nil {
			return ErrBadVDF
		}
	}

	hash := block.Hash()
	if err := crypto.Verify(authorPub, hash, block.AuthorSig); err != nil {
		return ErrBadSignature
	}

	n := &node{block: block}
	m.nodes[hash] = n
	delete(m.tips, hash)
	m.tips[hash] = struct{}{}
	for _, parent := range parents {
		if parent == m.genesis {
			continue
		}
		delete(m.tips, parent)
		pn := m.nodes[parent]
		pn.children = append(pn.children, hash)
	}
	return nil
}

// VDFChallenge derives the VDF challenge bytes from a block's level and
// pivot-chain period anchor, per spec.md §4.4's "(level, pivot_period_hash)".
// Exported so a proposer (node/'s DAG-block builder) solves against
// exactly the same bytes Insert verifies against.
func VDFChallenge(level uint64, periodHash types.Hash) []byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(level >> (56 - 8*i))
	}
	return append(buf[:], periodHash[:]...)
}

// Block returns the stored block for hash, if known.
func (m *Manager) Block(hash types.Hash) (*types.DAGBlock, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[hash]
	if !ok {
		return nil, false
	}
	return n.block, true
}

// Tips returns the current DAG tips (leaf blocks with no children).
func (m *Manager) Tips() []types.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Hash, 0, len(m.tips))
	for tip := range m.tips {
		out = append(out, tip)
	}
	return out
}

// PivotChild returns b's pivot child: the child with the highest cumulative
// subtree work, ties broken by lowest hash. Returns false if b has no
// children.
func (m *Manager) PivotChild(b types.Hash) (types.Hash, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pivotChildLocked(b)
}

func (m *Manager) pivotChildLocked(b types.Hash) (types.Hash, bool) {
	n, ok := m.nodes[b]
	if !ok || len(n.children) == 0 {
		return types.Hash{}, false
	}
	best := n.children[0]
	bestWork := m.cumulativeWorkLocked(best)
	for _, c := range n.children[1:] {
		w := m.cumulativeWorkLocked(c)
		if w > bestWork || (w == bestWork && c.Less(best)) {
			best = c
			bestWork = w
		}
	}
	return best, true
}

// cumulativeWorkLocked counts b plus every block reachable from it through
// child links (a block reached along several paths is counted once per
// path), used as the pivot-child weight; ties are broken by hash.
func (m *Manager) cumulativeWorkLocked(b types.Hash) uint64 {
	n, ok := m.nodes[b]
	if !ok {
		return 0
	}
	work := uint64(1)
	for _, c := range n.children {
		work += m.cumulativeWorkLocked(c)
	}
	return work
}

// PivotChain walks the recursive pivot-child path from genesis to the
// current deepest pivot tip, subject to the GHOST cap: if the chain holds
// more than maxGhostSize blocks, its last ghostPathMoveBack blocks are
// dropped (at least one block is kept). The cap looks at the chain's length
// only; how far any other tip diverges from the pivot chain is not measured.
func (m *Manager) PivotChain() []types.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chain := []types.Hash{}
	cur := m.genesis
	for {
		next, ok := m.pivotChildLocked(cur)
		if !ok {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return m.applyGhostCapLocked(chain)
}

func (m *Manager) applyGhostCapLocked(chain []types.Hash) []types.Hash {
	if m.maxGhostSize == 0 || uint32(len(chain)) <= m.maxGhostSize {
		return chain
	}
	moveBack := m.ghostPathMoveBack
	if moveBack >= uint32(len(chain)) {
		moveBack = uint32(len(chain)) - 1
	}
	return chain[:uint32(len(chain))-moveBack]
}

// PeriodSet computes the deterministic topological order of all DAG blocks
// reachable from anchor that have not yet been assigned to a prior period,
// and commits that assignment: every visited block is marked inPeriod so a
// later anchor's traversal skips it. Call this only once an anchor is
// actually being finalized (node/'s Apply), never speculatively.
func (m *Manager) PeriodSet(ctx context.Context, anchor types.Hash) ([]types.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periodSetLocked(ctx, anchor, true)
}

// PreviewPeriodSet computes the same ordering as PeriodSet without marking
// any block inPeriod, for a proposer that needs a period's order hash
// before knowing whether its proposal will actually be the one finalized.
func (m *Manager) PreviewPeriodSet(ctx context.Context, anchor types.Hash) ([]types.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periodSetLocked(ctx, anchor, false)
}

func (m *Manager) periodSetLocked(ctx context.Context, anchor types.Hash, commit bool) ([]types.Hash, error) {
	visited := make(map[types.Hash]struct{})
	var order []types.Hash

	var visit func(h types.Hash) error
	visit = func(h types.Hash) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if h == m.genesis {
			return nil
		}
		if _, seen := visited[h]; seen {
			return nil
		}
		visited[h] = struct{}{}
		n, ok := m.nodes[h]
		if !ok {
			return cerr.New(cerr.KindConsistency, "dagdb: period set traversal hit unknown block %s", h)
		}
		if n.inPeriod {
			return nil
		}

		// Visit pivot before tips, tips in ascending hash order: the DFS
		// walks pivot-then-tips, and since this is a post-order
		// traversal (a parent is appended only once every ancestor
		// reachable through it has been appended), the resulting order
		// already has every parent precede its children — no final
		// reversal needed.
		tips := append([]types.Hash(nil), n.block.Tips...)
		sort.Slice(tips, func(i, j int) bool { return tips[i].Less(tips[j]) })
		if err := visit(n.block.Pivot); err != nil {
			return err
		}
		for _, p := range tips {
			if err := visit(p); err != nil {
				return err
			}
		}
		order = append(order, h)
		return nil
	}
	if err := visit(anchor); err != nil {
		return nil, err
	}

	if commit {
		for _, h := range order {
			m.nodes[h].inPeriod = true
		}
	}
	return order, nil
}

// Size returns the number of stored DAG blocks (excluding genesis).
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
