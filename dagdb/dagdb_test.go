// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dagdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/types"
)

func signedBlock(t *testing.T, priv *crypto.PrivateKey, pivot types.Hash, tips []types.Hash, level uint64) *types.DAGBlock {
	t.Helper()
	b := &types.DAGBlock{Pivot: pivot, Tips: tips, Level: level, Timestamp: 1}
	hash := b.Hash()
	sig, err := crypto.Sign(priv, hash)
	require.NoError(t, err)
	b.AuthorSig = sig
	return b
}

func newTestManager() *Manager {
	return New(types.Hash{}, nil, nil, 0, 0)
}

func TestInsertRejectsMissingParent(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()
	b := signedBlock(t, priv, types.Hash{0xAA}, nil, 1)
	insertErr := m.Insert(b, priv.PublicKey())
	require.Equal(t, ErrMissingParent, insertErr)
}

func TestInsertRejectsBadLevel(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()
	b := signedBlock(t, priv, types.Hash{}, nil, 5)
	insertErr := m.Insert(b, priv.PublicKey())
	require.Equal(t, ErrBadLevel, insertErr)
}

func TestInsertRejectsBadSignature(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()
	b := signedBlock(t, priv, types.Hash{}, nil, 1)
	insertErr := m.Insert(b, other.PublicKey())
	require.Equal(t, ErrBadSignature, insertErr)
}

func TestInsertAndPivotChain(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()

	b1 := signedBlock(t, priv, types.Hash{}, nil, 1)
	require.NoError(t, m.Insert(b1, priv.PublicKey()))

	b2 := signedBlock(t, priv, b1.Hash(), nil, 2)
	require.NoError(t, m.Insert(b2, priv.PublicKey()))

	chain := m.PivotChain()
	require.Equal(t, []types.Hash{b1.Hash(), b2.Hash()}, chain)
	require.Equal(t, 2, m.Size())

	tips := m.Tips()
	require.Equal(t, []types.Hash{b2.Hash()}, tips)
}

func TestPivotChildTieBreaksByLowestHash(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()

	root := signedBlock(t, priv, types.Hash{}, nil, 1)
	require.NoError(t, m.Insert(root, priv.PublicKey()))

	childA := signedBlock(t, priv, root.Hash(), nil, 2)
	childB := signedBlock(t, priv, root.Hash(), nil, 2)
	require.NoError(t, m.Insert(childA, priv.PublicKey()))
	require.NoError(t, m.Insert(childB, priv.PublicKey()))

	pivotChild, ok := m.PivotChild(root.Hash())
	require.True(t, ok)

	var expected types.Hash
	if childA.Hash().Less(childB.Hash()) {
		expected = childA.Hash()
	} else {
		expected = childB.Hash()
	}
	require.Equal(t, expected, pivotChild)
}

func TestPeriodSetOrdersParentsBeforeChildren(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()

	b1 := signedBlock(t, priv, types.Hash{}, nil, 1)
	require.NoError(t, m.Insert(b1, priv.PublicKey()))

	b2 := signedBlock(t, priv, b1.Hash(), nil, 2)
	require.NoError(t, m.Insert(b2, priv.PublicKey()))

	b3 := signedBlock(t, priv, b2.Hash(), []types.Hash{b1.Hash()}, 3)
	require.NoError(t, m.Insert(b3, priv.PublicKey()))

	order, err := m.PeriodSet(context.Background(), b3.Hash())
	require.NoError(t, err)
	require.Equal(t, []types.Hash{b1.Hash(), b2.Hash(), b3.Hash()}, order)
}

func TestPeriodSetExcludesAlreadyAssignedBlocks(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	m := newTestManager()

	b1 := signedBlock(t, priv, types.Hash{}, nil, 1)
	require.NoError(t, m.Insert(b1, priv.PublicKey()))
	_, err = m.PeriodSet(context.Background(), b1.Hash())
	require.NoError(t, err)

	b2 := signedBlock(t, priv, b1.Hash(), nil, 2)
	require.NoError(t, m.Insert(b2, priv.PublicKey()))

	order, err := m.PeriodSet(context.Background(), b2.Hash())
	require.NoError(t, err)
	require.Equal(t, []types.Hash{b2.Hash()}, order)
}
