// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kvImplementations(t *testing.T) map[string]KV {
	t.Helper()
	pebbleStore, err := OpenPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { pebbleStore.Close() })
	return map[string]KV{
		"mem":    NewMemStore(),
		"pebble": pebbleStore,
	}
}

func TestPutGetDelete(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Put(CFTransactions, []byte("a"), []byte("1")))
			v, err := kv.Get(CFTransactions, []byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), v)

			require.NoError(t, kv.Delete(CFTransactions, []byte("a")))
			_, err = kv.Get(CFTransactions, []byte("a"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestColumnFamiliesAreIsolated(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Put(CFTransactions, []byte("k"), []byte("tx")))
			require.NoError(t, kv.Put(CFDagBlocksByHash, []byte("k"), []byte("dag")))

			v1, err := kv.Get(CFTransactions, []byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("tx"), v1)

			v2, err := kv.Get(CFDagBlocksByHash, []byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("dag"), v2)
		})
	}
}

func TestBatchCommitsAtomically(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			batch := kv.NewBatch()
			batch.Put(CFTransactions, []byte("a"), []byte("1"))
			batch.Put(CFDagBlocksByHash, []byte("b"), []byte("2"))
			require.NoError(t, batch.Commit())

			v1, err := kv.Get(CFTransactions, []byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), v1)
			v2, err := kv.Get(CFDagBlocksByHash, []byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), v2)
		})
	}
}

func TestIteratorWalksSortedKeys(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Put(CFTransactions, []byte("c"), []byte("3")))
			require.NoError(t, kv.Put(CFTransactions, []byte("a"), []byte("1")))
			require.NoError(t, kv.Put(CFTransactions, []byte("b"), []byte("2")))

			it := kv.NewIterator(CFTransactions, nil, nil)
			defer it.Close()

			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Error())
			require.Equal(t, []string{"a", "b", "c"}, keys)
		})
	}
}
