// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is a KV reference adapter over a single pebble.DB. Pebble has
// no native column-family concept (unlike RocksDB, which the teacher's
// indirect dependency on pebble otherwise tracks); column families are
// namespaced by prefixing every key with `cf || 0x00`, matching
// equa-blockchain-core's direct use of the same store for its own
// single-keyspace state DB.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (creating if absent) a pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func namespacedKey(cf ColumnFamily, key []byte) []byte {
	out := make([]byte, 0, len(cf)+1+len(key))
	out = append(out, cf...)
	out = append(out, 0x00)
	return append(out, key...)
}

// Get implements KV.
func (s *PebbleStore) Get(cf ColumnFamily, key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(namespacedKey(cf, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

// Put implements KV.
func (s *PebbleStore) Put(cf ColumnFamily, key, value []byte) error {
	return s.db.Set(namespacedKey(cf, key), value, pebble.Sync)
}

// Delete implements KV.
func (s *PebbleStore) Delete(cf ColumnFamily, key []byte) error {
	return s.db.Delete(namespacedKey(cf, key), pebble.Sync)
}

// Close implements KV.
func (s *PebbleStore) Close() error { return s.db.Close() }

// NewBatch implements KV.
func (s *PebbleStore) NewBatch() Batch {
	return &pebbleBatch{batch: s.db.NewBatch()}
}

type pebbleBatch struct {
	batch *pebble.Batch
	err   error
}

func (b *pebbleBatch) Put(cf ColumnFamily, key, value []byte) {
	if err := b.batch.Set(namespacedKey(cf, key), value, nil); err != nil {
		b.err = err
	}
}

func (b *pebbleBatch) Delete(cf ColumnFamily, key []byte) {
	if err := b.batch.Delete(namespacedKey(cf, key), nil); err != nil {
		b.err = err
	}
}

func (b *pebbleBatch) Commit() error {
	if b.err != nil {
		return b.err
	}
	return b.batch.Commit(pebble.Sync)
}

// NewIterator implements KV. start/end bound the column-family-local key
// range; a nil end iterates to the end of the column family.
func (s *PebbleStore) NewIterator(cf ColumnFamily, start, end []byte) Iterator {
	lower := namespacedKey(cf, start)
	var upper []byte
	if end != nil {
		upper = namespacedKey(cf, end)
	} else {
		upper = namespacedKey(cf, nil)
		upper[len(upper)-1]++ // bump the cf separator to bound the prefix range
	}

	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return &pebbleIterator{err: err}
	}
	return &pebbleIterator{it: it, cfPrefixLen: len(cf) + 1, first: true}
}

type pebbleIterator struct {
	it          *pebble.Iterator
	cfPrefixLen int
	first       bool
	err         error
}

func (i *pebbleIterator) Next() bool {
	if i.err != nil || i.it == nil {
		return false
	}
	if i.first {
		i.first = false
		return i.it.First()
	}
	return i.it.Next()
}

func (i *pebbleIterator) Key() []byte {
	k := i.it.Key()
	if len(k) < i.cfPrefixLen {
		return nil
	}
	return k[i.cfPrefixLen:]
}

func (i *pebbleIterator) Value() []byte { return i.it.Value() }

func (i *pebbleIterator) Error() error {
	if i.err != nil {
		return i.err
	}
	if i.it == nil {
		return nil
	}
	return i.it.Error()
}

func (i *pebbleIterator) Close() error {
	if i.it == nil {
		return i.err
	}
	return i.it.Close()
}
