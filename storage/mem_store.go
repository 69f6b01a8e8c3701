// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"sort"
	"sync"
)

// MemStore is an in-memory KV implementation for tests and for running the
// node without an external store wired in.
type MemStore struct {
	mu   sync.RWMutex
	data map[ColumnFamily]map[string][]byte
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[ColumnFamily]map[string][]byte)}
}

func (s *MemStore) cf(cf ColumnFamily) map[string][]byte {
	m, ok := s.data[cf]
	if !ok {
		m = make(map[string][]byte)
		s.data[cf] = m
	}
	return m
}

// Get implements KV.
func (s *MemStore) Get(cf ColumnFamily, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[cf][string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put implements KV.
func (s *MemStore) Put(cf ColumnFamily, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cf(cf)[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete implements KV.
func (s *MemStore) Delete(cf ColumnFamily, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cf(cf), string(key))
	return nil
}

// Close implements KV.
func (s *MemStore) Close() error { return nil }

type memWrite struct {
	cf     ColumnFamily
	key    []byte
	value  []byte
	delete bool
}

type memBatch struct {
	store *MemStore
	ops   []memWrite
}

// NewBatch implements KV.
func (s *MemStore) NewBatch() Batch { return &memBatch{store: s} }

func (b *memBatch) Put(cf ColumnFamily, key, value []byte) {
	b.ops = append(b.ops, memWrite{cf: cf, key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *memBatch) Delete(cf ColumnFamily, key []byte) {
	b.ops = append(b.ops, memWrite{cf: cf, key: append([]byte(nil), key...), delete: true})
}

func (b *memBatch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.store.cf(op.cf), string(op.key))
			continue
		}
		b.store.cf(op.cf)[string(op.key)] = op.value
	}
	return nil
}

// NewIterator implements KV. MemStore snapshots and sorts the column
// family's keys at iterator creation time; it does not observe subsequent
// writes, matching the MVCC-snapshot semantics spec.md §5 assumes of the
// underlying store.
func (s *MemStore) NewIterator(cf ColumnFamily, start, end []byte) Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data[cf]))
	snap := make(map[string][]byte, len(s.data[cf]))
	for k, v := range s.data[cf] {
		keys = append(keys, k)
		snap[k] = v
	}
	sort.Strings(keys)

	view := &MemStore{data: map[ColumnFamily]map[string][]byte{cf: snap}}
	it := &memIterator{store: view, cf: cf, keys: keys, pos: -1}
	it.applyRange(start, end)
	return it
}

type memIterator struct {
	store *MemStore
	cf    ColumnFamily
	keys  []string
	pos   int
}

func (it *memIterator) applyRange(start, end []byte) {
	lo, hi := 0, len(it.keys)
	if start != nil {
		lo = sort.SearchStrings(it.keys, string(start))
	}
	if end != nil {
		hi = sort.SearchStrings(it.keys, string(end))
	}
	if lo > hi {
		lo = hi
	}
	it.keys = it.keys[lo:hi]
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	it.store.mu.RLock()
	defer it.store.mu.RUnlock()
	return append([]byte(nil), it.store.data[it.cf][it.keys[it.pos]]...)
}

func (it *memIterator) Error() error { return nil }

func (it *memIterator) Close() error { return nil }
