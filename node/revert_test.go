// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/taraxa-go/taraxa-core/storage"
	"github.com/taraxa-go/taraxa-core/storage/storagemock"
)

// revertedColumnFamilies mirrors RevertToPeriod's own list, in order.
var revertedColumnFamilies = []storage.ColumnFamily{
	storage.CFPBFTBlocksByPeriod,
	storage.CFPBFTCertVotesByPeriod,
	storage.CFPeriodData,
	storage.CFFinalChainStateSnaps,
	storage.CFTransactions,
}

func TestRevertToPeriodSkipsBatchWhenNothingAbovePeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := storagemock.NewMockKV(ctrl)

	for _, cf := range revertedColumnFamilies {
		it := storagemock.NewMockIterator(ctrl)
		it.EXPECT().Next().Return(false)
		it.EXPECT().Error().Return(nil)
		it.EXPECT().Close().Return(nil)
		kv.EXPECT().NewIterator(cf, periodKey(6), gomock.Nil()).Return(it)
	}
	// An empty scan must never open a batch: RevertToPeriod is a no-op
	// when nothing lies above the rollback point.
	kv.EXPECT().NewBatch().Times(0)

	require.NoError(t, RevertToPeriod(kv, 5))
}

func TestRevertToPeriodDeletesEveryKeyAbovePeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := storagemock.NewMockKV(ctrl)

	keys := [][]byte{periodKey(6), periodKey(7)}
	for _, cf := range revertedColumnFamilies {
		it := storagemock.NewMockIterator(ctrl)
		gomock.InOrder(
			it.EXPECT().Next().Return(true),
			it.EXPECT().Key().Return(keys[0]),
			it.EXPECT().Next().Return(true),
			it.EXPECT().Key().Return(keys[1]),
			it.EXPECT().Next().Return(false),
		)
		it.EXPECT().Error().Return(nil)
		it.EXPECT().Close().Return(nil)
		kv.EXPECT().NewIterator(cf, periodKey(6), gomock.Nil()).Return(it)

		b := storagemock.NewMockBatch(ctrl)
		b.EXPECT().Delete(cf, keys[0])
		b.EXPECT().Delete(cf, keys[1])
		b.EXPECT().Commit().Return(nil)
		kv.EXPECT().NewBatch().Return(b)
	}

	require.NoError(t, RevertToPeriod(kv, 5))
}
