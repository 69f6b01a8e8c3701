// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/types"
)

func newKeyedValidator(t *testing.T, addr byte, stake uint64) Validator {
	t.Helper()
	key, err := vrf.GenerateKey()
	require.NoError(t, err)
	var a types.Address
	a[0] = addr
	return Validator{Address: a, Stake: stake, VRFKey: key.Public()}
}

func TestSnapshotStakeAndTotal(t *testing.T) {
	v1 := newKeyedValidator(t, 1, 100)
	v2 := newKeyedValidator(t, 2, 300)
	snap := NewSnapshot([]Validator{v1, v2})

	require.EqualValues(t, 100, snap.Stake(v1.Address))
	require.EqualValues(t, 300, snap.Stake(v2.Address))
	require.EqualValues(t, 0, snap.Stake(types.Address{0xff}))
	require.EqualValues(t, 400, snap.Total())
	require.Equal(t, 2, snap.Count())

	pub, ok := snap.VRFPublicKey(v1.Address)
	require.True(t, ok)
	require.Equal(t, v1.VRFKey.Bytes(), pub.Bytes())

	_, ok = snap.VRFPublicKey(types.Address{0xff})
	require.False(t, ok)
}

func TestStakeViewAppliesDelegationDelay(t *testing.T) {
	v1 := newKeyedValidator(t, 1, 100)
	reg := NewRegistry()
	reg.SetSnapshot(1, NewSnapshot([]Validator{v1}))

	v2 := newKeyedValidator(t, 1, 500)
	reg.SetSnapshot(6, NewSnapshot([]Validator{v2}))

	view := &StakeView{Registry: reg, DelegationDelay: 5}

	// period 6 - delay 5 = snapshot at period 1, stake 100, not 500.
	require.EqualValues(t, 100, view.Stake(6, v1.Address))
	require.EqualValues(t, 100, view.TotalStake(6))

	// no snapshot recorded at period 0 yet for a period below the delay.
	require.EqualValues(t, 0, view.Stake(2, v1.Address))
}

func TestStakeViewVRFPublicKeyUsesLatestSnapshot(t *testing.T) {
	v1a := newKeyedValidator(t, 1, 100)
	reg := NewRegistry()
	reg.SetSnapshot(1, NewSnapshot([]Validator{v1a}))

	view := &StakeView{Registry: reg, DelegationDelay: 0}
	pub, ok := view.VRFPublicKey(v1a.Address)
	require.True(t, ok)
	require.Equal(t, v1a.VRFKey.Bytes(), pub.Bytes())

	_, ok = view.VRFPublicKey(types.Address{0xaa})
	require.False(t, ok)
}
