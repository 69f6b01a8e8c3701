package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRecoverRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	msg := Keccak256([]byte("hello taraxa"))
	sig, err := Sign(priv, msg)
	require.NoError(t, err)

	require.NoError(t, Verify(priv.PublicKey(), msg, sig))

	addr, err := RecoverAddress(msg, sig)
	require.NoError(t, err)
	require.Equal(t, priv.Address(), addr)
}

func TestSignDeterministic(t *testing.T) {
	priv := PrivateKeyFromBytes(Keccak256Bytes([]byte("fixed-seed")))
	msg := Keccak256([]byte("payload"))
	sig1, err := Sign(priv, msg)
	require.NoError(t, err)
	sig2, err := Sign(priv, msg)
	require.NoError(t, err)
	require.Equal(t, sig1, sig2, "RFC6979 nonces must be deterministic")
}

func TestVerifyRejectsHighS(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)
	msg := Keccak256([]byte("payload"))
	sig, err := Sign(priv, msg)
	require.NoError(t, err)

	// Flip s to N - s, producing a high-s (non-canonical) signature.
	s := new(big.Int).SetBytes(sig[32:64])
	hs := new(big.Int).Sub(secp256k1N, s)
	hsBytes := hs.Bytes()
	var padded [32]byte
	copy(padded[32-len(hsBytes):], hsBytes)
	copy(sig[32:64], padded[:])

	require.ErrorIs(t, Verify(priv.PublicKey(), msg, sig), ErrHighS)
}

func TestAddressDerivation(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.Equal(t, PubkeyToAddress(priv.PublicKey()), priv.Address())
}
