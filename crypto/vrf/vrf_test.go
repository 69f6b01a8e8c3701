package vrf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProveVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("period=1,round=1,step=3")
	proof := priv.Prove(msg)

	out, err := Verify(priv.Public(), proof, msg)
	require.NoError(t, err)

	directOut, err := Output(proof)
	require.NoError(t, err)
	require.Equal(t, directOut, out, "verify output must equal prove's own output")
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	proof := priv.Prove([]byte("msg-a"))
	_, err = Verify(priv.Public(), proof, []byte("msg-b"))
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv1, err := GenerateKey()
	require.NoError(t, err)
	priv2, err := GenerateKey()
	require.NoError(t, err)
	msg := []byte("msg")
	proof := priv1.Prove(msg)
	_, err = Verify(priv2.Public(), proof, msg)
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestProveDeterministic(t *testing.T) {
	priv := KeyFromSeed([]byte("fixed-seed"))
	msg := []byte("deterministic")
	require.Equal(t, priv.Prove(msg), priv.Prove(msg))
}
