package vdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveVerifyRoundTrip(t *testing.T) {
	challenge := []byte("level=5,period=1")
	proof, err := Solve(context.Background(), challenge, 10)
	require.NoError(t, err)
	require.NoError(t, Verify(challenge, proof, 10))
}

func TestVerifyRejectsWrongDifficulty(t *testing.T) {
	challenge := []byte("level=5,period=1")
	proof, err := Solve(context.Background(), challenge, 8)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(challenge, proof, 9), ErrInvalidProof)
}

func TestVerifyRejectsWrongChallenge(t *testing.T) {
	proof, err := Solve(context.Background(), []byte("a"), 8)
	require.NoError(t, err)
	require.ErrorIs(t, Verify([]byte("b"), proof, 8), ErrInvalidProof)
}

func TestSolveCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, []byte("x"), 32)
	require.ErrorIs(t, err, ErrCancelled)
}
