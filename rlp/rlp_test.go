package rlp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 255, 256, 1 << 20, 1<<64 - 1}
	for _, v := range cases {
		enc := Encode(Uint64(v))
		dec, err := Decode(enc)
		require.NoError(t, err)
		got, err := dec.Uint64()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestRoundTripBool(t *testing.T) {
	for _, b := range []bool{true, false} {
		dec, err := Decode(Encode(Bool(b)))
		require.NoError(t, err)
		got, err := dec.Bool()
		require.NoError(t, err)
		require.Equal(t, b, got)
	}
}

func TestRoundTripString(t *testing.T) {
	inputs := [][]byte{nil, {0}, {1}, {0x7f}, {0x80}, bytes.Repeat([]byte{0xab}, 55), bytes.Repeat([]byte{0xcd}, 56), bytes.Repeat([]byte{0xef}, 1000)}
	for _, in := range inputs {
		dec, err := Decode(Encode(String(in)))
		require.NoError(t, err)
		require.Equal(t, in, dec.Bytes())
	}
}

func TestRoundTripList(t *testing.T) {
	list := List(String([]byte("cat")), String([]byte("dog")), Uint64(42), List(Bool(true), Bool(false)))
	dec, err := Decode(Encode(list))
	require.NoError(t, err)
	children, err := dec.List(4)
	require.NoError(t, err)
	require.Equal(t, []byte("cat"), children[0].Bytes())
	require.Equal(t, []byte("dog"), children[1].Bytes())
	n, err := children[2].Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(42), n)
	nested, err := children[3].List(2)
	require.NoError(t, err)
	b0, _ := nested[0].Bool()
	b1, _ := nested[1].Bool()
	require.True(t, b0)
	require.False(t, b1)
}

func TestUnexpectedListSize(t *testing.T) {
	list := List(String([]byte("a")), String([]byte("b")))
	dec, err := Decode(Encode(list))
	require.NoError(t, err)
	_, err = dec.List(3)
	require.ErrorIs(t, err, ErrUnexpectedListSize)
}

func TestMalformedTruncated(t *testing.T) {
	full := Encode(List(String(bytes.Repeat([]byte{1}, 100))))
	_, err := Decode(full[:len(full)-5])
	require.ErrorIs(t, err, ErrMalformedEncoding)
}

func TestNonMinimalLengthRejected(t *testing.T) {
	// A long-form string header (0xb8) encoding a length of 1 is non-minimal:
	// it should have used the short form (0x81).
	bad := []byte{0xb8, 0x01, 0x42}
	_, err := Decode(bad)
	require.ErrorIs(t, err, ErrNonMinimalLength)
}

func TestSingleByteBelow0x80MustBeShortForm(t *testing.T) {
	bad := []byte{0x81, 0x41} // encodes "A" (0x41) via the long form instead of the single raw byte.
	_, err := Decode(bad)
	require.ErrorIs(t, err, ErrNonMinimalLength)
}
