// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crypto provides the deterministic primitives consensus hashes and
// signatures are built from: Keccak-256, secp256k1 sign/verify/recover with
// RFC6979 deterministic nonces and the low-s rule, VRF (package crypto/vrf)
// and VDF (package crypto/vdf).
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/taraxa-go/taraxa-core/types"
)

func init() {
	types.SetHasher(Keccak256)
}

// Keccak256 hashes the concatenation of data into a types.Hash.
func Keccak256(data ...[]byte) types.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out types.Hash
	h.Sum(out[:0])
	return out
}

// Keccak256Bytes hashes the concatenation of data, returning raw bytes.
func Keccak256Bytes(data ...[]byte) []byte {
	h := Keccak256(data...)
	return h[:]
}
