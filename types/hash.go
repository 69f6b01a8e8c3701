// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines the consensus-critical data model shared by every
// subsystem: hashes, transactions, DAG blocks, PBFT blocks, votes, accounts
// and the executed-block header/receipt shapes.
package types

import (
	"encoding/hex"
	"fmt"
)

const (
	// HashLength is the byte length of a content hash (Keccak-256).
	HashLength = 32
	// AddressLength is the byte length of an account address.
	AddressLength = 20
	// SignatureLength is the byte length of an ECDSA signature (r,s,v).
	SignatureLength = 65
	// VRFOutputLength is the byte length of a VRF output.
	VRFOutputLength = 64
	// VRFProofLength is the byte length of a VRF proof.
	VRFProofLength = 80
)

// Hash is a 32-byte Keccak-256 content hash.
type Hash [HashLength]byte

// EmptyHash is the canonical empty/zero hash sentinel.
var EmptyHash = Hash{}

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// IsZero reports whether h is the empty hash sentinel.
func (h Hash) IsZero() bool { return h == EmptyHash }

// Less provides the canonical lowest-hash tie-break ordering used by
// pivot-chain and period-set ordering.
func (h Hash) Less(o Hash) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

// BytesToHash truncates/left-pads b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Address is a 20-byte account address, derived from the last 20 bytes of
// Keccak(secp256k1 public key).
type Address [AddressLength]byte

// EmptyAddress is the canonical zero address sentinel IsZero compares
// against. A contract-creation transaction's absent `to` is a nil
// Transaction.To, not this value.
var EmptyAddress = Address{}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether a is the empty address sentinel.
func (a Address) IsZero() bool { return a == EmptyAddress }

// Less provides deterministic address ordering for reward tie-breaks.
func (a Address) Less(o Address) bool {
	for i := range a {
		if a[i] != o[i] {
			return a[i] < o[i]
		}
	}
	return false
}

// BytesToAddress truncates/left-pads b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// Signature is a 65-byte (r,s,v) ECDSA secp256k1 signature.
type Signature [SignatureLength]byte

// VRFOutput is the 64-byte deterministic pseudorandom output of a VRF proof.
type VRFOutput [VRFOutputLength]byte

// VRFProof is the 80-byte verifiable proof accompanying a VRF output.
type VRFProof [VRFProofLength]byte

func (v VRFOutput) String() string { return "0x" + hex.EncodeToString(v[:]) }

// HashList is a convenience alias used by order-hash computation.
type HashList []Hash

func (hs HashList) String() string {
	return fmt.Sprintf("%d hashes", len(hs))
}

// hasher computes the module's consensus hash function (Keccak-256). It is
// registered by crypto's init() rather than imported directly, so that
// types (the leaf data-model package) never depends on crypto (which
// already depends on types for Hash/Address/Signature) — avoiding an import
// cycle while still letting every consensus type hash itself directly.
var hasher func(...[]byte) Hash

// SetHasher registers the consensus hash function. Called once, by
// crypto's init().
func SetHasher(f func(...[]byte) Hash) { hasher = f }

// Keccak256 hashes data using the registered hasher. Panics if called
// before crypto has been imported (anywhere in the program) to register it.
func Keccak256(data ...[]byte) Hash {
	if hasher == nil {
		panic("types: hasher not registered — import github.com/taraxa-go/taraxa-core/crypto for side effects")
	}
	return hasher(data...)
}
