// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/taraxa-go/taraxa-core/types"
)

// secp256k1N is the order of the secp256k1 curve's base point.
var secp256k1N, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

// secp256k1HalfN is N/2, the low-s boundary: valid signatures satisfy s <= N/2.
var secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

var (
	// ErrInvalidSignatureLength is returned when a signature is not 65 bytes.
	ErrInvalidSignatureLength = errors.New("crypto: invalid signature length")
	// ErrHighS is returned by Verify/Recover when a signature's s value
	// exceeds N/2, violating the low-s rule.
	ErrHighS = errors.New("crypto: signature s value is too high, violates low-s rule")
	// ErrInvalidRecoveryID is returned for a v byte outside {0,1}.
	ErrInvalidRecoveryID = errors.New("crypto: invalid recovery id")
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct{ key *secp256k1.PrivateKey }

// GeneratePrivateKey generates a new random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: k}, nil
}

// PrivateKeyFromBytes parses a 32-byte scalar into a private key.
func PrivateKeyFromBytes(b []byte) *PrivateKey {
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}
}

// Bytes returns the raw 32-byte scalar.
func (p *PrivateKey) Bytes() []byte { return p.key.Serialize() }

// PublicKey returns the corresponding uncompressed public key bytes (65
// bytes, 0x04-prefixed).
func (p *PrivateKey) PublicKey() []byte { return p.key.PubKey().SerializeUncompressed() }

// Address derives the 20-byte account address from the last 20 bytes of
// Keccak(uncompressed public key minus the 0x04 prefix), per spec.md §3.
func (p *PrivateKey) Address() types.Address {
	return PubkeyToAddress(p.PublicKey())
}

// PubkeyToAddress derives an address from an uncompressed (65-byte,
// 0x04-prefixed) public key.
func PubkeyToAddress(pub []byte) types.Address {
	if len(pub) == 65 && pub[0] == 0x04 {
		pub = pub[1:]
	}
	h := Keccak256(pub)
	return types.BytesToAddress(h[types.HashLength-types.AddressLength:])
}

// Sign produces a 65-byte (r,s,v) signature over hash using RFC6979
// deterministic nonces, with the low-s rule enforced by construction.
func Sign(priv *PrivateKey, hash types.Hash) (types.Signature, error) {
	compact := ecdsa.SignCompact(priv.key, hash[:], false)
	// SignCompact returns [recoveryByte, R(32), S(32)] with recoveryByte in
	// {27,28,29,30}; unpack into our (R,S,V) layout with V in {0,1}.
	if len(compact) != 65 {
		return types.Signature{}, ErrInvalidSignatureLength
	}
	recID := (compact[0] - 27) & 0x3
	var sig types.Signature
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = recID
	return sig, nil
}

// Verify checks that sig is a valid low-s signature over hash by pub (an
// uncompressed 65-byte public key).
func Verify(pub []byte, hash types.Hash, sig types.Signature) error {
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(secp256k1HalfN) > 0 {
		return ErrHighS
	}
	pubKey, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return err
	}
	var rScalar, sScalar secp256k1.ModNScalar
	rScalar.SetByteSlice(r.Bytes())
	sScalar.SetByteSlice(s.Bytes())
	signature := ecdsa.NewSignature(&rScalar, &sScalar)
	if !signature.Verify(hash[:], pubKey) {
		return errors.New("crypto: signature verification failed")
	}
	return nil
}

// Recover recovers the uncompressed public key that produced sig over hash.
func Recover(hash types.Hash, sig types.Signature) ([]byte, error) {
	if sig[64] > 1 {
		return nil, ErrInvalidRecoveryID
	}
	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(secp256k1HalfN) > 0 {
		return nil, ErrHighS
	}
	compact := make([]byte, 65)
	compact[0] = 27 + sig[64]
	copy(compact[1:33], sig[0:32])
	copy(compact[33:65], sig[32:64])
	pubKey, _, err := ecdsa.RecoverCompact(compact, hash[:])
	if err != nil {
		return nil, err
	}
	return pubKey.SerializeUncompressed(), nil
}

// RecoverAddress recovers the signer's address directly.
func RecoverAddress(hash types.Hash, sig types.Signature) (types.Address, error) {
	pub, err := Recover(hash, sig)
	if err != nil {
		return types.Address{}, err
	}
	return PubkeyToAddress(pub), nil
}
