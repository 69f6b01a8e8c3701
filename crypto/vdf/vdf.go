// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vdf implements a Wesolowski verifiable delay function over an RSA
// group of presumed-unknown order: Solve runs ~2^difficulty sequential
// squarings (the proof-of-delay), while Verify costs a single small
// exponentiation regardless of difficulty. This rate-limits DAG block
// production per spec.md §4.7.
//
// The group modulus is the public RSA-2048 factoring-challenge number, the
// standard placeholder modulus used by VDF implementations (Chia's VDF
// included) when no trusted-setup class group is available; no party is
// known to know its factorization, which is the only security requirement
// for the Wesolowski construction. Group arithmetic uses math/big: the
// modulus here is multi-thousand-bit and needs arbitrary-precision modular
// exponentiation, a case math/big (the ecosystem's universal big-integer
// primitive, used this way throughout the pack) serves directly; the
// pack's fixed-width libraries (cronokirby/saferith, holiman/uint256) target
// constant-time 256-bit field arithmetic, not this.
package vdf

import (
	"context"
	"crypto/sha256"
	"errors"
	"math/big"
)

// ErrCancelled is returned by Solve when the cancellation flag fires.
var ErrCancelled = errors.New("vdf: solve cancelled")

// ErrInvalidProof is returned by Verify when the proof does not check out.
var ErrInvalidProof = errors.New("vdf: invalid proof")

// modulus is the RSA-2048 factoring challenge number.
var modulus, _ = new(big.Int).SetString(
	"25195908475657893494027183240048398571429282126204032027777"+
		"13783604366202070759555626401852588078440691829064124951508"+
		"21892985591491761845028084891200728449926873928072877767359"+
		"71418347270261896375014971824691165077613379859095700097330"+
		"459748808428401797429100642458691817195118746121515172654632282216869987549182422433637259085141865462043576798423387184774447920739934236584823824281198163815010674810451660377306056201619676256133844143603833904414952634432190114657544454178424020924616515723350778707749817125772467962926386356373289912154831438167899885040445364023527381951378636564391212010397122822120720357", 10)

// Proof is the compact Wesolowski delay proof for a given challenge.
type Proof struct {
	Y  []byte // x^(2^T) mod N
	Pi []byte // the quotient witness
}

// Solve computes the VDF over challenge for 2^difficulty sequential
// squarings. ctx cancellation is checked between squarings, satisfying the
// atomic-flag cancellation requirement of spec.md §5.
func Solve(ctx context.Context, challenge []byte, difficulty uint8) (*Proof, error) {
	x := hashToGroup(challenge)
	steps := uint64(1) << difficulty

	y := new(big.Int).Set(x)
	for i := uint64(0); i < steps; i++ {
		if i%4096 == 0 {
			select {
			case <-ctx.Done():
				return nil, ErrCancelled
			default:
			}
		}
		y.Mul(y, y)
		y.Mod(y, modulus)
	}

	l := hashToPrime(x, y)
	q, _ := wesolowskiQuotient(steps, l)
	pi := new(big.Int).Exp(x, q, modulus)

	return &Proof{Y: y.Bytes(), Pi: pi.Bytes()}, nil
}

// Verify checks proof against challenge and difficulty in time independent
// of difficulty (beyond the bit length of the 2^difficulty exponent).
func Verify(challenge []byte, proof *Proof, difficulty uint8) error {
	if proof == nil || len(proof.Y) == 0 || len(proof.Pi) == 0 {
		return ErrInvalidProof
	}
	x := hashToGroup(challenge)
	y := new(big.Int).SetBytes(proof.Y)
	pi := new(big.Int).SetBytes(proof.Pi)

	steps := uint64(1) << difficulty
	l := hashToPrime(x, y)
	_, r := wesolowskiQuotient(steps, l)

	// Check: pi^l * x^r == y (mod N)
	lhs := new(big.Int).Exp(pi, l, modulus)
	xr := new(big.Int).Exp(x, r, modulus)
	lhs.Mul(lhs, xr)
	lhs.Mod(lhs, modulus)

	if lhs.Cmp(y) != 0 {
		return ErrInvalidProof
	}
	return nil
}

// wesolowskiQuotient computes q, r such that 2^steps = q*l + r.
func wesolowskiQuotient(steps uint64, l *big.Int) (q, r *big.Int) {
	twoToSteps := new(big.Int).Lsh(big.NewInt(1), uint(steps))
	q, r = new(big.Int).QuoRem(twoToSteps, l, new(big.Int))
	return q, r
}

func hashToGroup(data []byte) *big.Int {
	h := sha256.Sum256(append([]byte("taraxa-vdf-x"), data...))
	x := new(big.Int).SetBytes(h[:])
	return x.Mod(x, modulus)
}

// hashToPrime derives the Fiat-Shamir challenge prime l from (x, y),
// incrementing a nonce until the candidate passes a probabilistic primality
// test.
func hashToPrime(x, y *big.Int) *big.Int {
	for nonce := uint32(0); ; nonce++ {
		h := sha256.New()
		h.Write([]byte("taraxa-vdf-prime"))
		h.Write(x.Bytes())
		h.Write(y.Bytes())
		h.Write([]byte{byte(nonce), byte(nonce >> 8), byte(nonce >> 16), byte(nonce >> 24)})
		sum := h.Sum(nil)
		cand := new(big.Int).SetBytes(sum)
		cand.SetBit(cand, 0, 1) // force odd
		if cand.ProbablyPrime(20) {
			return cand
		}
	}
}
