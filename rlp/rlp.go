// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rlp implements the canonical length-prefixed list encoding that
// every consensus hash in this module is computed over. The wire format is
// bit-for-bit compatible with Ethereum's RLP so headers, receipts and
// transactions can be consumed by Ethereum-tooling collaborators unmodified.
//
// No library in the retrieval pack implements RLP (the teacher's codec
// package is a JSON codec); this is the one package in the module written
// directly against the standard library, since the wire format itself is
// consensus-pinned and a generic serialization library cannot reproduce it.
package rlp

import (
	"errors"
	"fmt"
)

// Sentinel errors per spec.md §4.1's failure model.
var (
	// ErrMalformedEncoding covers a wrong prefix or truncated input.
	ErrMalformedEncoding = errors.New("rlp: malformed encoding")
	// ErrUnexpectedListSize covers an exact-arity mismatch for a fixed-shape record.
	ErrUnexpectedListSize = errors.New("rlp: unexpected list size")
	// ErrNonMinimalLength is returned when a length prefix is not in its
	// canonical minimal-width form.
	ErrNonMinimalLength = errors.New("rlp: non-minimal length prefix")
)

// Item is a node in the RLP value tree: either a byte string or a list of
// Items. Every consensus type encodes itself into an Item tree and decodes
// itself back from one, rather than relying on reflection.
type Item struct {
	isList   bool
	str      []byte
	children []Item
}

// String builds a byte-string Item.
func String(b []byte) Item { return Item{str: b} }

// List builds a list Item from children, in order.
func List(children ...Item) Item { return Item{isList: true, children: children} }

// Uint64 encodes v as a big-endian minimal-length byte string; zero encodes
// to the empty string, matching Ethereum's canonical integer encoding.
func Uint64(v uint64) Item {
	if v == 0 {
		return String(nil)
	}
	var buf [8]byte
	n := 8
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
		if buf[i] != 0 {
			n = i
		}
	}
	return String(append([]byte(nil), buf[n:]...))
}

// Bool encodes a boolean as an empty string (false) or 0x01 (true).
func Bool(b bool) Item {
	if b {
		return String([]byte{1})
	}
	return String(nil)
}

// IsList reports whether the item decoded as a list.
func (it Item) IsList() bool { return it.isList }

// Bytes returns the raw byte-string payload of a non-list item.
func (it Item) Bytes() []byte { return it.str }

// Uint64 decodes a big-endian minimal-length integer.
func (it Item) Uint64() (uint64, error) {
	if it.isList {
		return 0, fmt.Errorf("%w: expected string, got list", ErrMalformedEncoding)
	}
	if len(it.str) > 8 {
		return 0, fmt.Errorf("%w: integer too large", ErrMalformedEncoding)
	}
	if len(it.str) > 0 && it.str[0] == 0 {
		return 0, ErrNonMinimalLength
	}
	var v uint64
	for _, b := range it.str {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Bool decodes a canonical boolean encoding.
func (it Item) Bool() (bool, error) {
	switch {
	case it.isList:
		return false, fmt.Errorf("%w: expected string, got list", ErrMalformedEncoding)
	case len(it.str) == 0:
		return false, nil
	case len(it.str) == 1 && it.str[0] == 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid boolean encoding", ErrMalformedEncoding)
	}
}

// List returns the children of a list item, erroring if the item is not a
// list or does not have exactly n children (when n >= 0).
func (it Item) List(n int) ([]Item, error) {
	if !it.isList {
		return nil, fmt.Errorf("%w: expected list, got string", ErrMalformedEncoding)
	}
	if n >= 0 && len(it.children) != n {
		return nil, fmt.Errorf("%w: expected %d elements, got %d", ErrUnexpectedListSize, n, len(it.children))
	}
	return it.children, nil
}

// Encode serializes an Item tree into canonical RLP bytes.
func Encode(it Item) []byte {
	var out []byte
	return appendItem(out, it)
}

func appendItem(out []byte, it Item) []byte {
	if it.isList {
		var body []byte
		for _, c := range it.children {
			body = appendItem(body, c)
		}
		return appendHeader(out, 0xc0, body)
	}
	return appendHeader(out, 0x80, it.str)
}

// appendHeader appends the length-prefix + payload for a string (base 0x80)
// or list (base 0xc0) body.
func appendHeader(out []byte, base byte, body []byte) []byte {
	if base == 0x80 && len(body) == 1 && body[0] < 0x80 {
		return append(out, body...)
	}
	if len(body) < 56 {
		out = append(out, base+byte(len(body)))
		return append(out, body...)
	}
	lenBytes := encodeLength(uint64(len(body)))
	out = append(out, base+55+byte(len(lenBytes)))
	out = append(out, lenBytes...)
	return append(out, body...)
}

func encodeLength(n uint64) []byte {
	var buf [8]byte
	i := 8
	for n > 0 {
		i--
		buf[i] = byte(n)
		n >>= 8
	}
	return buf[i:]
}

// Decode parses the canonical RLP encoding of a single top-level Item,
// requiring the whole input to be consumed.
func Decode(data []byte) (Item, error) {
	it, rest, err := decodeItem(data)
	if err != nil {
		return Item{}, err
	}
	if len(rest) != 0 {
		return Item{}, fmt.Errorf("%w: trailing bytes", ErrMalformedEncoding)
	}
	return it, nil
}

func decodeItem(data []byte) (Item, []byte, error) {
	if len(data) == 0 {
		return Item{}, nil, fmt.Errorf("%w: empty input", ErrMalformedEncoding)
	}
	b0 := data[0]
	switch {
	case b0 < 0x80:
		return String([]byte{b0}), data[1:], nil
	case b0 < 0xb8:
		n := int(b0 - 0x80)
		return sliceString(data[1:], n)
	case b0 < 0xc0:
		lenOfLen := int(b0 - 0xb7)
		n, rest, err := decodeLongLength(data[1:], lenOfLen)
		if err != nil {
			return Item{}, nil, err
		}
		return sliceString(rest, n)
	case b0 < 0xf8:
		n := int(b0 - 0xc0)
		return sliceList(data[1:], n)
	default:
		lenOfLen := int(b0 - 0xf7)
		n, rest, err := decodeLongLength(data[1:], lenOfLen)
		if err != nil {
			return Item{}, nil, err
		}
		return sliceList(rest, n)
	}
}

func decodeLongLength(data []byte, lenOfLen int) (int, []byte, error) {
	if len(data) < lenOfLen {
		return 0, nil, fmt.Errorf("%w: truncated length", ErrMalformedEncoding)
	}
	if lenOfLen > 0 && data[0] == 0 {
		return 0, nil, ErrNonMinimalLength
	}
	var n uint64
	for _, b := range data[:lenOfLen] {
		n = n<<8 | uint64(b)
	}
	if n < 56 {
		// a long-form header encoding a short length is non-minimal.
		return 0, nil, ErrNonMinimalLength
	}
	return int(n), data[lenOfLen:], nil
}

func sliceString(data []byte, n int) (Item, []byte, error) {
	if len(data) < n {
		return Item{}, nil, fmt.Errorf("%w: truncated string", ErrMalformedEncoding)
	}
	if n == 1 && data[0] < 0x80 {
		// a single byte below 0x80 must be encoded in its short form.
		return Item{}, nil, ErrNonMinimalLength
	}
	return String(append([]byte(nil), data[:n]...)), data[n:], nil
}

func sliceList(data []byte, n int) (Item, []byte, error) {
	if len(data) < n {
		return Item{}, nil, fmt.Errorf("%w: truncated list", ErrMalformedEncoding)
	}
	body, rest := data[:n], data[n:]
	var children []Item
	for len(body) > 0 {
		var (
			c   Item
			err error
		)
		c, body, err = decodeItem(body)
		if err != nil {
			return Item{}, nil, err
		}
		children = append(children, c)
	}
	return List(children...), rest, nil
}
