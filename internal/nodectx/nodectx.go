// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nodectx carries small immutable node/network identity through
// context.Context, the way the teacher's ctx.go does for its subnet/chain
// IDs — generalized here to this module's single-chain node identity.
package nodectx

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/types"
)

// Identity is the small immutable bundle of node identity carried in context.
type Identity struct {
	ChainID uint64
	NodeID  ids.NodeID
	Address types.Address
}

type identityKey struct{}

// With attaches id to ctx.
func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// From retrieves the Identity previously attached with With, and whether it
// was present.
func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// MustFrom retrieves the Identity, panicking if absent — used only at
// points where the caller controls the call chain and a missing identity is
// a programming error, never a runtime possibility.
func MustFrom(ctx context.Context) Identity {
	id, ok := From(ctx)
	if !ok {
		panic("nodectx: identity missing from context")
	}
	return id
}
