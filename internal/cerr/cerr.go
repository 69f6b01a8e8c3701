// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cerr implements the tagged error kinds of spec.md §7: transient
// peer, malicious peer, consistency, storage and config errors, each with
// its own propagation/retry semantics decided by the orchestrator.
package cerr

import (
	"errors"
	"fmt"
)

// Kind tags an error with the handling policy the orchestrator applies.
type Kind int

const (
	// KindTransientPeer: retry after backoff, does not affect local state.
	KindTransientPeer Kind = iota
	// KindMaliciousPeer: disconnect + blacklist the peer.
	KindMaliciousPeer
	// KindConsistency: fatal; halt the node, requires operator intervention.
	KindConsistency
	// KindStorage: retry the commit once; a second failure aborts the process.
	KindStorage
	// KindConfig: abort at startup, before opening the store.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransientPeer:
		return "transient_peer"
	case KindMaliciousPeer:
		return "malicious_peer"
	case KindConsistency:
		return "consistency"
	case KindStorage:
		return "storage"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its handling Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// New constructs a tagged Error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error with kind.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err is tagged with kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
