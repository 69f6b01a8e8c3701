// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging thinly wraps github.com/luxfi/log's geth-style Logger
// interface (With/Info/Warn/Error/Debug(msg, kv...)) so every component
// logs through the same category-tagged helper, per spec.md §7's "no error
// is silently swallowed; all are logged with a category tag".
package logging

import "github.com/luxfi/log"

// Logger is the interface every consensus component is constructed with.
type Logger = log.Logger

// NoOp returns a logger that discards everything, used in tests and for
// components that have not been wired to a real sink yet.
func NoOp() Logger { return log.NewNoOpLogger() }

// Category returns a child logger tagged with a "category" field, used at
// every error-propagation boundary named in spec.md §7.
func Category(l Logger, category string) Logger {
	return l.With("category", category)
}

// Transient logs a transient-peer error: retried, does not affect local state.
func Transient(l Logger, category string, err error, kv ...any) {
	Category(l, category).Warn("transient error, will retry", append([]any{"err", err}, kv...)...)
}

// Malicious logs a malicious-peer error ahead of disconnect+blacklist.
func Malicious(l Logger, category string, err error, kv ...any) {
	Category(l, category).Error("malicious peer behavior", append([]any{"err", err}, kv...)...)
}

// Fatal logs a consistency error ahead of an orderly halt.
func Fatal(l Logger, category string, err error, kv ...any) {
	Category(l, category).Crit("fatal consistency error, halting", append([]any{"err", err}, kv...)...)
}
