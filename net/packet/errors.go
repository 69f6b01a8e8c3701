// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import "github.com/taraxa-go/taraxa-core/internal/cerr"

// errMalicious tags a Validate/Process failure as malicious-peer behavior
// per spec.md §4.10/§7: the router disconnects and blacklists the sender.
func errMalicious(format string, args ...any) error {
	return cerr.New(cerr.KindMaliciousPeer, format, args...)
}

// errTransient tags a failure that should not affect the peer's standing
// (e.g. asking for data the local node does not yet have).
func errTransient(format string, args ...any) error {
	return cerr.New(cerr.KindTransientPeer, format, args...)
}
