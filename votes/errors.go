// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package votes

import (
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/types"
)

func errInvalidVoter(voter types.Address) error {
	return cerr.New(cerr.KindMaliciousPeer, "votes: no VRF key registered for voter %s", voter)
}

func errNoStake(voter types.Address) error {
	return cerr.New(cerr.KindConsistency, "votes: voter %s has zero stake in snapshot", voter)
}

func errNotElected(voter types.Address) error {
	return cerr.New(cerr.KindConsistency, "votes: voter %s was not elected by sortition (weight=0)", voter)
}
