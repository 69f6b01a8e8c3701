// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// taraxa-node is the thin CLI surface of spec.md §6: flag parsing and
// sub-command dispatch only, calling straight into node.New(...).Start(ctx)
// for the "node" command and into the crypto/crypto-vrf packages directly
// for the key-material commands. Grounded on
// luxfi-evm/cmd/evm-node/main.go's cli.App{Commands, Flags, Before}
// shape and equa-blockchain-core/cmd/geth's node/account/account-from-key/
// vrf/vrf-from-key command names (original_source/src/cli/config.hpp's
// Config::ACCOUNT_COMMAND/VRF_COMMAND/.._FROM_KEY_COMMAND constants).
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/taraxa-go/taraxa-core/internal/cerr"
)

const clientIdentifier = "taraxa-node"

// exitCode maps a cerr.Kind (or a plain config/usage error) to spec.md §6's
// CLI exit codes: 0 success, 1 config error, 2 storage error, 3 integrity
// (consistency) failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *cerr.Error
	if ok := asCerr(err, &ce); ok {
		switch ce.Kind {
		case cerr.KindStorage:
			return 2
		case cerr.KindConsistency:
			return 3
		default:
			return 1
		}
	}
	return 1
}

// asCerr is a narrow errors.As wrapper kept local so main doesn't need an
// "errors" import solely for this one call site.
func asCerr(err error, target **cerr.Error) bool {
	for err != nil {
		if ce, ok := err.(*cerr.Error); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func main() {
	app := &cli.App{
		Name:    clientIdentifier,
		Usage:   "taraxa consensus node",
		Version: nodeVersion,
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			networkIDFlag,
			bootNodeFlag,
			destroyDBFlag,
			rebuildDBFlag,
			revertToPeriodFlag,
		},
		Commands: []*cli.Command{
			nodeCommand,
			accountCommand,
			accountFromKeyCommand,
			vrfCommand,
			vrfFromKeyCommand,
		},
		Action: runNode,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
