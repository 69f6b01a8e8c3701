// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
)

var nodeSecretFlag = &cli.StringFlag{
	Name:  "node-secret",
	Usage: "hex-encoded secp256k1 private key to derive the account from",
}

var accountCommand = &cli.Command{
	Name:   "account",
	Usage:  "generate a fresh account key and print its address",
	Action: runAccount,
}

var accountFromKeyCommand = &cli.Command{
	Name:   "account-from-key",
	Usage:  "print the address derived from --node-secret",
	Flags:  []cli.Flag{nodeSecretFlag},
	Action: runAccountFromKey,
}

func runAccount(*cli.Context) error {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return cerr.New(cerr.KindConfig, "generating account key: %v", err)
	}
	printAccount(key)
	return nil
}

func runAccountFromKey(c *cli.Context) error {
	secret := strings.TrimPrefix(c.String("node-secret"), "0x")
	if secret == "" {
		return cerr.New(cerr.KindConfig, "account-from-key: --node-secret is required")
	}
	raw, err := hex.DecodeString(secret)
	if err != nil || len(raw) != 32 {
		return cerr.New(cerr.KindConfig, "account-from-key: --node-secret must be a 32-byte hex scalar")
	}
	printAccount(crypto.PrivateKeyFromBytes(raw))
	return nil
}

func printAccount(key *crypto.PrivateKey) {
	fmt.Printf("address:     %s\n", key.Address())
	fmt.Printf("public key:  0x%s\n", hex.EncodeToString(key.PublicKey()))
	fmt.Printf("secret key:  0x%s\n", hex.EncodeToString(key.Bytes()))
}
