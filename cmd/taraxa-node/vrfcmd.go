// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
)

var vrfSecretFlag = &cli.StringFlag{
	Name:  "vrf-secret",
	Usage: "hex-encoded VRF scalar to derive the VRF keypair from",
}

var vrfCommand = &cli.Command{
	Name:   "vrf",
	Usage:  "generate a fresh VRF keypair and print its public key",
	Action: runVRF,
}

var vrfFromKeyCommand = &cli.Command{
	Name:   "vrf-from-key",
	Usage:  "print the VRF public key derived from --vrf-secret",
	Flags:  []cli.Flag{vrfSecretFlag},
	Action: runVRFFromKey,
}

func runVRF(*cli.Context) error {
	key, err := vrf.GenerateKey()
	if err != nil {
		return cerr.New(cerr.KindConfig, "generating VRF key: %v", err)
	}
	printVRF(key)
	return nil
}

func runVRFFromKey(c *cli.Context) error {
	secret := strings.TrimPrefix(c.String("vrf-secret"), "0x")
	if secret == "" {
		return cerr.New(cerr.KindConfig, "vrf-from-key: --vrf-secret is required")
	}
	raw, err := hex.DecodeString(secret)
	if err != nil {
		return cerr.New(cerr.KindConfig, "vrf-from-key: --vrf-secret must be hex-encoded")
	}
	key, err := vrf.PrivateKeyFromScalarBytes(raw)
	if err != nil {
		return cerr.New(cerr.KindConfig, "vrf-from-key: %v", err)
	}
	printVRF(key)
	return nil
}

func printVRF(key *vrf.PrivateKey) {
	fmt.Printf("vrf public key:  0x%s\n", hex.EncodeToString(key.Public().Bytes()))
	fmt.Printf("vrf secret key:  0x%s\n", hex.EncodeToString(key.Bytes()))
}
