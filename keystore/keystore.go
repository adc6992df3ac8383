// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

/*
The keystore package loads encrypted secp256k1 key files and exposes them as
signers for the bridge adapters. Key files follow the ChainSafe keystore
format: one "<address>.key" file per account, decrypted with a password taken
from the KEYSTORE_PASSWORD environment variable or prompted interactively.
*/
package keystore

import (
	"fmt"
	"os"
	"syscall"

	"github.com/ChainSafe/chainbridge-utils/crypto/secp256k1"
	cbkeystore "github.com/ChainSafe/chainbridge-utils/keystore"
	terminal "golang.org/x/term"
)

const EnvPassword = "KEYSTORE_PASSWORD"

// password cache so one account used across both chains is only prompted once
var keyPassCache = map[string][]byte{}

// KeypairFromAddress loads and decrypts the key file for the given address.
func KeypairFromAddress(addr, path string) (*secp256k1.Keypair, error) {
	path = fmt.Sprintf("%s/%s.key", path, addr)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("key file not found: %s", path)
	}

	var pswd []byte
	if cached, exist := keyPassCache[addr]; exist {
		pswd = cached
	} else {
		if pswdStr := os.Getenv(EnvPassword); pswdStr != "" {
			pswd = []byte(pswdStr)
		} else {
			pswd = GetPassword(fmt.Sprintf("Enter password for key %s:", path))
		}
		keyPassCache[addr] = pswd
	}

	kp, err := cbkeystore.ReadFromFileAndDecrypt(path, pswd, "secp256k1")
	if err != nil {
		return nil, err
	}
	skp, ok := kp.(*secp256k1.Keypair)
	if !ok {
		return nil, fmt.Errorf("unexpected key type in %s", path)
	}
	return skp, nil
}

// GetPassword prompts the user for the keystore password.
func GetPassword(msg string) []byte {
	for {
		fmt.Println(msg)
		fmt.Print("> ")
		password, err := terminal.ReadPassword(int(syscall.Stdin))
		if err != nil {
			fmt.Printf("invalid input: %s\n", err)
		} else {
			fmt.Printf("\n")
			return password
		}
	}
}
