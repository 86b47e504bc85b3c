// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletseed provides generation and user-facing encodings of the
// wallet HD seed.  Seeds are backed up either as hexadecimal or as a BIP39
// mnemonic sentence.
package walletseed

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/errors"
)

// GenerateRandomSeed returns a new seed created from a
// cryptographically-secure random source.
func GenerateRandomSeed(size uint) ([]byte, error) {
	const op errors.Op = "walletseed.GenerateRandomSeed"
	if size < chainkeys.MinSeedBytes || size > chainkeys.MaxSeedBytes {
		return nil, errors.E(op, errors.Invalid,
			errors.Errorf("seed size %d out of range [%d,%d]",
				size, chainkeys.MinSeedBytes, chainkeys.MaxSeedBytes))
	}
	seed := make([]byte, size)
	if _, err := rand.Read(seed); err != nil {
		return nil, errors.E(op, err)
	}
	return seed, nil
}

// EncodeMnemonic encodes a seed as a BIP39 mnemonic sentence.  Only seed
// lengths accepted as BIP39 entropy (16, 20, 24, 28, or 32 bytes) can be
// encoded; longer seeds must be backed up as hexadecimal.
func EncodeMnemonic(seed []byte) (string, error) {
	const op errors.Op = "walletseed.EncodeMnemonic"
	mnemonic, err := bip39.NewMnemonic(seed)
	if err != nil {
		return "", errors.E(op, errors.Invalid, err)
	}
	return mnemonic, nil
}

// DecodeUserInput decodes a seed in either hexadecimal or BIP39 mnemonic
// encoding back into its binary form.
func DecodeUserInput(input string) ([]byte, error) {
	const op errors.Op = "walletseed.DecodeUserInput"
	input = strings.TrimSpace(input)
	if !strings.ContainsRune(input, ' ') {
		seed, err := hex.DecodeString(input)
		if err != nil {
			return nil, errors.E(op, errors.Encoding, err)
		}
		if len(seed) < chainkeys.MinSeedBytes || len(seed) > chainkeys.MaxSeedBytes {
			return nil, errors.E(op, errors.Encoding, "decoded seed length out of range")
		}
		return seed, nil
	}
	seed, err := bip39.EntropyFromMnemonic(strings.ToLower(input))
	if err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	return seed, nil
}
