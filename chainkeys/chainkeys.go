// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainkeys defines the key and address types stored by the wallet
// keystore, their canonical serializations, and the fingerprint derivations
// used both to identify records and to verify them after decryption.
//
// Fingerprints are keyed BLAKE2b-256 digests.  The key of each digest is an
// ASCII tag unique to the derivation, which separates the domains of every
// fingerprint class.  The tags are part of the on-disk format and must never
// change.
package chainkeys

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
)

// Domain separation tags for the fingerprint derivations.
const (
	tagHDSeedFP       = "ObscHDSeedFP"
	tagSproutPaying   = "ObscSproutPayK"
	tagSproutTransmit = "ObscSproutTmK"
	tagSproutReceive  = "ObscSproutRcvK"
	tagSproutAddrFP   = "ObscSproutAddrFP"
	tagSaplingFVKFP   = "ObscSaplingFVFP"
	tagSaplingIVK     = "ObscSaplingIVK"
	tagSaplingAddrFP  = "ObscSaplingAdrFP"
)

// FingerprintSize is the byte length of every record identifier.
const FingerprintSize = 32

// Fingerprint is a 32-byte record identifier.  Depending on the record class
// it is either a domain digest of the record's public material or a
// caller-supplied handle.  The first 16 bytes double as the CBC IV of the
// record's ciphertext.
type Fingerprint [FingerprintSize]byte

// String returns the fingerprint as a hex string.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether the fingerprint is all zero bytes.  The zero
// fingerprint is reserved as "no record".
func (f *Fingerprint) IsZero() bool {
	return *f == Fingerprint{}
}

// blake256 computes the keyed BLAKE2b-256 digest of the concatenated data
// under the given domain tag.
func blake256(tag string, data ...[]byte) Fingerprint {
	h, err := blake2b.New256([]byte(tag))
	if err != nil {
		panic("chainkeys: bad fingerprint tag: " + err.Error())
	}
	for _, d := range data {
		h.Write(d)
	}
	var f Fingerprint
	h.Sum(f[:0])
	return f
}

// DoubleSHA256 computes sha256(sha256(b)) as a Fingerprint.  It identifies
// transparent keys by their serialized public key, matching the legacy
// format.
func DoubleSHA256(b []byte) Fingerprint {
	first := sha256.Sum256(b)
	return Fingerprint(sha256.Sum256(first[:]))
}

// Hash160Size is the byte length of a transparent key or script hash.
const Hash160Size = ripemd160.Size

// Hash160 computes ripemd160(sha256(b)), the address-level hash of
// transparent public keys and redeem scripts.
func Hash160(b []byte) [Hash160Size]byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	var out [Hash160Size]byte
	h.Sum(out[:0])
	return out
}
