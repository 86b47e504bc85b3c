// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/secmem"
	"github.com/obscuranet/obwallet/internal/zero"
)

// Every record class is handled by the same two helpers, parameterized by
// the class's canonical codec and fingerprint derivation.  This replaces a
// per-class encrypt/decrypt method pair for each of the record types in the
// catalogue.

// encryptRecord serializes a record with its canonical codec and encrypts
// the result under the master key, with the record identifier supplying the
// IV.  The intermediate plaintext is zeroized before returning.
func encryptRecord(master *secmem.Buffer, id chainkeys.Fingerprint, serialize func(*codec.Encoder)) ([]byte, error) {
	e := codec.NewEncoder(codec.ProtocolVersion)
	serialize(e)
	ct, err := EncryptSecret(master, e.Bytes(), id)
	zero.Bytes(e.Bytes())
	return ct, err
}

// decryptRecord decrypts a record ciphertext and decodes it with the
// class's canonical codec.  When fingerprint is non-nil the decoded record's
// recomputed fingerprint must equal the stored identifier; a differing
// fingerprint means the ciphertext was produced under a different master key
// or has been tampered with, and is reported with kind Mismatch.
func decryptRecord[T any](master *secmem.Buffer, ciphertext []byte,
	id chainkeys.Fingerprint, decode func(*codec.Decoder) (T, error),
	fingerprint func(T) chainkeys.Fingerprint) (T, error) {

	const op errors.Op = "keystore.decryptRecord"
	var missing T
	pt, err := DecryptSecret(master, ciphertext, id)
	if err != nil {
		return missing, errors.E(op, err)
	}
	rec, err := decode(codec.NewDecoder(codec.ProtocolVersion, pt))
	zero.Bytes(pt)
	if err != nil {
		return missing, errors.E(op, errors.Mismatch, err)
	}
	if fingerprint != nil && fingerprint(rec) != id {
		return missing, errors.E(op, errors.Mismatch)
	}
	return rec, nil
}

// Per-class decode and fingerprint registrations for the secret record
// classes scanned by Unlock.

func decodeTransparent(d *codec.Decoder) (*chainkeys.TransparentKey, error) {
	return chainkeys.DecodeTransparentKey(d)
}

func decodeSprout(d *codec.Decoder) (*chainkeys.SproutSpendingKey, error) {
	return chainkeys.DecodeSproutSpendingKey(d)
}

func sproutFingerprint(sk *chainkeys.SproutSpendingKey) chainkeys.Fingerprint {
	addr := sk.Address()
	return addr.Hash()
}

func decodeSapling(d *codec.Decoder) (*chainkeys.SaplingExtSK, error) {
	return chainkeys.DecodeSaplingExtSK(d)
}

func saplingFingerprint(sk *chainkeys.SaplingExtSK) chainkeys.Fingerprint {
	xfvk := sk.ExtFVK()
	return xfvk.Fingerprint()
}

func decodeHDSeed(d *codec.Decoder) (*chainkeys.HDSeed, error) {
	const op errors.Op = "keystore.decodeHDSeed"
	b, err := d.RawBytes(d.Remaining())
	if err != nil {
		return nil, errors.E(op, err)
	}
	return chainkeys.NewHDSeed(b)
}

func hdSeedFingerprint(s *chainkeys.HDSeed) chainkeys.Fingerprint {
	return s.Fingerprint()
}
