// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainkeys

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/zero"
)

// PrivKeyLen is the byte length of a transparent private key scalar.
const PrivKeyLen = 32

// KeyID is the address-level identifier of a transparent key: the Hash160 of
// its serialized public key.
type KeyID [Hash160Size]byte

// TransparentKey is a secp256k1 private key together with the compression
// flag of its public serialization.  The canonical plaintext record is the
// 32-byte scalar followed by the compressed flag.
type TransparentKey struct {
	priv       *secp256k1.PrivateKey
	compressed bool
}

// NewTransparentKey copies the 32-byte scalar into a new key.  The caller
// retains ownership of scalar and should zeroize it.
func NewTransparentKey(scalar []byte, compressed bool) (*TransparentKey, error) {
	const op errors.Op = "chainkeys.NewTransparentKey"
	if len(scalar) != PrivKeyLen {
		return nil, errors.E(op, errors.Invalid,
			errors.Errorf("private key length %d, want %d", len(scalar), PrivKeyLen))
	}
	priv := secp256k1.PrivKeyFromBytes(scalar)
	if priv.Key.IsZero() {
		return nil, errors.E(op, errors.Invalid, "private key scalar is zero")
	}
	return &TransparentKey{priv: priv, compressed: compressed}, nil
}

// Compressed reports whether the public key serializes compressed.
func (k *TransparentKey) Compressed() bool {
	return k.compressed
}

// PrivBytes returns the 32-byte scalar.  The caller must zeroize the
// returned slice.
func (k *TransparentKey) PrivBytes() []byte {
	return k.priv.Serialize()
}

// SerializedPubKey returns the serialized public key in the key's preferred
// compression.
func (k *TransparentKey) SerializedPubKey() []byte {
	pub := k.priv.PubKey()
	if k.compressed {
		return pub.SerializeCompressed()
	}
	return pub.SerializeUncompressed()
}

// KeyID returns the Hash160 of the serialized public key.
func (k *TransparentKey) KeyID() KeyID {
	return KeyID(Hash160(k.SerializedPubKey()))
}

// PubKeyFingerprint returns the record identifier of a serialized public
// key: its double-SHA256 digest.
func PubKeyFingerprint(serializedPubKey []byte) Fingerprint {
	return DoubleSHA256(serializedPubKey)
}

// PubKeyID returns the Hash160 key identifier of a serialized public key.
func PubKeyID(serializedPubKey []byte) KeyID {
	return KeyID(Hash160(serializedPubKey))
}

// Clone returns an independent copy of the key.  Both copies zeroize
// independently.
func (k *TransparentKey) Clone() *TransparentKey {
	b := k.priv.Serialize()
	clone := &TransparentKey{
		priv:       secp256k1.PrivKeyFromBytes(b),
		compressed: k.compressed,
	}
	zero.Bytes(b)
	return clone
}

// Zero clears the private scalar.
func (k *TransparentKey) Zero() {
	k.priv.Zero()
}

// Serialize appends the canonical plaintext record to e.
func (k *TransparentKey) Serialize(e *codec.Encoder) {
	b := k.priv.Serialize()
	e.PutRawBytes(b)
	e.PutBool(k.compressed)
	zero.Bytes(b)
}

// DecodeTransparentKey reads a canonical transparent key record from d.
func DecodeTransparentKey(d *codec.Decoder) (*TransparentKey, error) {
	const op errors.Op = "chainkeys.DecodeTransparentKey"
	scalar, err := d.RawBytes(PrivKeyLen)
	if err != nil {
		return nil, errors.E(op, err)
	}
	compressed, err := d.Bool()
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := d.Finish(); err != nil {
		return nil, errors.E(op, err)
	}
	return NewTransparentKey(scalar, compressed)
}

// VerifyPubKey reports whether the key's derived public key serializes to
// exactly serializedPubKey.  Used after decrypting a transparent key record
// to detect wrong master keys and corrupted ciphertexts.
func (k *TransparentKey) VerifyPubKey(serializedPubKey []byte) bool {
	derived := k.SerializedPubKey()
	if len(derived) != len(serializedPubKey) {
		return false
	}
	var diff byte
	for i := range derived {
		diff |= derived[i] ^ serializedPubKey[i]
	}
	return diff == 0
}
