// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package kdf derives the wallet master encryption key and IV from a
// passphrase.  The derivation is the legacy OpenSSL EVP_BytesToKey
// construction over SHA-512 and must remain bit-identical to the output
// recorded in existing wallet databases.
package kdf

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/zero"
)

const (
	// SaltSize is the required byte length of the derivation salt.
	SaltSize = 8

	// KeySize and IVSize are the lengths of the derived key material.
	KeySize = 32
	IVSize  = 16

	// MethodSHA512 is the only supported derivation method: iterated
	// SHA-512 over passphrase and salt, equivalent to OpenSSL
	// EVP_BytesToKey(AES-256-CBC, SHA-512).
	MethodSHA512 = 0
)

// Params describes the difficulty parameters of a passphrase derivation.
// Params are recorded next to the crypted master key so the same key can be
// rederived on unlock.
type Params struct {
	Salt   [SaltSize]byte
	Rounds uint32
	Method uint32
}

// MarshaledLen is the length of the marshaled KDF parameters.
const MarshaledLen = SaltSize + 4 + 4

// MarshalBinary implements encoding.BinaryMarshaler.
// The returned byte slice has length MarshaledLen.
func (p *Params) MarshalBinary() ([]byte, error) {
	b := make([]byte, MarshaledLen)
	copy(b, p.Salt[:])
	binary.LittleEndian.PutUint32(b[SaltSize:], p.Rounds)
	binary.LittleEndian.PutUint32(b[SaltSize+4:], p.Method)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Params) UnmarshalBinary(data []byte) error {
	const op errors.Op = "kdf.UnmarshalBinary"
	if len(data) != MarshaledLen {
		return errors.E(op, errors.Encoding, "invalid marshaled KDF parameters")
	}
	copy(p.Salt[:], data)
	p.Rounds = binary.LittleEndian.Uint32(data[SaltSize:])
	p.Method = binary.LittleEndian.Uint32(data[SaltSize+4:])
	return nil
}

// DeriveKeyIV derives a 32-byte AES key and 16-byte IV from a passphrase and
// derivation parameters.  The returned arrays are owned by the caller, who
// must zeroize them after use.
//
// Method 0 computes D = SHA-512^rounds(passphrase ∥ salt), iterating the hash
// rounds times, and splits D into key ∥ iv.  The output is byte-for-byte the
// historical EVP_BytesToKey(AES-256-CBC, SHA-512) result.
func DeriveKeyIV(passphrase []byte, p *Params) (*[KeySize]byte, *[IVSize]byte, error) {
	const op errors.Op = "kdf.DeriveKeyIV"
	if p.Rounds < 1 {
		return nil, nil, errors.E(op, errors.Invalid, "rounds must be positive")
	}
	if p.Method != MethodSHA512 {
		return nil, nil, errors.E(op, errors.Invalid,
			errors.Errorf("unknown derivation method %d", p.Method))
	}

	h := sha512.New()
	h.Write(passphrase)
	h.Write(p.Salt[:])
	d := h.Sum(nil)
	for i := uint32(1); i < p.Rounds; i++ {
		sum := sha512.Sum512(d)
		copy(d, sum[:])
		zero.Bytea64(&sum)
	}

	// A single SHA-512 block covers the 48 bytes of key material needed,
	// so the multi-block extension of EVP_BytesToKey is never entered.
	key := new([KeySize]byte)
	iv := new([IVSize]byte)
	copy(key[:], d[:KeySize])
	copy(iv[:], d[KeySize:KeySize+IVSize])
	zero.Bytes(d)
	return key, iv, nil
}
