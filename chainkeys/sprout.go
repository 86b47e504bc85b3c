// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainkeys

import (
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/zero"
)

// SproutKeyLen is the byte length of a sprout spending key.
const SproutKeyLen = 32

// SproutSpendingKey is a legacy shielded spending key.  The paying key,
// transmission key, and receiving key are all derived from it, so the
// payment address is recomputable from the decrypted record and serves as
// its fingerprint check.
type SproutSpendingKey struct {
	key [SproutKeyLen]byte
}

// SproutReceivingKey permits detection and decryption of incoming notes for
// a sprout address but not spending.
type SproutReceivingKey [32]byte

// SproutPaymentAddress is the public-facing address of a sprout spending
// key.
type SproutPaymentAddress struct {
	PayingKey       [32]byte
	TransmissionKey [32]byte
}

// NewSproutSpendingKey copies the 32-byte key into a new spending key.  The
// caller retains ownership of b and should zeroize it.
func NewSproutSpendingKey(b []byte) (*SproutSpendingKey, error) {
	const op errors.Op = "chainkeys.NewSproutSpendingKey"
	if len(b) != SproutKeyLen {
		return nil, errors.E(op, errors.Invalid,
			errors.Errorf("spending key length %d, want %d", len(b), SproutKeyLen))
	}
	var sk SproutSpendingKey
	copy(sk.key[:], b)
	return &sk, nil
}

// ReceivingKey derives the note receiving key.
func (sk *SproutSpendingKey) ReceivingKey() SproutReceivingKey {
	return SproutReceivingKey(blake256(tagSproutReceive, sk.key[:]))
}

// Address derives the payment address.
func (sk *SproutSpendingKey) Address() SproutPaymentAddress {
	return SproutPaymentAddress{
		PayingKey:       blake256(tagSproutPaying, sk.key[:]),
		TransmissionKey: blake256(tagSproutTransmit, sk.key[:]),
	}
}

// Zero clears the spending key.
func (sk *SproutSpendingKey) Zero() {
	zero.Bytea32(&sk.key)
}

// Serialize appends the canonical plaintext record to e.
func (sk *SproutSpendingKey) Serialize(e *codec.Encoder) {
	e.PutRawBytes(sk.key[:])
}

// DecodeSproutSpendingKey reads a canonical sprout spending key record from
// d.
func DecodeSproutSpendingKey(d *codec.Decoder) (*SproutSpendingKey, error) {
	const op errors.Op = "chainkeys.DecodeSproutSpendingKey"
	b, err := d.RawBytes(SproutKeyLen)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := d.Finish(); err != nil {
		return nil, errors.E(op, err)
	}
	return NewSproutSpendingKey(b)
}

// Hash returns the address fingerprint used as the record identifier of the
// spending key.
func (a *SproutPaymentAddress) Hash() Fingerprint {
	return blake256(tagSproutAddrFP, a.PayingKey[:], a.TransmissionKey[:])
}
