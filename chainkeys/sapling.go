// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainkeys

import (
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/zero"
)

// Serialized field lengths of the sapling key material.
const (
	SaplingFVKLen      = 96 // ak ∥ nk ∥ ovk
	SaplingChainLen    = 32
	SaplingDivKeyLen   = 32
	SaplingExpandedLen = 96 // ask ∥ nsk ∥ ovk
	SaplingIVKLen      = 32
	SaplingPkdLen      = 32

	// DiversifierLen is the byte length of the 88-bit diversifier path.
	DiversifierLen = 11
)

// SaplingIVK is an incoming viewing key.
type SaplingIVK [SaplingIVKLen]byte

// DiversifierPath is the 88-bit diversifier selecting one payment address
// among those sharing an incoming viewing key.
type DiversifierPath [DiversifierLen]byte

// SaplingPaymentAddress is a diversified shielded address.
type SaplingPaymentAddress struct {
	Diversifier DiversifierPath
	PkD         [SaplingPkdLen]byte
}

// Hash returns the address fingerprint used as the record identifier of
// payment-address metadata records.
func (a *SaplingPaymentAddress) Hash() Fingerprint {
	return blake256(tagSaplingAddrFP, a.Diversifier[:], a.PkD[:])
}

// Serialize appends the canonical address encoding to e.
func (a *SaplingPaymentAddress) Serialize(e *codec.Encoder) {
	e.PutRawBytes(a.Diversifier[:])
	e.PutRawBytes(a.PkD[:])
}

// DecodeSaplingPaymentAddress reads a canonical address encoding from d.
// The stream is not required to end at the address, so composite records can
// decode addresses in sequence.
func DecodeSaplingPaymentAddress(d *codec.Decoder) (SaplingPaymentAddress, error) {
	const op errors.Op = "chainkeys.DecodeSaplingPaymentAddress"
	var a SaplingPaymentAddress
	b, err := d.RawBytes(DiversifierLen)
	if err != nil {
		return a, errors.E(op, err)
	}
	copy(a.Diversifier[:], b)
	b, err = d.RawBytes(SaplingPkdLen)
	if err != nil {
		return a, errors.E(op, err)
	}
	copy(a.PkD[:], b)
	return a, nil
}

// SaplingExtFVK is an extended full viewing key: the full viewing key plus
// the chain code and diversifier key enabling deterministic derivation of
// child viewing keys and diversified addresses.  It is comparable and used
// directly as a map key.
type SaplingExtFVK struct {
	FVK            [SaplingFVKLen]byte
	ChainCode      [SaplingChainLen]byte
	DiversifierKey [SaplingDivKeyLen]byte
}

// Fingerprint returns the extended FVK's record identifier.  Only the full
// viewing key participates; the chain code and diversifier key do not alter
// the fingerprint.
func (k *SaplingExtFVK) Fingerprint() Fingerprint {
	return blake256(tagSaplingFVKFP, k.FVK[:])
}

// IVK derives the incoming viewing key of the full viewing key.
func (k *SaplingExtFVK) IVK() SaplingIVK {
	return SaplingIVK(blake256(tagSaplingIVK, k.FVK[:]))
}

// Serialize appends the canonical extended FVK encoding to e.
func (k *SaplingExtFVK) Serialize(e *codec.Encoder) {
	e.PutRawBytes(k.FVK[:])
	e.PutRawBytes(k.ChainCode[:])
	e.PutRawBytes(k.DiversifierKey[:])
}

// DecodeSaplingExtFVK reads a canonical extended FVK encoding from d.  As
// with addresses, the stream may continue past the key.
func DecodeSaplingExtFVK(d *codec.Decoder) (SaplingExtFVK, error) {
	const op errors.Op = "chainkeys.DecodeSaplingExtFVK"
	var k SaplingExtFVK
	b, err := d.RawBytes(SaplingFVKLen)
	if err != nil {
		return SaplingExtFVK{}, errors.E(op, err)
	}
	copy(k.FVK[:], b)
	b, err = d.RawBytes(SaplingChainLen)
	if err != nil {
		return SaplingExtFVK{}, errors.E(op, err)
	}
	copy(k.ChainCode[:], b)
	b, err = d.RawBytes(SaplingDivKeyLen)
	if err != nil {
		return SaplingExtFVK{}, errors.E(op, err)
	}
	copy(k.DiversifierKey[:], b)
	return k, nil
}

// SaplingExtSK is an extended spending key.  The serialized form embeds the
// extended full viewing key so that decrypting a spending key record allows
// recomputing the identifier fingerprint without spend-authority key
// derivation.
type SaplingExtSK struct {
	ExpandedKey [SaplingExpandedLen]byte
	ChainCode   [SaplingChainLen]byte
	XFVK        SaplingExtFVK
}

// ExtFVK returns the embedded extended full viewing key.
func (sk *SaplingExtSK) ExtFVK() SaplingExtFVK {
	return sk.XFVK
}

// Zero clears the spend-authorizing key material.  The embedded viewing key
// is viewing material and is left intact.
func (sk *SaplingExtSK) Zero() {
	for i := range sk.ExpandedKey {
		sk.ExpandedKey[i] = 0
	}
	zero.Bytea32(&sk.ChainCode)
}

// Serialize appends the canonical extended spending key encoding to e.
func (sk *SaplingExtSK) Serialize(e *codec.Encoder) {
	e.PutRawBytes(sk.ExpandedKey[:])
	e.PutRawBytes(sk.ChainCode[:])
	sk.XFVK.Serialize(e)
}

// DecodeSaplingExtSK reads a canonical extended spending key record from d.
func DecodeSaplingExtSK(d *codec.Decoder) (*SaplingExtSK, error) {
	const op errors.Op = "chainkeys.DecodeSaplingExtSK"
	var sk SaplingExtSK
	b, err := d.RawBytes(SaplingExpandedLen)
	if err != nil {
		return nil, errors.E(op, err)
	}
	copy(sk.ExpandedKey[:], b)
	b, err = d.RawBytes(SaplingChainLen)
	if err != nil {
		return nil, errors.E(op, err)
	}
	copy(sk.ChainCode[:], b)
	sk.XFVK, err = DecodeSaplingExtFVK(d)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if err := d.Finish(); err != nil {
		return nil, errors.E(op, err)
	}
	return &sk, nil
}
