// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainkeys

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/obscuranet/obwallet/codec"
)

func TestFingerprintDomainSeparation(t *testing.T) {
	// The same input under different tags must never collide.
	in := bytes.Repeat([]byte{0x42}, 32)
	sk, err := NewSproutSpendingKey(in)
	if err != nil {
		t.Fatal(err)
	}
	rk := sk.ReceivingKey()
	addr := sk.Address()
	if bytes.Equal(rk[:], addr.PayingKey[:]) ||
		bytes.Equal(addr.PayingKey[:], addr.TransmissionKey[:]) {
		t.Error("derivations under distinct tags collide")
	}
}

func TestHDSeed(t *testing.T) {
	if _, err := NewHDSeed(make([]byte, MinSeedBytes-1)); err == nil {
		t.Error("expected error for short seed")
	}
	if _, err := NewHDSeed(make([]byte, MaxSeedBytes+1)); err == nil {
		t.Error("expected error for long seed")
	}

	raw := bytes.Repeat([]byte{0x1F}, 32)
	seed, err := NewHDSeed(raw)
	if err != nil {
		t.Fatal(err)
	}
	fp1 := seed.Fingerprint()
	fp2 := seed.Fingerprint()
	if fp1 != fp2 {
		t.Error("fingerprint is not deterministic")
	}
	if fp1.IsZero() {
		t.Error("fingerprint is zero")
	}

	// The seed owns a copy of the input.
	raw[0] ^= 0xFF
	if seed.Fingerprint() != fp1 {
		t.Error("seed aliases caller storage")
	}

	seed.Zero()
	if seed.RawSeed() != nil {
		t.Error("zeroed seed still exposes bytes")
	}
}

func TestTransparentKeyRoundTrip(t *testing.T) {
	scalar := bytes.Repeat([]byte{0x01}, PrivKeyLen)
	key, err := NewTransparentKey(scalar, true)
	if err != nil {
		t.Fatal(err)
	}

	e := codec.NewEncoder(codec.ProtocolVersion)
	key.Serialize(e)
	if e.Len() != PrivKeyLen+1 {
		t.Fatalf("serialized length %d", e.Len())
	}

	got, err := DecodeTransparentKey(codec.NewDecoder(codec.ProtocolVersion, e.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.PrivBytes(), scalar) {
		t.Error("scalar round trip mismatch")
	}
	if !got.Compressed() {
		t.Error("compressed flag round trip mismatch")
	}
	if !got.VerifyPubKey(key.SerializedPubKey()) {
		t.Error("derived pubkey does not verify against itself")
	}
	if got.VerifyPubKey(append([]byte{0x02}, make([]byte, 32)...)) {
		t.Error("verify accepted wrong pubkey")
	}
	if got.KeyID() != key.KeyID() {
		t.Error("key id mismatch after round trip")
	}
}

func TestTransparentKeyRejectsZeroScalar(t *testing.T) {
	if _, err := NewTransparentKey(make([]byte, PrivKeyLen), true); err == nil {
		t.Error("expected error for zero scalar")
	}
}

func TestSproutRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, SproutKeyLen)
	sk, err := NewSproutSpendingKey(raw)
	if err != nil {
		t.Fatal(err)
	}
	e := codec.NewEncoder(codec.ProtocolVersion)
	sk.Serialize(e)
	got, err := DecodeSproutSpendingKey(codec.NewDecoder(codec.ProtocolVersion, e.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Address() != sk.Address() {
		t.Error("address mismatch after round trip")
	}
	if got.ReceivingKey() != sk.ReceivingKey() {
		t.Error("receiving key mismatch after round trip")
	}
	gotAddr := got.Address()
	skAddr := sk.Address()
	if gotAddr.Hash() != skAddr.Hash() {
		t.Error("address hash mismatch after round trip")
	}
}

func testExtSK() *SaplingExtSK {
	var sk SaplingExtSK
	for i := range sk.ExpandedKey {
		sk.ExpandedKey[i] = byte(i)
	}
	for i := range sk.ChainCode {
		sk.ChainCode[i] = byte(0x80 + i)
	}
	for i := range sk.XFVK.FVK {
		sk.XFVK.FVK[i] = byte(0x20 + i)
	}
	for i := range sk.XFVK.ChainCode {
		sk.XFVK.ChainCode[i] = byte(0x40 + i)
	}
	for i := range sk.XFVK.DiversifierKey {
		sk.XFVK.DiversifierKey[i] = byte(0x60 + i)
	}
	return &sk
}

func TestSaplingRoundTrip(t *testing.T) {
	sk := testExtSK()
	e := codec.NewEncoder(codec.ProtocolVersion)
	sk.Serialize(e)
	got, err := DecodeSaplingExtSK(codec.NewDecoder(codec.ProtocolVersion, e.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if *got != *sk {
		t.Error("extended spending key round trip mismatch")
	}
	gotFVK := got.ExtFVK()
	if gotFVK.Fingerprint() != sk.XFVK.Fingerprint() {
		t.Error("embedded fvk fingerprint mismatch")
	}

	// Chain code must not alter the fingerprint, the FVK must.
	perturbed := sk.XFVK
	perturbed.ChainCode[0] ^= 1
	if perturbed.Fingerprint() != sk.XFVK.Fingerprint() {
		t.Error("chain code altered fvk fingerprint")
	}
	perturbed = sk.XFVK
	perturbed.FVK[0] ^= 1
	if perturbed.Fingerprint() == sk.XFVK.Fingerprint() {
		t.Error("fvk change did not alter fingerprint")
	}
}

func TestSaplingPaymentAddress(t *testing.T) {
	var addr SaplingPaymentAddress
	copy(addr.Diversifier[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	for i := range addr.PkD {
		addr.PkD[i] = byte(i)
	}
	e := codec.NewEncoder(codec.ProtocolVersion)
	addr.Serialize(e)
	if e.Len() != DiversifierLen+SaplingPkdLen {
		t.Fatalf("serialized length %d", e.Len())
	}
	d := codec.NewDecoder(codec.ProtocolVersion, e.Bytes())
	got, err := DecodeSaplingPaymentAddress(d)
	if err != nil {
		t.Fatal(err)
	}
	if got != addr {
		t.Error("address round trip mismatch")
	}
	if got.Hash() != addr.Hash() {
		t.Error("address hash mismatch")
	}
}

func TestKeyMetadataRoundTrip(t *testing.T) {
	m := &KeyMetadata{
		Version:    CurrentMetadataVersion,
		CreateTime: 1700000000,
		KeyPath:    "m/32'/133'/0'",
	}
	for i := range m.SeedFP {
		m.SeedFP[i] = byte(i)
	}
	e := codec.NewEncoder(codec.ProtocolVersion)
	m.Serialize(e)
	got, err := DecodeKeyMetadata(codec.NewDecoder(codec.ProtocolVersion, e.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if *got != *m {
		t.Errorf("metadata round trip mismatch: got %+v want %+v", got, m)
	}
}

func TestHash160(t *testing.T) {
	// Hash160 of an empty input, cross-checked against the well-known
	// ripemd160(sha256("")) value.
	got := Hash160(nil)
	want := "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb"
	if gotHex := hex.EncodeToString(got[:]); gotHex != want {
		t.Errorf("Hash160(nil) = %s want %s", gotHex, want)
	}
}
