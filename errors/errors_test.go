// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package errors

import (
	"io"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err error
		str string
	}{
		{E(Locked), "keystore locked"},
		{E(Op("Unlock"), Passphrase), "Unlock: invalid passphrase"},
		{E(Op("GetKey"), NotExist, "no key for id"), "GetKey: item does not exist: no key for id"},
		{E(Op("Unlock"), Crypto, E(Op("Decrypt"), NotKeyed)),
			"Unlock: encryption/decryption error" + Separator +
				"Decrypt: cipher key material not set"},
		{E(Op("SetCryptedHDSeed"), E(Op("SetCryptedHDSeed"), Exist)),
			"SetCryptedHDSeed: item already exists"},
	}
	for i, test := range tests {
		str := test.err.Error()
		if str != test.str {
			t.Errorf("test %d: got %q want %q", i, str, test.str)
		}
	}
}

func TestIs(t *testing.T) {
	err := E(Op("Unlock"), Passphrase, New("unlock failed"))
	if !Is(Passphrase, err) {
		t.Error("expected Passphrase kind match")
	}
	if Is(Locked, err) {
		t.Error("unexpected Locked kind match")
	}
	// Kinds of nested errors are matched when the outer error is
	// unclassified.
	outer := E(Op("SetHDSeed"), err)
	if !Is(Passphrase, outer) {
		t.Error("expected nested Passphrase kind match")
	}
	if Is(Passphrase, io.EOF) {
		t.Error("unexpected kind match against non-Error")
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		err1, err2 error
		match      bool
	}{
		{E(Locked), E(Op("GetKey"), Locked), true},
		{E(Op("GetKey")), E(Op("GetKey"), Locked), true},
		{E(Op("GetKey"), Locked), E(Op("AddKey"), Locked), false},
		{E(Mismatch), E(Crypto), false},
		{E(Op("Unlock"), E(Passphrase)), E(Op("Unlock"), Passphrase), true},
	}
	for i, test := range tests {
		if got := Match(test.err1, test.err2); got != test.match {
			t.Errorf("test %d: Match = %v want %v", i, got, test.match)
		}
	}
}

func TestCollapse(t *testing.T) {
	// Wrapping an *Error without adding unique fields must not create a
	// duplicate link in the chain.
	inner := E(Op("Decrypt"), Crypto)
	outer := E(inner).(*Error)
	if outer.Op != "Decrypt" || outer.Kind != Crypto {
		t.Fatalf("fields were not promoted: %+v", outer)
	}
	if _, ok := outer.Err.(*Error); ok {
		t.Fatal("redundant nested error was not collapsed")
	}
}
