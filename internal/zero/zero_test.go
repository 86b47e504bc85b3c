// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zero

import (
	"bytes"
	"math/big"
	"testing"
)

func makeBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xA5
	}
	return b
}

func TestBytes(t *testing.T) {
	for _, n := range []int{0, 1, 31, 32, 33, 127} {
		b := makeBytes(n)
		Bytes(b)
		if !bytes.Equal(b, make([]byte, n)) {
			t.Errorf("Bytes(%d) did not zero slice", n)
		}
	}
}

func TestByteArrays(t *testing.T) {
	var b16 [16]byte
	var b32 [32]byte
	var b64 [64]byte
	copy(b16[:], makeBytes(16))
	copy(b32[:], makeBytes(32))
	copy(b64[:], makeBytes(64))
	Bytea16(&b16)
	Bytea32(&b32)
	Bytea64(&b64)
	if b16 != [16]byte{} || b32 != [32]byte{} || b64 != [64]byte{} {
		t.Error("fixed size array was not zeroed")
	}
}

func TestBigInt(t *testing.T) {
	x := new(big.Int).SetBytes(makeBytes(32))
	bits := x.Bits()
	BigInt(x)
	if x.Sign() != 0 {
		t.Error("big int value is not zero")
	}
	for i, w := range bits {
		if w != 0 {
			t.Errorf("big int word %d is not zero", i)
		}
	}
}
