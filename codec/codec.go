// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package codec implements the canonical byte serialization of keystore
// records.  Encoding is deterministic and independent of in-memory layout;
// the persisted ciphertext of every record is the encryption of exactly the
// bytes produced here.  Integers are little endian and variable length data
// is prefixed with a Bitcoin-style compact size, matching the legacy wallet
// stream format.
package codec

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/obscuranet/obwallet/errors"
)

// ProtocolVersion is the default stream version used when serializing new
// records.  Version gating uses the stream version supplied at construction,
// never bytes inside the record.
const ProtocolVersion uint32 = 1

// Encoder appends canonically serialized primitives to a buffer.
type Encoder struct {
	pver uint32
	buf  bytes.Buffer
}

// NewEncoder returns an encoder producing a stream readable by a Decoder
// constructed with the same protocol version.
func NewEncoder(pver uint32) *Encoder {
	return &Encoder{pver: pver}
}

// Version returns the protocol version the stream is serialized with.
func (e *Encoder) Version() uint32 { return e.pver }

// Bytes returns the serialized stream.  The slice is owned by the encoder
// and valid until the next Put call.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// Len returns the current serialized length.
func (e *Encoder) Len() int { return e.buf.Len() }

// PutUint8 appends a single byte.
func (e *Encoder) PutUint8(v uint8) {
	e.buf.WriteByte(v)
}

// PutUint16 appends a little endian uint16.
func (e *Encoder) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

// PutUint32 appends a little endian uint32.
func (e *Encoder) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

// PutUint64 appends a little endian uint64.
func (e *Encoder) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// PutBool appends a boolean as a single 0 or 1 byte.
func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// PutRawBytes appends b with no length prefix.  Used for fixed width fields
// whose length is implied by the record type.
func (e *Encoder) PutRawBytes(b []byte) {
	e.buf.Write(b)
}

// PutCompactSize appends n in the minimal compact size encoding.
func (e *Encoder) PutCompactSize(n uint64) {
	switch {
	case n < 0xfd:
		e.buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		e.buf.WriteByte(0xfd)
		e.PutUint16(uint16(n))
	case n <= math.MaxUint32:
		e.buf.WriteByte(0xfe)
		e.PutUint32(uint32(n))
	default:
		e.buf.WriteByte(0xff)
		e.PutUint64(n)
	}
}

// PutVarBytes appends b prefixed with its compact size length.
func (e *Encoder) PutVarBytes(b []byte) {
	e.PutCompactSize(uint64(len(b)))
	e.buf.Write(b)
}

// PutString appends the UTF-8 bytes of s prefixed with their compact size
// length.
func (e *Encoder) PutString(s string) {
	e.PutCompactSize(uint64(len(s)))
	e.buf.WriteString(s)
}

// Decoder consumes a canonically serialized stream.  All methods return an
// error of kind Encoding when the stream is truncated or not minimal.
type Decoder struct {
	pver uint32
	b    []byte
	off  int
}

// NewDecoder returns a decoder over b using the supplied protocol version.
func NewDecoder(pver uint32, b []byte) *Decoder {
	return &Decoder{pver: pver, b: b}
}

// Version returns the protocol version the stream is deserialized with.
func (d *Decoder) Version() uint32 { return d.pver }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.b) - d.off }

func (d *Decoder) take(op errors.Op, n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, errors.E(op, errors.Encoding, "unexpected end of stream")
	}
	b := d.b[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	b, err := d.take("codec.Uint8", 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads a little endian uint16.
func (d *Decoder) Uint16() (uint16, error) {
	b, err := d.take("codec.Uint16", 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little endian uint32.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take("codec.Uint32", 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads a little endian uint64.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take("codec.Uint64", 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Bool reads a boolean encoded as a single 0 or 1 byte.  Any other byte
// value is rejected to keep the stream canonical.
func (d *Decoder) Bool() (bool, error) {
	const op errors.Op = "codec.Bool"
	b, err := d.take(op, 1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.E(op, errors.Encoding, "non-canonical bool")
}

// RawBytes reads n bytes with no length prefix.  The returned slice aliases
// the input stream.
func (d *Decoder) RawBytes(n int) ([]byte, error) {
	return d.take("codec.RawBytes", n)
}

// CompactSize reads a compact size integer, rejecting non-minimal encodings.
func (d *Decoder) CompactSize() (uint64, error) {
	const op errors.Op = "codec.CompactSize"
	b, err := d.take(op, 1)
	if err != nil {
		return 0, err
	}
	switch b[0] {
	case 0xfd:
		v, err := d.Uint16()
		if err != nil {
			return 0, err
		}
		if v < 0xfd {
			return 0, errors.E(op, errors.Encoding, "non-minimal compact size")
		}
		return uint64(v), nil
	case 0xfe:
		v, err := d.Uint32()
		if err != nil {
			return 0, err
		}
		if v <= math.MaxUint16 {
			return 0, errors.E(op, errors.Encoding, "non-minimal compact size")
		}
		return uint64(v), nil
	case 0xff:
		v, err := d.Uint64()
		if err != nil {
			return 0, err
		}
		if v <= math.MaxUint32 {
			return 0, errors.E(op, errors.Encoding, "non-minimal compact size")
		}
		return v, nil
	}
	return uint64(b[0]), nil
}

// VarBytes reads a compact size length prefix followed by that many bytes.
// The returned slice is a copy.
func (d *Decoder) VarBytes() ([]byte, error) {
	const op errors.Op = "codec.VarBytes"
	n, err := d.CompactSize()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, errors.E(op, errors.Encoding, "length prefix exceeds stream")
	}
	b, err := d.take(op, int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// String reads a compact size length prefix followed by that many UTF-8
// bytes.
func (d *Decoder) String() (string, error) {
	b, err := d.VarBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Finish returns an error unless the entire stream has been consumed.
// Records never carry trailing bytes; anything left over means the
// ciphertext decrypted to a value of the wrong shape.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return errors.E(errors.Op("codec.Finish"), errors.Encoding,
			errors.Errorf("%d trailing bytes", d.Remaining()))
	}
	return nil
}
