// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainkeys

import (
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
)

// KeyMetadata records non-secret provenance of a key: when it was created
// and, for derived keys, the derivation path and originating seed.  Metadata
// is stored encrypted alongside the key it describes and shares the key's
// record identifier.
type KeyMetadata struct {
	Version    uint32
	CreateTime int64 // unix seconds; 0 means unknown
	KeyPath    string
	SeedFP     Fingerprint
}

// CurrentMetadataVersion is the version written for new metadata records.
const CurrentMetadataVersion uint32 = 1

// Serialize appends the canonical metadata record to e.
func (m *KeyMetadata) Serialize(e *codec.Encoder) {
	e.PutUint32(m.Version)
	e.PutUint64(uint64(m.CreateTime))
	e.PutString(m.KeyPath)
	e.PutRawBytes(m.SeedFP[:])
}

// DecodeKeyMetadata reads a canonical metadata record from d.
func DecodeKeyMetadata(d *codec.Decoder) (*KeyMetadata, error) {
	const op errors.Op = "chainkeys.DecodeKeyMetadata"
	var m KeyMetadata
	var err error
	m.Version, err = d.Uint32()
	if err != nil {
		return nil, errors.E(op, err)
	}
	createTime, err := d.Uint64()
	if err != nil {
		return nil, errors.E(op, err)
	}
	m.CreateTime = int64(createTime)
	m.KeyPath, err = d.String()
	if err != nil {
		return nil, errors.E(op, err)
	}
	b, err := d.RawBytes(FingerprintSize)
	if err != nil {
		return nil, errors.E(op, err)
	}
	copy(m.SeedFP[:], b)
	if err := d.Finish(); err != nil {
		return nil, errors.E(op, err)
	}
	return &m, nil
}
