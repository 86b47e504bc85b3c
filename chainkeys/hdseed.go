// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainkeys

import (
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/zero"
)

// Allowed HD seed lengths in bytes.
const (
	MinSeedBytes = 16
	MaxSeedBytes = 64
)

// HDSeed is the root secret of the hierarchical deterministic wallet.  The
// plaintext record is the raw seed bytes with no framing; the record
// identifier is the seed fingerprint.
type HDSeed struct {
	seed []byte
}

// NewHDSeed copies b into a new seed.  The caller retains ownership of b and
// should zeroize it.
func NewHDSeed(b []byte) (*HDSeed, error) {
	const op errors.Op = "chainkeys.NewHDSeed"
	if len(b) < MinSeedBytes || len(b) > MaxSeedBytes {
		return nil, errors.E(op, errors.Seed,
			errors.Errorf("seed length %d out of range [%d,%d]",
				len(b), MinSeedBytes, MaxSeedBytes))
	}
	seed := make([]byte, len(b))
	copy(seed, b)
	return &HDSeed{seed: seed}, nil
}

// RawSeed returns the seed bytes.  The slice aliases the seed's storage.
func (s *HDSeed) RawSeed() []byte {
	return s.seed
}

// Fingerprint returns the seed's domain fingerprint.
func (s *HDSeed) Fingerprint() Fingerprint {
	return blake256(tagHDSeedFP, s.seed)
}

// Zero clears the seed bytes.
func (s *HDSeed) Zero() {
	zero.Bytes(s.seed)
	s.seed = nil
}
