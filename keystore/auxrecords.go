// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/secmem"
)

// Auxiliary record helpers.  These encrypt and decrypt satellite records
// (redeem scripts, public keys, string pairs, wallet transactions, key
// metadata, diversifier state) under the master key without storing them in
// the keystore; the wallet persistence layer owns their storage.  Every
// helper requires the store to be unlocked.
//
// For the classes with caller-supplied handles, handle uniqueness per
// logical record is the caller's obligation: the handle provides the CBC IV
// and reuse across distinct plaintexts weakens the legacy format.

// masterKeyRef returns the master key for a helper operation, or an error
// describing the mode that prevents it.
//
// keyMu must be held.
func (s *CryptoKeyStore) masterKeyRef(op errors.Op) (*secmem.Buffer, error) {
	switch s.mode {
	case modePlaintext:
		return nil, errors.E(op, errors.Plaintext)
	case modeLocked:
		return nil, errors.E(op, errors.Locked)
	}
	return s.masterKey, nil
}

// EncryptRedeemScript encrypts a redeem script record, returning its
// identifier (the script's double-SHA256 fingerprint) and ciphertext.
func (s *CryptoKeyStore) EncryptRedeemScript(script []byte) (chainkeys.Fingerprint, []byte, error) {
	const op errors.Op = "keystore.EncryptRedeemScript"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return chainkeys.Fingerprint{}, nil, err
	}
	fp := chainkeys.ScriptFingerprint(script)
	ct, err := encryptRecord(master, fp, func(e *codec.Encoder) {
		e.PutVarBytes(script)
	})
	if err != nil {
		return chainkeys.Fingerprint{}, nil, errors.E(op, err)
	}
	return fp, ct, nil
}

// DecryptRedeemScript decrypts a redeem script record and verifies the
// script fingerprint against the identifier.
func (s *CryptoKeyStore) DecryptRedeemScript(fp chainkeys.Fingerprint, ciphertext []byte) ([]byte, error) {
	const op errors.Op = "keystore.DecryptRedeemScript"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	script, err := decryptRecord(master, ciphertext, fp,
		func(d *codec.Decoder) ([]byte, error) {
			b, err := d.VarBytes()
			if err != nil {
				return nil, err
			}
			return b, d.Finish()
		},
		chainkeys.ScriptFingerprint)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return script, nil
}

// EncryptPublicKey encrypts a serialized public key record under a
// caller-supplied handle.
func (s *CryptoKeyStore) EncryptPublicKey(handle chainkeys.Fingerprint, pubKey []byte) ([]byte, error) {
	const op errors.Op = "keystore.EncryptPublicKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	ct, err := encryptRecord(master, handle, func(e *codec.Encoder) {
		e.PutVarBytes(pubKey)
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return ct, nil
}

// DecryptPublicKey decrypts a public key record.
func (s *CryptoKeyStore) DecryptPublicKey(handle chainkeys.Fingerprint, ciphertext []byte) ([]byte, error) {
	const op errors.Op = "keystore.DecryptPublicKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	pub, err := decryptRecord(master, ciphertext, handle,
		func(d *codec.Decoder) ([]byte, error) {
			b, err := d.VarBytes()
			if err != nil {
				return nil, err
			}
			return b, d.Finish()
		}, nil)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return pub, nil
}

// EncryptStringPair encrypts two UTF-8 strings as one record under a
// caller-supplied handle.  Each string is length-prefixed in the canonical
// stream.
func (s *CryptoKeyStore) EncryptStringPair(handle chainkeys.Fingerprint, first, second string) ([]byte, error) {
	const op errors.Op = "keystore.EncryptStringPair"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	ct, err := encryptRecord(master, handle, func(e *codec.Encoder) {
		e.PutString(first)
		e.PutString(second)
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return ct, nil
}

// DecryptStringPair decrypts a string pair record.
func (s *CryptoKeyStore) DecryptStringPair(handle chainkeys.Fingerprint, ciphertext []byte) (first, second string, err error) {
	const op errors.Op = "keystore.DecryptStringPair"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return "", "", err
	}
	type pair struct{ first, second string }
	p, err := decryptRecord(master, ciphertext, handle,
		func(d *codec.Decoder) (pair, error) {
			var p pair
			var err error
			if p.first, err = d.String(); err != nil {
				return p, err
			}
			if p.second, err = d.String(); err != nil {
				return p, err
			}
			return p, d.Finish()
		}, nil)
	if err != nil {
		return "", "", errors.E(op, err)
	}
	return p.first, p.second, nil
}

// EncryptWalletTx encrypts an opaque wallet transaction blob under a
// caller-supplied handle.  The blob is encrypted as-is with no framing.
func (s *CryptoKeyStore) EncryptWalletTx(handle chainkeys.Fingerprint, blob []byte) ([]byte, error) {
	const op errors.Op = "keystore.EncryptWalletTx"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	ct, err := EncryptSecret(master, blob, handle)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return ct, nil
}

// DecryptWalletTx decrypts an opaque wallet transaction blob.
func (s *CryptoKeyStore) DecryptWalletTx(handle chainkeys.Fingerprint, ciphertext []byte) ([]byte, error) {
	const op errors.Op = "keystore.DecryptWalletTx"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	blob, err := DecryptSecret(master, ciphertext, handle)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return blob, nil
}

// EncryptKeyMetadata encrypts a key metadata record under the fingerprint
// of the key it describes.
func (s *CryptoKeyStore) EncryptKeyMetadata(fp chainkeys.Fingerprint, meta *chainkeys.KeyMetadata) ([]byte, error) {
	const op errors.Op = "keystore.EncryptKeyMetadata"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	ct, err := encryptRecord(master, fp, meta.Serialize)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return ct, nil
}

// DecryptKeyMetadata decrypts a key metadata record.
func (s *CryptoKeyStore) DecryptKeyMetadata(fp chainkeys.Fingerprint, ciphertext []byte) (*chainkeys.KeyMetadata, error) {
	const op errors.Op = "keystore.DecryptKeyMetadata"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	meta, err := decryptRecord(master, ciphertext, fp, chainkeys.DecodeKeyMetadata, nil)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return meta, nil
}

// EncryptLastDiversifier encrypts the (ivk, path) last-diversifier record
// under a caller-supplied handle.
func (s *CryptoKeyStore) EncryptLastDiversifier(handle chainkeys.Fingerprint, ivk chainkeys.SaplingIVK, path chainkeys.DiversifierPath) ([]byte, error) {
	const op errors.Op = "keystore.EncryptLastDiversifier"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return nil, err
	}
	ct, err := encryptRecord(master, handle, func(e *codec.Encoder) {
		e.PutRawBytes(ivk[:])
		e.PutRawBytes(path[:])
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return ct, nil
}

// DecryptLastDiversifier decrypts a last-diversifier record.
func (s *CryptoKeyStore) DecryptLastDiversifier(handle chainkeys.Fingerprint, ciphertext []byte) (chainkeys.SaplingIVK, chainkeys.DiversifierPath, error) {
	const op errors.Op = "keystore.DecryptLastDiversifier"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	master, err := s.masterKeyRef(op)
	if err != nil {
		return chainkeys.SaplingIVK{}, chainkeys.DiversifierPath{}, err
	}
	type rec struct {
		ivk  chainkeys.SaplingIVK
		path chainkeys.DiversifierPath
	}
	r, err := decryptRecord(master, ciphertext, handle,
		func(d *codec.Decoder) (rec, error) {
			var r rec
			b, err := d.RawBytes(chainkeys.SaplingIVKLen)
			if err != nil {
				return r, err
			}
			copy(r.ivk[:], b)
			b, err = d.RawBytes(chainkeys.DiversifierLen)
			if err != nil {
				return r, err
			}
			copy(r.path[:], b)
			return r, d.Finish()
		}, nil)
	if err != nil {
		return chainkeys.SaplingIVK{}, chainkeys.DiversifierPath{}, errors.E(op, err)
	}
	return r.ivk, r.path, nil
}

// decryptPaymentAddress decrypts an (ivk, addr) payment address record and
// verifies the address hash against the identifier.
func decryptPaymentAddress(master *secmem.Buffer, ciphertext []byte, fp chainkeys.Fingerprint) (chainkeys.SaplingIVK, chainkeys.SaplingPaymentAddress, error) {
	const op errors.Op = "keystore.decryptPaymentAddress"
	type rec struct {
		ivk  chainkeys.SaplingIVK
		addr chainkeys.SaplingPaymentAddress
	}
	r, err := decryptRecord(master, ciphertext, fp,
		func(d *codec.Decoder) (rec, error) {
			var r rec
			b, err := d.RawBytes(chainkeys.SaplingIVKLen)
			if err != nil {
				return r, err
			}
			copy(r.ivk[:], b)
			if r.addr, err = chainkeys.DecodeSaplingPaymentAddress(d); err != nil {
				return r, err
			}
			return r, d.Finish()
		},
		func(r rec) chainkeys.Fingerprint { return r.addr.Hash() })
	if err != nil {
		return chainkeys.SaplingIVK{}, chainkeys.SaplingPaymentAddress{}, errors.E(op, err)
	}
	return r.ivk, r.addr, nil
}

// decryptDiversifiedAddress decrypts an ((addr, ivk), path) diversified
// address record and verifies the address hash against the identifier.
func decryptDiversifiedAddress(master *secmem.Buffer, ciphertext []byte, fp chainkeys.Fingerprint) (chainkeys.SaplingPaymentAddress, chainkeys.SaplingIVK, chainkeys.DiversifierPath, error) {
	const op errors.Op = "keystore.decryptDiversifiedAddress"
	type rec struct {
		addr chainkeys.SaplingPaymentAddress
		ivk  chainkeys.SaplingIVK
		path chainkeys.DiversifierPath
	}
	r, err := decryptRecord(master, ciphertext, fp,
		func(d *codec.Decoder) (rec, error) {
			var r rec
			var err error
			if r.addr, err = chainkeys.DecodeSaplingPaymentAddress(d); err != nil {
				return r, err
			}
			b, err := d.RawBytes(chainkeys.SaplingIVKLen)
			if err != nil {
				return r, err
			}
			copy(r.ivk[:], b)
			b, err = d.RawBytes(chainkeys.DiversifierLen)
			if err != nil {
				return r, err
			}
			copy(r.path[:], b)
			return r, d.Finish()
		},
		func(r rec) chainkeys.Fingerprint { return r.addr.Hash() })
	if err != nil {
		return chainkeys.SaplingPaymentAddress{}, chainkeys.SaplingIVK{},
			chainkeys.DiversifierPath{}, errors.E(op, err)
	}
	return r.addr, r.ivk, r.path, nil
}
