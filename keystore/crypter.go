// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/secmem"
	"github.com/obscuranet/obwallet/internal/zero"
	"github.com/obscuranet/obwallet/kdf"
)

// Crypter performs AES-256-CBC encryption and decryption of record
// plaintexts with PKCS#7 padding.  A Crypter must be keyed with SetKey or
// SetKeyFromPassphrase before use and zeroed when no longer needed.
//
// The ciphertext layout carries no framing, MAC, or version byte; it is
// exactly the CBC output, preserving the legacy on-disk format.  Integrity
// is only checked probabilistically by the caller through the post-decrypt
// fingerprint comparison.
type Crypter struct {
	key    [kdf.KeySize]byte
	iv     [kdf.IVSize]byte
	keySet bool
}

// SetKey loads the key and IV into the crypter.  The caller retains
// ownership of both arrays and should zeroize them.
func (c *Crypter) SetKey(key *[kdf.KeySize]byte, iv *[kdf.IVSize]byte) error {
	const op errors.Op = "keystore.Crypter.SetKey"
	if key == nil || iv == nil {
		return errors.E(op, errors.Invalid, "nil key material")
	}
	c.key = *key
	c.iv = *iv
	c.keySet = true
	return nil
}

// SetKeyFromPassphrase derives the key and IV from a passphrase and loads
// them into the crypter.
func (c *Crypter) SetKeyFromPassphrase(passphrase []byte, p *kdf.Params) error {
	const op errors.Op = "keystore.Crypter.SetKeyFromPassphrase"
	key, iv, err := kdf.DeriveKeyIV(passphrase, p)
	if err != nil {
		return errors.E(op, err)
	}
	c.key = *key
	c.iv = *iv
	c.keySet = true
	zero.Bytea32(key)
	zero.Bytea16(iv)
	return nil
}

// Encrypt returns the AES-256-CBC encryption of plaintext with PKCS#7
// padding.  Padding adds 1 to 16 bytes, so the output length is
// len(plaintext) + 16 - len(plaintext)%16; a plaintext whose length is
// already a multiple of the block size gains a full block.
func (c *Crypter) Encrypt(plaintext []byte) ([]byte, error) {
	const op errors.Op = "keystore.Crypter.Encrypt"
	if !c.keySet {
		return nil, errors.E(op, errors.NotKeyed)
	}
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, errors.E(op, errors.Crypto, err)
	}

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv[:]).CryptBlocks(ciphertext, padded)
	zero.Bytes(padded)
	return ciphertext, nil
}

// Decrypt inverts Encrypt.  Failures are reported with a generic Crypto
// error regardless of cause so that no padding detail leaks to callers.
func (c *Crypter) Decrypt(ciphertext []byte) ([]byte, error) {
	const op errors.Op = "keystore.Crypter.Decrypt"
	if !c.keySet {
		return nil, errors.E(op, errors.NotKeyed)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.E(op, errors.Crypto, "decryption failed")
	}
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, errors.E(op, errors.Crypto, err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, c.iv[:]).CryptBlocks(padded, ciphertext)

	padLen := int(padded[len(padded)-1])
	if padLen < 1 || padLen > aes.BlockSize || padLen > len(padded) {
		zero.Bytes(padded)
		return nil, errors.E(op, errors.Crypto, "decryption failed")
	}
	for _, b := range padded[len(padded)-padLen:] {
		if int(b) != padLen {
			zero.Bytes(padded)
			return nil, errors.E(op, errors.Crypto, "decryption failed")
		}
	}
	return padded[:len(padded)-padLen], nil
}

// Zero clears the crypter's key material.  The crypter must be rekeyed
// before further use.
func (c *Crypter) Zero() {
	zero.Bytea32(&c.key)
	zero.Bytea16(&c.iv)
	c.keySet = false
}

// recordIV derives the CBC IV of a record from its identifier: the first 16
// bytes of the 32-byte fingerprint.  This reproduces the legacy format;
// identifier uniqueness per logical secret is the caller's obligation.
func recordIV(id chainkeys.Fingerprint) [kdf.IVSize]byte {
	var iv [kdf.IVSize]byte
	copy(iv[:], id[:kdf.IVSize])
	return iv
}

// EncryptSecret encrypts a record plaintext under the master key with the
// record identifier supplying the IV.
func EncryptSecret(master *secmem.Buffer, plaintext []byte, id chainkeys.Fingerprint) ([]byte, error) {
	const op errors.Op = "keystore.EncryptSecret"
	if master.Len() != kdf.KeySize {
		return nil, errors.E(op, errors.Invalid, "master key must be 32 bytes")
	}
	var key [kdf.KeySize]byte
	copy(key[:], master.Bytes())
	iv := recordIV(id)

	var c Crypter
	defer c.Zero()
	if err := c.SetKey(&key, &iv); err != nil {
		zero.Bytea32(&key)
		return nil, errors.E(op, err)
	}
	zero.Bytea32(&key)
	ct, err := c.Encrypt(plaintext)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return ct, nil
}

// DecryptSecret decrypts a record ciphertext under the master key with the
// record identifier supplying the IV.  The caller must zeroize the returned
// plaintext.
func DecryptSecret(master *secmem.Buffer, ciphertext []byte, id chainkeys.Fingerprint) ([]byte, error) {
	const op errors.Op = "keystore.DecryptSecret"
	if master.Len() != kdf.KeySize {
		return nil, errors.E(op, errors.Invalid, "master key must be 32 bytes")
	}
	var key [kdf.KeySize]byte
	copy(key[:], master.Bytes())
	iv := recordIV(id)

	var c Crypter
	defer c.Zero()
	if err := c.SetKey(&key, &iv); err != nil {
		zero.Bytea32(&key)
		return nil, errors.E(op, err)
	}
	zero.Bytea32(&key)
	pt, err := c.Decrypt(ciphertext)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return pt, nil
}
