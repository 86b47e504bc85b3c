// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/secmem"
	"github.com/obscuranet/obwallet/kdf"
)

// mode is the lifecycle state of a CryptoKeyStore.  A store is created in
// modePlaintext, advances once to an encrypted mode, and thereafter toggles
// between modeLocked and modeUnlocked.  There is no reverse migration.
type mode int

const (
	modePlaintext mode = iota
	modeLocked
	modeUnlocked
)

// Persister receives crypted records for storage as they are created.  The
// keystore invokes these callbacks while holding its internal locks;
// implementations must not call back into the keystore.  A callback error
// aborts the enclosing keystore operation.
type Persister interface {
	PersistCryptedHDSeed(fp chainkeys.Fingerprint, ciphertext []byte) error
	PersistCryptedTransparentKey(pubKey, ciphertext []byte) error
	PersistCryptedSproutKey(addr chainkeys.SproutPaymentAddress, rk chainkeys.SproutReceivingKey, ciphertext []byte) error
	PersistCryptedSaplingKey(xfvk chainkeys.SaplingExtFVK, ciphertext []byte) error
	PersistCryptedSaplingExtFVK(xfvk chainkeys.SaplingExtFVK, ciphertext []byte) error
	PersistCryptedSaplingPaymentAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress, ciphertext []byte) error
	PersistCryptedSaplingDiversifiedAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress, path chainkeys.DiversifierPath, ciphertext []byte) error
}

// nopPersister discards all crypted records.  Used when no persistence
// layer is attached, e.g. in tests and throwaway stores.
type nopPersister struct{}

func (nopPersister) PersistCryptedHDSeed(chainkeys.Fingerprint, []byte) error { return nil }
func (nopPersister) PersistCryptedTransparentKey([]byte, []byte) error        { return nil }
func (nopPersister) PersistCryptedSproutKey(chainkeys.SproutPaymentAddress, chainkeys.SproutReceivingKey, []byte) error {
	return nil
}
func (nopPersister) PersistCryptedSaplingKey(chainkeys.SaplingExtFVK, []byte) error    { return nil }
func (nopPersister) PersistCryptedSaplingExtFVK(chainkeys.SaplingExtFVK, []byte) error { return nil }
func (nopPersister) PersistCryptedSaplingPaymentAddress(chainkeys.SaplingIVK, chainkeys.SaplingPaymentAddress, []byte) error {
	return nil
}
func (nopPersister) PersistCryptedSaplingDiversifiedAddress(chainkeys.SaplingIVK, chainkeys.SaplingPaymentAddress, chainkeys.DiversifierPath, []byte) error {
	return nil
}

// cryptedKey pairs the public key of a crypted transparent key record with
// its ciphertext.  The public key is retained so lookups and fingerprint
// verification work without the master key.
type cryptedKey struct {
	pubKey     []byte
	ciphertext []byte
}

// CryptoKeyStore is the encrypted-mode key repository, layered over a
// BasicKeyStore.  In plaintext mode every operation delegates to the basic
// store.  Once encrypted, secrets live only as ciphertexts keyed by their
// identifier fingerprints, and the master key is held in locked memory
// exactly while the store is unlocked.
//
// The basic store's two mutexes guard all state: mode, the master key, and
// the crypted transparent map under keyMu; the crypted shielded maps and
// seed under spendMu.  Operations needing both acquire keyMu first.
type CryptoKeyStore struct {
	basic *BasicKeyStore

	mode              mode
	masterKey         *secmem.Buffer
	decryptionChecked bool

	cryptedSeedFP      chainkeys.Fingerprint
	cryptedSeed        []byte
	cryptedKeys        map[chainkeys.KeyID]cryptedKey
	cryptedSproutKeys  map[chainkeys.SproutPaymentAddress][]byte
	cryptedSaplingKeys map[chainkeys.SaplingExtFVK][]byte

	persist Persister
	notify  func(locked bool)
}

// NewCryptoKeyStore returns a plaintext-mode store.  persist may be nil
// when no persistence layer is attached; notify, when non-nil, is invoked
// after every successful Lock and Unlock with the new locked state.
func NewCryptoKeyStore(persist Persister, notify func(locked bool)) *CryptoKeyStore {
	if persist == nil {
		persist = nopPersister{}
	}
	return &CryptoKeyStore{
		basic:              NewBasicKeyStore(),
		cryptedKeys:        make(map[chainkeys.KeyID]cryptedKey),
		cryptedSproutKeys:  make(map[chainkeys.SproutPaymentAddress][]byte),
		cryptedSaplingKeys: make(map[chainkeys.SaplingExtFVK][]byte),
		persist:            persist,
		notify:             notify,
	}
}

func (s *CryptoKeyStore) notifyStatusChanged(locked bool) {
	if s.notify != nil {
		s.notify(locked)
	}
}

// IsCrypted reports whether the store has left plaintext mode.
func (s *CryptoKeyStore) IsCrypted() bool {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	return s.mode != modePlaintext
}

// IsLocked reports whether the store is encrypted and locked.
func (s *CryptoKeyStore) IsLocked() bool {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	return s.mode == modeLocked
}

// setCryptedLocked advances a plaintext store to the locked encrypted mode.
// The advance is refused while any plaintext secret map is non-empty; that
// migration belongs to EncryptKeys, which drains the maps itself.
//
// Both mutexes must be held.
func (s *CryptoKeyStore) setCryptedLocked() error {
	const op errors.Op = "keystore.SetCrypted"
	if s.mode != modePlaintext {
		return nil
	}
	if len(s.basic.keys) != 0 || len(s.basic.sproutKeys) != 0 ||
		len(s.basic.saplingKeys) != 0 {
		return errors.E(op, errors.Invalid, "plaintext secrets present")
	}
	s.mode = modeLocked
	return nil
}

// SetCrypted idempotently advances the store from plaintext to the locked
// encrypted mode.  It fails if any plaintext secret map is non-empty.
func (s *CryptoKeyStore) SetCrypted() error {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()
	return s.setCryptedLocked()
}

// Lock zeroizes and drops the master key and transitions the store to the
// locked encrypted mode.  Locking a plaintext store is an error; locking an
// already locked store is not.
func (s *CryptoKeyStore) Lock() error {
	const op errors.Op = "keystore.Lock"
	s.basic.keyMu.Lock()
	if s.mode == modePlaintext {
		s.basic.keyMu.Unlock()
		return errors.E(op, errors.Plaintext)
	}
	if s.masterKey != nil {
		s.masterKey.Destroy()
		s.masterKey = nil
	}
	s.mode = modeLocked
	s.basic.keyMu.Unlock()

	s.notifyStatusChanged(true)
	return nil
}

// Unlock verifies the candidate master key against every stored ciphertext
// and, on success, installs it and transitions the store to the unlocked
// mode.  A wrong key leaves the store locked with no side effects.
//
// The first successful Unlock decrypts and fingerprint-checks every record
// of every class.  Once a full verification has passed, later unlocks stop
// after the first record of each class; the remainder were proven
// consistent before.  If some records decrypt under the candidate and
// others do not, the store is corrupted beyond safe use and Unlock panics.
func (s *CryptoKeyStore) Unlock(candidate []byte) error {
	const op errors.Op = "keystore.Unlock"
	s.basic.keyMu.Lock()
	s.basic.spendMu.Lock()
	locked := true
	unlockBoth := func() {
		if locked {
			s.basic.spendMu.Unlock()
			s.basic.keyMu.Unlock()
			locked = false
		}
	}
	defer unlockBoth()

	if s.mode == modePlaintext {
		return errors.E(op, errors.Plaintext)
	}
	if len(candidate) != kdf.KeySize {
		return errors.E(op, errors.Invalid, "master key must be 32 bytes")
	}
	cp := make([]byte, len(candidate))
	copy(cp, candidate)
	cand := secmem.NewBufferFromBytes(cp)

	var keyPass, keyFail bool

	if s.cryptedSeed != nil {
		seed, err := decryptRecord(cand, s.cryptedSeed, s.cryptedSeedFP,
			decodeHDSeed, hdSeedFingerprint)
		if err != nil {
			keyFail = true
		} else {
			seed.Zero()
			keyPass = true
		}
	}
	for id, ck := range s.cryptedKeys {
		key, err := decryptTransparent(cand, ck)
		if err != nil {
			log.Debugf("transparent key %x failed verification: %v", id, err)
			keyFail = true
			break
		}
		key.Zero()
		keyPass = true
		if s.decryptionChecked {
			break
		}
	}
	for addr, ct := range s.cryptedSproutKeys {
		sk, err := decryptRecord(cand, ct, addr.Hash(), decodeSprout, sproutFingerprint)
		if err != nil {
			keyFail = true
			break
		}
		sk.Zero()
		keyPass = true
		if s.decryptionChecked {
			break
		}
	}
	for xfvk, ct := range s.cryptedSaplingKeys {
		sk, err := decryptRecord(cand, ct, xfvk.Fingerprint(), decodeSapling, saplingFingerprint)
		if err != nil {
			keyFail = true
			break
		}
		sk.Zero()
		keyPass = true
		if s.decryptionChecked {
			break
		}
	}

	if keyPass && keyFail {
		// Two partial states must never coexist under one master key.
		// Continuing could sign with some keys while silently losing
		// access to others, so this is not recoverable at runtime.
		cand.Destroy()
		log.Critical("Keystore is corrupted: some records decrypt but not all")
		panic(errors.E(op, errors.Corrupt, "partial decryption under one master key"))
	}
	if keyFail || !keyPass {
		cand.Destroy()
		return errors.E(op, errors.Passphrase)
	}

	if s.masterKey != nil {
		s.masterKey.Destroy()
	}
	s.masterKey = cand
	s.mode = modeUnlocked
	s.decryptionChecked = true
	unlockBoth()

	s.notifyStatusChanged(false)
	return nil
}

// decryptTransparent decrypts a crypted transparent key record and verifies
// that the decrypted scalar rederives the stored public key.
func decryptTransparent(master *secmem.Buffer, ck cryptedKey) (*chainkeys.TransparentKey, error) {
	const op errors.Op = "keystore.decryptTransparent"
	id := chainkeys.PubKeyFingerprint(ck.pubKey)
	key, err := decryptRecord(master, ck.ciphertext, id, decodeTransparent, nil)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if !key.VerifyPubKey(ck.pubKey) {
		key.Zero()
		return nil, errors.E(op, errors.Mismatch)
	}
	return key, nil
}

// EncryptKeys migrates a plaintext store to the unlocked encrypted mode
// under the given master key, re-encrypting and persisting every stored
// secret and draining the plaintext maps.  The store takes ownership of
// master.
//
// The migration is not transactional: a failure part way leaves some
// records encrypted and persisted while others remain plaintext, and is
// reported as an error.  Callers should treat a failed migration as fatal
// to the wallet being created.
func (s *CryptoKeyStore) EncryptKeys(master *secmem.Buffer) error {
	const op errors.Op = "keystore.EncryptKeys"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	if s.mode != modePlaintext || len(s.cryptedKeys) != 0 ||
		len(s.cryptedSproutKeys) != 0 || len(s.cryptedSaplingKeys) != 0 ||
		s.cryptedSeed != nil {
		return errors.E(op, errors.Invalid, "store is already encrypted")
	}
	if master.Len() != kdf.KeySize {
		return errors.E(op, errors.Invalid, "master key must be 32 bytes")
	}

	s.mode = modeUnlocked
	s.masterKey = master

	if s.basic.hdSeed != nil {
		seed := s.basic.hdSeed
		fp := seed.Fingerprint()
		ct, err := encryptRecord(master, fp, func(e *codec.Encoder) {
			e.PutRawBytes(seed.RawSeed())
		})
		if err != nil {
			return errors.E(op, err)
		}
		if err := s.setCryptedHDSeedLocked(fp, ct); err != nil {
			return errors.E(op, err)
		}
		if err := s.persist.PersistCryptedHDSeed(fp, ct); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	for _, key := range s.basic.keys {
		pub := key.SerializedPubKey()
		ct, err := encryptRecord(master, chainkeys.PubKeyFingerprint(pub), key.Serialize)
		if err != nil {
			return errors.E(op, err)
		}
		s.cryptedKeys[key.KeyID()] = cryptedKey{pubKey: pub, ciphertext: ct}
		if err := s.persist.PersistCryptedTransparentKey(pub, ct); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	for addr, sk := range s.basic.sproutKeys {
		ct, err := encryptRecord(master, addr.Hash(), sk.Serialize)
		if err != nil {
			return errors.E(op, err)
		}
		s.cryptedSproutKeys[addr] = ct
		if err := s.persist.PersistCryptedSproutKey(addr, sk.ReceivingKey(), ct); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	for xfvk, sk := range s.basic.saplingKeys {
		ct, err := encryptRecord(master, xfvk.Fingerprint(), sk.Serialize)
		if err != nil {
			return errors.E(op, err)
		}
		s.cryptedSaplingKeys[xfvk] = ct
		if err := s.persist.PersistCryptedSaplingKey(xfvk, ct); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	// Extended full viewing keys without a stored spending key are
	// encrypted as their own records so watch-only accounts survive the
	// migration.
	for fp, xfvk := range s.basic.saplingFVKs {
		if _, ok := s.cryptedSaplingKeys[xfvk]; ok {
			continue
		}
		xfvk := xfvk
		ct, err := encryptRecord(master, fp, xfvk.Serialize)
		if err != nil {
			return errors.E(op, err)
		}
		if err := s.persist.PersistCryptedSaplingExtFVK(xfvk, ct); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	for addr, ivk := range s.basic.saplingAddrs {
		addr, ivk := addr, ivk
		ct, err := encryptRecord(master, addr.Hash(), func(e *codec.Encoder) {
			e.PutRawBytes(ivk[:])
			addr.Serialize(e)
		})
		if err != nil {
			return errors.E(op, err)
		}
		if err := s.persist.PersistCryptedSaplingPaymentAddress(ivk, addr, ct); err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	for addr, entry := range s.basic.saplingDivAddrs {
		addr, entry := addr, entry
		ct, err := encryptRecord(master, addr.Hash(), func(e *codec.Encoder) {
			addr.Serialize(e)
			e.PutRawBytes(entry.IVK[:])
			e.PutRawBytes(entry.Path[:])
		})
		if err != nil {
			return errors.E(op, err)
		}
		err = s.persist.PersistCryptedSaplingDiversifiedAddress(entry.IVK, addr, entry.Path, ct)
		if err != nil {
			return errors.E(op, errors.IO, err)
		}
	}

	s.basic.zeroSecretsLocked()
	return nil
}

// setCryptedHDSeedLocked installs the crypted seed record.  The record is
// write-once: an existing crypted seed is never overwritten.
//
// spendMu must be held.
func (s *CryptoKeyStore) setCryptedHDSeedLocked(fp chainkeys.Fingerprint, ciphertext []byte) error {
	const op errors.Op = "keystore.SetCryptedHDSeed"
	if s.cryptedSeed != nil {
		return errors.E(op, errors.Exist, "crypted seed is already set")
	}
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	s.cryptedSeedFP = fp
	s.cryptedSeed = cp
	return nil
}

// SetCryptedHDSeed installs an already-encrypted seed record, e.g. when
// replaying persisted records at startup.  The store must have left
// plaintext mode.  The record is write-once.
func (s *CryptoKeyStore) SetCryptedHDSeed(fp chainkeys.Fingerprint, ciphertext []byte) error {
	const op errors.Op = "keystore.SetCryptedHDSeed"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()
	if s.mode == modePlaintext {
		return errors.E(op, errors.Plaintext)
	}
	return s.setCryptedHDSeedLocked(fp, ciphertext)
}
