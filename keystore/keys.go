// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
)

// Per-class operations of the CryptoKeyStore.  Every class follows the same
// dispatch: plaintext mode delegates to the basic store, the unlocked mode
// encrypts (or decrypts) with the master key, and the locked mode fails for
// anything touching a secret.  Non-secret indexes remain readable while
// locked.

// HD seed.

// SetHDSeed stores the hierarchical deterministic seed.  In encrypted mode
// the seed is encrypted under its fingerprint and persisted, and is subject
// to the write-once restriction of the crypted seed record.  The store
// takes ownership of the seed.
func (s *CryptoKeyStore) SetHDSeed(seed *chainkeys.HDSeed) error {
	const op errors.Op = "keystore.SetHDSeed"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.setHDSeedLocked(seed)
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	fp := seed.Fingerprint()
	ct, err := encryptRecord(s.masterKey, fp, func(e *codec.Encoder) {
		e.PutRawBytes(seed.RawSeed())
	})
	if err != nil {
		seed.Zero()
		return errors.E(op, err)
	}
	if err := s.setCryptedHDSeedLocked(fp, ct); err != nil {
		seed.Zero()
		return errors.E(op, err)
	}
	if err := s.persist.PersistCryptedHDSeed(fp, ct); err != nil {
		seed.Zero()
		return errors.E(op, errors.IO, err)
	}
	seed.Zero()
	return nil
}

// GetHDSeed returns the stored seed.  The caller owns the returned seed and
// must zeroize it.
func (s *CryptoKeyStore) GetHDSeed() (*chainkeys.HDSeed, error) {
	const op errors.Op = "keystore.GetHDSeed"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		if s.basic.hdSeed == nil {
			return nil, errors.E(op, errors.NotExist)
		}
		return chainkeys.NewHDSeed(s.basic.hdSeed.RawSeed())
	case modeLocked:
		return nil, errors.E(op, errors.Locked)
	}

	if s.cryptedSeed == nil {
		return nil, errors.E(op, errors.NotExist)
	}
	seed, err := decryptRecord(s.masterKey, s.cryptedSeed, s.cryptedSeedFP,
		decodeHDSeed, hdSeedFingerprint)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return seed, nil
}

// HaveHDSeed reports whether a seed exists in the active representation.
func (s *CryptoKeyStore) HaveHDSeed() bool {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()
	if s.mode == modePlaintext {
		return s.basic.hdSeed != nil
	}
	return s.cryptedSeed != nil
}

// Transparent keys.

// AddTransparentKey stores a transparent private key.  The store takes
// ownership of the key; in encrypted mode the plaintext key is zeroized
// once its crypted record is stored and persisted.
func (s *CryptoKeyStore) AddTransparentKey(key *chainkeys.TransparentKey) error {
	const op errors.Op = "keystore.AddTransparentKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.addKeyLocked(key)
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	pub := key.SerializedPubKey()
	ct, err := encryptRecord(s.masterKey, chainkeys.PubKeyFingerprint(pub), key.Serialize)
	if err != nil {
		key.Zero()
		return errors.E(op, err)
	}
	s.cryptedKeys[key.KeyID()] = cryptedKey{pubKey: pub, ciphertext: ct}
	key.Zero()
	if err := s.persist.PersistCryptedTransparentKey(pub, ct); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// LoadCryptedTransparentKey installs an already-encrypted transparent key
// record, advancing a plaintext store to the locked encrypted mode if
// necessary.  No decryption is attempted.
func (s *CryptoKeyStore) LoadCryptedTransparentKey(pubKey, ciphertext []byte) error {
	const op errors.Op = "keystore.LoadCryptedTransparentKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	if err := s.setCryptedLocked(); err != nil {
		return errors.E(op, err)
	}
	pub := make([]byte, len(pubKey))
	copy(pub, pubKey)
	ct := make([]byte, len(ciphertext))
	copy(ct, ciphertext)
	s.cryptedKeys[chainkeys.PubKeyID(pub)] = cryptedKey{pubKey: pub, ciphertext: ct}
	return nil
}

// GetTransparentKey returns the transparent key with the given identifier.
// The caller owns the returned key and must zeroize it.
func (s *CryptoKeyStore) GetTransparentKey(id chainkeys.KeyID) (*chainkeys.TransparentKey, error) {
	const op errors.Op = "keystore.GetTransparentKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()

	switch s.mode {
	case modePlaintext:
		key, ok := s.basic.getKeyLocked(id)
		if !ok {
			return nil, errors.E(op, errors.NotExist)
		}
		return key.Clone(), nil
	case modeLocked:
		return nil, errors.E(op, errors.Locked)
	}

	ck, ok := s.cryptedKeys[id]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	key, err := decryptTransparent(s.masterKey, ck)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return key, nil
}

// HaveTransparentKey reports whether a transparent key with the given
// identifier is stored in the active representation.
func (s *CryptoKeyStore) HaveTransparentKey(id chainkeys.KeyID) bool {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	if s.mode == modePlaintext {
		_, ok := s.basic.getKeyLocked(id)
		return ok
	}
	_, ok := s.cryptedKeys[id]
	return ok
}

// GetPubKey returns the serialized public key of a stored transparent key.
// Public keys are retained beside their crypted records, so this lookup
// works while locked.
func (s *CryptoKeyStore) GetPubKey(id chainkeys.KeyID) ([]byte, error) {
	const op errors.Op = "keystore.GetPubKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()

	if s.mode == modePlaintext {
		key, ok := s.basic.getKeyLocked(id)
		if !ok {
			return nil, errors.E(op, errors.NotExist)
		}
		return key.SerializedPubKey(), nil
	}
	ck, ok := s.cryptedKeys[id]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	pub := make([]byte, len(ck.pubKey))
	copy(pub, ck.pubKey)
	return pub, nil
}

// Redeem scripts.  Scripts are spendability metadata rather than key
// material and are indexed in the basic store in every mode; the
// EncryptRedeemScript and DecryptRedeemScript helpers produce and consume
// their crypted records for the persistence layer.

// AddRedeemScript stores a redeem script.
func (s *CryptoKeyStore) AddRedeemScript(script []byte) error {
	return s.basic.AddRedeemScript(script)
}

// GetRedeemScript returns the redeem script with the given script hash.
func (s *CryptoKeyStore) GetRedeemScript(id chainkeys.ScriptID) ([]byte, error) {
	return s.basic.GetRedeemScript(id)
}

// HaveRedeemScript reports whether a redeem script with the given script
// hash is stored.
func (s *CryptoKeyStore) HaveRedeemScript(id chainkeys.ScriptID) bool {
	return s.basic.HaveRedeemScript(id)
}

// Sprout spending keys.

// AddSproutSpendingKey stores a sprout spending key and indexes its
// receiving key.  The store takes ownership of the key.
func (s *CryptoKeyStore) AddSproutSpendingKey(sk *chainkeys.SproutSpendingKey) error {
	const op errors.Op = "keystore.AddSproutSpendingKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.addSproutKeyLocked(sk)
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	addr := sk.Address()
	ct, err := encryptRecord(s.masterKey, addr.Hash(), sk.Serialize)
	if err != nil {
		sk.Zero()
		return errors.E(op, err)
	}
	rk := sk.ReceivingKey()
	s.cryptedSproutKeys[addr] = ct
	s.basic.sproutNoteKeys[addr] = rk
	sk.Zero()
	if err := s.persist.PersistCryptedSproutKey(addr, rk, ct); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// LoadCryptedSproutKey installs an already-encrypted sprout spending key
// record along with its receiving key, advancing a plaintext store to the
// locked encrypted mode if necessary.  The receiving key is indexed for
// note detection; no decryption is attempted.
func (s *CryptoKeyStore) LoadCryptedSproutKey(addr chainkeys.SproutPaymentAddress, rk chainkeys.SproutReceivingKey, ciphertext []byte) error {
	const op errors.Op = "keystore.LoadCryptedSproutKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	if err := s.setCryptedLocked(); err != nil {
		return errors.E(op, err)
	}
	ct := make([]byte, len(ciphertext))
	copy(ct, ciphertext)
	s.cryptedSproutKeys[addr] = ct
	s.basic.sproutNoteKeys[addr] = rk
	return nil
}

// GetSproutSpendingKey returns the sprout spending key paying to addr.  The
// caller owns the returned key and must zeroize it.
func (s *CryptoKeyStore) GetSproutSpendingKey(addr chainkeys.SproutPaymentAddress) (*chainkeys.SproutSpendingKey, error) {
	const op errors.Op = "keystore.GetSproutSpendingKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		sk, ok := s.basic.sproutKeys[addr]
		if !ok {
			return nil, errors.E(op, errors.NotExist)
		}
		cp := *sk
		return &cp, nil
	case modeLocked:
		return nil, errors.E(op, errors.Locked)
	}

	ct, ok := s.cryptedSproutKeys[addr]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	sk, err := decryptRecord(s.masterKey, ct, addr.Hash(), decodeSprout, sproutFingerprint)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return sk, nil
}

// HaveSproutSpendingKey reports whether a spending key paying to addr is
// stored in the active representation.
func (s *CryptoKeyStore) HaveSproutSpendingKey(addr chainkeys.SproutPaymentAddress) bool {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()
	if s.mode == modePlaintext {
		_, ok := s.basic.sproutKeys[addr]
		return ok
	}
	_, ok := s.cryptedSproutKeys[addr]
	return ok
}

// GetSproutReceivingKey returns the note receiving key of addr.  Receiving
// keys are viewing material and remain available while locked.
func (s *CryptoKeyStore) GetSproutReceivingKey(addr chainkeys.SproutPaymentAddress) (chainkeys.SproutReceivingKey, error) {
	return s.basic.GetSproutReceivingKey(addr)
}

// Sapling spending keys.

// AddSaplingSpendingKey stores an extended sapling spending key and indexes
// its extended full viewing key.  The store takes ownership of the key.
func (s *CryptoKeyStore) AddSaplingSpendingKey(sk *chainkeys.SaplingExtSK) error {
	const op errors.Op = "keystore.AddSaplingSpendingKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.addSaplingKeyLocked(sk)
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	xfvk := sk.ExtFVK()
	ct, err := encryptRecord(s.masterKey, xfvk.Fingerprint(), sk.Serialize)
	if err != nil {
		sk.Zero()
		return errors.E(op, err)
	}
	s.cryptedSaplingKeys[xfvk] = ct
	s.basic.addSaplingFVKLocked(xfvk)
	sk.Zero()
	if err := s.persist.PersistCryptedSaplingKey(xfvk, ct); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// LoadCryptedSaplingKey installs an already-encrypted sapling spending key
// record keyed by its extended full viewing key, advancing a plaintext
// store to the locked encrypted mode if necessary.  The viewing key is
// indexed; no decryption is attempted.
func (s *CryptoKeyStore) LoadCryptedSaplingKey(xfvk chainkeys.SaplingExtFVK, ciphertext []byte) error {
	const op errors.Op = "keystore.LoadCryptedSaplingKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	if err := s.setCryptedLocked(); err != nil {
		return errors.E(op, err)
	}
	ct := make([]byte, len(ciphertext))
	copy(ct, ciphertext)
	s.cryptedSaplingKeys[xfvk] = ct
	s.basic.addSaplingFVKLocked(xfvk)
	return nil
}

// GetSaplingSpendingKey returns the spending key of the given extended full
// viewing key.  The caller owns the returned key and must zeroize it.
func (s *CryptoKeyStore) GetSaplingSpendingKey(xfvk chainkeys.SaplingExtFVK) (*chainkeys.SaplingExtSK, error) {
	const op errors.Op = "keystore.GetSaplingSpendingKey"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		sk, ok := s.basic.saplingKeys[xfvk]
		if !ok {
			return nil, errors.E(op, errors.NotExist)
		}
		cp := *sk
		return &cp, nil
	case modeLocked:
		return nil, errors.E(op, errors.Locked)
	}

	ct, ok := s.cryptedSaplingKeys[xfvk]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	sk, err := decryptRecord(s.masterKey, ct, xfvk.Fingerprint(), decodeSapling, saplingFingerprint)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return sk, nil
}

// HaveSaplingSpendingKey reports whether the spending key of the given
// extended full viewing key is stored in the active representation.
func (s *CryptoKeyStore) HaveSaplingSpendingKey(xfvk chainkeys.SaplingExtFVK) bool {
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()
	if s.mode == modePlaintext {
		_, ok := s.basic.saplingKeys[xfvk]
		return ok
	}
	_, ok := s.cryptedSaplingKeys[xfvk]
	return ok
}

// Sapling viewing keys and address directory.

// AddSaplingExtFVK indexes an extended full viewing key.  In the unlocked
// encrypted mode the key is additionally encrypted and persisted as its own
// record so watch-only accounts are recoverable.
func (s *CryptoKeyStore) AddSaplingExtFVK(xfvk chainkeys.SaplingExtFVK) error {
	const op errors.Op = "keystore.AddSaplingExtFVK"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.addSaplingFVKLocked(xfvk)
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	ct, err := encryptRecord(s.masterKey, xfvk.Fingerprint(), xfvk.Serialize)
	if err != nil {
		return errors.E(op, err)
	}
	s.basic.addSaplingFVKLocked(xfvk)
	if err := s.persist.PersistCryptedSaplingExtFVK(xfvk, ct); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// LoadCryptedSaplingExtFVK decrypts a persisted extended full viewing key
// record, verifies its fingerprint against the identifier, and indexes the
// key.  The identifier is derived from the plaintext, so the store must be
// unlocked.
func (s *CryptoKeyStore) LoadCryptedSaplingExtFVK(fp chainkeys.Fingerprint, ciphertext []byte) error {
	const op errors.Op = "keystore.LoadCryptedSaplingExtFVK"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		return errors.E(op, errors.Plaintext)
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	xfvk, err := decryptRecord(s.masterKey, ciphertext, fp,
		chainkeys.DecodeSaplingExtFVK,
		func(k chainkeys.SaplingExtFVK) chainkeys.Fingerprint { return k.Fingerprint() })
	if err != nil {
		return errors.E(op, err)
	}
	s.basic.addSaplingFVKLocked(xfvk)
	return nil
}

// GetSaplingExtFVK returns the indexed extended full viewing key with the
// given fingerprint.  Available while locked.
func (s *CryptoKeyStore) GetSaplingExtFVK(fp chainkeys.Fingerprint) (chainkeys.SaplingExtFVK, error) {
	return s.basic.GetSaplingExtFVK(fp)
}

// HaveSaplingExtFVK reports whether an extended full viewing key with the
// given fingerprint is indexed.  Available while locked.
func (s *CryptoKeyStore) HaveSaplingExtFVK(fp chainkeys.Fingerprint) bool {
	return s.basic.HaveSaplingExtFVK(fp)
}

// AddSaplingPaymentAddress indexes a payment address under its incoming
// viewing key.  In the unlocked encrypted mode the (ivk, addr) pair is
// additionally encrypted and persisted.
func (s *CryptoKeyStore) AddSaplingPaymentAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress) error {
	const op errors.Op = "keystore.AddSaplingPaymentAddress"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.addSaplingAddrLocked(ivk, addr)
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	ct, err := encryptRecord(s.masterKey, addr.Hash(), func(e *codec.Encoder) {
		e.PutRawBytes(ivk[:])
		addr.Serialize(e)
	})
	if err != nil {
		return errors.E(op, err)
	}
	s.basic.addSaplingAddrLocked(ivk, addr)
	if err := s.persist.PersistCryptedSaplingPaymentAddress(ivk, addr, ct); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// LoadCryptedSaplingPaymentAddress decrypts a persisted payment address
// record, verifies the address hash against the identifier, and indexes the
// address.  The store must be unlocked.
func (s *CryptoKeyStore) LoadCryptedSaplingPaymentAddress(fp chainkeys.Fingerprint, ciphertext []byte) error {
	const op errors.Op = "keystore.LoadCryptedSaplingPaymentAddress"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		return errors.E(op, errors.Plaintext)
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	ivk, addr, err := decryptPaymentAddress(s.masterKey, ciphertext, fp)
	if err != nil {
		return errors.E(op, err)
	}
	s.basic.addSaplingAddrLocked(ivk, addr)
	return nil
}

// GetSaplingIVK returns the incoming viewing key of a payment address.
// Available while locked.
func (s *CryptoKeyStore) GetSaplingIVK(addr chainkeys.SaplingPaymentAddress) (chainkeys.SaplingIVK, error) {
	return s.basic.GetSaplingIVK(addr)
}

// HaveSaplingPaymentAddress reports whether a payment address is indexed.
// Available while locked.
func (s *CryptoKeyStore) HaveSaplingPaymentAddress(addr chainkeys.SaplingPaymentAddress) bool {
	return s.basic.HaveSaplingPaymentAddress(addr)
}

// AddSaplingDiversifiedAddress records a diversified payment address with
// its viewing key and derivation path.  In the unlocked encrypted mode the
// record is additionally encrypted and persisted.
func (s *CryptoKeyStore) AddSaplingDiversifiedAddress(addr chainkeys.SaplingPaymentAddress, ivk chainkeys.SaplingIVK, path chainkeys.DiversifierPath) error {
	const op errors.Op = "keystore.AddSaplingDiversifiedAddress"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		s.basic.addSaplingDivAddrLocked(addr, DiversifiedEntry{IVK: ivk, Path: path})
		return nil
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	ct, err := encryptRecord(s.masterKey, addr.Hash(), func(e *codec.Encoder) {
		addr.Serialize(e)
		e.PutRawBytes(ivk[:])
		e.PutRawBytes(path[:])
	})
	if err != nil {
		return errors.E(op, err)
	}
	s.basic.addSaplingDivAddrLocked(addr, DiversifiedEntry{IVK: ivk, Path: path})
	if err := s.persist.PersistCryptedSaplingDiversifiedAddress(ivk, addr, path, ct); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// LoadCryptedSaplingDiversifiedAddress decrypts a persisted diversified
// address record, verifies the address hash against the identifier, and
// indexes the address.  The store must be unlocked.
func (s *CryptoKeyStore) LoadCryptedSaplingDiversifiedAddress(fp chainkeys.Fingerprint, ciphertext []byte) error {
	const op errors.Op = "keystore.LoadCryptedSaplingDiversifiedAddress"
	s.basic.keyMu.Lock()
	defer s.basic.keyMu.Unlock()
	s.basic.spendMu.Lock()
	defer s.basic.spendMu.Unlock()

	switch s.mode {
	case modePlaintext:
		return errors.E(op, errors.Plaintext)
	case modeLocked:
		return errors.E(op, errors.Locked)
	}

	addr, ivk, path, err := decryptDiversifiedAddress(s.masterKey, ciphertext, fp)
	if err != nil {
		return errors.E(op, err)
	}
	s.basic.addSaplingDivAddrLocked(addr, DiversifiedEntry{IVK: ivk, Path: path})
	return nil
}

// GetSaplingDiversifiedAddress returns the viewing key and derivation path
// of a diversified payment address.  Available while locked.
func (s *CryptoKeyStore) GetSaplingDiversifiedAddress(addr chainkeys.SaplingPaymentAddress) (DiversifiedEntry, error) {
	return s.basic.GetSaplingDiversifiedAddress(addr)
}

// SetLastDiversifier records the most recently used diversifier path of an
// incoming viewing key.  The index is viewing material and is maintained in
// every mode; the EncryptLastDiversifier helper produces its crypted record
// for the persistence layer.
func (s *CryptoKeyStore) SetLastDiversifier(ivk chainkeys.SaplingIVK, path chainkeys.DiversifierPath) error {
	return s.basic.SetLastDiversifier(ivk, path)
}

// GetLastDiversifier returns the most recently used diversifier path of an
// incoming viewing key.  Available while locked.
func (s *CryptoKeyStore) GetLastDiversifier(ivk chainkeys.SaplingIVK) (chainkeys.DiversifierPath, error) {
	return s.basic.GetLastDiversifier(ivk)
}
