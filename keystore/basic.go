// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"sync"

	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/errors"
)

// DiversifiedEntry records the viewing key and derivation path of a
// diversified payment address.
type DiversifiedEntry struct {
	IVK  chainkeys.SaplingIVK
	Path chainkeys.DiversifierPath
}

// BasicKeyStore is the plaintext-mode key repository: typed in-memory maps
// from identifier to secret, one per record class.  It also serves as the
// non-secret index of an encrypted store (viewing keys, address
// directories), which remains readable while the wallet is locked.
//
// Two mutexes guard the store.  keyMu covers the transparent side
// (transparent keys and redeem scripts) and spendMu covers the shielded
// side (spending keys, viewing keys, addresses, and the HD seed).
// Operations that take both always acquire keyMu first.
type BasicKeyStore struct {
	keyMu   sync.Mutex
	keys    map[chainkeys.KeyID]*chainkeys.TransparentKey
	scripts map[chainkeys.ScriptID][]byte

	spendMu          sync.Mutex
	hdSeed           *chainkeys.HDSeed
	sproutKeys       map[chainkeys.SproutPaymentAddress]*chainkeys.SproutSpendingKey
	sproutNoteKeys   map[chainkeys.SproutPaymentAddress]chainkeys.SproutReceivingKey
	saplingKeys      map[chainkeys.SaplingExtFVK]*chainkeys.SaplingExtSK
	saplingFVKs      map[chainkeys.Fingerprint]chainkeys.SaplingExtFVK
	saplingAddrs     map[chainkeys.SaplingPaymentAddress]chainkeys.SaplingIVK
	saplingDivAddrs  map[chainkeys.SaplingPaymentAddress]DiversifiedEntry
	lastDiversifiers map[chainkeys.SaplingIVK]chainkeys.DiversifierPath
}

// NewBasicKeyStore returns an empty plaintext key store.
func NewBasicKeyStore() *BasicKeyStore {
	return &BasicKeyStore{
		keys:             make(map[chainkeys.KeyID]*chainkeys.TransparentKey),
		scripts:          make(map[chainkeys.ScriptID][]byte),
		sproutKeys:       make(map[chainkeys.SproutPaymentAddress]*chainkeys.SproutSpendingKey),
		sproutNoteKeys:   make(map[chainkeys.SproutPaymentAddress]chainkeys.SproutReceivingKey),
		saplingKeys:      make(map[chainkeys.SaplingExtFVK]*chainkeys.SaplingExtSK),
		saplingFVKs:      make(map[chainkeys.Fingerprint]chainkeys.SaplingExtFVK),
		saplingAddrs:     make(map[chainkeys.SaplingPaymentAddress]chainkeys.SaplingIVK),
		saplingDivAddrs:  make(map[chainkeys.SaplingPaymentAddress]DiversifiedEntry),
		lastDiversifiers: make(map[chainkeys.SaplingIVK]chainkeys.DiversifierPath),
	}
}

// Transparent keys.

func (s *BasicKeyStore) addKeyLocked(key *chainkeys.TransparentKey) {
	s.keys[key.KeyID()] = key
}

// AddTransparentKey stores a transparent private key.  The store takes
// ownership of the key.
func (s *BasicKeyStore) AddTransparentKey(key *chainkeys.TransparentKey) error {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	s.addKeyLocked(key)
	return nil
}

func (s *BasicKeyStore) getKeyLocked(id chainkeys.KeyID) (*chainkeys.TransparentKey, bool) {
	key, ok := s.keys[id]
	return key, ok
}

// GetTransparentKey returns an independent copy of the transparent key with
// the given identifier.
func (s *BasicKeyStore) GetTransparentKey(id chainkeys.KeyID) (*chainkeys.TransparentKey, error) {
	const op errors.Op = "keystore.GetTransparentKey"
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	key, ok := s.getKeyLocked(id)
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	return key.Clone(), nil
}

// HaveTransparentKey reports whether a transparent key with the given
// identifier is stored.
func (s *BasicKeyStore) HaveTransparentKey(id chainkeys.KeyID) bool {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	_, ok := s.keys[id]
	return ok
}

// Redeem scripts.

// AddRedeemScript stores a redeem script, keyed by its script hash.
func (s *BasicKeyStore) AddRedeemScript(script []byte) error {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	cp := make([]byte, len(script))
	copy(cp, script)
	s.scripts[chainkeys.ScriptIDForScript(script)] = cp
	return nil
}

// GetRedeemScript returns the redeem script with the given script hash.
func (s *BasicKeyStore) GetRedeemScript(id chainkeys.ScriptID) ([]byte, error) {
	const op errors.Op = "keystore.GetRedeemScript"
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	script, ok := s.scripts[id]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	cp := make([]byte, len(script))
	copy(cp, script)
	return cp, nil
}

// HaveRedeemScript reports whether a redeem script with the given script
// hash is stored.
func (s *BasicKeyStore) HaveRedeemScript(id chainkeys.ScriptID) bool {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	_, ok := s.scripts[id]
	return ok
}

// HD seed.

func (s *BasicKeyStore) setHDSeedLocked(seed *chainkeys.HDSeed) {
	if s.hdSeed != nil {
		s.hdSeed.Zero()
	}
	s.hdSeed = seed
}

// SetHDSeed stores the hierarchical deterministic seed, replacing and
// zeroizing any previous seed.  The store takes ownership of the seed.  The
// write-once restriction applies only to the crypted seed record.
func (s *BasicKeyStore) SetHDSeed(seed *chainkeys.HDSeed) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.setHDSeedLocked(seed)
	return nil
}

// GetHDSeed returns an independent copy of the stored seed.
func (s *BasicKeyStore) GetHDSeed() (*chainkeys.HDSeed, error) {
	const op errors.Op = "keystore.GetHDSeed"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	if s.hdSeed == nil {
		return nil, errors.E(op, errors.NotExist)
	}
	return chainkeys.NewHDSeed(s.hdSeed.RawSeed())
}

// HaveHDSeed reports whether a seed is stored.
func (s *BasicKeyStore) HaveHDSeed() bool {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	return s.hdSeed != nil
}

// Sprout spending keys.

func (s *BasicKeyStore) addSproutKeyLocked(sk *chainkeys.SproutSpendingKey) {
	addr := sk.Address()
	s.sproutKeys[addr] = sk
	s.sproutNoteKeys[addr] = sk.ReceivingKey()
}

// AddSproutSpendingKey stores a sprout spending key and indexes its
// receiving key for note detection.  The store takes ownership of the key.
func (s *BasicKeyStore) AddSproutSpendingKey(sk *chainkeys.SproutSpendingKey) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.addSproutKeyLocked(sk)
	return nil
}

// GetSproutSpendingKey returns an independent copy of the sprout spending
// key paying to addr.
func (s *BasicKeyStore) GetSproutSpendingKey(addr chainkeys.SproutPaymentAddress) (*chainkeys.SproutSpendingKey, error) {
	const op errors.Op = "keystore.GetSproutSpendingKey"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	sk, ok := s.sproutKeys[addr]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	cp := *sk
	return &cp, nil
}

// HaveSproutSpendingKey reports whether a spending key paying to addr is
// stored.
func (s *BasicKeyStore) HaveSproutSpendingKey(addr chainkeys.SproutPaymentAddress) bool {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	_, ok := s.sproutKeys[addr]
	return ok
}

// GetSproutReceivingKey returns the note receiving key of addr.  Receiving
// keys are viewing material and remain available while an encrypted store
// is locked.
func (s *BasicKeyStore) GetSproutReceivingKey(addr chainkeys.SproutPaymentAddress) (chainkeys.SproutReceivingKey, error) {
	const op errors.Op = "keystore.GetSproutReceivingKey"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	rk, ok := s.sproutNoteKeys[addr]
	if !ok {
		return chainkeys.SproutReceivingKey{}, errors.E(op, errors.NotExist)
	}
	return rk, nil
}

// Sapling spending keys and viewing keys.

func (s *BasicKeyStore) addSaplingKeyLocked(sk *chainkeys.SaplingExtSK) {
	xfvk := sk.ExtFVK()
	s.saplingKeys[xfvk] = sk
	s.saplingFVKs[xfvk.Fingerprint()] = xfvk
}

// AddSaplingSpendingKey stores an extended sapling spending key and indexes
// its extended full viewing key.  The store takes ownership of the key.
func (s *BasicKeyStore) AddSaplingSpendingKey(sk *chainkeys.SaplingExtSK) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.addSaplingKeyLocked(sk)
	return nil
}

// GetSaplingSpendingKey returns an independent copy of the spending key of
// the given extended full viewing key.
func (s *BasicKeyStore) GetSaplingSpendingKey(xfvk chainkeys.SaplingExtFVK) (*chainkeys.SaplingExtSK, error) {
	const op errors.Op = "keystore.GetSaplingSpendingKey"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	sk, ok := s.saplingKeys[xfvk]
	if !ok {
		return nil, errors.E(op, errors.NotExist)
	}
	cp := *sk
	return &cp, nil
}

// HaveSaplingSpendingKey reports whether the spending key of the given
// extended full viewing key is stored.
func (s *BasicKeyStore) HaveSaplingSpendingKey(xfvk chainkeys.SaplingExtFVK) bool {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	_, ok := s.saplingKeys[xfvk]
	return ok
}

func (s *BasicKeyStore) addSaplingFVKLocked(xfvk chainkeys.SaplingExtFVK) {
	s.saplingFVKs[xfvk.Fingerprint()] = xfvk
}

// AddSaplingExtFVK indexes an extended full viewing key.
func (s *BasicKeyStore) AddSaplingExtFVK(xfvk chainkeys.SaplingExtFVK) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.addSaplingFVKLocked(xfvk)
	return nil
}

// GetSaplingExtFVK returns the extended full viewing key with the given
// fingerprint.
func (s *BasicKeyStore) GetSaplingExtFVK(fp chainkeys.Fingerprint) (chainkeys.SaplingExtFVK, error) {
	const op errors.Op = "keystore.GetSaplingExtFVK"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	xfvk, ok := s.saplingFVKs[fp]
	if !ok {
		return chainkeys.SaplingExtFVK{}, errors.E(op, errors.NotExist)
	}
	return xfvk, nil
}

// HaveSaplingExtFVK reports whether an extended full viewing key with the
// given fingerprint is indexed.
func (s *BasicKeyStore) HaveSaplingExtFVK(fp chainkeys.Fingerprint) bool {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	_, ok := s.saplingFVKs[fp]
	return ok
}

// Sapling address directory.

func (s *BasicKeyStore) addSaplingAddrLocked(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress) {
	s.saplingAddrs[addr] = ivk
}

// AddSaplingPaymentAddress indexes a payment address under its incoming
// viewing key.
func (s *BasicKeyStore) AddSaplingPaymentAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.addSaplingAddrLocked(ivk, addr)
	return nil
}

// GetSaplingIVK returns the incoming viewing key of a payment address.
func (s *BasicKeyStore) GetSaplingIVK(addr chainkeys.SaplingPaymentAddress) (chainkeys.SaplingIVK, error) {
	const op errors.Op = "keystore.GetSaplingIVK"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	ivk, ok := s.saplingAddrs[addr]
	if !ok {
		return chainkeys.SaplingIVK{}, errors.E(op, errors.NotExist)
	}
	return ivk, nil
}

// HaveSaplingPaymentAddress reports whether a payment address is indexed.
func (s *BasicKeyStore) HaveSaplingPaymentAddress(addr chainkeys.SaplingPaymentAddress) bool {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	_, ok := s.saplingAddrs[addr]
	return ok
}

func (s *BasicKeyStore) addSaplingDivAddrLocked(addr chainkeys.SaplingPaymentAddress, entry DiversifiedEntry) {
	s.saplingDivAddrs[addr] = entry
}

// AddSaplingDiversifiedAddress records a diversified payment address with
// its viewing key and derivation path.
func (s *BasicKeyStore) AddSaplingDiversifiedAddress(addr chainkeys.SaplingPaymentAddress, ivk chainkeys.SaplingIVK, path chainkeys.DiversifierPath) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.addSaplingDivAddrLocked(addr, DiversifiedEntry{IVK: ivk, Path: path})
	return nil
}

// GetSaplingDiversifiedAddress returns the viewing key and path of a
// diversified payment address.
func (s *BasicKeyStore) GetSaplingDiversifiedAddress(addr chainkeys.SaplingPaymentAddress) (DiversifiedEntry, error) {
	const op errors.Op = "keystore.GetSaplingDiversifiedAddress"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	entry, ok := s.saplingDivAddrs[addr]
	if !ok {
		return DiversifiedEntry{}, errors.E(op, errors.NotExist)
	}
	return entry, nil
}

func (s *BasicKeyStore) setLastDiversifierLocked(ivk chainkeys.SaplingIVK, path chainkeys.DiversifierPath) {
	s.lastDiversifiers[ivk] = path
}

// SetLastDiversifier records the most recently used diversifier path of an
// incoming viewing key.
func (s *BasicKeyStore) SetLastDiversifier(ivk chainkeys.SaplingIVK, path chainkeys.DiversifierPath) error {
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	s.setLastDiversifierLocked(ivk, path)
	return nil
}

// GetLastDiversifier returns the most recently used diversifier path of an
// incoming viewing key.
func (s *BasicKeyStore) GetLastDiversifier(ivk chainkeys.SaplingIVK) (chainkeys.DiversifierPath, error) {
	const op errors.Op = "keystore.GetLastDiversifier"
	s.spendMu.Lock()
	defer s.spendMu.Unlock()
	path, ok := s.lastDiversifiers[ivk]
	if !ok {
		return chainkeys.DiversifierPath{}, errors.E(op, errors.NotExist)
	}
	return path, nil
}

// zeroSecretsLocked zeroizes and drops every plaintext secret.  Viewing
// material (receiving keys, viewing keys, address directories) is retained.
//
// Both mutexes must be held.
func (s *BasicKeyStore) zeroSecretsLocked() {
	for id, key := range s.keys {
		key.Zero()
		delete(s.keys, id)
	}
	for addr, sk := range s.sproutKeys {
		sk.Zero()
		delete(s.sproutKeys, addr)
	}
	for xfvk, sk := range s.saplingKeys {
		sk.Zero()
		delete(s.saplingKeys, xfvk)
	}
	if s.hdSeed != nil {
		s.hdSeed.Zero()
		s.hdSeed = nil
	}
}
