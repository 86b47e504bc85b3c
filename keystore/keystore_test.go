// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"bytes"
	"testing"

	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/secmem"
)

// Captured crypted records, one small type per callback shape.
type persistedKey struct {
	pub []byte
	ct  []byte
}

type persistedSprout struct {
	addr chainkeys.SproutPaymentAddress
	rk   chainkeys.SproutReceivingKey
	ct   []byte
}

type persistedSapling struct {
	xfvk chainkeys.SaplingExtFVK
	ct   []byte
}

type persistedAddr struct {
	ivk  chainkeys.SaplingIVK
	addr chainkeys.SaplingPaymentAddress
	path chainkeys.DiversifierPath
	ct   []byte
}

// recordingPersister captures every persisted crypted record so tests can
// replay them into a fresh store.
type recordingPersister struct {
	seedFP   chainkeys.Fingerprint
	seed     []byte
	keys     []persistedKey
	sprout   []persistedSprout
	sapling  []persistedSapling
	fvks     []persistedSapling
	addrs    []persistedAddr
	divAddrs []persistedAddr
}

func cloneBytes(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

func (r *recordingPersister) PersistCryptedHDSeed(fp chainkeys.Fingerprint, ct []byte) error {
	r.seedFP = fp
	r.seed = cloneBytes(ct)
	return nil
}

func (r *recordingPersister) PersistCryptedTransparentKey(pub, ct []byte) error {
	r.keys = append(r.keys, persistedKey{cloneBytes(pub), cloneBytes(ct)})
	return nil
}

func (r *recordingPersister) PersistCryptedSproutKey(addr chainkeys.SproutPaymentAddress, rk chainkeys.SproutReceivingKey, ct []byte) error {
	r.sprout = append(r.sprout, persistedSprout{addr, rk, cloneBytes(ct)})
	return nil
}

func (r *recordingPersister) PersistCryptedSaplingKey(xfvk chainkeys.SaplingExtFVK, ct []byte) error {
	r.sapling = append(r.sapling, persistedSapling{xfvk, cloneBytes(ct)})
	return nil
}

func (r *recordingPersister) PersistCryptedSaplingExtFVK(xfvk chainkeys.SaplingExtFVK, ct []byte) error {
	r.fvks = append(r.fvks, persistedSapling{xfvk, cloneBytes(ct)})
	return nil
}

func (r *recordingPersister) PersistCryptedSaplingPaymentAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress, ct []byte) error {
	r.addrs = append(r.addrs, persistedAddr{ivk: ivk, addr: addr, ct: cloneBytes(ct)})
	return nil
}

func (r *recordingPersister) PersistCryptedSaplingDiversifiedAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress, path chainkeys.DiversifierPath, ct []byte) error {
	r.divAddrs = append(r.divAddrs, persistedAddr{ivk: ivk, addr: addr, path: path, ct: cloneBytes(ct)})
	return nil
}

// failingPersister fails the transparent-key callback; the other
// callbacks succeed as no-ops.
type failingPersister struct{ nopPersister }

func (failingPersister) PersistCryptedTransparentKey([]byte, []byte) error {
	return errors.New("disk full")
}

var (
	masterBytes      = bytes.Repeat([]byte{0xAA}, 32)
	wrongMasterBytes = bytes.Repeat([]byte{0xBB}, 32)
	scalarOne        = bytes.Repeat([]byte{0x01}, 32)
)

func testMaster(t *testing.T) *secmem.Buffer {
	t.Helper()
	return secmem.NewBufferFromBytes(cloneBytes(masterBytes))
}

func testTransparentKey(t *testing.T) *chainkeys.TransparentKey {
	t.Helper()
	key, err := chainkeys.NewTransparentKey(cloneBytes(scalarOne), true)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func testSproutKey(t *testing.T, fill byte) *chainkeys.SproutSpendingKey {
	t.Helper()
	sk, err := chainkeys.NewSproutSpendingKey(bytes.Repeat([]byte{fill}, chainkeys.SproutKeyLen))
	if err != nil {
		t.Fatal(err)
	}
	return sk
}

func testSaplingKey(fill byte) *chainkeys.SaplingExtSK {
	var sk chainkeys.SaplingExtSK
	for i := range sk.ExpandedKey {
		sk.ExpandedKey[i] = fill
	}
	for i := range sk.ChainCode {
		sk.ChainCode[i] = fill ^ 0x55
	}
	for i := range sk.XFVK.FVK {
		sk.XFVK.FVK[i] = fill ^ 0xAA
	}
	for i := range sk.XFVK.ChainCode {
		sk.XFVK.ChainCode[i] = fill ^ 0x0F
	}
	for i := range sk.XFVK.DiversifierKey {
		sk.XFVK.DiversifierKey[i] = fill ^ 0xF0
	}
	return &sk
}

func TestPlaintextTransparentKey(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	key := testTransparentKey(t)
	id := key.KeyID()
	if err := s.AddTransparentKey(key); err != nil {
		t.Fatal(err)
	}
	if s.IsCrypted() || s.IsLocked() {
		t.Error("fresh store is not plaintext")
	}
	got, err := s.GetTransparentKey(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.PrivBytes(), scalarOne) {
		t.Error("retrieved scalar differs from stored scalar")
	}
	if !s.HaveTransparentKey(id) {
		t.Error("HaveTransparentKey is false after Add")
	}
}

func TestEncryptKeysMigration(t *testing.T) {
	rec := new(recordingPersister)
	s := NewCryptoKeyStore(rec, nil)
	key := testTransparentKey(t)
	id := key.KeyID()
	if err := s.AddTransparentKey(key); err != nil {
		t.Fatal(err)
	}

	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if !s.IsCrypted() || s.IsLocked() {
		t.Error("store is not encrypted and unlocked after EncryptKeys")
	}
	if len(s.basic.keys) != 0 {
		t.Error("plaintext key map is not empty after EncryptKeys")
	}
	if len(s.cryptedKeys) != 1 {
		t.Fatalf("crypted key map has %d entries, want 1", len(s.cryptedKeys))
	}
	if len(rec.keys) != 1 {
		t.Fatalf("persisted %d transparent records, want 1", len(rec.keys))
	}

	got, err := s.GetTransparentKey(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.PrivBytes(), scalarOne) {
		t.Error("decrypted scalar differs from original")
	}

	// A second migration is refused.
	if err := s.EncryptKeys(testMaster(t)); !errors.Is(errors.Invalid, err) {
		t.Errorf("second EncryptKeys: %v", err)
	}
}

func TestLockUnlockCycle(t *testing.T) {
	var lockEvents, unlockEvents int
	notify := func(locked bool) {
		if locked {
			lockEvents++
		} else {
			unlockEvents++
		}
	}
	s := NewCryptoKeyStore(nil, notify)
	key := testTransparentKey(t)
	id := key.KeyID()
	if err := s.AddTransparentKey(key); err != nil {
		t.Fatal(err)
	}
	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}

	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if !s.IsLocked() {
		t.Error("store is not locked after Lock")
	}
	if _, err := s.GetTransparentKey(id); !errors.Is(errors.Locked, err) {
		t.Errorf("Get while locked: %v", err)
	}
	if _, err := s.GetHDSeed(); !errors.Is(errors.Locked, err) {
		t.Errorf("GetHDSeed while locked: %v", err)
	}

	// Wrong master key.
	if err := s.Unlock(wrongMasterBytes); !errors.Is(errors.Passphrase, err) {
		t.Errorf("Unlock with wrong key: %v", err)
	}
	if !s.IsLocked() {
		t.Error("failed Unlock changed the mode")
	}
	if _, err := s.GetTransparentKey(id); err == nil {
		t.Error("Get succeeded after failed Unlock")
	}

	// Correct master key.
	if err := s.Unlock(masterBytes); err != nil {
		t.Fatal(err)
	}
	if s.IsLocked() {
		t.Error("store is locked after successful Unlock")
	}
	got, err := s.GetTransparentKey(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.PrivBytes(), scalarOne) {
		t.Error("decrypted scalar differs after unlock")
	}

	if lockEvents != 1 || unlockEvents != 1 {
		t.Errorf("notifications: %d lock, %d unlock; want 1 and 1",
			lockEvents, unlockEvents)
	}
}

func TestHDSeedWriteOnce(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	seed, err := chainkeys.NewHDSeed(make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	fp := seed.Fingerprint()
	if err := s.SetHDSeed(seed); err != nil {
		t.Fatal(err)
	}
	if !s.HaveHDSeed() {
		t.Fatal("HaveHDSeed is false after SetHDSeed")
	}

	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if !s.HaveHDSeed() {
		t.Error("HaveHDSeed is false after EncryptKeys")
	}
	if s.basic.hdSeed != nil {
		t.Error("plaintext seed retained after EncryptKeys")
	}

	got, err := s.GetHDSeed()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.RawSeed(), make([]byte, 32)) {
		t.Error("decrypted seed differs from original")
	}
	if got.Fingerprint() != fp {
		t.Error("decrypted seed fingerprint differs")
	}

	// The crypted seed record is write-once.
	before := cloneBytes(s.cryptedSeed)
	err = s.SetCryptedHDSeed(fp, []byte("bogus ciphertext"))
	if !errors.Is(errors.Exist, err) {
		t.Errorf("second SetCryptedHDSeed: %v", err)
	}
	if !bytes.Equal(s.cryptedSeed, before) {
		t.Error("stored seed ciphertext changed")
	}

	seed2, err := chainkeys.NewHDSeed(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetHDSeed(seed2); !errors.Is(errors.Exist, err) {
		t.Errorf("SetHDSeed over crypted seed: %v", err)
	}
}

func TestUnlockPartialDecryptPanics(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	seed, err := chainkeys.NewHDSeed(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetHDSeed(seed); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTransparentKey(testTransparentKey(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}

	// Tamper with the single transparent ciphertext.  The seed still
	// decrypts, producing the partial state that must never be survivable.
	for id, ck := range s.cryptedKeys {
		ck.ciphertext[0] ^= 0xFF
		s.cryptedKeys[id] = ck
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Unlock did not panic on partial decryption")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(errors.Corrupt, err) {
			t.Fatalf("unexpected panic value: %v", r)
		}
	}()
	s.Unlock(masterBytes)
}

func TestSetCrypted(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	if err := s.SetCrypted(); err != nil {
		t.Fatal(err)
	}
	if !s.IsCrypted() || !s.IsLocked() {
		t.Error("SetCrypted did not advance to encrypted locked mode")
	}
	// Idempotent.
	if err := s.SetCrypted(); err != nil {
		t.Fatal(err)
	}

	// Refused while plaintext secrets exist.
	s2 := NewCryptoKeyStore(nil, nil)
	if err := s2.AddTransparentKey(testTransparentKey(t)); err != nil {
		t.Fatal(err)
	}
	if err := s2.SetCrypted(); !errors.Is(errors.Invalid, err) {
		t.Errorf("SetCrypted with plaintext secrets: %v", err)
	}
}

func TestLockPlaintextFails(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	if err := s.Lock(); !errors.Is(errors.Plaintext, err) {
		t.Errorf("Lock on plaintext store: %v", err)
	}
	if err := s.Unlock(masterBytes); !errors.Is(errors.Plaintext, err) {
		t.Errorf("Unlock on plaintext store: %v", err)
	}
}

func TestAddWhileLockedFails(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	if err := s.SetCrypted(); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTransparentKey(testTransparentKey(t)); !errors.Is(errors.Locked, err) {
		t.Errorf("AddTransparentKey while locked: %v", err)
	}
	if err := s.AddSproutSpendingKey(testSproutKey(t, 9)); !errors.Is(errors.Locked, err) {
		t.Errorf("AddSproutSpendingKey while locked: %v", err)
	}
	if err := s.AddSaplingSpendingKey(testSaplingKey(9)); !errors.Is(errors.Locked, err) {
		t.Errorf("AddSaplingSpendingKey while locked: %v", err)
	}
	seed, err := chainkeys.NewHDSeed(make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetHDSeed(seed); !errors.Is(errors.Locked, err) {
		t.Errorf("SetHDSeed while locked: %v", err)
	}
}

func TestShieldedRoundTrip(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)

	sprout := testSproutKey(t, 0x11)
	sproutAddr := sprout.Address()
	sproutRK := sprout.ReceivingKey()
	if err := s.AddSproutSpendingKey(sprout); err != nil {
		t.Fatal(err)
	}

	sapling := testSaplingKey(0x22)
	want := *sapling
	xfvk := sapling.ExtFVK()
	if err := s.AddSaplingSpendingKey(sapling); err != nil {
		t.Fatal(err)
	}

	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if len(s.basic.sproutKeys) != 0 || len(s.basic.saplingKeys) != 0 {
		t.Error("plaintext shielded maps are not empty after EncryptKeys")
	}

	gotSprout, err := s.GetSproutSpendingKey(sproutAddr)
	if err != nil {
		t.Fatal(err)
	}
	if gotSprout.Address() != sproutAddr {
		t.Error("sprout key mismatch after migration")
	}
	gotSapling, err := s.GetSaplingSpendingKey(xfvk)
	if err != nil {
		t.Fatal(err)
	}
	if *gotSapling != want {
		t.Error("sapling key mismatch after migration")
	}

	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSproutSpendingKey(sproutAddr); !errors.Is(errors.Locked, err) {
		t.Errorf("sprout Get while locked: %v", err)
	}
	if _, err := s.GetSaplingSpendingKey(xfvk); !errors.Is(errors.Locked, err) {
		t.Errorf("sapling Get while locked: %v", err)
	}

	// Viewing material stays available while locked.
	rk, err := s.GetSproutReceivingKey(sproutAddr)
	if err != nil || rk != sproutRK {
		t.Errorf("receiving key while locked: %v", err)
	}
	if !s.HaveSaplingExtFVK(xfvk.Fingerprint()) {
		t.Error("fvk index unavailable while locked")
	}
	if !s.HaveSproutSpendingKey(sproutAddr) || !s.HaveSaplingSpendingKey(xfvk) {
		t.Error("Have queries failed while locked")
	}

	if err := s.Unlock(masterBytes); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSproutSpendingKey(sproutAddr); err != nil {
		t.Errorf("sprout Get after unlock: %v", err)
	}
}

func TestGetPubKeyWhileLocked(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	key := testTransparentKey(t)
	id := key.KeyID()
	pub := key.SerializedPubKey()
	if err := s.AddTransparentKey(key); err != nil {
		t.Fatal(err)
	}
	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetPubKey(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pub) {
		t.Error("public key differs while locked")
	}
}

func TestReplayRoundTrip(t *testing.T) {
	rec := new(recordingPersister)
	s := NewCryptoKeyStore(rec, nil)

	seed, err := chainkeys.NewHDSeed(bytes.Repeat([]byte{0x5C}, 32))
	if err != nil {
		t.Fatal(err)
	}
	seedFP := seed.Fingerprint()
	if err := s.SetHDSeed(seed); err != nil {
		t.Fatal(err)
	}
	key := testTransparentKey(t)
	keyID := key.KeyID()
	if err := s.AddTransparentKey(key); err != nil {
		t.Fatal(err)
	}
	sprout := testSproutKey(t, 0x33)
	sproutAddr := sprout.Address()
	if err := s.AddSproutSpendingKey(sprout); err != nil {
		t.Fatal(err)
	}
	sapling := testSaplingKey(0x44)
	xfvk := sapling.ExtFVK()
	if err := s.AddSaplingSpendingKey(sapling); err != nil {
		t.Fatal(err)
	}

	// A watch-only viewing key and address records migrate too.
	watchFVK := testSaplingKey(0x55).ExtFVK()
	if err := s.AddSaplingExtFVK(watchFVK); err != nil {
		t.Fatal(err)
	}
	ivk := xfvk.IVK()
	var addr chainkeys.SaplingPaymentAddress
	addr.PkD[0] = 0x66
	if err := s.AddSaplingPaymentAddress(ivk, addr); err != nil {
		t.Fatal(err)
	}
	var divAddr chainkeys.SaplingPaymentAddress
	divAddr.PkD[0] = 0x77
	copy(divAddr.Diversifier[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	path := chainkeys.DiversifierPath{0: 1}
	if err := s.AddSaplingDiversifiedAddress(divAddr, ivk, path); err != nil {
		t.Fatal(err)
	}

	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if len(rec.fvks) != 1 {
		t.Fatalf("persisted %d watch-only fvk records, want 1", len(rec.fvks))
	}
	if len(rec.addrs) == 0 || len(rec.divAddrs) == 0 {
		t.Fatal("address records were not persisted")
	}

	// Replay everything into a fresh store, as wallet startup does.
	s2 := NewCryptoKeyStore(nil, nil)
	if err := s2.SetCrypted(); err != nil {
		t.Fatal(err)
	}
	if err := s2.SetCryptedHDSeed(rec.seedFP, rec.seed); err != nil {
		t.Fatal(err)
	}
	for _, k := range rec.keys {
		if err := s2.LoadCryptedTransparentKey(k.pub, k.ct); err != nil {
			t.Fatal(err)
		}
	}
	for _, sp := range rec.sprout {
		if err := s2.LoadCryptedSproutKey(sp.addr, sp.rk, sp.ct); err != nil {
			t.Fatal(err)
		}
	}
	for _, sa := range rec.sapling {
		if err := s2.LoadCryptedSaplingKey(sa.xfvk, sa.ct); err != nil {
			t.Fatal(err)
		}
	}

	// Records validated against the plaintext identifier require the
	// master key and are replayed after unlock.
	if err := s2.LoadCryptedSaplingExtFVK(rec.fvks[0].xfvk.Fingerprint(), rec.fvks[0].ct); !errors.Is(errors.Locked, err) {
		t.Errorf("fvk replay while locked: %v", err)
	}

	if err := s2.Unlock(masterBytes); err != nil {
		t.Fatal(err)
	}
	if err := s2.LoadCryptedSaplingExtFVK(rec.fvks[0].xfvk.Fingerprint(), rec.fvks[0].ct); err != nil {
		t.Fatal(err)
	}
	for _, a := range rec.addrs {
		if err := s2.LoadCryptedSaplingPaymentAddress(a.addr.Hash(), a.ct); err != nil {
			t.Fatal(err)
		}
	}
	for _, da := range rec.divAddrs {
		if err := s2.LoadCryptedSaplingDiversifiedAddress(da.addr.Hash(), da.ct); err != nil {
			t.Fatal(err)
		}
	}

	gotSeed, err := s2.GetHDSeed()
	if err != nil {
		t.Fatal(err)
	}
	if gotSeed.Fingerprint() != seedFP {
		t.Error("replayed seed fingerprint differs")
	}
	gotKey, err := s2.GetTransparentKey(keyID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotKey.PrivBytes(), scalarOne) {
		t.Error("replayed transparent key differs")
	}
	if _, err := s2.GetSproutSpendingKey(sproutAddr); err != nil {
		t.Errorf("replayed sprout key: %v", err)
	}
	if _, err := s2.GetSaplingSpendingKey(xfvk); err != nil {
		t.Errorf("replayed sapling key: %v", err)
	}
	if !s2.HaveSaplingExtFVK(watchFVK.Fingerprint()) {
		t.Error("replayed watch-only fvk missing")
	}
	gotIVK, err := s2.GetSaplingIVK(addr)
	if err != nil || gotIVK != ivk {
		t.Errorf("replayed payment address: %v", err)
	}
	entry, err := s2.GetSaplingDiversifiedAddress(divAddr)
	if err != nil || entry.IVK != ivk || entry.Path != path {
		t.Errorf("replayed diversified address: %v", err)
	}
}

func TestAuxHelpers(t *testing.T) {
	s := NewCryptoKeyStore(nil, nil)
	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}

	script := []byte{0x51, 0x21, 0x03, 0x01, 0x02}
	fp, ct, err := s.EncryptRedeemScript(script)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.DecryptRedeemScript(fp, ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, script) {
		t.Error("redeem script round trip mismatch")
	}
	var wrongFP chainkeys.Fingerprint
	wrongFP[31] = 1
	copy(wrongFP[:16], fp[:16]) // same IV, wrong fingerprint
	if _, err := s.DecryptRedeemScript(wrongFP, ct); !errors.Is(errors.Mismatch, err) {
		t.Errorf("script fingerprint mismatch: %v", err)
	}

	var handle chainkeys.Fingerprint
	for i := range handle {
		handle[i] = byte(0xC0 + i)
	}
	ct, err = s.EncryptStringPair(handle, "account label", "métadonnées")
	if err != nil {
		t.Fatal(err)
	}
	first, second, err := s.DecryptStringPair(handle, ct)
	if err != nil {
		t.Fatal(err)
	}
	if first != "account label" || second != "métadonnées" {
		t.Error("string pair round trip mismatch")
	}

	pub := append([]byte{0x02}, bytes.Repeat([]byte{0xEE}, 32)...)
	ct, err = s.EncryptPublicKey(handle, pub)
	if err != nil {
		t.Fatal(err)
	}
	gotPub, err := s.DecryptPublicKey(handle, ct)
	if err != nil || !bytes.Equal(gotPub, pub) {
		t.Errorf("public key round trip: %v", err)
	}

	blob := bytes.Repeat([]byte{0xD1}, 100)
	ct, err = s.EncryptWalletTx(handle, blob)
	if err != nil {
		t.Fatal(err)
	}
	gotBlob, err := s.DecryptWalletTx(handle, ct)
	if err != nil || !bytes.Equal(gotBlob, blob) {
		t.Errorf("wallet tx round trip: %v", err)
	}

	meta := &chainkeys.KeyMetadata{
		Version:    chainkeys.CurrentMetadataVersion,
		CreateTime: 1690000000,
		KeyPath:    "m/32'/133'/1'",
	}
	ct, err = s.EncryptKeyMetadata(handle, meta)
	if err != nil {
		t.Fatal(err)
	}
	gotMeta, err := s.DecryptKeyMetadata(handle, ct)
	if err != nil {
		t.Fatal(err)
	}
	if *gotMeta != *meta {
		t.Error("metadata round trip mismatch")
	}

	var ivk chainkeys.SaplingIVK
	ivk[0] = 9
	path := chainkeys.DiversifierPath{10: 4}
	ct, err = s.EncryptLastDiversifier(handle, ivk, path)
	if err != nil {
		t.Fatal(err)
	}
	gotIVK, gotPath, err := s.DecryptLastDiversifier(handle, ct)
	if err != nil || gotIVK != ivk || gotPath != path {
		t.Errorf("last diversifier round trip: %v", err)
	}

	// All helpers refuse while locked.
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.EncryptRedeemScript(script); !errors.Is(errors.Locked, err) {
		t.Errorf("EncryptRedeemScript while locked: %v", err)
	}
	if _, err := s.DecryptWalletTx(handle, ct); !errors.Is(errors.Locked, err) {
		t.Errorf("DecryptWalletTx while locked: %v", err)
	}
}

func TestPersistErrorAborts(t *testing.T) {
	s := NewCryptoKeyStore(failingPersister{}, nil)
	if err := s.EncryptKeys(testMaster(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTransparentKey(testTransparentKey(t)); !errors.Is(errors.IO, err) {
		t.Errorf("Add with failing persistence: %v", err)
	}
}
