// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/internal/secmem"
	"github.com/obscuranet/obwallet/kdf"
	"github.com/obscuranet/obwallet/keystore"
)

var masterBytes = bytes.Repeat([]byte{0xAA}, 32)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMasterKeyParamsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.MasterKeyParams(); !errors.Is(errors.NotExist, err) {
		t.Errorf("params on fresh db: %v", err)
	}

	p := &kdf.Params{Rounds: 25000, Method: kdf.MethodSHA512}
	copy(p.Salt[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err := db.PutMasterKeyParams(p); err != nil {
		t.Fatal(err)
	}
	got, err := db.MasterKeyParams()
	if err != nil {
		t.Fatal(err)
	}
	if *got != *p {
		t.Errorf("params round trip mismatch: got %+v want %+v", got, p)
	}
}

// TestPersistAndReplay drives the full wallet startup path: encrypt a
// keystore into the database, reopen the file, replay into a fresh locked
// keystore, unlock, and read every secret back.
func TestPersistAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	ks := keystore.NewCryptoKeyStore(db, nil)

	seed, err := chainkeys.NewHDSeed(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatal(err)
	}
	seedFP := seed.Fingerprint()
	if err := ks.SetHDSeed(seed); err != nil {
		t.Fatal(err)
	}

	key, err := chainkeys.NewTransparentKey(bytes.Repeat([]byte{0x01}, 32), true)
	if err != nil {
		t.Fatal(err)
	}
	keyID := key.KeyID()
	if err := ks.AddTransparentKey(key); err != nil {
		t.Fatal(err)
	}

	sprout, err := chainkeys.NewSproutSpendingKey(bytes.Repeat([]byte{0x02}, 32))
	if err != nil {
		t.Fatal(err)
	}
	sproutAddr := sprout.Address()
	sproutRK := sprout.ReceivingKey()
	if err := ks.AddSproutSpendingKey(sprout); err != nil {
		t.Fatal(err)
	}

	var sapling chainkeys.SaplingExtSK
	for i := range sapling.ExpandedKey {
		sapling.ExpandedKey[i] = byte(i)
	}
	sapling.XFVK.FVK[0] = 0x99
	xfvk := sapling.ExtFVK()
	wantSapling := sapling
	if err := ks.AddSaplingSpendingKey(&sapling); err != nil {
		t.Fatal(err)
	}

	ivk := xfvk.IVK()
	var addr chainkeys.SaplingPaymentAddress
	addr.PkD[5] = 0x11
	if err := ks.AddSaplingPaymentAddress(ivk, addr); err != nil {
		t.Fatal(err)
	}

	master := secmem.NewBufferFromBytes(append([]byte(nil), masterBytes...))
	if err := ks.EncryptKeys(master); err != nil {
		t.Fatal(err)
	}

	counts, err := db.RecordCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts.HDSeeds != 1 || counts.TransparentKeys != 1 ||
		counts.SproutKeys != 1 || counts.SaplingKeys != 1 ||
		counts.PaymentAddresses != 1 {
		t.Fatalf("unexpected record counts: %+v", counts)
	}

	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen and replay, as wallet startup does.
	db2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()

	ks2 := keystore.NewCryptoKeyStore(db2, nil)
	if err := db2.ReplayLocked(ks2); err != nil {
		t.Fatal(err)
	}
	if !ks2.IsLocked() {
		t.Fatal("keystore is not locked after replay")
	}

	// Viewing material is available before unlock.
	rk, err := ks2.GetSproutReceivingKey(sproutAddr)
	if err != nil || rk != sproutRK {
		t.Errorf("receiving key after locked replay: %v", err)
	}
	if !ks2.HaveHDSeed() {
		t.Error("HaveHDSeed is false after locked replay")
	}

	// Secrets are not.
	if _, err := ks2.GetTransparentKey(keyID); !errors.Is(errors.Locked, err) {
		t.Errorf("transparent Get while locked: %v", err)
	}

	if err := ks2.Unlock(bytes.Repeat([]byte{0xBB}, 32)); !errors.Is(errors.Passphrase, err) {
		t.Errorf("Unlock with wrong key: %v", err)
	}
	if err := ks2.Unlock(masterBytes); err != nil {
		t.Fatal(err)
	}
	if err := db2.ReplayUnlocked(ks2); err != nil {
		t.Fatal(err)
	}

	gotSeed, err := ks2.GetHDSeed()
	if err != nil {
		t.Fatal(err)
	}
	if gotSeed.Fingerprint() != seedFP {
		t.Error("replayed seed fingerprint differs")
	}
	gotKey, err := ks2.GetTransparentKey(keyID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotKey.PrivBytes(), bytes.Repeat([]byte{0x01}, 32)) {
		t.Error("replayed transparent key differs")
	}
	if _, err := ks2.GetSproutSpendingKey(sproutAddr); err != nil {
		t.Errorf("replayed sprout key: %v", err)
	}
	gotSapling, err := ks2.GetSaplingSpendingKey(xfvk)
	if err != nil {
		t.Fatal(err)
	}
	if *gotSapling != wantSapling {
		t.Error("replayed sapling key differs")
	}
	gotIVK, err := ks2.GetSaplingIVK(addr)
	if err != nil || gotIVK != ivk {
		t.Errorf("replayed payment address: %v", err)
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Remove(); err != nil {
		t.Fatal(err)
	}
	db2, err := Open(path)
	if err != nil {
		t.Fatal("reopen after Remove failed:", err)
	}
	db2.Close()
}
