// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletdb persists crypted keystore records in a bolt database.
// The database holds only ciphertexts, public material, and the master key
// derivation parameters; nothing in it requires the wallet to be unlocked
// to read.  It implements the keystore's persistence callback surface and
// replays persisted records back into a keystore at startup.
package walletdb

import (
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/obscuranet/obwallet/chainkeys"
	"github.com/obscuranet/obwallet/codec"
	"github.com/obscuranet/obwallet/errors"
	"github.com/obscuranet/obwallet/kdf"
	"github.com/obscuranet/obwallet/keystore"
)

// Bucket names.
var (
	metaBucket        = []byte("meta")
	hdSeedBucket      = []byte("hdseed")
	transparentBucket = []byte("transparentkeys")
	sproutBucket      = []byte("sproutkeys")
	saplingBucket     = []byte("saplingkeys")
	saplingFVKBucket  = []byte("saplingfvks")
	addrBucket        = []byte("saplingaddrs")
	divAddrBucket     = []byte("saplingdivaddrs")
)

// Meta bucket keys.
var (
	masterKeyParamsKey = []byte("masterkeyparams")
)

// convertErr wraps a driver-specific error with an error kind.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var kind errors.Kind
	switch err {
	case bolt.ErrInvalid:
		kind = errors.IO
	case bolt.ErrDatabaseNotOpen, bolt.ErrTxNotWritable, bolt.ErrTxClosed:
		kind = errors.Invalid
	case bolt.ErrBucketNotFound, bolt.ErrBucketExists:
		kind = errors.Invalid
	case bolt.ErrKeyRequired, bolt.ErrKeyTooLarge, bolt.ErrValueTooLarge,
		bolt.ErrIncompatibleValue:
		kind = errors.Invalid
	default:
		kind = errors.IO
	}
	return errors.E(kind, err)
}

// DB is an open wallet database.  It implements keystore.Persister, so a
// CryptoKeyStore constructed over it persists crypted records as they are
// created.
type DB struct {
	db *bolt.DB
}

// Enforce DB implements the keystore persistence surface.
var _ keystore.Persister = (*DB)(nil)

// Open opens the wallet database at path, creating the file and buckets as
// needed.
func Open(path string) (*DB, error) {
	const op errors.Op = "walletdb.Open"
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.E(op, convertErr(err))
	}
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			metaBucket, hdSeedBucket, transparentBucket, sproutBucket,
			saplingBucket, saplingFVKBucket, addrBucket, divAddrBucket,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.E(op, convertErr(err))
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	const op errors.Op = "walletdb.Close"
	if err := d.db.Close(); err != nil {
		return errors.E(op, convertErr(err))
	}
	return nil
}

// Remove closes the database and deletes its file.  Used by tests and
// aborted wallet creations.
func (d *DB) Remove() error {
	const op errors.Op = "walletdb.Remove"
	path := d.db.Path()
	if err := d.db.Close(); err != nil {
		return errors.E(op, convertErr(err))
	}
	if err := os.Remove(path); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

func (d *DB) put(bucket, k, v []byte) error {
	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(k, v)
	})
	return convertErr(err)
}

// PutMasterKeyParams records the derivation parameters of the wallet
// master key.
func (d *DB) PutMasterKeyParams(p *kdf.Params) error {
	const op errors.Op = "walletdb.PutMasterKeyParams"
	b, err := p.MarshalBinary()
	if err != nil {
		return errors.E(op, err)
	}
	if err := d.put(metaBucket, masterKeyParamsKey, b); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// MasterKeyParams returns the recorded master key derivation parameters.
func (d *DB) MasterKeyParams() (*kdf.Params, error) {
	const op errors.Op = "walletdb.MasterKeyParams"
	var p kdf.Params
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(masterKeyParamsKey)
		if v == nil {
			return errors.E(errors.NotExist, "no master key parameters")
		}
		return p.UnmarshalBinary(v)
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &p, nil
}

// keystore.Persister implementation.  Each callback writes one crypted
// record to its class bucket.

// PersistCryptedHDSeed stores the crypted seed record under its
// fingerprint.
func (d *DB) PersistCryptedHDSeed(fp chainkeys.Fingerprint, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedHDSeed"
	if err := d.put(hdSeedBucket, fp[:], ciphertext); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// PersistCryptedTransparentKey stores a crypted transparent key record
// under its serialized public key.
func (d *DB) PersistCryptedTransparentKey(pubKey, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedTransparentKey"
	if err := d.put(transparentBucket, pubKey, ciphertext); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// PersistCryptedSproutKey stores a crypted sprout spending key record under
// its payment address, prefixed with the receiving key needed to rebuild
// the note decryption index while locked.
func (d *DB) PersistCryptedSproutKey(addr chainkeys.SproutPaymentAddress, rk chainkeys.SproutReceivingKey, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedSproutKey"
	k := make([]byte, 0, len(addr.PayingKey)+len(addr.TransmissionKey))
	k = append(k, addr.PayingKey[:]...)
	k = append(k, addr.TransmissionKey[:]...)
	v := make([]byte, 0, len(rk)+len(ciphertext))
	v = append(v, rk[:]...)
	v = append(v, ciphertext...)
	if err := d.put(sproutBucket, k, v); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func serializeExtFVK(xfvk *chainkeys.SaplingExtFVK) []byte {
	e := codec.NewEncoder(codec.ProtocolVersion)
	xfvk.Serialize(e)
	b := make([]byte, e.Len())
	copy(b, e.Bytes())
	return b
}

func deserializeExtFVK(b []byte) (chainkeys.SaplingExtFVK, error) {
	d := codec.NewDecoder(codec.ProtocolVersion, b)
	xfvk, err := chainkeys.DecodeSaplingExtFVK(d)
	if err != nil {
		return chainkeys.SaplingExtFVK{}, err
	}
	return xfvk, d.Finish()
}

// PersistCryptedSaplingKey stores a crypted sapling spending key record
// under its serialized extended full viewing key.
func (d *DB) PersistCryptedSaplingKey(xfvk chainkeys.SaplingExtFVK, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedSaplingKey"
	if err := d.put(saplingBucket, serializeExtFVK(&xfvk), ciphertext); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// PersistCryptedSaplingExtFVK stores a crypted watch-only extended full
// viewing key record under its fingerprint.
func (d *DB) PersistCryptedSaplingExtFVK(xfvk chainkeys.SaplingExtFVK, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedSaplingExtFVK"
	fp := xfvk.Fingerprint()
	if err := d.put(saplingFVKBucket, fp[:], ciphertext); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// PersistCryptedSaplingPaymentAddress stores a crypted payment address
// record under the address hash.
func (d *DB) PersistCryptedSaplingPaymentAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedSaplingPaymentAddress"
	fp := addr.Hash()
	if err := d.put(addrBucket, fp[:], ciphertext); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// PersistCryptedSaplingDiversifiedAddress stores a crypted diversified
// address record under the address hash.
func (d *DB) PersistCryptedSaplingDiversifiedAddress(ivk chainkeys.SaplingIVK, addr chainkeys.SaplingPaymentAddress, path chainkeys.DiversifierPath, ciphertext []byte) error {
	const op errors.Op = "walletdb.PersistCryptedSaplingDiversifiedAddress"
	fp := addr.Hash()
	if err := d.put(divAddrBucket, fp[:], ciphertext); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// ReplayLocked loads every record class that can be installed without the
// master key into ks: the crypted seed, transparent keys, sprout keys, and
// sapling spending keys.  The keystore ends up in the locked encrypted mode
// with no plaintext materialized.
func (d *DB) ReplayLocked(ks *keystore.CryptoKeyStore) error {
	const op errors.Op = "walletdb.ReplayLocked"
	if err := ks.SetCrypted(); err != nil {
		return errors.E(op, err)
	}
	err := d.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(hdSeedBucket).ForEach(func(k, v []byte) error {
			var fp chainkeys.Fingerprint
			if len(k) != len(fp) {
				return errors.E(errors.Encoding, "bad seed fingerprint length")
			}
			copy(fp[:], k)
			return ks.SetCryptedHDSeed(fp, v)
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(transparentBucket).ForEach(func(k, v []byte) error {
			return ks.LoadCryptedTransparentKey(k, v)
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(sproutBucket).ForEach(func(k, v []byte) error {
			var addr chainkeys.SproutPaymentAddress
			var rk chainkeys.SproutReceivingKey
			if len(k) != len(addr.PayingKey)+len(addr.TransmissionKey) ||
				len(v) < len(rk) {
				return errors.E(errors.Encoding, "bad sprout record layout")
			}
			copy(addr.PayingKey[:], k)
			copy(addr.TransmissionKey[:], k[len(addr.PayingKey):])
			copy(rk[:], v)
			return ks.LoadCryptedSproutKey(addr, rk, v[len(rk):])
		})
		if err != nil {
			return err
		}
		return tx.Bucket(saplingBucket).ForEach(func(k, v []byte) error {
			xfvk, err := deserializeExtFVK(k)
			if err != nil {
				return err
			}
			return ks.LoadCryptedSaplingKey(xfvk, v)
		})
	})
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}

// ReplayUnlocked loads the record classes whose identifiers can only be
// validated against their decrypted plaintext: watch-only viewing keys and
// the address directory.  ks must be unlocked.
func (d *DB) ReplayUnlocked(ks *keystore.CryptoKeyStore) error {
	const op errors.Op = "walletdb.ReplayUnlocked"
	err := d.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(saplingFVKBucket).ForEach(func(k, v []byte) error {
			var fp chainkeys.Fingerprint
			if len(k) != len(fp) {
				return errors.E(errors.Encoding, "bad fvk fingerprint length")
			}
			copy(fp[:], k)
			return ks.LoadCryptedSaplingExtFVK(fp, v)
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(addrBucket).ForEach(func(k, v []byte) error {
			var fp chainkeys.Fingerprint
			if len(k) != len(fp) {
				return errors.E(errors.Encoding, "bad address hash length")
			}
			copy(fp[:], k)
			return ks.LoadCryptedSaplingPaymentAddress(fp, v)
		})
		if err != nil {
			return err
		}
		return tx.Bucket(divAddrBucket).ForEach(func(k, v []byte) error {
			var fp chainkeys.Fingerprint
			if len(k) != len(fp) {
				return errors.E(errors.Encoding, "bad address hash length")
			}
			copy(fp[:], k)
			return ks.LoadCryptedSaplingDiversifiedAddress(fp, v)
		})
	})
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Counts reports the number of persisted records per class.
type Counts struct {
	HDSeeds              int
	TransparentKeys      int
	SproutKeys           int
	SaplingKeys          int
	SaplingFVKs          int
	PaymentAddresses     int
	DiversifiedAddresses int
}

// RecordCounts returns the per-class record counts of the database.
func (d *DB) RecordCounts() (Counts, error) {
	const op errors.Op = "walletdb.RecordCounts"
	var c Counts
	err := d.db.View(func(tx *bolt.Tx) error {
		count := func(name []byte) int {
			return tx.Bucket(name).Stats().KeyN
		}
		c.HDSeeds = count(hdSeedBucket)
		c.TransparentKeys = count(transparentBucket)
		c.SproutKeys = count(sproutBucket)
		c.SaplingKeys = count(saplingBucket)
		c.SaplingFVKs = count(saplingFVKBucket)
		c.PaymentAddresses = count(addrBucket)
		c.DiversifiedAddresses = count(divAddrBucket)
		return nil
	})
	if err != nil {
		return Counts{}, errors.E(op, convertErr(err))
	}
	return c, nil
}
