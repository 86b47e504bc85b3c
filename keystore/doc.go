// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package keystore implements the wallet's encrypted key repository.

A CryptoKeyStore begins life in plaintext mode, backed by typed in-memory
maps in a BasicKeyStore.  A one-shot EncryptKeys migration re-encrypts every
stored secret under a user-supplied 32-byte master key, hands the crypted
records to a persistence callback, and drains the plaintext maps.  From then
on Lock and Unlock toggle the store between a locked state, in which only
ciphertexts and non-secret viewing indexes are held, and an unlocked state,
in which the master key is resident in page-locked memory and secrets are
decrypted on demand.

Each crypted record is AES-256-CBC with PKCS#7 padding over the record's
canonical serialization, keyed by the master key, with the first 16 bytes of
the record's 32-byte identifier fingerprint as the IV.  There is no MAC;
integrity is checked probabilistically after decryption by recomputing the
record's fingerprint and comparing it with the identifier.  Unlock verifies
every record this way the first time and refuses master keys that decrypt
only part of the store.

The layout of crypted records matches the legacy wallet format byte for
byte so existing wallet databases remain readable.
*/
package keystore
