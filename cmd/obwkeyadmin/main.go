// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// obwkeyadmin inspects and checks Obscura wallet key databases.  It never
// prints secret material: the inventory command reports record counts per
// class, and the checkpass command verifies a passphrase by replaying the
// database into a locked in-memory keystore and attempting an unlock.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/obscuranet/obwallet/internal/prompt"
	"github.com/obscuranet/obwallet/internal/zero"
	"github.com/obscuranet/obwallet/kdf"
	"github.com/obscuranet/obwallet/keystore"
	"github.com/obscuranet/obwallet/version"
	"github.com/obscuranet/obwallet/walletdb"
)

var newlineBytes = []byte{'\n'}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Stderr.Write(newlineBytes)
	os.Exit(1)
}

// Flags.
var opts = struct {
	DB         string `short:"f" long:"db" description:"Path to the wallet key database"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	CheckPass  bool   `long:"checkpass" description:"Prompt for the passphrase and verify it unlocks every record"`
	Version    bool   `short:"V" long:"version" description:"Display version information and exit"`
}{
	DB:         filepath.Join(appDataDir(), "keys.db"),
	DebugLevel: "info",
}

func appDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".obwallet")
}

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if opts.Version {
		fmt.Printf("obwkeyadmin version %s\n", version.String())
		return
	}

	if opts.LogDir != "" {
		initLogRotator(filepath.Join(opts.LogDir, "obwkeyadmin.log"))
		defer logRotator.Close()
	}
	if err := setLogLevel(opts.DebugLevel); err != nil {
		fatalf("%v", err)
	}
	keystore.UseLogger(keystoreLog)

	db, err := walletdb.Open(opts.DB)
	if err != nil {
		fatalf("open %s: %v", opts.DB, err)
	}
	defer db.Close()

	counts, err := db.RecordCounts()
	if err != nil {
		fatalf("read record counts: %v", err)
	}
	fmt.Printf("wallet key database: %s\n", opts.DB)
	fmt.Printf("  hd seeds:              %d\n", counts.HDSeeds)
	fmt.Printf("  transparent keys:      %d\n", counts.TransparentKeys)
	fmt.Printf("  sprout keys:           %d\n", counts.SproutKeys)
	fmt.Printf("  sapling keys:          %d\n", counts.SaplingKeys)
	fmt.Printf("  watch-only fvks:       %d\n", counts.SaplingFVKs)
	fmt.Printf("  payment addresses:     %d\n", counts.PaymentAddresses)
	fmt.Printf("  diversified addresses: %d\n", counts.DiversifiedAddresses)

	if !opts.CheckPass {
		return
	}

	params, err := db.MasterKeyParams()
	if err != nil {
		fatalf("read master key parameters: %v", err)
	}
	log.Infof("Key derivation: method %d, %d rounds", params.Method, params.Rounds)

	pass, err := prompt.PassPhrase("Enter the wallet passphrase")
	if err != nil {
		fatalf("read passphrase: %v", err)
	}
	key, iv, err := kdf.DeriveKeyIV(pass, params)
	zero.Bytes(pass)
	if err != nil {
		fatalf("derive master key: %v", err)
	}
	zero.Bytea16(iv)

	ks := keystore.NewCryptoKeyStore(nil, nil)
	if err := db.ReplayLocked(ks); err != nil {
		zero.Bytea32(key)
		fatalf("replay records: %v", err)
	}
	err = ks.Unlock(key[:])
	zero.Bytea32(key)
	if err != nil {
		fatalf("passphrase check failed: %v", err)
	}
	defer ks.Lock()
	if err := db.ReplayUnlocked(ks); err != nil {
		fatalf("replay viewing records: %v", err)
	}
	fmt.Println("passphrase OK: every record decrypted and verified")
}
