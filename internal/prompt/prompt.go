// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package prompt provides terminal prompting for wallet passphrases.
package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PassPhrase prompts for the wallet private passphrase without echoing the
// input.  Empty input repeats the prompt.
func PassPhrase(prompt string) ([]byte, error) {
	for {
		fmt.Printf("%s: ", prompt)
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return nil, err
		}
		pass = bytes.TrimSpace(pass)
		if len(pass) == 0 {
			continue
		}
		return pass, nil
	}
}

// Confirm prompts for a yes/no answer, returning true for yes.  The answer
// defaults to no.
func Confirm(prompt string) (bool, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s (y/N): ", prompt)
	reply, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	reply = strings.ToLower(strings.TrimSpace(reply))
	return reply == "y" || reply == "yes", nil
}
