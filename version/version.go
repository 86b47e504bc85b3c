// Copyright (c) 2024 The Obscura developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version provides the application version of the wallet keystore
// tooling.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// semverAlphabet is an alphabet of all characters allowed in semver prerelease
// or build metadata identifiers, and the . separator.
const semverAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

// Constants defining the application version number.
const (
	Major = 0
	Minor = 1
	Patch = 0
)

// Integer is an integer encoding of the major.minor.patch version.
const Integer = 1000000*Major + 10000*Minor + 100*Patch

// PreRelease contains the prerelease name of the application.  It is a
// variable so it can be modified at link time (e.g.
// `-ldflags "-X github.com/obscuranet/obwallet/version.PreRelease=rc1"`).
// It must only contain characters from the semantic version alphabet.
var PreRelease = "pre"

// BuildMetadata defines additional build metadata.  It is modified at link
// time for official releases.  It must only contain characters from the
// semantic version alphabet.
var BuildMetadata = ""

func init() {
	if BuildMetadata == "" {
		BuildMetadata = vcsCommitID()
	}
}

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (https://semver.org/).
func String() string {
	version := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)

	// Append pre-release version if there is one.  The hyphen called for
	// by the semantic versioning spec is automatically appended and should
	// not be contained in the pre-release string.  Invalid characters are
	// removed from the pre-release version before it is appended.
	preRelease := normalizeVerString(PreRelease)
	if preRelease != "" {
		version = version + "-" + preRelease
	}

	// Append build metadata if there is any.  The plus called for by the
	// semantic versioning spec is automatically appended and should not be
	// contained in the build metadata string.  Invalid characters are
	// removed from the build metadata string before it is appended.
	buildMetadata := normalizeVerString(BuildMetadata)
	if buildMetadata != "" {
		version = version + "+" + buildMetadata
	}

	return version
}

// vcsCommitID returns an abbreviated VCS revision from the binary's build
// info, when recorded.
func vcsCommitID() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var vcs, revision string
	for _, bs := range bi.Settings {
		switch bs.Key {
		case "vcs":
			vcs = bs.Value
		case "vcs.revision":
			revision = bs.Value
		}
	}
	if vcs == "" || revision == "" {
		return ""
	}
	if vcs == "git" && len(revision) > 9 {
		revision = revision[:9]
	}
	return vcs + "." + revision
}

// normalizeVerString returns the passed string stripped of all characters
// which are not valid according to the semantic versioning guidelines for
// pre-release version and build metadata strings.
func normalizeVerString(str string) string {
	var b strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semverAlphabet, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
