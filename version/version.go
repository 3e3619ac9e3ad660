// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package version reports the build of the xmargin binaries.
package version

import (
	"fmt"
	"runtime/debug"

	"github.com/blang/semver"
)

var (
	// set with -ldflags "-X github.com/xmargin/xmargin/version.cliVersion=..."
	cliVersion     = "v0.1.0+dev"
	cliVersionHash = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	modified := false
	for _, v := range info.Settings {
		switch v.Key {
		case "vcs.revision":
			cliVersionHash = v.Value
		case "vcs.modified":
			modified = v.Value == "true"
		}
	}
	if modified {
		cliVersionHash += "-modified"
	}
}

func Get() string {
	return cliVersion
}

func GetCommitHash() string {
	return cliVersionHash
}

// Semver parses the version of the running binary.
func Semver() (semver.Version, error) {
	return semver.ParseTolerant(cliVersion)
}

// Compatible fails when state written by a binary of version other can't
// be read by this one. Before 1.0.0 the minor version is the breaking one.
func Compatible(other string) error {
	current, err := Semver()
	if err != nil {
		return fmt.Errorf("invalid binary version %q: %w", cliVersion, err)
	}
	return compatible(current, other)
}

func compatible(current semver.Version, other string) error {
	v, err := semver.ParseTolerant(other)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", other, err)
	}
	if v.Major != current.Major || (current.Major == 0 && v.Minor != current.Minor) {
		return fmt.Errorf("version %s is incompatible with %s", v, current)
	}
	return nil
}
