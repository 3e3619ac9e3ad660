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

package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Empty is used when a command or sub-command receives no argument.
type Empty struct{}

// RootPathFlag is shared by every command working on a home directory.
type RootPathFlag struct {
	RootPath string `short:"r" long:"root-path" description:"Path of the root directory in which the configuration and state are located"`
}

func NewRootPathFlag() RootPathFlag {
	return RootPathFlag{
		RootPath: DefaultRootPath(),
	}
}

// DefaultRootPath is the xmargin directory under the XDG data home,
// $XDG_DATA_HOME/xmargin or its per platform default.
func DefaultRootPath() string {
	return filepath.Join(xdg.DataHome, "xmargin")
}
