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

package store

import (
	"github.com/xmargin/xmargin/config/encoding"
	"github.com/xmargin/xmargin/logging"
)

const namedLogger = "store"

// Config represents the configuration of the state store.
type Config struct {
	Level     encoding.LogLevel `long:"log-level"`
	Path      string            `long:"path" description:"Directory of the state database, empty for in memory"`
	CacheSize int               `long:"cache-size" description:"Number of account records kept in memory"`
	Sync      encoding.Bool     `long:"sync" description:"Fsync every checkpoint"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:     encoding.LogLevel{Level: logging.InfoLevel},
		CacheSize: 1024,
		Sync:      true,
	}
}
