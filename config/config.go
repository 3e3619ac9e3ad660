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

//lint:file-ignore SA5008 duplicated struct tags are ok for config

package config

import (
	"bytes"
	"path/filepath"

	"github.com/xmargin/xmargin/execution"
	vgfs "github.com/xmargin/xmargin/libs/fs"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/metrics"
	"github.com/xmargin/xmargin/scenariorunner"
	"github.com/xmargin/xmargin/store"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config ties together all other application configuration types.
type Config struct {
	Logging   logging.Config   `group:"Logging" namespace:"logging"`
	Metrics   metrics.Config   `group:"Metrics" namespace:"metrics"`
	Execution execution.Config `group:"Execution" namespace:"execution"`
	Store     store.Config     `group:"Store" namespace:"store"`

	Scenario scenariorunner.Config `group:"Scenario" namespace:"scenario"`
}

// NewDefaultConfig returns a set of default configs for all packages, as specified at the per package
// config level. The state database lives under defaultStoreDirPath.
func NewDefaultConfig(defaultStoreDirPath string) Config {
	storeCfg := store.NewDefaultConfig()
	if defaultStoreDirPath != "" {
		storeCfg.Path = filepath.Join(defaultStoreDirPath, "state")
	}
	return Config{
		Logging:   logging.NewDefaultConfig(),
		Metrics:   metrics.NewDefaultConfig(),
		Execution: execution.NewDefaultConfig(),
		Store:     storeCfg,
		Scenario:  scenariorunner.NewDefaultConfig(),
	}
}

// Read loads the configuration file of rootPath over the defaults.
func Read(rootPath string) (*Config, error) {
	cfg := NewDefaultConfig(rootPath)
	if err := decodeFile(filepath.Join(rootPath, configFileName), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write saves cfg as the configuration file of rootPath. An existing
// file is only replaced when force is set.
func Write(rootPath string, cfg Config, force bool) (string, error) {
	path := filepath.Join(rootPath, configFileName)
	exists, err := vgfs.FileExists(path)
	if err != nil {
		return "", errors.Wrapf(err, "couldn't verify configuration file at %s", path)
	}
	if exists && !force {
		return "", errors.Errorf("configuration file already exists at %s", path)
	}
	if err := vgfs.EnsureDir(rootPath); err != nil {
		return "", errors.Wrap(err, "couldn't create configuration directory")
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return "", errors.Wrap(err, "couldn't encode configuration")
	}
	if err := vgfs.WriteFile(path, buf.Bytes()); err != nil {
		return "", errors.Wrap(err, "couldn't write configuration")
	}
	return path, nil
}

func decodeFile(path string, cfg *Config) error {
	buf, err := vgfs.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't read configuration file at %s", path)
	}
	if _, err := toml.Decode(string(buf), cfg); err != nil {
		return errors.Wrapf(err, "couldn't decode configuration file at %s", path)
	}
	return nil
}
