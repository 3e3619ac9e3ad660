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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xmargin/xmargin/config"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/logging"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	root := t.TempDir()
	cfg := config.NewDefaultConfig(root)
	cfg.Execution.MaxAccounts = 42
	cfg.Execution.SwapTakerFeeRate.Decimal = num.MustDecimalFromString("0.0015")
	cfg.Store.CacheSize = 7
	cfg.Logging.Environment = "prod"

	path, err := config.Write(root, cfg, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "config.toml"), path)

	got, err := config.Read(root)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Execution.MaxAccounts)
	assert.True(t, got.Execution.SwapTakerFeeRate.Get().Equal(num.MustDecimalFromString("0.0015")))
	assert.Equal(t, 7, got.Store.CacheSize)
	assert.Equal(t, "prod", got.Logging.Environment)
	assert.Equal(t, filepath.Join(root, "state"), got.Store.Path)
	assert.Equal(t, cfg.Execution.Matching, got.Execution.Matching)

	_, err = config.Write(root, cfg, false)
	assert.Error(t, err)
	_, err = config.Write(root, cfg, true)
	assert.NoError(t, err)
}

func TestReadPartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte("[Execution]\nMaxAccounts = 3\n"), 0o600))

	got, err := config.Read(root)
	require.NoError(t, err)
	def := config.NewDefaultConfig(root)
	assert.Equal(t, 3, got.Execution.MaxAccounts)
	assert.Equal(t, def.Execution.DefaultLimit, got.Execution.DefaultLimit)
	assert.Equal(t, def.Metrics.Port, got.Metrics.Port)
}

func TestReadErrors(t *testing.T) {
	_, err := config.Read(t.TempDir())
	assert.Error(t, err)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte("[Execution\n"), 0o600))
	_, err = config.Read(root)
	assert.Error(t, err)
}

func TestWatcherLoadsFileAndApplyIsQuiet(t *testing.T) {
	root := t.TempDir()
	cfg := config.NewDefaultConfig(root)
	cfg.Execution.DefaultLimit = 5
	_, err := config.Write(root, cfg, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := config.NewFromFile(ctx, logging.NewTestLogger(), root)
	require.NoError(t, err)
	assert.Equal(t, 5, w.Get().Execution.DefaultLimit)

	called := false
	w.OnConfigUpdate(func(config.Config) { called = true })
	assert.False(t, w.Apply())
	assert.False(t, called)
}

func TestDefaultRootPathFollowsDataHome(t *testing.T) {
	t.Cleanup(xdg.Reload)
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	xdg.Reload()

	assert.Equal(t, filepath.Join(data, "xmargin"), config.DefaultRootPath())
	assert.Equal(t, config.DefaultRootPath(), config.NewRootPathFlag().RootPath)
}
