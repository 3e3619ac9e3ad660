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

package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	vgfs "github.com/xmargin/xmargin/libs/fs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a configuration written under a root that doesn't exist yet, then
// replaced by a shorter one
func TestWriteUnderNewRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data", "xmargin")
	path := filepath.Join(root, "config.toml")

	exists, err := vgfs.FileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, vgfs.EnsureDir(root))
	require.NoError(t, vgfs.EnsureDir(root))
	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	require.NoError(t, vgfs.WriteFile(path, []byte("[Execution]\nMaxAccounts = 1000\n")))
	require.NoError(t, vgfs.WriteFile(path, []byte("[Store]\n")))

	exists, err = vgfs.FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	buf, err := vgfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[Store]\n", string(buf))
}

func TestFileExistsOnDirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.toml")
	require.NoError(t, os.Mkdir(path, 0o700))

	exists, err := vgfs.FileExists(path)
	assert.ErrorIs(t, err, vgfs.ErrIsADirectory)
	assert.False(t, exists)

	// so is writing over it
	assert.Error(t, vgfs.WriteFile(path, []byte("x")))
}

func TestReadFileErrors(t *testing.T) {
	cases := map[string]func(t *testing.T) string{
		"missing scenario": func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "scenario.yaml")
		},
		"missing root": func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nowhere", "config.toml")
		},
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := vgfs.ReadFile(path(t))
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}

	_, err := vgfs.ReadFile(t.TempDir())
	assert.Error(t, err)
}
