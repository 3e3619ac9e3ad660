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

package core_test

import (
	"testing"

	"github.com/xmargin/xmargin/scenariorunner/core"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccounts(t *testing.T) {
	t.Run("names resolve to their ids", testNamesResolve)
	t.Run("a name can only be used once", testDuplicateName)
	t.Run("unknown names fall back to ids", testUnknownNames)
	t.Run("removed names are forgotten", testRemove)
}

func testNamesResolve(t *testing.T) {
	accs := core.NewAccounts()
	alice, bob := types.NewAccountID(), types.NewAccountID()
	require.NoError(t, accs.Add("bob", bob))
	require.NoError(t, accs.Add("alice", alice))

	id, err := accs.ID("alice")
	require.NoError(t, err)
	assert.Equal(t, alice, id)
	assert.Equal(t, "bob", accs.Name(bob))
	assert.Equal(t, []string{"alice", "bob"}, accs.Names())
}

func testDuplicateName(t *testing.T) {
	accs := core.NewAccounts()
	require.NoError(t, accs.Add("alice", types.NewAccountID()))
	err := accs.Add("alice", types.NewAccountID())
	assert.ErrorIs(t, err, core.ErrDuplicateAccount)
}

func testUnknownNames(t *testing.T) {
	accs := core.NewAccounts()
	restored := types.NewAccountID()

	id, err := accs.ID(restored.String())
	require.NoError(t, err)
	assert.Equal(t, restored, id)
	assert.Equal(t, restored.String(), accs.Name(restored))

	_, err = accs.ID("carol")
	assert.ErrorIs(t, err, core.ErrUnknownAccount)
}

func testRemove(t *testing.T) {
	accs := core.NewAccounts()
	id := types.NewAccountID()
	require.NoError(t, accs.Add("alice", id))
	accs.Remove("alice")

	assert.False(t, accs.Has("alice"))
	assert.Equal(t, id.String(), accs.Name(id))
	assert.Empty(t, accs.Names())
}
