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

package statedb_test

import (
	"encoding/hex"
	"testing"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/scenariorunner"
	"github.com/xmargin/xmargin/store"
	"github.com/xmargin/xmargin/tools/statedb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `
instructions:
  - request: set_token_price
    params: {token: 0, price: 1}
  - request: set_perp_price
    params: {market: 0, price: 100}
  - request: register_bank
    params: {token: 0, name: USDC}
  - request: register_perp_market
    params: {market: 0, name: SOL-PERP, settle_token: 0}
  - request: create_account
    params: {name: alice}
  - request: create_account
    params: {name: bob}
  - request: deposit
    params: {account: alice, token: 0, amount: 5000}
  - request: deposit
    params: {account: bob, token: 0, amount: 5000}
  - request: deposit_insurance
    params: {amount: 250}
  - request: place_order
    params: {account: alice, market: 0, side: bid, type: limit, price: 100, base_lots: 3}
  - request: place_order
    params: {account: bob, market: 0, side: ask, type: limit, price: 100, base_lots: 2}
  - request: consume_events
    params: {market: 0}
`

type testDB struct {
	path  string
	hash  []byte
	alice string
}

func getTestDB(t *testing.T) testDB {
	t.Helper()
	log := logging.NewTestLogger()
	runner, err := scenariorunner.NewEngine(log, scenariorunner.NewDefaultConfig(), execution.NewDefaultConfig())
	require.NoError(t, err)

	set, err := scenariorunner.ParseInstructionSet([]byte(scenario))
	require.NoError(t, err)
	_, err = runner.ProcessInstructions(*set)
	require.NoError(t, err)

	c := store.NewDefaultConfig()
	c.Path = t.TempDir()
	st, err := store.New(log, c)
	require.NoError(t, err)
	hash, err := runner.Execution().Checkpoint(st)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	summary, err := runner.Summary()
	require.NoError(t, err)
	var alice string
	for _, acc := range summary.Accounts {
		if acc.Name == "alice" {
			alice = acc.ID
		}
	}
	require.NotEmpty(t, alice)
	return testDB{path: c.Path, hash: hash, alice: alice}
}

func TestStateData(t *testing.T) {
	db := getTestDB(t)

	data, err := statedb.StateData(logging.NewTestLogger(), db.path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(db.hash), data.Hash)
	assert.Equal(t, 2, data.Accounts)
	assert.Equal(t, 1, data.Banks)
	assert.Equal(t, 1, data.Markets)
	assert.Equal(t, "250", data.Insurance)
}

func TestStateDataMissingDatabase(t *testing.T) {
	_, err := statedb.StateData(logging.NewTestLogger(), t.TempDir()+"/nothing")
	assert.Error(t, err)
}

func TestAccountData(t *testing.T) {
	db := getTestDB(t)

	acc, err := statedb.AccountData(logging.NewTestLogger(), db.path, db.alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Name)
	require.Len(t, acc.Perps, 1)
	assert.Equal(t, int64(2), acc.Perps[0].BaseLots)
	assert.Equal(t, int64(1), acc.Perps[0].BidsLots)
	require.NotEmpty(t, acc.Tokens)

	_, err = statedb.AccountData(logging.NewTestLogger(), db.path, "not-an-id")
	assert.Error(t, err)
}

func TestSummaryWithoutPrices(t *testing.T) {
	db := getTestDB(t)

	summary, err := statedb.Summary(logging.NewTestLogger(), db.path)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(db.hash), summary.StateHash)
	require.Len(t, summary.Accounts, 2)
	assert.Equal(t, "alice", summary.Accounts[0].Name)
	assert.NotEmpty(t, summary.Accounts[0].HealthError)
	require.Len(t, summary.Markets, 1)
	assert.NotEmpty(t, summary.Markets[0].DepthError)
}
