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

// Package statedb reads the checkpoints saved by the state store.
package statedb

import (
	"encoding/hex"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/scenariorunner"
	"github.com/xmargin/xmargin/scenariorunner/core"
	"github.com/xmargin/xmargin/store"
	"github.com/xmargin/xmargin/types"

	"github.com/pkg/errors"
)

// Data is an overview of the last checkpoint.
type Data struct {
	Hash      string `yaml:"hash"`
	Accounts  int    `yaml:"accounts"`
	Banks     int    `yaml:"banks"`
	Markets   int    `yaml:"markets"`
	Insurance string `yaml:"insurance"`
}

func open(log *logging.Logger, dbPath string) (*store.Store, error) {
	st, err := store.OpenReadOnly(log, dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database located at %s", dbPath)
	}
	return st, nil
}

// StateData returns an overview of the checkpoint saved at dbPath.
func StateData(log *logging.Logger, dbPath string) (*Data, error) {
	st, err := open(log, dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	hash, err := st.Hash()
	if err != nil {
		return nil, err
	}
	s, err := st.LoadState()
	if err != nil {
		return nil, err
	}
	data := &Data{
		Hash:     hex.EncodeToString(hash),
		Accounts: len(s.Accounts),
		Banks:    len(s.Banks),
		Markets:  len(s.Markets),
	}
	if s.Insurance != nil {
		data.Insurance = s.Insurance.Balance.String()
	}
	return data, nil
}

// Summary restores the checkpoint into a scenario engine and summarizes
// it. No oracle readings are known so health and book depth are reported
// as errors in the summary.
func Summary(log *logging.Logger, dbPath string) (*core.Summary, error) {
	st, err := open(log, dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	runner, err := scenariorunner.NewEngine(log, scenariorunner.NewDefaultConfig(), execution.NewDefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := runner.Restore(st); err != nil {
		return nil, err
	}
	return runner.Summary()
}

// AccountData summarizes a single account of the checkpoint.
func AccountData(log *logging.Logger, dbPath string, id string) (*core.AccountSummary, error) {
	accountID, err := types.ParseAccountID(id)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account id")
	}
	st, err := open(log, dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	acc, err := st.LoadAccount(accountID)
	if err != nil {
		return nil, err
	}
	s, err := st.LoadState()
	if err != nil {
		return nil, err
	}
	out := &core.AccountSummary{
		Name:            acc.Name,
		ID:              acc.ID.String(),
		BeingLiquidated: acc.BeingLiquidated,
	}
	for _, tp := range acc.ActiveTokenPositions() {
		bank, ok := s.Banks[tp.TokenIndex]
		if !ok {
			return nil, types.ErrBankNotFound.WithToken(tp.TokenIndex)
		}
		out.Tokens = append(out.Tokens, core.TokenBalance{
			TokenIndex: tp.TokenIndex,
			Balance:    bank.NativeBalance(tp).String(),
		})
	}
	for _, pp := range acc.ActivePerpPositions() {
		out.Perps = append(out.Perps, core.PerpBalance{
			MarketIndex: pp.MarketIndex,
			BaseLots:    pp.BasePositionLots,
			Quote:       pp.QuotePositionNative.String(),
			BidsLots:    pp.BidsBaseLots,
			AsksLots:    pp.AsksBaseLots,
		})
	}
	return out, nil
}
