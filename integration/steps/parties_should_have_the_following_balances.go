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

package steps

import (
	"errors"
	"fmt"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/types"

	"github.com/cucumber/godog"
)

func PartiesShouldHaveTheFollowingBalances(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, row := range parseBalancesTable(table) {
		party := row.MustStr("party")
		id, err := parties.get(party)
		if err != nil {
			return err
		}
		token := row.MustU16("token")
		got, err := nativeBalance(engine, id, token)
		if err != nil {
			return err
		}
		if want := row.MustDecimal("balance"); !got.Equal(want) {
			return formatDiff(fmt.Sprintf("invalid balance of token %d for party %q", token, party),
				map[string]string{"balance": want.String()},
				map[string]string{"balance": got.String()},
			)
		}
	}
	return nil
}

func nativeBalance(engine *execution.Engine, id types.AccountID, token uint16) (num.Decimal, error) {
	acc, err := engine.Account(id)
	if err != nil {
		return num.Decimal{}, err
	}
	bank, err := engine.Bank(token)
	if err != nil {
		return num.Decimal{}, err
	}
	tp, err := acc.TokenPosition(token)
	if errors.Is(err, types.ErrTokenPosNotFound) {
		return num.DecimalZero(), nil
	}
	if err != nil {
		return num.Decimal{}, err
	}
	return bank.NativeBalance(tp), nil
}

func parseBalancesTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"party",
		"token",
		"balance",
	}, []string{})
}
