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
	"fmt"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/libs/num"

	"github.com/cucumber/godog"
)

func PartiesDepositTheFollowingAssets(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, r := range parseDepositAssetTable(table) {
		row := depositAssetRow{row: r}
		id, err := parties.ensure(engine, row.Party())
		if err != nil {
			return err
		}
		err = engine.Deposit(id, row.Token(), row.Amount())
		if err := checkExpectedError(row, err); err != nil {
			return err
		}
	}
	return nil
}

func parseDepositAssetTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"party",
		"token",
		"amount",
	}, []string{
		"error",
	})
}

type depositAssetRow struct {
	row RowWrapper
}

func (r depositAssetRow) Party() string {
	return r.row.MustStr("party")
}

func (r depositAssetRow) Token() uint16 {
	return r.row.MustU16("token")
}

func (r depositAssetRow) Amount() num.Decimal {
	return r.row.MustDecimal("amount")
}

func (r depositAssetRow) Error() string {
	return r.row.Str("error")
}

func (r depositAssetRow) ExpectError() bool {
	return r.row.Str("error") != ""
}

func (r depositAssetRow) Reference() string {
	return fmt.Sprintf("deposit %s of token %d by %s", r.Amount(), r.Token(), r.Party())
}
