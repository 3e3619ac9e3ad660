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

func PartiesWithdrawTheFollowingAssets(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, r := range parseWithdrawAssetTable(table) {
		row := withdrawAssetRow{row: r}
		id, err := parties.get(row.Party())
		if err != nil {
			return err
		}
		_, err = engine.Withdraw(id, row.Token(), row.Amount(), row.AllowBorrow())
		if err := checkExpectedError(row, err); err != nil {
			return err
		}
	}
	return nil
}

func parseWithdrawAssetTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"party",
		"token",
		"amount",
	}, []string{
		"allow borrow",
		"error",
	})
}

type withdrawAssetRow struct {
	row RowWrapper
}

func (r withdrawAssetRow) Party() string {
	return r.row.MustStr("party")
}

func (r withdrawAssetRow) Token() uint16 {
	return r.row.MustU16("token")
}

func (r withdrawAssetRow) Amount() num.Decimal {
	return r.row.MustDecimal("amount")
}

func (r withdrawAssetRow) AllowBorrow() bool {
	return r.row.HasColumn("allow borrow") && r.row.MustBool("allow borrow")
}

func (r withdrawAssetRow) Error() string {
	return r.row.Str("error")
}

func (r withdrawAssetRow) ExpectError() bool {
	return r.row.Str("error") != ""
}

func (r withdrawAssetRow) Reference() string {
	return fmt.Sprintf("withdrawal of %s of token %d by %s", r.Amount(), r.Token(), r.Party())
}
