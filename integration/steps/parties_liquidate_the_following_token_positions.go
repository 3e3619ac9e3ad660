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
	"github.com/xmargin/xmargin/liquidation"

	"github.com/cucumber/godog"
)

func PartiesLiquidateTheFollowingTokenPositions(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, r := range parseTokenLiquidationTable(table) {
		row := tokenLiquidationRow{row: r}
		liqor, err := parties.get(row.row.MustStr("liqor"))
		if err != nil {
			return err
		}
		liqee, err := parties.get(row.row.MustStr("liqee"))
		if err != nil {
			return err
		}
		res, err := engine.LiqTokenWithToken(liqor, liqee,
			row.row.MustU16("asset token"), row.row.MustU16("liab token"), row.row.MustDecimal("max liab"))
		if err := checkExpectedError(row, err); err != nil {
			return err
		}
		if err != nil {
			continue
		}
		if err := row.checkResult(res); err != nil {
			return err
		}
	}
	return nil
}

func parseTokenLiquidationTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"liqor",
		"liqee",
		"asset token",
		"liab token",
		"max liab",
	}, []string{
		"transfer",
		"state",
		"error",
	})
}

type tokenLiquidationRow struct {
	row RowWrapper
}

func (r tokenLiquidationRow) checkResult(res *liquidation.TokenResult) error {
	expected := map[string]string{}
	got := map[string]string{}
	ok := true
	if r.row.HasColumn("transfer") {
		expected["transfer"] = r.row.MustStr("transfer")
		got["transfer"] = res.LiabTransfer.String()
		ok = ok && res.LiabTransfer.Equal(r.row.MustDecimal("transfer"))
	}
	if r.row.HasColumn("state") {
		expected["state"] = r.row.MustStr("state")
		got["state"] = res.State.String()
		ok = ok && res.State.String() == r.row.MustStr("state")
	}
	if !ok {
		return formatDiff(fmt.Sprintf("unexpected result for %q", r.Reference()), expected, got)
	}
	return nil
}

func (r tokenLiquidationRow) Error() string {
	return r.row.Str("error")
}

func (r tokenLiquidationRow) ExpectError() bool {
	return r.row.Str("error") != ""
}

func (r tokenLiquidationRow) Reference() string {
	return fmt.Sprintf("liquidation of %s by %s", r.row.MustStr("liqee"), r.row.MustStr("liqor"))
}
