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
	"strconv"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/types"

	"github.com/cucumber/godog"
)

func PartiesShouldHaveTheFollowingPositions(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, row := range parsePositionsTable(table) {
		party := row.MustStr("party")
		id, err := parties.get(party)
		if err != nil {
			return err
		}
		acc, err := engine.Account(id)
		if err != nil {
			return err
		}
		market := row.MustU16("market")
		var base, bids, asks int64
		pp, err := acc.PerpPosition(market)
		switch {
		case err == nil:
			base, bids, asks = pp.BasePositionLots, pp.BidsBaseLots, pp.AsksBaseLots
		case !errors.Is(err, types.ErrPerpPosNotFound):
			return err
		}

		expected := map[string]string{"base lots": row.MustStr("base lots")}
		got := map[string]string{"base lots": strconv.FormatInt(base, 10)}
		if row.HasColumn("bids") {
			expected["bids"] = row.MustStr("bids")
			got["bids"] = strconv.FormatInt(bids, 10)
		}
		if row.HasColumn("asks") {
			expected["asks"] = row.MustStr("asks")
			got["asks"] = strconv.FormatInt(asks, 10)
		}
		for k, v := range expected {
			if got[k] != v {
				return formatDiff(fmt.Sprintf("invalid position on market %d for party %q", market, party), expected, got)
			}
		}
	}
	return nil
}

func parsePositionsTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"party",
		"market",
		"base lots",
	}, []string{
		"bids",
		"asks",
	})
}
