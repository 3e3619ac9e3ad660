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
	"strconv"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/types"

	"github.com/cucumber/godog"
)

const bookDepth = 20

func TheOrderBookOfMarketShouldHaveTheFollowingVolumes(engine *execution.Engine, market uint16, table *godog.Table) error {
	bids, asks, err := engine.Depth(market, bookDepth)
	if err != nil {
		return err
	}
	for _, row := range parseOrderBookTable(table) {
		levels := bids
		if row.MustSide("side") == types.SideAsk {
			levels = asks
		}
		price := row.MustI64("price")
		got := volumeAt(levels, price)
		if want := row.MustI64("volume"); got != want {
			return formatDiff(fmt.Sprintf("invalid volume for %s at price %d on market %d", row.MustStr("side"), price, market),
				map[string]string{"volume": strconv.FormatInt(want, 10)},
				map[string]string{"volume": strconv.FormatInt(got, 10)},
			)
		}
	}
	return nil
}

func volumeAt(levels []matching.PriceLevel, price int64) int64 {
	for _, l := range levels {
		if l.PriceLots == price {
			return l.Quantity
		}
	}
	return 0
}

func parseOrderBookTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"side",
		"price",
		"volume",
	}, []string{})
}

func TheEventsOfMarketAreConsumed(engine *execution.Engine, market uint16) error {
	for {
		n, err := engine.ConsumeEvents(market, bookDepth)
		if err != nil || n == 0 {
			return err
		}
	}
}
