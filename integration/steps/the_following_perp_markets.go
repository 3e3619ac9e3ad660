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
	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/integration/stubs"
	"github.com/xmargin/xmargin/markets"

	"github.com/cucumber/godog"
)

func TheFollowingPerpMarkets(engine *execution.Engine, prices *stubs.PriceStub, table *godog.Table) error {
	for _, r := range parsePerpMarketsTable(table) {
		idx := r.MustU16("market")
		m := markets.NewPerpMarket(idx, r.MustStr("name"), r.MustU16("settle token"),
			r.I64("base lot size", 1), r.I64("quote lot size", 1))
		r.Decimal("maint base asset weight", &m.MaintBaseAssetWeight)
		r.Decimal("init base asset weight", &m.InitBaseAssetWeight)
		r.Decimal("maint base liab weight", &m.MaintBaseLiabWeight)
		r.Decimal("init base liab weight", &m.InitBaseLiabWeight)
		r.Decimal("base liquidation fee", &m.BaseLiquidationFee)
		r.Decimal("taker fee", &m.TakerFee)
		m.MaxPositionBaseLots = r.I64("max position", 0)
		prices.SetPerpPrice(idx, r.MustDecimal("price"))
		if err := engine.RegisterPerpMarket(m); err != nil {
			return err
		}
	}
	return nil
}

func parsePerpMarketsTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"market",
		"name",
		"settle token",
		"price",
	}, []string{
		"base lot size",
		"quote lot size",
		"maint base asset weight",
		"init base asset weight",
		"maint base liab weight",
		"init base liab weight",
		"base liquidation fee",
		"taker fee",
		"max position",
	})
}
