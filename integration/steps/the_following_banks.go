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
	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/integration/stubs"

	"github.com/cucumber/godog"
)

func TheFollowingBanks(engine *execution.Engine, prices *stubs.PriceStub, table *godog.Table) error {
	for _, r := range parseBanksTable(table) {
		row := bankRow{row: r}
		b := collateral.NewBank(row.Token(), row.Name())
		r.Decimal("maint asset weight", &b.MaintAssetWeight)
		r.Decimal("init asset weight", &b.InitAssetWeight)
		r.Decimal("maint liab weight", &b.MaintLiabWeight)
		r.Decimal("init liab weight", &b.InitLiabWeight)
		r.Decimal("liquidation fee", &b.LiquidationFee)
		prices.SetTokenPrice(row.Token(), r.MustDecimal("price"))
		if err := engine.RegisterBank(b); err != nil {
			return err
		}
	}
	return nil
}

func parseBanksTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"token",
		"name",
		"price",
	}, []string{
		"maint asset weight",
		"init asset weight",
		"maint liab weight",
		"init liab weight",
		"liquidation fee",
	})
}

type bankRow struct {
	row RowWrapper
}

func (r bankRow) Token() uint16 {
	return r.row.MustU16("token")
}

func (r bankRow) Name() string {
	return r.row.MustStr("name")
}
