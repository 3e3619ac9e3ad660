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
	"github.com/xmargin/xmargin/types"

	"github.com/cucumber/godog"
)

func PartiesPlaceTheFollowingOrders(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, r := range parseSubmitOrderTable(table) {
		row := submitOrderRow{row: r}
		id, err := parties.get(row.Party())
		if err != nil {
			return err
		}
		order, err := row.Order()
		if err != nil {
			return err
		}
		res, err := engine.PlaceOrder(id, row.Market(), order)
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

func parseSubmitOrderTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"party",
		"market",
		"side",
		"price",
		"volume",
	}, []string{
		"type",
		"filled",
		"resting",
		"error",
	})
}

type submitOrderRow struct {
	row RowWrapper
}

func (r submitOrderRow) Party() string {
	return r.row.MustStr("party")
}

func (r submitOrderRow) Market() uint16 {
	return r.row.MustU16("market")
}

func (r submitOrderRow) Order() (types.Order, error) {
	pt := types.PlaceOrderLimit
	if r.row.HasColumn("type") {
		var err error
		if pt, err = types.ParsePlaceOrderType(r.row.MustStr("type")); err != nil {
			return types.Order{}, err
		}
	}
	return types.Order{
		Side:              r.row.MustSide("side"),
		MaxBaseLots:       r.row.MustI64("volume"),
		MaxQuoteLots:      types.NoQuoteLimit,
		SelfTradeBehavior: types.DecrementTake,
		Params:            types.ParamsForPlaceOrderType(pt, r.row.MustI64("price")),
	}, nil
}

func (r submitOrderRow) checkResult(res *execution.OrderResult) error {
	expected := map[string]string{}
	got := map[string]string{}
	if r.row.HasColumn("filled") {
		expected["filled"] = r.row.MustStr("filled")
		got["filled"] = strconv.FormatInt(res.FilledBaseLots, 10)
	}
	if r.row.HasColumn("resting") {
		expected["resting"] = r.row.MustStr("resting")
		got["resting"] = strconv.FormatInt(res.PostedBaseLots(), 10)
	}
	for k, v := range expected {
		if got[k] != v {
			return formatDiff(fmt.Sprintf("unexpected result for order %q", r.Reference()), expected, got)
		}
	}
	return nil
}

func (r submitOrderRow) Error() string {
	return r.row.Str("error")
}

func (r submitOrderRow) ExpectError() bool {
	return r.row.Str("error") != ""
}

func (r submitOrderRow) Reference() string {
	return fmt.Sprintf("%s %s %s@%s", r.Party(), r.row.MustStr("side"), r.row.MustStr("volume"), r.row.MustStr("price"))
}
