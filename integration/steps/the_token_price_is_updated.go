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
	"github.com/xmargin/xmargin/integration/stubs"
	"github.com/xmargin/xmargin/libs/num"
)

func TheTokenPriceIsUpdatedTo(prices *stubs.PriceStub, token uint16, rawPrice string) error {
	price, err := num.DecimalFromString(rawPrice)
	if err != nil {
		return err
	}
	prices.SetTokenPrice(token, price)
	return nil
}
