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

package positions

import (
	"math"

	"github.com/xmargin/xmargin/types"
)

// MarketIndexUnused marks a free perp position or open order slot.
const MarketIndexUnused uint16 = math.MaxUint16

// PerpOpenOrder is the account side reference to an order resting on a
// book.
type PerpOpenOrder struct {
	SideAndTree   types.SideAndOrderTree
	MarketIndex   uint16
	ClientOrderID uint64
	OrderID       types.OrderKey
}

func (o *PerpOpenOrder) IsFree() bool {
	return o.MarketIndex == MarketIndexUnused
}

func (o *PerpOpenOrder) clear() {
	*o = PerpOpenOrder{MarketIndex: MarketIndexUnused}
}
