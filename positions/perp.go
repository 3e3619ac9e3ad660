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
	"fmt"
	"math"

	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/types"
)

// PerpPosition is the position of an account in one perp market.
type PerpPosition struct {
	MarketIndex      uint16
	SettleTokenIndex uint16

	BasePositionLots int64
	// QuotePositionNative includes funding, fees and settled pnl.
	QuotePositionNative num.Decimal
	// QuoteRunningNative only moves with trades, it gives the break even
	// price.
	QuoteRunningNative num.Decimal

	LongSettledFunding  num.Decimal
	ShortSettledFunding num.Decimal

	// base lots reserved by resting orders
	BidsBaseLots int64
	AsksBaseLots int64

	CumulativeLongFunding  num.Decimal
	CumulativeShortFunding num.Decimal
	MakerVolume            uint64
	TakerVolume            uint64

	AvgEntryPricePerBaseLot num.Decimal
	RealizedTradePnlNative  num.Decimal
	RealizedOtherPnlNative  num.Decimal
}

func newPerpPosition(m *markets.PerpMarket) PerpPosition {
	zero := num.DecimalZero()
	return PerpPosition{
		MarketIndex:             m.MarketIndex,
		SettleTokenIndex:        m.SettleTokenIndex,
		QuotePositionNative:     zero,
		QuoteRunningNative:      zero,
		LongSettledFunding:      m.LongFunding,
		ShortSettledFunding:     m.ShortFunding,
		CumulativeLongFunding:   zero,
		CumulativeShortFunding:  zero,
		AvgEntryPricePerBaseLot: zero,
		RealizedTradePnlNative:  zero,
		RealizedOtherPnlNative:  zero,
	}
}

func (p *PerpPosition) String() string {
	return fmt.Sprintf("market:%d, base:%d, quote:%s, bids:%d, asks:%d",
		p.MarketIndex, p.BasePositionLots, p.QuotePositionNative, p.BidsBaseLots, p.AsksBaseLots)
}

func (p *PerpPosition) IsActive() bool {
	return p.MarketIndex != MarketIndexUnused
}

func (p *PerpPosition) IsActiveForMarket(idx uint16) bool {
	return p.MarketIndex == idx
}

func (p *PerpPosition) HasOpenOrders() bool {
	return p.BidsBaseLots != 0 || p.AsksBaseLots != 0
}

// IsEmpty is true when nothing is left to settle and no order rests.
func (p *PerpPosition) IsEmpty() bool {
	return p.BasePositionLots == 0 && p.QuotePositionNative.IsZero() && !p.HasOpenOrders()
}

// UnsettledFunding returns the funding owed by the position since the
// last settlement. Positive means the position pays.
func (p *PerpPosition) UnsettledFunding(m *markets.PerpMarket) num.Decimal {
	base := num.DecimalFromInt64(p.BasePositionLots)
	switch {
	case p.BasePositionLots > 0:
		return m.LongFunding.Sub(p.LongSettledFunding).Mul(base)
	case p.BasePositionLots < 0:
		return m.ShortFunding.Sub(p.ShortSettledFunding).Mul(base)
	default:
		return num.DecimalZero()
	}
}

// SettleFunding moves the unsettled funding into the quote position. It
// must run before every base position change.
func (p *PerpPosition) SettleFunding(m *markets.PerpMarket) {
	funding := p.UnsettledFunding(m)
	if p.BasePositionLots > 0 {
		p.CumulativeLongFunding = p.CumulativeLongFunding.Add(funding)
	} else if p.BasePositionLots < 0 {
		p.CumulativeShortFunding = p.CumulativeShortFunding.Add(funding)
	}
	p.QuotePositionNative = p.QuotePositionNative.Sub(funding)
	p.RealizedOtherPnlNative = p.RealizedOtherPnlNative.Sub(funding)
	p.LongSettledFunding = m.LongFunding
	p.ShortSettledFunding = m.ShortFunding
}

// RecordTrade applies a base change (lots, signed) and the matching quote
// change (native, signed) to the position and the market open interest.
func (p *PerpPosition) RecordTrade(m *markets.PerpMarket, baseChange int64, quoteChange num.Decimal) {
	if baseChange == 0 {
		p.QuotePositionNative = p.QuotePositionNative.Add(quoteChange)
		return
	}
	old := p.BasePositionLots
	next := old + baseChange
	p.updateTradeStats(old, baseChange, quoteChange)

	p.BasePositionLots = next
	p.QuotePositionNative = p.QuotePositionNative.Add(quoteChange)
	p.QuoteRunningNative = p.QuoteRunningNative.Add(quoteChange)
	m.OpenInterest += abs(next) - abs(old)
}

func (p *PerpPosition) updateTradeStats(old, change int64, quoteChange num.Decimal) {
	price := num.Quo(quoteChange.Abs(), num.DecimalFromInt64(abs(change)))
	next := old + change
	switch {
	case old == 0:
		p.AvgEntryPricePerBaseLot = price
	case (old > 0) == (change > 0):
		total := p.AvgEntryPricePerBaseLot.Mul(num.DecimalFromInt64(abs(old))).
			Add(price.Mul(num.DecimalFromInt64(abs(change))))
		p.AvgEntryPricePerBaseLot = num.Quo(total, num.DecimalFromInt64(abs(next)))
	default:
		closed := abs(change)
		if abs(old) < closed {
			closed = abs(old)
		}
		pnl := price.Sub(p.AvgEntryPricePerBaseLot).Mul(num.DecimalFromInt64(closed))
		if old < 0 {
			pnl = pnl.Neg()
		}
		p.RealizedTradePnlNative = p.RealizedTradePnlNative.Add(pnl)
		if next == 0 {
			p.AvgEntryPricePerBaseLot = num.DecimalZero()
		} else if (next > 0) != (old > 0) {
			p.AvgEntryPricePerBaseLot = price
		}
	}
}

// AvgEntryPrice is the average entry price in native quote per native
// base.
func (p *PerpPosition) AvgEntryPrice(m *markets.PerpMarket) num.Decimal {
	return num.Quo(p.AvgEntryPricePerBaseLot, num.DecimalFromInt64(m.BaseLotSize))
}

// BreakEvenPrice is the price at which closing the position makes no
// trade pnl, funding and fees excluded.
func (p *PerpPosition) BreakEvenPrice(m *markets.PerpMarket) num.Decimal {
	if p.BasePositionLots == 0 {
		return num.DecimalZero()
	}
	return num.Quo(p.QuoteRunningNative.Neg(), m.BaseLotsToNative(p.BasePositionLots))
}

// BaseNative returns the base position in native units.
func (p *PerpPosition) BaseNative(m *markets.PerpMarket) num.Decimal {
	return m.BaseLotsToNative(p.BasePositionLots)
}

// UnsettledPnl is the quote position plus the value of the base position
// at price. Funding must have been settled.
func (p *PerpPosition) UnsettledPnl(m *markets.PerpMarket, price num.Decimal) num.Decimal {
	return p.QuotePositionNative.Add(p.BaseNative(m).Mul(price))
}

// RecordSettle moves settled pnl out of the quote position. A positive
// amount is pnl paid out to the owner's spot balance.
func (p *PerpPosition) RecordSettle(amount num.Decimal) {
	p.QuotePositionNative = p.QuotePositionNative.Sub(amount)
}

// RecordFee charges a fee (negative for a rebate) in native quote.
func (p *PerpPosition) RecordFee(fee num.Decimal) {
	p.QuotePositionNative = p.QuotePositionNative.Sub(fee)
	p.RealizedOtherPnlNative = p.RealizedOtherPnlNative.Sub(fee)
}

// ReserveOrder books base lots against a resting order.
func (p *PerpPosition) ReserveOrder(side types.Side, lots int64) {
	if side == types.SideBid {
		p.BidsBaseLots += lots
	} else {
		p.AsksBaseLots += lots
	}
}

// ReleaseOrder frees base lots previously reserved with ReserveOrder.
func (p *PerpPosition) ReleaseOrder(side types.Side, lots int64) {
	if side == types.SideBid {
		p.BidsBaseLots -= lots
		if p.BidsBaseLots < 0 {
			p.BidsBaseLots = 0
		}
		return
	}
	p.AsksBaseLots -= lots
	if p.AsksBaseLots < 0 {
		p.AsksBaseLots = 0
	}
}

// ExceedsLimit reports whether adding lots more orders on side could take
// the position beyond maxLots in absolute value, assuming every order on
// that side fills. Zero disables the limit.
func (p *PerpPosition) ExceedsLimit(side types.Side, lots, maxLots int64) bool {
	if maxLots <= 0 {
		return false
	}
	// exposure on the side if every resting order filled
	exposure := p.AsksBaseLots - p.BasePositionLots
	if side == types.SideBid {
		exposure = p.BasePositionLots + p.BidsBaseLots
	}
	// lots is compared to the room left so that huge orders cannot wrap
	room := int64(math.MaxInt64)
	if exposure >= 0 || maxLots <= math.MaxInt64+exposure {
		room = maxLots - exposure
	}
	return lots > room
}

// ReduceOnlyMaxBaseLots is the largest quantity an order on side may have
// without increasing the position, counting orders already resting.
func (p *PerpPosition) ReduceOnlyMaxBaseLots(side types.Side) int64 {
	var room int64
	if side == types.SideBid {
		room = -p.BasePositionLots - p.BidsBaseLots
	} else {
		room = p.BasePositionLots - p.AsksBaseLots
	}
	if room < 0 {
		return 0
	}
	return room
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
