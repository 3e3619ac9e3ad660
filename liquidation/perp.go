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

package liquidation

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"
)

// PerpResult reports a perp liquidation step.
type PerpResult struct {
	// BaseTransfer is signed from the liquidator point of view: positive
	// when it bought base from the liquidatee.
	BaseTransfer         int64
	QuoteTransfer        num.Decimal
	LiquidationEndHealth num.Decimal
	State                State
}

// liquidationPrice is the price per native base at which the liquidator
// takes over a position: below the oracle for longs, above it for
// shorts.
func liquidationPrice(m *markets.PerpMarket, oraclePrice num.Decimal, liqeeBase int64) num.Decimal {
	if liqeeBase > 0 {
		return oraclePrice.Mul(num.DecimalOne().Sub(m.BaseLiquidationFee))
	}
	return oraclePrice.Mul(num.DecimalOne().Add(m.BaseLiquidationFee))
}

// healthAfter is the health of the cached account if it gave up lots of
// its base position at price.
func healthAfter(hc *risk.HealthCache, ht risk.HealthType, m *markets.PerpMarket, lots int64, price num.Decimal) num.Decimal {
	cpy := hc.Clone()
	p, err := cpy.PerpInfo(m.MarketIndex)
	if err != nil {
		return hc.Health(ht)
	}
	sign := int64(1)
	if p.BaseLots < 0 {
		sign = -1
	}
	p.BaseLots -= sign * lots
	p.QuoteNative = p.QuoteNative.Add(m.BaseLotsToNative(sign * lots).Mul(price))
	return cpy.Health(ht)
}

// LiquidatePerpBase makes liqor take over up to maxBaseLots of the liqee
// base position in market at the oracle price minus the base liquidation
// fee. It takes the fewest lots that bring the liquidation end health
// back to zero, found by bisection, and fails when the fee would make
// the trade lower maint health. Resting orders in the market must be
// cancelled first.
func LiquidatePerpBase(liqor, liqee *positions.Account, r risk.Retriever, market uint16, maxBaseLots int64, now uint64) (*PerpResult, error) {
	if err := checkParties(liqor, liqee); err != nil {
		return nil, err
	}
	if maxBaseLots <= 0 {
		return nil, types.ErrInvalidAmount.WithMarket(market).WithInvariant("max base lots")
	}
	hc, err := liquidatable(liqee, r, now)
	if err != nil {
		return nil, err
	}
	m, _, err := r.PerpMarketAndPrice(market)
	if err != nil {
		return nil, err
	}
	info, err := hc.PerpInfo(market)
	if err != nil {
		return nil, err
	}
	liqeePerp, err := liqee.PerpPosition(market)
	if err != nil {
		return nil, err
	}
	if liqeePerp.HasOpenOrders() {
		return nil, types.ErrInvalidLiq.WithAccount(liqee.ID).WithMarket(market).WithInvariant("orders must be cancelled first")
	}
	base := liqeePerp.BasePositionLots
	if base == 0 {
		return nil, types.ErrInvalidLiq.WithAccount(liqee.ID).WithMarket(market).WithInvariant("no base position")
	}

	price := liquidationPrice(m, info.Prices.Oracle.Price, base)
	maxLots := min(maxBaseLots, abs(base))
	lots := maxLots
	if healthAfter(hc, risk.LiquidationEnd, m, maxLots, price).GreaterThanOrEqual(num.DecimalZero()) {
		lo, hi := int64(0), maxLots
		for lo < hi {
			mid := lo + (hi-lo)/2
			if healthAfter(hc, risk.LiquidationEnd, m, mid, price).IsNegative() {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		lots = lo
	}
	if lots == 0 {
		return nil, types.ErrNotLiquidatable.WithAccount(liqee.ID).WithMarket(market)
	}
	if err := checkMaint(liqee, hc.MaintHealth(), healthAfter(hc, risk.Maint, m, lots, price)); err != nil {
		return nil, err
	}

	liqee.BeingLiquidated = true
	liqorPerp, err := liqor.EnsurePerpPosition(m)
	if err != nil {
		return nil, err
	}
	liqeePerp.SettleFunding(m)
	liqorPerp.SettleFunding(m)

	sign := int64(1)
	if base < 0 {
		sign = -1
	}
	quote := m.BaseLotsToNative(sign * lots).Mul(price)
	liqeePerp.RecordTrade(m, -sign*lots, quote)
	liqorPerp.RecordTrade(m, sign*lots, quote.Neg())

	if err := checkLiqor(liqor, r, now); err != nil {
		return nil, err
	}
	after, err := finish(liqee, r, now)
	if err != nil {
		return nil, err
	}
	return &PerpResult{
		BaseTransfer:         sign * lots,
		QuoteTransfer:        quote.Neg(),
		LiquidationEndHealth: after.LiquidationEndHealth(),
		State:                StateOf(after),
	}, nil
}

// ForceCancelOrders cancels up to limit resting orders of a liquidatable
// account in the market, zero meaning all of them.
func ForceCancelOrders(liqee *positions.Account, r risk.Retriever, book *matching.OrderBook, limit int, now uint64) ([]matching.CancelledOrder, error) {
	if _, err := liquidatable(liqee, r, now); err != nil {
		return nil, err
	}
	out := []matching.CancelledOrder{}
	for _, o := range liqee.OpenOrdersForMarket(book.MarketIndex) {
		if limit > 0 && len(out) >= limit {
			break
		}
		leaf, err := book.CancelOrder(o.SideAndTree, o.OrderID, liqee.ID)
		if err != nil {
			return out, err
		}
		slot, _ := liqee.OrderSlotByID(book.MarketIndex, o.OrderID)
		if err := liqee.RemovePerpOrder(slot, leaf.Quantity); err != nil {
			return out, err
		}
		out = append(out, matching.CancelledOrder{SideAndTree: o.SideAndTree, Leaf: leaf})
	}
	liqee.BeingLiquidated = true
	return out, nil
}

// LiquidateNegativePnl moves up to maxSettle of the negative pnl of a
// closed liqee perp position to liqor. The liqee pays for it with its
// settle token balance, borrowing if needed, so that the loss ends up as
// a token liability that bankruptcy resolution can deal with.
func LiquidateNegativePnl(liqor, liqee *positions.Account, r risk.Retriever, market uint16, maxSettle num.Decimal, now uint64) (num.Decimal, error) {
	if err := checkParties(liqor, liqee); err != nil {
		return num.DecimalZero(), err
	}
	if _, err := liquidatable(liqee, r, now); err != nil {
		return num.DecimalZero(), err
	}
	m, _, err := r.PerpMarketAndPrice(market)
	if err != nil {
		return num.DecimalZero(), err
	}
	liqeePerp, err := liqee.PerpPosition(market)
	if err != nil {
		return num.DecimalZero(), err
	}
	if liqeePerp.BasePositionLots != 0 || liqeePerp.HasOpenOrders() {
		return num.DecimalZero(), types.ErrInvalidLiq.WithAccount(liqee.ID).WithMarket(market).WithInvariant("base position must be closed first")
	}
	liqeePerp.SettleFunding(m)
	if !liqeePerp.QuotePositionNative.IsNegative() {
		return num.DecimalZero(), types.ErrInvalidLiq.WithAccount(liqee.ID).WithMarket(market).WithInvariant("no negative pnl")
	}
	settle := num.MinD(liqeePerp.QuotePositionNative.Neg(), maxSettle)
	if !settle.IsPositive() {
		return num.DecimalZero(), types.ErrInvalidAmount.WithInvariant("max settle")
	}
	bank, _, err := r.BankAndPrice(m.SettleTokenIndex)
	if err != nil {
		return num.DecimalZero(), err
	}
	liqorPerp, err := liqor.EnsurePerpPosition(m)
	if err != nil {
		return num.DecimalZero(), err
	}
	liqorPerp.SettleFunding(m)
	liqeeToken, err := liqee.TokenPosition(m.SettleTokenIndex)
	if err != nil {
		return num.DecimalZero(), err
	}
	liqorToken, err := liqor.TokenPosition(m.SettleTokenIndex)
	if err != nil {
		return num.DecimalZero(), err
	}

	liqee.BeingLiquidated = true
	liqeePerp.RecordSettle(settle.Neg())
	liqorPerp.RecordSettle(settle)
	if err := bank.Transfer(liqeeToken, settle.Neg()); err != nil {
		return num.DecimalZero(), err
	}
	if err := bank.Transfer(liqorToken, settle); err != nil {
		return num.DecimalZero(), err
	}
	if err := checkLiqor(liqor, r, now); err != nil {
		return num.DecimalZero(), err
	}
	if _, err := finish(liqee, r, now); err != nil {
		return num.DecimalZero(), err
	}
	return settle, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
