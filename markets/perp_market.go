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

package markets

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/types"
)

// SecondsPerDay scales the daily funding rate.
const SecondsPerDay = 24 * 60 * 60

// PerpMarket is the configuration and the mutable accumulators of a
// perpetual futures market. Prices on the book are expressed in lots:
// one price lot is QuoteLotSize native quote units per BaseLotSize
// native base units.
type PerpMarket struct {
	MarketIndex      uint16
	Name             string
	SettleTokenIndex uint16
	BaseLotSize      int64
	QuoteLotSize     int64

	Oracle      oracle.Config
	StablePrice oracle.StablePriceModel

	MaintBaseAssetWeight num.Decimal
	InitBaseAssetWeight  num.Decimal
	MaintBaseLiabWeight  num.Decimal
	InitBaseLiabWeight   num.Decimal
	// weights applied to positive unsettled pnl
	MaintOverallAssetWeight num.Decimal
	InitOverallAssetWeight  num.Decimal

	BaseLiquidationFee num.Decimal
	MakerFee           num.Decimal
	TakerFee           num.Decimal
	// fraction of the settled amount paid by the account receiving pnl
	SettleFee num.Decimal

	MinFunding     num.Decimal
	MaxFunding     num.Decimal
	ImpactQuantity int64

	// cumulative funding per base lot, in native quote
	LongFunding        num.Decimal
	ShortFunding       num.Decimal
	FundingLastUpdated uint64

	OpenInterest int64
	FeesAccrued  num.Decimal
	FeesSettled  num.Decimal

	TickSizeLots        int64
	MaxPositionBaseLots int64
	ReduceOnly          bool
}

// NewPerpMarket returns a market with neutral weights, no fees and a one
// lot tick. Callers adjust what they need.
func NewPerpMarket(idx uint16, name string, settleToken uint16, baseLotSize, quoteLotSize int64) *PerpMarket {
	one := num.DecimalOne()
	zero := num.DecimalZero()
	return &PerpMarket{
		MarketIndex:             idx,
		Name:                    name,
		SettleTokenIndex:        settleToken,
		BaseLotSize:             baseLotSize,
		QuoteLotSize:            quoteLotSize,
		Oracle:                  oracle.DefaultConfig(),
		StablePrice:             oracle.NewStablePriceModel(num.MustDecimalFromString("0.0006")),
		MaintBaseAssetWeight:    one,
		InitBaseAssetWeight:     one,
		MaintBaseLiabWeight:     one,
		InitBaseLiabWeight:      one,
		MaintOverallAssetWeight: one,
		InitOverallAssetWeight:  one,
		BaseLiquidationFee:      zero,
		MakerFee:                zero,
		TakerFee:                zero,
		SettleFee:               zero,
		MinFunding:              num.MustDecimalFromString("-0.05"),
		MaxFunding:              num.MustDecimalFromString("0.05"),
		ImpactQuantity:          1,
		LongFunding:             zero,
		ShortFunding:            zero,
		FeesAccrued:             zero,
		FeesSettled:             zero,
		TickSizeLots:            1,
	}
}

func (m *PerpMarket) Clone() *PerpMarket {
	c := *m
	return &c
}

// NativePriceToLots converts a native price into price lots, rounding
// toward zero.
func (m *PerpMarket) NativePriceToLots(price num.Decimal) int64 {
	return num.Quo(price.Mul(num.DecimalFromInt64(m.BaseLotSize)), num.DecimalFromInt64(m.QuoteLotSize)).IntPart()
}

// LotsToNativePrice converts price lots into a native price.
func (m *PerpMarket) LotsToNativePrice(lots int64) num.Decimal {
	return num.Quo(num.DecimalFromInt64(lots).Mul(num.DecimalFromInt64(m.QuoteLotSize)), num.DecimalFromInt64(m.BaseLotSize))
}

// BaseLotsToNative converts a base quantity in lots into native units.
func (m *PerpMarket) BaseLotsToNative(lots int64) num.Decimal {
	return num.DecimalFromInt64(lots).Mul(num.DecimalFromInt64(m.BaseLotSize))
}

// QuoteLotsToNative converts a quote quantity in lots into native units.
func (m *PerpMarket) QuoteLotsToNative(lots int64) num.Decimal {
	return num.DecimalFromInt64(lots).Mul(num.DecimalFromInt64(m.QuoteLotSize))
}

// ValidatePrice rejects non positive prices and prices off the tick grid.
func (m *PerpMarket) ValidatePrice(lots int64) error {
	if lots <= 0 {
		return types.ErrInvalidPrice.WithMarket(m.MarketIndex)
	}
	if m.TickSizeLots > 1 && lots%m.TickSizeLots != 0 {
		return types.ErrInvalidPrice.WithMarket(m.MarketIndex).WithInvariant("tick size")
	}
	return nil
}

// CheckOracle applies the market oracle policy to a reading.
func (m *PerpMarket) CheckOracle(p oracle.Price, now uint64) (oracle.Checked, error) {
	c, err := m.Oracle.Check(p, now)
	if err != nil {
		if e, ok := err.(*types.Error); ok {
			return c, e.WithMarket(m.MarketIndex)
		}
		return c, err
	}
	return c, nil
}

// FundingRate returns the daily funding rate implied by the book impact
// prices relative to the index price. A missing side pins the rate to
// the corresponding bound.
func (m *PerpMarket) FundingRate(bidLots, askLots int64, hasBid, hasAsk bool, indexPrice num.Decimal) num.Decimal {
	switch {
	case hasBid && hasAsk:
		bookPrice := m.LotsToNativePrice(bidLots).Add(m.LotsToNativePrice(askLots)).Div(num.DecimalFromInt64(2))
		diff := num.Quo(bookPrice, indexPrice).Sub(num.DecimalOne())
		return num.ClampD(diff, m.MinFunding, m.MaxFunding)
	case hasBid:
		return m.MaxFunding
	case hasAsk:
		return m.MinFunding
	default:
		return num.DecimalZero()
	}
}

// UpdateFunding accrues funding since the last update. Longs pay shorts
// when the rate is positive.
func (m *PerpMarket) UpdateFunding(rate, indexPrice num.Decimal, now uint64) {
	if now <= m.FundingLastUpdated {
		return
	}
	if m.FundingLastUpdated == 0 {
		m.FundingLastUpdated = now
		return
	}
	timeFactor := num.Quo(num.DecimalFromUint64(now-m.FundingLastUpdated), num.DecimalFromInt64(SecondsPerDay))
	delta := indexPrice.Mul(num.DecimalFromInt64(m.BaseLotSize)).Mul(rate).Mul(timeFactor)
	m.LongFunding = m.LongFunding.Add(delta)
	m.ShortFunding = m.ShortFunding.Add(delta)
	m.FundingLastUpdated = now
}

// Validate checks the market parameters.
func (m *PerpMarket) Validate() error {
	bad := func(what string) error {
		return types.ErrInvalidConfig.WithMarket(m.MarketIndex).WithInvariant(what)
	}
	if m.BaseLotSize <= 0 || m.QuoteLotSize <= 0 {
		return bad("lot sizes must be positive")
	}
	if m.TickSizeLots <= 0 {
		return bad("tick size must be positive")
	}
	if m.MaxPositionBaseLots < 0 {
		return bad("max position must not be negative")
	}
	one := num.DecimalOne()
	if m.InitBaseAssetWeight.GreaterThan(m.MaintBaseAssetWeight) || m.MaintBaseAssetWeight.GreaterThan(one) || m.InitBaseAssetWeight.IsNegative() {
		return bad("base asset weights")
	}
	if m.InitBaseLiabWeight.LessThan(m.MaintBaseLiabWeight) || m.MaintBaseLiabWeight.LessThan(one) {
		return bad("base liab weights")
	}
	if m.InitOverallAssetWeight.GreaterThan(m.MaintOverallAssetWeight) || m.MaintOverallAssetWeight.GreaterThan(one) || m.InitOverallAssetWeight.IsNegative() {
		return bad("overall asset weights")
	}
	if m.BaseLiquidationFee.IsNegative() || m.SettleFee.IsNegative() || m.TakerFee.IsNegative() {
		return bad("fees")
	}
	if m.MakerFee.Add(m.TakerFee).IsNegative() {
		return bad("maker rebate larger than taker fee")
	}
	if m.MinFunding.GreaterThan(m.MaxFunding) {
		return bad("funding bounds")
	}
	return m.Oracle.Validate()
}
