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
	"github.com/xmargin/xmargin/libs/num"
)

// TokenConditionalSwap is a standing offer of the account owner to sell
// one token for another once the price is inside a range. Anyone may
// trigger it and is paid a premium for doing so.
type TokenConditionalSwap struct {
	ID              uint64
	MaxBuy          num.Decimal
	MaxSell         num.Decimal
	Bought          num.Decimal
	Sold            num.Decimal
	ExpiryTimestamp uint64
	// limits on the price of the buy token in sell token units
	PriceLowerLimit  num.Decimal
	PriceUpperLimit  num.Decimal
	PricePremiumRate num.Decimal
	TakerFeeRate     num.Decimal
	MakerFeeRate     num.Decimal
	BuyTokenIndex    uint16
	SellTokenIndex   uint16
	IsConfigured     bool

	AllowCreatingDeposits bool
	AllowCreatingBorrows  bool
}

func (s *TokenConditionalSwap) RemainingBuy() num.Decimal {
	return num.PositivePart(s.MaxBuy.Sub(s.Bought))
}

func (s *TokenConditionalSwap) RemainingSell() num.Decimal {
	return num.PositivePart(s.MaxSell.Sub(s.Sold))
}

func (s *TokenConditionalSwap) IsExpired(now uint64) bool {
	return s.ExpiryTimestamp > 0 && now >= s.ExpiryTimestamp
}

// IsExhausted is true once either side reached its maximum.
func (s *TokenConditionalSwap) IsExhausted() bool {
	return !s.RemainingBuy().IsPositive() || !s.RemainingSell().IsPositive()
}

// PriceInRange checks a price of the buy token in sell token units.
func (s *TokenConditionalSwap) PriceInRange(price num.Decimal) bool {
	return price.GreaterThanOrEqual(s.PriceLowerLimit) && price.LessThanOrEqual(s.PriceUpperLimit)
}
