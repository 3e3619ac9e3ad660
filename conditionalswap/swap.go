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

// Package conditionalswap implements token conditional swaps: standing
// offers of an account owner to exchange one token for another once the
// oracle price enters a range. Anyone may trigger them against their own
// balances and is paid a price premium for it.
package conditionalswap

import (
	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"
)

// Params describe a new swap. Prices are prices of the buy token in
// sell token units.
type Params struct {
	BuyTokenIndex    uint16
	SellTokenIndex   uint16
	MaxBuy           num.Decimal
	MaxSell          num.Decimal
	PriceLowerLimit  num.Decimal
	PriceUpperLimit  num.Decimal
	PricePremiumRate num.Decimal
	MakerFeeRate     num.Decimal
	TakerFeeRate     num.Decimal
	// zero never expires
	ExpiryTimestamp uint64

	AllowCreatingDeposits bool
	AllowCreatingBorrows  bool
}

func (p Params) validate(now uint64) error {
	bad := func(what string) error {
		return types.ErrInvalidSwap.WithInvariant(what)
	}
	switch {
	case p.BuyTokenIndex == p.SellTokenIndex:
		return bad("buy and sell token are the same")
	case !p.MaxBuy.IsPositive() || !p.MaxSell.IsPositive():
		return bad("max buy and max sell must be positive")
	case !p.PriceLowerLimit.IsPositive():
		return bad("price lower limit must be positive")
	case p.PriceUpperLimit.LessThan(p.PriceLowerLimit):
		return bad("price upper limit below lower limit")
	case p.PricePremiumRate.IsNegative():
		return bad("negative premium")
	case p.MakerFeeRate.IsNegative() || p.TakerFeeRate.IsNegative():
		return bad("negative fee rate")
	case p.ExpiryTimestamp != 0 && p.ExpiryTimestamp <= now:
		return types.ErrSwapExpired
	}
	return nil
}

// Create stores a new swap in a free slot of acc. Both tokens must have
// a bank.
func Create(acc *positions.Account, r risk.Retriever, p Params, now uint64) (*positions.TokenConditionalSwap, error) {
	if err := p.validate(now); err != nil {
		return nil, err.(*types.Error).WithAccount(acc.ID)
	}
	for _, idx := range []uint16{p.BuyTokenIndex, p.SellTokenIndex} {
		if _, _, err := r.BankAndPrice(idx); err != nil {
			return nil, err
		}
	}
	slot, err := acc.FreeSwapSlot()
	if err != nil {
		return nil, err
	}
	zero := num.DecimalZero()
	*slot = positions.TokenConditionalSwap{
		ID:                    acc.NextSwapID,
		MaxBuy:                p.MaxBuy,
		MaxSell:               p.MaxSell,
		Bought:                zero,
		Sold:                  zero,
		ExpiryTimestamp:       p.ExpiryTimestamp,
		PriceLowerLimit:       p.PriceLowerLimit,
		PriceUpperLimit:       p.PriceUpperLimit,
		PricePremiumRate:      p.PricePremiumRate,
		TakerFeeRate:          p.TakerFeeRate,
		MakerFeeRate:          p.MakerFeeRate,
		BuyTokenIndex:         p.BuyTokenIndex,
		SellTokenIndex:        p.SellTokenIndex,
		IsConfigured:          true,
		AllowCreatingDeposits: p.AllowCreatingDeposits,
		AllowCreatingBorrows:  p.AllowCreatingBorrows,
	}
	acc.NextSwapID++
	return slot, nil
}

// Cancel removes a swap from acc.
func Cancel(acc *positions.Account, id uint64) error {
	s, err := acc.SwapByID(id)
	if err != nil {
		return err
	}
	*s = positions.TokenConditionalSwap{}
	return nil
}

// Result reports a trigger. Amounts are native amounts before fees.
type Result struct {
	// Price of the buy token in sell token units, premium included.
	Price    num.Decimal
	Bought   num.Decimal
	Sold     num.Decimal
	MakerFee num.Decimal
	TakerFee num.Decimal
	// Closed is set when the swap was removed, Expired tells why.
	Closed  bool
	Expired bool
}

// Price is the oracle price of the buy token in sell token units.
func Price(r risk.Retriever, buyToken, sellToken uint16, now uint64) (num.Decimal, error) {
	buy, err := checkedPrice(r, buyToken, now)
	if err != nil {
		return num.DecimalZero(), err
	}
	sell, err := checkedPrice(r, sellToken, now)
	if err != nil {
		return num.DecimalZero(), err
	}
	return num.Quo(buy.Price, sell.Price), nil
}

func checkedPrice(r risk.Retriever, token uint16, now uint64) (oracle.Checked, error) {
	bank, p, err := r.BankAndPrice(token)
	if err != nil {
		return oracle.Checked{}, err
	}
	return bank.CheckOracle(p, now)
}

// Trigger executes swap id of owner against triggerer. The owner buys at
// most maxBuyTokenToOwner of the buy token and the triggerer receives at
// most maxSellTokenToTriggerer of the sell token. An expired swap is
// removed and reported without error so the removal survives commit.
func Trigger(triggerer, owner *positions.Account, r risk.Retriever, id uint64, maxBuyTokenToOwner, maxSellTokenToTriggerer num.Decimal, now uint64) (*Result, error) {
	if triggerer.ID == owner.ID {
		return nil, types.ErrInvalidSwap.WithAccount(owner.ID).WithInvariant("owner cannot trigger its own swap")
	}
	if triggerer.BeingLiquidated {
		return nil, types.ErrBeingLiquidated.WithAccount(triggerer.ID)
	}
	s, err := owner.SwapByID(id)
	if err != nil {
		return nil, err
	}
	zero := num.DecimalZero()
	if s.IsExpired(now) {
		*s = positions.TokenConditionalSwap{}
		return &Result{Price: zero, Bought: zero, Sold: zero, MakerFee: zero, TakerFee: zero, Closed: true, Expired: true}, nil
	}
	if !maxBuyTokenToOwner.IsPositive() || !maxSellTokenToTriggerer.IsPositive() {
		return nil, types.ErrInvalidAmount.WithInvariant("trigger maximums must be positive")
	}

	price, err := Price(r, s.BuyTokenIndex, s.SellTokenIndex, now)
	if err != nil {
		return nil, err
	}
	if !s.PriceInRange(price) {
		return nil, types.ErrSwapPriceLimit.WithAccount(owner.ID).WithInvariant("price " + price.String())
	}
	premiumPrice := price.Mul(num.DecimalOne().Add(s.PricePremiumRate))

	buyBank, _, err := r.BankAndPrice(s.BuyTokenIndex)
	if err != nil {
		return nil, err
	}
	sellBank, _, err := r.BankAndPrice(s.SellTokenIndex)
	if err != nil {
		return nil, err
	}

	ownerPre, err := risk.Compute(owner, r, now)
	if err != nil {
		return nil, err
	}
	triggererPre, err := risk.Compute(triggerer, r, now)
	if err != nil {
		return nil, err
	}

	ownerBuy, err := owner.EnsureTokenPosition(s.BuyTokenIndex)
	if err != nil {
		return nil, err
	}
	ownerSell, err := owner.EnsureTokenPosition(s.SellTokenIndex)
	if err != nil {
		return nil, err
	}

	buyCap := num.MinD(s.RemainingBuy(), maxBuyTokenToOwner)
	if !s.AllowCreatingDeposits {
		buyCap = num.MinD(buyCap, num.PositivePart(buyBank.NativeBalance(ownerBuy).Neg()))
	}
	sellCap := num.MinD(s.RemainingSell(), maxSellTokenToTriggerer)
	if !s.AllowCreatingBorrows {
		sellCap = num.MinD(sellCap, num.PositivePart(sellBank.NativeBalance(ownerSell)))
	}
	bought := num.MinD(buyCap, num.QuoFloor(sellCap, premiumPrice))
	if !bought.IsPositive() {
		return nil, types.ErrInvalidSwap.WithAccount(owner.ID).WithInvariant("nothing to execute")
	}
	sold := bought.Mul(premiumPrice)
	makerFee := bought.Mul(s.MakerFeeRate)
	takerFee := sold.Mul(s.TakerFeeRate)

	trigBuy, err := triggerer.EnsureTokenPosition(s.BuyTokenIndex)
	if err != nil {
		return nil, err
	}
	trigSell, err := triggerer.EnsureTokenPosition(s.SellTokenIndex)
	if err != nil {
		return nil, err
	}
	transfers := []struct {
		bank   *collateral.Bank
		pos    *positions.TokenPosition
		amount num.Decimal
	}{
		{buyBank, ownerBuy, bought.Sub(makerFee)},
		{sellBank, ownerSell, sold.Neg()},
		{buyBank, trigBuy, bought.Neg()},
		{sellBank, trigSell, sold.Sub(takerFee)},
	}
	for _, t := range transfers {
		if err := t.bank.Transfer(t.pos, t.amount); err != nil {
			return nil, err
		}
	}
	buyBank.CollectedFeesNative = buyBank.CollectedFeesNative.Add(makerFee)
	sellBank.CollectedFeesNative = sellBank.CollectedFeesNative.Add(takerFee)

	s.Bought = s.Bought.Add(bought)
	s.Sold = s.Sold.Add(sold)
	res := &Result{
		Price:    premiumPrice,
		Bought:   bought,
		Sold:     sold,
		MakerFee: makerFee,
		TakerFee: takerFee,
	}
	if s.IsExhausted() {
		*s = positions.TokenConditionalSwap{}
		res.Closed = true
	}

	ownerPost, err := risk.Compute(owner, r, now)
	if err != nil {
		return nil, err
	}
	if err := risk.CheckPreAndPost(ownerPre.InitHealth(), ownerPost.InitHealth()); err != nil {
		return nil, err.(*types.Error).WithAccount(owner.ID)
	}
	triggererPost, err := risk.Compute(triggerer, r, now)
	if err != nil {
		return nil, err
	}
	if err := risk.CheckPreAndPost(triggererPre.InitHealth(), triggererPost.InitHealth()); err != nil {
		return nil, err.(*types.Error).WithAccount(triggerer.ID)
	}
	return res, nil
}

// Triggerable lists the ids of the swaps of acc that are live and whose
// price condition currently holds. Swaps whose oracle cannot be read are
// skipped.
func Triggerable(acc *positions.Account, r risk.Retriever, now uint64) []uint64 {
	ids := []uint64{}
	for i := range acc.Swaps {
		s := &acc.Swaps[i]
		if !s.IsConfigured || s.IsExpired(now) || s.IsExhausted() {
			continue
		}
		price, err := Price(r, s.BuyTokenIndex, s.SellTokenIndex, now)
		if err != nil {
			continue
		}
		if s.PriceInRange(price) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
