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
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"
)

// TokenResult reports a token liquidation step.
type TokenResult struct {
	LiabTransfer  num.Decimal
	AssetTransfer num.Decimal
	// liquidation end health of the liquidatee after the step
	LiquidationEndHealth num.Decimal
	State                State
}

// FeeFactor is the discount a liquidator gets: it receives
// liab * liabPrice * FeeFactor / assetPrice of the asset for repaying
// liab of the liability.
func FeeFactor(assetFee, liabFee num.Decimal) num.Decimal {
	one := num.DecimalOne()
	return one.Add(assetFee).Mul(one.Add(liabFee))
}

// LiquidateTokenWithToken makes liqor repay part of the liqee borrow in
// liabToken in exchange for liqee deposits in assetToken. The amount is
// the smallest of maxLiabTransfer, the borrow, what the deposit can pay
// for and what brings the liquidation end health of liqee back to zero.
func LiquidateTokenWithToken(liqor, liqee *positions.Account, r risk.Retriever, assetToken, liabToken uint16, maxLiabTransfer num.Decimal, now uint64) (*TokenResult, error) {
	if err := checkParties(liqor, liqee); err != nil {
		return nil, err
	}
	if assetToken == liabToken {
		return nil, types.ErrInvalidLiq.WithToken(assetToken).WithInvariant("asset and liability token are the same")
	}
	if !maxLiabTransfer.IsPositive() {
		return nil, types.ErrInvalidAmount.WithInvariant("max liab transfer")
	}
	hc, err := liquidatable(liqee, r, now)
	if err != nil {
		return nil, err
	}
	if !hc.HasLiquidatableAssets() && hc.HasSpotBorrows() {
		return nil, types.ErrBankrupt.WithAccount(liqee.ID)
	}

	assetInfo, err := hc.TokenInfo(assetToken)
	if err != nil {
		return nil, err
	}
	liabInfo, err := hc.TokenInfo(liabToken)
	if err != nil {
		return nil, err
	}
	if !assetInfo.Balance.IsPositive() {
		return nil, types.ErrInvalidLiq.WithAccount(liqee.ID).WithToken(assetToken).WithInvariant("no asset to take")
	}
	if !liabInfo.Balance.IsNegative() {
		return nil, types.ErrInvalidLiq.WithAccount(liqee.ID).WithToken(liabToken).WithInvariant("no liability to repay")
	}
	assetBank, _, err := r.BankAndPrice(assetToken)
	if err != nil {
		return nil, err
	}
	liabBank, _, err := r.BankAndPrice(liabToken)
	if err != nil {
		return nil, err
	}

	ht := risk.LiquidationEnd
	assetPrice := assetInfo.Prices.Oracle.Price
	liabPrice := liabInfo.Prices.Oracle.Price
	fee := FeeFactor(assetBank.LiquidationFee, liabBank.LiquidationFee)
	// asset paid out per unit of liability repaid
	assetPerLiab := num.Quo(liabPrice.Mul(fee), assetPrice)

	// health gained per unit of liability repaid
	gainOf := func(ht risk.HealthType) num.Decimal {
		return liabInfo.Prices.Liab(ht).Mul(liabInfo.LiabWeight(ht)).
			Sub(assetPerLiab.Mul(assetInfo.Prices.Asset(ht)).Mul(assetInfo.AssetWeight(ht)))
	}
	gain := gainOf(ht)
	if maintGain := gainOf(risk.Maint); maintGain.IsNegative() {
		return nil, types.ErrLiqLowersHealth.WithAccount(liqee.ID).WithToken(liabToken).
			WithInvariant("maint health per unit repaid " + maintGain.String())
	}

	liabTransfer := num.MinD(maxLiabTransfer, liabInfo.Balance.Neg())
	liabTransfer = num.MinD(liabTransfer, num.Quo(assetInfo.Balance, assetPerLiab))
	if end := hc.LiquidationEndHealth(); end.IsNegative() && gain.IsPositive() {
		needed := num.QuoCeil(end.Neg(), gain)
		liabTransfer = num.MinD(liabTransfer, needed)
	}
	if !liabTransfer.IsPositive() {
		return nil, types.ErrInvalidLiq.WithAccount(liqee.ID).WithInvariant("nothing to transfer")
	}
	assetTransfer := num.MinD(liabTransfer.Mul(assetPerLiab), assetInfo.Balance)

	liqee.BeingLiquidated = true

	liqeeLiab, err := liqee.TokenPosition(liabToken)
	if err != nil {
		return nil, err
	}
	liqeeAsset, err := liqee.TokenPosition(assetToken)
	if err != nil {
		return nil, err
	}
	liqorLiab, err := liqor.EnsureTokenPosition(liabToken)
	if err != nil {
		return nil, err
	}
	liqorAsset, err := liqor.EnsureTokenPosition(assetToken)
	if err != nil {
		return nil, err
	}
	if err := liabBank.Transfer(liqorLiab, liabTransfer.Neg()); err != nil {
		return nil, err
	}
	if err := liabBank.Transfer(liqeeLiab, liabTransfer); err != nil {
		return nil, err
	}
	if err := assetBank.Transfer(liqeeAsset, assetTransfer.Neg()); err != nil {
		return nil, err
	}
	if err := assetBank.Transfer(liqorAsset, assetTransfer); err != nil {
		return nil, err
	}

	if err := checkLiqor(liqor, r, now); err != nil {
		return nil, err
	}
	after, err := finish(liqee, r, now)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		LiabTransfer:         liabTransfer,
		AssetTransfer:        assetTransfer,
		LiquidationEndHealth: after.LiquidationEndHealth(),
		State:                StateOf(after),
	}, nil
}
