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
	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"
)

// BankruptcyResult reports how a bankrupt liability was written off. All
// amounts are native units of the liability token.
type BankruptcyResult struct {
	Liability      num.Decimal
	InsuranceCover num.Decimal
	Socialized     num.Decimal
	// part of the loss that depositors could not absorb
	Unabsorbed num.Decimal
}

// ResolveTokenBankruptcy writes off the liqee borrow in liabToken. The
// insurance fund pays first, converted at oracle prices when it holds a
// different token; depositors of the bank absorb the rest through a
// lower deposit index. The account must have nothing left to liquidate.
func ResolveTokenBankruptcy(liqee *positions.Account, r risk.Retriever, fund *collateral.InsuranceFund, liabToken uint16, now uint64) (*BankruptcyResult, error) {
	hc, err := liquidatable(liqee, r, now)
	if err != nil {
		return nil, err
	}
	if hc.HasLiquidatableAssets() {
		return nil, types.ErrNotBankrupt.WithAccount(liqee.ID)
	}
	liabInfo, err := hc.TokenInfo(liabToken)
	if err != nil {
		return nil, err
	}
	if !liabInfo.Balance.IsNegative() {
		return nil, types.ErrNotBankrupt.WithAccount(liqee.ID).WithToken(liabToken).WithInvariant("no liability")
	}
	bank, _, err := r.BankAndPrice(liabToken)
	if err != nil {
		return nil, err
	}
	pos, err := liqee.TokenPosition(liabToken)
	if err != nil {
		return nil, err
	}

	liab := liabInfo.Balance.Neg()
	res := &BankruptcyResult{
		Liability:      liab,
		InsuranceCover: num.DecimalZero(),
		Socialized:     num.DecimalZero(),
		Unabsorbed:     num.DecimalZero(),
	}

	if fund != nil && fund.Balance.IsPositive() {
		cover, err := insuranceCover(fund, r, liabInfo, liab)
		if err != nil {
			return nil, err
		}
		res.InsuranceCover = cover
	}

	liqee.BeingLiquidated = true
	if err := bank.Transfer(pos, liab); err != nil {
		return nil, err
	}
	res.Socialized = liab.Sub(res.InsuranceCover)
	if res.Socialized.IsPositive() {
		res.Unabsorbed = bank.SocializeLoss(res.Socialized)
	}

	after, err := risk.Compute(liqee, r, now)
	if err != nil {
		return nil, err
	}
	if !after.HasSpotBorrows() {
		liqee.BeingLiquidated = false
	}
	return res, nil
}

// insuranceCover pays out of the fund the value of up to liab of the
// liability token and returns the covered amount in liability units.
func insuranceCover(fund *collateral.InsuranceFund, r risk.Retriever, liabInfo *risk.TokenInfo, liab num.Decimal) (num.Decimal, error) {
	if fund.TokenIndex == liabInfo.TokenIndex {
		return fund.Withdraw(liab), nil
	}
	fundBank, fundPrice, err := r.BankAndPrice(fund.TokenIndex)
	if err != nil {
		return num.DecimalZero(), err
	}
	if !fundPrice.Price.IsPositive() {
		return num.DecimalZero(), types.ErrBadOraclePrice.WithToken(fundBank.TokenIndex)
	}
	liabPrice := liabInfo.Prices.Oracle.Price
	wanted := num.Quo(liab.Mul(liabPrice), fundPrice.Price)
	paid := fund.Withdraw(wanted)
	return num.MinD(num.Quo(paid.Mul(fundPrice.Price), liabPrice), liab), nil
}
