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

package execution

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/types"
)

// UpdateFunding accrues funding on a market from the impact prices of
// its book against the oracle price.
func (e *Engine) UpdateFunding(market uint16) error {
	return e.run("update_funding", func(s *stage) error {
		m, checked, err := s.checkedPerpPrice(market)
		if err != nil {
			return err
		}
		book, err := s.book(market)
		if err != nil {
			return err
		}
		oracleLots := m.NativePriceToLots(checked.Price)
		bid, hasBid := book.Bids.ImpactPrice(s.now, oracleLots, m.ImpactQuantity)
		ask, hasAsk := book.Asks.ImpactPrice(s.now, oracleLots, m.ImpactQuantity)
		rate := m.FundingRate(bid, ask, hasBid, hasAsk, checked.Price)
		m.UpdateFunding(rate, checked.Price, s.now)
		m.StablePrice.Update(checked.Price, s.now)
		return nil
	})
}

// SettleFunding moves the funding owed by a perp position into its quote
// position.
func (e *Engine) SettleFunding(owner types.AccountID, market uint16) error {
	return e.run("settle_funding", func(s *stage) error {
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		m, err := s.market(market)
		if err != nil {
			return err
		}
		pp, err := acc.PerpPosition(market)
		if err != nil {
			return err
		}
		pp.SettleFunding(m)
		return nil
	})
}

// SettlePnl settles the positive pnl of a against the negative pnl of b
// in the settle token. The settler earns the market settle fee, paid by
// a out of the settled amount. It returns the settled amount.
func (e *Engine) SettlePnl(settler, a, b types.AccountID, market uint16) (num.Decimal, error) {
	var settled num.Decimal
	err := e.run("settle_pnl", func(s *stage) error {
		if a == b {
			return types.ErrInvalidAmount.WithAccount(a).WithInvariant("cannot settle an account against itself")
		}
		accA, err := s.account(a)
		if err != nil {
			return err
		}
		accB, err := s.account(b)
		if err != nil {
			return err
		}
		m, checked, err := s.checkedPerpPrice(market)
		if err != nil {
			return err
		}
		bank, err := s.bank(m.SettleTokenIndex)
		if err != nil {
			return err
		}
		ppA, err := accA.PerpPosition(market)
		if err != nil {
			return err
		}
		ppB, err := accB.PerpPosition(market)
		if err != nil {
			return err
		}
		ppA.SettleFunding(m)
		ppB.SettleFunding(m)

		pnlA := ppA.UnsettledPnl(m, checked.Price)
		pnlB := ppB.UnsettledPnl(m, checked.Price)
		if !pnlA.IsPositive() {
			return types.ErrInvalidAmount.WithAccount(a).WithMarket(market).WithInvariant("no positive pnl to settle")
		}
		if !pnlB.IsNegative() {
			return types.ErrInvalidAmount.WithAccount(b).WithMarket(market).WithInvariant("no negative pnl to settle")
		}
		amount := num.MinD(pnlA, pnlB.Neg())
		ppA.RecordSettle(amount)
		ppB.RecordSettle(amount.Neg())

		tpA, err := accA.TokenPosition(m.SettleTokenIndex)
		if err != nil {
			return err
		}
		tpB, err := accB.TokenPosition(m.SettleTokenIndex)
		if err != nil {
			return err
		}
		fee := amount.Mul(m.SettleFee)
		if settler == a {
			fee = num.DecimalZero()
		}
		if err := bank.Transfer(tpA, amount.Sub(fee)); err != nil {
			return err
		}
		if err := bank.Transfer(tpB, amount.Neg()); err != nil {
			return err
		}
		if fee.IsPositive() {
			accS, err := s.account(settler)
			if err != nil {
				return err
			}
			tpS, err := accS.EnsureTokenPosition(m.SettleTokenIndex)
			if err != nil {
				return err
			}
			if err := bank.Transfer(tpS, fee); err != nil {
				return err
			}
		}
		settled = amount
		return nil
	})
	if err != nil {
		return num.DecimalZero(), err
	}
	return settled, nil
}
