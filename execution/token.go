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
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/types"
)

// Deposit credits a native amount to an account, repaying borrows
// first. Deposits are allowed while the account is being liquidated and
// end the liquidation once the account is healthy enough.
func (e *Engine) Deposit(owner types.AccountID, token uint16, amount num.Decimal) error {
	return e.run("deposit", func(s *stage) error {
		if !amount.IsPositive() {
			return types.ErrInvalidAmount.WithAccount(owner).WithToken(token)
		}
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		bank, err := s.bank(token)
		if err != nil {
			return err
		}
		tp, err := acc.EnsureTokenPosition(token)
		if err != nil {
			return err
		}
		if err := bank.Deposit(tp, amount); err != nil {
			return err
		}
		if err := bank.CheckLimits(); err != nil {
			return err
		}
		if !acc.BeingLiquidated {
			return nil
		}
		hc, err := s.health(acc)
		if err != nil {
			return err
		}
		if !hc.IsLiquidatable() {
			acc.BeingLiquidated = false
		}
		return nil
	})
}

// Withdraw debits a native amount, borrowing what the account does not
// hold when allowBorrow is set. It returns the loan origination fee.
func (e *Engine) Withdraw(owner types.AccountID, token uint16, amount num.Decimal, allowBorrow bool) (num.Decimal, error) {
	fee := num.DecimalZero()
	err := e.run("withdraw", func(s *stage) error {
		if !amount.IsPositive() {
			return types.ErrInvalidAmount.WithAccount(owner).WithToken(token)
		}
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		bank, err := s.bank(token)
		if err != nil {
			return err
		}
		pre, err := s.initHealth(acc)
		if err != nil {
			return err
		}
		// a borrow may open the position
		position := acc.TokenPosition
		if allowBorrow {
			position = acc.EnsureTokenPosition
		}
		tp, err := position(token)
		if err != nil {
			return err
		}
		if fee, err = bank.Withdraw(tp, amount, allowBorrow); err != nil {
			return err
		}
		if err := bank.CheckLimits(); err != nil {
			return err
		}
		if err := s.checkHealth(acc, pre); err != nil {
			return err
		}
		acc.TryDeactivateTokenPosition(token)
		return nil
	})
	if err != nil {
		return num.DecimalZero(), err
	}
	if fee.IsPositive() {
		e.log.Debug("loan origination fee charged",
			logging.AccountID(owner.String()),
			logging.TokenIndex(token),
			logging.Decimal("fee", fee),
		)
	}
	return fee, nil
}

// UpdateIndexAndRate accrues interest on a bank and moves its stable
// price towards the oracle price.
func (e *Engine) UpdateIndexAndRate(token uint16) error {
	return e.run("update_index_and_rate", func(s *stage) error {
		bank, p, err := s.BankAndPrice(token)
		if err != nil {
			return err
		}
		checked, err := bank.CheckOracle(p, s.now)
		if err != nil {
			return err
		}
		bank.UpdateIndexAndRate(s.now)
		bank.StablePrice.Update(checked.Price, s.now)
		return nil
	})
}
