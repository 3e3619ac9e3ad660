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

package collateral

import (
	"github.com/xmargin/xmargin/libs/num"
)

// InsuranceFund backs bankrupt accounts before losses are socialized.
// It holds a native balance of a single token.
type InsuranceFund struct {
	TokenIndex uint16
	Balance    num.Decimal
}

func NewInsuranceFund(token uint16) *InsuranceFund {
	return &InsuranceFund{TokenIndex: token, Balance: num.DecimalZero()}
}

func (f *InsuranceFund) Clone() *InsuranceFund {
	c := *f
	return &c
}

func (f *InsuranceFund) Deposit(amount num.Decimal) {
	if amount.IsPositive() {
		f.Balance = f.Balance.Add(amount)
	}
}

// Withdraw takes up to max from the fund and returns the amount taken.
func (f *InsuranceFund) Withdraw(max num.Decimal) num.Decimal {
	taken := num.MinD(num.PositivePart(max), f.Balance)
	f.Balance = f.Balance.Sub(taken)
	return taken
}
