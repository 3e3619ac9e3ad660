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
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"
)

// SecondsPerYear scales the yearly interest rates.
const SecondsPerYear = 365 * 24 * 60 * 60

// InterestCurve is a piecewise linear borrow rate as a function of the
// utilization: (0,0) to (Util0,Rate0) to (Util1,Rate1) to (1,MaxRate).
type InterestCurve struct {
	Util0   num.Decimal
	Rate0   num.Decimal
	Util1   num.Decimal
	Rate1   num.Decimal
	MaxRate num.Decimal
}

// Rate returns the yearly borrow rate at the given utilization.
func (c InterestCurve) Rate(util num.Decimal) num.Decimal {
	util = num.ClampD(util, num.DecimalZero(), num.DecimalOne())
	lerp := func(x0, y0, x1, y1 num.Decimal) num.Decimal {
		if !x1.GreaterThan(x0) {
			return y1
		}
		return y0.Add(num.Quo(y1.Sub(y0).Mul(util.Sub(x0)), x1.Sub(x0)))
	}
	switch {
	case util.LessThanOrEqual(c.Util0):
		return lerp(num.DecimalZero(), num.DecimalZero(), c.Util0, c.Rate0)
	case util.LessThanOrEqual(c.Util1):
		return lerp(c.Util0, c.Rate0, c.Util1, c.Rate1)
	default:
		return lerp(c.Util1, c.Rate1, num.DecimalOne(), c.MaxRate)
	}
}

// Bank holds the configuration and the pooled balances of one token.
type Bank struct {
	TokenIndex uint16
	Name       string

	Oracle      oracle.Config
	StablePrice oracle.StablePriceModel

	DepositIndex    num.Decimal
	BorrowIndex     num.Decimal
	IndexedDeposits num.Decimal
	IndexedBorrows  num.Decimal

	MaintAssetWeight num.Decimal
	InitAssetWeight  num.Decimal
	MaintLiabWeight  num.Decimal
	InitLiabWeight   num.Decimal
	LiquidationFee   num.Decimal

	Interest               InterestCurve
	LoanOriginationFeeRate num.Decimal
	CollectedFeesNative    num.Decimal

	// zero disables the limit
	DepositLimit num.Decimal
	BorrowLimit  num.Decimal

	IndexLastUpdated uint64
	// yearly rates seen at the last index update
	BorrowRate  num.Decimal
	DepositRate num.Decimal
}

// NewBank returns a bank with unit indices and neutral weights.
func NewBank(idx uint16, name string) *Bank {
	one := num.DecimalOne()
	zero := num.DecimalZero()
	return &Bank{
		TokenIndex:       idx,
		Name:             name,
		Oracle:           oracle.DefaultConfig(),
		StablePrice:      oracle.NewStablePriceModel(num.MustDecimalFromString("0.0006")),
		DepositIndex:     one,
		BorrowIndex:      one,
		IndexedDeposits:  zero,
		IndexedBorrows:   zero,
		MaintAssetWeight: one,
		InitAssetWeight:  one,
		MaintLiabWeight:  one,
		InitLiabWeight:   one,
		LiquidationFee:   zero,
		Interest: InterestCurve{
			Util0:   num.MustDecimalFromString("0.5"),
			Rate0:   num.MustDecimalFromString("0.05"),
			Util1:   num.MustDecimalFromString("0.8"),
			Rate1:   num.MustDecimalFromString("0.1"),
			MaxRate: num.MustDecimalFromString("1"),
		},
		LoanOriginationFeeRate: zero,
		CollectedFeesNative:    zero,
		DepositLimit:           zero,
		BorrowLimit:            zero,
		BorrowRate:             zero,
		DepositRate:            zero,
	}
}

func (b *Bank) Clone() *Bank {
	c := *b
	return &c
}

func (b *Bank) NativeDeposits() num.Decimal {
	return b.IndexedDeposits.Mul(b.DepositIndex)
}

func (b *Bank) NativeBorrows() num.Decimal {
	return b.IndexedBorrows.Mul(b.BorrowIndex)
}

// Utilization is borrows over deposits, in [0, 1].
func (b *Bank) Utilization() num.Decimal {
	deposits := b.NativeDeposits()
	if !deposits.IsPositive() {
		return num.DecimalZero()
	}
	return num.MinD(num.Quo(b.NativeBorrows(), deposits), num.DecimalOne())
}

// NativeBalance returns the native balance of a position in this bank.
func (b *Bank) NativeBalance(p *positions.TokenPosition) num.Decimal {
	return p.Native(b.DepositIndex, b.BorrowIndex)
}

// CheckOracle applies the bank oracle policy to a reading.
func (b *Bank) CheckOracle(p oracle.Price, now uint64) (oracle.Checked, error) {
	c, err := b.Oracle.Check(p, now)
	if err != nil {
		if e, ok := err.(*types.Error); ok {
			return c, e.WithToken(b.TokenIndex)
		}
		return c, err
	}
	return c, nil
}

func (b *Bank) updateCumulativeInterest(p *positions.TokenPosition) {
	if p.PreviousIndex.IsPositive() {
		if p.IndexedPosition.IsPositive() {
			earned := p.IndexedPosition.Mul(b.DepositIndex.Sub(p.PreviousIndex))
			p.CumulativeDepositInterest = p.CumulativeDepositInterest.Add(earned)
		} else if p.IndexedPosition.IsNegative() {
			paid := p.IndexedPosition.Neg().Mul(b.BorrowIndex.Sub(p.PreviousIndex))
			p.CumulativeBorrowInterest = p.CumulativeBorrowInterest.Add(paid)
		}
	}
}

func (b *Bank) setPrevious(p *positions.TokenPosition) {
	if p.IndexedPosition.IsNegative() {
		p.PreviousIndex = b.BorrowIndex
	} else {
		p.PreviousIndex = b.DepositIndex
	}
}

// Deposit adds a native amount to a position, repaying borrows first.
func (b *Bank) Deposit(p *positions.TokenPosition, amount num.Decimal) error {
	if amount.IsNegative() {
		return types.ErrInvalidAmount.WithToken(b.TokenIndex)
	}
	if amount.IsZero() {
		return nil
	}
	b.updateCumulativeInterest(p)
	if p.IndexedPosition.IsNegative() {
		borrow := p.IndexedPosition.Neg().Mul(b.BorrowIndex)
		if amount.LessThan(borrow) {
			repaid := num.Quo(amount, b.BorrowIndex)
			p.IndexedPosition = p.IndexedPosition.Add(repaid)
			b.IndexedBorrows = b.IndexedBorrows.Sub(repaid)
			b.setPrevious(p)
			return nil
		}
		b.IndexedBorrows = b.IndexedBorrows.Sub(p.IndexedPosition.Neg())
		p.IndexedPosition = num.DecimalZero()
		amount = amount.Sub(borrow)
	}
	indexed := num.Quo(amount, b.DepositIndex)
	p.IndexedPosition = p.IndexedPosition.Add(indexed)
	b.IndexedDeposits = b.IndexedDeposits.Add(indexed)
	b.setPrevious(p)
	return nil
}

// Withdraw removes a native amount from a position. Going below zero
// creates a borrow, charged with the loan origination fee, and is only
// allowed with allowBorrow. It returns the fee charged.
func (b *Bank) Withdraw(p *positions.TokenPosition, amount num.Decimal, allowBorrow bool) (num.Decimal, error) {
	zero := num.DecimalZero()
	if amount.IsNegative() {
		return zero, types.ErrInvalidAmount.WithToken(b.TokenIndex)
	}
	if amount.IsZero() {
		return zero, nil
	}
	b.updateCumulativeInterest(p)
	native := b.NativeBalance(p)
	if native.GreaterThanOrEqual(amount) {
		indexed := num.Quo(amount, b.DepositIndex)
		if native.Equal(amount) {
			indexed = p.IndexedPosition
		}
		p.IndexedPosition = p.IndexedPosition.Sub(indexed)
		b.IndexedDeposits = b.IndexedDeposits.Sub(indexed)
		b.setPrevious(p)
		return zero, nil
	}
	if !allowBorrow {
		return zero, types.ErrInvalidAmount.WithToken(b.TokenIndex).WithInvariant("insufficient balance")
	}
	if native.IsPositive() {
		b.IndexedDeposits = b.IndexedDeposits.Sub(p.IndexedPosition)
		p.IndexedPosition = zero
		amount = amount.Sub(native)
	}
	fee := amount.Mul(b.LoanOriginationFeeRate)
	borrowed := num.Quo(amount.Add(fee), b.BorrowIndex)
	p.IndexedPosition = p.IndexedPosition.Sub(borrowed)
	b.IndexedBorrows = b.IndexedBorrows.Add(borrowed)
	b.CollectedFeesNative = b.CollectedFeesNative.Add(fee)
	b.setPrevious(p)
	return fee, nil
}

// Transfer changes a position by a signed native amount: positive
// deposits, negative withdraws allowing borrows without a loan fee. It
// is used for internal settlements such as pnl, liquidations and swaps.
func (b *Bank) Transfer(p *positions.TokenPosition, amount num.Decimal) error {
	if amount.IsNegative() {
		saved := b.LoanOriginationFeeRate
		b.LoanOriginationFeeRate = num.DecimalZero()
		_, err := b.Withdraw(p, amount.Neg(), true)
		b.LoanOriginationFeeRate = saved
		return err
	}
	return b.Deposit(p, amount)
}

// CheckLimits fails when the pooled deposits or borrows exceed the
// configured limits.
func (b *Bank) CheckLimits() error {
	if b.DepositLimit.IsPositive() && b.NativeDeposits().GreaterThan(b.DepositLimit) {
		return types.ErrLimitExceeded.WithToken(b.TokenIndex).WithInvariant("deposit limit")
	}
	if b.BorrowLimit.IsPositive() && b.NativeBorrows().GreaterThan(b.BorrowLimit) {
		return types.ErrLimitExceeded.WithToken(b.TokenIndex).WithInvariant("borrow limit")
	}
	return nil
}

// UpdateIndexAndRate accrues interest since the last update. Borrowers
// pay the curve rate, the interest is shared between depositors, so the
// deposit rate is the borrow rate times the utilization.
func (b *Bank) UpdateIndexAndRate(now uint64) {
	if b.IndexLastUpdated == 0 || now <= b.IndexLastUpdated {
		if b.IndexLastUpdated == 0 {
			b.IndexLastUpdated = now
		}
		return
	}
	util := b.Utilization()
	rate := b.Interest.Rate(util)
	dt := num.DecimalFromUint64(now - b.IndexLastUpdated)
	growth := num.Quo(rate.Mul(dt), num.DecimalFromInt64(SecondsPerYear))

	interest := b.NativeBorrows().Mul(growth)
	b.BorrowIndex = b.BorrowIndex.Mul(num.DecimalOne().Add(growth))
	if b.IndexedDeposits.IsPositive() {
		b.DepositIndex = b.DepositIndex.Add(num.Quo(interest, b.IndexedDeposits))
	}
	b.BorrowRate = rate
	b.DepositRate = rate.Mul(util)
	b.IndexLastUpdated = now
}

// SocializeLoss spreads a native loss over every depositor by lowering
// the deposit index. It returns the part that could not be absorbed
// because deposits ran out.
func (b *Bank) SocializeLoss(loss num.Decimal) num.Decimal {
	if !loss.IsPositive() {
		return num.DecimalZero()
	}
	deposits := b.NativeDeposits()
	if !deposits.IsPositive() {
		return loss
	}
	absorbed := num.MinD(loss, deposits)
	b.DepositIndex = b.DepositIndex.Sub(num.Quo(absorbed, b.IndexedDeposits))
	return loss.Sub(absorbed)
}

// Validate checks the bank parameters.
func (b *Bank) Validate() error {
	bad := func(what string) error {
		return types.ErrInvalidConfig.WithToken(b.TokenIndex).WithInvariant(what)
	}
	one := num.DecimalOne()
	if b.InitAssetWeight.GreaterThan(b.MaintAssetWeight) || b.MaintAssetWeight.GreaterThan(one) || b.InitAssetWeight.IsNegative() {
		return bad("asset weights")
	}
	if b.InitLiabWeight.LessThan(b.MaintLiabWeight) || b.MaintLiabWeight.LessThan(one) {
		return bad("liab weights")
	}
	if b.LiquidationFee.IsNegative() || b.LoanOriginationFeeRate.IsNegative() {
		return bad("fees")
	}
	if !b.DepositIndex.IsPositive() || !b.BorrowIndex.IsPositive() {
		return bad("indices")
	}
	c := b.Interest
	if c.Util0.IsNegative() || c.Util0.GreaterThan(c.Util1) || c.Util1.GreaterThan(one) {
		return bad("interest curve utilization points")
	}
	if c.Rate0.IsNegative() || c.Rate0.GreaterThan(c.Rate1) || c.Rate1.GreaterThan(c.MaxRate) {
		return bad("interest curve rates")
	}
	return b.Oracle.Validate()
}
