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

package num

import (
	"math/big"

	"github.com/shopspring/decimal"
)

type Decimal = decimal.Decimal

// DivisionScale is the number of fractional digits kept by Quo. Every
// division in the core goes through it so results never depend on the
// package level decimal.DivisionPrecision setting.
const DivisionScale int32 = 18

var (
	dzero = decimal.Zero
	d1    = decimal.NewFromInt(1)
)

func MustDecimalFromString(f string) Decimal {
	d, err := DecimalFromString(f)
	if err != nil {
		panic(err)
	}
	return d
}

func DecimalOne() Decimal {
	return d1
}

func DecimalZero() Decimal {
	return dzero
}

func NewDecimalFromBigInt(value *big.Int, exp int32) Decimal {
	return decimal.NewFromBigInt(value, exp)
}

func DecimalFromUint(u *Uint) Decimal {
	return decimal.NewFromBigInt(u.BigInt(), 0)
}

func DecimalFromInt64(i int64) Decimal {
	return decimal.NewFromInt(i)
}

func DecimalFromUint64(i uint64) Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(i), 0)
}

func DecimalFromString(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

func DecimalPart(a Decimal) Decimal {
	return a.Sub(a.Floor())
}

// Quo divides a by b rounding half away from zero at DivisionScale
// digits. Callers must make sure b is not zero.
func Quo(a, b Decimal) Decimal {
	return a.DivRound(b, DivisionScale)
}

func MaxD(a, b Decimal) Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func MinD(a, b Decimal) Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ClampD bounds v to [lo, hi].
func ClampD(v, lo, hi Decimal) Decimal {
	return MaxD(lo, MinD(v, hi))
}

// PositivePart returns max(a, 0).
func PositivePart(a Decimal) Decimal {
	if a.IsPositive() {
		return a
	}
	return dzero
}

// NegativePart returns min(a, 0).
func NegativePart(a Decimal) Decimal {
	if a.IsNegative() {
		return a
	}
	return dzero
}

// QuoCeil is Quo rounded up (toward positive infinity) at DivisionScale
// digits.
func QuoCeil(a, b Decimal) Decimal {
	x := a.DivRound(b, DivisionScale+6)
	q := x.Truncate(DivisionScale)
	if q.LessThan(x) {
		q = q.Add(decimal.New(1, -DivisionScale))
	}
	return q
}

// QuoFloor is Quo rounded down (toward negative infinity) at
// DivisionScale digits.
func QuoFloor(a, b Decimal) Decimal {
	x := a.DivRound(b, DivisionScale+6)
	q := x.Truncate(DivisionScale)
	if q.GreaterThan(x) {
		q = q.Sub(decimal.New(1, -DivisionScale))
	}
	return q
}
