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

	"github.com/pkg/errors"
)

// FixedScale is the number of fractional digits preserved when a decimal
// is stored as a 256 bit fixed point word.
const FixedScale int32 = 18

// FixedSize is the encoded size in bytes of a fixed point word.
const FixedSize = 32

var (
	ErrFixedOverflow = errors.New("decimal does not fit a 256 bit fixed point word")

	// 2^255, the first magnitude a signed 256 bit word cannot hold.
	fixedLimit = new(big.Int).Lsh(big.NewInt(1), 255)
)

// DecimalToFixed encodes d as a signed (two's complement) 256 bit word
// scaled by 10^FixedScale, big endian. Digits past FixedScale are rounded
// half away from zero.
func DecimalToFixed(d Decimal) ([FixedSize]byte, error) {
	scaled := d.Round(FixedScale).Shift(FixedScale).BigInt()
	if scaled.CmpAbs(fixedLimit) >= 0 {
		return [FixedSize]byte{}, ErrFixedOverflow
	}
	neg := scaled.Sign() < 0
	u, overflow := UintFromBig(new(big.Int).Abs(scaled))
	if overflow {
		return [FixedSize]byte{}, ErrFixedOverflow
	}
	if neg {
		u.Neg(u)
	}
	return u.Bytes(), nil
}

// DecimalFromFixed decodes a word produced by DecimalToFixed.
func DecimalFromFixed(b []byte) Decimal {
	u := UintFromBytes(b)
	if !u.IsNegative256() {
		return NewDecimalFromBigInt(u.BigInt(), -FixedScale)
	}
	u.Neg(u)
	return NewDecimalFromBigInt(new(big.Int).Neg(u.BigInt()), -FixedScale)
}
