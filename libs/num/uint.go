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
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Uint A wrapper for a big unsigned int.
type Uint struct {
	u uint256.Int
}

// NewUint creates a new Uint with the value of the
// uint64 passed as a parameter.
func NewUint(val uint64) *Uint {
	return &Uint{*uint256.NewInt(val)}
}

// UintZero returns a new zero value Uint.
func UintZero() *Uint {
	return NewUint(0)
}

// NewUint128 packs two 64 bit words into a single value, hi being the
// most significant one. Order ids are built this way.
func NewUint128(hi, lo uint64) *Uint {
	u := &Uint{}
	u.u[1] = hi
	u.u[0] = lo
	return u
}

// Split128 returns the two low 64 bit words of the value, hi first.
func (u Uint) Split128() (hi, lo uint64) {
	return u.u[1], u.u[0]
}

// Fits128 is true when the value has no bits set above bit 127.
func (u Uint) Fits128() bool {
	return u.u[2] == 0 && u.u[3] == 0
}

// Min returns the smallest of the 2 numbers.
func Min(a, b *Uint) *Uint {
	if a.u.Lt(&b.u) {
		return a.Clone()
	}
	return b.Clone()
}

// Max returns the largest of the 2 numbers.
func Max(a, b *Uint) *Uint {
	if a.u.Gt(&b.u) {
		return a.Clone()
	}
	return b.Clone()
}

// UintFromBig construct a new Uint with a big.Int
// returns true if overflow happened.
func UintFromBig(b *big.Int) (*Uint, bool) {
	u, ok := uint256.FromBig(b)
	// ok means an overflow happened
	if ok {
		return NewUint(0), true
	}
	return &Uint{*u}, false
}

// UintFromBytes decodes a 32 bytes big endian value.
func UintFromBytes(b []byte) *Uint {
	u := &Uint{}
	u.u.SetBytes(b)
	return u
}

// UintFromString created a new Uint from a string
// interpreted using the give base.
// A big.Int is used to read the string, so
// all error related to big.Int parsing applied here.
// will return true if an error/overflow happened.
func UintFromString(str string, base int) (*Uint, bool) {
	b, ok := big.NewInt(0).SetString(str, base)
	if !ok {
		return NewUint(0), true
	}
	return UintFromBig(b)
}

func (z *Uint) Set(oth *Uint) *Uint {
	z.u.Set(&oth.u)
	return z
}

func (z *Uint) SetUint64(val uint64) *Uint {
	z.u.SetUint64(val)
	return z
}

func (z Uint) Uint64() uint64 {
	return z.u.Uint64()
}

func (z Uint) BigInt() *big.Int {
	return z.u.ToBig()
}

// Add will add x and y then store the result
// into z.
func (z *Uint) Add(x, y *Uint) *Uint {
	z.u.Add(&x.u, &y.u)
	return z
}

// AddOverflow will subtract y to x then store the result
// into z.
func (z *Uint) AddOverflow(x, y *Uint) (*Uint, bool) {
	_, ok := z.u.AddOverflow(&x.u, &y.u)
	return z, ok
}

// Sub will subtract y from x then store the result
// into z. The result is 0 when x < y.
func (z *Uint) Sub(x, y *Uint) *Uint {
	if x.u.Lt(&y.u) {
		z.u.Clear()
		return z
	}
	z.u.Sub(&x.u, &y.u)
	return z
}

// Neg stores the two's complement of x into z.
func (z *Uint) Neg(x *Uint) *Uint {
	z.u.Neg(&x.u)
	return z
}

// Mul will multiply x and y then store the result
// into z.
func (z *Uint) Mul(x, y *Uint) *Uint {
	z.u.Mul(&x.u, &y.u)
	return z
}

// Div will divide x by y then store the result
// into z.
func (z *Uint) Div(x, y *Uint) *Uint {
	z.u.Div(&x.u, &y.u)
	return z
}

// Lsh shifts x left by n bits and stores the result in z.
func (z *Uint) Lsh(x *Uint, n uint) *Uint {
	z.u.Lsh(&x.u, n)
	return z
}

// Or stores x | y into z.
func (z *Uint) Or(x, y *Uint) *Uint {
	z.u.Or(&x.u, &y.u)
	return z
}

// IsNegative256 reports whether the value, read as a 256 bit two's
// complement number, is negative.
func (z Uint) IsNegative256() bool {
	return z.u.Sign() < 0
}

// LT with check if the value stored in u is
// lesser than oth
// this is equivalent to:
// u < oth.
func (u Uint) LT(oth *Uint) bool {
	return u.u.Lt(&oth.u)
}

// EQ with check if the value stored in u is
// equal to oth
// this is equivalent to:
// u == oth.
func (u Uint) EQ(oth *Uint) bool {
	return u.u.Eq(&oth.u)
}

// GT with check if the value stored in u is
// greater than oth
// this is equivalent to:
// u > oth.
func (u Uint) GT(oth *Uint) bool {
	return u.u.Gt(&oth.u)
}

// IsZero return whether u == 0 or not.
func (u Uint) IsZero() bool {
	return u.u.IsZero()
}

// Clone create copy of this value
// this is syntax sugar for:
// x := NewUint(0).Set(y).
func (z Uint) Clone() *Uint {
	return &Uint{z.u}
}

// Hex returns the hexadecimal representation
// of the stored value.
func (u Uint) Hex() string {
	return u.u.Hex()
}

// String returns the stored value as a string
// this is internally using big.Float.String method.
func (u Uint) String() string {
	return u.u.ToBig().String()
}

// Format implement fmt.Formatter.
func (u Uint) Format(s fmt.State, ch rune) {
	u.u.Format(s, ch)
}

// Bytes return the internal representation
// of the Uint as [32]bytes, BigEndian encoded
// array.
func (u Uint) Bytes() [32]byte {
	return u.u.Bytes32()
}
