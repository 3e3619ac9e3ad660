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

package num_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/xmargin/xmargin/libs/num"

	"github.com/stretchr/testify/assert"
)

func TestUint256Constructors(t *testing.T) {
	var expected uint64 = 42

	t.Run("test from uint64", func(t *testing.T) {
		n := num.NewUint(expected)
		assert.Equal(t, expected, n.Uint64())
	})

	t.Run("test from string", func(t *testing.T) {
		n, ok := num.UintFromString("42", 10)
		assert.False(t, ok)
		assert.Equal(t, expected, n.Uint64())
	})

	t.Run("test from big", func(t *testing.T) {
		n, ok := num.UintFromBig(big.NewInt(int64(expected)))
		assert.False(t, ok)
		assert.Equal(t, expected, n.Uint64())
	})
}

func TestUint128Packing(t *testing.T) {
	u := num.NewUint128(7, math.MaxUint64)
	hi, lo := u.Split128()
	assert.Equal(t, uint64(7), hi)
	assert.Equal(t, uint64(math.MaxUint64), lo)
	assert.True(t, u.Fits128())

	// ordering follows the high word first
	assert.True(t, num.NewUint128(1, math.MaxUint64).LT(num.NewUint128(2, 0)))
	assert.True(t, num.NewUint128(2, 1).GT(num.NewUint128(2, 0)))

	// round trip through the decimal string form
	back, overflow := num.UintFromString(u.String(), 10)
	assert.False(t, overflow)
	assert.True(t, back.EQ(u))

	wide := num.NewUint(1)
	wide.Lsh(wide, 200)
	assert.False(t, wide.Fits128())
}

func TestUint256Clone(t *testing.T) {
	first := num.NewUint(42)
	second := first.Clone()
	second.Add(second, num.NewUint(42))

	assert.Equal(t, uint64(42), first.Uint64())
	assert.Equal(t, uint64(84), second.Uint64())
}

func TestUintSubFloorsAtZero(t *testing.T) {
	r := num.UintZero().Sub(num.NewUint(3), num.NewUint(5))
	assert.True(t, r.IsZero())
}
