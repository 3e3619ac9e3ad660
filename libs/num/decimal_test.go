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
	"testing"

	"github.com/xmargin/xmargin/libs/num"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"-1",
		"1000.5",
		"-500.000000000000000001",
		"123456789012345678901234567890.123456789012345678",
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			d := num.MustDecimalFromString(c)
			b, err := num.DecimalToFixed(d)
			require.NoError(t, err)
			assert.True(t, d.Equal(num.DecimalFromFixed(b[:])), "got %s", num.DecimalFromFixed(b[:]))
		})
	}
}

func TestFixedRoundsExtraDigits(t *testing.T) {
	d := num.MustDecimalFromString("0.0000000000000000015")
	b, err := num.DecimalToFixed(d)
	require.NoError(t, err)
	assert.Equal(t, "0.000000000000000002", num.DecimalFromFixed(b[:]).String())
}

func TestFixedOverflow(t *testing.T) {
	huge := num.MustDecimalFromString("1e80")
	_, err := num.DecimalToFixed(huge)
	assert.ErrorIs(t, err, num.ErrFixedOverflow)
}

func TestDecimalHelpers(t *testing.T) {
	a := num.DecimalFromInt64(3)
	b := num.DecimalFromInt64(-2)

	assert.True(t, num.MaxD(a, b).Equal(a))
	assert.True(t, num.MinD(a, b).Equal(b))
	assert.True(t, num.PositivePart(b).IsZero())
	assert.True(t, num.NegativePart(b).Equal(b))
	assert.True(t, num.ClampD(num.DecimalFromInt64(10), b, a).Equal(a))
	assert.Equal(t, "0.333333333333333333", num.Quo(num.DecimalOne(), a).String())
	assert.True(t, num.DecimalFromUint(num.NewUint(42)).Equal(num.DecimalFromInt64(42)))
	assert.True(t, num.DecimalFromUint64(1<<63).Equal(num.MustDecimalFromString("9223372036854775808")))
}

func TestQuoCeil(t *testing.T) {
	third := num.QuoCeil(num.DecimalFromInt64(1), num.DecimalFromInt64(3))
	assert.True(t, third.Mul(num.DecimalFromInt64(3)).GreaterThanOrEqual(num.DecimalOne()))
	assert.True(t, third.Sub(num.Quo(num.DecimalFromInt64(1), num.DecimalFromInt64(3))).IsPositive())
	assert.True(t, num.QuoCeil(num.DecimalFromInt64(6), num.DecimalFromInt64(3)).Equal(num.DecimalFromInt64(2)))
}

func TestQuoFloor(t *testing.T) {
	two := num.QuoFloor(num.DecimalFromInt64(2), num.DecimalFromInt64(3))
	assert.True(t, two.Mul(num.DecimalFromInt64(3)).LessThanOrEqual(num.DecimalFromInt64(2)))
	assert.True(t, num.Quo(num.DecimalFromInt64(2), num.DecimalFromInt64(3)).Sub(two).IsPositive())
	neg := num.QuoFloor(num.DecimalFromInt64(-1), num.DecimalFromInt64(3))
	assert.True(t, neg.Mul(num.DecimalFromInt64(3)).LessThanOrEqual(num.DecimalFromInt64(-1)))
}
