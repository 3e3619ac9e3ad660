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

package markets_test

import (
	"testing"

	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

func getTestMarket() *markets.PerpMarket {
	// 1 base lot = 100 native base, 1 quote lot = 10 native quote
	return markets.NewPerpMarket(0, "BTC-PERP", 0, 100, 10)
}

func TestLotConversions(t *testing.T) {
	m := getTestMarket()
	// native price 2.5 quote per base: 250 quote per base lot = 25 quote lots
	assert.Equal(t, int64(25), m.NativePriceToLots(d("2.5")))
	assert.True(t, m.LotsToNativePrice(25).Equal(d("2.5")))
	// conversions round toward zero
	assert.Equal(t, int64(25), m.NativePriceToLots(d("2.59")))
	assert.True(t, m.BaseLotsToNative(-3).Equal(d("-300")))
	assert.True(t, m.QuoteLotsToNative(7).Equal(d("70")))
}

func TestValidatePrice(t *testing.T) {
	m := getTestMarket()
	assert.ErrorIs(t, m.ValidatePrice(0), types.ErrInvalidPrice)
	assert.ErrorIs(t, m.ValidatePrice(-1), types.ErrInvalidPrice)
	require.NoError(t, m.ValidatePrice(7))

	m.TickSizeLots = 5
	assert.ErrorIs(t, m.ValidatePrice(7), types.ErrInvalidPrice)
	require.NoError(t, m.ValidatePrice(10))
}

func TestFundingRate(t *testing.T) {
	m := getTestMarket()
	index := d("2.5") // 25 lots

	t.Run("book above index", func(t *testing.T) {
		rate := m.FundingRate(25, 27, true, true, index)
		// mid 26 lots = 2.6, 2.6/2.5-1 = 0.04
		assert.True(t, rate.Equal(d("0.04")), rate.String())
	})

	t.Run("clamped", func(t *testing.T) {
		rate := m.FundingRate(40, 42, true, true, index)
		assert.True(t, rate.Equal(m.MaxFunding))
	})

	t.Run("one sided books pin to a bound", func(t *testing.T) {
		assert.True(t, m.FundingRate(25, 0, true, false, index).Equal(m.MaxFunding))
		assert.True(t, m.FundingRate(0, 25, false, true, index).Equal(m.MinFunding))
		assert.True(t, m.FundingRate(0, 0, false, false, index).IsZero())
	})
}

func TestUpdateFunding(t *testing.T) {
	m := getTestMarket()
	m.UpdateFunding(d("0.04"), d("2.5"), 1000)
	assert.True(t, m.LongFunding.IsZero(), "first update only starts the clock")

	// half a day at 4% a day on a 250 quote lot value: 250 * 0.04 * 0.5 = 5
	m.UpdateFunding(d("0.04"), d("2.5"), 1000+markets.SecondsPerDay/2)
	assert.True(t, m.LongFunding.Equal(d("5")), m.LongFunding.String())
	assert.True(t, m.ShortFunding.Equal(d("5")))

	// stale timestamps are ignored
	m.UpdateFunding(d("0.04"), d("2.5"), 10)
	assert.True(t, m.LongFunding.Equal(d("5")))
}

func TestValidate(t *testing.T) {
	m := getTestMarket()
	require.NoError(t, m.Validate())

	bad := m.Clone()
	bad.InitBaseAssetWeight = d("1.1")
	assert.ErrorIs(t, bad.Validate(), types.ErrInvalidConfig)

	bad = m.Clone()
	bad.MaintBaseLiabWeight = d("0.9")
	assert.ErrorIs(t, bad.Validate(), types.ErrInvalidConfig)

	bad = m.Clone()
	bad.MakerFee = d("-0.001")
	assert.ErrorIs(t, bad.Validate(), types.ErrInvalidConfig)

	bad = m.Clone()
	bad.BaseLotSize = 0
	assert.ErrorIs(t, bad.Validate(), types.ErrInvalidConfig)
}
