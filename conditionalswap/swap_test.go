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

package conditionalswap_test

import (
	"testing"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/conditionalswap"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdc = uint16(0)
	sol  = uint16(1)
	now  = uint64(1000)
)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

type testSwaps struct {
	r                *risk.FixedRetriever
	owner, triggerer *positions.Account
}

func getTestSwaps(t *testing.T) *testSwaps {
	t.Helper()
	r := risk.NewFixedRetriever()
	r.Banks[usdc] = collateral.NewBank(usdc, "USDC")
	r.Banks[sol] = collateral.NewBank(sol, "SOL")
	r.TokenPrices[usdc] = oracle.NewPrice(d("1"), d("0"), now)
	r.TokenPrices[sol] = oracle.NewPrice(d("20"), d("0"), now)
	ts := &testSwaps{
		r:         r,
		owner:     positions.NewAccount(types.NewAccountID(), "owner", positions.DefaultSlots()),
		triggerer: positions.NewAccount(types.NewAccountID(), "triggerer", positions.DefaultSlots()),
	}
	ts.deposit(t, ts.owner, usdc, "1000")
	ts.deposit(t, ts.triggerer, sol, "100")
	return ts
}

func (ts *testSwaps) deposit(t *testing.T, acc *positions.Account, token uint16, amount string) {
	t.Helper()
	pos, err := acc.EnsureTokenPosition(token)
	require.NoError(t, err)
	require.NoError(t, ts.r.Banks[token].Deposit(pos, d(amount)))
}

func (ts *testSwaps) balance(t *testing.T, acc *positions.Account, token uint16) num.Decimal {
	t.Helper()
	pos, err := acc.TokenPosition(token)
	require.NoError(t, err)
	return ts.r.Banks[token].NativeBalance(pos)
}

// buy up to 10 SOL with up to 1000 USDC while SOL trades in [15, 25]
func buySolParams() conditionalswap.Params {
	return conditionalswap.Params{
		BuyTokenIndex:         sol,
		SellTokenIndex:        usdc,
		MaxBuy:                d("10"),
		MaxSell:               d("1000"),
		PriceLowerLimit:       d("15"),
		PriceUpperLimit:       d("25"),
		PricePremiumRate:      d("0.01"),
		MakerFeeRate:          d("0.001"),
		TakerFeeRate:          d("0.002"),
		AllowCreatingDeposits: true,
	}
}

func TestTriggerPartialThenExhausted(t *testing.T) {
	ts := getTestSwaps(t)
	s, err := conditionalswap.Create(ts.owner, ts.r, buySolParams(), now)
	require.NoError(t, err)
	id := s.ID

	res, err := conditionalswap.Trigger(ts.triggerer, ts.owner, ts.r, id, d("5"), d("1000"), now)
	require.NoError(t, err)
	assert.True(t, res.Price.Equal(d("20.2")))
	assert.True(t, res.Bought.Equal(d("5")))
	assert.True(t, res.Sold.Equal(d("101")))
	assert.True(t, res.MakerFee.Equal(d("0.005")))
	assert.True(t, res.TakerFee.Equal(d("0.202")))
	assert.False(t, res.Closed)

	assert.True(t, ts.balance(t, ts.owner, sol).Equal(d("4.995")))
	assert.True(t, ts.balance(t, ts.owner, usdc).Equal(d("899")))
	assert.True(t, ts.balance(t, ts.triggerer, sol).Equal(d("95")))
	assert.True(t, ts.balance(t, ts.triggerer, usdc).Equal(d("100.798")))
	assert.True(t, ts.r.Banks[sol].CollectedFeesNative.Equal(d("0.005")))
	assert.True(t, ts.r.Banks[usdc].CollectedFeesNative.Equal(d("0.202")))

	res, err = conditionalswap.Trigger(ts.triggerer, ts.owner, ts.r, id, d("100"), d("10000"), now)
	require.NoError(t, err)
	assert.True(t, res.Bought.Equal(d("5")))
	assert.True(t, res.Closed)
	assert.False(t, res.Expired)

	_, err = ts.owner.SwapByID(id)
	assert.ErrorIs(t, err, types.ErrSwapNotFound)
}

func TestTriggerOutsidePriceRange(t *testing.T) {
	ts := getTestSwaps(t)
	s, err := conditionalswap.Create(ts.owner, ts.r, buySolParams(), now)
	require.NoError(t, err)

	ts.r.TokenPrices[sol] = oracle.NewPrice(d("30"), d("0"), now)
	_, err = conditionalswap.Trigger(ts.triggerer, ts.owner, ts.r, s.ID, d("1"), d("100"), now)
	assert.ErrorIs(t, err, types.ErrSwapPriceLimit)
	assert.Empty(t, conditionalswap.Triggerable(ts.owner, ts.r, now))

	ts.r.TokenPrices[sol] = oracle.NewPrice(d("25"), d("0"), now)
	assert.Equal(t, []uint64{s.ID}, conditionalswap.Triggerable(ts.owner, ts.r, now))
}

func TestExpiredSwapIsRemovedOnTrigger(t *testing.T) {
	ts := getTestSwaps(t)
	p := buySolParams()
	p.ExpiryTimestamp = now + 10
	s, err := conditionalswap.Create(ts.owner, ts.r, p, now)
	require.NoError(t, err)
	id := s.ID

	res, err := conditionalswap.Trigger(ts.triggerer, ts.owner, ts.r, id, d("1"), d("100"), now+10)
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.True(t, res.Expired)
	assert.True(t, res.Bought.IsZero())
	_, err = ts.owner.SwapByID(id)
	assert.ErrorIs(t, err, types.ErrSwapNotFound)
	assert.True(t, ts.balance(t, ts.owner, usdc).Equal(d("1000")))
}

func TestAllowFlags(t *testing.T) {
	t.Run("no new deposits", func(t *testing.T) {
		ts := getTestSwaps(t)
		p := buySolParams()
		p.AllowCreatingDeposits = false
		s, err := conditionalswap.Create(ts.owner, ts.r, p, now)
		require.NoError(t, err)
		_, err = conditionalswap.Trigger(ts.triggerer, ts.owner, ts.r, s.ID, d("1"), d("100"), now)
		assert.ErrorIs(t, err, types.ErrInvalidSwap)
	})

	t.Run("no new borrows", func(t *testing.T) {
		ts := getTestSwaps(t)
		poor := positions.NewAccount(types.NewAccountID(), "poor", positions.DefaultSlots())
		ts.deposit(t, poor, usdc, "50")
		s, err := conditionalswap.Create(poor, ts.r, buySolParams(), now)
		require.NoError(t, err)

		res, err := conditionalswap.Trigger(ts.triggerer, poor, ts.r, s.ID, d("10"), d("1000"), now)
		require.NoError(t, err)
		assert.True(t, res.Sold.LessThanOrEqual(d("50")))
		assert.True(t, res.Sold.GreaterThan(d("49.99")))
		assert.False(t, ts.balance(t, poor, usdc).IsNegative())
	})
}

func TestCreateValidation(t *testing.T) {
	ts := getTestSwaps(t)

	p := buySolParams()
	p.SellTokenIndex = sol
	_, err := conditionalswap.Create(ts.owner, ts.r, p, now)
	assert.ErrorIs(t, err, types.ErrInvalidSwap)

	p = buySolParams()
	p.PriceUpperLimit = d("10")
	_, err = conditionalswap.Create(ts.owner, ts.r, p, now)
	assert.ErrorIs(t, err, types.ErrInvalidSwap)

	p = buySolParams()
	p.ExpiryTimestamp = now
	_, err = conditionalswap.Create(ts.owner, ts.r, p, now)
	assert.ErrorIs(t, err, types.ErrSwapExpired)

	p = buySolParams()
	p.BuyTokenIndex = 7
	_, err = conditionalswap.Create(ts.owner, ts.r, p, now)
	assert.ErrorIs(t, err, types.ErrBankNotFound)

	for i := 0; i < len(ts.owner.Swaps); i++ {
		_, err := conditionalswap.Create(ts.owner, ts.r, buySolParams(), now)
		require.NoError(t, err)
	}
	_, err = conditionalswap.Create(ts.owner, ts.r, buySolParams(), now)
	assert.ErrorIs(t, err, types.ErrNoFreeSwapSlot)
	assert.True(t, types.IsKind(err, types.KindCapacity))
}

func TestCancelAndSelfTrigger(t *testing.T) {
	ts := getTestSwaps(t)
	s, err := conditionalswap.Create(ts.owner, ts.r, buySolParams(), now)
	require.NoError(t, err)
	id := s.ID

	_, err = conditionalswap.Trigger(ts.owner, ts.owner, ts.r, id, d("1"), d("100"), now)
	assert.ErrorIs(t, err, types.ErrInvalidSwap)

	require.NoError(t, conditionalswap.Cancel(ts.owner, id))
	assert.ErrorIs(t, conditionalswap.Cancel(ts.owner, id), types.ErrSwapNotFound)

	next, err := conditionalswap.Create(ts.owner, ts.r, buySolParams(), now)
	require.NoError(t, err)
	assert.Equal(t, id+1, next.ID)
}
