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

package positions_test

import (
	"testing"

	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

func getTestAccount(slots positions.Slots) *positions.Account {
	return positions.NewAccount(types.MustParseAccountID("00000000-0000-0000-0000-000000000001"), "test", slots)
}

func getTestMarket() *markets.PerpMarket {
	return markets.NewPerpMarket(1, "PERP", 0, 10, 1)
}

func TestTokenSlots(t *testing.T) {
	acc := getTestAccount(positions.Slots{Tokens: 2, Perps: 1, Orders: 1})

	_, err := acc.TokenPosition(5)
	assert.ErrorIs(t, err, types.ErrTokenPosNotFound)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	p0, err := acc.EnsureTokenPosition(0)
	require.NoError(t, err)
	again, err := acc.EnsureTokenPosition(0)
	require.NoError(t, err)
	assert.Same(t, p0, again)

	_, err = acc.EnsureTokenPosition(1)
	require.NoError(t, err)
	_, err = acc.EnsureTokenPosition(2)
	assert.ErrorIs(t, err, types.ErrNoFreeTokenSlot)
	assert.True(t, types.IsKind(err, types.KindCapacity))

	assert.True(t, acc.TryDeactivateTokenPosition(1))
	_, err = acc.EnsureTokenPosition(2)
	require.NoError(t, err)
	assert.Len(t, acc.ActiveTokenPositions(), 2)
}

func TestPerpPositionKeepsSettleTokenActive(t *testing.T) {
	acc := getTestAccount(positions.DefaultSlots())
	m := getTestMarket()

	pp, err := acc.EnsurePerpPosition(m)
	require.NoError(t, err)
	settle, err := acc.TokenPosition(m.SettleTokenIndex)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), settle.InUseCount)
	assert.False(t, acc.TryDeactivateTokenPosition(m.SettleTokenIndex))

	pp.BasePositionLots = 1
	assert.False(t, acc.TryDeactivatePerpPosition(m.MarketIndex))
	pp.BasePositionLots = 0
	assert.True(t, acc.TryDeactivatePerpPosition(m.MarketIndex))
	assert.Equal(t, uint16(0), settle.InUseCount)
	assert.True(t, acc.TryDeactivateTokenPosition(m.SettleTokenIndex))
}

func TestOrderSlots(t *testing.T) {
	acc := getTestAccount(positions.Slots{Tokens: 2, Perps: 1, Orders: 1})
	m := getTestMarket()
	pp, err := acc.EnsurePerpPosition(m)
	require.NoError(t, err)

	key := types.NewOrderKey(types.SideBid, 100, 1)
	slot, err := acc.AddPerpOrder(pp, types.BidFixed, key, 42, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pp.BidsBaseLots)
	assert.False(t, acc.HasFreeOrderSlot())

	_, err = acc.AddPerpOrder(pp, types.AskFixed, types.NewOrderKey(types.SideAsk, 101, 2), 43, 1)
	assert.ErrorIs(t, err, types.ErrNoFreeOrderSlot)

	found, ok := acc.OrderSlotByClientID(m.MarketIndex, 42)
	require.True(t, ok)
	assert.Equal(t, slot, found)
	found, ok = acc.OrderSlotByID(m.MarketIndex, key)
	require.True(t, ok)
	assert.Equal(t, slot, found)

	require.NoError(t, acc.RemovePerpOrder(slot, 10))
	assert.Equal(t, int64(0), pp.BidsBaseLots)
	assert.ErrorIs(t, acc.RemovePerpOrder(slot, 10), types.ErrOrderNotFound)
}

func TestExecuteTakerAndMaker(t *testing.T) {
	m := getTestMarket()
	m.TakerFee = d("0.01")
	m.MakerFee = d("-0.005")

	taker := getTestAccount(positions.DefaultSlots())
	maker := positions.NewAccount(types.MustParseAccountID("00000000-0000-0000-0000-000000000002"), "maker", positions.DefaultSlots())

	tpp, err := taker.EnsurePerpPosition(m)
	require.NoError(t, err)
	mpp, err := maker.EnsurePerpPosition(m)
	require.NoError(t, err)

	key := types.NewOrderKey(types.SideAsk, 100, 1)
	slot, err := maker.AddPerpOrder(mpp, types.AskFixed, key, 0, 4)
	require.NoError(t, err)

	// taker buys 4 lots at 100: 400 quote lots = 400 native quote
	fee := taker.ExecuteTaker(m, tpp, types.SideBid, 4, 400)
	assert.True(t, fee.Equal(d("4")))
	assert.Equal(t, int64(4), tpp.BasePositionLots)
	assert.True(t, tpp.QuotePositionNative.Equal(d("-404")), tpp.QuotePositionNative.String())

	fill := &types.FillEvent{
		TakerSide:    types.SideBid,
		MakerOut:     true,
		MakerSlot:    slot,
		Maker:        maker.ID,
		MakerOrderID: key,
		Taker:        taker.ID,
		MakerFeeRate: m.MakerFee,
		TakerFeeRate: m.TakerFee,
		PriceLots:    100,
		Quantity:     4,
	}
	require.NoError(t, maker.ExecuteMaker(m, fill))
	assert.Equal(t, int64(-4), mpp.BasePositionLots)
	// 400 received plus a 2 rebate
	assert.True(t, mpp.QuotePositionNative.Equal(d("402")), mpp.QuotePositionNative.String())
	assert.Equal(t, int64(0), mpp.AsksBaseLots)
	assert.False(t, maker.HasOpenPerpOrders())

	// taker paid 4, maker got 2 back
	assert.True(t, m.FeesAccrued.Equal(d("2")))
	// both sides count toward open interest
	assert.Equal(t, int64(8), m.OpenInterest)
}

func TestCanClose(t *testing.T) {
	acc := getTestAccount(positions.DefaultSlots())
	require.NoError(t, acc.CanClose())

	p, err := acc.EnsureTokenPosition(0)
	require.NoError(t, err)
	p.IndexedPosition = d("1")
	assert.ErrorIs(t, acc.CanClose(), types.ErrAccountNotEmpty)

	p.IndexedPosition = d("0")
	acc.BeingLiquidated = true
	assert.ErrorIs(t, acc.CanClose(), types.ErrBeingLiquidated)
}

func TestCloneIsDeep(t *testing.T) {
	acc := getTestAccount(positions.DefaultSlots())
	p, err := acc.EnsureTokenPosition(0)
	require.NoError(t, err)
	p.IndexedPosition = d("5")

	c := acc.Clone()
	cp, err := c.TokenPosition(0)
	require.NoError(t, err)
	cp.IndexedPosition = d("7")

	assert.True(t, p.IndexedPosition.Equal(d("5")))
}
