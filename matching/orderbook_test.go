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

package matching_test

import (
	"testing"

	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBook struct {
	*matching.OrderBook
	eq *matching.EventQueue
}

func getTestOrderBook(t *testing.T, capacity, queue int) *testBook {
	t.Helper()
	return &testBook{
		OrderBook: matching.NewOrderBook(0, capacity),
		eq:        matching.NewEventQueue(queue),
	}
}

func params(owner types.AccountID, now uint64) matching.MatchParams {
	return matching.MatchParams{
		Owner:           owner,
		OwnerSlot:       0,
		Now:             now,
		OraclePriceLots: 100,
		MakerFee:        num.DecimalZero(),
		TakerFee:        num.DecimalZero(),
		TickLots:        1,
	}
}

func limitOrder(side types.Side, price, qty int64) *types.Order {
	return &types.Order{
		Side:         side,
		MaxBaseLots:  qty,
		MaxQuoteLots: types.NoQuoteLimit,
		Params:       types.FixedParams(price, types.PostOrderLimit),
	}
}

func (b *testBook) place(t *testing.T, o *types.Order, p matching.MatchParams) *matching.PlaceResult {
	t.Helper()
	res, err := b.PlaceOrder(o, p, b.eq)
	require.NoError(t, err)
	return res
}

func TestCrossingAskFillsRestingBid(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)

	res := book.place(t, limitOrder(types.SideBid, 100, 10), params(alice, 1))
	require.NotNil(t, res.Resting)
	assert.Equal(t, int64(10), res.PostedBaseLots())
	assert.Equal(t, 0, book.eq.Len())

	res = book.place(t, limitOrder(types.SideAsk, 99, 4), params(bob, 2))
	assert.Equal(t, int64(4), res.FilledBaseLots)
	assert.Equal(t, int64(400), res.FilledQuoteLots)
	require.Len(t, res.Fills, 1)
	fill := res.Fills[0]
	assert.Equal(t, int64(100), fill.PriceLots)
	assert.Equal(t, int64(4), fill.Quantity)
	assert.Equal(t, alice, fill.Maker)
	assert.Equal(t, bob, fill.Taker)
	assert.False(t, fill.MakerOut)
	assert.Nil(t, res.Resting)

	best, ok := book.Bids.Best(2, 100)
	require.True(t, ok)
	assert.Equal(t, int64(6), best.Leaf.Quantity)
	assert.Equal(t, 0, book.Asks.Len())

	require.Equal(t, 1, book.eq.Len())
	ev, _ := book.eq.Peek()
	assert.Equal(t, types.EventFill, ev.Type())
	assert.Equal(t, uint64(0), ev.Seq())
}

func TestPriceTimePriority(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideBid, 100, 3), params(alice, 1))
	book.place(t, limitOrder(types.SideBid, 100, 3), params(carol, 2))
	book.place(t, limitOrder(types.SideBid, 101, 1), params(carol, 3))

	res := book.place(t, limitOrder(types.SideAsk, 100, 5), params(bob, 4))
	require.Len(t, res.Fills, 3)
	assert.Equal(t, int64(101), res.Fills[0].PriceLots)
	assert.Equal(t, alice, res.Fills[1].Maker)
	assert.True(t, res.Fills[1].MakerOut)
	assert.Equal(t, carol, res.Fills[2].Maker)
	assert.Equal(t, int64(1), res.Fills[2].Quantity)
}

func TestSelfTradeBehaviors(t *testing.T) {
	setup := func(t *testing.T) *testBook {
		t.Helper()
		book := getTestOrderBook(t, 16, 16)
		book.place(t, limitOrder(types.SideBid, 100, 10), params(alice, 1))
		return book
	}

	t.Run("decrement take", func(t *testing.T) {
		book := setup(t)
		o := limitOrder(types.SideAsk, 99, 4)
		o.SelfTradeBehavior = types.DecrementTake
		res := book.place(t, o, params(alice, 2))

		assert.Empty(t, res.Fills)
		require.Len(t, res.SelfTrades, 1)
		assert.Equal(t, int64(4), res.SelfTrades[0].Quantity)
		assert.False(t, res.SelfTrades[0].Removed)
		assert.Nil(t, res.Resting)
		assert.Equal(t, 0, book.eq.Len())

		best, _ := book.Bids.Best(2, 100)
		assert.Equal(t, int64(6), best.Leaf.Quantity)
	})

	t.Run("cancel provide", func(t *testing.T) {
		book := setup(t)
		o := limitOrder(types.SideAsk, 100, 4)
		o.SelfTradeBehavior = types.CancelProvide
		p := params(alice, 2)
		p.OwnerSlot = 1
		res := book.place(t, o, p)

		assert.Empty(t, res.Fills)
		require.Len(t, res.Outs, 1)
		assert.Equal(t, int64(10), res.Outs[0].Quantity)
		assert.Equal(t, types.SideBid, res.Outs[0].Side)
		assert.Equal(t, 0, book.Bids.Len())
		require.NotNil(t, res.Resting)
		assert.Equal(t, uint8(1), res.Resting.OwnerSlot)
		assert.Equal(t, 1, book.eq.Len())
	})

	t.Run("abort transaction", func(t *testing.T) {
		book := setup(t)
		hash := book.Hash()
		o := limitOrder(types.SideAsk, 99, 4)
		o.SelfTradeBehavior = types.AbortTransaction
		_, err := book.PlaceOrder(o, params(alice, 2), book.eq)
		assert.ErrorIs(t, err, types.ErrWouldSelfTrade)
		assert.Equal(t, hash, book.Hash())
		assert.Equal(t, 0, book.eq.Len())
	})
}

func TestFillOrKill(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideBid, 100, 10), params(alice, 1))
	hash := book.Hash()

	o := &types.Order{Side: types.SideAsk, MaxBaseLots: 20, MaxQuoteLots: types.NoQuoteLimit, Params: types.FOKParams(99)}
	_, err := book.PlaceOrder(o, params(bob, 2), book.eq)
	assert.ErrorIs(t, err, types.ErrWouldNotFill)
	assert.True(t, types.IsKind(err, types.KindInvalid))
	assert.Equal(t, hash, book.Hash())

	o.MaxBaseLots = 10
	res := book.place(t, o, params(bob, 2))
	assert.Equal(t, int64(10), res.FilledBaseLots)
	assert.Equal(t, 0, book.Len())
}

func TestImmediateOrCancelNeverRests(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideAsk, 100, 2), params(alice, 1))

	o := &types.Order{Side: types.SideBid, MaxBaseLots: 5, MaxQuoteLots: types.NoQuoteLimit, Params: types.IOCParams(100)}
	res := book.place(t, o, params(bob, 2))
	assert.Equal(t, int64(2), res.FilledBaseLots)
	assert.Nil(t, res.Resting)
	assert.Equal(t, 0, book.Len())
}

func TestQuoteBudget(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideAsk, 100, 5), params(alice, 1))

	o := &types.Order{Side: types.SideBid, MaxBaseLots: 10, MaxQuoteLots: 250, Params: types.MarketParams()}
	res := book.place(t, o, params(bob, 2))
	assert.Equal(t, int64(2), res.FilledBaseLots)
	assert.Equal(t, int64(200), res.FilledQuoteLots)

	// the taker fee comes out of the quote budget of a bid
	p := params(bob, 3)
	p.TakerFee = num.MustDecimalFromString("0.25")
	o.MaxQuoteLots = 250
	res = book.place(t, o, p)
	assert.Equal(t, int64(2), res.FilledBaseLots)

	o.MaxQuoteLots = 125
	res = book.place(t, o, p)
	assert.Equal(t, int64(1), res.FilledBaseLots)
}

func TestPostOnly(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideAsk, 101, 5), params(alice, 1))

	o := &types.Order{Side: types.SideBid, MaxBaseLots: 1, MaxQuoteLots: types.NoQuoteLimit, Params: types.FixedParams(101, types.PostOrderPostOnly)}
	res := book.place(t, o, params(bob, 2))
	assert.True(t, res.Dropped)
	assert.Empty(t, res.Fills)
	assert.Equal(t, 0, book.Bids.Len())

	o.Params = types.FixedParams(103, types.PostOrderPostOnlySlide)
	res = book.place(t, o, params(bob, 3))
	assert.False(t, res.Dropped)
	require.NotNil(t, res.Resting)
	assert.Equal(t, int64(100), res.PriceLots)
	assert.Equal(t, int64(100), res.Resting.Key.Price())
	assert.Equal(t, int64(5), book.Asks.SumQuantity(3, 100))
}

func TestOraclePeggedOrders(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)

	pegged := &types.Order{Side: types.SideBid, MaxBaseLots: 5, MaxQuoteLots: types.NoQuoteLimit,
		Params: types.PeggedParams(-2, types.PostOrderLimit, types.NoPegLimit)}
	res := book.place(t, pegged, params(alice, 1))
	require.NotNil(t, res.Resting)
	assert.Equal(t, types.BidOraclePegged, res.RestingTree)
	assert.Equal(t, int64(-2), res.Resting.Key.Price())

	price, ok := book.Bids.BestPrice(1, 100)
	require.True(t, ok)
	assert.Equal(t, int64(98), price)

	book.place(t, limitOrder(types.SideBid, 99, 1), params(carol, 2))
	price, _ = book.Bids.BestPrice(2, 100)
	assert.Equal(t, int64(99), price)
	price, _ = book.Bids.BestPrice(2, 102)
	assert.Equal(t, int64(100), price)

	res = book.place(t, limitOrder(types.SideAsk, 97, 6), params(bob, 3))
	require.Len(t, res.Fills, 2)
	assert.Equal(t, int64(99), res.Fills[0].PriceLots)
	assert.Equal(t, int64(98), res.Fills[1].PriceLots)
	assert.Equal(t, int64(5), res.Fills[1].Quantity)
	assert.Equal(t, 0, book.Bids.Len())
}

func TestOraclePeggedInvalidPrice(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	o := &types.Order{Side: types.SideBid, MaxBaseLots: 5, MaxQuoteLots: types.NoQuoteLimit,
		Params: types.PeggedParams(-200, types.PostOrderLimit, types.NoPegLimit)}
	_, err := book.PlaceOrder(o, params(alice, 1), book.eq)
	assert.ErrorIs(t, err, types.ErrInvalidPrice)

	// past its peg limit the order rests but is not quoted
	o.Params = types.PeggedParams(0, types.PostOrderLimit, 95)
	res := book.place(t, o, params(alice, 1))
	assert.Equal(t, int64(95), res.PriceLots)
	require.NotNil(t, res.Resting)
	_, ok := book.Bids.BestPrice(1, 100)
	assert.False(t, ok)
	price, ok := book.Bids.BestPrice(1, 94)
	require.True(t, ok)
	assert.Equal(t, int64(94), price)
}

func TestExpiredMakersAreEvictedWhileMatching(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	o := limitOrder(types.SideBid, 100, 10)
	o.TimeInForce = 5
	book.place(t, o, params(alice, 1))

	res := book.place(t, limitOrder(types.SideAsk, 99, 4), params(bob, 10))
	assert.Empty(t, res.Fills)
	require.Len(t, res.Outs, 1)
	assert.Equal(t, alice, res.Outs[0].Owner)
	require.NotNil(t, res.Resting)
	assert.Equal(t, 0, book.Bids.Len())
	assert.Equal(t, 1, book.eq.Len())
}

func TestEvictExpired(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	for i := int64(0); i < 3; i++ {
		o := limitOrder(types.SideAsk, 100+i, 1)
		o.TimeInForce = 5
		book.place(t, o, params(alice, 1))
	}
	outs, err := book.EvictExpired(6, 2, book.eq)
	require.NoError(t, err)
	assert.Len(t, outs, 2)
	assert.Equal(t, 1, book.Len())
}

func TestFailedPlacementLeavesBookUntouched(t *testing.T) {
	t.Run("event queue full", func(t *testing.T) {
		book := getTestOrderBook(t, 16, 1)
		book.place(t, limitOrder(types.SideBid, 100, 1), params(alice, 1))
		book.place(t, limitOrder(types.SideBid, 100, 1), params(carol, 2))
		hash := book.Hash()

		_, err := book.PlaceOrder(limitOrder(types.SideAsk, 100, 2), params(bob, 3), book.eq)
		assert.ErrorIs(t, err, types.ErrEventQueueFull)
		assert.Equal(t, hash, book.Hash())
		assert.Equal(t, 2, book.Bids.Len())
	})

	t.Run("book full", func(t *testing.T) {
		book := getTestOrderBook(t, 1, 4)
		book.place(t, limitOrder(types.SideBid, 100, 1), params(alice, 1))
		_, err := book.PlaceOrder(limitOrder(types.SideBid, 99, 1), params(carol, 2), book.eq)
		assert.ErrorIs(t, err, types.ErrBookFull)
		assert.True(t, types.IsKind(err, types.KindCapacity))
	})

	t.Run("no order slot", func(t *testing.T) {
		book := getTestOrderBook(t, 4, 4)
		p := params(alice, 1)
		p.OwnerSlot = -1
		_, err := book.PlaceOrder(limitOrder(types.SideBid, 100, 1), p, book.eq)
		assert.ErrorIs(t, err, types.ErrNoFreeOrderSlot)
		assert.Equal(t, uint64(0), book.SeqNum)
	})

	t.Run("tick size", func(t *testing.T) {
		book := getTestOrderBook(t, 4, 4)
		p := params(alice, 1)
		p.TickLots = 5
		_, err := book.PlaceOrder(limitOrder(types.SideBid, 101, 1), p, book.eq)
		assert.ErrorIs(t, err, types.ErrInvalidPrice)
	})
}

func TestMatchLimit(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideAsk, 100, 1), params(alice, 1))
	book.place(t, limitOrder(types.SideAsk, 100, 1), params(carol, 2))

	p := params(bob, 3)
	p.Limit = 1
	res := book.place(t, limitOrder(types.SideBid, 100, 2), p)
	assert.Equal(t, int64(1), res.FilledBaseLots)
	assert.Nil(t, res.Resting)
	assert.Equal(t, 1, book.Asks.Len())
}

func TestCancelOrders(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	o := limitOrder(types.SideBid, 100, 1)
	o.ClientOrderID = 9
	res := book.place(t, o, params(alice, 1))
	book.place(t, limitOrder(types.SideAsk, 105, 1), params(alice, 2))
	book.place(t, limitOrder(types.SideAsk, 106, 1), params(bob, 3))

	_, err := book.CancelOrder(res.RestingTree, res.Resting.Key, bob)
	assert.ErrorIs(t, err, types.ErrOrderNotFound)

	c, err := book.CancelOrderByClientID(alice, 9)
	require.NoError(t, err)
	assert.Equal(t, types.BidFixed, c.SideAndTree)
	_, err = book.CancelOrderByClientID(alice, 9)
	assert.ErrorIs(t, err, types.ErrOrderNotFound)

	ask := types.SideAsk
	assert.Len(t, book.OrdersOf(alice, &ask), 1)
	cancelled := book.CancelAllOrders(alice, nil, 0)
	assert.Len(t, cancelled, 1)
	assert.Equal(t, 1, book.Len())
}

func TestBookSideLevelsAndImpact(t *testing.T) {
	book := getTestOrderBook(t, 16, 16)
	book.place(t, limitOrder(types.SideAsk, 101, 2), params(alice, 1))
	book.place(t, limitOrder(types.SideAsk, 101, 3), params(carol, 2))
	book.place(t, limitOrder(types.SideAsk, 103, 4), params(carol, 3))

	levels := book.Asks.Levels(3, 100, 0)
	require.Len(t, levels, 2)
	assert.Equal(t, matching.PriceLevel{PriceLots: 101, Quantity: 5, Orders: 2}, levels[0])
	assert.Len(t, book.Asks.Levels(3, 100, 1), 1)

	price, ok := book.Asks.ImpactPrice(3, 100, 6)
	require.True(t, ok)
	assert.Equal(t, int64(103), price)
	_, ok = book.Asks.ImpactPrice(3, 100, 10)
	assert.False(t, ok)
}

func TestEventQueue(t *testing.T) {
	eq := matching.NewEventQueue(2)
	require.NoError(t, eq.Push(&types.OutEvent{Quantity: 1}))
	require.NoError(t, eq.Push(&types.OutEvent{Quantity: 2}))
	assert.ErrorIs(t, eq.Push(&types.OutEvent{}), types.ErrEventQueueFull)

	e, ok := eq.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(1), e.(*types.OutEvent).Quantity)
	require.NoError(t, eq.Push(&types.OutEvent{Quantity: 3}))

	assert.ErrorIs(t, eq.PushAll([]types.Event{&types.OutEvent{}}), types.ErrEventQueueFull)
	events := eq.Events()
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq())
	assert.Equal(t, uint64(2), events[1].Seq())
	assert.Equal(t, uint64(3), eq.SeqNum())

	cpy := eq.Clone()
	cpy.Pop()
	assert.Equal(t, 2, eq.Len())
}
