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

package execution_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/conditionalswap"
	"github.com/xmargin/xmargin/config/encoding"
	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/execution/mocks"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/liquidation"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/store"
	"github.com/xmargin/xmargin/types"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	now  = uint64(1700000000)
	usdc = uint16(0)
	sol  = uint16(1)
	perp = uint16(0)
)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

type testEngine struct {
	*execution.Engine
	ctrl        *gomock.Controller
	prices      *mocks.MockPriceSource
	tokenPrices map[uint16]oracle.Price
	perpPrices  map[uint16]oracle.Price
}

func getTestEngine(t *testing.T, cfg execution.Config) *testEngine {
	t.Helper()
	ctrl := gomock.NewController(t)
	prices := mocks.NewMockPriceSource(ctrl)
	ts := mocks.NewMockTimeService(ctrl)
	ts.EXPECT().GetTimeNow().Return(time.Unix(int64(now), 0)).AnyTimes()

	te := &testEngine{
		Engine:      execution.NewEngine(logging.NewTestLogger(), cfg, prices, ts),
		ctrl:        ctrl,
		prices:      prices,
		tokenPrices: map[uint16]oracle.Price{},
		perpPrices:  map[uint16]oracle.Price{},
	}
	prices.EXPECT().TokenPrice(gomock.Any()).DoAndReturn(func(token uint16) (oracle.Price, error) {
		p, ok := te.tokenPrices[token]
		if !ok {
			return oracle.Price{}, types.ErrBankNotFound.WithToken(token)
		}
		return p, nil
	}).AnyTimes()
	prices.EXPECT().PerpPrice(gomock.Any()).DoAndReturn(func(market uint16) (oracle.Price, error) {
		p, ok := te.perpPrices[market]
		if !ok {
			return oracle.Price{}, types.ErrMarketNotFound.WithMarket(market)
		}
		return p, nil
	}).AnyTimes()
	return te
}

func (te *testEngine) setTokenPrice(token uint16, price string) {
	te.tokenPrices[token] = oracle.NewPrice(d(price), d("0"), now)
}

func (te *testEngine) setPerpPrice(market uint16, price string) {
	te.perpPrices[market] = oracle.NewPrice(d(price), d("0"), now)
}

// registerBanks adds USDC at 1 and SOL at solPrice. tweak adjusts the
// SOL bank before registration.
func (te *testEngine) registerBanks(t *testing.T, solPrice string, tweak func(usdc, sol *collateral.Bank)) {
	t.Helper()
	u := collateral.NewBank(usdc, "USDC")
	s := collateral.NewBank(sol, "SOL")
	if tweak != nil {
		tweak(u, s)
	}
	te.setTokenPrice(usdc, "1")
	te.setTokenPrice(sol, solPrice)
	require.NoError(t, te.RegisterBank(u))
	require.NoError(t, te.RegisterBank(s))
}

func (te *testEngine) account(t *testing.T, name string, deposits map[uint16]string) types.AccountID {
	t.Helper()
	id, err := te.CreateAccount(name)
	require.NoError(t, err)
	for token, amount := range deposits {
		require.NoError(t, te.Deposit(id, token, d(amount)))
	}
	return id
}

func (te *testEngine) balance(t *testing.T, id types.AccountID, token uint16) num.Decimal {
	t.Helper()
	acc, err := te.Account(id)
	require.NoError(t, err)
	bank, err := te.Bank(token)
	require.NoError(t, err)
	tp, err := acc.TokenPosition(token)
	if errors.Is(err, types.ErrTokenPosNotFound) {
		return num.DecimalZero()
	}
	require.NoError(t, err)
	return bank.NativeBalance(tp)
}

func (te *testEngine) registerPerp(t *testing.T) {
	t.Helper()
	te.setPerpPrice(perp, "100")
	require.NoError(t, te.RegisterPerpMarket(markets.NewPerpMarket(perp, "SOL-PERP", usdc, 1, 1)))
}

func limitOrder(side types.Side, price, qty int64) types.Order {
	return types.Order{
		Side:         side,
		MaxBaseLots:  qty,
		MaxQuoteLots: types.NoQuoteLimit,
		Params:       types.FixedParams(price, types.PostOrderLimit),
	}
}

func TestRestingBidFilledByCrossingAsk(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "100", nil)
	te.registerPerp(t)
	alice := te.account(t, "alice", map[uint16]string{usdc: "10000"})
	bob := te.account(t, "bob", map[uint16]string{usdc: "10000"})

	res, err := te.PlaceOrder(alice, perp, limitOrder(types.SideBid, 100, 10))
	require.NoError(t, err)
	require.NotNil(t, res.OrderID)
	assert.Equal(t, int64(10), res.PostedBaseLots())

	ask := limitOrder(types.SideAsk, 99, 4)
	ask.Params = types.IOCParams(99)
	res, err = te.PlaceOrder(bob, perp, ask)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.FilledBaseLots)
	assert.Equal(t, int64(400), res.FilledQuoteLots)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, int64(100), res.Fills[0].PriceLots)
	assert.Nil(t, res.OrderID)

	// the taker is settled right away
	acc, err := te.Account(bob)
	require.NoError(t, err)
	pp, err := acc.PerpPosition(perp)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), pp.BasePositionLots)
	assert.True(t, pp.QuotePositionNative.Equal(d("400")))

	// the maker waits for the event queue
	n, err := te.EventQueueLen(perp)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	acc, err = te.Account(alice)
	require.NoError(t, err)
	pp, err = acc.PerpPosition(perp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pp.BasePositionLots)
	assert.Equal(t, int64(10), pp.BidsBaseLots)

	n, err = te.ConsumeEvents(perp, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	acc, err = te.Account(alice)
	require.NoError(t, err)
	pp, err = acc.PerpPosition(perp)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pp.BasePositionLots)
	assert.True(t, pp.QuotePositionNative.Equal(d("-400")))
	assert.Equal(t, int64(6), pp.BidsBaseLots)

	book, err := te.Book(perp)
	require.NoError(t, err)
	best, ok := book.Bids.Best(now, 100)
	require.True(t, ok)
	assert.Equal(t, int64(6), best.Leaf.Quantity)
	assert.Equal(t, 0, book.Asks.Len())

	// cancelling the remainder releases the slot
	require.NoError(t, te.CancelOrder(alice, perp, best.Leaf.Key.OrderID()))
	acc, err = te.Account(alice)
	require.NoError(t, err)
	pp, err = acc.PerpPosition(perp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pp.BidsBaseLots)
	assert.ErrorIs(t, te.CancelOrder(alice, perp, best.Leaf.Key.OrderID()), types.ErrOrderNotFound)
}

func TestCancelAllAndClientID(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "100", nil)
	te.registerPerp(t)
	alice := te.account(t, "alice", map[uint16]string{usdc: "10000"})

	for i := int64(0); i < 3; i++ {
		o := limitOrder(types.SideBid, 90+i, 1)
		o.ClientOrderID = uint64(i + 1)
		_, err := te.PlaceOrder(alice, perp, o)
		require.NoError(t, err)
	}
	ask := limitOrder(types.SideAsk, 110, 2)
	ask.ClientOrderID = 9
	_, err := te.PlaceOrder(alice, perp, ask)
	require.NoError(t, err)

	require.NoError(t, te.CancelOrderByClientID(alice, perp, 2))
	assert.ErrorIs(t, te.CancelOrderByClientID(alice, perp, 2), types.ErrOrderNotFound)

	bid := types.SideBid
	n, err := te.CancelAllOrders(alice, perp, &bid, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	book, err := te.Book(perp)
	require.NoError(t, err)
	assert.Equal(t, 0, book.Bids.Len())
	assert.Equal(t, 1, book.Asks.Len())

	n, err = te.CancelAllOrders(alice, perp, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	acc, err := te.Account(alice)
	require.NoError(t, err)
	assert.False(t, acc.HasOpenPerpOrders())
}

func TestCancelReplaceAllOrders(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "100", nil)
	te.setPerpPrice(perp, "100")
	m := markets.NewPerpMarket(perp, "SOL-PERP", usdc, 1, 1)
	m.InitBaseAssetWeight = d("0.5")
	require.NoError(t, te.RegisterPerpMarket(m))
	alice := te.account(t, "alice", map[uint16]string{usdc: "10000"})

	for i := int64(0); i < 3; i++ {
		_, err := te.PlaceOrder(alice, perp, limitOrder(types.SideBid, 90+i, 1))
		require.NoError(t, err)
	}

	res, err := te.CancelReplaceAllOrders(alice, perp, []types.Order{
		limitOrder(types.SideBid, 95, 2),
		limitOrder(types.SideAsk, 110, 1),
	}, 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.NotNil(t, res[0].OrderID)
	assert.NotNil(t, res[1].OrderID)

	book, err := te.Book(perp)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Bids.Len())
	assert.Equal(t, 1, book.Asks.Len())
	acc, err := te.Account(alice)
	require.NoError(t, err)
	pp, err := acc.PerpPosition(perp)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pp.BidsBaseLots)
	assert.Equal(t, int64(1), pp.AsksBaseLots)

	// 1000 lots at 100 with half weight on the base is too much: the
	// cancels are rolled back with the placement
	hash, err := te.Hash()
	require.NoError(t, err)
	_, err = te.CancelReplaceAllOrders(alice, perp, []types.Order{limitOrder(types.SideBid, 100, 1000)}, 0)
	assert.ErrorIs(t, err, types.ErrHealthTooLow)
	after, err := te.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, after)
	book, err = te.Book(perp)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Bids.Len())
	assert.Equal(t, 1, book.Asks.Len())
}

func TestPositionLimit(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "100", nil)
	te.setPerpPrice(perp, "100")
	m := markets.NewPerpMarket(perp, "SOL-PERP", usdc, 1, 1)
	m.MaxPositionBaseLots = 20
	require.NoError(t, te.RegisterPerpMarket(m))
	alice := te.account(t, "alice", map[uint16]string{usdc: "100000"})
	bob := te.account(t, "bob", map[uint16]string{usdc: "100000"})

	_, err := te.PlaceOrder(bob, perp, limitOrder(types.SideAsk, 100, 21))
	assert.ErrorIs(t, err, types.ErrPositionLimit)
	_, err = te.PlaceOrder(bob, perp, limitOrder(types.SideAsk, 100, 20))
	require.NoError(t, err)

	ioc := func(lots int64) types.Order {
		o := limitOrder(types.SideBid, 100, lots)
		o.Params = types.IOCParams(100)
		return o
	}
	res, err := te.PlaceOrder(alice, perp, ioc(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.FilledBaseLots)

	for _, lots := range []int64{11, math.MaxInt64} {
		_, err = te.PlaceOrder(alice, perp, ioc(lots))
		assert.ErrorIs(t, err, types.ErrPositionLimit)
		assert.True(t, types.IsKind(err, types.KindRiskViolation))
	}
	acc, err := te.Account(alice)
	require.NoError(t, err)
	pp, err := acc.PerpPosition(perp)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pp.BasePositionLots)
	book, err := te.Book(perp)
	require.NoError(t, err)
	best, ok := book.Asks.Best(now, 100)
	require.True(t, ok)
	assert.Equal(t, int64(10), best.Leaf.Quantity)

	// up to the limit is fine
	res, err = te.PlaceOrder(alice, perp, ioc(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.FilledBaseLots)
}

// alice: 1000 USDC against 500 SOL borrowed while SOL was at 1. At 2 her
// maint health is 1000 - 500*2*1.5 = -500.
func TestMaintHealthMakesAccountLiquidatable(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "1", func(_, s *collateral.Bank) {
		s.MaintLiabWeight = d("1.5")
		s.InitLiabWeight = d("1.5")
		s.MaintAssetWeight = d("0.8")
		s.InitAssetWeight = d("0.6")
	})
	te.account(t, "lender", map[uint16]string{sol: "1000"})
	alice := te.account(t, "alice", map[uint16]string{usdc: "1000"})

	_, err := te.Withdraw(alice, sol, d("500"), true)
	require.NoError(t, err)
	assert.True(t, te.balance(t, alice, sol).Equal(d("-500")))

	te.setTokenPrice(sol, "2")
	hc, err := te.Health(alice)
	require.NoError(t, err)
	assert.True(t, hc.MaintHealth().Equal(d("-500")), hc.MaintHealth().String())
	assert.True(t, hc.IsLiquidatable())

	state, err := te.LiquidationState(alice)
	require.NoError(t, err)
	assert.Equal(t, liquidation.StateLiquidatable, state)
}

func TestHealthGateRollsBack(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "1", func(u, s *collateral.Bank) {
		u.MaintAssetWeight = d("0.9")
		u.InitAssetWeight = d("0.8")
		s.MaintLiabWeight = d("1.1")
		s.InitLiabWeight = d("1.2")
	})
	alice := te.account(t, "alice", map[uint16]string{usdc: "1200"})
	hash, err := te.Hash()
	require.NoError(t, err)

	// 1200*0.8 - 1000*1.2 < 0
	_, err = te.Withdraw(alice, sol, d("1000"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrHealthTooLow)
	assert.True(t, types.IsKind(err, types.KindRiskViolation))

	after, err := te.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, after)
	assert.True(t, te.balance(t, alice, sol).IsZero())
	assert.True(t, te.balance(t, alice, usdc).Equal(d("1200")))

	_, err = te.Withdraw(alice, usdc, d("2000"), false)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
	assert.ErrorIs(t, te.Deposit(alice, usdc, d("-1")), types.ErrInvalidAmount)
}

func getTestLiquidation(t *testing.T) (*testEngine, types.AccountID, types.AccountID) {
	t.Helper()
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "1", func(u, s *collateral.Bank) {
		u.MaintAssetWeight = d("0.9")
		u.InitAssetWeight = d("0.8")
		s.MaintLiabWeight = d("1.1")
		s.InitLiabWeight = d("1.2")
	})
	liqor := te.account(t, "liqor", map[uint16]string{usdc: "10000"})
	liqee := te.account(t, "liqee", map[uint16]string{usdc: "1200"})
	_, err := te.Withdraw(liqee, sol, d("500"), true)
	require.NoError(t, err)
	// maint 1080 - 1100 = -20, liquidation end 960 - 1200 = -240
	te.setTokenPrice(sol, "2")
	return te, liqor, liqee
}

func TestTokenLiquidation(t *testing.T) {
	te, liqor, liqee := getTestLiquidation(t)

	_, err := te.Withdraw(liqee, usdc, d("1"), false)
	assert.ErrorIs(t, err, types.ErrHealthTooLow)

	// maint goes from -20 to -16
	res, err := te.LiqTokenWithToken(liqor, liqee, usdc, sol, d("10"))
	require.NoError(t, err)
	assert.True(t, res.LiabTransfer.Equal(d("10")))
	assert.Equal(t, liquidation.StatePartiallyLiquidated, res.State)

	acc, err := te.Account(liqee)
	require.NoError(t, err)
	assert.True(t, acc.BeingLiquidated)

	res, err = te.LiqTokenWithToken(liqor, liqee, usdc, sol, d("100000"))
	require.NoError(t, err)
	assert.True(t, res.LiabTransfer.Equal(d("290")), res.LiabTransfer.String())
	assert.Equal(t, liquidation.StateHealthy, res.State)

	assert.True(t, te.balance(t, liqee, usdc).Equal(d("600")))
	assert.True(t, te.balance(t, liqee, sol).Equal(d("-200")))
	assert.True(t, te.balance(t, liqor, usdc).Equal(d("10600")))
	assert.True(t, te.balance(t, liqor, sol).Equal(d("-300")))

	_, err = te.LiqTokenWithToken(liqor, liqee, usdc, sol, d("1"))
	assert.ErrorIs(t, err, types.ErrNotLiquidatable)
}

func TestTokenBankruptcyUsesInsurance(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "1", nil)
	saver := te.account(t, "saver", map[uint16]string{sol: "1000"})
	liqee := te.account(t, "liqee", map[uint16]string{usdc: "600"})
	_, err := te.Withdraw(liqee, sol, d("500"), true)
	require.NoError(t, err)
	// the deposit is taken by an unrelated withdrawal, nothing is left
	_, err = te.Withdraw(liqee, usdc, d("100"), false)
	require.NoError(t, err)
	te.setTokenPrice(sol, "2")
	require.NoError(t, te.DepositInsurance(d("400")))

	liqor := te.account(t, "liqor", map[uint16]string{usdc: "10000"})
	_, err = te.LiqTokenWithToken(liqor, liqee, usdc, sol, d("100000"))
	require.NoError(t, err)

	state, err := te.LiquidationState(liqee)
	require.NoError(t, err)
	require.Equal(t, liquidation.StateBankrupt, state)

	res, err := te.LiqTokenBankruptcy(liqee, sol)
	require.NoError(t, err)
	assert.True(t, res.InsuranceCover.IsPositive())
	assert.True(t, te.InsuranceBalance().IsZero())
	assert.True(t, te.balance(t, liqee, sol).IsZero())
	assert.True(t, te.balance(t, saver, sol).LessThan(d("1000")))
}

func TestTokenConditionalSwap(t *testing.T) {
	cfg := execution.NewDefaultConfig()
	cfg.SwapMakerFeeRate = encoding.Decimal{Decimal: d("0.001")}
	cfg.SwapTakerFeeRate = encoding.Decimal{Decimal: d("0.002")}
	te := getTestEngine(t, cfg)
	te.registerBanks(t, "20", nil)
	owner := te.account(t, "owner", map[uint16]string{usdc: "1000"})
	triggerer := te.account(t, "triggerer", map[uint16]string{sol: "100"})

	id, err := te.TokenConditionalSwapCreate(owner, conditionalswap.Params{
		BuyTokenIndex:         sol,
		SellTokenIndex:        usdc,
		MaxBuy:                d("10"),
		MaxSell:               d("1000"),
		PriceLowerLimit:       d("15"),
		PriceUpperLimit:       d("25"),
		PricePremiumRate:      d("0.01"),
		AllowCreatingDeposits: true,
	})
	require.NoError(t, err)

	ids, err := te.TriggerableSwaps(owner)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, ids)

	res, err := te.TokenConditionalSwapTrigger(triggerer, owner, id, d("5"), d("1000"))
	require.NoError(t, err)
	assert.True(t, res.Bought.Equal(d("5")))
	assert.True(t, res.Sold.Equal(d("101")))
	assert.True(t, te.balance(t, owner, sol).Equal(d("4.995")))
	assert.True(t, te.balance(t, owner, usdc).Equal(d("899")))
	assert.True(t, te.balance(t, triggerer, usdc).Equal(d("100.798")))

	te.setTokenPrice(sol, "30")
	_, err = te.TokenConditionalSwapTrigger(triggerer, owner, id, d("5"), d("1000"))
	assert.ErrorIs(t, err, types.ErrSwapPriceLimit)
	ids, err = te.TriggerableSwaps(owner)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, te.TokenConditionalSwapCancel(owner, id))
	assert.ErrorIs(t, te.TokenConditionalSwapCancel(owner, id), types.ErrSwapNotFound)
}

func TestSettlePnl(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "100", nil)
	te.registerPerp(t)
	alice := te.account(t, "alice", map[uint16]string{usdc: "10000"})
	bob := te.account(t, "bob", map[uint16]string{usdc: "10000"})

	_, err := te.PlaceOrder(alice, perp, limitOrder(types.SideBid, 100, 10))
	require.NoError(t, err)
	ask := limitOrder(types.SideAsk, 100, 10)
	ask.Params = types.IOCParams(100)
	_, err = te.PlaceOrder(bob, perp, ask)
	require.NoError(t, err)
	_, err = te.ConsumeEvents(perp, 0)
	require.NoError(t, err)

	te.setPerpPrice(perp, "110")
	_, err = te.SettlePnl(alice, bob, alice, perp)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	settled, err := te.SettlePnl(bob, alice, bob, perp)
	require.NoError(t, err)
	assert.True(t, settled.Equal(d("100")), settled.String())
	assert.True(t, te.balance(t, alice, usdc).Equal(d("10100")))
	assert.True(t, te.balance(t, bob, usdc).Equal(d("9900")))
}

func TestCheckpointRestore(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	te.registerBanks(t, "100", nil)
	te.registerPerp(t)
	alice := te.account(t, "alice", map[uint16]string{usdc: "10000"})
	_, err := te.PlaceOrder(alice, perp, limitOrder(types.SideBid, 95, 3))
	require.NoError(t, err)

	st, err := store.OpenInMemory(logging.NewTestLogger())
	require.NoError(t, err)
	defer st.Close()

	hash, err := te.Checkpoint(st)
	require.NoError(t, err)

	other := getTestEngine(t, execution.NewDefaultConfig())
	require.NoError(t, other.Restore(st))
	restored, err := other.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, restored)

	acc, err := other.Account(alice)
	require.NoError(t, err)
	assert.True(t, acc.HasOpenPerpOrders())
}

func TestCheckpointErrors(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())
	cp := mocks.NewMockCheckpointer(te.ctrl)
	cp.EXPECT().SaveState(gomock.Any()).Return(nil, errors.New("disk full")).Times(1)
	cp.EXPECT().LoadState().Return(nil, store.ErrNoCheckpoint).Times(1)

	_, err := te.Checkpoint(cp)
	assert.EqualError(t, err, "checkpoint: disk full")
	assert.ErrorIs(t, te.Restore(cp), store.ErrNoCheckpoint)
}

func TestRegistrationErrors(t *testing.T) {
	te := getTestEngine(t, execution.NewDefaultConfig())

	// no oracle price yet
	assert.ErrorIs(t, te.RegisterBank(collateral.NewBank(usdc, "USDC")), types.ErrBankNotFound)

	te.registerBanks(t, "100", nil)
	assert.ErrorIs(t, te.RegisterBank(collateral.NewBank(usdc, "USDC")), types.ErrInvalidConfig)

	te.setPerpPrice(3, "100")
	err := te.RegisterPerpMarket(markets.NewPerpMarket(3, "BAD", 7, 1, 1))
	assert.ErrorIs(t, err, types.ErrBankNotFound)

	cfg := execution.NewDefaultConfig()
	cfg.MaxAccounts = 1
	te.ReloadConf(cfg)
	_, err = te.CreateAccount("first")
	require.NoError(t, err)
	_, err = te.CreateAccount("second")
	assert.ErrorIs(t, err, types.ErrAccountListFull)
}
