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

package risk_test

import (
	"testing"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const now = uint64(1000)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

type testHealth struct {
	r   *risk.FixedRetriever
	acc *positions.Account
}

// getTestHealth sets up a USDC bank (token 0, price 1), a SOL bank
// (token 1, price 2, liab weight 1.5) and an account holding 1000 USDC
// and owing 500 SOL.
func getTestHealth(t *testing.T) *testHealth {
	t.Helper()
	r := risk.NewFixedRetriever()
	usdc := collateral.NewBank(0, "USDC")
	sol := collateral.NewBank(1, "SOL")
	sol.MaintLiabWeight = d("1.5")
	sol.InitLiabWeight = d("1.5")
	sol.MaintAssetWeight = d("0.8")
	sol.InitAssetWeight = d("0.6")
	r.Banks[0], r.Banks[1] = usdc, sol
	r.TokenPrices[0] = oracle.NewPrice(d("1"), d("0"), now)
	r.TokenPrices[1] = oracle.NewPrice(d("2"), d("0"), now)

	acc := positions.NewAccount(types.NewAccountID(), "alice", positions.DefaultSlots())
	up, err := acc.EnsureTokenPosition(0)
	require.NoError(t, err)
	require.NoError(t, usdc.Deposit(up, d("1000")))
	sp, err := acc.EnsureTokenPosition(1)
	require.NoError(t, err)
	_, err = sol.Withdraw(sp, d("500"), true)
	require.NoError(t, err)
	return &testHealth{r: r, acc: acc}
}

func (th *testHealth) compute(t *testing.T) *risk.HealthCache {
	t.Helper()
	hc, err := risk.Compute(th.acc, th.r, now)
	require.NoError(t, err)
	return hc
}

func TestMaintHealthMakesAccountLiquidatable(t *testing.T) {
	th := getTestHealth(t)
	hc := th.compute(t)

	// 1000*1.0 - 500*2.0*1.5
	assert.True(t, hc.MaintHealth().Equal(d("-500")), hc.MaintHealth().String())
	assert.True(t, hc.IsLiquidatable())

	assets, liabs := hc.AssetsAndLiabs(risk.Maint)
	assert.True(t, assets.Equal(d("1000")))
	assert.True(t, liabs.Equal(d("1500")))
	assert.True(t, hc.HealthRatio(risk.Maint).LessThan(d("-33.33")))
	assert.True(t, hc.HasSpotBorrows())
}

func TestHealthyAccount(t *testing.T) {
	th := getTestHealth(t)
	th.r.TokenPrices[1] = oracle.NewPrice(d("1"), d("0"), now)
	hc := th.compute(t)

	assert.True(t, hc.MaintHealth().Equal(d("250")))
	assert.False(t, hc.IsLiquidatable())

	empty := positions.NewAccount(types.NewAccountID(), "empty", positions.DefaultSlots())
	hc, err := risk.Compute(empty, th.r, now)
	require.NoError(t, err)
	assert.True(t, hc.MaintHealth().IsZero())
	assert.True(t, hc.HealthRatio(risk.Init).Equal(risk.MaxHealthRatio))
}

func TestInitHealthUsesStablePrice(t *testing.T) {
	th := getTestHealth(t)
	th.r.Banks[1].StablePrice.Reset(d("2.5"), now)
	hc := th.compute(t)

	assert.True(t, hc.InitHealth().Equal(d("-875")), hc.InitHealth().String())
	assert.True(t, hc.MaintHealth().Equal(d("-500")))
	assert.True(t, hc.LiquidationEndHealth().Equal(d("-500")))
}

func TestUncertainOracleWidensPrices(t *testing.T) {
	th := getTestHealth(t)
	th.r.TokenPrices[1] = oracle.NewPrice(d("2"), d("0.4"), now)
	hc := th.compute(t)
	// liability valued at 2.4
	assert.True(t, hc.MaintHealth().Equal(d("-800")), hc.MaintHealth().String())

	// a soft stale reading is widened by the conf filter
	th.r.TokenPrices[1] = oracle.NewPrice(d("2"), d("0"), now-100)
	hc = th.compute(t)
	assert.True(t, hc.MaintHealth().Equal(d("-650")), hc.MaintHealth().String())
}

func TestStaleOracle(t *testing.T) {
	th := getTestHealth(t)
	th.r.TokenPrices[1] = oracle.NewPrice(d("2"), d("0"), now-301)
	_, err := risk.Compute(th.acc, th.r, now)
	assert.ErrorIs(t, err, types.ErrStaleOracle)
	assert.True(t, types.IsKind(err, types.KindStaleOracle))
}

func getTestPerp(t *testing.T, th *testHealth) (*markets.PerpMarket, *positions.PerpPosition) {
	t.Helper()
	m := markets.NewPerpMarket(0, "SOL-PERP", 0, 1, 1)
	m.MaintBaseAssetWeight = d("0.9")
	m.MaintBaseLiabWeight = d("1.1")
	m.InitBaseAssetWeight = d("0.8")
	m.InitBaseLiabWeight = d("1.2")
	m.MaintOverallAssetWeight = d("0.5")
	m.InitOverallAssetWeight = d("0")
	th.r.Markets[0] = m
	th.r.PerpPrices[0] = oracle.NewPrice(d("100"), d("0"), now)
	pp, err := th.acc.EnsurePerpPosition(m)
	require.NoError(t, err)
	return m, pp
}

func TestPerpContributionFoldsIntoSettleToken(t *testing.T) {
	th := getTestHealth(t)
	// drop the SOL borrow
	sp, err := th.acc.TokenPosition(1)
	require.NoError(t, err)
	sp.IndexedPosition = d("0")
	_, pp := getTestPerp(t, th)

	pp.BasePositionLots = 10
	pp.QuotePositionNative = d("-1000")
	hc := th.compute(t)
	// 10*100*0.9 - 1000 = -100
	assert.True(t, hc.MaintHealth().Equal(d("900")), hc.MaintHealth().String())

	// all bids filling at the oracle price is the worse case
	pp.BidsBaseLots = 5
	hc = th.compute(t)
	assert.True(t, hc.MaintHealth().Equal(d("850")), hc.MaintHealth().String())
	assert.True(t, hc.HasPerpOpenOrders())

	// positive pnl is weighted by the overall asset weight
	pp.BidsBaseLots = 0
	pp.QuotePositionNative = d("-500")
	hc = th.compute(t)
	assert.True(t, hc.MaintHealth().Equal(d("1200")), hc.MaintHealth().String())
	assert.True(t, hc.InitHealth().Equal(d("1000")), hc.InitHealth().String())
}

func TestRecomputePerpInfo(t *testing.T) {
	th := getTestHealth(t)
	m, pp := getTestPerp(t, th)
	pp.BasePositionLots = 1
	hc := th.compute(t)

	pp.BasePositionLots = 2
	require.NoError(t, hc.RecomputePerpInfo(m, pp))
	p, err := hc.PerpInfo(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.BaseLots)
	_, err = hc.PerpInfo(7)
	assert.ErrorIs(t, err, types.ErrPerpPosNotFound)
}

func TestHealthIsMonotonic(t *testing.T) {
	th := getTestHealth(t)
	_, pp := getTestPerp(t, th)
	pp.BasePositionLots = -3
	pp.QuotePositionNative = d("250")
	pp.AsksBaseLots = 2

	healthTypes := []risk.HealthType{risk.Init, risk.Maint, risk.LiquidationEnd}
	for _, delta := range []string{"0.5", "10", "333", "5000"} {
		base := th.compute(t)
		for _, token := range []uint16{0, 1} {
			hc := base.Clone()
			require.NoError(t, hc.AdjustTokenBalance(token, d(delta)))
			for _, ht := range healthTypes {
				assert.True(t, hc.Health(ht).GreaterThan(base.Health(ht)), "token %d %v +%s", token, ht, delta)
			}
		}
	}

	for lots := int64(-20); lots < 20; lots++ {
		pp.BasePositionLots = lots
		lower := th.compute(t)
		pp.BasePositionLots = lots + 1
		higher := th.compute(t)
		for _, ht := range healthTypes {
			assert.True(t, higher.Health(ht).GreaterThanOrEqual(lower.Health(ht)), "lots %d %v", lots, ht)
		}
	}

	pp.BasePositionLots = 4
	base := th.compute(t)
	pp.QuotePositionNative = pp.QuotePositionNative.Add(d("1"))
	more := th.compute(t)
	for _, ht := range healthTypes {
		assert.True(t, more.Health(ht).GreaterThanOrEqual(base.Health(ht)))
	}
}

func TestLiquidatableFollowsMaintHealthOnly(t *testing.T) {
	th := getTestHealth(t)
	// maint liab weight below init: maint is positive, liquidation end is not
	th.r.Banks[1].MaintLiabWeight = d("1")
	th.r.TokenPrices[1] = oracle.NewPrice(d("1.8"), d("0"), now)
	hc := th.compute(t)
	require.True(t, hc.MaintHealth().IsPositive())
	require.True(t, hc.LiquidationEndHealth().IsNegative())
	assert.False(t, hc.IsLiquidatable())

	th.acc.BeingLiquidated = true
	assert.False(t, th.compute(t).IsLiquidatable())
}

func TestCheckPreAndPost(t *testing.T) {
	assert.NoError(t, risk.CheckPreAndPost(d("-10"), d("1")))
	assert.NoError(t, risk.CheckPreAndPost(d("-10"), d("-5")))
	err := risk.CheckPreAndPost(d("-10"), d("-11"))
	assert.ErrorIs(t, err, types.ErrHealthTooLow)
	assert.True(t, types.IsKind(err, types.KindRiskViolation))
}
