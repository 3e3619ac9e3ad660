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

package risk

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/types"
)

// HealthType selects the weights and prices used to compute health.
type HealthType uint8

const (
	// Init gates new risk: init weights, prices made conservative with the
	// stable price.
	Init HealthType = iota
	// Maint decides liquidatability: maint weights, oracle prices.
	Maint
	// LiquidationEnd is the target of liquidation: init weights, oracle
	// prices.
	LiquidationEnd
)

func (t HealthType) String() string {
	switch t {
	case Init:
		return "init"
	case Maint:
		return "maint"
	case LiquidationEnd:
		return "liquidation-end"
	default:
		return "unknown"
	}
}

// MaxHealthRatio is reported for accounts without liabilities.
var MaxHealthRatio = num.DecimalFromInt64(1_000_000_000_000_000_000)

// Prices is a checked oracle reading together with the stable price.
type Prices struct {
	Oracle oracle.Checked
	Stable num.Decimal
}

// Asset is the price used to value a positive balance.
func (p Prices) Asset(ht HealthType) num.Decimal {
	low := p.Oracle.Low()
	if ht == Init && p.Stable.IsPositive() {
		return num.MinD(low, p.Stable)
	}
	return low
}

// Liab is the price used to value a negative balance.
func (p Prices) Liab(ht HealthType) num.Decimal {
	high := p.Oracle.High()
	if ht == Init && p.Stable.IsPositive() {
		return num.MaxD(high, p.Stable)
	}
	return high
}

// TokenInfo is the cached view of one token position.
type TokenInfo struct {
	TokenIndex       uint16
	MaintAssetWeight num.Decimal
	InitAssetWeight  num.Decimal
	MaintLiabWeight  num.Decimal
	InitLiabWeight   num.Decimal
	Prices           Prices
	// native spot balance, negative for borrows
	Balance num.Decimal
}

func (t *TokenInfo) AssetWeight(ht HealthType) num.Decimal {
	if ht == Maint {
		return t.MaintAssetWeight
	}
	return t.InitAssetWeight
}

func (t *TokenInfo) LiabWeight(ht HealthType) num.Decimal {
	if ht == Maint {
		return t.MaintLiabWeight
	}
	return t.InitLiabWeight
}

// HealthContribution values a native balance of this token.
func (t *TokenInfo) HealthContribution(ht HealthType, balance num.Decimal) num.Decimal {
	if balance.IsNegative() {
		return balance.Mul(t.Prices.Liab(ht)).Mul(t.LiabWeight(ht))
	}
	return balance.Mul(t.Prices.Asset(ht)).Mul(t.AssetWeight(ht))
}

// PerpInfo is the cached view of one perp position. Its quote amounts
// are in native units of the settle token.
type PerpInfo struct {
	MarketIndex             uint16
	SettleTokenIndex        uint16
	BaseLotSize             int64
	MaintBaseAssetWeight    num.Decimal
	InitBaseAssetWeight     num.Decimal
	MaintBaseLiabWeight     num.Decimal
	InitBaseLiabWeight      num.Decimal
	MaintOverallAssetWeight num.Decimal
	InitOverallAssetWeight  num.Decimal

	BaseLots     int64
	BidsBaseLots int64
	AsksBaseLots int64
	// quote position with unsettled funding applied
	QuoteNative num.Decimal
	Prices      Prices
}

func (p *PerpInfo) baseAssetWeight(ht HealthType) num.Decimal {
	if ht == Maint {
		return p.MaintBaseAssetWeight
	}
	return p.InitBaseAssetWeight
}

func (p *PerpInfo) baseLiabWeight(ht HealthType) num.Decimal {
	if ht == Maint {
		return p.MaintBaseLiabWeight
	}
	return p.InitBaseLiabWeight
}

func (p *PerpInfo) OverallAssetWeight(ht HealthType) num.Decimal {
	if ht == Maint {
		return p.MaintOverallAssetWeight
	}
	return p.InitOverallAssetWeight
}

// orderCase is the health of the position if orders for ordersBaseLots
// (signed) executed at orderPrice.
func (p *PerpInfo) orderCase(ht HealthType, ordersBaseLots int64, orderPrice num.Decimal) num.Decimal {
	lotSize := num.DecimalFromInt64(p.BaseLotSize)
	net := num.DecimalFromInt64(p.BaseLots + ordersBaseLots).Mul(lotSize)
	quote := p.QuoteNative.Sub(num.DecimalFromInt64(ordersBaseLots).Mul(lotSize).Mul(orderPrice))
	var base num.Decimal
	if net.IsNegative() {
		base = net.Mul(p.Prices.Liab(ht)).Mul(p.baseLiabWeight(ht))
	} else {
		base = net.Mul(p.Prices.Asset(ht)).Mul(p.baseAssetWeight(ht))
	}
	return base.Add(quote)
}

// UnweightedHealthUnsettledPnl is the worse of the two cases where all
// bids or all asks of the account fill.
func (p *PerpInfo) UnweightedHealthUnsettledPnl(ht HealthType) num.Decimal {
	bids := p.orderCase(ht, p.BidsBaseLots, p.Prices.Liab(ht))
	asks := p.orderCase(ht, -p.AsksBaseLots, p.Prices.Asset(ht))
	return num.MinD(bids, asks)
}

// HealthUnsettledPnl weights positive pnl with the overall asset weight.
func (p *PerpInfo) HealthUnsettledPnl(ht HealthType) num.Decimal {
	v := p.UnweightedHealthUnsettledPnl(ht)
	if v.IsPositive() {
		return v.Mul(p.OverallAssetWeight(ht))
	}
	return v
}

// HealthCache holds everything needed to recompute the health of an
// account without touching banks, markets or oracles again.
type HealthCache struct {
	Tokens          []TokenInfo
	Perps           []PerpInfo
	BeingLiquidated bool
}

func (c *HealthCache) Clone() *HealthCache {
	return &HealthCache{
		Tokens:          append([]TokenInfo(nil), c.Tokens...),
		Perps:           append([]PerpInfo(nil), c.Perps...),
		BeingLiquidated: c.BeingLiquidated,
	}
}

func (c *HealthCache) tokenInfoIndex(token uint16) (int, error) {
	for i := range c.Tokens {
		if c.Tokens[i].TokenIndex == token {
			return i, nil
		}
	}
	return -1, types.ErrTokenPosNotFound.WithToken(token)
}

func (c *HealthCache) TokenInfo(token uint16) (*TokenInfo, error) {
	i, err := c.tokenInfoIndex(token)
	if err != nil {
		return nil, err
	}
	return &c.Tokens[i], nil
}

func (c *HealthCache) PerpInfo(market uint16) (*PerpInfo, error) {
	for i := range c.Perps {
		if c.Perps[i].MarketIndex == market {
			return &c.Perps[i], nil
		}
	}
	return nil, types.ErrPerpPosNotFound.WithMarket(market)
}

// effectiveBalances returns spot balances with the perp contributions
// folded into their settle tokens, indexed like Tokens.
func (c *HealthCache) effectiveBalances(ht HealthType) []num.Decimal {
	out := make([]num.Decimal, len(c.Tokens))
	for i := range c.Tokens {
		out[i] = c.Tokens[i].Balance
	}
	for i := range c.Perps {
		p := &c.Perps[i]
		j, err := c.tokenInfoIndex(p.SettleTokenIndex)
		if err != nil {
			// Compute refuses caches without the settle token
			continue
		}
		out[j] = out[j].Add(p.HealthUnsettledPnl(ht))
	}
	return out
}

// Health is the weighted sum of all contributions.
func (c *HealthCache) Health(ht HealthType) num.Decimal {
	total := num.DecimalZero()
	for i, b := range c.effectiveBalances(ht) {
		total = total.Add(c.Tokens[i].HealthContribution(ht, b))
	}
	return total
}

func (c *HealthCache) InitHealth() num.Decimal           { return c.Health(Init) }
func (c *HealthCache) MaintHealth() num.Decimal          { return c.Health(Maint) }
func (c *HealthCache) LiquidationEndHealth() num.Decimal { return c.Health(LiquidationEnd) }

// AssetsAndLiabs splits the health into its positive and negative
// contributions, liabs being returned as a positive number.
func (c *HealthCache) AssetsAndLiabs(ht HealthType) (assets, liabs num.Decimal) {
	assets, liabs = num.DecimalZero(), num.DecimalZero()
	for i, b := range c.effectiveBalances(ht) {
		v := c.Tokens[i].HealthContribution(ht, b)
		if v.IsPositive() {
			assets = assets.Add(v)
		} else {
			liabs = liabs.Sub(v)
		}
	}
	return assets, liabs
}

// HealthRatio is 100 * (assets - liabs) / liabs.
func (c *HealthCache) HealthRatio(ht HealthType) num.Decimal {
	assets, liabs := c.AssetsAndLiabs(ht)
	if !liabs.IsPositive() {
		return MaxHealthRatio
	}
	return num.Quo(assets.Sub(liabs).Mul(num.DecimalFromInt64(100)), liabs)
}

// IsLiquidatable is true while maint health is negative, whether or not
// a liquidation already started.
func (c *HealthCache) IsLiquidatable() bool {
	return c.MaintHealth().IsNegative()
}

// AdjustTokenBalance applies a native balance change to the cache.
func (c *HealthCache) AdjustTokenBalance(token uint16, change num.Decimal) error {
	t, err := c.TokenInfo(token)
	if err != nil {
		return err
	}
	t.Balance = t.Balance.Add(change)
	return nil
}

// HasSpotAssets is true if some token balance is positive.
func (c *HealthCache) HasSpotAssets() bool {
	for i := range c.Tokens {
		if c.Tokens[i].Balance.IsPositive() {
			return true
		}
	}
	return false
}

func (c *HealthCache) HasSpotBorrows() bool {
	for i := range c.Tokens {
		if c.Tokens[i].Balance.IsNegative() {
			return true
		}
	}
	return false
}

func (c *HealthCache) HasPerpOpenOrders() bool {
	for i := range c.Perps {
		if c.Perps[i].BidsBaseLots != 0 || c.Perps[i].AsksBaseLots != 0 {
			return true
		}
	}
	return false
}

func (c *HealthCache) HasPerpBaseLots() bool {
	for i := range c.Perps {
		if c.Perps[i].BaseLots != 0 {
			return true
		}
	}
	return false
}

// HasPerpPositivePnl is true when some perp position with no base lots
// still has quote to settle in the account's favour.
func (c *HealthCache) HasPerpPositivePnl() bool {
	for i := range c.Perps {
		if c.Perps[i].BaseLots == 0 && c.Perps[i].QuoteNative.IsPositive() {
			return true
		}
	}
	return false
}

func (c *HealthCache) HasPerpNegativePnl() bool {
	for i := range c.Perps {
		if c.Perps[i].BaseLots == 0 && c.Perps[i].QuoteNative.IsNegative() {
			return true
		}
	}
	return false
}

// HasLiquidatableAssets is true while a liquidator can still take
// something from the account.
func (c *HealthCache) HasLiquidatableAssets() bool {
	return c.HasSpotAssets() || c.HasPerpBaseLots() || c.HasPerpPositivePnl() || c.HasPerpOpenOrders()
}

// CheckPreAndPost accepts a change when it leaves init health non
// negative or does not lower it.
func CheckPreAndPost(pre, post num.Decimal) error {
	if !post.IsNegative() || post.GreaterThanOrEqual(pre) {
		return nil
	}
	return types.ErrHealthTooLow.WithInvariant("init health " + post.String())
}
