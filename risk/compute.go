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
	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"
)

// Retriever gives access to the banks and markets an account uses, with
// their current oracle readings.
type Retriever interface {
	BankAndPrice(token uint16) (*collateral.Bank, oracle.Price, error)
	PerpMarketAndPrice(market uint16) (*markets.PerpMarket, oracle.Price, error)
}

// FixedRetriever is a Retriever over plain maps.
type FixedRetriever struct {
	Banks       map[uint16]*collateral.Bank
	Markets     map[uint16]*markets.PerpMarket
	TokenPrices map[uint16]oracle.Price
	PerpPrices  map[uint16]oracle.Price
}

func NewFixedRetriever() *FixedRetriever {
	return &FixedRetriever{
		Banks:       map[uint16]*collateral.Bank{},
		Markets:     map[uint16]*markets.PerpMarket{},
		TokenPrices: map[uint16]oracle.Price{},
		PerpPrices:  map[uint16]oracle.Price{},
	}
}

func (r *FixedRetriever) BankAndPrice(token uint16) (*collateral.Bank, oracle.Price, error) {
	b, ok := r.Banks[token]
	if !ok {
		return nil, oracle.Price{}, types.ErrBankNotFound.WithToken(token)
	}
	p, ok := r.TokenPrices[token]
	if !ok {
		return nil, oracle.Price{}, types.ErrBadOraclePrice.WithToken(token)
	}
	return b, p, nil
}

func (r *FixedRetriever) PerpMarketAndPrice(market uint16) (*markets.PerpMarket, oracle.Price, error) {
	m, ok := r.Markets[market]
	if !ok {
		return nil, oracle.Price{}, types.ErrMarketNotFound.WithMarket(market)
	}
	p, ok := r.PerpPrices[market]
	if !ok {
		return nil, oracle.Price{}, types.ErrBadOraclePrice.WithMarket(market)
	}
	return m, p, nil
}

// NewTokenInfo builds the cached view of a token position.
func NewTokenInfo(bank *collateral.Bank, pos *positions.TokenPosition, checked oracle.Checked) TokenInfo {
	return TokenInfo{
		TokenIndex:       bank.TokenIndex,
		MaintAssetWeight: bank.MaintAssetWeight,
		InitAssetWeight:  bank.InitAssetWeight,
		MaintLiabWeight:  bank.MaintLiabWeight,
		InitLiabWeight:   bank.InitLiabWeight,
		Prices:           Prices{Oracle: checked, Stable: bank.StablePrice.Get(checked.Price)},
		Balance:          bank.NativeBalance(pos),
	}
}

// NewPerpInfo builds the cached view of a perp position.
func NewPerpInfo(m *markets.PerpMarket, pos *positions.PerpPosition, checked oracle.Checked) PerpInfo {
	info := PerpInfo{
		MarketIndex:             m.MarketIndex,
		SettleTokenIndex:        m.SettleTokenIndex,
		BaseLotSize:             m.BaseLotSize,
		MaintBaseAssetWeight:    m.MaintBaseAssetWeight,
		InitBaseAssetWeight:     m.InitBaseAssetWeight,
		MaintBaseLiabWeight:     m.MaintBaseLiabWeight,
		InitBaseLiabWeight:      m.InitBaseLiabWeight,
		MaintOverallAssetWeight: m.MaintOverallAssetWeight,
		InitOverallAssetWeight:  m.InitOverallAssetWeight,
		Prices:                  Prices{Oracle: checked, Stable: m.StablePrice.Get(checked.Price)},
	}
	info.update(m, pos)
	return info
}

func (p *PerpInfo) update(m *markets.PerpMarket, pos *positions.PerpPosition) {
	p.BaseLots = pos.BasePositionLots
	p.BidsBaseLots = pos.BidsBaseLots
	p.AsksBaseLots = pos.AsksBaseLots
	p.QuoteNative = pos.QuotePositionNative.Sub(pos.UnsettledFunding(m))
}

// RecomputePerpInfo refreshes the position part of a cached perp,
// keeping its prices.
func (c *HealthCache) RecomputePerpInfo(m *markets.PerpMarket, pos *positions.PerpPosition) error {
	p, err := c.PerpInfo(m.MarketIndex)
	if err != nil {
		return err
	}
	p.update(m, pos)
	return nil
}

// Compute builds the health cache of an account. It fails if an oracle
// reading is unusable, with StaleOracle when it is too old.
func Compute(acc *positions.Account, r Retriever, now uint64) (*HealthCache, error) {
	hc := &HealthCache{BeingLiquidated: acc.BeingLiquidated}
	for _, tp := range acc.ActiveTokenPositions() {
		bank, price, err := r.BankAndPrice(tp.TokenIndex)
		if err != nil {
			return nil, err
		}
		checked, err := bank.CheckOracle(price, now)
		if err != nil {
			return nil, err
		}
		hc.Tokens = append(hc.Tokens, NewTokenInfo(bank, tp, checked))
	}
	for _, pp := range acc.ActivePerpPositions() {
		m, price, err := r.PerpMarketAndPrice(pp.MarketIndex)
		if err != nil {
			return nil, err
		}
		checked, err := m.CheckOracle(price, now)
		if err != nil {
			return nil, err
		}
		if _, err := hc.tokenInfoIndex(m.SettleTokenIndex); err != nil {
			return nil, types.ErrTokenPosNotFound.WithAccount(acc.ID).WithToken(m.SettleTokenIndex).WithInvariant("perp settle token inactive")
		}
		hc.Perps = append(hc.Perps, NewPerpInfo(m, pp, checked))
	}
	return hc, nil
}
