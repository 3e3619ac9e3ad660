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

package execution

import (
	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/conditionalswap"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/liquidation"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"
)

// Account returns a copy of an account.
func (e *Engine) Account(id types.AccountID) (*positions.Account, error) {
	a, ok := e.state.Accounts[id]
	if !ok {
		return nil, types.ErrAccountNotFound.WithAccount(id)
	}
	return a.Clone(), nil
}

// AccountIDs lists every account in id order.
func (e *Engine) AccountIDs() []types.AccountID {
	return e.state.AccountIDs()
}

// Bank returns a copy of a bank.
func (e *Engine) Bank(token uint16) (*collateral.Bank, error) {
	b, ok := e.state.Banks[token]
	if !ok {
		return nil, types.ErrBankNotFound.WithToken(token)
	}
	return b.Clone(), nil
}

// Market returns a copy of a perp market.
func (e *Engine) Market(idx uint16) (*markets.PerpMarket, error) {
	m, ok := e.state.Markets[idx]
	if !ok {
		return nil, types.ErrMarketNotFound.WithMarket(idx)
	}
	return m.Clone(), nil
}

// Book returns a copy of the order book of a market.
func (e *Engine) Book(idx uint16) (*matching.OrderBook, error) {
	b, ok := e.state.Books[idx]
	if !ok {
		return nil, types.ErrMarketNotFound.WithMarket(idx)
	}
	return b.Clone(), nil
}

// EventQueueLen is the number of events waiting to be consumed.
func (e *Engine) EventQueueLen(idx uint16) (int, error) {
	q, ok := e.state.Queues[idx]
	if !ok {
		return 0, types.ErrMarketNotFound.WithMarket(idx)
	}
	return q.Len(), nil
}

func (e *Engine) InsuranceBalance() num.Decimal {
	return e.state.Insurance.Balance
}

// LiquidationState classifies an account with the current prices.
func (e *Engine) LiquidationState(id types.AccountID) (liquidation.State, error) {
	hc, err := e.Health(id)
	if err != nil {
		return liquidation.StateHealthy, err
	}
	return liquidation.StateOf(hc), nil
}

// TriggerableSwaps lists the swaps of an account that can be triggered
// right now.
func (e *Engine) TriggerableSwaps(id types.AccountID) ([]uint64, error) {
	var ids []uint64
	err := e.view(func(s *stage) error {
		acc, err := s.account(id)
		if err != nil {
			return err
		}
		ids = conditionalswap.Triggerable(acc, s, s.now)
		return nil
	})
	return ids, err
}

func (e *Engine) BankIndices() []uint16 {
	return e.state.BankIndices()
}

func (e *Engine) MarketIndices() []uint16 {
	return e.state.MarketIndices()
}

// Depth aggregates the book of a market into price levels at the current
// oracle price. Zero depth returns every level.
func (e *Engine) Depth(idx uint16, depth int) (bids, asks []matching.PriceLevel, err error) {
	err = e.view(func(s *stage) error {
		m, checked, err := s.checkedPerpPrice(idx)
		if err != nil {
			return err
		}
		book, err := s.book(idx)
		if err != nil {
			return err
		}
		oracleLots := m.NativePriceToLots(checked.Price)
		bids = book.Bids.Levels(s.now, oracleLots, depth)
		asks = book.Asks.Levels(s.now, oracleLots, depth)
		return nil
	})
	return bids, asks, err
}
