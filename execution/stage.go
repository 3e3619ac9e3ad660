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
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/metrics"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/state"
	"github.com/xmargin/xmargin/types"
)

// stage is the working copy of an instruction. Every object is copied
// the first time it is accessed; commit writes the copies back into the
// state, dropping the stage leaves the state untouched.
type stage struct {
	base   *state.State
	prices PriceSource
	now    uint64

	accounts  map[types.AccountID]*positions.Account
	removed   map[types.AccountID]struct{}
	banks     map[uint16]*collateral.Bank
	markets   map[uint16]*markets.PerpMarket
	books     map[uint16]*matching.OrderBook
	queues    map[uint16]*matching.EventQueue
	insurance *collateral.InsuranceFund

	tokenPrices map[uint16]oracle.Price
	perpPrices  map[uint16]oracle.Price
}

var _ risk.Retriever = (*stage)(nil)

func newStage(base *state.State, prices PriceSource, now uint64) *stage {
	return &stage{
		base:        base,
		prices:      prices,
		now:         now,
		accounts:    map[types.AccountID]*positions.Account{},
		removed:     map[types.AccountID]struct{}{},
		banks:       map[uint16]*collateral.Bank{},
		markets:     map[uint16]*markets.PerpMarket{},
		books:       map[uint16]*matching.OrderBook{},
		queues:      map[uint16]*matching.EventQueue{},
		tokenPrices: map[uint16]oracle.Price{},
		perpPrices:  map[uint16]oracle.Price{},
	}
}

func (s *stage) account(id types.AccountID) (*positions.Account, error) {
	if _, ok := s.removed[id]; ok {
		return nil, types.ErrAccountNotFound.WithAccount(id)
	}
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	a, ok := s.base.Accounts[id]
	if !ok {
		return nil, types.ErrAccountNotFound.WithAccount(id)
	}
	cpy := a.Clone()
	s.accounts[id] = cpy
	return cpy, nil
}

func (s *stage) hasAccount(id types.AccountID) bool {
	if _, ok := s.removed[id]; ok {
		return false
	}
	_, staged := s.accounts[id]
	_, stored := s.base.Accounts[id]
	return staged || stored
}

func (s *stage) accountCount() int {
	n := len(s.base.Accounts)
	for id := range s.accounts {
		if _, ok := s.base.Accounts[id]; !ok {
			n++
		}
	}
	return n - len(s.removed)
}

func (s *stage) addAccount(a *positions.Account) {
	delete(s.removed, a.ID)
	s.accounts[a.ID] = a
}

func (s *stage) removeAccount(id types.AccountID) {
	delete(s.accounts, id)
	s.removed[id] = struct{}{}
}

func (s *stage) bank(token uint16) (*collateral.Bank, error) {
	if b, ok := s.banks[token]; ok {
		return b, nil
	}
	b, ok := s.base.Banks[token]
	if !ok {
		return nil, types.ErrBankNotFound.WithToken(token)
	}
	cpy := b.Clone()
	s.banks[token] = cpy
	return cpy, nil
}

func (s *stage) hasBank(token uint16) bool {
	_, staged := s.banks[token]
	_, stored := s.base.Banks[token]
	return staged || stored
}

func (s *stage) market(idx uint16) (*markets.PerpMarket, error) {
	if m, ok := s.markets[idx]; ok {
		return m, nil
	}
	m, ok := s.base.Markets[idx]
	if !ok {
		return nil, types.ErrMarketNotFound.WithMarket(idx)
	}
	cpy := m.Clone()
	s.markets[idx] = cpy
	return cpy, nil
}

func (s *stage) hasMarket(idx uint16) bool {
	_, staged := s.markets[idx]
	_, stored := s.base.Markets[idx]
	return staged || stored
}

func (s *stage) book(idx uint16) (*matching.OrderBook, error) {
	if b, ok := s.books[idx]; ok {
		return b, nil
	}
	b, ok := s.base.Books[idx]
	if !ok {
		return nil, types.ErrMarketNotFound.WithMarket(idx)
	}
	cpy := b.Clone()
	s.books[idx] = cpy
	return cpy, nil
}

func (s *stage) queue(idx uint16) (*matching.EventQueue, error) {
	if q, ok := s.queues[idx]; ok {
		return q, nil
	}
	q, ok := s.base.Queues[idx]
	if !ok {
		return nil, types.ErrMarketNotFound.WithMarket(idx)
	}
	cpy := q.Clone()
	s.queues[idx] = cpy
	return cpy, nil
}

func (s *stage) insuranceFund() *collateral.InsuranceFund {
	if s.insurance == nil {
		s.insurance = s.base.Insurance.Clone()
	}
	return s.insurance
}

func (s *stage) tokenPrice(token uint16) (oracle.Price, error) {
	if p, ok := s.tokenPrices[token]; ok {
		return p, nil
	}
	p, err := s.prices.TokenPrice(token)
	if err != nil {
		return oracle.Price{}, err
	}
	if !p.Price.IsPositive() {
		return oracle.Price{}, types.ErrBadOraclePrice.WithToken(token)
	}
	s.tokenPrices[token] = p
	return p, nil
}

func (s *stage) perpPrice(market uint16) (oracle.Price, error) {
	if p, ok := s.perpPrices[market]; ok {
		return p, nil
	}
	p, err := s.prices.PerpPrice(market)
	if err != nil {
		return oracle.Price{}, err
	}
	if !p.Price.IsPositive() {
		return oracle.Price{}, types.ErrBadOraclePrice.WithMarket(market)
	}
	s.perpPrices[market] = p
	return p, nil
}

func (s *stage) BankAndPrice(token uint16) (*collateral.Bank, oracle.Price, error) {
	b, err := s.bank(token)
	if err != nil {
		return nil, oracle.Price{}, err
	}
	p, err := s.tokenPrice(token)
	if err != nil {
		return nil, oracle.Price{}, err
	}
	return b, p, nil
}

func (s *stage) PerpMarketAndPrice(market uint16) (*markets.PerpMarket, oracle.Price, error) {
	m, err := s.market(market)
	if err != nil {
		return nil, oracle.Price{}, err
	}
	p, err := s.perpPrice(market)
	if err != nil {
		return nil, oracle.Price{}, err
	}
	return m, p, nil
}

// checkedPerpPrice returns the market with its oracle price after the
// staleness and confidence checks.
func (s *stage) checkedPerpPrice(market uint16) (*markets.PerpMarket, oracle.Checked, error) {
	m, p, err := s.PerpMarketAndPrice(market)
	if err != nil {
		return nil, oracle.Checked{}, err
	}
	checked, err := m.CheckOracle(p, s.now)
	if err != nil {
		return nil, oracle.Checked{}, err
	}
	return m, checked, nil
}

func (s *stage) health(acc *positions.Account) (*risk.HealthCache, error) {
	return risk.Compute(acc, s, s.now)
}

func (s *stage) initHealth(acc *positions.Account) (num.Decimal, error) {
	hc, err := s.health(acc)
	if err != nil {
		return num.Decimal{}, err
	}
	return hc.InitHealth(), nil
}

// checkHealth is the gate of user actions: init health must be non
// negative or must not have dropped. An account being liquidated may
// only act once its liquidation end health is back above zero.
func (s *stage) checkHealth(acc *positions.Account, pre num.Decimal) error {
	hc, err := s.health(acc)
	if err != nil {
		return err
	}
	if err := risk.CheckPreAndPost(pre, hc.InitHealth()); err != nil {
		return err.(*types.Error).WithAccount(acc.ID)
	}
	return s.clearLiquidation(acc, hc)
}

func (s *stage) clearLiquidation(acc *positions.Account, hc *risk.HealthCache) error {
	if !acc.BeingLiquidated {
		return nil
	}
	if hc.IsLiquidatable() {
		return types.ErrBeingLiquidated.WithAccount(acc.ID)
	}
	acc.BeingLiquidated = false
	return nil
}

func (s *stage) commit(st *state.State) {
	for id, a := range s.accounts {
		st.Accounts[id] = a
	}
	for id := range s.removed {
		delete(st.Accounts, id)
	}
	for idx, b := range s.banks {
		st.Banks[idx] = b
	}
	for idx, m := range s.markets {
		st.Markets[idx] = m
	}
	for idx, b := range s.books {
		st.Books[idx] = b
	}
	for idx, q := range s.queues {
		st.Queues[idx] = q
	}
	if s.insurance != nil {
		st.Insurance = s.insurance
	}

	for idx, b := range s.books {
		name := ""
		if m, ok := st.Markets[idx]; ok {
			name = m.Name
		}
		events := 0
		if q, ok := st.Queues[idx]; ok {
			events = q.Len()
		}
		metrics.BookGaugesSet(name, b.Len(), events)
	}
}
