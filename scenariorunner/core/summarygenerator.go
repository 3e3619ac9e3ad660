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

package core

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/liquidation"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"
)

// StateReader is the read side of the execution engine.
type StateReader interface {
	AccountIDs() []types.AccountID
	Account(id types.AccountID) (*positions.Account, error)
	Health(id types.AccountID) (*risk.HealthCache, error)
	BankIndices() []uint16
	Bank(token uint16) (*collateral.Bank, error)
	MarketIndices() []uint16
	Market(idx uint16) (*markets.PerpMarket, error)
	Depth(idx uint16, depth int) (bids, asks []matching.PriceLevel, err error)
	EventQueueLen(idx uint16) (int, error)
	InsuranceBalance() num.Decimal
	Hash() ([]byte, error)
}

type Clock interface {
	GetTimeNow() time.Time
}

type Summary struct {
	Time             int64            `yaml:"time"`
	StateHash        string           `yaml:"state_hash"`
	InsuranceBalance string           `yaml:"insurance_balance"`
	Banks            []BankSummary    `yaml:"banks,omitempty"`
	Markets          []MarketSummary  `yaml:"markets,omitempty"`
	Accounts         []AccountSummary `yaml:"accounts,omitempty"`
}

type BankSummary struct {
	TokenIndex   uint16 `yaml:"token_index"`
	Name         string `yaml:"name"`
	Deposits     string `yaml:"deposits"`
	Borrows      string `yaml:"borrows"`
	DepositIndex string `yaml:"deposit_index"`
	BorrowIndex  string `yaml:"borrow_index"`
}

type Level struct {
	Price    int64 `yaml:"price"`
	Quantity int64 `yaml:"quantity"`
	Orders   int   `yaml:"orders"`
}

type MarketSummary struct {
	MarketIndex   uint16  `yaml:"market_index"`
	Name          string  `yaml:"name"`
	OpenInterest  int64   `yaml:"open_interest"`
	LongFunding   string  `yaml:"long_funding"`
	ShortFunding  string  `yaml:"short_funding"`
	PendingEvents int     `yaml:"pending_events"`
	Bids          []Level `yaml:"bids,omitempty"`
	Asks          []Level `yaml:"asks,omitempty"`
	// set when the book could not be priced
	DepthError string `yaml:"depth_error,omitempty"`
}

type TokenBalance struct {
	TokenIndex uint16 `yaml:"token_index"`
	Balance    string `yaml:"balance"`
}

type PerpBalance struct {
	MarketIndex uint16 `yaml:"market_index"`
	BaseLots    int64  `yaml:"base_lots"`
	Quote       string `yaml:"quote"`
	BidsLots    int64  `yaml:"bids_lots,omitempty"`
	AsksLots    int64  `yaml:"asks_lots,omitempty"`
}

type AccountSummary struct {
	Name            string         `yaml:"name"`
	ID              string         `yaml:"id"`
	BeingLiquidated bool           `yaml:"being_liquidated,omitempty"`
	InitHealth      string         `yaml:"init_health,omitempty"`
	MaintHealth     string         `yaml:"maint_health,omitempty"`
	State           string         `yaml:"state,omitempty"`
	HealthError     string         `yaml:"health_error,omitempty"`
	Tokens          []TokenBalance `yaml:"tokens,omitempty"`
	Perps           []PerpBalance  `yaml:"perps,omitempty"`
}

// SummaryGenerator builds summaries of the engine state.
type SummaryGenerator struct {
	state    StateReader
	clock    Clock
	accounts *Accounts
	depth    int
}

func NewSummaryGenerator(state StateReader, clock Clock, accounts *Accounts, depth int) *SummaryGenerator {
	return &SummaryGenerator{
		state:    state,
		clock:    clock,
		accounts: accounts,
		depth:    depth,
	}
}

func (s *SummaryGenerator) Summary() (*Summary, error) {
	hash, err := s.state.Hash()
	if err != nil {
		return nil, err
	}
	out := &Summary{
		Time:             s.clock.GetTimeNow().Unix(),
		StateHash:        hex.EncodeToString(hash),
		InsuranceBalance: s.state.InsuranceBalance().String(),
	}
	for _, idx := range s.state.BankIndices() {
		b, err := s.state.Bank(idx)
		if err != nil {
			return nil, err
		}
		out.Banks = append(out.Banks, BankSummary{
			TokenIndex:   b.TokenIndex,
			Name:         b.Name,
			Deposits:     b.NativeDeposits().String(),
			Borrows:      b.NativeBorrows().String(),
			DepositIndex: b.DepositIndex.String(),
			BorrowIndex:  b.BorrowIndex.String(),
		})
	}
	for _, idx := range s.state.MarketIndices() {
		ms, err := s.marketSummary(idx)
		if err != nil {
			return nil, err
		}
		out.Markets = append(out.Markets, *ms)
	}
	for _, id := range s.state.AccountIDs() {
		as, err := s.accountSummary(id)
		if err != nil {
			return nil, err
		}
		out.Accounts = append(out.Accounts, *as)
	}
	sort.SliceStable(out.Accounts, func(i, j int) bool {
		return out.Accounts[i].Name < out.Accounts[j].Name
	})
	return out, nil
}

func (s *SummaryGenerator) marketSummary(idx uint16) (*MarketSummary, error) {
	m, err := s.state.Market(idx)
	if err != nil {
		return nil, err
	}
	pending, err := s.state.EventQueueLen(idx)
	if err != nil {
		return nil, err
	}
	ms := &MarketSummary{
		MarketIndex:   m.MarketIndex,
		Name:          m.Name,
		OpenInterest:  m.OpenInterest,
		LongFunding:   m.LongFunding.String(),
		ShortFunding:  m.ShortFunding.String(),
		PendingEvents: pending,
	}
	bids, asks, err := s.state.Depth(idx, s.depth)
	if err != nil {
		// a stale oracle must not hide the rest of the summary
		ms.DepthError = err.Error()
		return ms, nil
	}
	ms.Bids = levels(bids)
	ms.Asks = levels(asks)
	return ms, nil
}

func levels(pl []matching.PriceLevel) []Level {
	out := make([]Level, 0, len(pl))
	for _, l := range pl {
		out = append(out, Level{Price: l.PriceLots, Quantity: l.Quantity, Orders: l.Orders})
	}
	return out
}

func (s *SummaryGenerator) accountSummary(id types.AccountID) (*AccountSummary, error) {
	acc, err := s.state.Account(id)
	if err != nil {
		return nil, err
	}
	as := &AccountSummary{
		Name:            s.accounts.Name(id),
		ID:              id.String(),
		BeingLiquidated: acc.BeingLiquidated,
	}
	for _, tp := range acc.ActiveTokenPositions() {
		b, err := s.state.Bank(tp.TokenIndex)
		if err != nil {
			return nil, err
		}
		as.Tokens = append(as.Tokens, TokenBalance{
			TokenIndex: tp.TokenIndex,
			Balance:    b.NativeBalance(tp).String(),
		})
	}
	for _, pp := range acc.ActivePerpPositions() {
		as.Perps = append(as.Perps, PerpBalance{
			MarketIndex: pp.MarketIndex,
			BaseLots:    pp.BasePositionLots,
			Quote:       pp.QuotePositionNative.String(),
			BidsLots:    pp.BidsBaseLots,
			AsksLots:    pp.AsksBaseLots,
		})
	}
	hc, err := s.state.Health(id)
	if err != nil {
		as.HealthError = err.Error()
		return as, nil
	}
	as.InitHealth = hc.InitHealth().String()
	as.MaintHealth = hc.MaintHealth().String()
	as.State = liquidation.StateOf(hc).String()
	return as, nil
}
