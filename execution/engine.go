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

// Package execution runs the instructions of the margin core. Each
// instruction works on a staged copy of the state which is committed
// only when every check passed.
package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/metrics"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/state"
	"github.com/xmargin/xmargin/types"

	"github.com/pkg/errors"
)

//go:generate go run github.com/golang/mock/mockgen -destination mocks/mocks.go -package mocks github.com/xmargin/xmargin/execution PriceSource,TimeService,Checkpointer

// PriceSource provides the current oracle readings.
type PriceSource interface {
	TokenPrice(token uint16) (oracle.Price, error)
	PerpPrice(market uint16) (oracle.Price, error)
}

// TimeService provides the time instructions are executed at.
type TimeService interface {
	GetTimeNow() time.Time
}

// Checkpointer persists the complete state.
type Checkpointer interface {
	SaveState(st *state.State) ([]byte, error)
	LoadState() (*state.State, error)
}

// Engine is the execution engine.
type Engine struct {
	Config
	log *logging.Logger
	// guards Config, instructions are sequenced by the caller
	mu sync.RWMutex

	prices      PriceSource
	timeService TimeService
	state       *state.State
}

// NewEngine returns an engine over an empty state.
func NewEngine(log *logging.Logger, executionConfig Config, prices PriceSource, ts TimeService) *Engine {
	// setup logger
	log = log.Named(namedLogger)
	log.SetLevel(executionConfig.Level.Get())
	return &Engine{
		Config:      executionConfig,
		log:         log,
		prices:      prices,
		timeService: ts,
		state:       state.New(executionConfig.InsuranceTokenIndex),
	}
}

// ReloadConf updates the internal configuration of the execution
// engine. Book and queue sizes only apply to markets registered later.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Debug("reloading configuration")

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
}

func (e *Engine) config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Config
}

func (e *Engine) now() uint64 {
	return uint64(e.timeService.GetTimeNow().Unix())
}

// run executes fn on a fresh stage and commits it when fn succeeds.
func (e *Engine) run(instruction string, fn func(s *stage) error) error {
	start := time.Now()
	s := newStage(e.state, e.prices, e.now())
	err := fn(s)
	metrics.InstructionObserve(instruction, err == nil, start)
	if err != nil {
		if e.log.IsDebug() {
			e.log.Debug("instruction rejected",
				logging.Instruction(instruction),
				logging.Error(err),
			)
		}
		return errors.Wrap(err, instruction)
	}
	s.commit(e.state)
	return nil
}

// view runs fn on a stage that is never committed.
func (e *Engine) view(fn func(s *stage) error) error {
	return fn(newStage(e.state, e.prices, e.now()))
}

func (e *Engine) limit(l int) int {
	if l > 0 {
		return l
	}
	return e.config().DefaultLimit
}

// CreateAccount registers an empty account and returns its id.
func (e *Engine) CreateAccount(name string) (types.AccountID, error) {
	cfg := e.config()
	var id types.AccountID
	err := e.run("create_account", func(s *stage) error {
		if cfg.MaxAccounts > 0 && s.accountCount() >= cfg.MaxAccounts {
			return types.ErrAccountListFull
		}
		id = types.NewAccountID()
		for s.hasAccount(id) {
			id = types.NewAccountID()
		}
		s.addAccount(positions.NewAccount(id, name, cfg.Account.slots()))
		return nil
	})
	if err != nil {
		return types.AccountID{}, err
	}
	e.log.Info("account created", logging.AccountID(id.String()), logging.String("name", name))
	return id, nil
}

// CloseAccount removes an account that holds nothing.
func (e *Engine) CloseAccount(id types.AccountID) error {
	return e.run("close_account", func(s *stage) error {
		acc, err := s.account(id)
		if err != nil {
			return err
		}
		if err := acc.CanClose(); err != nil {
			return err
		}
		s.removeAccount(id)
		return nil
	})
}

// RegisterBank adds a token. The stable price starts at the current
// oracle price.
func (e *Engine) RegisterBank(b *collateral.Bank) error {
	err := e.run("register_bank", func(s *stage) error {
		if err := b.Validate(); err != nil {
			return err
		}
		if s.hasBank(b.TokenIndex) {
			return types.ErrInvalidConfig.WithToken(b.TokenIndex).WithInvariant("bank already registered")
		}
		p, err := s.tokenPrice(b.TokenIndex)
		if err != nil {
			return err
		}
		checked, err := b.CheckOracle(p, s.now)
		if err != nil {
			return err
		}
		cpy := b.Clone()
		cpy.StablePrice.Reset(checked.Price, s.now)
		if cpy.IndexLastUpdated == 0 {
			cpy.IndexLastUpdated = s.now
		}
		s.banks[cpy.TokenIndex] = cpy
		return nil
	})
	if err == nil {
		e.log.Info("bank registered", logging.TokenIndex(b.TokenIndex), logging.String("name", b.Name))
	}
	return err
}

// RegisterPerpMarket adds a perp market with an empty book and event
// queue. Its settle token must have a bank.
func (e *Engine) RegisterPerpMarket(m *markets.PerpMarket) error {
	cfg := e.config()
	err := e.run("register_perp_market", func(s *stage) error {
		if err := m.Validate(); err != nil {
			return err
		}
		if s.hasMarket(m.MarketIndex) {
			return types.ErrInvalidConfig.WithMarket(m.MarketIndex).WithInvariant("market already registered")
		}
		if !s.hasBank(m.SettleTokenIndex) {
			return types.ErrBankNotFound.WithToken(m.SettleTokenIndex)
		}
		p, err := s.perpPrice(m.MarketIndex)
		if err != nil {
			return err
		}
		checked, err := m.CheckOracle(p, s.now)
		if err != nil {
			return err
		}
		cpy := m.Clone()
		cpy.StablePrice.Reset(checked.Price, s.now)
		s.markets[cpy.MarketIndex] = cpy
		s.books[cpy.MarketIndex] = matching.NewOrderBook(cpy.MarketIndex, cfg.Matching.BookCapacity)
		s.queues[cpy.MarketIndex] = matching.NewEventQueue(cfg.Matching.EventQueueCapacity)
		return nil
	})
	if err == nil {
		e.log.Info("perp market registered", logging.MarketIndex(m.MarketIndex), logging.String("name", m.Name))
	}
	return err
}

// DepositInsurance adds funds to the insurance fund.
func (e *Engine) DepositInsurance(amount num.Decimal) error {
	return e.run("deposit_insurance", func(s *stage) error {
		if !amount.IsPositive() {
			return types.ErrInvalidAmount
		}
		s.insuranceFund().Deposit(amount)
		return nil
	})
}

// Health computes the health of an account with the current prices.
func (e *Engine) Health(id types.AccountID) (*risk.HealthCache, error) {
	var hc *risk.HealthCache
	err := e.view(func(s *stage) error {
		acc, err := s.account(id)
		if err != nil {
			return err
		}
		hc, err = s.health(acc)
		return err
	})
	return hc, err
}

// Hash digests the whole state.
func (e *Engine) Hash() ([]byte, error) {
	return e.state.Hash()
}

// Checkpoint saves the state and returns its hash.
func (e *Engine) Checkpoint(cp Checkpointer) ([]byte, error) {
	hash, err := cp.SaveState(e.state)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint")
	}
	e.log.Info("state checkpointed", logging.String("hash", fmt.Sprintf("%x", hash)))
	return hash, nil
}

// Restore replaces the state with the last checkpoint.
func (e *Engine) Restore(cp Checkpointer) error {
	st, err := cp.LoadState()
	if err != nil {
		return errors.Wrap(err, "restore")
	}
	if st.Insurance == nil {
		st.Insurance = collateral.NewInsuranceFund(e.config().InsuranceTokenIndex)
	}
	e.state = st
	e.log.Info("state restored",
		logging.Int("accounts", len(st.Accounts)),
		logging.Int("markets", len(st.Markets)),
	)
	return nil
}
