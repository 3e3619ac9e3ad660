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

package scenariorunner

import (
	"sync"
	"time"

	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/scenariorunner/core"
	"github.com/xmargin/xmargin/types"

	"github.com/imdario/mergo"
)

// clock is the protocol time of a scenario. It only moves when told to.
type clock struct {
	mu  sync.RWMutex
	now time.Time
}

func (c *clock) GetTimeNow() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *clock) SetTime(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *clock) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// priceFeed holds the oracle readings pushed by a scenario. A reading
// keeps the time it was set at, so advancing the clock makes it stale.
type priceFeed struct {
	clock  *clock
	tokens map[uint16]oracle.Price
	perps  map[uint16]oracle.Price
}

func newPriceFeed(c *clock) *priceFeed {
	return &priceFeed{
		clock:  c,
		tokens: map[uint16]oracle.Price{},
		perps:  map[uint16]oracle.Price{},
	}
}

func (f *priceFeed) TokenPrice(token uint16) (oracle.Price, error) {
	p, ok := f.tokens[token]
	if !ok {
		return oracle.Price{}, types.ErrStaleOracle.WithToken(token)
	}
	return p, nil
}

func (f *priceFeed) PerpPrice(market uint16) (oracle.Price, error) {
	p, ok := f.perps[market]
	if !ok {
		return oracle.Price{}, types.ErrStaleOracle.WithMarket(market)
	}
	return p, nil
}

func (f *priceFeed) reading(price num.Decimal, conf *num.Decimal) oracle.Price {
	c := num.DecimalZero()
	if conf != nil {
		c = *conf
	}
	return oracle.NewPrice(price, c, uint64(f.clock.GetTimeNow().Unix()))
}

func (f *priceFeed) SetTokenPrice(token uint16, price num.Decimal, conf *num.Decimal) {
	f.tokens[token] = f.reading(price, conf)
}

func (f *priceFeed) SetPerpPrice(market uint16, price num.Decimal, conf *num.Decimal) {
	f.perps[market] = f.reading(price, conf)
}

// SetPrices replaces the readings of the given tokens and markets in one
// go. The others are kept.
func (f *priceFeed) SetPrices(tokens, perps map[uint16]num.Decimal) error {
	for dst, prices := range map[*map[uint16]oracle.Price]map[uint16]num.Decimal{
		&f.tokens: tokens,
		&f.perps:  perps,
	} {
		readings := make(map[uint16]oracle.Price, len(prices))
		for idx, price := range prices {
			readings[idx] = f.reading(price, nil)
		}
		if err := mergo.Merge(dst, readings, mergo.WithOverride); err != nil {
			return err
		}
	}
	return nil
}

type SetTimeRequest struct {
	Time int64 `yaml:"time"`
}

type AdvanceTimeRequest struct {
	TimeDelta time.Duration `yaml:"time_delta"`
}

type SetTokenPriceRequest struct {
	Token      uint16       `yaml:"token"`
	Price      num.Decimal  `yaml:"price"`
	Confidence *num.Decimal `yaml:"confidence,omitempty"`
}

type SetPerpPriceRequest struct {
	Market     uint16       `yaml:"market"`
	Price      num.Decimal  `yaml:"price"`
	Confidence *num.Decimal `yaml:"confidence,omitempty"`
}

type SetPricesRequest struct {
	Tokens map[uint16]num.Decimal `yaml:"tokens,omitempty"`
	Perps  map[uint16]num.Decimal `yaml:"perps,omitempty"`
}

type internalProvider struct {
	clock            *clock
	feed             *priceFeed
	summaryGenerator *core.SummaryGenerator
}

func newInternalProvider(c *clock, feed *priceFeed, summaryGenerator *core.SummaryGenerator) *internalProvider {
	return &internalProvider{
		clock:            c,
		feed:             feed,
		summaryGenerator: summaryGenerator,
	}
}

func (p *internalProvider) PreProcessors() map[string]*core.PreProcessor {
	return map[string]*core.PreProcessor{
		"set_time":        p.set(),
		"advance_time":    p.advance(),
		"set_token_price": p.tokenPrice(),
		"set_perp_price":  p.perpPrice(),
		"set_prices":      p.prices(),
		"summary":         p.summary(),
	}
}

func (p *internalProvider) set() *core.PreProcessor {
	preProcessor := func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
		req := &SetTimeRequest{}
		if err := instr.Decode(req); err != nil {
			return nil, err
		}
		return instr.PreProcess(func() (interface{}, error) {
			p.clock.SetTime(time.Unix(req.Time, 0))
			return nil, nil
		})
	}
	return &core.PreProcessor{
		MessageShape: &SetTimeRequest{},
		PreProcess:   preProcessor,
	}
}

func (p *internalProvider) advance() *core.PreProcessor {
	preProcessor := func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
		req := &AdvanceTimeRequest{}
		if err := instr.Decode(req); err != nil {
			return nil, err
		}
		if req.TimeDelta < 0 {
			return nil, core.ErrInstructionInvalid
		}
		return instr.PreProcess(func() (interface{}, error) {
			p.clock.AdvanceTime(req.TimeDelta)
			return nil, nil
		})
	}
	return &core.PreProcessor{
		MessageShape: &AdvanceTimeRequest{},
		PreProcess:   preProcessor,
	}
}

func (p *internalProvider) tokenPrice() *core.PreProcessor {
	preProcessor := func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
		req := &SetTokenPriceRequest{}
		if err := instr.Decode(req); err != nil {
			return nil, err
		}
		return instr.PreProcess(func() (interface{}, error) {
			p.feed.SetTokenPrice(req.Token, req.Price, req.Confidence)
			return nil, nil
		})
	}
	return &core.PreProcessor{
		MessageShape: &SetTokenPriceRequest{},
		PreProcess:   preProcessor,
	}
}

func (p *internalProvider) perpPrice() *core.PreProcessor {
	preProcessor := func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
		req := &SetPerpPriceRequest{}
		if err := instr.Decode(req); err != nil {
			return nil, err
		}
		return instr.PreProcess(func() (interface{}, error) {
			p.feed.SetPerpPrice(req.Market, req.Price, req.Confidence)
			return nil, nil
		})
	}
	return &core.PreProcessor{
		MessageShape: &SetPerpPriceRequest{},
		PreProcess:   preProcessor,
	}
}

func (p *internalProvider) prices() *core.PreProcessor {
	preProcessor := func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
		req := &SetPricesRequest{}
		if err := instr.Decode(req); err != nil {
			return nil, err
		}
		if len(req.Tokens) == 0 && len(req.Perps) == 0 {
			return nil, core.ErrInstructionInvalid
		}
		return instr.PreProcess(func() (interface{}, error) {
			return nil, p.feed.SetPrices(req.Tokens, req.Perps)
		})
	}
	return &core.PreProcessor{
		MessageShape: &SetPricesRequest{},
		PreProcess:   preProcessor,
	}
}

func (p *internalProvider) summary() *core.PreProcessor {
	preProcessor := func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
		return instr.PreProcess(func() (interface{}, error) {
			return p.summaryGenerator.Summary()
		})
	}
	return &core.PreProcessor{
		MessageShape: &struct{}{},
		PreProcess:   preProcessor,
	}
}
