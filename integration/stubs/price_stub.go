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

package stubs

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/types"
)

// PriceStub serves the prices set by the steps, stamped with the time they
// were set at.
type PriceStub struct {
	time   *TimeStub
	tokens map[uint16]oracle.Price
	perps  map[uint16]oracle.Price
}

func NewPriceStub(time *TimeStub) *PriceStub {
	return &PriceStub{
		time:   time,
		tokens: map[uint16]oracle.Price{},
		perps:  map[uint16]oracle.Price{},
	}
}

func (p *PriceStub) reading(price num.Decimal) oracle.Price {
	return oracle.NewPrice(price, num.DecimalZero(), uint64(p.time.GetTimeNow().Unix()))
}

func (p *PriceStub) SetTokenPrice(token uint16, price num.Decimal) {
	p.tokens[token] = p.reading(price)
}

func (p *PriceStub) SetPerpPrice(market uint16, price num.Decimal) {
	p.perps[market] = p.reading(price)
}

func (p *PriceStub) TokenPrice(token uint16) (oracle.Price, error) {
	price, ok := p.tokens[token]
	if !ok {
		return oracle.Price{}, types.ErrStaleOracle.WithToken(token)
	}
	return price, nil
}

func (p *PriceStub) PerpPrice(market uint16) (oracle.Price, error) {
	price, ok := p.perps[market]
	if !ok {
		return oracle.Price{}, types.ErrStaleOracle.WithMarket(market)
	}
	return price, nil
}
