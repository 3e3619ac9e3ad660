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

// Package oracle validates raw oracle readings before they are used for
// valuations.
package oracle

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/types"
)

// Price is a raw reading as published by an oracle: price in native quote
// per native base unit, the absolute confidence interval and the time of
// the last update in seconds.
type Price struct {
	Price      num.Decimal
	Confidence num.Decimal
	LastUpdate uint64
}

func NewPrice(price, confidence num.Decimal, lastUpdate uint64) Price {
	return Price{Price: price, Confidence: confidence, LastUpdate: lastUpdate}
}

// Config is the per token or per market oracle policy.
type Config struct {
	// ConfFilter is the relative confidence (conf / price) above which the
	// reading is considered uncertain.
	ConfFilter num.Decimal
	// SoftStaleness is the age in seconds after which the reading is
	// considered uncertain. Zero disables the check.
	SoftStaleness uint64
	// MaxStaleness is the age in seconds after which the reading is
	// rejected. Zero disables the check.
	MaxStaleness uint64
}

func DefaultConfig() Config {
	return Config{
		ConfFilter:    num.MustDecimalFromString("0.1"),
		SoftStaleness: 60,
		MaxStaleness:  300,
	}
}

// Checked is a usable oracle reading. Uncertain readings carry a non zero
// Deviation: assets are then valued at Price-Deviation and liabilities at
// Price+Deviation.
type Checked struct {
	Price     num.Decimal
	Deviation num.Decimal
}

// Low is the price used to value assets.
func (c Checked) Low() num.Decimal {
	return num.MaxD(c.Price.Sub(c.Deviation), num.DecimalZero())
}

// High is the price used to value liabilities.
func (c Checked) High() num.Decimal {
	return c.Price.Add(c.Deviation)
}

func (c Checked) IsUncertain() bool {
	return c.Deviation.IsPositive()
}

// Age returns the number of seconds since the last update.
func (p Price) Age(now uint64) uint64 {
	if now <= p.LastUpdate {
		return 0
	}
	return now - p.LastUpdate
}

// Check applies the policy to a reading. It fails with StaleOracle past
// the hard staleness limit and with an invalid error for non positive
// prices. Uncertain readings are widened, never rejected.
func (c Config) Check(p Price, now uint64) (Checked, error) {
	if !p.Price.IsPositive() {
		return Checked{}, types.ErrBadOraclePrice
	}
	age := p.Age(now)
	if c.MaxStaleness > 0 && age > c.MaxStaleness {
		return Checked{}, types.ErrStaleOracle
	}
	conf := num.MaxD(p.Confidence.Abs(), num.DecimalZero())
	deviation := num.DecimalZero()
	if conf.GreaterThan(p.Price.Mul(c.ConfFilter)) {
		deviation = conf
	}
	if c.SoftStaleness > 0 && age > c.SoftStaleness {
		deviation = num.MaxD(deviation, num.MaxD(conf, p.Price.Mul(c.ConfFilter)))
	}
	return Checked{Price: p.Price, Deviation: deviation}, nil
}

// Validate checks the policy parameters.
func (c Config) Validate() error {
	if c.ConfFilter.IsNegative() {
		return types.ErrInvalidConfig.WithInvariant("oracle conf filter")
	}
	if c.MaxStaleness > 0 && c.SoftStaleness > c.MaxStaleness {
		return types.ErrInvalidConfig.WithInvariant("oracle soft staleness above hard limit")
	}
	return nil
}
