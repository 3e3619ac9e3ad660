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

package oracle

import (
	"github.com/xmargin/xmargin/libs/num"
)

// StablePriceModel follows the oracle price with a bounded speed. Init
// health values assets at min(oracle, stable) and liabilities at
// max(oracle, stable), so a short lived price spike cannot be used to
// borrow against.
type StablePriceModel struct {
	StablePrice num.Decimal
	LastUpdate  uint64
	// GrowthLimit is the maximum relative move per second.
	GrowthLimit num.Decimal
}

func NewStablePriceModel(growthLimit num.Decimal) StablePriceModel {
	return StablePriceModel{GrowthLimit: growthLimit}
}

func (m *StablePriceModel) Reset(price num.Decimal, now uint64) {
	m.StablePrice = price
	m.LastUpdate = now
}

// Update moves the stable price toward price. The first update adopts
// the price directly.
func (m *StablePriceModel) Update(price num.Decimal, now uint64) {
	if m.StablePrice.IsZero() || !m.GrowthLimit.IsPositive() {
		m.Reset(price, now)
		return
	}
	if now <= m.LastUpdate {
		return
	}
	dt := num.DecimalFromUint64(now - m.LastUpdate)
	move := num.MinD(m.GrowthLimit.Mul(dt), num.DecimalOne())
	lo := m.StablePrice.Mul(num.DecimalOne().Sub(move))
	hi := m.StablePrice.Mul(num.DecimalOne().Add(move))
	m.StablePrice = num.ClampD(price, lo, hi)
	m.LastUpdate = now
}

// Get returns the stable price, or fallback when the model was never
// updated.
func (m *StablePriceModel) Get(fallback num.Decimal) num.Decimal {
	if m.StablePrice.IsZero() {
		return fallback
	}
	return m.StablePrice
}
