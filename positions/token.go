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

package positions

import (
	"math"

	"github.com/xmargin/xmargin/libs/num"
)

// TokenIndexUnused marks a free token position slot.
const TokenIndexUnused uint16 = math.MaxUint16

// TokenPosition is a deposit (positive) or a borrow (negative) of a single
// token. The balance is stored in index units: the native amount is the
// indexed position times the bank's deposit or borrow index.
type TokenPosition struct {
	IndexedPosition num.Decimal
	TokenIndex      uint16
	// InUseCount counts the perp positions and conditional swaps that need
	// this slot to stay active.
	InUseCount uint16
	// PreviousIndex is the index seen at the last balance change, used to
	// track the interest earned or paid since.
	PreviousIndex             num.Decimal
	CumulativeDepositInterest num.Decimal
	CumulativeBorrowInterest  num.Decimal
}

func newTokenPosition(idx uint16) TokenPosition {
	return TokenPosition{
		IndexedPosition:           num.DecimalZero(),
		TokenIndex:                idx,
		PreviousIndex:             num.DecimalZero(),
		CumulativeDepositInterest: num.DecimalZero(),
		CumulativeBorrowInterest:  num.DecimalZero(),
	}
}

func (p *TokenPosition) IsActive() bool {
	return p.TokenIndex != TokenIndexUnused
}

func (p *TokenPosition) IsActiveForToken(idx uint16) bool {
	return p.TokenIndex == idx
}

func (p *TokenPosition) IsBorrow() bool {
	return p.IndexedPosition.IsNegative()
}

// Native returns the native balance given the bank indices.
func (p *TokenPosition) Native(depositIndex, borrowIndex num.Decimal) num.Decimal {
	if p.IndexedPosition.IsNegative() {
		return p.IndexedPosition.Mul(borrowIndex)
	}
	return p.IndexedPosition.Mul(depositIndex)
}
