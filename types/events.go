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

package types

import (
	"github.com/xmargin/xmargin/libs/num"
)

type EventType uint8

const (
	EventFill EventType = iota
	EventOut
)

func (t EventType) String() string {
	if t == EventOut {
		return "out"
	}
	return "fill"
}

// Event is an entry of the event queue.
type Event interface {
	Type() EventType
	Seq() uint64
	SetSeq(uint64)
}

// FillEvent records a trade between a resting maker order and a taker.
// The taker side is settled when the order is placed, the maker side
// when the event is consumed.
type FillEvent struct {
	TakerSide          Side
	MakerOut           bool
	MakerSlot          uint8
	Timestamp          uint64
	SeqNum             uint64
	Maker              AccountID
	MakerClientOrderID uint64
	MakerTimestamp     uint64
	MakerOrderID       OrderKey
	Taker              AccountID
	TakerClientOrderID uint64
	// fee rates applied to the quote value of the fill. A negative maker
	// rate is a rebate.
	MakerFeeRate num.Decimal
	TakerFeeRate num.Decimal
	PriceLots    int64
	Quantity     int64
}

func (e *FillEvent) Type() EventType  { return EventFill }
func (e *FillEvent) Seq() uint64      { return e.SeqNum }
func (e *FillEvent) SetSeq(s uint64)  { e.SeqNum = s }
func (e *FillEvent) MakerSide() Side  { return e.TakerSide.Invert() }
func (e *FillEvent) QuoteLots() int64 { return e.PriceLots * e.Quantity }

// Fees returns the maker and taker fees in native quote units.
func (e *FillEvent) Fees(quoteLotSize int64) (maker, taker num.Decimal) {
	quote := num.DecimalFromInt64(e.QuoteLots()).Mul(num.DecimalFromInt64(quoteLotSize))
	return quote.Mul(e.MakerFeeRate), quote.Mul(e.TakerFeeRate)
}

// OutEvent reports that a resting order left the book without the
// owner asking for it: filled away by a self trade cancel, or expired.
type OutEvent struct {
	Side      Side
	OwnerSlot uint8
	Timestamp uint64
	SeqNum    uint64
	Owner     AccountID
	Quantity  int64
	OrderID   OrderKey
}

func (e *OutEvent) Type() EventType { return EventOut }
func (e *OutEvent) Seq() uint64     { return e.SeqNum }
func (e *OutEvent) SetSeq(s uint64) { e.SeqNum = s }
