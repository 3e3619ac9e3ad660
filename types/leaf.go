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

const signBit = uint64(1) << 63

// PriceData maps a signed price or offset onto an unsigned word that
// sorts the same way.
func PriceData(p int64) uint64 {
	return uint64(p) ^ signBit
}

// PriceFromData is the inverse of PriceData.
func PriceFromData(d uint64) int64 {
	return int64(d ^ signBit)
}

// OrderKey orders resting orders inside a tree. Bids store the bitwise
// complement of their sequence number so that, at equal price, the
// oldest bid has the largest key.
type OrderKey struct {
	PriceData uint64
	SeqData   uint64
}

func NewOrderKey(side Side, priceOrOffset int64, seq uint64) OrderKey {
	if side == SideBid {
		seq = ^seq
	}
	return OrderKey{PriceData: PriceData(priceOrOffset), SeqData: seq}
}

func (k OrderKey) Less(o OrderKey) bool {
	if k.PriceData != o.PriceData {
		return k.PriceData < o.PriceData
	}
	return k.SeqData < o.SeqData
}

// Price returns the fixed price, or the offset for pegged orders.
func (k OrderKey) Price() int64 {
	return PriceFromData(k.PriceData)
}

// Seq recovers the sequence number given the side of the tree.
func (k OrderKey) Seq(side Side) uint64 {
	if side == SideBid {
		return ^k.SeqData
	}
	return k.SeqData
}

// OrderID is the 128 bit public identifier of the order, price data in
// the high word.
func (k OrderKey) OrderID() *num.Uint {
	return num.NewUint128(k.PriceData, k.SeqData)
}

// OrderKeyFromID decodes an order id, ok is false if it has more than
// 128 bits.
func OrderKeyFromID(id *num.Uint) (OrderKey, bool) {
	if id == nil || !id.Fits128() {
		return OrderKey{}, false
	}
	hi, lo := id.Split128()
	return OrderKey{PriceData: hi, SeqData: lo}, true
}

// LeafNode is an order resting in an order tree.
type LeafNode struct {
	Key           OrderKey
	Owner         AccountID
	OwnerSlot     uint8
	OrderType     PostOrderType
	TimeInForce   uint16
	ClientOrderID uint64
	Quantity      int64
	Timestamp     uint64
	PegLimit      int64
}

// ExpiryTimestamp is zero for orders that never expire.
func (l *LeafNode) ExpiryTimestamp() uint64 {
	if l.TimeInForce == 0 {
		return 0
	}
	return l.Timestamp + uint64(l.TimeInForce)
}

func (l *LeafNode) IsExpired(now uint64) bool {
	return l.TimeInForce > 0 && now >= l.Timestamp+uint64(l.TimeInForce)
}

// PriceLots returns the effective price of the order. Pegged orders are
// priced off the oracle, ok is false when that price is unusable (below
// one lot, or past the peg limit).
func (l *LeafNode) PriceLots(side Side, tree OrderTreeType, oraclePriceLots int64) (int64, bool) {
	if tree == OrderTreeFixed {
		return l.Key.Price(), true
	}
	price := oraclePriceLots + l.Key.Price()
	if price < 1 {
		return 1, false
	}
	if l.PegLimit != NoPegLimit && side.IsPriceBetter(price, l.PegLimit) {
		return price, false
	}
	return price, true
}
